// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-arno/peerbank/internal/accountdelivery"
	"github.com/go-arno/peerbank/internal/accountrepo"
	"github.com/go-arno/peerbank/internal/accountservice"
	"github.com/go-arno/peerbank/internal/balancecache"
	"github.com/go-arno/peerbank/internal/eventpub"
	"github.com/go-arno/peerbank/internal/middleware"
	"github.com/go-arno/peerbank/internal/sessiondelivery"
	"github.com/go-arno/peerbank/internal/sessionrepo"
	"github.com/go-arno/peerbank/internal/sessionservice"
	"github.com/go-arno/peerbank/internal/transactiondelivery"
	"github.com/go-arno/peerbank/internal/transactionrepo"
	"github.com/go-arno/peerbank/internal/transferdelivery"
	"github.com/go-arno/peerbank/internal/transferrepo"
	"github.com/go-arno/peerbank/internal/transferservice"
	"github.com/go-arno/peerbank/internal/userdelivery"
	"github.com/go-arno/peerbank/internal/userrepo"
	"github.com/go-arno/peerbank/internal/userservice"
	"github.com/go-arno/peerbank/pkg/configpkg"
	"github.com/go-arno/peerbank/pkg/tokenpkg"
)

// EventExchange is the broker exchange transfer events are published to.
const EventExchange = "peerbank.events"

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, redisClient *redis.Client, amqpChannel *amqp.Channel, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	userRepo := userrepo.NewRepoPGS(conn)
	accountRepo := accountrepo.NewRepoPGS(conn)
	transactionRepo := transactionrepo.NewRepoPGS(conn)
	transferRepo := transferrepo.NewRepoPGS(conn)
	sessionRepo := sessionrepo.NewRepoPGS(conn)

	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	cache := balancecache.New(redisClient)
	publisher := eventpub.New(amqpChannel, EventExchange)

	userService := userservice.New(userRepo)
	accountService := accountservice.New(accountRepo, cache)

	transferService, err := transferservice.New(transferRepo, accountRepo, publisher, cache, config)
	if err != nil {
		return nil, err
	}

	sessionService, err := sessionservice.New(sessionRepo, config, tokenMaker)
	if err != nil {
		return nil, errors.New("cannot initialize session service")
	}

	userHandler := userdelivery.NewHandler(userService, sessionService)
	accountHandler := accountdelivery.NewHandler(accountService)
	transferHandler := transferdelivery.NewHandler(transferService)
	transactionHandler := transactiondelivery.NewHandler(transactionRepo, accountService)
	sessionHandler := sessiondelivery.NewHandler(sessionService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/users", userHandler.Create)
	engine.POST("/users/login", userHandler.Login)
	engine.POST("/sessions", sessionHandler.RenewAccessToken)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(sessionService.TokenMaker))

	authRoutes.POST("/accounts", accountHandler.Create)
	authRoutes.GET("/accounts/:id", accountHandler.Get)
	authRoutes.GET("/accounts", accountHandler.List)

	authRoutes.POST("/transfers", transferHandler.Create)
	authRoutes.GET("/transactions", transactionHandler.List)

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
