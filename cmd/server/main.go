package main

import (
	"database/sql"

	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-arno/peerbank/cmd/httpserver"
	"github.com/go-arno/peerbank/internal/middleware"
	"github.com/go-arno/peerbank/pkg/configpkg"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	conn, err := sql.Open(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to db")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: config.RedisAddress,
	})

	amqpConn, err := amqp.Dial(config.AMQPSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to message broker")
	}

	amqpChannel, err := amqpConn.Channel()
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot open broker channel")
	}

	err = amqpChannel.ExchangeDeclare(
		httpserver.EventExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot declare broker exchange")
	}

	server, err := httpserver.New(conn, redisClient, amqpChannel, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
