// Package integrationtest provides server and db helpers used in integration tests.
package integrationtest

import (
	"database/sql"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-arno/peerbank/cmd/httpserver"
	"github.com/go-arno/peerbank/internal/middleware"
	"github.com/go-arno/peerbank/pkg/configpkg"
	"github.com/go-arno/peerbank/pkg/dbpkg"
)

// SetupServer returns a test server wired to the real database, cache and
// broker from the test config. The database is flushed after each test.
func SetupServer(t *testing.T) *httpserver.Server {
	t.Helper()

	config, err := configpkg.Load("../../configs")
	if err != nil {
		t.Fatalf(`configpkg.Load("../../configs") returned error: %v`, err)
	}

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver, config.DBSource)

	redisClient := redis.NewClient(&redis.Options{Addr: config.RedisAddress})

	t.Cleanup(func() {
		if err := redisClient.Close(); err != nil {
			t.Errorf("redis cleanup failed. err: %v", err)
		}
	})

	amqpConn, err := amqp.Dial(config.AMQPSource)
	if err != nil {
		t.Fatalf("broker connection failed. err: %v", err)
	}

	amqpChannel, err := amqpConn.Channel()
	if err != nil {
		t.Fatalf("broker channel failed. err: %v", err)
	}

	err = amqpChannel.ExchangeDeclare(httpserver.EventExchange, "topic", true, false, false, false, nil)
	if err != nil {
		t.Fatalf("broker exchange declaration failed. err: %v", err)
	}

	t.Cleanup(func() {
		if err := amqpConn.Close(); err != nil {
			t.Errorf("broker cleanup failed. err: %v", err)
		}
	})

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.New(db, redisClient, amqpChannel, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.New(db, redisClient, amqpChannel, logger, config) returned error: %v`, err)
	}

	return server
}

// Flush flushes all db tables without dropping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables
	WHERE table_schema='public';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + " CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with database for testing and then cleans it.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}
