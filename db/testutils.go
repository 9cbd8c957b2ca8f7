package db

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	redisContainer "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	db        *sqlx.DB
	getDbOnce sync.Once
)

// GetDb connects to POSTGRES_URL once per test binary and prepares the schema.
func GetDb(t *testing.T) *sqlx.DB {
	getDbOnce.Do(func() {
		var err error
		db, err = sqlx.Open("postgres", os.Getenv("POSTGRES_URL"))
		require.NoError(t, err)

		err = InitializeDatabaseSchema(db)
		require.NoError(t, err)
	})
	return db
}

func GetRedis(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: os.Getenv("REDIS_ADDR"),
	})
	t.Cleanup(func() {
		rdb.Close()
	})

	require.NoError(t, rdb.Ping(context.Background()).Err())

	return rdb
}

func StartPostgresContainer() (testcontainers.Container, string) {
	ctx := context.Background()
	dbName := "db"
	dbUser := "user"
	dbPassword := "password"

	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable", "application_name=test")
	if err != nil {
		panic(err)
	}

	return postgresContainer, connStr
}

// StartRedisContainer returns the container and its host:port address.
func StartRedisContainer() (testcontainers.Container, string) {
	ctx := context.Background()
	container, err := redisContainer.RunContainer(ctx,
		testcontainers.WithImage("docker.io/redis:7"),
		redisContainer.WithLogLevel(redisContainer.LogLevelVerbose),
	)
	if err != nil {
		panic(err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		panic(err)
	}

	return container, strings.Replace(uri, "redis://", "", 1)
}

// StartContainers starts postgres and redis unless POSTGRES_URL and
// REDIS_ADDR already point somewhere. The returned func terminates them.
func StartContainers() func() {
	var started []testcontainers.Container

	if os.Getenv("POSTGRES_URL") == "" {
		container, connStr := StartPostgresContainer()
		os.Setenv("POSTGRES_URL", connStr)
		started = append(started, container)
	}

	if os.Getenv("REDIS_ADDR") == "" {
		container, addr := StartRedisContainer()
		os.Setenv("REDIS_ADDR", addr)
		started = append(started, container)
	}

	return func() {
		for _, container := range started {
			_ = container.Terminate(context.Background())
		}
	}
}
