package app

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	"timelessmusic/config"
	dbLib "timelessmusic/db"
	"timelessmusic/gateway"
	"timelessmusic/pubsub"
	"timelessmusic/pubsub/event"
	"timelessmusic/purchase"
)

func ConfigFromOptions(opts config.Options) Config {
	return Config{
		HTTPAddr: opts.HTTPAddr,
		Router: pubsub.RouterConfig{
			Topic:                opts.Queue.Topic,
			PoisonTopic:          opts.Queue.PoisonTopic,
			MaxRetries:           opts.Worker.MaxRetries,
			RetryInitialInterval: opts.Worker.RetryInitialInterval,
			RetryMaxInterval:     opts.Worker.RetryMaxInterval,
		},
		Publish: purchase.PublishPolicy{
			OnFailure:     purchase.FailurePolicy(opts.Publish.FailurePolicy),
			RetryAttempts: opts.Publish.RetryAttempts,
			RetryDelay:    opts.Publish.RetryDelay,
			RetryMaxDelay: opts.Publish.RetryMaxDelay,
		},
		Notifier: event.Config{
			From:             opts.Email.From,
			SendTimeout:      opts.Email.SendTimeout,
			BatchConcurrency: opts.Worker.BatchConcurrency,
		},
	}
}

func OpenDB(postgresURL string) (*sqlx.DB, error) {
	traceDB, err := otelsql.Open("postgres", postgresURL, otelsql.WithDBSystem("postgresql"))
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	return sqlx.NewDb(traceDB, "postgres"), nil
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

// NewTransport builds the configured queue. rdb and db are only used by the
// backends that need them and may be nil otherwise.
func NewTransport(opts config.Options, db *sqlx.DB, rdb *redis.Client) (pubsub.Transport, error) {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	switch opts.Queue.Backend {
	case pubsub.BackendRedis:
		if rdb == nil {
			return pubsub.Transport{}, fmt.Errorf("redis client is required for the redis queue backend")
		}
		return pubsub.NewRedisTransport(rdb, watermillLogger)
	case pubsub.BackendPostgres:
		if db == nil {
			return pubsub.Transport{}, fmt.Errorf("database is required for the postgres queue backend")
		}
		return pubsub.NewPostgresTransport(db, watermillLogger)
	case pubsub.BackendKafka:
		return pubsub.NewKafkaTransport(opts.Queue.KafkaBrokers, watermillLogger)
	case pubsub.BackendMemory:
		return pubsub.NewMemoryTransport(watermillLogger), nil
	default:
		return pubsub.Transport{}, fmt.Errorf("unknown queue backend %q", opts.Queue.Backend)
	}
}

func NewEmailSender(opts config.Options) (event.EmailSender, error) {
	switch opts.Email.Transport {
	case "smtp":
		return gateway.NewSMTPSender(gateway.SMTPConfig{
			Host:      opts.SMTP.Host,
			Port:      opts.SMTP.Port,
			Username:  opts.SMTP.Username,
			Password:  opts.SMTP.Password,
			TLSPolicy: opts.SMTP.TLSPolicy,
			Timeout:   opts.Email.SendTimeout,
		})
	case "http":
		return gateway.NewHTTPEmailSender(opts.EmailAPI.URL, opts.EmailAPI.Key, opts.Email.SendTimeout)
	case "log", "":
		return gateway.LogSender{}, nil
	default:
		return nil, fmt.Errorf("unknown email transport %q", opts.Email.Transport)
	}
}

func NewEmailClaims(opts config.Options, rdb *redis.Client) (event.EmailClaims, error) {
	switch opts.Email.Dedup {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis client is required for e-mail dedup")
		}
		return dbLib.NewRedisEmailClaims(rdb, opts.Email.DedupTTL), nil
	case "off", "":
		return event.NoClaims{}, nil
	default:
		return nil, fmt.Errorf("unknown email dedup policy %q", opts.Email.Dedup)
	}
}

// NewFromOptions builds the App on top of transport. The transport is closed
// when anything else fails to build, App.Run closes it otherwise.
func NewFromOptions(
	opts config.Options,
	db *sqlx.DB,
	rdb *redis.Client,
	transport pubsub.Transport,
	traceProvider *tracesdk.TracerProvider,
) (_ App, err error) {
	defer func() {
		if err == nil {
			return
		}
		if closeErr := transport.Close(); closeErr != nil {
			log.FromContext(context.Background()).WithError(closeErr).Error("Could not close transport")
		}
	}()

	emailSender, err := NewEmailSender(opts)
	if err != nil {
		return App{}, err
	}

	emailClaims, err := NewEmailClaims(opts, rdb)
	if err != nil {
		return App{}, err
	}

	return New(ConfigFromOptions(opts), db, transport, emailSender, emailClaims, traceProvider)
}

// Drain sends the e-mails of every purchase currently queued on Redis and
// returns once the stream has no new messages.
func Drain(
	ctx context.Context,
	opts config.Options,
	rdb *redis.Client,
	transport pubsub.Transport,
	emailSender event.EmailSender,
	emailClaims event.EmailClaims,
) (pubsub.DrainStats, error) {
	appConfig := ConfigFromOptions(opts)

	consumer := pubsub.NewRedisBatchConsumer(
		rdb,
		event.NewHandler(emailSender, emailClaims, appConfig.Notifier),
		transport.Publisher,
		pubsub.BatchConfig{
			Topic:       opts.Queue.Topic,
			PoisonTopic: opts.Queue.PoisonTopic,
			BatchSize:   opts.Worker.BatchSize,
			Block:       opts.Worker.BatchBlock,
		},
	)

	stats, err := consumer.Drain(ctx)
	if err != nil {
		return stats, fmt.Errorf("could not drain %s: %w", opts.Queue.Topic, err)
	}

	log.FromContext(ctx).
		WithField("batches", stats.Batches).
		WithField("processed", stats.Processed).
		WithField("duplicate", stats.Duplicate).
		WithField("malformed", stats.Malformed).
		WithField("retry", stats.Retry).
		Info("Queue drained")

	return stats, nil
}
