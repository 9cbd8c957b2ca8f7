package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type Options struct {
	HTTPAddr       string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"address of the HTTP API"`
	PostgresURL    string `long:"postgres-url" env:"POSTGRES_URL" description:"Postgres connection string"`
	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint, tracing is not exported when empty"`
	LogLevel       string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"log level"`

	Queue    Queue    `group:"queue"`
	Publish  Publish  `group:"publish"`
	Worker   Worker   `group:"worker"`
	Email    Email    `group:"email"`
	SMTP     SMTP     `group:"smtp"`
	EmailAPI EmailAPI `group:"email api"`
}

type Queue struct {
	Backend      string   `long:"queue-backend" env:"QUEUE_BACKEND" default:"redis" choice:"redis" choice:"postgres" choice:"kafka" choice:"memory" description:"transport of the purchases queue"`
	Topic        string   `long:"queue-topic" env:"QUEUE_TOPIC" default:"purchases" description:"topic purchase records are published on"`
	PoisonTopic  string   `long:"poison-topic" env:"POISON_QUEUE_TOPIC" default:"purchases.poison" description:"topic failed messages are parked on"`
	RedisAddr    string   `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address"`
	KafkaBrokers []string `long:"kafka-broker" env:"KAFKA_BROKERS" env-delim:"," description:"Kafka brokers"`
}

type Publish struct {
	FailurePolicy string        `long:"publish-failure-policy" env:"PUBLISH_FAILURE_POLICY" default:"fail" choice:"fail" choice:"retry" description:"what to do when a purchase record cannot be published"`
	RetryAttempts uint          `long:"publish-retry-attempts" env:"PUBLISH_RETRY_ATTEMPTS" default:"3" description:"publish attempts with the retry policy"`
	RetryDelay    time.Duration `long:"publish-retry-delay" env:"PUBLISH_RETRY_DELAY" default:"100ms" description:"initial delay between publish attempts"`
	RetryMaxDelay time.Duration `long:"publish-retry-max-delay" env:"PUBLISH_RETRY_MAX_DELAY" default:"1s" description:"maximum delay between publish attempts"`
}

type Worker struct {
	MaxRetries           int           `long:"worker-max-retries" env:"WORKER_MAX_RETRIES" default:"5" description:"retries of a failing message before it is moved to the poison queue"`
	RetryInitialInterval time.Duration `long:"worker-retry-interval" env:"WORKER_RETRY_INTERVAL" default:"100ms" description:"initial delay between message retries"`
	RetryMaxInterval     time.Duration `long:"worker-retry-max-interval" env:"WORKER_RETRY_MAX_INTERVAL" default:"1s" description:"maximum delay between message retries"`
	BatchSize            int64         `long:"batch-size" env:"BATCH_SIZE" default:"10" description:"messages read at once by drain"`
	BatchConcurrency     int           `long:"batch-concurrency" env:"BATCH_CONCURRENCY" default:"4" description:"messages of a batch handled concurrently"`
	BatchBlock           time.Duration `long:"batch-block" env:"BATCH_BLOCK" default:"1s" description:"how long drain waits for new messages before it stops"`
}

type Email struct {
	Transport   string        `long:"email-transport" env:"EMAIL_TRANSPORT" default:"log" choice:"log" choice:"smtp" choice:"http" description:"how ticket e-mails are delivered"`
	From        string        `long:"email-from" env:"EMAIL_FROM" description:"sender of ticket e-mails"`
	SendTimeout time.Duration `long:"email-send-timeout" env:"EMAIL_SEND_TIMEOUT" default:"10s" description:"timeout of a single e-mail send"`
	Dedup       string        `long:"email-dedup" env:"EMAIL_DEDUP" default:"off" choice:"off" choice:"redis" description:"skip e-mails already sent for a ticket"`
	DedupTTL    time.Duration `long:"email-dedup-ttl" env:"EMAIL_DEDUP_TTL" default:"168h" description:"how long a sent ticket is remembered"`
}

type SMTP struct {
	Host      string `long:"smtp-host" env:"SMTP_HOST" description:"SMTP server host"`
	Port      int    `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	Username  string `long:"smtp-username" env:"SMTP_USERNAME" description:"SMTP user"`
	Password  string `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
	TLSPolicy string `long:"smtp-tls" env:"SMTP_TLS" default:"opportunistic" choice:"opportunistic" choice:"mandatory" choice:"none" description:"SMTP TLS policy"`
}

type EmailAPI struct {
	URL string `long:"email-api-url" env:"EMAIL_API_URL" description:"HTTP e-mail API endpoint"`
	Key string `long:"email-api-key" env:"EMAIL_API_KEY" description:"HTTP e-mail API key"`
}

// LoadDotEnv loads .env files into the environment. Missing files are not
// an error, variables already set are kept.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err == nil {
		return nil
	}
	if len(filenames) == 0 && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("could not load env file: %w", err)
}

// Validate checks the options that depend on each other.
func (o Options) Validate(needsDatabase bool) error {
	if needsDatabase && o.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_URL is required")
	}

	switch o.Queue.Backend {
	case "postgres":
		if o.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for the postgres queue backend")
		}
	case "kafka":
		if len(o.Queue.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for the kafka queue backend")
		}
	}

	switch o.Email.Transport {
	case "smtp":
		if o.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is required for the smtp e-mail transport")
		}
	case "http":
		if o.EmailAPI.URL == "" {
			return fmt.Errorf("EMAIL_API_URL is required for the http e-mail transport")
		}
	}

	return nil
}

func NewParser(opts *Options) *flags.Parser {
	parser := flags.NewParser(opts, flags.Default)
	parser.LongDescription = "Timeless Music ticket service"
	return parser
}

// Parse reads the options from args and the environment.
func Parse(args []string) (Options, error) {
	var opts Options
	parser := NewParser(&opts)
	parser.Options &^= flags.PrintErrors
	if _, err := parser.ParseArgs(args); err != nil {
		return Options{}, err
	}
	return opts, nil
}
