package pubsub

import (
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"timelessmusic/tracing"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendKafka    = "kafka"
	BackendMemory   = "memory"
)

// Transport is the queue the purchase records travel through. Every handler
// subscribes with its own consumer group, so each one sees every message.
type Transport struct {
	Backend   string
	Publisher message.Publisher

	newSubscriber func(consumerGroup string) (message.Subscriber, error)
}

func (t Transport) NewSubscriber(consumerGroup string) (message.Subscriber, error) {
	sub, err := t.newSubscriber(consumerGroup)
	if err != nil {
		return nil, fmt.Errorf("could not create %s subscriber for %s: %w", t.Backend, consumerGroup, err)
	}
	return sub, nil
}

func newTransport(backend string, pub message.Publisher, newSubscriber func(string) (message.Subscriber, error)) Transport {
	pub = PublishedAtDecorator{Publisher: pub}
	pub = tracing.PublisherDecorator{Publisher: pub}
	pub = log.CorrelationPublisherDecorator{Publisher: pub}

	return Transport{
		Backend:       backend,
		Publisher:     pub,
		newSubscriber: newSubscriber,
	}
}

func NewRedisTransport(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) (Transport, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, watermillLogger)
	if err != nil {
		return Transport{}, fmt.Errorf("could not create redis publisher: %w", err)
	}

	return newTransport(BackendRedis, pub, func(consumerGroup string) (message.Subscriber, error) {
		return redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        rdb,
			ConsumerGroup: consumerGroup,
		}, watermillLogger)
	}), nil
}

func NewPostgresTransport(db *sqlx.DB, watermillLogger watermill.LoggerAdapter) (Transport, error) {
	pub, err := watermillSQL.NewPublisher(db.DB, watermillSQL.PublisherConfig{
		SchemaAdapter:        watermillSQL.DefaultPostgreSQLSchema{},
		AutoInitializeSchema: true,
	}, watermillLogger)
	if err != nil {
		return Transport{}, fmt.Errorf("could not create postgres publisher: %w", err)
	}

	return newTransport(BackendPostgres, pub, func(consumerGroup string) (message.Subscriber, error) {
		return watermillSQL.NewSubscriber(db.DB, watermillSQL.SubscriberConfig{
			ConsumerGroup:    consumerGroup,
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		}, watermillLogger)
	}), nil
}

func NewKafkaTransport(brokers []string, watermillLogger watermill.LoggerAdapter) (Transport, error) {
	if len(brokers) == 0 {
		return Transport{}, fmt.Errorf("kafka brokers list is empty")
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermillLogger)
	if err != nil {
		return Transport{}, fmt.Errorf("could not create kafka publisher: %w", err)
	}

	return newTransport(BackendKafka, pub, func(consumerGroup string) (message.Subscriber, error) {
		saramaConfig := kafka.DefaultSaramaSubscriberConfig()
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

		return kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			ConsumerGroup:         consumerGroup,
			OverwriteSaramaConfig: saramaConfig,
		}, watermillLogger)
	}), nil
}

// NewMemoryTransport keeps messages in process. Nothing survives a restart,
// it is meant for tests and local runs. Messages are kept for subscribers
// that start after the publish.
func NewMemoryTransport(watermillLogger watermill.LoggerAdapter) Transport {
	goChannel := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermillLogger)

	return newTransport(BackendMemory, goChannel, func(string) (message.Subscriber, error) {
		return goChannel, nil
	})
}

func (t Transport) Close() error {
	return t.Publisher.Close()
}
