package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"timelessmusic/entity"
	"timelessmusic/pubsub/event"
)

const (
	consumerGroupPrefix = "svc-timelessmusic."

	SendTicketEmailHandlerName = "send_ticket_email"
	StoreToDataLakeHandlerName = "store_to_data_lake"

	// EventNameMetadataKey is set by the cqrs JSON marshaler.
	EventNameMetadataKey = "name"
)

type RouterConfig struct {
	Topic       string
	PoisonTopic string

	MaxRetries           int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.Topic == "" {
		c.Topic = "purchases"
	}
	if c.PoisonTopic == "" {
		c.PoisonTopic = c.Topic + ".poison"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = 100 * time.Millisecond
	}
	if c.RetryMaxInterval <= 0 {
		c.RetryMaxInterval = time.Second
	}
	return c
}

type DataLake interface {
	StoreEvent(ctx context.Context, dataLakeEvent entity.DataLakeEvent) error
}

func ConsumerGroup(handlerName string) string {
	return consumerGroupPrefix + handlerName
}

func NewWatermillRouter(
	transport Transport,
	config RouterConfig,
	eventHandler event.Handler,
	dataLake DataLake,
	watermillLogger watermill.LoggerAdapter,
) (*message.Router, error) {
	config = config.withDefaults()

	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("could not create router: %w", err)
	}

	useMiddlewares(router)

	emailSub, err := transport.NewSubscriber(ConsumerGroup(SendTicketEmailHandlerName))
	if err != nil {
		return nil, err
	}

	poison, err := poisonMiddlewares(transport.Publisher, config, watermillLogger)
	if err != nil {
		return nil, err
	}

	router.AddNoPublisherHandler(
		SendTicketEmailHandlerName,
		config.Topic,
		emailSub,
		eventHandler.SendTicketEmailHandler(),
	).AddMiddleware(poison...)

	if dataLake == nil {
		return router, nil
	}

	dataLakeSub, err := transport.NewSubscriber(ConsumerGroup(StoreToDataLakeHandlerName))
	if err != nil {
		return nil, err
	}

	router.AddNoPublisherHandler(
		StoreToDataLakeHandlerName,
		config.Topic,
		dataLakeSub,
		func(msg *message.Message) error {
			return dataLake.StoreEvent(
				msg.Context(),
				entity.DataLakeEvent{
					ID:          msg.UUID,
					PublishedAt: PublishedAt(msg),
					Name:        msg.Metadata.Get(EventNameMetadataKey),
					Payload:     msg.Payload,
				},
			)
		},
	).AddMiddleware(retryMiddleware(config, watermillLogger))

	return router, nil
}
