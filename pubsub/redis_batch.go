package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/redis/go-redis/v9"

	"timelessmusic/entity"
)

const batchDrainHandlerName = "drain_ticket_emails"

type BatchNotifier interface {
	NotifyBatch(ctx context.Context, envelopes []entity.Envelope) []entity.Outcome
}

type BatchConfig struct {
	Topic       string
	PoisonTopic string
	Consumer    string
	BatchSize   int64
	// Block is how long a read waits for new messages before the drain ends.
	Block time.Duration
}

type DrainStats struct {
	Batches   int
	Processed int
	Duplicate int
	Malformed int
	Retry     int
}

func (s *DrainStats) add(status entity.OutcomeStatus) {
	switch status {
	case entity.OutcomeProcessed:
		s.Processed++
	case entity.OutcomeDuplicate:
		s.Duplicate++
	case entity.OutcomeMalformed:
		s.Malformed++
	case entity.OutcomeRetry:
		s.Retry++
	}
}

// RedisBatchConsumer reads the purchases stream in batches, in the same
// consumer group as the router's e-mail handler. Messages that need a retry
// stay pending, so the router claims them once they are idle.
type RedisBatchConsumer struct {
	rdb          *redis.Client
	notifier     BatchNotifier
	poisonPub    message.Publisher
	config       BatchConfig
	unmarshaller redisstream.DefaultMarshallerUnmarshaller
}

func NewRedisBatchConsumer(
	rdb *redis.Client,
	notifier BatchNotifier,
	poisonPub message.Publisher,
	config BatchConfig,
) RedisBatchConsumer {
	if rdb == nil {
		panic("missing redis client")
	}
	if notifier == nil {
		panic("missing notifier")
	}
	if poisonPub == nil {
		panic("missing poison queue publisher")
	}
	if config.Topic == "" {
		config.Topic = "purchases"
	}
	if config.PoisonTopic == "" {
		config.PoisonTopic = config.Topic + ".poison"
	}
	if config.Consumer == "" {
		config.Consumer = batchDrainHandlerName
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.Block <= 0 {
		config.Block = time.Second
	}

	return RedisBatchConsumer{
		rdb:       rdb,
		notifier:  notifier,
		poisonPub: poisonPub,
		config:    config,
	}
}

// Drain processes batches until the stream has no new messages for the group.
func (c RedisBatchConsumer) Drain(ctx context.Context) (DrainStats, error) {
	var stats DrainStats
	group := ConsumerGroup(SendTicketEmailHandlerName)

	err := c.rdb.XGroupCreateMkStream(ctx, c.config.Topic, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return stats, fmt.Errorf("could not create consumer group %s: %w", group, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: c.config.Consumer,
			Streams:  []string{c.config.Topic, ">"},
			Count:    c.config.BatchSize,
			Block:    c.config.Block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("could not read from %s: %w", c.config.Topic, err)
		}

		var entries []redis.XMessage
		for _, stream := range streams {
			entries = append(entries, stream.Messages...)
		}
		if len(entries) == 0 {
			return stats, nil
		}

		if err := c.handleBatch(ctx, group, entries, &stats); err != nil {
			return stats, err
		}
		stats.Batches++
	}
}

func (c RedisBatchConsumer) handleBatch(ctx context.Context, group string, entries []redis.XMessage, stats *DrainStats) error {
	logger := log.FromContext(ctx)

	envelopes := make([]entity.Envelope, len(entries))
	messages := make([]*message.Message, len(entries))
	for i, entry := range entries {
		msg, err := c.unmarshaller.Unmarshal(entry.Values)
		if err != nil {
			logger.WithError(err).WithField("stream_id", entry.ID).Warn("Could not unmarshal stream entry")
			msg = message.NewMessage(entry.ID, nil)
		}
		messages[i] = msg
		envelopes[i] = entity.Envelope{ID: msg.UUID, Payload: msg.Payload}
	}

	outcomes := c.notifier.NotifyBatch(ctx, envelopes)

	var ack []string
	for i, outcome := range outcomes {
		stats.add(outcome.Status)

		if outcome.Status == entity.OutcomeMalformed {
			if err := c.poison(messages[i], outcome.HandlerError()); err != nil {
				return err
			}
		}
		if outcome.Acknowledge() {
			ack = append(ack, entries[i].ID)
		}
	}

	if len(ack) == 0 {
		return nil
	}
	if err := c.rdb.XAck(ctx, c.config.Topic, group, ack...).Err(); err != nil {
		return fmt.Errorf("could not ack %d messages: %w", len(ack), err)
	}

	return nil
}

func (c RedisBatchConsumer) poison(msg *message.Message, reason error) error {
	poisoned := msg.Copy()
	poisoned.Metadata.Set(middleware.ReasonForPoisonedKey, reason.Error())
	poisoned.Metadata.Set(middleware.PoisonedTopicKey, c.config.Topic)
	poisoned.Metadata.Set(middleware.PoisonedHandlerKey, batchDrainHandlerName)

	if err := c.poisonPub.Publish(c.config.PoisonTopic, poisoned); err != nil {
		return fmt.Errorf("could not move message %s to poison queue: %w", msg.UUID, err)
	}

	return nil
}
