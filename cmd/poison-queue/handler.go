package main

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/redis/go-redis/v9"
)

type Message struct {
	ID     string
	Topic  string
	Reason string

	streamID string
	msg      *message.Message
}

// Handler manages the poison queue stream directly, so previewing does not
// consume anything.
type Handler struct {
	rdb          *redis.Client
	publisher    message.Publisher
	poisonTopic  string
	unmarshaller redisstream.DefaultMarshallerUnmarshaller
}

func NewHandler(rdb *redis.Client, publisher message.Publisher, poisonTopic string) *Handler {
	return &Handler{
		rdb:         rdb,
		publisher:   publisher,
		poisonTopic: poisonTopic,
	}
}

func (h *Handler) Preview(ctx context.Context) ([]Message, error) {
	entries, err := h.rdb.XRange(ctx, h.poisonTopic, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", h.poisonTopic, err)
	}

	result := make([]Message, 0, len(entries))
	for _, entry := range entries {
		msg, err := h.unmarshaller.Unmarshal(entry.Values)
		if err != nil {
			return nil, fmt.Errorf("could not unmarshal poisoned message %s: %w", entry.ID, err)
		}

		result = append(result, Message{
			ID:       msg.UUID,
			Topic:    msg.Metadata.Get(middleware.PoisonedTopicKey),
			Reason:   msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			streamID: entry.ID,
			msg:      msg,
		})
	}

	return result, nil
}

func (h *Handler) Remove(ctx context.Context, messageID string) error {
	poisoned, err := h.find(ctx, messageID)
	if err != nil {
		return err
	}

	return h.delete(ctx, poisoned)
}

// Requeue publishes the message back to the topic it was poisoned on.
func (h *Handler) Requeue(ctx context.Context, messageID string) error {
	poisoned, err := h.find(ctx, messageID)
	if err != nil {
		return err
	}
	if poisoned.Topic == "" {
		return fmt.Errorf("message %s has no original topic", messageID)
	}

	msg := poisoned.msg.Copy()
	for _, key := range []string{
		middleware.ReasonForPoisonedKey,
		middleware.PoisonedTopicKey,
		middleware.PoisonedHandlerKey,
		middleware.PoisonedSubscriberKey,
	} {
		delete(msg.Metadata, key)
	}

	if err := h.publisher.Publish(poisoned.Topic, msg); err != nil {
		return fmt.Errorf("could not requeue message %s to %s: %w", messageID, poisoned.Topic, err)
	}

	return h.delete(ctx, poisoned)
}

func (h *Handler) find(ctx context.Context, messageID string) (Message, error) {
	messages, err := h.Preview(ctx)
	if err != nil {
		return Message{}, err
	}

	for _, m := range messages {
		if m.ID == messageID {
			return m, nil
		}
	}

	return Message{}, fmt.Errorf("message %s not found", messageID)
}

func (h *Handler) delete(ctx context.Context, m Message) error {
	if err := h.rdb.XDel(ctx, h.poisonTopic, m.streamID).Err(); err != nil {
		return fmt.Errorf("could not remove message %s: %w", m.ID, err)
	}
	return nil
}
