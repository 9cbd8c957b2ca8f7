package pubsub_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelessmusic/db"
	"timelessmusic/entity"
	"timelessmusic/gateway"
	"timelessmusic/pubsub"
	"timelessmusic/pubsub/event"
)

func TestRedisBatchConsumer_Drain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rdb := db.GetRedis(t)
	logger := watermill.NopLogger{}
	topic := "purchases-" + uuid.NewString()

	transport, err := pubsub.NewRedisTransport(rdb, logger)
	require.NoError(t, err)

	poisonQueue := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, logger)
	defer poisonQueue.Close()

	emails := &gateway.EmailMock{
		SendFunc: func(email entity.TicketEmail) error {
			if email.To == "down@example.com" {
				return errors.New("mailbox unavailable")
			}
			return nil
		},
	}

	consumer := pubsub.NewRedisBatchConsumer(
		rdb,
		event.NewHandler(emails, nil, event.Config{BatchConcurrency: 2, SendTimeout: time.Second}),
		poisonQueue,
		pubsub.BatchConfig{
			Topic:     topic,
			BatchSize: 3,
			Block:     100 * time.Millisecond,
		},
	)

	records := []entity.PurchaseRecord{
		{Name: "A", Email: "a@b.com", GigID: "g1", TicketID: uuid.NewString()},
		{Name: "B", Email: "down@example.com", GigID: "g1", TicketID: uuid.NewString()},
		{Name: "C", Email: "c@d.com", GigID: "g2", TicketID: uuid.NewString()},
		{Name: "D", Email: "e@f.com", GigID: "g3", TicketID: uuid.NewString()},
	}
	for _, record := range records {
		payload, err := json.Marshal(record)
		require.NoError(t, err)
		require.NoError(t, transport.Publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)))
	}
	malformed := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	require.NoError(t, transport.Publisher.Publish(topic, malformed))

	stats, err := consumer.Drain(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 1, stats.Retry)
	assert.Equal(t, 1, stats.Malformed)

	for _, record := range []entity.PurchaseRecord{records[0], records[2], records[3]} {
		sent := emails.SentTo(record.Email)
		if assert.Len(t, sent, 1, record.Email) {
			assert.Contains(t, sent[0].Body, record.TicketID)
		}
	}
	assert.Empty(t, emails.SentTo("down@example.com"))

	pending, err := rdb.XPending(ctx, topic, pubsub.ConsumerGroup(pubsub.SendTicketEmailHandlerName)).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count, "failed message stays pending for redelivery")

	poisoned, err := poisonQueue.Subscribe(ctx, topic+".poison")
	require.NoError(t, err)
	select {
	case msg := <-poisoned:
		msg.Ack()
		assert.Equal(t, malformed.UUID, msg.UUID)
		assert.Equal(t, topic, msg.Metadata.Get(middleware.PoisonedTopicKey))
	case <-ctx.Done():
		t.Fatal("malformed message was not moved to the poison queue")
	}
}
