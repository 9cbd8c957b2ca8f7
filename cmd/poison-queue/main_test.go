package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelessmusic/db"
)

func TestMain(m *testing.M) {
	var stop func()
	if os.Getenv("REDIS_ADDR") == "" {
		container, addr := db.StartRedisContainer()
		os.Setenv("REDIS_ADDR", addr)
		stop = func() { _ = container.Terminate(context.Background()) }
	}

	code := m.Run()
	if stop != nil {
		stop()
	}
	os.Exit(code)
}

func publishPoisoned(t *testing.T, pub message.Publisher, poisonTopic, topic string, count int) []string {
	t.Helper()

	var ids []string
	for i := 0; i < count; i++ {
		msg := message.NewMessage(watermill.NewUUID(), []byte(`{"ticketId":"`+uuid.NewString()+`"}`))
		msg.Metadata.Set(middleware.ReasonForPoisonedKey, "network down")
		msg.Metadata.Set(middleware.PoisonedTopicKey, topic)
		require.NoError(t, pub.Publish(poisonTopic, msg))
		ids = append(ids, msg.UUID)
	}
	return ids
}

func TestHandler(t *testing.T) {
	ctx := context.Background()
	rdb := db.GetRedis(t)

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: rdb}, watermill.NopLogger{})
	require.NoError(t, err)

	topic := "purchases-" + uuid.NewString()
	poisonTopic := topic + ".poison"
	ids := publishPoisoned(t, pub, poisonTopic, topic, 5)

	h := NewHandler(rdb, pub, poisonTopic)

	messages, err := h.Preview(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, lo.Map(messages, func(m Message, _ int) string { return m.ID }))
	assert.Equal(t, "network down", messages[0].Reason)
	assert.Equal(t, topic, messages[0].Topic)

	messages, err = h.Preview(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, 5, "preview does not consume messages")

	require.NoError(t, h.Remove(ctx, ids[0]))
	require.NoError(t, h.Remove(ctx, ids[3]))
	assert.Error(t, h.Remove(ctx, uuid.NewString()), "unknown message id")

	messages, err = h.Preview(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1], ids[2], ids[4]}, lo.Map(messages, func(m Message, _ int) string { return m.ID }))

	require.NoError(t, h.Requeue(ctx, ids[2]))

	messages, err = h.Preview(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1], ids[4]}, lo.Map(messages, func(m Message, _ int) string { return m.ID }))

	requeued, err := rdb.XRange(ctx, topic, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, requeued, 1)

	msg, err := redisstream.DefaultMarshallerUnmarshaller{}.Unmarshal(requeued[0].Values)
	require.NoError(t, err)
	assert.Equal(t, ids[2], msg.UUID)
	assert.Empty(t, msg.Metadata.Get(middleware.ReasonForPoisonedKey))
}

func TestApp_preview(t *testing.T) {
	rdb := db.GetRedis(t)

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: rdb}, watermill.NopLogger{})
	require.NoError(t, err)

	poisonTopic := "purchases-" + uuid.NewString() + ".poison"
	ids := publishPoisoned(t, pub, poisonTopic, "purchases", 2)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	err = app.Run([]string{"poison-queue", "--redis-addr", os.Getenv("REDIS_ADDR"), "--topic", poisonTopic, "preview"})
	require.NoError(t, err)

	for _, id := range ids {
		assert.Contains(t, out.String(), id+"\tpurchases\tnetwork down")
	}
}
