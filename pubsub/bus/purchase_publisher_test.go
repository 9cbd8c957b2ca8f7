package bus_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelessmusic/entity"
	"timelessmusic/pubsub/bus"
)

func TestPurchasePublisher_wire_format(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	goChannel := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer goChannel.Close()

	messages, err := goChannel.Subscribe(ctx, "purchases")
	require.NoError(t, err)

	eventBus, err := bus.NewEventBus(goChannel, "purchases")
	require.NoError(t, err)

	record := entity.PurchaseRecord{
		Name:     "A",
		Email:    "a@b.com",
		GigID:    "g1",
		TicketID: "5f0a3f5e-2d34-4bb5-9b36-1c2f3e4d5a6b",
	}
	require.NoError(t, bus.NewPurchasePublisher(eventBus).PublishPurchase(ctx, record))

	select {
	case msg := <-messages:
		msg.Ack()

		var payload map[string]string
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, map[string]string{
			"name":     "A",
			"email":    "a@b.com",
			"gigId":    "g1",
			"ticketId": record.TicketID,
		}, payload)
		assert.Equal(t, "PurchaseRecord", msg.Metadata.Get("name"))
	case <-ctx.Done():
		t.Fatal("purchase record was not published")
	}
}

func TestEventBus_rejects_unknown_events(t *testing.T) {
	goChannel := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer goChannel.Close()

	eventBus, err := bus.NewEventBus(goChannel, "purchases")
	require.NoError(t, err)

	err = eventBus.Publish(context.Background(), entity.Gig{ID: "g1"})
	assert.Error(t, err)
}
