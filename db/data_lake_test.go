package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelessmusic/db"
	"timelessmusic/entity"
)

func TestDataLake_StoreEvent_is_idempotent(t *testing.T) {
	ctx := context.Background()
	dataLake := db.NewDataLake(db.GetDb(t))

	event := entity.DataLakeEvent{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC().Truncate(time.Microsecond),
		Name:        "PurchaseRecord",
		Payload:     []byte(`{"name":"Alice","email":"a@b.com","gigId":"g1","ticketId":"t1"}`),
	}

	require.NoError(t, dataLake.StoreEvent(ctx, event))
	require.NoError(t, dataLake.StoreEvent(ctx, event), "redelivered event is ignored")

	events, err := dataLake.GetEvents(ctx)
	require.NoError(t, err)

	stored := lo.Filter(events, func(e entity.DataLakeEvent, _ int) bool { return e.ID == event.ID })
	require.Len(t, stored, 1)
	assert.Equal(t, event.Name, stored[0].Name)
	assert.Equal(t, event.Payload, stored[0].Payload)
}

func TestDataLake_StoreEvent_malformed_payload(t *testing.T) {
	dataLake := db.NewDataLake(db.GetDb(t))

	err := dataLake.StoreEvent(context.Background(), entity.DataLakeEvent{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
		Payload:     []byte("not json"),
	})
	assert.NoError(t, err)
}
