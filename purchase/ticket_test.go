package purchase_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelessmusic/purchase"
)

func TestUUIDTicketIssuer(t *testing.T) {
	issuer := purchase.UUIDTicketIssuer{}
	seen := map[string]struct{}{}

	for i := 0; i < 1000; i++ {
		ticketID, err := issuer.IssueTicket()
		require.NoError(t, err)

		parsed, err := uuid.Parse(ticketID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())

		_, duplicate := seen[ticketID]
		require.False(t, duplicate, "ticket id %s issued twice", ticketID)
		seen[ticketID] = struct{}{}
	}
}
