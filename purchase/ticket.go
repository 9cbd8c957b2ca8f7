package purchase

import (
	"fmt"

	"github.com/google/uuid"
)

type TicketIssuer interface {
	IssueTicket() (string, error)
}

// UUIDTicketIssuer issues random (version 4) UUIDs read from crypto/rand.
type UUIDTicketIssuer struct{}

func (UUIDTicketIssuer) IssueTicket() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("could not generate ticket id: %w", err)
	}

	return id.String(), nil
}
