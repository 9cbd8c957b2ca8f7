package gateway

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"timelessmusic/entity"
)

// LogSender only logs the e-mail. Used when no transport is configured.
type LogSender struct{}

func (LogSender) SendEmail(ctx context.Context, email entity.TicketEmail) error {
	log.FromContext(ctx).
		WithField("from", email.From).
		WithField("to", email.To).
		WithField("subject", email.Subject).
		Infof("Mock email:\n%s", email.Body)

	return nil
}
