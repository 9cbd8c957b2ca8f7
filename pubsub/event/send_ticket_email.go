package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"

	"timelessmusic/entity"
	"timelessmusic/metrics"
)

// Notify e-mails the ticket of a single queued purchase record. It never
// panics on bad input and reports what the host should do with the message.
func (h Handler) Notify(ctx context.Context, envelope entity.Envelope) entity.Outcome {
	logger := log.FromContext(ctx).WithField("message_id", envelope.ID)

	record, err := parsePurchaseRecord(envelope.Payload)
	if err != nil {
		logger.WithError(err).Warn("Dropping malformed purchase message")
		metrics.TicketEmails.WithLabelValues(string(entity.OutcomeMalformed)).Inc()

		return entity.Outcome{
			MessageID: envelope.ID,
			Status:    entity.OutcomeMalformed,
			Err:       err,
		}
	}

	outcome := h.sendTicketEmail(ctx, logger.WithField("ticket_id", record.TicketID), record)
	outcome.MessageID = envelope.ID
	metrics.TicketEmails.WithLabelValues(string(outcome.Status)).Inc()

	return outcome
}

func (h Handler) sendTicketEmail(ctx context.Context, logger *logrus.Entry, record entity.PurchaseRecord) entity.Outcome {
	claimed, err := h.emailClaims.Claim(ctx, record.TicketID)
	if err != nil {
		return entity.Outcome{
			TicketID: record.TicketID,
			Status:   entity.OutcomeRetry,
			Err:      fmt.Errorf("could not claim ticket email: %w", err),
		}
	}
	if !claimed {
		logger.Info("Ticket email already sent, skipping")
		return entity.Outcome{TicketID: record.TicketID, Status: entity.OutcomeDuplicate}
	}

	sendCtx, cancel := context.WithTimeout(ctx, h.config.SendTimeout)
	defer cancel()

	email := entity.NewTicketEmail(h.config.From, record)
	if err := h.emailSender.SendEmail(sendCtx, email); err != nil {
		if releaseErr := h.emailClaims.Release(ctx, record.TicketID); releaseErr != nil {
			logger.WithError(releaseErr).Error("Could not release ticket email claim")
		}

		if errors.Is(err, entity.ErrInvalidRecipient) {
			logger.WithError(err).Warn("Dropping purchase message with undeliverable email")

			return entity.Outcome{
				TicketID: record.TicketID,
				Status:   entity.OutcomeMalformed,
				Err:      fmt.Errorf("%w: %w", entity.ErrMalformedMessage, err),
			}
		}

		return entity.Outcome{
			TicketID: record.TicketID,
			Status:   entity.OutcomeRetry,
			Err:      fmt.Errorf("could not send ticket email to %s: %w", record.Email, err),
		}
	}

	logger.WithField("email", record.Email).Info("Ticket email sent")

	return entity.Outcome{TicketID: record.TicketID, Status: entity.OutcomeProcessed}
}

func parsePurchaseRecord(payload []byte) (entity.PurchaseRecord, error) {
	var record entity.PurchaseRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return entity.PurchaseRecord{}, fmt.Errorf("%w: %s", entity.ErrMalformedMessage, err)
	}
	if record.Email == "" || record.TicketID == "" {
		return entity.PurchaseRecord{}, fmt.Errorf("%w: email and ticketId are required", entity.ErrMalformedMessage)
	}

	return record, nil
}

func (h Handler) SendTicketEmailHandler() message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		outcome := h.Notify(msg.Context(), entity.Envelope{
			ID:      msg.UUID,
			Payload: msg.Payload,
		})

		return outcome.HandlerError()
	}
}
