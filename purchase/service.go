package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/avast/retry-go"

	"timelessmusic/entity"
)

type RecordPublisher interface {
	PublishPurchase(ctx context.Context, record entity.PurchaseRecord) error
}

// FailurePolicy decides what happens when the purchase record cannot be
// handed to the queue.
type FailurePolicy string

const (
	// FailurePolicyFail discards the issued ticket and reports the failure.
	FailurePolicyFail FailurePolicy = "fail"
	// FailurePolicyRetry retries the publish with backoff before failing.
	FailurePolicyRetry FailurePolicy = "retry"
)

type PublishPolicy struct {
	OnFailure     FailurePolicy
	RetryAttempts uint
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
}

type Service struct {
	issuer    TicketIssuer
	publisher RecordPublisher
	policy    PublishPolicy
}

func NewService(issuer TicketIssuer, publisher RecordPublisher, policy PublishPolicy) Service {
	if issuer == nil {
		panic("missing issuer")
	}
	if publisher == nil {
		panic("missing publisher")
	}
	if policy.OnFailure == "" {
		policy.OnFailure = FailurePolicyFail
	}
	if policy.RetryAttempts == 0 {
		policy.RetryAttempts = 1
	}

	return Service{
		issuer:    issuer,
		publisher: publisher,
		policy:    policy,
	}
}

// Purchase validates the body, issues a ticket and enqueues the purchase
// record. The record is returned only once the publish succeeded.
func (s Service) Purchase(ctx context.Context, body []byte) (entity.PurchaseRecord, error) {
	request, err := Validate(body)
	if err != nil {
		return entity.PurchaseRecord{}, err
	}

	ticketID, err := s.issuer.IssueTicket()
	if err != nil {
		return entity.PurchaseRecord{}, err
	}

	record := request.Record(ticketID)

	if err := s.publish(ctx, record); err != nil {
		log.FromContext(ctx).
			WithError(err).
			WithField("ticket_id", ticketID).
			Error("Discarding ticket, purchase record could not be enqueued")

		return entity.PurchaseRecord{}, fmt.Errorf("%w: could not enqueue purchase: %w", entity.ErrTransport, err)
	}

	return record, nil
}

func (s Service) publish(ctx context.Context, record entity.PurchaseRecord) error {
	if s.policy.OnFailure != FailurePolicyRetry {
		return s.publisher.PublishPurchase(ctx, record)
	}

	return retry.Do(
		func() error {
			return s.publisher.PublishPurchase(ctx, record)
		},
		retry.Context(ctx),
		retry.Attempts(s.policy.RetryAttempts),
		retry.Delay(s.policy.RetryDelay),
		retry.MaxDelay(s.policy.RetryMaxDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.FromContext(ctx).
				WithError(err).
				WithField("attempt", n+1).
				WithField("ticket_id", record.TicketID).
				Warn("Publishing purchase record failed, retrying")
		}),
	)
}
