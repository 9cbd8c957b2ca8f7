package entity

import "fmt"

// Envelope is a queued message as handed to the e-mail worker.
type Envelope struct {
	ID      string
	Payload []byte
}

type OutcomeStatus string

const (
	OutcomeProcessed OutcomeStatus = "processed"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeMalformed OutcomeStatus = "malformed"
	OutcomeRetry     OutcomeStatus = "retry"
)

// Outcome tells the host whether a message can be acknowledged or has to be
// delivered again.
type Outcome struct {
	MessageID string
	TicketID  string
	Status    OutcomeStatus
	Err       error
}

func (o Outcome) Acknowledge() bool {
	return o.Status != OutcomeRetry
}

// HandlerError converts the outcome into the error a message handler returns.
func (o Outcome) HandlerError() error {
	switch o.Status {
	case OutcomeProcessed, OutcomeDuplicate:
		return nil
	case OutcomeMalformed:
		if o.Err == nil {
			return ErrMalformedMessage
		}
		return o.Err
	default:
		if o.Err == nil {
			return fmt.Errorf("message %s needs to be retried", o.MessageID)
		}
		return o.Err
	}
}
