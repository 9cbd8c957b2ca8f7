package event

import (
	"context"
	"time"

	"timelessmusic/entity"
)

type EmailSender interface {
	SendEmail(ctx context.Context, email entity.TicketEmail) error
}

// EmailClaims guards against sending the same ticket twice. Claim reports
// false when the ticket was already claimed.
type EmailClaims interface {
	Claim(ctx context.Context, ticketID string) (bool, error)
	Release(ctx context.Context, ticketID string) error
}

type Config struct {
	From             string
	SendTimeout      time.Duration
	BatchConcurrency int
}

type Handler struct {
	emailSender EmailSender
	emailClaims EmailClaims
	config      Config
}

func NewHandler(emailSender EmailSender, emailClaims EmailClaims, config Config) Handler {
	if emailSender == nil {
		panic("missing emailSender")
	}
	if emailClaims == nil {
		emailClaims = NoClaims{}
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}
	if config.BatchConcurrency <= 0 {
		config.BatchConcurrency = 1
	}

	return Handler{
		emailSender: emailSender,
		emailClaims: emailClaims,
		config:      config,
	}
}

// NoClaims claims every ticket: a redelivered record is e-mailed again.
type NoClaims struct{}

func (NoClaims) Claim(context.Context, string) (bool, error) {
	return true, nil
}

func (NoClaims) Release(context.Context, string) error {
	return nil
}
