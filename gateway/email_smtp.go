package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"timelessmusic/entity"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLSPolicy is one of "opportunistic", "mandatory" or "none".
	TLSPolicy string
	Timeout   time.Duration
}

type SMTPSender struct {
	config SMTPConfig
}

func NewSMTPSender(config SMTPConfig) (SMTPSender, error) {
	if config.Host == "" {
		return SMTPSender{}, fmt.Errorf("smtp host is empty")
	}
	if _, err := tlsPolicy(config.TLSPolicy); err != nil {
		return SMTPSender{}, err
	}

	return SMTPSender{config: config}, nil
}

func (s SMTPSender) SendEmail(ctx context.Context, email entity.TicketEmail) error {
	msg, err := newMailMessage(email)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("could not create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("could not send email via %s: %w", s.config.Host, err)
	}

	return nil
}

func (s SMTPSender) clientOptions() []mail.Option {
	policy, _ := tlsPolicy(s.config.TLSPolicy)

	opts := []mail.Option{
		mail.WithTLSPolicy(policy),
	}
	if s.config.Port != 0 {
		opts = append(opts, mail.WithPort(s.config.Port))
	}
	if s.config.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.config.Timeout))
	}
	if s.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}

	return opts
}

func newMailMessage(email entity.TicketEmail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", email.From, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("%w %q: %w", entity.ErrInvalidRecipient, email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)

	return msg, nil
}

func tlsPolicy(policy string) (mail.TLSPolicy, error) {
	switch policy {
	case "", "opportunistic":
		return mail.TLSOpportunistic, nil
	case "mandatory":
		return mail.TLSMandatory, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.TLSOpportunistic, fmt.Errorf("unknown smtp tls policy %q", policy)
	}
}
