package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"timelessmusic/entity"
)

// HTTPEmailSender posts e-mails to a Resend compatible HTTP API.
type HTTPEmailSender struct {
	url    string
	apiKey string
	client *http.Client
}

type httpEmailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func NewHTTPEmailSender(url, apiKey string, timeout time.Duration) (HTTPEmailSender, error) {
	if url == "" {
		return HTTPEmailSender{}, fmt.Errorf("email api url is empty")
	}

	return HTTPEmailSender{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}, nil
}

func (s HTTPEmailSender) SendEmail(ctx context.Context, email entity.TicketEmail) error {
	body, err := json.Marshal(httpEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Text:    email.Body,
	})
	if err != nil {
		return fmt.Errorf("could not marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create email api request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not call email api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code for POST %s: %d", s.url, resp.StatusCode)
	}

	return nil
}
