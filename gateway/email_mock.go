package gateway

import (
	"context"
	"sync"

	"timelessmusic/entity"
)

type EmailMock struct {
	mock sync.Mutex

	// SendFunc, when set, decides the result of every send.
	SendFunc func(email entity.TicketEmail) error

	Sent []entity.TicketEmail
}

func (m *EmailMock) SendEmail(ctx context.Context, email entity.TicketEmail) error {
	m.mock.Lock()
	defer m.mock.Unlock()

	if m.SendFunc != nil {
		if err := m.SendFunc(email); err != nil {
			return err
		}
	}

	m.Sent = append(m.Sent, email)
	return nil
}

func (m *EmailMock) SentTo(address string) []entity.TicketEmail {
	m.mock.Lock()
	defer m.mock.Unlock()

	var sent []entity.TicketEmail
	for _, email := range m.Sent {
		if email.To == address {
			sent = append(sent, email)
		}
	}
	return sent
}

func (m *EmailMock) Count() int {
	m.mock.Lock()
	defer m.mock.Unlock()

	return len(m.Sent)
}
