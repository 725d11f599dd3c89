package mailer

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SentEmail records one delivery made through the Mock sender.
type SentEmail struct {
	To      string
	Subject string
	HTML    string
}

// Mock is an in-memory Sender for tests. Set Err to simulate provider
// outages; sends then fail without being recorded.
type Mock struct {
	mu   sync.Mutex
	Err  error
	sent []SentEmail
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Send(ctx context.Context, to, subject, html string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}

	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, HTML: html})
	return uuid.NewString(), nil
}

func (m *Mock) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.Err = nil
}

var _ Sender = (*Mock)(nil)
