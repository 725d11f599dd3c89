package mailer

import (
	"context"
	"fmt"

	"github.com/caycohq/cayco-server/pkg/config"
	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"
)

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg *config.EmailConfig) (*SMTPSender, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("email credentials not configured")
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("sending email to %s: %w", to, err)
	}

	// SMTP has no provider message id; synthesize one for logging.
	return uuid.NewString(), nil
}

var _ Sender = (*SMTPSender)(nil)
