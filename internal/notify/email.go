package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the outgoing mail settings. Port 587 uses STARTTLS.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Complete reports whether every field needed to send is set.
func (c SMTPConfig) Complete() bool {
	return c.Host != "" && c.Port > 0 && c.From != "" && c.To != ""
}

// Email sends HTML mail over SMTP. It implements alert.Mailer.
type Email struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewEmail(cfg SMTPConfig) *Email {
	return &Email{cfg: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)}
}

func (e *Email) Send(ctx context.Context, subject, htmlBody string) error {
	const op = "notify.Email.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", e.cfg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
