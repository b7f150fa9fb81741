package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPMailer delivers the reset link over plain SMTP. net/smtp has no
// context support, so the send runs in a goroutine and the caller's context
// bounds how long we wait for it.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, in PasswordResetInput) error {
	msg := buildResetMessage(m.cfg.From, in)

	done := make(chan error, 1)

	go func() {
		addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

		var auth smtp.Auth

		if m.cfg.User != "" {
			auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
		}

		done <- smtp.SendMail(addr, auth, m.cfg.From, []string{in.Email}, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildResetMessage(from string, in PasswordResetInput) []byte {
	var b strings.Builder

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + in.Email + "\r\n")
	b.WriteString("Subject: Password Reset Link\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(`<p>Click the link below to reset your password:</p>`)
	b.WriteString(`<a href="` + in.ResetLink + `">` + in.ResetLink + `</a>`)
	b.WriteString("\r\n")

	return []byte(b.String())
}
