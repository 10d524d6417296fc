// Package mail delivers one-time codes over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"directory-console/backend/internal/apperr"
)

// Config carries the SMTP relay settings. User may be empty for relays that
// accept unauthenticated mail from the console host.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// StartTLS upgrades the connection before authenticating.
	StartTLS bool
}

// Sender delivers mail through one SMTP relay.
type Sender struct {
	cfg Config
	// sendF is swapped in tests; the default speaks SMTP.
	sendF func(ctx context.Context, to, subject, body string) error
}

// NewSender returns a Sender for the given relay.
func NewSender(cfg Config) *Sender {
	s := &Sender{cfg: cfg}
	s.sendF = s.smtpSend
	return s
}

// SendCode delivers a password-recovery code.
func (s *Sender) SendCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("Your verification code is %s. It expires shortly; do not share it.", code)
	if err := s.sendF(ctx, to, "Password reset verification code", body); err != nil {
		return apperr.Wrap(apperr.KindGateway, "mail delivery failed", err)
	}
	return nil
}

func (s *Sender) smtpSend(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if s.cfg.StartTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("relay %s does not offer STARTTLS", s.cfg.Host)
		}
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.cfg.User != "" {
		auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp body close: %w", err)
	}
	return client.Quit()
}
