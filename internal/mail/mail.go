// Package mail delivers password reset links over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"authchat/internal/config"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("SMTP is not configured")

const resetSubject = "Password Reset Request"

// Recorder receives the outcome of every delivery attempt.
type Recorder interface {
	RecordExternalCall(service string, err error)
}

// SMTPSender sends mail through an SMTP relay. A new connection is opened per
// message.
type SMTPSender struct {
	host     string
	from     string
	opts     []gomail.Option
	recorder Recorder
}

// NewSMTPSender returns a sender for cfg. recorder may be nil.
func NewSMTPSender(cfg config.SMTPConfig, recorder Recorder) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if cfg.From == "" {
		return nil, errors.New("sender address is required")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.Timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.User),
			gomail.WithPassword(cfg.Password),
		)
	}

	return &SMTPSender{host: cfg.Host, from: cfg.From, opts: opts, recorder: recorder}, nil
}

// SendPasswordReset mails link to the given address.
func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, link string) (err error) {
	defer func() {
		if s.recorder != nil {
			s.recorder.RecordExternalCall("mail", err)
		}
	}()

	msg, err := resetMessage(s.from, to, link)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.host, s.opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", s.host, err)
	}
	return nil
}

func resetMessage(from, to, link string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"Click the link below to reset your password: %s\n\nThis link will expire in %s.\n", link, time.Hour))
	return msg, nil
}

// Disabled is used when no SMTP relay is configured; every send fails.
type Disabled struct{}

// SendPasswordReset always returns ErrNotConfigured.
func (Disabled) SendPasswordReset(context.Context, string, string) error {
	return ErrNotConfigured
}
