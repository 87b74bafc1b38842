package notify

import (
	"context"
	"fmt"

	"github.com/vesaa/sysadvisor/internal/config"
	apperrors "github.com/vesaa/sysadvisor/internal/errors"
	"github.com/wneessen/go-mail"
)

// Mailer delivers one plain-text message.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPMailer sends through an authenticated STARTTLS relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	to       string
}

// NewSMTPMailer validates the mail settings in cfg. Missing credentials are
// a configuration error raised here, before any alert is due.
func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	if err := cfg.RequireMail(); err != nil {
		return nil, err
	}
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.EmailUsername,
		password: cfg.EmailPassword,
		to:       cfg.EmailTo,
	}, nil
}

// Message builds the message without sending it.
func (m *SMTPMailer) Message(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.username); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, "invalid sender address", err)
	}
	if err := msg.To(m.to); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, "invalid recipient address", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// Send delivers subject and body to the configured recipient.
func (m *SMTPMailer) Send(ctx context.Context, subject, body string) error {
	msg, err := m.Message(subject, body)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.username),
		mail.WithPassword(m.password),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeTransport, "creating mail client", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeTransport, fmt.Sprintf("sending mail via %s:%d", m.host, m.port), err)
	}
	return nil
}
