// Package notification sends the waitlist welcome email over SMTP.
package notification

import (
	"context"
	"log/slog"

	"clevermock-web/internal/config"
	"clevermock-web/internal/domain"
	"clevermock-web/internal/observability"

	gomail "gopkg.in/mail.v2"
)

const (
	senderName     = "CleverMock"
	welcomeSubject = "Welcome to CleverMock Waitlist!"
)

const welcomeHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #333;">Welcome to CleverMock!</h1>
  <p>Hi there,</p>
  <p>Thanks for joining the waitlist for <strong>CleverMock</strong>. We're excited to have you on board!</p>
  <p>We are working hard to bring you the best AI-powered mock interview experience. We'll notify you as soon as your spot opens up.</p>
  <p>In the meantime, stay tuned for updates.</p>
  <br>
  <p>Best regards,</p>
  <p>The CleverMock Team</p>
</div>`

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends the waitlist welcome email. It also serves as the inline
// domain.WaitlistNotifier when no message broker is configured.
type Mailer struct {
	cfg    config.EmailConfig
	sender Sender
}

var _ domain.WaitlistNotifier = (*Mailer)(nil)

// NewMailer creates a mailer for the SMTP account in cfg.
func NewMailer(cfg config.EmailConfig) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	dialer.SSL = cfg.Secure
	return &Mailer{cfg: cfg, sender: dialer}
}

// NewMailerWithSender creates a mailer that hands messages to sender.
func NewMailerWithSender(cfg config.EmailConfig, sender Sender) *Mailer {
	return &Mailer{cfg: cfg, sender: sender}
}

// SendWelcome emails the welcome message to email. Without SMTP credentials
// it logs a warning and returns nil.
func (m *Mailer) SendWelcome(ctx context.Context, email string) error {
	log := observability.FromContext(ctx)

	if !m.cfg.Enabled() {
		observability.ConfirmationEmailsTotal.WithLabelValues("skipped").Inc()
		log.Warn("email credentials not configured, skipping confirmation email")
		return nil
	}

	if err := m.sender.DialAndSend(m.welcomeMessage(email)); err != nil {
		observability.ConfirmationEmailsTotal.WithLabelValues("failure").Inc()
		log.Error("confirmation_email_failed", slog.String("reason", err.Error()))
		return err
	}

	observability.ConfirmationEmailsTotal.WithLabelValues("success").Inc()
	log.Info("confirmation_email_sent")
	return nil
}

// NotifyJoined sends the welcome email synchronously.
func (m *Mailer) NotifyJoined(ctx context.Context, entry *domain.WaitlistEntry) error {
	return m.SendWelcome(ctx, entry.Email)
}

func (m *Mailer) welcomeMessage(to string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.User, senderName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", welcomeSubject)
	msg.SetBody("text/html", welcomeHTML)
	return msg
}
