// Package email implements the mail transport behind the delivery
// worker. SendGrid in production, console logging in development.
package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/tarqumi/agency-api/pkg/domain"
	"github.com/tarqumi/agency-api/pkg/logger"
)

// SendGridMailer sends mail through the SendGrid API.
type SendGridMailer struct {
	client *sendgrid.Client
	log    logger.Logger
}

// NewSendGridMailer creates a SendGrid-backed mailer.
func NewSendGridMailer(apiKey string, log logger.Logger) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		log:    log,
	}
}

// Send implements domain.Mailer. The context deadline bounds the API
// call; a timeout surfaces as an error and counts as a failed attempt.
func (m *SendGridMailer) Send(ctx context.Context, msg domain.Message) error {
	from := mail.NewEmail(msg.FromName, msg.FromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}

// ConsoleMailer logs mail instead of sending it; used in development
// when no SendGrid key is configured.
type ConsoleMailer struct {
	log logger.Logger
}

// NewConsoleMailer creates a console mailer.
func NewConsoleMailer(log logger.Logger) *ConsoleMailer {
	return &ConsoleMailer{log: log}
}

// Send implements domain.Mailer.
func (m *ConsoleMailer) Send(_ context.Context, msg domain.Message) error {
	m.log.Info("email (console mode, not sent)",
		"to", fmt.Sprintf("%s <%s>", msg.ToName, msg.ToEmail),
		"from", fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail),
		"subject", msg.Subject)
	return nil
}

// NewMailer picks the transport: SendGrid when a key is configured,
// console otherwise.
func NewMailer(sendGridAPIKey string, log logger.Logger) domain.Mailer {
	if sendGridAPIKey != "" {
		log.Info("email transport initialized", "provider", "sendgrid")
		return NewSendGridMailer(sendGridAPIKey, log)
	}
	log.Warn("email transport in console-only mode (set SENDGRID_API_KEY for production)")
	return NewConsoleMailer(log)
}
