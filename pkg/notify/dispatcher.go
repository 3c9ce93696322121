// Package notify fans an accepted contact submission out into durable
// email jobs, one per configured recipient. Sending happens elsewhere;
// this package only creates queue rows.
package notify

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tarqumi/agency-api/pkg/logger"
	"github.com/tarqumi/agency-api/pkg/models"
)

// Password-reset mail gets fewer tries on a tighter schedule than
// contact notifications.
const passwordResetMaxAttempts = 3

// Dispatcher creates EmailQueue rows for submissions and system mail.
type Dispatcher struct {
	fromEmail   string
	fromName    string
	maxAttempts int
	log         logger.Logger
}

// New creates a dispatcher.
func New(fromEmail, fromName string, maxAttempts int, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		fromEmail:   fromEmail,
		fromName:    fromName,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Dispatch enqueues one delivery job per active immediate-preference
// recipient, on the caller's transaction so the rows commit together
// with the submission. No recipients configured is a silent no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, tx *gorm.DB, sub *models.ContactSubmission) (int, error) {
	var recipients []models.EmailRecipient
	err := tx.WithContext(ctx).
		Where("is_active = ?", true).
		Where("notification_preference = ?", models.NotifyImmediate).
		Find(&recipients).Error
	if err != nil {
		return 0, fmt.Errorf("failed loading recipients: %w", err)
	}

	if len(recipients) == 0 {
		d.log.Debug("no active immediate recipients configured, skipping notification",
			"submission_id", sub.ID)
		return 0, nil
	}

	subject := submissionSubject(sub)
	html := renderSubmissionHTML(sub)
	text := renderSubmissionText(sub)

	for _, r := range recipients {
		row := models.EmailQueue{
			ToEmail:             r.Email,
			ToName:              &r.Name,
			FromEmail:           &d.fromEmail,
			FromName:            &d.fromName,
			Subject:             subject,
			BodyHTML:            html,
			BodyText:            &text,
			Status:              models.EmailStatusPending,
			MaxAttempts:         d.maxAttempts,
			ContactSubmissionID: &sub.ID,
		}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			return 0, fmt.Errorf("failed enqueueing notification for %s: %w", r.Email, err)
		}
	}

	d.log.Info("contact notification enqueued",
		"submission_id", sub.ID,
		"recipients", len(recipients))

	return len(recipients), nil
}

// DispatchPasswordReset enqueues a password reset email with the short
// retry budget.
func (d *Dispatcher) DispatchPasswordReset(ctx context.Context, db *gorm.DB, toEmail, toName, resetURL string) (*models.EmailQueue, error) {
	html := renderPasswordResetHTML(toName, resetURL)
	text := renderPasswordResetText(toName, resetURL)

	row := models.EmailQueue{
		ToEmail:     toEmail,
		ToName:      &toName,
		FromEmail:   &d.fromEmail,
		FromName:    &d.fromName,
		Subject:     "Reset your Tarqumi password",
		BodyHTML:    html,
		BodyText:    &text,
		Status:      models.EmailStatusPending,
		MaxAttempts: passwordResetMaxAttempts,
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed enqueueing password reset mail: %w", err)
	}

	d.log.Info("password reset mail enqueued", "to", toEmail, "queue_id", row.ID)

	return &row, nil
}
