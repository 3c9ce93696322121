package models

import "time"

// Email queue statuses
const (
	EmailStatusPending    = "pending"
	EmailStatusProcessing = "processing"
	EmailStatusSent       = "sent"
	EmailStatusFailed     = "failed"
)

// Recipient notification preferences
const (
	NotifyImmediate = "immediate"
	NotifyDigest    = "digest"
)

// EmailQueue is a durable outbound email job. Rows are created by the
// notification dispatcher and mutated only by the delivery worker; they
// are never deleted and serve as the delivery audit trail.
type EmailQueue struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	ToEmail             string     `gorm:"not null" json:"to_email"`
	ToName              *string    `json:"to_name,omitempty"`
	FromEmail           *string    `json:"from_email,omitempty"`
	FromName            *string    `json:"from_name,omitempty"`
	Subject             string     `gorm:"not null" json:"subject"`
	BodyHTML            string     `gorm:"type:text;not null" json:"body_html"`
	BodyText            *string    `gorm:"type:text" json:"body_text,omitempty"`
	Attachments         *string    `gorm:"type:text" json:"attachments,omitempty"`
	Status              string     `gorm:"size:20;default:'pending';index:idx_email_queue_ready" json:"status"`
	Attempts            int        `gorm:"default:0" json:"attempts"`
	MaxAttempts         int        `gorm:"default:5" json:"max_attempts"`
	ScheduledAt         *time.Time `gorm:"index:idx_email_queue_ready" json:"scheduled_at,omitempty"`
	SentAt              *time.Time `json:"sent_at,omitempty"`
	FailedAt            *time.Time `json:"failed_at,omitempty"`
	ErrorMessage        *string    `gorm:"type:text" json:"error_message,omitempty"`
	ContactSubmissionID *uint      `gorm:"index" json:"contact_submission_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TableName specifies the table name for EmailQueue
func (EmailQueue) TableName() string {
	return "email_queue"
}

// CanRetry reports whether the row has delivery attempts left.
func (q *EmailQueue) CanRetry() bool {
	return q.Attempts < q.MaxAttempts
}

// ReadyToSend reports whether the worker may pick this row up: pending,
// not deferred into the future, attempts not exhausted.
func (q *EmailQueue) ReadyToSend(now time.Time) bool {
	if q.Status != EmailStatusPending {
		return false
	}
	if q.ScheduledAt != nil && q.ScheduledAt.After(now) {
		return false
	}
	return q.CanRetry()
}

// EmailLog is an append-only record of one delivery attempt's terminal
// outcome. Rows are written once and never mutated.
type EmailLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ToEmail      string    `gorm:"not null;index" json:"to_email"`
	Subject      string    `json:"subject"`
	Status       string    `gorm:"size:20;default:'sent';index" json:"status"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	SentAt       time.Time `gorm:"index" json:"sent_at"`
	EmailQueueID *uint     `gorm:"index" json:"email_queue_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for EmailLog
func (EmailLog) TableName() string {
	return "email_logs"
}

// EmailRecipient configures who receives contact form notifications.
type EmailRecipient struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	Email                  string    `gorm:"not null;uniqueIndex" json:"email"`
	Name                   string    `json:"name"`
	IsPrimary              bool      `gorm:"default:false" json:"is_primary"`
	IsActive               bool      `gorm:"default:true;index" json:"is_active"`
	NotificationPreference string    `gorm:"size:20;default:'immediate'" json:"notification_preference"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TableName specifies the table name for EmailRecipient
func (EmailRecipient) TableName() string {
	return "email_recipients"
}
