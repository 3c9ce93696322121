package models

import (
	"time"

	"gorm.io/gorm"
)

// Submission statuses
const (
	StatusNew      = "new"
	StatusRead     = "read"
	StatusReplied  = "replied"
	StatusArchived = "archived"
	StatusSpam     = "spam"
)

// Supported content languages
const (
	LanguageArabic  = "ar"
	LanguageEnglish = "en"
)

// statusTransitions defines the forward-only submission lifecycle.
// A submission never moves back toward "new"; spam is terminal.
var statusTransitions = map[string][]string{
	StatusNew:      {StatusRead, StatusReplied, StatusArchived, StatusSpam},
	StatusRead:     {StatusReplied, StatusArchived, StatusSpam},
	StatusReplied:  {StatusArchived, StatusSpam},
	StatusArchived: {StatusSpam},
	StatusSpam:     {},
}

// ContactSubmission represents a contact form submission
type ContactSubmission struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Email       string         `gorm:"not null;index" json:"email"`
	Phone       *string        `gorm:"size:20" json:"phone,omitempty"`
	Message     string         `gorm:"type:text;not null" json:"message"`
	Subject     *string        `json:"subject,omitempty"`
	Status      string         `gorm:"size:20;default:'new';index" json:"status"`
	Language    string         `gorm:"size:2;default:'en';index" json:"language"`
	IPAddress   string         `gorm:"size:45;index" json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	SubmittedAt time.Time      `gorm:"index" json:"submitted_at"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	ReadBy      *uint          `json:"read_by,omitempty"`
	AdminNotes  *string        `gorm:"type:text" json:"admin_notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	EmailQueue []EmailQueue `gorm:"foreignKey:ContactSubmissionID" json:"-"`
}

// TableName specifies the table name for ContactSubmission
func (ContactSubmission) TableName() string {
	return "contact_submissions"
}

// BeforeCreate hook sets the immutable submission timestamp
func (s *ContactSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now()
	}
	if s.Status == "" {
		s.Status = StatusNew
	}
	return nil
}

// CanTransitionTo reports whether the lifecycle graph allows moving
// from the submission's current status to the target status.
func (s *ContactSubmission) CanTransitionTo(target string) bool {
	for _, allowed := range statusTransitions[s.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ValidStatus reports whether the given string is a known submission status.
func ValidStatus(status string) bool {
	switch status {
	case StatusNew, StatusRead, StatusReplied, StatusArchived, StatusSpam:
		return true
	}
	return false
}
