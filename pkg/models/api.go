package models

// SubmitContactRequest represents the public contact form payload
type SubmitContactRequest struct {
	Name            string  `json:"name" validate:"required,min=2,max=100"`
	Email           string  `json:"email" validate:"required,email,max=255"`
	Phone           *string `json:"phone" validate:"omitempty,max=20"`
	Subject         *string `json:"subject" validate:"omitempty,max=200"`
	Message         string  `json:"message" validate:"required,min=10,max=5000"`
	Language        string  `json:"language" validate:"required,oneof=ar en"`
	PrivacyAccepted bool    `json:"privacy_accepted" validate:"required,eq=true"`
}

// SubmissionFilters represents list/search filters for the moderation surface
type SubmissionFilters struct {
	Status      string `query:"status" validate:"omitempty,oneof=new read replied archived spam"`
	Search      string `query:"search" validate:"omitempty,max=200"`
	DateFrom    string `query:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo      string `query:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Language    string `query:"language" validate:"omitempty,oneof=ar en"`
	IncludeSpam bool   `query:"include_spam"`
	Page        int    `query:"page" validate:"omitempty,min=1"`
	PerPage     int    `query:"per_page" validate:"omitempty,min=1,max=100"`
}

// UpdateStatusRequest represents a moderation status update
type UpdateStatusRequest struct {
	Status     string  `json:"status" validate:"required,oneof=new read replied archived spam"`
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=1000"`
}

// BulkStatusRequest represents a bulk status update
type BulkStatusRequest struct {
	IDs    []uint `json:"ids" validate:"required,min=1,dive,min=1"`
	Status string `json:"status" validate:"required,oneof=new read replied archived spam"`
}

// BulkDeleteRequest represents a bulk delete
type BulkDeleteRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,dive,min=1"`
}

// PaginationMeta carries list pagination information
type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

// SubmissionList is a paginated moderation listing
type SubmissionList struct {
	Submissions []ContactSubmission `json:"submissions"`
	Meta        PaginationMeta      `json:"meta"`
}

// SubmissionStatistics aggregates submission counts for the dashboard
type SubmissionStatistics struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	Today         int64            `json:"today"`
	ThisWeek      int64            `json:"this_week"`
	ThisMonth     int64            `json:"this_month"`
	PendingEmails int64            `json:"pending_emails"`
}

// APIResponse is the common success envelope
type APIResponse struct {
	Success bool            `json:"success"`
	Data    interface{}     `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Meta    *PaginationMeta `json:"meta,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
