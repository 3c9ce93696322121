package models

import "time"

// Spam pattern kinds
const (
	PatternKeyword = "keyword"
	PatternEmail   = "email"
	PatternURL     = "url"
	PatternIP      = "ip"
)

// Block reasons
const (
	BlockReasonSpam   = "spam"
	BlockReasonAbuse  = "abuse"
	BlockReasonManual = "manual"
)

// SpamPattern is a weighted rule evaluated against incoming submissions.
// Patterns are administered out of band; the scorer only reads them.
type SpamPattern struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Pattern     string    `gorm:"not null" json:"pattern"`
	Type        string    `gorm:"size:20;default:'keyword';index" json:"type"`
	Weight      int       `gorm:"default:1" json:"weight"`
	IsActive    bool      `gorm:"default:true;index" json:"is_active"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for SpamPattern
func (SpamPattern) TableName() string {
	return "spam_patterns"
}

// BlockedIp tracks repeat spam offenders. A row starts out as a flag
// (spam counter only); once the counter crosses the auto-block threshold
// the row gains blocked_at/expires_at and starts rejecting submissions.
type BlockedIp struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	IPAddress string     `gorm:"size:45;uniqueIndex;not null" json:"ip_address"`
	Reason    string     `gorm:"size:20;default:'spam'" json:"reason"`
	SpamCount int        `gorm:"default:0" json:"spam_count"`
	BlockedAt *time.Time `gorm:"index" json:"blocked_at,omitempty"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	Notes     *string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for BlockedIp
func (BlockedIp) TableName() string {
	return "blocked_ips"
}

// IsActive reports whether the row is currently blocking. A flagged row
// that never crossed the threshold (blocked_at unset) does not block.
func (b *BlockedIp) IsActive(now time.Time) bool {
	if b.BlockedAt == nil {
		return false
	}
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}
