package models

import (
	"time"

	"gorm.io/gorm"
)

// GrammarRecord is a stored grammar definition. The definition column
// holds the JSON rule list; uploads are validated through the builder
// so a bad grammar never reaches a parser.
type GrammarRecord struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Version     int            `gorm:"default:1;not null" json:"version"`
	StartSymbol string         `gorm:"not null" json:"start_symbol"`
	Definition  string         `gorm:"type:text;not null" json:"definition"`
	RuleCount   int            `json:"rule_count"`
	Enabled     bool           `gorm:"default:true" json:"enabled"`
	UploadedBy  string         `gorm:"index" json:"uploaded_by"`
}

// ParseLog records one parse request for history and threshold tuning
type ParseLog struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	RequestID          string    `gorm:"index" json:"request_id"`
	UserID             string    `gorm:"index" json:"user_id"`
	GrammarName        string    `gorm:"index;not null" json:"grammar_name"`
	TokenCount         int       `gorm:"not null" json:"token_count"`
	Outcome            string    `gorm:"not null;index" json:"outcome"`
	ParseCount         int       `json:"parse_count"`
	TopScore           float64   `json:"top_score"`
	TopRuleID          string    `json:"top_rule_id"`
	NeedsClarification bool      `json:"needs_clarification"`
	Truncated          bool      `json:"truncated"`
	TotalItems         int       `json:"total_items"`
	DurationMS         int       `gorm:"not null" json:"duration_ms"`
}

// Parse outcomes stored in ParseLog and returned on the wire
const (
	OutcomeSuccess       = "success"
	OutcomeParseFailure  = "parse_failure"
	OutcomeResourceLimit = "resource_limit"
)
