package triage

import (
	"time"

	"github.com/aulianza/mindsignal/internal/domain/analysis"
)

// ID tipe untuk TriageEntry
type EntryID string

// Status enum
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// ValidStatus reports whether s is a known status label.
func ValidStatus(s Status) bool {
	return s == StatusOpen || s == StatusAcknowledged || s == StatusResolved
}

// Active means the entry still holds the subject's open window: subsequent
// High/Critical results update it instead of creating a duplicate.
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusAcknowledged
}

// Aggregate Root: TriageEntry, one queued case awaiting human review.
type Entry struct {
	ID         EntryID                      `json:"id"`
	TenantID   string                       `json:"tenant_id"`
	SubjectID  string                       `json:"subject_id"`
	Assessment analysis.CompositeAssessment `json:"assessment"`
	Tier       analysis.RiskTier            `json:"-"`
	TierLabel  string                       `json:"tier"`
	Status     Status                       `json:"status"`
	CreatedAt  time.Time                    `json:"created_at"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}
