package audit

import (
	"context"
	"time"

	"carelock/internal/domain"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks carelock/internal/audit Store,Notifier

// Store is the durable, append-only audit sink. Entries are single-row
// inserts; concurrent writers interleave without coordination and nothing is
// ever updated in place.
type Store interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	Search(ctx context.Context, filter Filter) ([]domain.AuditEntry, error)
}

// Filter narrows an audit search. Zero-valued fields match everything.
type Filter struct {
	ActorID        string
	InstitutionID  string
	EventType      domain.EventType
	Classification domain.Classification
	RiskLevel      domain.RiskLevel
	From           time.Time
	To             time.Time
	Limit          int
}

// Matches reports whether the entry satisfies every set field of the filter.
// In-memory stores and report aggregation share this logic so the postgres
// store's WHERE clause stays the only other matching implementation.
func (f Filter) Matches(entry domain.AuditEntry) bool {
	if f.ActorID != "" && entry.ActorID != f.ActorID {
		return false
	}
	if f.InstitutionID != "" && entry.InstitutionID != f.InstitutionID {
		return false
	}
	if f.EventType != "" && entry.EventType != f.EventType {
		return false
	}
	if f.Classification != "" && !entry.Classifications.Contains(f.Classification) {
		return false
	}
	if f.RiskLevel != "" && entry.RiskLevel != f.RiskLevel {
		return false
	}
	if !f.From.IsZero() && entry.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && entry.Timestamp.After(f.To) {
		return false
	}
	return true
}
