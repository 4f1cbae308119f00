package audit

import (
	"time"

	"carelock/internal/domain"
)

// After-hours window boundaries, local time. Access outside [open, close) is
// scored and flagged, not denied.
const (
	afterHoursOpen  = 6
	afterHoursClose = 22
)

// Score weights. The recorder derives risk independently of the policy
// engine's own level because some audited events never pass through policy
// evaluation (for example domain events from the data-access layer).
const (
	weightPHI           = 3
	weightPII           = 2
	weightDenied        = 5
	weightAfterHours    = 1
	weightDelete        = 3
	weightUpdate        = 1
	weightNoInstitution = 2
)

// riskScore accumulates the weighted signals of one event.
func riskScore(e domain.AuditEntry) int {
	score := 0
	if e.Classifications.Contains(domain.ClassificationPHI) {
		score += weightPHI
	}
	if e.Classifications.Contains(domain.ClassificationPII) {
		score += weightPII
	}
	if !e.Allowed {
		score += weightDenied
	}
	if isAfterHours(e.Timestamp) {
		score += weightAfterHours
	}
	switch e.Action {
	case domain.ActionDelete:
		score += weightDelete
	case domain.ActionUpdate:
		score += weightUpdate
	}
	if e.InstitutionID == "" {
		score += weightNoInstitution
	}
	return score
}

// DeriveRiskLevel maps an entry's cumulative score onto the coarse ordinal.
func DeriveRiskLevel(e domain.AuditEntry) domain.RiskLevel {
	switch score := riskScore(e); {
	case score >= 8:
		return domain.RiskCritical
	case score >= 5:
		return domain.RiskHigh
	case score >= 2:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func isAfterHours(t time.Time) bool {
	hour := t.Hour()
	return hour < afterHoursOpen || hour >= afterHoursClose
}
