package domain

import "time"

// EventType names the kind of audit-worthy event. Access decisions come from
// the policy engine; the record_* events come from the data-access layer.
type EventType string

const (
	EventAccessDecision EventType = "access_decision"
	EventRecordCreated  EventType = "record_created"
	EventRecordUpdated  EventType = "record_updated"
	EventRecordDeleted  EventType = "record_deleted"
)

// ComplianceFlag tags an audit entry with a specific regulatory concern.
type ComplianceFlag string

const (
	FlagUnauthorizedAccess ComplianceFlag = "unauthorized_access"
	FlagPHIAccess          ComplianceFlag = "phi_access"
	FlagExternalAccess     ComplianceFlag = "external_access"
	FlagDataDeletionPHI    ComplianceFlag = "data_deletion_phi"
	FlagAfterHoursAccess   ComplianceFlag = "after_hours_access"
)

// AuditEntry is the immutable record of one audit-worthy event. The store is
// append-only: entries are never updated or deleted, and the trail must
// survive deletion of the resource it references.
type AuditEntry struct {
	ID              string
	EventType       EventType
	ActorID         string
	InstitutionID   string // empty when the actor has no affiliation
	ResourceType    string
	ResourceID      string
	Action          Action
	Classifications Classifications
	Allowed         bool
	RiskLevel       RiskLevel
	ComplianceFlags []ComplianceFlag
	Timestamp       time.Time
	Metadata        map[string]string
	ClientIP        string
	UserAgent       string
}

// HasFlag reports whether the entry carries the given compliance flag.
func (e AuditEntry) HasFlag(flag ComplianceFlag) bool {
	for _, f := range e.ComplianceFlags {
		if f == flag {
			return true
		}
	}
	return false
}
