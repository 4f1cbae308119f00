package domain

// Action is the HTTP-like verb describing what the actor wants to do.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ResourceContext describes the resource an evaluation targets. It is derived
// per request from route parameters and the request body, and never persisted.
type ResourceContext struct {
	ResourceType    string
	ResourceID      string
	PatientID       string
	InstitutionID   string
	Classifications Classifications
	Action          Action
}

// PolicyDecision is the outcome of a single evaluation. It is produced once
// and never mutated; a denial is data, not an error.
type PolicyDecision struct {
	Allowed   bool
	Reason    string
	RiskLevel RiskLevel
}

// Allow is the decision for a request that passed every rule.
func Allow() PolicyDecision {
	return PolicyDecision{Allowed: true, RiskLevel: RiskLow}
}

// Deny builds a denial with the failing rule's reason and risk.
func Deny(reason string, risk RiskLevel) PolicyDecision {
	return PolicyDecision{Allowed: false, Reason: reason, RiskLevel: risk}
}
