// Package policy decides whether an authenticated actor may perform an
// action on a medical resource.
//
// The rules are a fixed, ordered ladder: the first failing rule determines
// the reported reason and risk, and institution isolation is deliberately
// checked before data sensitivity. Every evaluation emits exactly one audit
// entry, and the decision is only returned once that entry is durably
// recorded.
package policy

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"carelock/internal/audit"
	"carelock/internal/domain"
	"carelock/pkg/requestcontext"
)

// Business-hours window for restricted roles, local time.
const (
	businessHoursOpen  = 8
	businessHoursClose = 18
)

var tracer = otel.Tracer("carelock/policy")

// Recorder is the audit dependency of the engine.
type Recorder interface {
	Record(ctx context.Context, event audit.Event) (domain.AuditEntry, error)
}

// Engine applies the rule ladder. It holds no request-to-request state and
// is safe for arbitrarily many concurrent callers.
type Engine struct {
	recorder Recorder
	metrics  *Metrics
}

// NewEngine builds the engine over its audit recorder.
func NewEngine(recorder Recorder, metrics *Metrics) *Engine {
	return &Engine{recorder: recorder, metrics: metrics}
}

// Request bundles one evaluation's inputs.
type Request struct {
	Actor        domain.Actor
	Resource     domain.ResourceContext
	Requirements Requirements
}

// Evaluate runs the rule ladder and records the outcome. A denial is data,
// not an error; the only error path is a failed audit write, in which case
// no decision is returned.
func (e *Engine) Evaluate(ctx context.Context, req Request) (domain.PolicyDecision, error) {
	ctx, span := tracer.Start(ctx, "policy.Evaluate", trace.WithAttributes(
		attribute.String("resource.type", req.Resource.ResourceType),
		attribute.String("action", string(req.Resource.Action)),
	))
	defer span.End()

	start := time.Now()
	decision := e.applyRules(ctx, req)
	e.metrics.ObserveEvaluateLatency(time.Since(start))
	e.metrics.IncDecision(decision.Allowed, string(decision.RiskLevel))
	span.SetAttributes(
		attribute.Bool("decision.allowed", decision.Allowed),
		attribute.String("decision.risk_level", string(decision.RiskLevel)),
	)

	if err := e.record(ctx, req, decision); err != nil {
		return domain.PolicyDecision{}, err
	}
	return decision, nil
}

// applyRules walks the ladder in its contractual order, short-circuiting on
// the first failure.
func (e *Engine) applyRules(ctx context.Context, req Request) domain.PolicyDecision {
	actor, resource := req.Actor, req.Resource

	// Rule 1: the actor account must be active.
	if actor.Status != domain.ActorActive {
		return domain.Deny("actor account is not active", domain.RiskHigh)
	}

	// Rule 2: the operation's declared roles, when any.
	if len(req.Requirements.RequiredRoles) > 0 && !actor.HasAnyRole(req.Requirements.RequiredRoles...) {
		return domain.Deny("actor lacks a required role for this operation", domain.RiskMedium)
	}

	// Rule 3: institution-scoped operations need an affiliation.
	if req.Requirements.InstitutionRequired && actor.InstitutionID == "" {
		return domain.Deny("operation requires an institution affiliation", domain.RiskHigh)
	}

	// Rule 4: multi-tenancy isolation. Platform admins cross institutions;
	// nobody else does.
	if resource.InstitutionID != "" && resource.InstitutionID != actor.InstitutionID &&
		!actor.HasRole(domain.RolePlatformAdmin) {
		return domain.Deny(
			fmt.Sprintf("cross-institution access to %s denied", resource.InstitutionID),
			domain.RiskCritical,
		)
	}

	// Rule 5: PHI is gated on clinical roles and, when the resource is
	// institution-bound, on a matching affiliation.
	if resource.Classifications.Contains(domain.ClassificationPHI) {
		if !actor.HasClinicalRole() {
			return domain.Deny("protected health data requires a clinical role", domain.RiskCritical)
		}
		if resource.InstitutionID != "" && resource.InstitutionID != actor.InstitutionID {
			return domain.Deny("protected health data is bound to another institution", domain.RiskCritical)
		}
	}

	// Rule 6: business-hours-only roles outside the weekday window.
	if restrictedToBusinessHours(actor) && !withinBusinessHours(requestcontext.Now(ctx)) {
		return domain.Deny("role is restricted to business hours", domain.RiskMedium)
	}

	// Rule 7: patients only reach their own records.
	if actor.IsPatientOnly() && resource.PatientID != "" && resource.PatientID != actor.ID {
		return domain.Deny("patients may only access their own records", domain.RiskCritical)
	}

	return domain.Allow()
}

// record emits the single audit entry for this evaluation, synchronously.
func (e *Engine) record(ctx context.Context, req Request, decision domain.PolicyDecision) error {
	_, err := e.recorder.Record(ctx, audit.Event{
		EventType:       domain.EventAccessDecision,
		Actor:           req.Actor,
		ResourceType:    req.Resource.ResourceType,
		ResourceID:      req.Resource.ResourceID,
		Action:          req.Resource.Action,
		Classifications: req.Resource.Classifications,
		Allowed:         decision.Allowed,
		Reason:          decision.Reason,
		Metadata: map[string]string{
			"decision_risk": string(decision.RiskLevel),
		},
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
	if err != nil {
		return fmt.Errorf("policy: audit decision: %w", err)
	}
	return nil
}

// restrictedToBusinessHours reports whether every role the actor holds is
// hours-restricted. An actor who also holds an unrestricted role keeps that
// role's access pattern.
func restrictedToBusinessHours(actor domain.Actor) bool {
	if len(actor.Roles) == 0 {
		return false
	}
	for _, r := range actor.Roles {
		if !r.BusinessHoursOnly() {
			return false
		}
	}
	return true
}

func withinBusinessHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour := t.Hour()
	return hour >= businessHoursOpen && hour < businessHoursClose
}
