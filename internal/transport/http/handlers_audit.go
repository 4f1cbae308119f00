package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"carelock/internal/audit"
	"carelock/internal/domain"
	"carelock/internal/policy"
	"carelock/pkg/requestcontext"
)

// guard runs the policy ladder for an administrative operation and writes
// the refusal when the actor is denied. Returns true when the caller may
// proceed.
func (h *Handler) guard(w http.ResponseWriter, r *http.Request, operation string, resource domain.ResourceContext) bool {
	ctx := r.Context()
	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return false
	}

	requirements, err := h.registry.Lookup(operation)
	if err != nil {
		h.writeError(w, r, err)
		return false
	}
	resource.Classifications = requirements.Classifications

	decision, err := h.engine.Evaluate(ctx, policy.Request{
		Actor:        actor,
		Resource:     resource,
		Requirements: requirements,
	})
	if err != nil {
		h.writeError(w, r, err)
		return false
	}
	if !decision.Allowed {
		writeDenied(w, decision.Reason)
		return false
	}
	return true
}

type auditEntryResponse struct {
	ID              string            `json:"id"`
	EventType       string            `json:"event_type"`
	ActorID         string            `json:"actor_id"`
	InstitutionID   string            `json:"institution_id,omitempty"`
	ResourceType    string            `json:"resource_type"`
	ResourceID      string            `json:"resource_id,omitempty"`
	Action          string            `json:"action"`
	Classifications []string          `json:"classifications"`
	Allowed         bool              `json:"allowed"`
	RiskLevel       string            `json:"risk_level"`
	ComplianceFlags []string          `json:"compliance_flags"`
	Timestamp       time.Time         `json:"timestamp"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	ClientIP        string            `json:"client_ip,omitempty"`
	UserAgent       string            `json:"user_agent,omitempty"`
}

func toEntryResponse(e domain.AuditEntry) auditEntryResponse {
	flags := make([]string, len(e.ComplianceFlags))
	for i, f := range e.ComplianceFlags {
		flags[i] = string(f)
	}
	return auditEntryResponse{
		ID:              e.ID,
		EventType:       string(e.EventType),
		ActorID:         e.ActorID,
		InstitutionID:   e.InstitutionID,
		ResourceType:    e.ResourceType,
		ResourceID:      e.ResourceID,
		Action:          string(e.Action),
		Classifications: e.Classifications.Strings(),
		Allowed:         e.Allowed,
		RiskLevel:       string(e.RiskLevel),
		ComplianceFlags: flags,
		Timestamp:       e.Timestamp,
		Metadata:        e.Metadata,
		ClientIP:        e.ClientIP,
		UserAgent:       e.UserAgent,
	}
}

// handleAuditSearch answers GET /audit/events with filterable history. The
// requested institution goes through the guard so the multi-tenancy rule
// applies to the trail itself, and an unscoped query is confined to the
// caller's own institution unless they are a platform admin.
func (h *Handler) handleAuditSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	institutionID := q.Get("institution_id")

	if !h.guard(w, r, "audit.search", domain.ResourceContext{
		ResourceType:  "audit_entry",
		InstitutionID: institutionID,
		Action:        domain.ActionRead,
	}) {
		return
	}

	if institutionID == "" {
		if actor, ok := requestcontext.ActorFrom(r.Context()); ok && !actor.HasRole(domain.RolePlatformAdmin) {
			institutionID = actor.InstitutionID
		}
	}

	filter := audit.Filter{
		ActorID:        q.Get("actor_id"),
		InstitutionID:  institutionID,
		EventType:      domain.EventType(q.Get("event_type")),
		Classification: domain.Classification(q.Get("classification")),
		RiskLevel:      domain.RiskLevel(q.Get("risk_level")),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be RFC 3339"})
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be RFC 3339"})
			return
		}
		filter.To = t
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	entries, err := h.recorder.Search(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

type actorActivityResponse struct {
	ActorID string `json:"actor_id"`
	Events  int    `json:"events"`
}

type complianceReportResponse struct {
	InstitutionID string                  `json:"institution_id"`
	From          time.Time               `json:"from"`
	To            time.Time               `json:"to"`
	TotalEvents   int                     `json:"total_events"`
	Violations    int                     `json:"violations"`
	PHIAccesses   int                     `json:"phi_accesses"`
	RiskHistogram map[string]int          `json:"risk_histogram"`
	TopActors     []actorActivityResponse `json:"top_actors"`
}

func toReportResponse(report *audit.ComplianceReport) complianceReportResponse {
	histogram := make(map[string]int, len(report.RiskHistogram))
	for level, count := range report.RiskHistogram {
		histogram[string(level)] = count
	}
	actors := make([]actorActivityResponse, len(report.TopActors))
	for i, a := range report.TopActors {
		actors[i] = actorActivityResponse{ActorID: a.ActorID, Events: a.Events}
	}
	return complianceReportResponse{
		InstitutionID: report.InstitutionID,
		From:          report.From,
		To:            report.To,
		TotalEvents:   report.TotalEvents,
		Violations:    report.Violations,
		PHIAccesses:   report.PHIAccesses,
		RiskHistogram: histogram,
		TopActors:     actors,
	}
}

// handleAuditReport answers GET /audit/report for one institution's window.
func (h *Handler) handleAuditReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	institutionID := q.Get("institution_id")
	if institutionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "institution_id is required"})
		return
	}

	if !h.guard(w, r, "audit.report", domain.ResourceContext{
		ResourceType:  "compliance_report",
		InstitutionID: institutionID,
		Action:        domain.ActionRead,
	}) {
		return
	}

	to := requestcontext.Now(r.Context())
	from := to.AddDate(0, -1, 0)
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be RFC 3339"})
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be RFC 3339"})
			return
		}
		to = t
	}

	report, err := h.recorder.Report(r.Context(), institutionID, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}
