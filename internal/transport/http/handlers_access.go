package httptransport

import (
	"encoding/json"
	"net/http"

	"carelock/internal/domain"
	"carelock/internal/policy"
	"carelock/pkg/requestcontext"
)

// evaluateRequest is the wire form of one access-control question.
type evaluateRequest struct {
	Operation     string `json:"operation"`
	ResourceType  string `json:"resource_type"`
	ResourceID    string `json:"resource_id,omitempty"`
	PatientID     string `json:"patient_id,omitempty"`
	InstitutionID string `json:"institution_id,omitempty"`
	Action        string `json:"action"`
}

type evaluateResponse struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	RiskLevel string `json:"risk_level"`
}

// handleEvaluate answers POST /access/evaluate. A denial is a 200 with
// allowed=false: the decision itself is the resource here.
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if req.Operation == "" || req.ResourceType == "" || req.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "operation, resource_type and action are required"})
		return
	}

	requirements, err := h.registry.Lookup(req.Operation)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown operation"})
		return
	}

	decision, err := h.engine.Evaluate(ctx, policy.Request{
		Actor: actor,
		Resource: domain.ResourceContext{
			ResourceType:    req.ResourceType,
			ResourceID:      req.ResourceID,
			PatientID:       req.PatientID,
			InstitutionID:   req.InstitutionID,
			Classifications: requirements.Classifications,
			Action:          domain.Action(req.Action),
		},
		Requirements: requirements,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		Allowed:   decision.Allowed,
		Reason:    decision.Reason,
		RiskLevel: string(decision.RiskLevel),
	})
}
