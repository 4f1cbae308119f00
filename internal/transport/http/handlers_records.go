package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"carelock/internal/domain"
	"carelock/internal/policy"
	"carelock/internal/records"
	"carelock/pkg/requestcontext"
)

type recordRequest struct {
	PatientID  string `json:"patient_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	NationalID string `json:"national_id"`
	Diagnosis  string `json:"diagnosis"`
}

type recordResponse struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id"`
	InstitutionID string    `json:"institution_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	NationalID    string    `json:"national_id"`
	Diagnosis     string    `json:"diagnosis"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toRecordResponse(rec records.PatientRecord) recordResponse {
	return recordResponse{
		ID:            rec.ID,
		PatientID:     rec.PatientID,
		InstitutionID: rec.InstitutionID,
		FirstName:     rec.FirstName,
		LastName:      rec.LastName,
		NationalID:    rec.NationalID,
		Diagnosis:     rec.Diagnosis,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

// evaluateRecordAccess runs the ladder against a concrete record. The record
// is loaded (and decrypted) by the data-access layer first; denial means its
// contents never leave the handler.
func (h *Handler) evaluateRecordAccess(w http.ResponseWriter, r *http.Request, operation string, rec records.PatientRecord, action domain.Action) bool {
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

	decision, err := h.engine.Evaluate(ctx, policy.Request{
		Actor: actor,
		Resource: domain.ResourceContext{
			ResourceType:    "patient_record",
			ResourceID:      rec.ID,
			PatientID:       rec.PatientID,
			InstitutionID:   rec.InstitutionID,
			Classifications: requirements.Classifications,
			Action:          action,
		},
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

func (h *Handler) handleRecordCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if req.PatientID == "" || req.NationalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patient_id and national_id are required"})
		return
	}

	// A new record is born in the creating actor's institution.
	rec := records.PatientRecord{
		PatientID:     req.PatientID,
		InstitutionID: actor.InstitutionID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		NationalID:    req.NationalID,
		Diagnosis:     req.Diagnosis,
	}
	if !h.evaluateRecordAccess(w, r, "patients.update", rec, domain.ActionCreate) {
		return
	}

	created, err := h.records.Create(ctx, actor, rec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordResponse(created))
}

func (h *Handler) handleRecordGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.evaluateRecordAccess(w, r, "patients.read", rec, domain.ActionRead) {
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) handleRecordUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := requestcontext.ActorFrom(ctx)

	existing, err := h.records.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.evaluateRecordAccess(w, r, "patients.update", existing, domain.ActionUpdate) {
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	existing.FirstName = req.FirstName
	existing.LastName = req.LastName
	if req.NationalID != "" {
		existing.NationalID = req.NationalID
	}
	existing.Diagnosis = req.Diagnosis

	updated, err := h.records.Update(ctx, actor, existing)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(updated))
}

func (h *Handler) handleRecordDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := requestcontext.ActorFrom(ctx)

	existing, err := h.records.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.evaluateRecordAccess(w, r, "patients.delete", existing, domain.ActionDelete) {
		return
	}

	if err := h.records.Delete(ctx, actor, existing.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecordLookup resolves a record by national id through the
// deterministic hash.
func (h *Handler) handleRecordLookup(w http.ResponseWriter, r *http.Request) {
	nationalID := r.URL.Query().Get("national_id")
	if nationalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "national_id is required"})
		return
	}

	rec, err := h.records.FindByNationalID(r.Context(), nationalID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.evaluateRecordAccess(w, r, "patients.read", rec, domain.ActionRead) {
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}
