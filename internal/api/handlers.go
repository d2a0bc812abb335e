package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/patientexplorer/patientexplorer/internal/audit"
	"github.com/patientexplorer/patientexplorer/internal/consent"
	"github.com/patientexplorer/patientexplorer/internal/matching"
	"github.com/patientexplorer/patientexplorer/internal/roster"
	"github.com/patientexplorer/patientexplorer/pkg/models"
)

// ContactLister fetches the candidate pool from the contact directory.
type ContactLister interface {
	ListContacts(ctx context.Context) ([]models.CandidateRecord, error)
}

// Run is one completed reconcile run held for review.
type Run struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Report    *models.BatchReport  `json:"report"`
	Results   []models.MatchResult `json:"-"`
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	reconciler *matching.Reconciler
	consent    *consent.Manager
	audit      *audit.Logger
	directory  ContactLister

	// In-memory run storage; the surrounding application persists what
	// it needs from the report.
	runs map[string]*Run
	mu   sync.RWMutex
}

// NewHandlers creates new handlers.
func NewHandlers(reconciler *matching.Reconciler, consentMgr *consent.Manager, auditLog *audit.Logger, directory ContactLister) *Handlers {
	return &Handlers{
		reconciler: reconciler,
		consent:    consentMgr,
		audit:      auditLog,
		directory:  directory,
		runs:       make(map[string]*Run),
	}
}

// HealthCheck handles health check requests.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "patientexplorer",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ReconcileRequest is the payload for a reconcile run. Candidates may be
// omitted when a contact directory is configured.
type ReconcileRequest struct {
	Sources    []models.SourceRecord    `json:"sources"`
	Candidates []models.CandidateRecord `json:"candidates,omitempty"`
}

// RunReconcile runs the matcher over a source list and stores the result.
func (h *Handlers) RunReconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	candidates := req.Candidates
	if len(candidates) == 0 && h.directory != nil {
		var err error
		candidates, err = h.directory.ListContacts(r.Context())
		if err != nil {
			respondError(w, http.StatusBadGateway, "directory fetch failed: "+err.Error())
			return
		}
	}

	runID := uuid.New().String()
	report, results, err := h.reconciler.Reconcile(r.Context(), req.Sources, candidates)
	h.audit.LogReconcileRun(actor(r), runID, report, err)
	if err != nil {
		if errors.Is(err, matching.ErrEmptyCandidatePool) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run := &Run{
		ID:        runID,
		CreatedAt: time.Now().UTC(),
		Report:    report,
		Results:   results,
	}
	h.mu.Lock()
	h.runs[run.ID] = run
	h.mu.Unlock()

	respond(w, http.StatusCreated, run)
}

// ListRuns lists stored runs, newest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	runs := make([]*Run, 0, len(h.runs))
	for _, run := range h.runs {
		runs = append(runs, run)
	}
	h.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	respond(w, http.StatusOK, runs)
}

// GetRun returns one run's report.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.run(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respond(w, http.StatusOK, run)
}

// GetRunResults returns the full match result list for a run.
func (h *Handlers) GetRunResults(w http.ResponseWriter, r *http.Request) {
	run, ok := h.run(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respond(w, http.StatusOK, run.Results)
}

// GetReviewQueue returns the manual-review queue for a run.
func (h *Handlers) GetReviewQueue(w http.ResponseWriter, r *http.Request) {
	run, ok := h.run(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respond(w, http.StatusOK, run.Report.ReviewQueue)
}

// OverrideRequest is a manual match decision for one source record.
type OverrideRequest struct {
	SourceID    string `json:"source_id"`
	CandidateID string `json:"candidate_id"`
}

// OverrideMatch replaces one source's result with a manual decision.
func (h *Handlers) OverrideMatch(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mu.Lock()
	run, ok := h.runs[chi.URLParam(r, "id")]
	if !ok {
		h.mu.Unlock()
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	result, err := matching.ApplyOverride(run.Results, req.SourceID, req.CandidateID, actor(r))
	h.mu.Unlock()
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.audit.LogOverride(actor(r), run.ID, req.SourceID, req.CandidateID)
	respond(w, http.StatusOK, result)
}

// ImportRoster parses a CSV roster body into source records.
func (h *Handlers) ImportRoster(w http.ResponseWriter, r *http.Request) {
	records, err := roster.Load(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flagged := 0
	for _, rec := range records {
		if len(rec.Notes) > 0 {
			flagged++
		}
	}
	h.audit.LogRosterImport(actor(r), len(records), flagged)

	respond(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   len(records),
		"flagged": flagged,
	})
}

// ConsentRequest records a consent decision for a patient.
type ConsentRequest struct {
	PatientID string               `json:"patient_id"`
	Status    models.ConsentStatus `json:"status"`
	Source    string               `json:"source"`
}

// RecordConsent records a consent decision.
func (h *Handlers) RecordConsent(w http.ResponseWriter, r *http.Request) {
	var req ConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientID == "" {
		respondError(w, http.StatusBadRequest, "patient_id is required")
		return
	}

	record, err := h.consent.Record(req.PatientID, req.Status, req.Source)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.audit.LogConsentChange(actor(r), req.PatientID, req.Status, req.Source)
	respond(w, http.StatusCreated, record)
}

// GetConsent returns a patient's consent record.
func (h *Handlers) GetConsent(w http.ResponseWriter, r *http.Request) {
	record, ok := h.consent.Get(chi.URLParam(r, "patientID"))
	if !ok {
		respondError(w, http.StatusNotFound, "no consent on file")
		return
	}
	respond(w, http.StatusOK, record)
}

// RevokeConsent revokes a patient's consent.
func (h *Handlers) RevokeConsent(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if err := h.consent.Revoke(patientID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.audit.LogConsentChange(actor(r), patientID, models.ConsentRevoked, "staff")
	respond(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// InboundKeywordRequest carries an inbound SMS reply body.
type InboundKeywordRequest struct {
	PatientID string `json:"patient_id"`
	Body      string `json:"body"`
}

// InboundConsentKeyword applies an inbound SMS keyword (STOP, YES, ...)
// to a patient's consent.
func (h *Handlers) InboundConsentKeyword(w http.ResponseWriter, r *http.Request) {
	var req InboundKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, matched := h.consent.HandleInboundKeyword(req.PatientID, req.Body)
	if !matched {
		respond(w, http.StatusOK, map[string]any{"matched": false})
		return
	}
	h.audit.LogConsentChange("sms", req.PatientID, record.Status, "sms-reply")
	respond(w, http.StatusOK, map[string]any{"matched": true, "consent": record})
}

// GetConsentStats returns consent statistics.
func (h *Handlers) GetConsentStats(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.consent.GetStats())
}

// ListAuditEvents lists audit events, optionally filtered.
func (h *Handlers) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	filter := audit.EventFilter{
		Type:    r.URL.Query().Get("type"),
		Actor:   r.URL.Query().Get("actor"),
		Outcome: r.URL.Query().Get("outcome"),
	}
	respond(w, http.StatusOK, h.audit.GetEvents(filter))
}

// GetAuditEvent returns one audit event.
func (h *Handlers) GetAuditEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := h.audit.GetEvent(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "event not found")
		return
	}
	respond(w, http.StatusOK, event)
}

// GetAuditStats returns audit statistics.
func (h *Handlers) GetAuditStats(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.audit.GetStats())
}

func (h *Handlers) run(id string) (*Run, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	run, ok := h.runs[id]
	return run, ok
}

func actor(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}
