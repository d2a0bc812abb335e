package models

import (
	"sort"
	"time"
)

// SourceRecord is one row from an externally maintained patient roster,
// such as an exported spreadsheet. Loaded once per batch and never mutated.
type SourceRecord struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Phone string   `json:"phone"`
	Email string   `json:"email,omitempty"`
	Notes []string `json:"notes,omitempty"` // sanity flags attached at import time
}

// CandidateRecord is one contact from the external directory that source
// records are matched against. Read-only for the duration of a batch.
type CandidateRecord struct {
	ID    string `json:"id"` // directory identifier
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// MatchMethod identifies which matching tier produced a result.
type MatchMethod string

const (
	MethodExactPhone   MatchMethod = "exact-phone"
	MethodFuzzyName    MatchMethod = "fuzzy-name"
	MethodCombined     MatchMethod = "combined"
	MethodPhonePartial MatchMethod = "phone-partial"
	MethodManual       MatchMethod = "manual"
	MethodNone         MatchMethod = "none"
)

// ConfidenceBand classifies a numeric confidence for reporting and
// auto-accept decisions.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
	BandNone   ConfidenceBand = "none"
)

// BandFor returns the confidence band for a score.
// high >= 0.90, medium [0.75, 0.90), low (0, 0.75), none = 0.
func BandFor(confidence float64) ConfidenceBand {
	switch {
	case confidence >= 0.90:
		return BandHigh
	case confidence >= 0.75:
		return BandMedium
	case confidence > 0:
		return BandLow
	default:
		return BandNone
	}
}

// Detail keys used in MatchResult.Details.
const (
	DetailReason            = "reason"
	DetailNameScore         = "name_score"
	DetailMatchedFields     = "matched_fields"
	DetailNeedsReview       = "needs_review"
	DetailNeedsManualReview = "needs_manual_review"
	DetailSharedConflict    = "shared_candidate_conflict"
	DetailCoClaimants       = "co_claimants"
	DetailPhoneNote         = "phone_note"
)

// MatchResult is the outcome of matching one source record against the
// candidate pool. Created once per source record per batch run; a human
// override replaces it wholesale rather than patching fields.
type MatchResult struct {
	SourceID    string         `json:"source_id"`
	CandidateID string         `json:"candidate_id,omitempty"`
	Method      MatchMethod    `json:"method"`
	Confidence  float64        `json:"confidence"`
	Details     map[string]any `json:"details,omitempty"`
}

// Matched reports whether the result references a candidate.
func (r MatchResult) Matched() bool {
	return r.CandidateID != "" && r.Method != MethodNone
}

// Band returns the result's confidence band.
func (r MatchResult) Band() ConfidenceBand {
	return BandFor(r.Confidence)
}

// DetailBool reads a boolean flag out of the details map.
func (r MatchResult) DetailBool(key string) bool {
	v, ok := r.Details[key].(bool)
	return ok && v
}

// Conflict records one candidate claimed by more than one source record.
type Conflict struct {
	CandidateID string   `json:"candidate_id"`
	SourceIDs   []string `json:"source_ids"` // ascending
}

// BatchReport aggregates all match results from one reconcile run.
// Re-running with identical inputs produces an identical report.
type BatchReport struct {
	TotalSources    int                    `json:"total_sources"`
	TotalCandidates int                    `json:"total_candidates"`
	ByBand          map[ConfidenceBand]int `json:"by_band"`
	ByMethod        map[MatchMethod]int    `json:"by_method"`
	ReviewQueue     []string               `json:"review_queue"` // ascending source IDs
	Conflicts       []Conflict             `json:"conflicts"`    // ascending candidate IDs
}

// SortDeterministic puts the report's slices into their canonical order.
func (b *BatchReport) SortDeterministic() {
	sort.Strings(b.ReviewQueue)
	sort.Slice(b.Conflicts, func(i, j int) bool {
		return b.Conflicts[i].CandidateID < b.Conflicts[j].CandidateID
	})
	for i := range b.Conflicts {
		sort.Strings(b.Conflicts[i].SourceIDs)
	}
}

// ConsentStatus is the state of a patient's SMS outreach consent.
type ConsentStatus string

const (
	ConsentPending  ConsentStatus = "pending"
	ConsentGranted  ConsentStatus = "granted"
	ConsentDeclined ConsentStatus = "declined"
	ConsentRevoked  ConsentStatus = "revoked"
)

// Consent tracks one patient's SMS outreach consent.
type Consent struct {
	ID         string        `json:"id"`
	PatientID  string        `json:"patient_id"`
	Status     ConsentStatus `json:"status"`
	Source     string        `json:"source,omitempty"` // e.g. "paper-form", "sms-reply", "staff"
	RecordedAt time.Time     `json:"recorded_at"`
	ExpiresAt  *time.Time    `json:"expires_at,omitempty"`
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"` // reconcile.run, match.override, consent.change, roster.import
	Actor    string            `json:"actor,omitempty"`
	Outcome  string            `json:"outcome"` // success or failure
	Recorded time.Time         `json:"recorded"`
	Detail   map[string]string `json:"detail,omitempty"`
}
