package matching

import (
	"sort"

	"github.com/patientexplorer/patientexplorer/internal/normalize"
	"github.com/patientexplorer/patientexplorer/pkg/models"
)

// Config holds the matching thresholds. Immutable for the duration of a
// run; threshold changes are per-call, never global mutation.
type Config struct {
	// Region applied when a phone number lacks an explicit country code.
	DefaultRegion string `json:"default_region"`

	// Fuzzy-name score (0-100) at or above which a name match alone may
	// be accepted.
	NameHighThreshold int `json:"name_high_threshold"`

	// Lower bound for a name match credible enough to corroborate with
	// partial phone evidence.
	NameMediumThreshold int `json:"name_medium_threshold"`

	// Confidence at or above which a result needs no manual review,
	// absent conflicts.
	AutoAcceptConfidence float64 `json:"auto_accept_confidence"`

	// Multiplier applied to a name-only confidence when the source phone
	// failed to normalize. Tunable, not a business rule.
	PhonelessNamePenalty float64 `json:"phoneless_name_penalty"`
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() Config {
	return Config{
		DefaultRegion:        "US",
		NameHighThreshold:    90,
		NameMediumThreshold:  75,
		AutoAcceptConfidence: 0.90,
		PhonelessNamePenalty: 0.8,
	}
}

// candidate is a directory record with its normalized forms, computed
// once per batch and reused for every source lookup.
type candidate struct {
	rec   models.CandidateRecord
	phone normalize.PhoneNumber
	name  normalize.PersonName
}

// Matcher matches source records against a fixed candidate pool using a
// tiered strategy: exact phone, fuzzy name (with a combined-evidence
// boost), partial phone, none. Safe for concurrent use: the pool is
// read-only after construction.
type Matcher struct {
	cfg  Config
	pool []candidate
}

// NewMatcher normalizes the candidate pool once and returns a matcher.
// Candidates are held in ascending directory-ID order so that score ties
// always resolve to the lowest candidate identifier.
func NewMatcher(cfg Config, candidates []models.CandidateRecord) *Matcher {
	pool := make([]candidate, 0, len(candidates))
	for _, rec := range candidates {
		pool = append(pool, candidate{
			rec:   rec,
			phone: normalize.Phone(rec.Phone, cfg.DefaultRegion),
			name:  normalize.Name(rec.Name),
		})
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].rec.ID < pool[j].rec.ID })
	return &Matcher{cfg: cfg, pool: pool}
}

// PoolSize returns the number of candidates in the pool.
func (m *Matcher) PoolSize() int { return len(m.pool) }

// Match finds the best candidate for one source record. Pure and
// deterministic: identical input always yields an identical result.
func (m *Matcher) Match(source models.SourceRecord) models.MatchResult {
	srcPhone := normalize.Phone(source.Phone, m.cfg.DefaultRegion)
	srcName := normalize.Name(source.Name)

	if !srcPhone.Valid() && srcName.Empty() {
		return models.MatchResult{
			SourceID:   source.ID,
			Method:     models.MethodNone,
			Confidence: 0,
			Details: map[string]any{
				models.DetailReason:            "no usable identifiers",
				models.DetailNeedsManualReview: true,
			},
		}
	}

	// Tier 1: exact canonical phone equality. The only tier allowed to
	// short-circuit everything else.
	if srcPhone.Valid() {
		for _, c := range m.pool {
			if srcPhone.Equal(c.phone) {
				return m.result(source, c.rec.ID, models.MethodExactPhone, 0.99, map[string]any{
					models.DetailMatchedFields: []string{"phone"},
				}, srcPhone)
			}
		}
	}

	// Tier 2: fuzzy name against every candidate; best score wins, ties
	// broken by candidate ID (the pool is sorted ascending).
	if !srcName.Empty() {
		best, bestScore := m.bestNameMatch(srcName)
		if best != nil {
			if res, ok := m.nameTierResult(source, srcPhone, best, bestScore); ok {
				return res
			}
		}
	}

	// Tier 3: last-10-digit phone match with no name corroboration.
	// Never auto-accepted.
	if srcPhone.Valid() {
		if last10 := srcPhone.Last10(); last10 != "" {
			for _, c := range m.pool {
				if c.phone.Last10() == last10 {
					return m.result(source, c.rec.ID, models.MethodPhonePartial, 0.70, map[string]any{
						models.DetailMatchedFields: []string{"phone_last10"},
						models.DetailNeedsReview:   true,
					}, srcPhone)
				}
			}
		}
	}

	return m.result(source, "", models.MethodNone, 0, map[string]any{
		models.DetailReason: "no candidate matched on phone or name",
	}, srcPhone)
}

func (m *Matcher) bestNameMatch(srcName normalize.PersonName) (*candidate, int) {
	var best *candidate
	bestScore := 0
	for i := range m.pool {
		c := &m.pool[i]
		if c.name.Empty() {
			continue
		}
		score := TokenSortRatio(srcName.String(), c.name.String())
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}

// nameTierResult finalizes tier 2. The bool is false when the score falls
// below the acceptance rules and matching should continue to tier 3.
func (m *Matcher) nameTierResult(source models.SourceRecord, srcPhone normalize.PhoneNumber, best *candidate, score int) (models.MatchResult, bool) {
	if !srcPhone.Valid() {
		// Phone unusable: name evidence stands alone. Only a
		// high-threshold score is accepted, at a penalized confidence.
		if score < m.cfg.NameHighThreshold {
			return models.MatchResult{}, false
		}
		confidence := float64(score) / 100 * m.cfg.PhonelessNamePenalty
		return m.result(source, best.rec.ID, models.MethodFuzzyName, confidence, map[string]any{
			models.DetailNameScore:         score,
			models.DetailMatchedFields:     []string{"name"},
			models.DetailNeedsManualReview: true,
			models.DetailReason:            "source phone unusable, name evidence only",
		}, srcPhone), true
	}

	last10Match := srcPhone.Last10() != "" && srcPhone.Last10() == best.phone.Last10()

	if last10Match && score >= m.cfg.NameMediumThreshold {
		confidence := float64(score)/100 + 0.10
		if confidence > 0.95 {
			confidence = 0.95
		}
		return m.result(source, best.rec.ID, models.MethodCombined, confidence, map[string]any{
			models.DetailNameScore:     score,
			models.DetailMatchedFields: []string{"name", "phone_last10"},
		}, srcPhone), true
	}

	if score >= m.cfg.NameHighThreshold {
		return m.result(source, best.rec.ID, models.MethodFuzzyName, float64(score)/100, map[string]any{
			models.DetailNameScore:     score,
			models.DetailMatchedFields: []string{"name"},
		}, srcPhone), true
	}

	return models.MatchResult{}, false
}

func (m *Matcher) result(source models.SourceRecord, candidateID string, method models.MatchMethod, confidence float64, details map[string]any, srcPhone normalize.PhoneNumber) models.MatchResult {
	if note := srcPhone.Note(); note != "" {
		details[models.DetailPhoneNote] = note
	}
	return models.MatchResult{
		SourceID:    source.ID,
		CandidateID: candidateID,
		Method:      method,
		Confidence:  confidence,
		Details:     details,
	}
}
