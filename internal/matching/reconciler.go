package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/patientexplorer/patientexplorer/pkg/models"
)

// ErrEmptyCandidatePool is the only batch-fatal error: with nothing to
// match against there is no meaningful result to report.
var ErrEmptyCandidatePool = errors.New("empty candidate pool")

// Reconciler runs the matcher over a whole source list, groups claims on
// candidates to detect conflicts, and builds the batch report. It holds
// no state between runs: re-running with identical inputs produces an
// identical report.
type Reconciler struct {
	cfg    Config
	logger *zap.Logger
}

// NewReconciler creates a reconciler. A nil logger disables logging.
func NewReconciler(cfg Config, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{cfg: cfg, logger: logger}
}

// Reconcile matches every source record against the candidate pool and
// returns the aggregate report alongside the full result list.
//
// Per-record failures never fail the batch: a malformed source record
// becomes a method=none result routed to the review queue. Conflict
// detection runs only after every match completes, so processing order
// never affects the outcome.
func (r *Reconciler) Reconcile(ctx context.Context, sources []models.SourceRecord, candidates []models.CandidateRecord) (*models.BatchReport, []models.MatchResult, error) {
	if len(candidates) == 0 {
		return nil, nil, ErrEmptyCandidatePool
	}

	matcher := NewMatcher(r.cfg, candidates)

	results := make([]models.MatchResult, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("reconcile aborted: %w", err)
		}
		results = append(results, matcher.Match(src))
	}

	markConflicts(results)
	report := buildReport(results, len(sources), len(candidates), r.cfg.AutoAcceptConfidence)

	r.logger.Info("reconcile complete",
		zap.Int("sources", len(sources)),
		zap.Int("candidates", len(candidates)),
		zap.Int("review_queue", len(report.ReviewQueue)),
		zap.Int("conflicts", len(report.Conflicts)),
	)
	return report, results, nil
}

// markConflicts groups matched results by claimed candidate and flags
// every claimant of a candidate claimed more than once. Conflicting
// matches stay in the result set; families sharing one phone number are
// a real case and need human adjudication, not a silent winner.
func markConflicts(results []models.MatchResult) {
	claims := make(map[string][]int)
	for i, res := range results {
		if res.Matched() {
			claims[res.CandidateID] = append(claims[res.CandidateID], i)
		}
	}

	for _, idxs := range claims {
		if len(idxs) < 2 {
			continue
		}
		all := make([]string, 0, len(idxs))
		for _, i := range idxs {
			all = append(all, results[i].SourceID)
		}
		sort.Strings(all)

		for _, i := range idxs {
			co := make([]string, 0, len(all)-1)
			for _, id := range all {
				if id != results[i].SourceID {
					co = append(co, id)
				}
			}
			if results[i].Details == nil {
				results[i].Details = map[string]any{}
			}
			results[i].Details[models.DetailSharedConflict] = true
			results[i].Details[models.DetailCoClaimants] = co
		}
	}
}

func buildReport(results []models.MatchResult, totalSources, totalCandidates int, autoAccept float64) *models.BatchReport {
	report := &models.BatchReport{
		TotalSources:    totalSources,
		TotalCandidates: totalCandidates,
		ByBand:          map[models.ConfidenceBand]int{},
		ByMethod:        map[models.MatchMethod]int{},
	}

	conflicts := make(map[string][]string)
	review := make(map[string]bool)

	for _, res := range results {
		report.ByBand[res.Band()]++
		report.ByMethod[res.Method]++

		if res.DetailBool(models.DetailSharedConflict) {
			conflicts[res.CandidateID] = append(conflicts[res.CandidateID], res.SourceID)
		}

		if res.Confidence < autoAccept ||
			res.DetailBool(models.DetailNeedsReview) ||
			res.DetailBool(models.DetailNeedsManualReview) ||
			res.DetailBool(models.DetailSharedConflict) {
			review[res.SourceID] = true
		}
	}

	for candidateID, sourceIDs := range conflicts {
		report.Conflicts = append(report.Conflicts, models.Conflict{
			CandidateID: candidateID,
			SourceIDs:   sourceIDs,
		})
	}
	for sourceID := range review {
		report.ReviewQueue = append(report.ReviewQueue, sourceID)
	}
	report.SortDeterministic()
	return report
}

// ApplyOverride replaces one source's match result wholesale with a
// manual decision. An empty candidateID marks the source as having no
// match. Returns the replaced result.
func ApplyOverride(results []models.MatchResult, sourceID, candidateID, actor string) (models.MatchResult, error) {
	for i, res := range results {
		if res.SourceID != sourceID {
			continue
		}
		method := models.MethodManual
		confidence := 1.0
		if candidateID == "" {
			method = models.MethodNone
			confidence = 0
		}
		results[i] = models.MatchResult{
			SourceID:    sourceID,
			CandidateID: candidateID,
			Method:      method,
			Confidence:  confidence,
			Details: map[string]any{
				models.DetailReason: "manual override by " + actor,
			},
		}
		return results[i], nil
	}
	return models.MatchResult{}, fmt.Errorf("no match result for source %q", sourceID)
}
