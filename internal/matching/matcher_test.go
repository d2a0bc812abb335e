package matching

import (
	"testing"

	"github.com/patientexplorer/patientexplorer/pkg/models"
)

func TestMatchExactPhone(t *testing.T) {
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "c1", Name: "Jon Smyth", Phone: "+12055551234"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "John Smith", Phone: "205-555-1234"})

	if res.CandidateID != "c1" {
		t.Fatalf("candidate = %q, want c1", res.CandidateID)
	}
	if res.Method != models.MethodExactPhone {
		t.Errorf("method = %q, want exact-phone", res.Method)
	}
	if res.Confidence != 0.99 {
		t.Errorf("confidence = %v, want 0.99", res.Confidence)
	}
}

func TestMatchTierPrecedence(t *testing.T) {
	// Source phone exactly matches candidate A; source name fuzzy-matches
	// candidate B. Tier 1 must win.
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "a", Name: "Completely Different", Phone: "+12055551234"},
		{ID: "b", Name: "John Smith", Phone: "+12055559999"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "John Smith", Phone: "205-555-1234"})

	if res.CandidateID != "a" {
		t.Errorf("candidate = %q, want a (exact phone wins over fuzzy name)", res.CandidateID)
	}
	if res.Method != models.MethodExactPhone {
		t.Errorf("method = %q, want exact-phone", res.Method)
	}
}

func TestMatchFuzzyNameHighScore(t *testing.T) {
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "c1", Name: "Smith, John", Phone: "+13125550100"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "John Smith", Phone: "404-555-0100"})

	if res.CandidateID != "c1" {
		t.Fatalf("candidate = %q, want c1", res.CandidateID)
	}
	if res.Method != models.MethodFuzzyName {
		t.Errorf("method = %q, want fuzzy-name", res.Method)
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0 for a perfect name score", res.Confidence)
	}
}

func TestMatchCombinedBoostHighScore(t *testing.T) {
	// Candidate stored under a GB country code; the source's US number
	// shares the last 10 digits. Canonical forms differ, so tier 1 cannot
	// fire, and the high-scoring name plus the last-10 agreement yields a
	// combined match capped at 0.95.
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "c1", Name: "John Smyth", Phone: "+44 20 7946 0958"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "John Smith", Phone: "207-946-0958"})

	if res.CandidateID != "c1" {
		t.Fatalf("candidate = %q, want c1", res.CandidateID)
	}
	if res.Method != models.MethodCombined {
		t.Errorf("method = %q, want combined", res.Method)
	}
	if res.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95 (min(0.95, 0.90+0.10))", res.Confidence)
	}
}

func TestMatchCombinedBoostMediumScore(t *testing.T) {
	// Name score lands in the medium band; alone it would fall through,
	// but the last-10 phone agreement corroborates it.
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "c1", Name: "John Smithe", Phone: "+44 20 7946 0958"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "Jon Smith", Phone: "207-946-0958"})

	if res.Method != models.MethodCombined {
		t.Fatalf("method = %q, want combined", res.Method)
	}
	score, _ := res.Details[models.DetailNameScore].(int)
	if score < 75 || score >= 90 {
		t.Fatalf("setup: name score %d should be in the medium band", score)
	}
	want := float64(score)/100 + 0.10
	if res.Confidence != want {
		t.Errorf("confidence = %v, want %v", res.Confidence, want)
	}
}

func TestMatchMediumScoreWithoutPhoneFallsThrough(t *testing.T) {
	// Medium-band name score with no phone corroboration is not enough:
	// the record falls through tier 2, finds no partial phone, and ends
	// up unmatched.
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "c1", Name: "John Smithe", Phone: "+13125550100"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "Jon Smith", Phone: "404-555-0100"})

	if res.Method != models.MethodNone {
		t.Errorf("method = %q, want none", res.Method)
	}
}

func TestMatchPhonePartialOnly(t *testing.T) {
	cfg := DefaultConfig()
	matcher := NewMatcher(cfg, []models.CandidateRecord{
		{ID: "c1", Name: "Totally Unrelated Person", Phone: "+44 20 7946 0958"},
	})

	// Same last 10 digits, different country code, name nowhere close.
	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "John Smith", Phone: "207-946-0958"})

	if res.Method != models.MethodPhonePartial {
		t.Fatalf("method = %q, want phone-partial", res.Method)
	}
	if res.Confidence != 0.70 {
		t.Errorf("confidence = %v, want 0.70", res.Confidence)
	}
	if !res.DetailBool(models.DetailNeedsReview) {
		t.Error("phone-partial matches must carry needs_review")
	}
}

func TestMatchPhonelessNamePenalty(t *testing.T) {
	// Source phone is unparseable; name matches perfectly. Confidence is
	// penalized and the result flagged for manual review.
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "c2", Name: "John Smith", Phone: "+12055559999"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "Smith, John", Phone: "999-999-9999"})

	if res.CandidateID != "c2" {
		t.Fatalf("candidate = %q, want c2", res.CandidateID)
	}
	if res.Method != models.MethodFuzzyName {
		t.Errorf("method = %q, want fuzzy-name (combined requires a usable phone)", res.Method)
	}
	if res.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8 (1.0 x penalty)", res.Confidence)
	}
	if !res.DetailBool(models.DetailNeedsManualReview) {
		t.Error("phoneless name match must carry needs_manual_review")
	}
}

func TestMatchNoUsableIdentifiers(t *testing.T) {
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "c1", Name: "John Smith", Phone: "+12055551234"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "Dr.", Phone: "garbage"})

	if res.Method != models.MethodNone {
		t.Errorf("method = %q, want none", res.Method)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", res.Confidence)
	}
	if res.Details[models.DetailReason] != "no usable identifiers" {
		t.Errorf("reason = %v, want %q", res.Details[models.DetailReason], "no usable identifiers")
	}
	if !res.DetailBool(models.DetailNeedsManualReview) {
		t.Error("expected needs_manual_review")
	}
}

func TestMatchNoMatch(t *testing.T) {
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "c1", Name: "John Smith", Phone: "+12055551234"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "Zzyzx Qorvath", Phone: "404-555-0199"})

	if res.Method != models.MethodNone {
		t.Errorf("method = %q, want none", res.Method)
	}
	if res.CandidateID != "" {
		t.Errorf("candidate = %q, want none", res.CandidateID)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", res.Confidence)
	}
}

func TestMatchTieBreakLowestCandidateID(t *testing.T) {
	// Two candidates with identical names and no phone corroboration.
	// The lowest directory ID must win, regardless of input order.
	matcher := NewMatcher(DefaultConfig(), []models.CandidateRecord{
		{ID: "c9", Name: "John Smith", Phone: "+13125550100"},
		{ID: "c1", Name: "John Smith", Phone: "+14045550100"},
	})

	res := matcher.Match(models.SourceRecord{ID: "s1", Name: "John Smith", Phone: "206-555-0100"})

	if res.CandidateID != "c1" {
		t.Errorf("candidate = %q, want c1 (lowest ID wins ties)", res.CandidateID)
	}
}

func TestMatchDeterministic(t *testing.T) {
	pool := []models.CandidateRecord{
		{ID: "c1", Name: "John Smith", Phone: "+12055551234"},
		{ID: "c2", Name: "Jane Doe", Phone: "+13125550100"},
	}
	src := models.SourceRecord{ID: "s1", Name: "Smith, John", Phone: "(205) 555-1234"}

	a := NewMatcher(DefaultConfig(), pool).Match(src)
	b := NewMatcher(DefaultConfig(), pool).Match(src)

	if a.CandidateID != b.CandidateID || a.Method != b.Method || a.Confidence != b.Confidence {
		t.Errorf("match not deterministic: %+v vs %+v", a, b)
	}
}
