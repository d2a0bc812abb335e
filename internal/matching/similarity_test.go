package matching

import "testing"

func TestTokenSortRatioOrderIndependence(t *testing.T) {
	if got := TokenSortRatio("john smith", "smith john"); got != 100 {
		t.Errorf("reordered tokens should score 100, got %d", got)
	}
	if got := TokenSortRatio("mary anne smith", "smith mary anne"); got != 100 {
		t.Errorf("reordered tokens should score 100, got %d", got)
	}
}

func TestTokenSortRatioIdentical(t *testing.T) {
	if got := TokenSortRatio("john smith", "john smith"); got != 100 {
		t.Errorf("identical strings should score 100, got %d", got)
	}
}

func TestTokenSortRatioEmpty(t *testing.T) {
	if got := TokenSortRatio("", "john smith"); got != 0 {
		t.Errorf("empty input should score 0, got %d", got)
	}
	if got := TokenSortRatio("  ", ""); got != 0 {
		t.Errorf("blank input should score 0, got %d", got)
	}
}

func TestTokenSortRatioMinorVariation(t *testing.T) {
	got := TokenSortRatio("john smith", "jon smyth")
	if got <= 50 || got >= 100 {
		t.Errorf("minor spelling variation should score between 50 and 100, got %d", got)
	}
}

func TestTokenSortRatioUnrelated(t *testing.T) {
	got := TokenSortRatio("john smith", "zzyzx qorvath")
	if got >= 50 {
		t.Errorf("unrelated names should score low, got %d", got)
	}
}

func TestTokenSortRatioSymmetric(t *testing.T) {
	a, b := "mary smith-jones", "mary jones"
	if TokenSortRatio(a, b) != TokenSortRatio(b, a) {
		t.Error("ratio should be symmetric")
	}
}
