package consent

import (
	"errors"
	"testing"
	"time"

	"github.com/patientexplorer/patientexplorer/internal/config"
	"github.com/patientexplorer/patientexplorer/pkg/models"
)

func testConfig() *config.ConsentConfig {
	return &config.ConsentConfig{
		ExpirationDays: 365,
		OptInKeywords:  []string{"YES", "START"},
		OptOutKeywords: []string{"STOP", "UNSUBSCRIBE", "CANCEL", "QUIT"},
	}
}

func TestRecordAndGet(t *testing.T) {
	m := NewManager(testConfig())

	consent, err := m.Record("p1", models.ConsentGranted, "paper-form")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consent.ID == "" {
		t.Error("expected generated ID")
	}
	if consent.ExpiresAt == nil {
		t.Error("granted consent should carry an expiry")
	}

	got, ok := m.Get("p1")
	if !ok || got.Status != models.ConsentGranted {
		t.Errorf("Get = %+v, %v", got, ok)
	}
}

func TestRecordInvalidStatus(t *testing.T) {
	m := NewManager(testConfig())
	if _, err := m.Record("p1", "maybe", "staff"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestRevoke(t *testing.T) {
	m := NewManager(testConfig())

	if err := m.Revoke("p1"); !errors.Is(err, ErrConsentNotFound) {
		t.Fatalf("err = %v, want ErrConsentNotFound", err)
	}

	if _, err := m.Record("p1", models.ConsentGranted, "staff"); err != nil {
		t.Fatal(err)
	}
	if err := m.Revoke("p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := m.Get("p1")
	if got.Status != models.ConsentRevoked {
		t.Errorf("status = %q, want revoked", got.Status)
	}
	if m.CanMessage("p1") {
		t.Error("revoked patient must not be messageable")
	}
}

func TestHandleInboundKeyword(t *testing.T) {
	m := NewManager(testConfig())

	consent, matched := m.HandleInboundKeyword("p1", "  stop ")
	if !matched {
		t.Fatal("STOP should match opt-out")
	}
	if consent.Status != models.ConsentRevoked {
		t.Errorf("status = %q, want revoked", consent.Status)
	}

	consent, matched = m.HandleInboundKeyword("p1", "YES")
	if !matched || consent.Status != models.ConsentGranted {
		t.Errorf("YES should grant, got %+v matched=%v", consent, matched)
	}

	if _, matched := m.HandleInboundKeyword("p1", "thanks, see you tuesday"); matched {
		t.Error("free text must not change consent")
	}
}

func TestCanMessage(t *testing.T) {
	m := NewManager(testConfig())

	if m.CanMessage("p1") {
		t.Error("no consent on file means no messaging")
	}

	if _, err := m.Record("p1", models.ConsentGranted, "staff"); err != nil {
		t.Fatal(err)
	}
	if !m.CanMessage("p1") {
		t.Error("granted consent should allow messaging")
	}

	// Expired consent.
	got, _ := m.Get("p1")
	expired := time.Now().Add(-time.Hour)
	got.ExpiresAt = &expired
	if m.CanMessage("p1") {
		t.Error("expired consent must not allow messaging")
	}

	if _, err := m.Record("p2", models.ConsentDeclined, "staff"); err != nil {
		t.Fatal(err)
	}
	if m.CanMessage("p2") {
		t.Error("declined consent must not allow messaging")
	}
}

func TestGetStats(t *testing.T) {
	m := NewManager(testConfig())

	if _, err := m.Record("p1", models.ConsentGranted, "staff"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Record("p2", models.ConsentDeclined, "staff"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Record("p3", models.ConsentPending, "import"); err != nil {
		t.Fatal(err)
	}

	stats := m.GetStats()
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByStatus[models.ConsentGranted] != 1 || stats.ByStatus[models.ConsentDeclined] != 1 {
		t.Errorf("by status = %v", stats.ByStatus)
	}
}
