package consent

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patientexplorer/patientexplorer/internal/config"
	"github.com/patientexplorer/patientexplorer/pkg/models"
)

// ErrConsentNotFound indicates no consent on file for a patient.
var ErrConsentNotFound = errors.New("consent not found")

// ErrInvalidStatus indicates an unrecognized consent status.
var ErrInvalidStatus = errors.New("invalid consent status")

// Manager tracks per-patient SMS outreach consent. A matched patient may
// only be messaged while an unexpired granted consent is on file.
type Manager struct {
	config   *config.ConsentConfig
	consents map[string]*models.Consent // keyed by patient ID
	mu       sync.RWMutex
}

// NewManager creates a new consent manager.
func NewManager(cfg *config.ConsentConfig) *Manager {
	return &Manager{
		config:   cfg,
		consents: make(map[string]*models.Consent),
	}
}

// Record sets a patient's consent status, replacing any prior record.
func (m *Manager) Record(patientID string, status models.ConsentStatus, source string) (*models.Consent, error) {
	switch status {
	case models.ConsentPending, models.ConsentGranted, models.ConsentDeclined, models.ConsentRevoked:
	default:
		return nil, ErrInvalidStatus
	}

	consent := &models.Consent{
		ID:         uuid.New().String(),
		PatientID:  patientID,
		Status:     status,
		Source:     source,
		RecordedAt: time.Now(),
	}
	if status == models.ConsentGranted && m.config.ExpirationDays > 0 {
		expires := consent.RecordedAt.AddDate(0, 0, m.config.ExpirationDays)
		consent.ExpiresAt = &expires
	}

	m.mu.Lock()
	m.consents[patientID] = consent
	m.mu.Unlock()
	return consent, nil
}

// Get retrieves a patient's consent record.
func (m *Manager) Get(patientID string) (*models.Consent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	consent, ok := m.consents[patientID]
	return consent, ok
}

// Revoke marks a patient's consent revoked.
func (m *Manager) Revoke(patientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	consent, ok := m.consents[patientID]
	if !ok {
		return ErrConsentNotFound
	}
	consent.Status = models.ConsentRevoked
	consent.ExpiresAt = nil
	return nil
}

// HandleInboundKeyword applies an inbound SMS body against the opt-in
// and opt-out keyword lists. Returns the updated consent and whether the
// body matched a keyword.
func (m *Manager) HandleInboundKeyword(patientID, body string) (*models.Consent, bool) {
	keyword := strings.ToUpper(strings.TrimSpace(body))

	for _, stop := range m.config.OptOutKeywords {
		if keyword == stop {
			consent, _ := m.Record(patientID, models.ConsentRevoked, "sms-reply")
			return consent, true
		}
	}
	for _, start := range m.config.OptInKeywords {
		if keyword == start {
			consent, _ := m.Record(patientID, models.ConsentGranted, "sms-reply")
			return consent, true
		}
	}
	return nil, false
}

// CanMessage reports whether the patient has an unexpired granted
// consent on file.
func (m *Manager) CanMessage(patientID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	consent, ok := m.consents[patientID]
	if !ok || consent.Status != models.ConsentGranted {
		return false
	}
	if consent.ExpiresAt != nil && time.Now().After(*consent.ExpiresAt) {
		return false
	}
	return true
}

// Stats contains consent counts by status.
type Stats struct {
	Total    int                          `json:"total"`
	ByStatus map[models.ConsentStatus]int `json:"by_status"`
}

// GetStats returns consent statistics.
func (m *Manager) GetStats() *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{ByStatus: make(map[models.ConsentStatus]int)}
	for _, consent := range m.consents {
		stats.Total++
		stats.ByStatus[consent.Status]++
	}
	return stats
}
