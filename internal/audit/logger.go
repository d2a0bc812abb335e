package audit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patientexplorer/patientexplorer/internal/config"
	"github.com/patientexplorer/patientexplorer/pkg/models"
)

// Event types recorded by the audit trail.
const (
	TypeReconcileRun  = "reconcile.run"
	TypeOverride      = "match.override"
	TypeConsentChange = "consent.change"
	TypeRosterImport  = "roster.import"
)

// Logger keeps the audit trail for match runs, manual overrides, and
// consent changes. Events flow through a channel to a single writer
// goroutine, so logging never blocks request handling.
type Logger struct {
	config  *config.AuditConfig
	events  map[string]*models.AuditEvent
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	eventCh chan *models.AuditEvent
}

// NewLogger creates a new audit logger.
func NewLogger(cfg *config.AuditConfig) *Logger {
	return &Logger{
		config:  cfg,
		events:  make(map[string]*models.AuditEvent),
		stopCh:  make(chan struct{}),
		eventCh: make(chan *models.AuditEvent, 1000),
	}
}

// Start starts the audit logger.
func (l *Logger) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.mu.Unlock()

	go l.processEvents(ctx)
	return nil
}

// Stop stops the audit logger.
func (l *Logger) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		close(l.stopCh)
		l.running = false
	}
}

func (l *Logger) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case event := <-l.eventCh:
			l.mu.Lock()
			l.events[event.ID] = event
			l.mu.Unlock()
		}
	}
}

func (l *Logger) log(eventType, actor, outcome string, detail map[string]string) *models.AuditEvent {
	if !l.config.Enabled {
		return nil
	}
	event := &models.AuditEvent{
		ID:       uuid.New().String(),
		Type:     eventType,
		Actor:    actor,
		Outcome:  outcome,
		Recorded: time.Now(),
		Detail:   detail,
	}
	l.eventCh <- event
	return event
}

// LogReconcileRun records a completed (or failed) reconcile run.
func (l *Logger) LogReconcileRun(actor, runID string, report *models.BatchReport, runErr error) *models.AuditEvent {
	outcome := "success"
	detail := map[string]string{"run_id": runID}
	if runErr != nil {
		outcome = "failure"
		detail["error"] = runErr.Error()
	} else if report != nil {
		detail["sources"] = strconv.Itoa(report.TotalSources)
		detail["candidates"] = strconv.Itoa(report.TotalCandidates)
		detail["review_queue"] = strconv.Itoa(len(report.ReviewQueue))
		detail["conflicts"] = strconv.Itoa(len(report.Conflicts))
	}
	return l.log(TypeReconcileRun, actor, outcome, detail)
}

// LogOverride records a manual match override.
func (l *Logger) LogOverride(actor, runID, sourceID, candidateID string) *models.AuditEvent {
	return l.log(TypeOverride, actor, "success", map[string]string{
		"run_id":       runID,
		"source_id":    sourceID,
		"candidate_id": candidateID,
	})
}

// LogConsentChange records a consent state change.
func (l *Logger) LogConsentChange(actor, patientID string, status models.ConsentStatus, source string) *models.AuditEvent {
	return l.log(TypeConsentChange, actor, "success", map[string]string{
		"patient_id": patientID,
		"status":     string(status),
		"source":     source,
	})
}

// LogRosterImport records a roster import.
func (l *Logger) LogRosterImport(actor string, rows, flagged int) *models.AuditEvent {
	return l.log(TypeRosterImport, actor, "success", map[string]string{
		"rows":    strconv.Itoa(rows),
		"flagged": strconv.Itoa(flagged),
	})
}

// GetEvent retrieves an audit event by ID.
func (l *Logger) GetEvent(id string) (*models.AuditEvent, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	event, ok := l.events[id]
	return event, ok
}

// EventFilter defines filters for event queries.
type EventFilter struct {
	Type      string
	Actor     string
	Outcome   string
	StartDate *time.Time
	EndDate   *time.Time
}

// GetEvents retrieves audit events matching the filter.
func (l *Logger) GetEvents(filter EventFilter) []*models.AuditEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []*models.AuditEvent
	for _, event := range l.events {
		if matchesFilter(event, filter) {
			results = append(results, event)
		}
	}
	return results
}

func matchesFilter(event *models.AuditEvent, filter EventFilter) bool {
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Actor != "" && event.Actor != filter.Actor {
		return false
	}
	if filter.Outcome != "" && event.Outcome != filter.Outcome {
		return false
	}
	if filter.StartDate != nil && event.Recorded.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && event.Recorded.After(*filter.EndDate) {
		return false
	}
	return true
}

// Stats contains audit statistics.
type Stats struct {
	TotalEvents  int            `json:"total_events"`
	FailedEvents int            `json:"failed_events"`
	ByType       map[string]int `json:"by_type"`
}

// GetStats returns audit statistics.
func (l *Logger) GetStats() *Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &Stats{ByType: make(map[string]int)}
	for _, event := range l.events {
		stats.TotalEvents++
		stats.ByType[event.Type]++
		if event.Outcome != "success" {
			stats.FailedEvents++
		}
	}
	return stats
}
