package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/patientexplorer/patientexplorer/internal/audit"
	"github.com/patientexplorer/patientexplorer/internal/config"
	"github.com/patientexplorer/patientexplorer/internal/consent"
	"github.com/patientexplorer/patientexplorer/internal/matching"
)

// Server represents the API server.
type Server struct {
	config   *config.Config
	router   chi.Router
	handlers *Handlers
}

// NewServer creates a new API server. The directory lister may be nil
// when no contact directory is configured; reconcile requests must then
// carry their own candidate pool.
func NewServer(cfg *config.Config, reconciler *matching.Reconciler, consentMgr *consent.Manager, auditLog *audit.Logger, directory ContactLister) *Server {
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		handlers: NewHandlers(reconciler, consentMgr, auditLog, directory),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Matching
		r.Post("/reconcile", s.handlers.RunReconcile)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handlers.ListRuns)
			r.Get("/{id}", s.handlers.GetRun)
			r.Get("/{id}/results", s.handlers.GetRunResults)
			r.Get("/{id}/review-queue", s.handlers.GetReviewQueue)
			r.Post("/{id}/override", s.handlers.OverrideMatch)
		})

		// Roster import
		r.Post("/roster/import", s.handlers.ImportRoster)

		// Consent
		r.Route("/consent", func(r chi.Router) {
			r.Post("/", s.handlers.RecordConsent)
			r.Get("/stats", s.handlers.GetConsentStats)
			r.Post("/inbound", s.handlers.InboundConsentKeyword)
			r.Get("/{patientID}", s.handlers.GetConsent)
			r.Post("/{patientID}/revoke", s.handlers.RevokeConsent)
		})

		// Audit
		r.Route("/audit", func(r chi.Router) {
			r.Get("/events", s.handlers.ListAuditEvents)
			r.Get("/events/{id}", s.handlers.GetAuditEvent)
			r.Get("/stats", s.handlers.GetAuditStats)
		})
	})
}

// Router returns the chi router.
func (s *Server) Router() http.Handler {
	return s.router
}
