package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patientexplorer/patientexplorer/internal/api"
	"github.com/patientexplorer/patientexplorer/internal/audit"
	"github.com/patientexplorer/patientexplorer/internal/config"
	"github.com/patientexplorer/patientexplorer/internal/consent"
	"github.com/patientexplorer/patientexplorer/internal/directory"
	"github.com/patientexplorer/patientexplorer/internal/matching"
)

func main() {
	cfg := loadConfig()

	logger := newLogger(cfg.Server.Environment)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting patient explorer", zap.Int("port", cfg.Server.Port))

	auditLogger := audit.NewLogger(&cfg.Audit)
	consentManager := consent.NewManager(&cfg.Consent)
	reconciler := matching.NewReconciler(matching.Config{
		DefaultRegion:        cfg.Matching.DefaultRegion,
		NameHighThreshold:    cfg.Matching.NameHighThreshold,
		NameMediumThreshold:  cfg.Matching.NameMediumThreshold,
		AutoAcceptConfidence: cfg.Matching.AutoAcceptConfidence,
		PhonelessNamePenalty: cfg.Matching.PhonelessNamePenalty,
	}, logger)

	var directoryClient api.ContactLister
	if cfg.Directory.BaseURL != "" {
		directoryClient = directory.NewClient(&directory.ClientConfig{
			BaseURL:      cfg.Directory.BaseURL,
			AuthProvider: &directory.StaticTokenProvider{Token: cfg.Directory.APIToken},
			Timeout:      time.Duration(cfg.Directory.TimeoutSeconds) * time.Second,
			PageSize:     cfg.Directory.PageSize,
		})
		logger.Info("contact directory configured", zap.String("base_url", cfg.Directory.BaseURL))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := auditLogger.Start(ctx); err != nil {
		logger.Fatal("failed to start audit logger", zap.Error(err))
	}

	server := api.NewServer(cfg, reconciler, consentManager, auditLogger, directoryClient)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	auditLogger.Stop()
	logger.Info("stopped")
}

func loadConfig() *config.Config {
	configPath := os.Getenv("PATIENTEXPLORER_CONFIG")
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err == nil {
			return cfg
		}
		fmt.Fprintf(os.Stderr, "failed to load config from %s: %v, using environment\n", configPath, err)
	}
	return config.LoadFromEnv()
}

func newLogger(environment string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
