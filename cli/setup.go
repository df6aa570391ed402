// ABOUTME: Wires configuration into a store, analyzer, logger, metrics and client service
// ABOUTME: Shared by every command that touches client data
package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/agencycrm/analysis"
	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/config"
	"github.com/harperreed/agencycrm/docstore"
	"github.com/harperreed/agencycrm/logger"
	"github.com/harperreed/agencycrm/metrics"

	// Registers the sqlite driver.
	_ "github.com/harperreed/agencycrm/db"
)

// App holds the opened dependencies of a command.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Store   docstore.Store
	Service *clients.Service
}

// OpenApp opens the configured store and builds the client service.
func OpenApp(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	store, err := docstore.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store at %s: %w", cfg.Store.Driver, cfg.Store.Path, err)
	}

	m := metrics.New()
	analyzer, err := NewAnalyzer(cfg.Analysis, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := clients.NewService(store, analysis.Instrument(analyzer, m),
		clients.WithLogger(log),
		clients.WithMetrics(m),
		clients.WithDeferredAnalysis(cfg.Analysis.Deferred),
		clients.WithCollection(cfg.Store.Collection),
	)

	log.Debug("Store opened",
		zap.String("driver", cfg.Store.Driver),
		zap.String("path", cfg.Store.Path),
		zap.String("collection", svc.Collection()))

	return &App{
		Config:  cfg,
		Logger:  log,
		Metrics: m,
		Store:   store,
		Service: svc,
	}, nil
}

// Close flushes the logger and closes the store.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	return a.Store.Close()
}

// NewAnalyzer picks the HTTP analyzer when an endpoint is configured and
// the offline heuristic otherwise.
func NewAnalyzer(cfg config.AnalysisConfig, log *zap.Logger) (analysis.Analyzer, error) {
	if cfg.Endpoint == "" {
		log.Debug("No analysis endpoint configured, using heuristic analyzer")
		return analysis.NewHeuristic(), nil
	}

	a, err := analysis.NewHTTPAnalyzer(analysis.HTTPConfig{
		Endpoint:     cfg.Endpoint,
		APIKey:       cfg.APIKey,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
		Timeout:      time.Duration(cfg.Timeout),
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure analyzer: %w", err)
	}
	return a, nil
}
