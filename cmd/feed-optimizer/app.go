package main

import (
	"context"
	"fmt"

	"github.com/sapat/feed-optimizer/internal/catalogue"
	"github.com/sapat/feed-optimizer/internal/config"
	"github.com/sapat/feed-optimizer/internal/metrics"
	"github.com/sapat/feed-optimizer/internal/optimizer"
	"github.com/sapat/feed-optimizer/pkg/constants"
	"go.uber.org/zap"
)

// application holds everything a command needs after start-up.
type application struct {
	conf    *config.Configuration
	logger  *zap.Logger
	metrics *metrics.Metrics
	runner  *optimizer.Runner
	closers []func()
}

func newApplication(ctx context.Context, opts *rootOptions) (*application, error) {
	conf, err := config.LoadConfiguration(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration at %s: %w", opts.configPath, err)
	}

	logger, err := initializeLogger(conf.Logging, opts.logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app := &application{conf: conf, logger: logger, metrics: metrics.New()}

	if err := conf.Validate(); err != nil {
		app.Close()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	cat, err := app.newCatalogue(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.runner, err = optimizer.NewRunner(logger, cat,
		optimizer.WithSwarmParams(conf.Solver.SwarmParams()),
		optimizer.WithMetrics(app.metrics),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// newCatalogue opens the configured ingredient source, wrapped in a cache
// when catalogue.cacheTTL is set.
func (a *application) newCatalogue(ctx context.Context) (catalogue.Catalogue, error) {
	conf := a.conf.Catalogue

	var cat catalogue.Catalogue
	switch conf.Source {
	case constants.CatalogueSourceInline:
		mem, err := catalogue.NewMemory(a.conf.Ingredients, a.conf.Overrides)
		if err != nil {
			return nil, fmt.Errorf("failed to build inline catalogue: %w", err)
		}
		cat = mem
	case constants.CatalogueSourceFile:
		mem, err := catalogue.LoadFile(conf.File)
		if err != nil {
			return nil, err
		}
		cat = mem
	case constants.CatalogueSourceMongo:
		mongo, cleanup, err := catalogue.NewMongo(ctx, a.logger, conf.Mongo)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cleanup)
		cat = mongo
	default:
		return nil, fmt.Errorf("catalogue source %q is not supported", conf.Source)
	}

	if conf.CacheTTL > 0 {
		cached, err := catalogue.NewCached(cat, conf.CacheTTL, conf.CacheMaxMB, a.logger, a.metrics.ObserveLookup)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = cached.Close() })
		cat = cached
	}

	a.logger.Debug("catalogue ready",
		zap.String("op", "main"),
		zap.String("source", conf.Source),
		zap.Duration("cacheTTL", conf.CacheTTL),
	)
	return cat, nil
}

// Close releases the catalogue and flushes the logger.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.logger.Sync()
}
