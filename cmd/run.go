package cmd

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/examcore/internal/catalog"
	"github.com/abhisek/examcore/internal/config"
	"github.com/abhisek/examcore/internal/logging"
	"github.com/abhisek/examcore/internal/metrics"
	"github.com/abhisek/examcore/internal/session"
	"github.com/abhisek/examcore/internal/store"
)

// deps holds everything a command needs to talk to the engine.
type deps struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.SQL
	svc      *session.Service
	registry *prometheus.Registry
	metrics  *metrics.Recorder
}

func (d *deps) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.Warn("close store", zap.Error(err))
		}
	}
	_ = d.log.Sync()
}

// loadConfig reads the config file named by --config and applies the
// --catalog override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		cfg.Catalog.Path = p
	}
	return cfg, nil
}

// openStore opens the configured state store and applies migrations.
func openStore(cmd *cobra.Command, cfg *config.Config) (*store.SQL, error) {
	dsn, err := resolveDBPath(cmd, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(cfg.Store.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// setup loads config, opens the store and catalog, and builds the session
// service. The caller must Close the result.
func setup(cmd *cobra.Command) (*deps, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.Path == "" {
		return nil, errors.New("no catalog configured: pass --catalog or set catalog.path")
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg, log: log}

	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		d.Close()
		return nil, err
	}
	log.Info("catalog loaded", zap.String("path", cfg.Catalog.Path), zap.Int("items", cat.Len()))

	d.store, err = openStore(cmd, cfg)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.registry = prometheus.NewRegistry()
	d.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.metrics = metrics.New(d.registry)

	d.svc, err = session.NewService(cfg.Engine, cat, d.store,
		session.WithLogger(log),
		session.WithMetrics(d.metrics),
		session.WithAttemptLog(d.store),
	)
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}
