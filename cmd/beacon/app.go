package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/beacon/pkg/audit"
	"mercator-hq/beacon/pkg/cli"
	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/dispatch"
	"mercator-hq/beacon/pkg/router"
	"mercator-hq/beacon/pkg/rules/engine"
	rulesErrors "mercator-hq/beacon/pkg/rules/errors"
	"mercator-hq/beacon/pkg/rules/evaluators"
	"mercator-hq/beacon/pkg/rules/schema"
	"mercator-hq/beacon/pkg/suppression"
	"mercator-hq/beacon/pkg/telemetry/metrics"
	"mercator-hq/beacon/pkg/telemetry/tracing"
)

// app holds the components wired from one configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	collector  *metrics.Collector
	catalog    *schema.Catalog
	backend    suppression.Backend
	manager    *suppression.Manager
	router     *router.Router
	sink       audit.Sink
	recorder   *audit.Recorder
	dispatcher *dispatch.Dispatcher
}

// newApp builds every component and loads the rules. Categories rejected by
// validation are logged and skipped; a rules path that cannot be read is an
// error.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	tracer := tracing.New()

	loader := schema.NewLoader(
		schema.NewFileSource(cfg.Rules.Path),
		schema.LoaderConfig{MaxDepth: cfg.Rules.MaxDepth, Categories: cfg.Rules.Categories},
		logger,
	)
	a.catalog = schema.NewCatalog(loader, logger).WithObserver(a.collector)
	if err := a.catalog.Reload(); err != nil {
		var list *rulesErrors.ErrorList
		if !errors.As(err, &list) {
			return nil, fmt.Errorf("load rules from %s: %w", cfg.Rules.Path, err)
		}
		logger.Warn("Some categories were rejected", "rejected", list.Count(), "loaded", a.catalog.Count())
	}

	backend, err := newSuppressionBackend(cfg.Suppression)
	if err != nil {
		return nil, err
	}
	a.backend = backend

	failMode, err := suppression.ParseFailMode(cfg.Suppression.FailMode)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.manager = suppression.NewManager(backend, suppression.Config{
		FailMode:      failMode,
		CooldownFloor: a.catalog.MaxCooldown,
	}, logger)

	a.router = router.New(a.catalog, engine.NewEvaluator(evaluators.NewRegistry()), a.manager, logger).
		WithObserver(a.collector).
		WithTracer(tracer)

	sink, err := newAuditSink(cfg.Audit, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sink = sink
	a.recorder = audit.NewRecorder(sink, audit.RecorderConfig{
		AsyncBuffer:  cfg.Audit.Recorder.AsyncBuffer,
		WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
	}, logger).WithObserver(a.collector)

	notifier, err := newNotifier(cfg.Dispatch, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	minSeverity, err := schema.ParseSeverity(cfg.Dispatch.MinSeverity)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dispatcher = dispatch.New(notifier, a.manager, a.recorder, dispatch.Config{
		MinSeverity: minSeverity,
		Workers:     cfg.Dispatch.Workers,
	}, logger).
		WithObserver(a.collector).
		WithTracer(tracer)

	return a, nil
}

// Close flushes the audit recorder and closes the stores.
func (a *app) Close() error {
	var errs []error
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close())
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	return errors.Join(errs...)
}

func newSuppressionBackend(cfg config.SuppressionConfig) (suppression.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		backend, err := suppression.NewSQLiteBackendWithConfig(suppression.SQLiteConfig{
			Path:               cfg.SQLite.Path,
			BusyTimeout:        cfg.SQLite.BusyTimeout,
			CheckpointInterval: cfg.SQLite.CheckpointInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("open suppression store: %w", err)
		}
		return backend, nil
	case "memory", "":
		return suppression.NewMemoryBackend(), nil
	default:
		return nil, cli.NewConfigError("suppression.backend", "unsupported backend "+cfg.Backend)
	}
}

func newAuditSink(cfg config.AuditConfig, logger *slog.Logger) (audit.Sink, error) {
	if !cfg.Enabled {
		logger.Warn("Audit persistence disabled, entries are kept in memory only")
		return audit.NewMemorySink(), nil
	}

	switch cfg.Backend {
	case "sqlite":
		sink, err := audit.NewSQLiteSink(&audit.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		return sink, nil
	case "memory", "":
		return audit.NewMemorySink(), nil
	default:
		return nil, cli.NewConfigError("audit.backend", "unsupported backend "+cfg.Backend)
	}
}

func newNotifier(cfg config.DispatchConfig, logger *slog.Logger) (dispatch.Notifier, error) {
	switch cfg.Notifier {
	case "webhook":
		notifier, err := dispatch.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Headers, cfg.Webhook.Timeout)
		if err != nil {
			return nil, cli.NewConfigError("dispatch.webhook.url", err.Error())
		}
		return notifier, nil
	case "log", "":
		return dispatch.NewLogNotifier(logger), nil
	default:
		return nil, cli.NewConfigError("dispatch.notifier", "unsupported notifier "+cfg.Notifier)
	}
}
