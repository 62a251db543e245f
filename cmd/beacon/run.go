package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/beacon/pkg/cli"
	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/envelope"
	"mercator-hq/beacon/pkg/rules/watcher"
	"mercator-hq/beacon/pkg/suppression"
	"mercator-hq/beacon/pkg/telemetry/health"
	"mercator-hq/beacon/pkg/telemetry/logging"
	"mercator-hq/beacon/pkg/telemetry/tracing"
)

var runFlags struct {
	input     string
	rules     string
	keepAlive bool
	dryRun    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Route and dispatch a stream of envelopes",
	Long: `Read JSON-lines envelopes from a file or stdin, route each one against the
loaded categories, and dispatch the results: every result is audited, and
unsuppressed results at or above dispatch.min_severity are sent to the
configured notifier.

While running, beacon serves Prometheus metrics and health probes on
telemetry.metrics.listen_address, compacts the suppression store on
suppression.compaction_schedule, and reloads rules on change when rules.watch
is set.

Examples:
  # Process a file and exit
  beacon run --config beacon.yaml --input events.jsonl

  # Consume a pipe and keep serving metrics afterwards
  adapter | beacon run --config beacon.yaml --keep-alive

  # Validate config and rules without processing input
  beacon run --config beacon.yaml --dry-run`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.input, "input", "i", "-", "JSON-lines envelope input (- for stdin)")
	runCmd.Flags().StringVarP(&runFlags.rules, "rules", "r", "", "override rules.path")
	runCmd.Flags().BoolVar(&runFlags.keepAlive, "keep-alive", false, "keep serving after the input ends, until interrupted")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "load config and rules, then exit")
}

// runStats counts what happened to the input.
type runStats struct {
	Envelopes int
	Results   int
	Failed    int
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if runFlags.rules != "" {
			cfg.Rules.Path = runFlags.rules
		}
	})
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	tracing.Setup()

	a, err := newApp(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	if runFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid\n✓ %d categories loaded (version %s)\n",
			a.catalog.Count(), a.catalog.Version())
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	if cfg.Telemetry.Metrics.Enabled {
		srv, _, err := a.startServer(ctx)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	compactor := suppression.NewCompactor(a.manager, cfg.Suppression.CompactionSchedule, cfg.Suppression.GracePeriod, logger)
	if err := compactor.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer compactor.Stop()

	if cfg.Rules.Watch {
		fw, err := watcher.New(watcher.Config{Path: cfg.Rules.Path, Debounce: cfg.Rules.Debounce}, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := fw.Watch(ctx, a.catalog.Reload); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Rules watcher stopped", "error", err)
			}
		}()
		defer fw.Stop()
	}

	in, err := openInput(runFlags.input)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer in.Close()

	stats, err := a.process(ctx, in)
	logger.Info("Input processed",
		"envelopes", stats.Envelopes,
		"results", stats.Results,
		"failed", stats.Failed,
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("run", err)
	}

	if runFlags.keepAlive && ctx.Err() == nil {
		logger.Info("Input exhausted, serving until interrupted")
		<-ctx.Done()
	}
	return nil
}

// process routes and dispatches every envelope read from r. Decoding stops at
// the first malformed envelope; routing and dispatch failures are counted and
// logged.
func (a *app) process(ctx context.Context, r io.Reader) (runStats, error) {
	var stats runStats

	type item struct {
		env *envelope.Envelope
		err error
	}
	items := make(chan item)

	go func() {
		defer close(items)
		stream, err := newEnvelopeStream(r)
		if err != nil {
			select {
			case items <- item{err: err}:
			case <-ctx.Done():
			}
			return
		}
		for {
			env, err := stream.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case items <- item{env: env, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case it, ok := <-items:
			if !ok {
				return stats, nil
			}
			if it.err != nil {
				return stats, it.err
			}

			stats.Envelopes++
			n, err := a.handle(ctx, it.env)
			stats.Results += n
			if err != nil {
				stats.Failed++
			}
		}
	}
}

func (a *app) handle(ctx context.Context, env *envelope.Envelope) (int, error) {
	ctx = logging.WithEventID(ctx, env.EventID())
	ctx = logging.WithAuthorityID(ctx, env.AuthorityID())

	// Route returns the healthy triggers' results alongside a trigger error.
	results, routeErr := a.router.Route(ctx, env)
	if routeErr != nil {
		a.logger.ErrorContext(ctx, "Routing failed", "results", len(results), "error", routeErr)
	}
	if len(results) == 0 {
		return 0, routeErr
	}

	if _, err := a.dispatcher.Dispatch(ctx, env, results); err != nil {
		a.logger.ErrorContext(ctx, "Dispatch failed", "error", err)
		return len(results), errors.Join(routeErr, err)
	}
	return len(results), routeErr
}

// startServer serves metrics and health probes until the returned server is
// shut down. It returns the bound address.
func (a *app) startServer(ctx context.Context) (*http.Server, string, error) {
	metricsCfg := a.cfg.Telemetry.Metrics

	checker := health.New(a.cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("catalog", health.CatalogCheck(a.catalog))
	checker.RegisterCheck("suppression", health.SuppressionCheck(a.manager))
	checker.RegisterCheck("audit", health.AuditCheck(a.sink))

	mux := http.NewServeMux()
	mux.Handle(metricsCfg.Path, a.collector.Handler())
	health.Register(mux, checker, a.cfg.Telemetry.Health, health.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})

	ln, err := net.Listen("tcp", metricsCfg.ListenAddress)
	if err != nil {
		return nil, "", fmt.Errorf("listen on %s: %w", metricsCfg.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server stopped", "error", err)
		}
	}()

	a.logger.Info("Serving metrics and health",
		"address", ln.Addr().String(),
		"metrics_path", metricsCfg.Path,
		"liveness_path", a.cfg.Telemetry.Health.LivenessPath,
		"readiness_path", a.cfg.Telemetry.Health.ReadinessPath,
	)
	return srv, ln.Addr().String(), nil
}
