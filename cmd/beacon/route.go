package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/beacon/pkg/cli"
	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/dispatch"
	"mercator-hq/beacon/pkg/router"
)

var routeFlags struct {
	envelope string
	rules    string
	workers  int
	dispatch bool
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Route envelopes and print the results",
	Long: `Route one or more envelopes against the loaded categories and print every
RouteResult as JSON, including suppressed results and their evidence.

The input may be a single JSON envelope, a JSON array, or JSON lines. Routing
only reads the suppression store; pass --dispatch to also deliver alerts,
write the audit log and record cooldowns.

Examples:
  # Route one envelope
  beacon route --envelope hearing.json

  # Route a batch from stdin against a rules directory
  cat events.jsonl | beacon route --rules ./rules --envelope -

  # Route and dispatch through the configured notifier
  beacon route --config beacon.yaml --envelope events.jsonl --dispatch`,
	RunE: routeEnvelopes,
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().StringVarP(&routeFlags.envelope, "envelope", "e", "-", "envelope file (- for stdin)")
	routeCmd.Flags().StringVarP(&routeFlags.rules, "rules", "r", "", "override rules.path")
	routeCmd.Flags().IntVarP(&routeFlags.workers, "workers", "w", 4, "envelopes routed concurrently")
	routeCmd.Flags().BoolVar(&routeFlags.dispatch, "dispatch", false, "dispatch results and write the audit log")
}

// RouteOutput is the printed outcome for one envelope.
type RouteOutput struct {
	EventID     string               `json:"event_id"`
	AuthorityID string               `json:"authority_id"`
	Version     int                  `json:"version"`
	ContentHash string               `json:"content_hash"`
	Results     []router.RouteResult `json:"results"`
	Deliveries  []DeliveryOutput     `json:"deliveries,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// DeliveryOutput summarizes one dispatched result.
type DeliveryOutput struct {
	TriggerID string `json:"trigger_id"`
	Outcome   string `json:"outcome"`
	AlertID   string `json:"alert_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func routeEnvelopes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if routeFlags.rules != "" {
			cfg.Rules.Path = routeFlags.rules
		}
	})
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	in, err := openInput(routeFlags.envelope)
	if err != nil {
		return cli.NewCommandError("route", err)
	}
	defer in.Close()

	envelopes, err := readEnvelopes(in)
	if err != nil {
		return cli.NewCommandError("route", err)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return cli.NewCommandError("route", err)
	}
	defer a.Close()

	ctx := commandContext(cmd)
	batch, routeErr := a.router.RouteBatch(ctx, envelopes, routeFlags.workers)

	failed := 0
	outputs := make([]RouteOutput, len(batch))
	for i, br := range batch {
		outputs[i] = RouteOutput{
			EventID:     br.Envelope.EventID(),
			AuthorityID: br.Envelope.AuthorityID(),
			Version:     br.Envelope.Version(),
			ContentHash: br.Envelope.ContentHash(),
			Results:     br.Results,
		}
		if outputs[i].Results == nil {
			outputs[i].Results = []router.RouteResult{}
		}
		if br.Err != nil {
			outputs[i].Error = br.Err.Error()
			failed++
		}
	}

	if routeFlags.dispatch {
		for i, br := range batch {
			if len(br.Results) == 0 {
				continue
			}
			deliveries, err := a.dispatcher.Dispatch(ctx, br.Envelope, br.Results)
			outputs[i].Deliveries = summarizeDeliveries(deliveries)
			if err != nil {
				logger.Error("Dispatch failed", "event_id", br.Envelope.EventID(), "error", err)
			}
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(outputs); err != nil {
		return cli.NewCommandError("route", err)
	}

	if routeErr != nil {
		return cli.NewCommandError("route", routeErr)
	}
	if failed > 0 {
		return cli.NewCommandError("route", fmt.Errorf("%d of %d envelopes failed to route", failed, len(batch)))
	}
	return nil
}

func summarizeDeliveries(deliveries []dispatch.Delivery) []DeliveryOutput {
	out := make([]DeliveryOutput, len(deliveries))
	for i, d := range deliveries {
		out[i] = DeliveryOutput{
			TriggerID: d.Result.TriggerID,
			Outcome:   string(d.Outcome),
			AlertID:   d.AlertID,
		}
		if d.Err != nil {
			out[i].Error = d.Err.Error()
		}
	}
	return out
}
