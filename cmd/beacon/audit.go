package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/beacon/pkg/audit"
	"mercator-hq/beacon/pkg/cli"
)

var auditFlags struct {
	event        string
	authority    string
	category     string
	trigger      string
	outcome      string
	suppressed   string
	timeRange    string
	since        time.Duration
	limit        int
	offset       int
	format       string
	exportFormat string
	output       string
	count        bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
	Long: `Query and export the append-only audit log of routing decisions.

Subcommands:
  query   - List entries matching filters
  export  - Write matching entries as JSON or CSV`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit entries",
	Long: `Query audit entries with filters. Entries are ordered by fire time, oldest
first.

Time Range Format:
  RFC3339 interval "start/end", or --since for a window ending now.

Examples:
  # Everything a trigger produced in the last day
  beacon audit query --trigger gao_investigation --since 24h

  # Suppressed decisions for one authority, as JSON
  beacon audit query --authority house-energy --suppressed true --format json

  # Count failed deliveries
  beacon audit query --outcome failed --count`,
	RunE: queryAudit,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit entries",
	Long: `Export matching audit entries. JSON includes each entry's evidence; CSV
is one row per entry without evidence.

Examples:
  beacon audit export --since 168h --format csv --output week.csv
  beacon audit export --event hearing-42 --format json`,
	RunE: exportAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditExportCmd)

	for _, c := range []*cobra.Command{auditQueryCmd, auditExportCmd} {
		c.Flags().StringVar(&auditFlags.event, "event", "", "filter by event ID")
		c.Flags().StringVar(&auditFlags.authority, "authority", "", "filter by authority ID")
		c.Flags().StringVar(&auditFlags.category, "category", "", "filter by category ID")
		c.Flags().StringVar(&auditFlags.trigger, "trigger", "", "filter by trigger ID")
		c.Flags().StringVar(&auditFlags.outcome, "outcome", "", "filter by outcome (delivered, failed, suppressed, below_threshold)")
		c.Flags().StringVar(&auditFlags.suppressed, "suppressed", "", "filter by suppression (true, false)")
		c.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		c.Flags().DurationVar(&auditFlags.since, "since", 0, "only entries fired within this duration")
		c.Flags().IntVar(&auditFlags.limit, "limit", audit.DefaultQueryLimit, "max results")
		c.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
		c.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
	}
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json")
	auditQueryCmd.Flags().BoolVar(&auditFlags.count, "count", false, "print only the number of matching entries")
	auditExportCmd.Flags().StringVar(&auditFlags.exportFormat, "format", "json", "export format: json, csv")
}

// buildAuditQuery turns the filter flags into a Query. now anchors --since.
func buildAuditQuery(now time.Time) (*audit.Query, error) {
	query := &audit.Query{
		EventID:     auditFlags.event,
		AuthorityID: auditFlags.authority,
		CategoryID:  auditFlags.category,
		TriggerID:   auditFlags.trigger,
		Outcome:     audit.Outcome(auditFlags.outcome),
		Limit:       auditFlags.limit,
		Offset:      auditFlags.offset,
	}

	switch audit.Outcome(auditFlags.outcome) {
	case "", audit.OutcomeDelivered, audit.OutcomeFailed, audit.OutcomeSuppressed, audit.OutcomeBelowThreshold:
	default:
		return nil, cli.NewConfigError("outcome", fmt.Sprintf("unknown outcome %q", auditFlags.outcome))
	}

	if auditFlags.suppressed != "" {
		v, err := strconv.ParseBool(auditFlags.suppressed)
		if err != nil {
			return nil, cli.NewConfigError("suppressed", "must be true or false")
		}
		query.Suppressed = &v
	}

	if auditFlags.timeRange != "" && auditFlags.since > 0 {
		return nil, cli.NewConfigError("time-range", "cannot be combined with --since")
	}

	if auditFlags.timeRange != "" {
		parts := strings.Split(auditFlags.timeRange, "/")
		if len(parts) != 2 {
			return nil, cli.NewConfigError("time-range", "invalid format (expected: start/end)")
		}
		start, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, cli.NewConfigError("time-range", fmt.Sprintf("invalid start time: %v", err))
		}
		end, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, cli.NewConfigError("time-range", fmt.Sprintf("invalid end time: %v", err))
		}
		if end.Before(start) {
			return nil, cli.NewConfigError("time-range", "end is before start")
		}
		query.StartTime = &start
		query.EndTime = &end
	}

	if auditFlags.since > 0 {
		start := now.Add(-auditFlags.since)
		query.StartTime = &start
	}

	return query, nil
}

func openAuditSink() (audit.Sink, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.Audit.Enabled || cfg.Audit.Backend != "sqlite" {
		return nil, cli.NewConfigError("audit.backend", "the audit log is only persisted with the sqlite backend")
	}
	return newAuditSink(cfg.Audit, logger)
}

func auditOutput(cmd *cobra.Command) (io.Writer, func() error, error) {
	if auditFlags.output == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(auditFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func queryAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(auditFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	query, err := buildAuditQuery(time.Now().UTC())
	if err != nil {
		return err
	}

	sink, err := openAuditSink()
	if err != nil {
		return err
	}
	defer sink.Close()

	return runAuditQuery(cmd, sink, query, format)
}

func runAuditQuery(cmd *cobra.Command, sink audit.Sink, query *audit.Query, format cli.OutputFormat) error {
	ctx := commandContext(cmd)

	out, closeOut, err := auditOutput(cmd)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	defer closeOut()

	if auditFlags.count {
		n, err := sink.Count(ctx, query)
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}
		_, err = fmt.Fprintln(out, n)
		return err
	}

	entries, err := sink.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	if format == cli.FormatJSON {
		if err := audit.ExportJSON(out, entries, true); err != nil {
			return cli.NewCommandError("audit query", err)
		}
		return nil
	}
	return writeEntryTable(out, entries)
}

func writeEntryTable(w io.Writer, entries []*audit.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIRED AT\tEVENT\tAUTHORITY\tVERSION\tTRIGGER\tSEVERITY\tOUTCOME\tREASON")
	for _, e := range entries {
		reason := e.SuppressionReason
		if e.Error != "" {
			reason = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			e.FiredAt.UTC().Format(time.RFC3339), e.EventID, e.AuthorityID, e.Version,
			e.TriggerID, e.Severity, e.Outcome, reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d entries\n", len(entries))
	return err
}

func exportAudit(cmd *cobra.Command, args []string) error {
	query, err := buildAuditQuery(time.Now().UTC())
	if err != nil {
		return err
	}

	sink, err := openAuditSink()
	if err != nil {
		return err
	}
	defer sink.Close()

	out, closeOut, err := auditOutput(cmd)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}
	defer closeOut()

	n, err := audit.Export(commandContext(cmd), sink, query, auditFlags.exportFormat, out)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if auditFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d entries to %s\n", n, auditFlags.output)
	}
	return nil
}
