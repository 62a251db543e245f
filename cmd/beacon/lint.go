package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/beacon/pkg/cli"
	rulesErrors "mercator-hq/beacon/pkg/rules/errors"
	"mercator-hq/beacon/pkg/rules/parser"
	"mercator-hq/beacon/pkg/rules/schema"
)

var lintFlags struct {
	rules    string
	maxDepth int
	format   string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate category rule files",
	Long: `Validate category rule files without routing anything.

Every category is compiled the way the router loads it:
  - YAML syntax
  - Required fields, duplicate ids, severities and cooldowns
  - Routing rules referencing unknown triggers
  - Evaluator names against the whitelist
  - Expression shape and nesting depth

A category with any error is rejected as a whole. The command exits with
status 3 when at least one category is rejected.

Examples:
  # Lint a rules directory
  beacon lint --rules ./rules

  # JSON output for CI
  beacon lint --rules ./rules --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.rules, "rules", "r", "", "rule file or directory (defaults to rules.path from config)")
	lintCmd.Flags().IntVar(&lintFlags.maxDepth, "max-depth", 0, "maximum expression depth (defaults to rules.max_depth from config)")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintReport is the result of linting a rules path.
type LintReport struct {
	Path     string         `json:"path"`
	Valid    bool           `json:"valid"`
	Loaded   []LintCategory `json:"loaded"`
	Problems []LintProblem  `json:"problems,omitempty"`
}

// LintCategory describes a category that compiled cleanly.
type LintCategory struct {
	CategoryID string `json:"category_id"`
	Source     string `json:"source"`
	Triggers   int    `json:"triggers"`
	Routes     int    `json:"routes"`

	// Warnings name fields that will fail at evaluation time.
	Warnings []schema.FieldWarning `json:"warnings,omitempty"`
}

// LintProblem is one configuration error.
type LintProblem struct {
	Type       string `json:"type"`
	Category   string `json:"category,omitempty"`
	Source     string `json:"source,omitempty"`
	Rule       string `json:"rule,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// WriteText implements cli.TextWriter.
func (r *LintReport) WriteText(w io.Writer) error {
	for _, c := range r.Loaded {
		fmt.Fprintf(w, "✓ %s (%s): %d triggers, %d routes\n", c.CategoryID, c.Source, c.Triggers, c.Routes)
		for _, warn := range c.Warnings {
			fmt.Fprintf(w, "  ! field %q is outside the access policy; %s\n", warn.Field, warn.Suggestion)
		}
	}
	for _, p := range r.Problems {
		name := p.Category
		if name == "" {
			name = "<unnamed>"
		}
		fmt.Fprintf(w, "✗ %s", name)
		if p.Source != "" {
			fmt.Fprintf(w, " (%s)", p.Source)
		}
		fmt.Fprintf(w, ": [%s]", p.Type)
		if p.Rule != "" {
			fmt.Fprintf(w, " %s:", p.Rule)
		}
		fmt.Fprintf(w, " %s\n", p.Message)
		if p.Suggestion != "" {
			fmt.Fprintf(w, "    suggestion: %s\n", p.Suggestion)
		}
	}

	_, err := fmt.Fprintf(w, "\n%d categories loaded, %d problems\n", len(r.Loaded), len(r.Problems))
	return err
}

func lintRules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(lintFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	path := lintFlags.rules
	maxDepth := lintFlags.maxDepth
	if path == "" || maxDepth == 0 {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		if path == "" {
			path = cfg.Rules.Path
		}
		if maxDepth == 0 {
			maxDepth = cfg.Rules.MaxDepth
		}
	}
	if maxDepth <= 0 {
		maxDepth = parser.DefaultMaxDepth
	}

	report, err := lintPath(path, maxDepth)
	if err != nil {
		return cli.NewCommandError("lint", err)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report); err != nil {
		return cli.NewCommandError("lint", err)
	}

	if !report.Valid {
		return cli.NewInvalidError("lint", fmt.Errorf("%d problems in %s", len(report.Problems), path))
	}
	return nil
}

// lintPath compiles every category under path. Only a path that cannot be read
// is returned as an error; configuration problems go in the report.
func lintPath(path string, maxDepth int) (*LintReport, error) {
	loader := schema.NewLoader(
		schema.NewFileSource(path),
		schema.LoaderConfig{MaxDepth: maxDepth},
		slog.New(slog.DiscardHandler),
	)

	schemas, err := loader.LoadAll()

	report := &LintReport{Path: path, Loaded: []LintCategory{}}
	if err != nil {
		var list *rulesErrors.ErrorList
		if !errors.As(err, &list) {
			return nil, err
		}
		for _, e := range list.Errors {
			report.Problems = append(report.Problems, LintProblem{
				Type:       string(e.Type),
				Category:   e.Category,
				Source:     e.Source,
				Rule:       e.Rule,
				Message:    e.Message,
				Suggestion: e.Suggestion,
			})
		}
	}

	for _, s := range schemas {
		report.Loaded = append(report.Loaded, LintCategory{
			CategoryID: s.CategoryID,
			Source:     s.Source,
			Triggers:   s.TriggerCount(),
			Routes:     len(s.Routing),
			Warnings:   s.FieldWarnings(),
		})
	}
	report.Valid = len(report.Problems) == 0
	return report, nil
}
