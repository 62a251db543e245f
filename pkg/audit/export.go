package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"
)

// ExportJSON writes entries to w as a JSON array. An empty slice writes "[]".
func ExportJSON(w io.Writer, entries []*Entry, pretty bool) error {
	if entries == nil {
		entries = []*Entry{}
	}

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(entries); err != nil {
		return &ExportError{Format: "json", EntryCount: len(entries), Cause: err}
	}
	return nil
}

var csvHeader = []string{
	"id", "event_id", "authority_id", "version",
	"category_id", "indicator_id", "trigger_id", "severity",
	"fired_at", "suppressed", "suppression_reason", "outcome", "error",
}

// ExportCSV writes entries to w as CSV with a header row. The explanation is
// omitted; use JSON export for evidence.
func ExportCSV(w io.Writer, entries []*Entry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return &ExportError{Format: "csv", EntryCount: len(entries), Cause: err}
	}

	for _, e := range entries {
		row := []string{
			e.ID, e.EventID, e.AuthorityID, strconv.Itoa(e.Version),
			e.CategoryID, e.IndicatorID, e.TriggerID, e.Severity,
			e.FiredAt.UTC().Format(time.RFC3339Nano), strconv.FormatBool(e.Suppressed),
			e.SuppressionReason, string(e.Outcome), e.Error,
		}
		if err := writer.Write(row); err != nil {
			return &ExportError{Format: "csv", EntryCount: len(entries), Cause: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &ExportError{Format: "csv", EntryCount: len(entries), Cause: err}
	}
	return nil
}

// Export queries sink and writes the matching entries in format ("json" or
// "csv").
func Export(ctx context.Context, sink Sink, query *Query, format string, w io.Writer) (int, error) {
	entries, err := sink.Query(ctx, query)
	if err != nil {
		return 0, err
	}

	switch format {
	case "", "json":
		err = ExportJSON(w, entries, true)
	case "csv":
		err = ExportCSV(w, entries)
	default:
		err = &ExportError{Format: format, EntryCount: len(entries), Cause: errUnknownFormat}
	}
	return len(entries), err
}
