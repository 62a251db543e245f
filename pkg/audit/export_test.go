package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExportJSON(t *testing.T) {
	tests := []struct {
		name    string
		entries []*Entry
		pretty  bool
		wantLen int
	}{
		{"nil", nil, false, 0},
		{"empty", []*Entry{}, true, 0},
		{"two", []*Entry{testEntry(1, nil), testEntry(2, nil)}, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, e := range tt.entries {
				prepare(e)
			}

			var buf bytes.Buffer
			if err := ExportJSON(&buf, tt.entries, tt.pretty); err != nil {
				t.Fatalf("ExportJSON() error = %v", err)
			}

			trimmed := strings.TrimSpace(buf.String())
			if !strings.HasPrefix(trimmed, "[") {
				t.Fatalf("output is not an array: %s", trimmed)
			}

			var decoded []Entry
			if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
				t.Fatalf("output does not decode: %v", err)
			}
			if len(decoded) != tt.wantLen {
				t.Errorf("decoded %d entries, want %d", len(decoded), tt.wantLen)
			}
		})
	}
}

func TestExportCSV(t *testing.T) {
	entries := []*Entry{
		testEntry(1, func(e *Entry) { e.ID = "a" }),
		testEntry(2, func(e *Entry) {
			e.ID = "b"
			e.Outcome = OutcomeFailed
			e.Error = `webhook said "no", twice`
		}),
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, entries); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(records))
	}
	if diff := cmp.Diff(csvHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	last := records[2]
	if last[0] != "b" || last[11] != "failed" || last[12] != `webhook said "no", twice` {
		t.Errorf("row = %v", last)
	}
	if last[8] != "2026-03-04T10:02:00Z" {
		t.Errorf("fired_at = %q", last[8])
	}
}

func TestExport(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()
	seed(t, sink)

	tests := []struct {
		name    string
		format  string
		wantN   int
		wantErr bool
	}{
		{"default json", "", 5, false},
		{"csv", "csv", 5, false},
		{"unknown", "xml", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := Export(ctx, sink, nil, tt.format, &buf)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Export() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.wantN {
				t.Errorf("Export() n = %d, want %d", n, tt.wantN)
			}
			if tt.wantErr {
				var exportErr *ExportError
				if !errors.As(err, &exportErr) || exportErr.Format != tt.format {
					t.Errorf("Export() error = %v, want ExportError", err)
				}
			}
		})
	}
}
