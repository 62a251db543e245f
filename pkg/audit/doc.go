// Package audit provides the append-only audit log for routing decisions.
//
// Every RouteResult produced for an envelope becomes one Entry, whether it was
// delivered, suppressed or held back by the dispatch severity floor. Entries
// carry the serialized explanation of the evaluation (matched terms,
// discriminators and per-evaluator evidence) so a reviewer can reconstruct why
// a trigger fired.
//
// # Sinks
//
// MemorySink keeps entries in process and is used by tests and one-shot CLI
// runs. SQLiteSink persists entries with mattn/go-sqlite3; the table is guarded
// by triggers that abort any UPDATE or DELETE.
//
// # Recording
//
// Recorder wraps a Sink with an optional asynchronous queue:
//
//	rec := audit.NewRecorder(sink, audit.DefaultRecorderConfig(), logger)
//	defer rec.Close()
//
//	entry, _ := audit.NewEntry(result, audit.OutcomeDelivered)
//	if err := rec.Record(ctx, entry); err != nil {
//	    // queue full or sink failure
//	}
//
// Close drains queued entries before returning.
//
// # Export
//
// ExportJSON and ExportCSV write query results for offline review.
package audit
