package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// AsyncBuffer is the size of the write queue. Zero makes Record write
	// synchronously.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each sink write, and how long Record waits for
	// queue space.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// FailureObserver is told about entries that could not be written.
type FailureObserver interface {
	AuditWriteFailed()
}

// Recorder writes entries to a Sink, optionally through a background queue so
// callers on the routing path do not block on storage.
type Recorder struct {
	sink     Sink
	config   RecorderConfig
	queue    chan *Entry
	wg       sync.WaitGroup
	done     chan struct{}
	once     sync.Once
	observer FailureObserver
	logger   *slog.Logger
}

// NewRecorder creates a recorder over sink and starts its worker when the
// configuration is asynchronous.
func NewRecorder(sink Sink, config RecorderConfig, logger *slog.Logger) *Recorder {
	if config.AsyncBuffer < 0 {
		config.AsyncBuffer = 0
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		sink:   sink,
		config: config,
		done:   make(chan struct{}),
		logger: logger.With("component", "audit.recorder"),
	}

	if config.AsyncBuffer > 0 {
		r.queue = make(chan *Entry, config.AsyncBuffer)
		r.wg.Add(1)
		go r.worker()
	}

	r.logger.Info("Audit recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// WithObserver sets the observer notified of write failures.
func (r *Recorder) WithObserver(observer FailureObserver) *Recorder {
	r.observer = observer
	return r
}

// Sink returns the underlying sink.
func (r *Recorder) Sink() Sink {
	return r.sink
}

// Record writes entry, or enqueues it when the recorder is asynchronous. In
// asynchronous mode a returned nil means the entry was queued, not stored.
func (r *Recorder) Record(ctx context.Context, entry *Entry) error {
	prepare(entry)

	if r.queue == nil {
		return r.write(ctx, entry)
	}

	select {
	case <-r.done:
		r.failed()
		return &RecorderError{EntryID: entry.ID, Cause: context.Canceled}
	default:
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.queue <- entry:
		return nil
	case <-timer.C:
		r.logger.Error("Audit queue full, dropping entry",
			"entry_id", entry.ID,
			"trigger_id", entry.TriggerID,
			"queue_capacity", r.config.AsyncBuffer,
		)
		r.failed()
		return &RecorderError{EntryID: entry.ID, Cause: context.DeadlineExceeded}
	case <-ctx.Done():
		r.failed()
		return &RecorderError{EntryID: entry.ID, Cause: ctx.Err()}
	case <-r.done:
		r.failed()
		return &RecorderError{EntryID: entry.ID, Cause: context.Canceled}
	}
}

// Close drains the queue and waits for pending writes. It does not close the
// sink.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.logger.Info("Audit recorder shut down")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case entry := <-r.queue:
			_ = r.write(context.Background(), entry)

		case <-r.done:
			for {
				select {
				case entry := <-r.queue:
					_ = r.write(context.Background(), entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(ctx context.Context, entry *Entry) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.WriteTimeout)
	defer cancel()

	if err := r.sink.Append(ctx, entry); err != nil {
		r.logger.Error("Failed to write audit entry",
			"entry_id", entry.ID,
			"event_id", entry.EventID,
			"trigger_id", entry.TriggerID,
			"error", err,
		)
		r.failed()
		return &RecorderError{EntryID: entry.ID, Cause: err}
	}

	r.logger.Debug("Audit entry written",
		"entry_id", entry.ID,
		"trigger_id", entry.TriggerID,
		"outcome", entry.Outcome,
	)
	return nil
}

func (r *Recorder) failed() {
	if r.observer != nil {
		r.observer.AuditWriteFailed()
	}
}
