package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mercator-hq/beacon/pkg/audit"
	"mercator-hq/beacon/pkg/envelope"
	"mercator-hq/beacon/pkg/router"
	"mercator-hq/beacon/pkg/rules/schema"
	"mercator-hq/beacon/pkg/suppression"
	"mercator-hq/beacon/pkg/telemetry/tracing"
)

// DefaultWorkers is the dispatch concurrency when none is configured.
const DefaultWorkers = 4

// Config configures a Dispatcher.
type Config struct {
	// MinSeverity is the lowest severity that is sent to the notifier.
	// Results below it are audited as below_threshold.
	// Default: medium
	MinSeverity schema.Severity

	// Workers bounds concurrent deliveries.
	// Default: 4
	Workers int
}

// Observer receives dispatch outcomes. The metrics collector implements it.
type Observer interface {
	DispatchCompleted(notifier string, outcome audit.Outcome)
}

type nopObserver struct{}

func (nopObserver) DispatchCompleted(string, audit.Outcome) {}

// Delivery is the outcome of dispatching one RouteResult.
type Delivery struct {
	Result  router.RouteResult
	Outcome audit.Outcome
	AlertID string // empty when no alert was sent
	Err     error
}

// Dispatcher audits every RouteResult and sends unsuppressed results at or
// above the severity floor to its Notifier. A fire is recorded only after the
// notifier accepts the alert.
type Dispatcher struct {
	notifier    Notifier
	suppression *suppression.Manager
	recorder    *audit.Recorder
	config      Config
	observer    Observer
	tracer      *tracing.Tracer
	logger      *slog.Logger
}

// New creates a dispatcher. A nil notifier logs alerts; a nil recorder audits
// into memory.
func New(notifier Notifier, manager *suppression.Manager, recorder *audit.Recorder, config Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if manager == nil {
		manager = suppression.NewManager(nil, suppression.Config{}, logger)
	}
	if recorder == nil {
		recorder = audit.NewRecorder(audit.NewMemorySink(), audit.RecorderConfig{}, logger)
	}
	if config.MinSeverity == "" {
		config.MinSeverity = schema.SeverityMedium
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}

	return &Dispatcher{
		notifier:    notifier,
		suppression: manager,
		recorder:    recorder,
		config:      config,
		observer:    nopObserver{},
		tracer:      tracing.New(),
		logger:      logger.With("component", "dispatch"),
	}
}

// WithObserver sets the observer notified of dispatch outcomes.
func (d *Dispatcher) WithObserver(observer Observer) *Dispatcher {
	if observer != nil {
		d.observer = observer
	}
	return d
}

// WithTracer sets the tracer used for dispatch spans.
func (d *Dispatcher) WithTracer(tracer *tracing.Tracer) *Dispatcher {
	if tracer != nil {
		d.tracer = tracer
	}
	return d
}

// Dispatch handles the results routed from env. Deliveries are returned in
// the order of results. The error joins notifier, suppression and audit
// failures; a failed delivery does not stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, env *envelope.Envelope, results []router.RouteResult) ([]Delivery, error) {
	deliveries := make([]Delivery, len(results))
	errs := make([]error, len(results))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Workers)
	for i, result := range results {
		g.Go(func() error {
			deliveries[i], errs[i] = d.dispatchOne(gCtx, env, result)
			return nil
		})
	}
	_ = g.Wait()

	return deliveries, errors.Join(errs...)
}

// DispatchBatch dispatches the results of every successfully routed envelope
// in batch, in order.
func (d *Dispatcher) DispatchBatch(ctx context.Context, batch []router.BatchResult) ([]Delivery, error) {
	var (
		all  []Delivery
		errs []error
	)
	for _, br := range batch {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if len(br.Results) == 0 {
			continue
		}
		deliveries, err := d.Dispatch(ctx, br.Envelope, br.Results)
		all = append(all, deliveries...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return all, errors.Join(errs...)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, env *envelope.Envelope, result router.RouteResult) (Delivery, error) {
	ctx, span := d.tracer.Start(ctx, tracing.SpanDispatch,
		trace.WithAttributes(tracing.EnvelopeAttributes(result.EventID, result.AuthorityID, result.Version)...),
		trace.WithAttributes(
			attribute.String(tracing.AttrCategory, result.CategoryID),
			attribute.String(tracing.AttrTrigger, result.TriggerID),
			attribute.String(tracing.AttrSeverity, string(result.Severity)),
			attribute.String(tracing.AttrNotifier, d.notifier.Name()),
		),
	)
	defer span.End()

	delivery := d.deliver(ctx, env, result)

	var errs []error
	if delivery.Err != nil {
		errs = append(errs, delivery.Err)
	}
	if err := d.audit(ctx, delivery); err != nil {
		errs = append(errs, err)
	}

	d.observer.DispatchCompleted(d.notifier.Name(), delivery.Outcome)
	span.SetAttributes(
		attribute.String(tracing.AttrDispatchStatus, string(delivery.Outcome)),
		attribute.Bool(tracing.AttrSuppressed, delivery.Result.Suppressed),
	)

	err := errors.Join(errs...)
	tracing.SetStatus(span, err)
	if err != nil {
		tracing.SetError(span, err)
	}
	return delivery, err
}

func (d *Dispatcher) deliver(ctx context.Context, env *envelope.Envelope, result router.RouteResult) Delivery {
	delivery := Delivery{Result: result}

	if result.Suppressed {
		delivery.Outcome = audit.OutcomeSuppressed
		return delivery
	}
	if !result.Severity.AtLeast(d.config.MinSeverity) {
		delivery.Outcome = audit.OutcomeBelowThreshold
		return delivery
	}

	unlock := d.suppression.Lock(result.TriggerID, result.AuthorityID)
	defer unlock()

	// Another delivery for the same key may have fired since routing.
	decision, err := d.suppression.Check(ctx,
		result.TriggerID,
		result.AuthorityID,
		result.Version,
		result.Suppression.CooldownMinutes,
		result.Suppression.VersionAware,
	)
	if err != nil {
		delivery.Outcome = audit.OutcomeFailed
		delivery.Err = fmt.Errorf("trigger %s: recheck suppression: %w", result.TriggerID, err)
		return delivery
	}
	if decision.Suppressed {
		delivery.Result.Suppressed = true
		delivery.Result.SuppressionReason = decision.Reason
		delivery.Outcome = audit.OutcomeSuppressed
		return delivery
	}

	alert := NewAlert(env, result)
	delivery.AlertID = alert.ID

	if err := d.notifier.Notify(ctx, alert); err != nil {
		d.logger.Warn("Alert delivery failed",
			"dispatch_id", alert.ID,
			"event_id", result.EventID,
			"trigger_id", result.TriggerID,
			"notifier", d.notifier.Name(),
			"error", err,
		)
		delivery.Outcome = audit.OutcomeFailed
		delivery.Err = fmt.Errorf("trigger %s: notify %s: %w", result.TriggerID, d.notifier.Name(), err)
		return delivery
	}

	delivery.Outcome = audit.OutcomeDelivered
	if err := d.suppression.RecordFire(ctx,
		result.TriggerID,
		result.AuthorityID,
		result.Version,
		result.Suppression.CooldownMinutes,
	); err != nil {
		d.logger.Error("Failed to record fire after delivery",
			"dispatch_id", alert.ID,
			"trigger_id", result.TriggerID,
			"authority_id", result.AuthorityID,
			"error", err,
		)
		delivery.Err = fmt.Errorf("trigger %s: record fire: %w", result.TriggerID, err)
	}

	d.logger.Debug("Alert delivered",
		"dispatch_id", alert.ID,
		"event_id", result.EventID,
		"trigger_id", result.TriggerID,
		"severity", result.Severity,
	)
	return delivery
}

func (d *Dispatcher) audit(ctx context.Context, delivery Delivery) error {
	entry, err := audit.NewEntry(delivery.Result, delivery.Outcome)
	if err != nil {
		return fmt.Errorf("trigger %s: build audit entry: %w", delivery.Result.TriggerID, err)
	}
	if delivery.Err != nil {
		entry.Error = delivery.Err.Error()
	}
	if err := d.recorder.Record(ctx, entry); err != nil {
		return fmt.Errorf("trigger %s: %w", delivery.Result.TriggerID, err)
	}
	return nil
}
