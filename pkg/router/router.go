package router

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mercator-hq/beacon/pkg/envelope"
	"mercator-hq/beacon/pkg/rules/engine"
	"mercator-hq/beacon/pkg/rules/schema"
	"mercator-hq/beacon/pkg/suppression"
	"mercator-hq/beacon/pkg/telemetry/tracing"
)

// DefaultWorkers is the RouteBatch concurrency when none is given.
const DefaultWorkers = 4

// Router evaluates envelopes against the loaded categories and reports which
// triggers fire and whether each is suppressed.
//
// Router holds no per-call state; the suppression manager's store is the only
// shared mutable resource. It never records fires: the caller does that after
// the alert is delivered.
type Router struct {
	categories  CategorySource
	evaluator   *engine.Evaluator
	suppression *suppression.Manager
	observer    Observer
	tracer      *tracing.Tracer
	now         func() time.Time
	logger      *slog.Logger
}

// New creates a router. A nil evaluator selects the default registry; a nil
// manager selects an in-memory one.
func New(categories CategorySource, evaluator *engine.Evaluator, manager *suppression.Manager, logger *slog.Logger) *Router {
	if evaluator == nil {
		evaluator = engine.NewEvaluator(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if manager == nil {
		manager = suppression.NewManager(nil, suppression.Config{}, logger)
	}

	return &Router{
		categories:  categories,
		evaluator:   evaluator,
		suppression: manager,
		observer:    nopObserver{},
		tracer:      tracing.New(),
		now:         time.Now,
		logger:      logger.With("component", "router"),
	}
}

// WithObserver sets the observer notified of routing outcomes.
func (r *Router) WithObserver(observer Observer) *Router {
	if observer != nil {
		r.observer = observer
	}
	return r
}

// WithTracer sets the tracer used for route spans.
func (r *Router) WithTracer(tracer *tracing.Tracer) *Router {
	if tracer != nil {
		r.tracer = tracer
	}
	return r
}

// WithClock sets the clock used for RouteResult.RoutedAt.
func (r *Router) WithClock(now func() time.Time) *Router {
	if now != nil {
		r.now = now
	}
	return r
}

// Suppression returns the manager the router checks against.
func (r *Router) Suppression() *suppression.Manager {
	return r.suppression
}

// Route evaluates env against every category, indicator and trigger in load
// order and returns one RouteResult per passing trigger that has a routing rule.
//
// A failing indicator gate skips that indicator's triggers. A trigger without
// a routing rule is skipped silently. Evaluation and suppression-store errors
// are collected as RouteErrors; the remaining triggers are still evaluated and
// the results gathered so far are returned alongside the joined error.
func (r *Router) Route(ctx context.Context, env *envelope.Envelope) ([]RouteResult, error) {
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, tracing.SpanRoute,
		trace.WithAttributes(tracing.EnvelopeAttributes(env.EventID(), env.AuthorityID(), env.Version())...),
	)
	defer span.End()

	results := make([]RouteResult, 0)
	var errs []error

	for _, category := range r.categories.Categories() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		for _, indicator := range category.Indicators {
			if indicator.Condition != nil {
				gate, err := r.evaluator.Evaluate(indicator.Condition, env, indicator.IndicatorID)
				if err != nil {
					errs = append(errs, &RouteError{
						CategoryID:  category.CategoryID,
						IndicatorID: indicator.IndicatorID,
						Cause:       err,
					})
					continue
				}
				if !gate.Passed {
					continue
				}
			}

			for _, trigger := range indicator.Triggers {
				result, err := r.routeTrigger(ctx, span, env, category, indicator, trigger)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if result != nil {
					results = append(results, *result)
				}
			}
		}
	}

	err := errors.Join(errs...)
	span.SetAttributes(attribute.Int(tracing.AttrResultCount, len(results)))
	tracing.SetStatus(span, err)
	if err != nil {
		tracing.SetError(span, err)
	}
	r.observer.RouteCompleted(time.Since(start), len(results), err)

	r.logger.Debug("Envelope routed",
		"event_id", env.EventID(),
		"authority_id", env.AuthorityID(),
		"results", len(results),
		"duration", time.Since(start),
	)

	return results, err
}

func (r *Router) routeTrigger(
	ctx context.Context,
	span trace.Span,
	env *envelope.Envelope,
	category *schema.CategorySchema,
	indicator *schema.Indicator,
	trigger *schema.Trigger,
) (*RouteResult, error) {
	routeErr := func(err error) error {
		return &RouteError{
			CategoryID:  category.CategoryID,
			IndicatorID: indicator.IndicatorID,
			TriggerID:   trigger.TriggerID,
			Cause:       err,
		}
	}

	eval, err := r.evaluator.Evaluate(trigger.Condition, env, trigger.TriggerID)
	if err != nil {
		r.observer.TriggerEvaluated(category.CategoryID, trigger.TriggerID, false)
		return nil, routeErr(err)
	}

	r.observer.TriggerEvaluated(category.CategoryID, trigger.TriggerID, eval.Passed)
	tracing.AddEvent(span, tracing.EventTriggerEvaluated,
		tracing.TriggerAttributes(category.CategoryID, indicator.IndicatorID, trigger.TriggerID, eval.Passed)...)

	if !eval.Passed {
		return nil, nil
	}

	rule, ok := category.FindRoutingRule(trigger.TriggerID)
	if !ok {
		r.logger.Debug("Trigger passed without routing rule, skipping",
			"category_id", category.CategoryID,
			"trigger_id", trigger.TriggerID,
		)
		return nil, nil
	}

	decision, err := r.suppression.Check(ctx,
		trigger.TriggerID,
		env.AuthorityID(),
		env.Version(),
		rule.Suppression.CooldownMinutes,
		rule.Suppression.VersionAware,
	)
	if err != nil {
		return nil, routeErr(err)
	}
	if decision.Suppressed {
		r.observer.RouteSuppressed(trigger.TriggerID, decision.Reason)
	}

	return &RouteResult{
		CategoryID:          category.CategoryID,
		IndicatorID:         indicator.IndicatorID,
		TriggerID:           trigger.TriggerID,
		EventID:             env.EventID(),
		AuthorityID:         env.AuthorityID(),
		Version:             env.Version(),
		Severity:            rule.Severity,
		Actions:             append([]string{}, rule.Actions...),
		HumanReviewRequired: rule.HumanReviewRequired,
		Suppression:         rule.Suppression,
		Evaluation:          eval,
		Suppressed:          decision.Suppressed,
		SuppressionReason:   decision.Reason,
		RoutedAt:            r.now().UTC(),
	}, nil
}

// RouteBatch routes envelopes concurrently with at most workers in flight.
// Results are returned in input order; per-envelope errors are reported in
// BatchResult.Err. The returned error is non-nil only when ctx is cancelled.
func (r *Router) RouteBatch(ctx context.Context, envelopes []*envelope.Envelope, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	ctx, span := r.tracer.Start(ctx, tracing.SpanRouteBatch,
		trace.WithAttributes(attribute.Int(tracing.AttrBatchSize, len(envelopes))),
	)
	defer span.End()

	out := make([]BatchResult, len(envelopes))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, env := range envelopes {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				out[i] = BatchResult{Envelope: env, Err: err}
				return err
			}
			results, err := r.Route(gCtx, env)
			out[i] = BatchResult{Envelope: env, Results: results, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		tracing.SetError(span, err)
		return out, err
	}
	return out, nil
}
