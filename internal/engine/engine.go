// Package engine reconciles marketplace snapshots against the listing
// history and dispatches alerts for the transitions it finds.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/float-tracker/internal/csfloat"
	"github.com/donaldgifford/float-tracker/internal/dedup"
	"github.com/donaldgifford/float-tracker/internal/history"
	"github.com/donaldgifford/float-tracker/internal/metrics"
	"github.com/donaldgifford/float-tracker/internal/notify"
	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// RateSource provides the current USD to display-currency rate.
type RateSource interface {
	Get() float64
}

// Phase is the engine's position in the poll loop.
type Phase string

// Phases.
const (
	PhaseIdle        Phase = "idle"
	PhaseFetching    Phase = "fetching"
	PhaseReconciling Phase = "reconciling"
	PhaseSleeping    Phase = "sleeping"
)

// OutcomeStatus reports whether a target was processed.
type OutcomeStatus string

// Outcome statuses.
const (
	StatusOK      OutcomeStatus = "ok"
	StatusSkipped OutcomeStatus = "skipped"
)

// TargetOutcome summarizes one target within a cycle.
type TargetOutcome struct {
	Target    string        `json:"target"`
	Status    OutcomeStatus `json:"status"`
	Observed  int           `json:"observed"`
	New       int           `json:"new"`
	Changed   int           `json:"changed"`
	Alerts    int           `json:"alerts"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
	Err       error         `json:"-"`
	Persisted bool          `json:"persisted"`
}

// Status is a point-in-time view of the engine.
type Status struct {
	Phase         Phase           `json:"phase"`
	CurrentTarget string          `json:"current_target,omitempty"`
	LastCycleAt   time.Time       `json:"last_cycle_at"`
	Cycles        int64           `json:"cycles"`
	LastOutcomes  []TargetOutcome `json:"last_outcomes"`
	Rate          float64         `json:"rate"`
	Listings      int             `json:"listings"`
}

// Engine runs reconciliation cycles over the watch-list. It is the only
// writer of the history store.
type Engine struct {
	store    *history.Store
	client   csfloat.Client
	notifier notify.Notifier
	rate     RateSource
	reserver dedup.Reserver
	targets  []domain.WatchTarget
	log      *slog.Logger

	nowFunc       func() time.Time
	staggerOffset time.Duration

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	outcomeCounter metric.Int64Counter

	// cycleMu keeps cycles sequential when RunCycle is called directly.
	cycleMu sync.Mutex

	statusMu      sync.RWMutex
	phase         Phase
	currentTarget string
	lastCycleAt   time.Time
	cycles        int64
	lastOutcomes  []TargetOutcome
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s *history.Store,
	c csfloat.Client,
	n notify.Notifier,
	r RateSource,
	targets []domain.WatchTarget,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:    s,
		client:   c,
		notifier: n,
		rate:     r,
		reserver: dedup.Noop{},
		targets:  targets,
		log:      slog.Default(),
		nowFunc:  time.Now,
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(eng)
	}
	eng.initTelemetry()
	return eng
}

const instrumentationName = "github.com/donaldgifford/float-tracker/internal/engine"

func (eng *Engine) initTelemetry() {
	if eng.tracerProvider == nil {
		eng.tracerProvider = otel.GetTracerProvider()
	}
	if eng.meterProvider == nil {
		eng.meterProvider = otel.GetMeterProvider()
	}
	eng.tracer = eng.tracerProvider.Tracer(instrumentationName)

	counter, err := eng.meterProvider.Meter(instrumentationName).Int64Counter(
		"float_tracker.target.outcomes",
		metric.WithDescription("Processed watch targets by target and outcome status."),
	)
	if err != nil {
		eng.log.Warn("creating target outcome counter", "error", err)
	}
	eng.outcomeCounter = counter
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithStaggerOffset sets the delay between processing each target.
func WithStaggerOffset(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.staggerOffset = d
	}
}

// WithNowFunc overrides the clock used for history timestamps.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// WithReserver guards alerts with a dedup reservation.
func WithReserver(r dedup.Reserver) EngineOption {
	return func(e *Engine) {
		e.reserver = r
	}
}

// WithTracerProvider sets the provider for cycle and target spans. The
// global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) {
		e.tracerProvider = tp
	}
}

// WithMeterProvider sets the provider for the per-target outcome counter.
// The global provider is used by default.
func WithMeterProvider(mp metric.MeterProvider) EngineOption {
	return func(e *Engine) {
		e.meterProvider = mp
	}
}

// Targets returns the configured watch-list.
func (eng *Engine) Targets() []domain.WatchTarget {
	out := make([]domain.WatchTarget, len(eng.targets))
	copy(out, eng.targets)
	return out
}

// Status returns the current phase and the outcomes of the last cycle.
func (eng *Engine) Status() Status {
	eng.statusMu.RLock()
	defer eng.statusMu.RUnlock()

	outcomes := make([]TargetOutcome, len(eng.lastOutcomes))
	copy(outcomes, eng.lastOutcomes)

	return Status{
		Phase:         eng.phase,
		CurrentTarget: eng.currentTarget,
		LastCycleAt:   eng.lastCycleAt,
		Cycles:        eng.cycles,
		LastOutcomes:  outcomes,
		Rate:          eng.rate.Get(),
		Listings:      eng.store.Len(),
	}
}

// Phase returns the current phase and target, if any.
func (eng *Engine) Phase() (Phase, string) {
	eng.statusMu.RLock()
	defer eng.statusMu.RUnlock()
	return eng.phase, eng.currentTarget
}

func (eng *Engine) setPhase(p Phase, target string) {
	eng.statusMu.Lock()
	eng.phase = p
	eng.currentTarget = target
	eng.statusMu.Unlock()
}

// RunCycle processes every target once, in order. A failing target is
// skipped and reported in its outcome; it never aborts the cycle. RunCycle
// returns early only when ctx is done.
func (eng *Engine) RunCycle(ctx context.Context) []TargetOutcome {
	eng.cycleMu.Lock()
	defer eng.cycleMu.Unlock()

	ctx, span := eng.tracer.Start(ctx, "engine.cycle",
		trace.WithAttributes(attribute.Int("targets", len(eng.targets))))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.CyclesTotal.Inc()
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	outcomes := make([]TargetOutcome, 0, len(eng.targets))

	for i := range eng.targets {
		if ctx.Err() != nil {
			break
		}

		outcomes = append(outcomes, eng.ProcessTarget(ctx, &eng.targets[i]))

		// Stagger between targets to avoid API bursts.
		if i < len(eng.targets)-1 && eng.staggerOffset > 0 {
			eng.setPhase(PhaseSleeping, "")
			select {
			case <-ctx.Done():
			case <-time.After(eng.staggerOffset):
			}
		}
	}

	eng.statusMu.Lock()
	eng.phase = PhaseSleeping
	eng.currentTarget = ""
	eng.lastCycleAt = eng.nowFunc()
	eng.lastOutcomes = outcomes
	eng.cycles++
	eng.statusMu.Unlock()

	return outcomes
}

// ProcessTarget fetches one target's listings, reconciles each against
// history, notifies alert-worthy transitions, and persists once if anything
// changed.
func (eng *Engine) ProcessTarget(ctx context.Context, t *domain.WatchTarget) TargetOutcome {
	ctx, span := eng.tracer.Start(ctx, "engine.target",
		trace.WithAttributes(attribute.String("target", t.Name)))
	defer span.End()

	out := eng.processTarget(ctx, t)

	span.SetAttributes(
		attribute.String("status", string(out.Status)),
		attribute.Int("observed", out.Observed),
		attribute.Int("alerts", out.Alerts),
	)
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "fetch failed")
	}
	if eng.outcomeCounter != nil {
		eng.outcomeCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("target", t.Name),
			attribute.String("status", string(out.Status)),
		))
	}

	return out
}

func (eng *Engine) processTarget(ctx context.Context, t *domain.WatchTarget) TargetOutcome {
	start := time.Now()
	out := TargetOutcome{Target: t.Name, Status: StatusOK}

	eng.setPhase(PhaseFetching, t.Name)
	observations, err := eng.client.Listings(ctx, t)
	if err != nil {
		eng.log.Error("fetch failed, skipping target", "target", t.Name, "error", err)
		metrics.TargetFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		out.Status = StatusSkipped
		out.Err = err
		out.Error = err.Error()
		out.Duration = time.Since(start)
		return out
	}

	out.Observed = len(observations)
	metrics.ListingsObservedTotal.Add(float64(len(observations)))

	eng.setPhase(PhaseReconciling, t.Name)
	mutated := false
	for i := range observations {
		if eng.processObservation(ctx, t, &observations[i], &out) {
			mutated = true
		}
	}

	if mutated {
		if err := eng.store.Persist(ctx); err != nil {
			eng.log.Error("persisting history failed, keeping in-memory state",
				"target", t.Name,
				"error", err,
			)
			metrics.HistoryPersistFailuresTotal.Inc()
		} else {
			out.Persisted = true
		}
	}

	eng.log.Info("target processed",
		"target", t.Name,
		"observed", out.Observed,
		"new", out.New,
		"changed", out.Changed,
		"alerts", out.Alerts,
	)

	out.Duration = time.Since(start)
	return out
}

// processObservation applies one observation and reports whether history
// was mutated.
func (eng *Engine) processObservation(
	ctx context.Context,
	t *domain.WatchTarget,
	obs *domain.Observation,
	out *TargetOutcome,
) bool {
	var existing *domain.ListingRecord
	if rec, ok := eng.store.Lookup(t.Name, obs.ID); ok {
		existing = &rec
	}

	decision := Reconcile(t, obs, existing)
	now := eng.nowFunc()

	switch decision.Kind {
	case domain.NewListing:
		if _, existed := eng.store.GetOrCreate(t.Name, obs.ID, obs.Price, obs.FloatValue, now); existed {
			return false
		}
		out.New++
		metrics.NewListingsTotal.Inc()

		if decision.AlertWorthy {
			rate := eng.rate.Get()
			ev := &domain.NewListingEvent{
				Target:       *t,
				Observation:  *obs,
				Tier:         t.Tier,
				Note:         obs.Note,
				Rate:         rate,
				DisplayPrice: DisplayPrice(obs.Price, rate),
			}
			if eng.dispatch(ctx, "new_listing", dedup.NewListingKey(t.Name, obs.ID), func(ctx context.Context) error {
				return eng.notifier.NotifyNewListing(ctx, ev)
			}) {
				out.Alerts++
			}
		}
		return true

	case domain.PriceChanged:
		if !eng.store.RecordChange(t.Name, obs.ID, obs.Price, obs.FloatValue, now) {
			return false
		}
		out.Changed++
		metrics.PriceChangesTotal.Inc()

		rate := eng.rate.Get()
		ev := &domain.PriceChangeEvent{
			Target:      *t,
			Previous:    *existing,
			Observation: *obs,
			Tier:        t.Tier,
			Note:        obs.Note,
			Rate:        rate,
			Delta:       ComputeDelta(existing.Price, obs.Price, rate),
		}
		key := dedup.PriceChangeKey(t.Name, obs.ID, len(existing.Changes), obs.Price)
		if eng.dispatch(ctx, "price_changed", key, func(ctx context.Context) error {
			return eng.notifier.NotifyPriceChange(ctx, ev)
		}) {
			out.Alerts++
		}
		return true

	default:
		return false
	}
}

// dispatch reserves key and sends. History is already mutated when this runs,
// so a failed send is only logged.
func (eng *Engine) dispatch(
	ctx context.Context,
	kind, key string,
	send func(context.Context) error,
) bool {
	ok, err := eng.reserver.TryReserve(ctx, key)
	if err != nil {
		eng.log.Warn("dedup reservation failed, sending anyway", "key", key, "error", err)
		ok = true
	}
	if !ok {
		eng.log.Info("alert suppressed, already sent", "key", key)
		metrics.AlertsSuppressedTotal.Inc()
		return false
	}

	if err := send(ctx); err != nil {
		eng.log.Error("notification failed", "kind", kind, "key", key, "error", err)
		metrics.NotificationFailuresTotal.Inc()
		return false
	}

	metrics.AlertsFiredTotal.WithLabelValues(kind).Inc()
	return true
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, csfloat.ErrDailyLimitReached):
		return "daily_limit"
	case errors.Is(err, csfloat.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, csfloat.ErrAPI):
		return "api"
	case errors.Is(err, csfloat.ErrMissingToken):
		return "token"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "fetch"
	}
}
