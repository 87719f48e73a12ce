package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/donaldgifford/float-tracker/internal/csfloat"
	csfloatMocks "github.com/donaldgifford/float-tracker/internal/csfloat/mocks"
	"github.com/donaldgifford/float-tracker/internal/history"
	"github.com/donaldgifford/float-tracker/internal/metrics"
	notifyMocks "github.com/donaldgifford/float-tracker/internal/notify/mocks"
	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// quietLogger returns a logger that discards output for tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedRate float64

func (r fixedRate) Get() float64 { return float64(r) }

// memBackend keeps the persisted document in memory and counts saves.
type memBackend struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	saveErr error
}

func (m *memBackend) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, history.ErrNoHistory
	}
	return m.data, nil
}

func (m *memBackend) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memBackend) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// mapReserver grants each key once.
type mapReserver struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (r *mapReserver) TryReserve(_ context.Context, key string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = map[string]bool{}
	}
	if r.seen[key] {
		return false, nil
	}
	r.seen[key] = true
	return true, nil
}

var (
	m9 = domain.WatchTarget{
		Name: "★ M9 Bayonet | Crimson Web", DefIndex: 508, PaintIndex: 12,
		MaxPrice: 171600, MinFloat: 0, MaxFloat: 0.15, Tier: "T1",
	}
	karambit = domain.WatchTarget{
		Name: "★ Karambit | Crimson Web", DefIndex: 507, PaintIndex: 12,
		MaxPrice: 171600, MinFloat: 0, MaxFloat: 0.15,
	}
)

type testRig struct {
	eng      *Engine
	store    *history.Store
	backend  *memBackend
	client   *csfloatMocks.MockClient
	notifier *notifyMocks.MockNotifier
	now      time.Time
}

func newRig(t *testing.T, targets []domain.WatchTarget, opts ...EngineOption) *testRig {
	t.Helper()

	rig := &testRig{
		backend:  &memBackend{},
		client:   csfloatMocks.NewMockClient(t),
		notifier: notifyMocks.NewMockNotifier(t),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	rig.store = history.Open(context.Background(), rig.backend, history.WithLogger(quietLogger()))

	opts = append([]EngineOption{
		WithLogger(quietLogger()),
		WithNowFunc(func() time.Time { return rig.now }),
	}, opts...)
	rig.eng = NewEngine(rig.store, rig.client, rig.notifier, fixedRate(0.9), targets, opts...)
	return rig
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	assert.Equal(t, time.Duration(0), rig.eng.staggerOffset)
	assert.NotNil(t, rig.eng.log)
	assert.NotNil(t, rig.eng.reserver)

	phase, target := rig.eng.Phase()
	assert.Equal(t, PhaseIdle, phase)
	assert.Empty(t, target)
	assert.Equal(t, []domain.WatchTarget{m9}, rig.eng.Targets())
}

func TestProcessTarget_NewListings(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	note := "nice web"

	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return([]domain.Observation{
		{ID: "1", Price: 150000, FloatValue: 0.1, Note: &note}, // alert-worthy
		{ID: "2", Price: 200000, FloatValue: 0.1},              // too expensive
		{ID: "3", Price: 100000, FloatValue: 0.2},              // float out of range
	}, nil).Once()

	rig.notifier.EXPECT().NotifyNewListing(mock.Anything, mock.Anything).
		Run(func(_ context.Context, ev *domain.NewListingEvent) {
			assert.Equal(t, m9.Name, ev.Target.Name)
			assert.Equal(t, "1", ev.Observation.ID)
			assert.Equal(t, "T1", ev.Tier)
			assert.Equal(t, &note, ev.Note)
			assert.InDelta(t, 0.9, ev.Rate, 1e-12)
			assert.Equal(t, "1350.00", ev.DisplayPrice.StringFixed(2))

			// History is mutated before the notification goes out.
			_, ok := rig.store.Lookup(m9.Name, "1")
			assert.True(t, ok)
		}).
		Return(nil).Once()

	out := rig.eng.ProcessTarget(context.Background(), &m9)

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, 3, out.Observed)
	assert.Equal(t, 3, out.New)
	assert.Equal(t, 0, out.Changed)
	assert.Equal(t, 1, out.Alerts)
	assert.True(t, out.Persisted)
	assert.Equal(t, 3, rig.store.Len(), "silent new listings are still recorded")
	assert.Equal(t, 1, rig.backend.saveCount(), "one persist per batch")
}

func TestProcessTarget_PriceChange(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	rig.store.GetOrCreate(m9.Name, "1", 150000, 0.1, rig.now.Add(-time.Hour))

	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return([]domain.Observation{
		{ID: "1", Price: 135000, FloatValue: 0.1},
	}, nil).Once()

	rig.notifier.EXPECT().NotifyPriceChange(mock.Anything, mock.Anything).
		Run(func(_ context.Context, ev *domain.PriceChangeEvent) {
			assert.Equal(t, int64(150000), ev.Previous.Price)
			assert.Equal(t, int64(135000), ev.Observation.Price)
			assert.Equal(t, domain.DirectionDown, ev.Delta.Direction)
			assert.Equal(t, "1350.00", ev.Delta.Previous.StringFixed(2))
			assert.Equal(t, "1215.00", ev.Delta.Current.StringFixed(2))
			assert.Equal(t, "10.00", ev.Delta.Percent.StringFixed(2))
		}).
		Return(nil).Once()

	out := rig.eng.ProcessTarget(context.Background(), &m9)
	assert.Equal(t, 1, out.Changed)
	assert.Equal(t, 1, out.Alerts)

	rec, ok := rig.store.Lookup(m9.Name, "1")
	require.True(t, ok)
	assert.Equal(t, int64(135000), rec.Price)
	assert.Len(t, rec.Changes, 2)
	assert.Equal(t, rig.now, rec.Timestamp)
}

func TestProcessTarget_PriceRiseOutOfRangeStillAlerts(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	rig.store.GetOrCreate(m9.Name, "1", 150000, 0.1, rig.now.Add(-time.Hour))

	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return([]domain.Observation{
		{ID: "1", Price: 900000, FloatValue: 0.1},
	}, nil).Once()
	rig.notifier.EXPECT().NotifyPriceChange(mock.Anything, mock.Anything).Return(nil).Once()

	out := rig.eng.ProcessTarget(context.Background(), &m9)
	assert.Equal(t, 1, out.Alerts)
}

func TestProcessTarget_Idempotent(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	snapshot := []domain.Observation{
		{ID: "1", Price: 150000, FloatValue: 0.1},
		{ID: "2", Price: 160000, FloatValue: 0.11},
	}
	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return(snapshot, nil).Times(2)
	rig.notifier.EXPECT().NotifyNewListing(mock.Anything, mock.Anything).Return(nil).Times(2)

	first := rig.eng.ProcessTarget(context.Background(), &m9)
	assert.Equal(t, 2, first.Alerts)
	before := rig.store.Snapshot()
	saves := rig.backend.saveCount()

	rig.now = rig.now.Add(time.Minute)
	second := rig.eng.ProcessTarget(context.Background(), &m9)

	assert.Equal(t, 0, second.New)
	assert.Equal(t, 0, second.Changed)
	assert.Equal(t, 0, second.Alerts)
	assert.False(t, second.Persisted)
	assert.Equal(t, before, rig.store.Snapshot())
	assert.Equal(t, saves, rig.backend.saveCount(), "no persist without mutation")
}

func TestProcessTarget_FloatOnlyChangeIsIgnored(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	rig.store.GetOrCreate(m9.Name, "1", 150000, 0.1, rig.now)

	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return([]domain.Observation{
		{ID: "1", Price: 150000, FloatValue: 0.09},
	}, nil).Once()

	out := rig.eng.ProcessTarget(context.Background(), &m9)
	assert.Equal(t, 0, out.Changed)

	rec, _ := rig.store.Lookup(m9.Name, "1")
	assert.InDelta(t, 0.1, rec.Float, 1e-12)
}

func TestProcessTarget_FetchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{name: "malformed", err: fmt.Errorf("listing 0: %w", csfloat.ErrMalformedResponse), wantReason: "malformed"},
		{name: "api", err: fmt.Errorf("%w: code 1", csfloat.ErrAPI), wantReason: "api"},
		{name: "daily limit", err: fmt.Errorf("rate limit: %w", csfloat.ErrDailyLimitReached), wantReason: "daily_limit"},
		{name: "transport", err: errors.New("connection reset"), wantReason: "fetch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rig := newRig(t, []domain.WatchTarget{m9})
			rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			before := ptestutil.ToFloat64(metrics.TargetFailuresTotal.WithLabelValues(tt.wantReason))
			out := rig.eng.ProcessTarget(context.Background(), &m9)

			assert.Equal(t, StatusSkipped, out.Status)
			require.ErrorIs(t, out.Err, tt.err)
			assert.Equal(t, tt.err.Error(), out.Error)
			assert.Zero(t, rig.store.Len())
			assert.Greater(t, ptestutil.ToFloat64(metrics.TargetFailuresTotal.WithLabelValues(tt.wantReason)), before)
		})
	}
}

func TestProcessTarget_NotificationFailureKeepsMutation(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return([]domain.Observation{
		{ID: "1", Price: 150000, FloatValue: 0.1},
	}, nil).Times(2)
	rig.notifier.EXPECT().NotifyNewListing(mock.Anything, mock.Anything).
		Return(errors.New("discord returned 500")).Once()

	out := rig.eng.ProcessTarget(context.Background(), &m9)
	assert.Equal(t, 1, out.New)
	assert.Equal(t, 0, out.Alerts)
	assert.True(t, out.Persisted)
	assert.Equal(t, 1, rig.store.Len())

	// No retry on the next pass.
	again := rig.eng.ProcessTarget(context.Background(), &m9)
	assert.Equal(t, 0, again.New)
}

func TestProcessTarget_PersistFailureKeepsMemory(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	rig.backend.saveErr = errors.New("disk full")
	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return([]domain.Observation{
		{ID: "1", Price: 200000, FloatValue: 0.1},
	}, nil).Once()

	out := rig.eng.ProcessTarget(context.Background(), &m9)
	assert.Equal(t, StatusOK, out.Status)
	assert.False(t, out.Persisted)
	assert.Equal(t, 1, rig.store.Len())
}

func TestProcessTarget_DedupSuppressesRepeats(t *testing.T) {
	t.Parallel()

	reserver := &mapReserver{}
	snapshot := []domain.Observation{{ID: "1", Price: 150000, FloatValue: 0.1}}

	// Two engines with separate, empty histories share one reserver, like
	// a restart after history was lost.
	first := newRig(t, []domain.WatchTarget{m9}, WithReserver(reserver))
	first.client.EXPECT().Listings(mock.Anything, mock.Anything).Return(snapshot, nil).Once()
	first.notifier.EXPECT().NotifyNewListing(mock.Anything, mock.Anything).Return(nil).Once()
	assert.Equal(t, 1, first.eng.ProcessTarget(context.Background(), &m9).Alerts)

	second := newRig(t, []domain.WatchTarget{m9}, WithReserver(reserver))
	second.client.EXPECT().Listings(mock.Anything, mock.Anything).Return(snapshot, nil).Once()

	before := ptestutil.ToFloat64(metrics.AlertsSuppressedTotal)
	out := second.eng.ProcessTarget(context.Background(), &m9)
	assert.Equal(t, 1, out.New)
	assert.Equal(t, 0, out.Alerts)
	assert.Greater(t, ptestutil.ToFloat64(metrics.AlertsSuppressedTotal), before)
}

func TestProcessTarget_DedupErrorStillSends(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9}, WithReserver(&mapReserver{err: errors.New("redis down")}))
	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return([]domain.Observation{
		{ID: "1", Price: 150000, FloatValue: 0.1},
	}, nil).Once()
	rig.notifier.EXPECT().NotifyNewListing(mock.Anything, mock.Anything).Return(nil).Once()

	assert.Equal(t, 1, rig.eng.ProcessTarget(context.Background(), &m9).Alerts)
}

func TestRunCycle_FailingTargetDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9, karambit})

	rig.client.EXPECT().Listings(mock.Anything, &rig.eng.targets[0]).
		Return(nil, errors.New("timeout")).Once()
	rig.client.EXPECT().Listings(mock.Anything, &rig.eng.targets[1]).
		Return([]domain.Observation{{ID: "9", Price: 100000, FloatValue: 0.05}}, nil).Once()
	rig.notifier.EXPECT().NotifyNewListing(mock.Anything, mock.Anything).Return(nil).Once()

	outcomes := rig.eng.RunCycle(context.Background())
	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusSkipped, outcomes[0].Status)
	assert.Equal(t, StatusOK, outcomes[1].Status)
	assert.Equal(t, 1, outcomes[1].Alerts)

	st := rig.eng.Status()
	assert.Equal(t, PhaseSleeping, st.Phase)
	assert.Equal(t, int64(1), st.Cycles)
	assert.Equal(t, rig.now, st.LastCycleAt)
	assert.Len(t, st.LastOutcomes, 2)
	assert.InDelta(t, 0.9, st.Rate, 1e-12)
	assert.Equal(t, 1, st.Listings)
}

func TestRunCycle_CanceledContextStops(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9, karambit})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := rig.eng.RunCycle(ctx)
	assert.Empty(t, outcomes)
}

func TestRunCycle_Stagger(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9, karambit}, WithStaggerOffset(20*time.Millisecond))
	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return([]domain.Observation{}, nil).Times(2)

	start := time.Now()
	outcomes := rig.eng.RunCycle(context.Background())
	assert.Len(t, outcomes, 2)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRunCycle_PhaseDuringFetch(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, *domain.WatchTarget) ([]domain.Observation, error) {
			phase, target := rig.eng.Phase()
			assert.Equal(t, PhaseFetching, phase)
			assert.Equal(t, m9.Name, target)
			return nil, nil
		}).Once()

	rig.eng.RunCycle(context.Background())
}

func TestEngine_ConcurrentStatsDuringCycle(t *testing.T) {
	t.Parallel()

	rig := newRig(t, []domain.WatchTarget{m9})
	obs := make([]domain.Observation, 200)
	for i := range obs {
		obs[i] = domain.Observation{ID: fmt.Sprint(i), Price: int64(500000 + i), FloatValue: 0.1}
	}
	rig.client.EXPECT().Listings(mock.Anything, mock.Anything).Return(obs, nil).Once()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				st := rig.eng.Stats(24 * time.Hour)
				assert.LessOrEqual(t, st.NewOffers, len(obs))
				for _, lo := range st.Lowest {
					assert.Equal(t, int64(500000), lo.Price, "cheapest listing is recorded first")
				}
			}
		}
	}()

	rig.eng.RunCycle(context.Background())
	close(done)
	wg.Wait()

	assert.Equal(t, 200, rig.eng.Stats(24*time.Hour).NewOffers)
}

func TestRunCycle_Telemetry(t *testing.T) {
	t.Parallel()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	rig := newRig(t, []domain.WatchTarget{m9, karambit}, WithTracerProvider(tp), WithMeterProvider(mp))

	rig.client.EXPECT().Listings(mock.Anything, &rig.eng.targets[0]).
		Return(nil, csfloat.ErrMalformedResponse).Once()
	rig.client.EXPECT().Listings(mock.Anything, &rig.eng.targets[1]).
		Return([]domain.Observation{}, nil).Once()

	rig.eng.RunCycle(context.Background())

	ended := spans.Ended()
	require.Len(t, ended, 3)

	byName := map[string][]sdktrace.ReadOnlySpan{}
	for _, s := range ended {
		byName[s.Name()] = append(byName[s.Name()], s)
	}
	require.Len(t, byName["engine.cycle"], 1)
	require.Len(t, byName["engine.target"], 2)

	cycle := byName["engine.cycle"][0]
	for _, s := range byName["engine.target"] {
		assert.Equal(t, cycle.SpanContext().SpanID(), s.Parent().SpanID(), "target spans nest under the cycle")
	}
	assert.Equal(t, otelcodes.Error, byName["engine.target"][0].Status().Code)
	assert.Equal(t, otelcodes.Unset, byName["engine.target"][1].Status().Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	got := map[string]int64{}
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value("status")
		target, _ := dp.Attributes.Value("target")
		got[target.AsString()+"/"+status.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		m9.Name + "/skipped":  1,
		karambit.Name + "/ok": 1,
	}, got)
}
