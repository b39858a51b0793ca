package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	adactor "github.com/berfenger/kwb2mqtt/internal/adapter/actor"
	"github.com/berfenger/kwb2mqtt/internal/adapter/store"
	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/core/service"
	"github.com/berfenger/kwb2mqtt/internal/util"
	"github.com/berfenger/kwb2mqtt/internal/util/actorutil"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []any
}

func (r *eventRecorder) record(evt any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) availability() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bool
	for _, evt := range r.events {
		if ev, ok := evt.(domain.HeaterAvailabilityUpdateEvent); ok {
			out = append(out, ev.Value)
		}
	}
	return out
}

func (r *eventRecorder) float(id string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if ev, ok := r.events[i].(domain.FloatSensorUpdateEvent); ok && ev.Id == id {
			return ev.Value, true
		}
	}
	return 0, false
}

type countingObserver struct {
	mu        sync.Mutex
	scrapes   int
	failures  int
	available bool
}

func (o *countingObserver) ObserveScrape(ok bool, _ uint, available bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scrapes++
	if !ok {
		o.failures++
	}
	o.available = available
}

func (o *countingObserver) ObserveTotals(domain.HeaterTotals) {}

type heaterHarness struct {
	as       *actor.ActorSystem
	pid      *actor.PID
	cfg      config.Config
	store    *store.MemorySeedStore
	recorder *eventRecorder
	observer *countingObserver
}

func startHeater(t *testing.T, source kwb.MessageSource, seedStore *store.MemorySeedStore) *heaterHarness {
	t.Helper()

	cfg := util.LoadTestConfig()
	cfg.MonitorConfig.PollIntervalMillis = 100

	logger := zap.NewNop()
	as := actorutil.NewActorSystemWithZapLogger(logger)

	groups, err := kwb.LoadSignalMaps(cfg.Heater.SignalSource)
	require.NoError(t, err)
	appliance := kwb.NewAppliance(source, groups, kwb.ApplianceConfig{ReadTimeout: cfg.Heater.ReadTimeout()}, logger)
	kwbPID := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewKWBActor(appliance, cfg.Heater.ReadTimeout(), logger)
	}))

	recorder := &eventRecorder{}
	es := &eventstream.EventStream{}
	es.Subscribe(recorder.record)

	observer := &countingObserver{}
	engine := service.NewAccumulatorEngine(cfg.Heater.Params(), logger)
	sensors := NewCatalogue(&cfg, groups).Heater

	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewHeaterActor(&cfg, kwbPID, engine, seedStore, sensors, es, observer, logger)
	}))
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Root.Stop(kwbPID)
		as.Shutdown()
	})

	return &heaterHarness{as: as, pid: pid, cfg: cfg, store: seedStore, recorder: recorder, observer: observer}
}

func (h *heaterHarness) snapshot(t *testing.T) domain.GetSnapshotResponse {
	result, err := h.as.Root.RequestFuture(h.pid, domain.GetSnapshotRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	return result.(domain.GetSnapshotResponse)
}

func (h *heaterHarness) checkpoint(t *testing.T) domain.GetCheckpointResponse {
	result, err := h.as.Root.RequestFuture(h.pid, domain.GetCheckpointRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	return result.(domain.GetCheckpointResponse)
}

func TestHeaterActorPollsAndAccumulates(t *testing.T) {

	assert := assert.New(t)

	seeds := store.NewMemorySeedStore()
	require.NoError(t, seeds.Save(context.Background(), "kwb_test", domain.Seed{
		Timestamp:    time.Now(),
		BoilerEnergy: 100,
	}))
	h := startHeater(t, kwb.CreateTestMessageSource(), seeds)

	assert.Eventually(func() bool {
		snap := h.snapshot(t)
		return snap.Available && snap.Recovered && snap.Totals.BoilerEnergy > 100
	}, 5*time.Second, 50*time.Millisecond)

	snap := h.snapshot(t)
	output, ok := snap.Snapshot.Number("boiler_output")
	assert.True(ok)
	assert.Equal(75.0, output)
	assert.Zero(snap.ConsecutiveFailures)
	assert.False(snap.LastScrape.IsZero())
	assert.InDelta(15.0, snap.Totals.BoilerPower, 1e-9)

	assert.Equal([]bool{true}, h.recorder.availability())
	energy, ok := h.recorder.float(domain.SENSOR_ID_BOILER_ENERGY_OUTPUT)
	assert.True(ok)
	assert.GreaterOrEqual(energy, 100.0)
	temp, ok := h.recorder.float("boiler_temperature")
	assert.True(ok)
	assert.InDelta(72.5, temp, 1e-9)

	cp := h.checkpoint(t)
	assert.True(cp.Recovered)
	assert.Equal("kwb_test", cp.UniqueId)
	assert.Greater(cp.Seed.BoilerEnergy, 100.0)
}

func TestHeaterActorStartsFreshWithoutSeed(t *testing.T) {
	h := startHeater(t, kwb.CreateTestMessageSource(), store.NewMemorySeedStore())

	assert.Eventually(t, func() bool {
		return h.checkpoint(t).Recovered
	}, 5*time.Second, 50*time.Millisecond)
	assert.Less(t, h.checkpoint(t).Seed.BoilerEnergy, 1.0)
}

func TestHeaterActorMarksUnavailableAfterThreshold(t *testing.T) {

	assert := assert.New(t)

	h := startHeater(t, &kwb.TestMessageSource{OpenErr: kwb.ErrConnection}, store.NewMemorySeedStore())

	assert.Eventually(func() bool {
		return h.snapshot(t).ConsecutiveFailures >= h.cfg.MonitorConfig.FailureThreshold
	}, 5*time.Second, 50*time.Millisecond)

	snap := h.snapshot(t)
	assert.False(snap.Available)
	assert.Empty(snap.Snapshot)
	assert.Equal([]bool{false}, h.recorder.availability())

	h.observer.mu.Lock()
	assert.GreaterOrEqual(h.observer.failures, 3)
	assert.False(h.observer.available)
	h.observer.mu.Unlock()

	// scrape values never reach the event stream while unavailable
	_, ok := h.recorder.float("boiler_temperature")
	assert.False(ok)
}

func TestHeaterActorRetriesSeedLoad(t *testing.T) {

	assert := assert.New(t)

	seeds := store.NewMemorySeedStore()
	require.NoError(t, seeds.Save(context.Background(), "kwb_test", domain.Seed{Timestamp: time.Now(), BoilerEnergy: 500}))
	seeds.SetLoadError(errors.New("database is locked"))

	h := startHeater(t, kwb.CreateTestMessageSource(), seeds)

	time.Sleep(300 * time.Millisecond)
	cp := h.checkpoint(t)
	assert.False(cp.Recovered)
	assert.Zero(cp.Seed)
	_, ok := h.recorder.float(domain.SENSOR_ID_BOILER_ENERGY_OUTPUT)
	assert.False(ok, "no accumulated values before recovery")

	seeds.SetLoadError(nil)
	assert.Eventually(func() bool {
		return h.checkpoint(t).Recovered
	}, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(h.checkpoint(t).Seed.BoilerEnergy, 500.0)
}

func TestHeaterActorAnswersQueriesWhileScraping(t *testing.T) {

	assert := assert.New(t)

	seeds := store.NewMemorySeedStore()
	require.NoError(t, seeds.Save(context.Background(), "kwb_test", domain.Seed{Timestamp: time.Now(), BoilerEnergy: 42}))

	source := kwb.CreateTestMessageSource()
	source.Delay = 2 * time.Second
	h := startHeater(t, source, seeds)

	// the first tick is already waiting on the slow scrape
	assert.Eventually(func() bool {
		return h.checkpoint(t).Recovered
	}, time.Second, 20*time.Millisecond)

	start := time.Now()
	result, err := h.as.Root.RequestFuture(h.pid, domain.GetCheckpointRequest{}, 500*time.Millisecond).Result()
	require.NoError(t, err)
	cp := result.(domain.GetCheckpointResponse)
	assert.True(cp.Recovered)
	assert.Equal(42.0, cp.Seed.BoilerEnergy)

	result, err = h.as.Root.RequestFuture(h.pid, domain.GetSnapshotRequest{}, 500*time.Millisecond).Result()
	require.NoError(t, err)
	snap := result.(domain.GetSnapshotResponse)
	assert.True(snap.LastScrape.IsZero(), "no scrape finished yet")
	assert.Less(time.Since(start), time.Second)
}
