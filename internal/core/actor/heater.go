package actor

import (
	"context"
	"fmt"
	"time"

	adactor "github.com/berfenger/kwb2mqtt/internal/adapter/actor"
	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/core/events"
	"github.com/berfenger/kwb2mqtt/internal/core/port"
	. "github.com/berfenger/kwb2mqtt/internal/util/actorutil"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// HeaterActor drives the poll loop: it asks the kwb actor for a scrape on
// every tick, feeds the accumulators and publishes the sensor values.
type HeaterActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config      *config.Config
	kwbActor    *actor.PID
	engine      port.AccumulatorEngine
	store       port.SeedStore
	observer    port.HeaterObserver
	sensors     []domain.GenericSensor
	eventStream *eventstream.EventStream

	latest      kwb.Snapshot
	lastScrape  time.Time
	failures    uint
	available   bool
	announced   bool
	loadingSeed bool

	logger *zap.Logger
}

type heaterTick struct {
}

type seedLoaded struct {
	seed  domain.Seed
	found bool
	err   error
}

const seedLoadTimeout = 5 * time.Second

func NewHeaterActor(config *config.Config, kwbActor *actor.PID, engine port.AccumulatorEngine, store port.SeedStore,
	sensors []domain.GenericSensor, eventStream *eventstream.EventStream, observer port.HeaterObserver, logger *zap.Logger) *HeaterActor {
	act := &HeaterActor{
		config:      config,
		kwbActor:    kwbActor,
		engine:      engine,
		store:       store,
		observer:    observer,
		sensors:     sensors,
		eventStream: eventStream,
		latest:      kwb.Snapshot{},
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_HEATER, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *HeaterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HeaterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("heater@default started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.loadSeed(ctx)
		ctx.Send(ctx.Self(), heaterTick{})
	case domain.ActorHealthRequest:
		state.logger.Debug("heater@default: ActorHealthRequest")
		ctx.Respond(state.health())
	case heaterTick:
		state.logger.Debug("heater@default tick")
		state.scheduler.RequestOnce(state.config.MonitorConfig.PollInterval(), ctx.Self(), heaterTick{})
		if !state.engine.Recovered() {
			state.loadSeed(ctx)
		}
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.kwbActor, domain.ScrapeRequest{}, state.scrapeTimeout()), func(err error) any {
			return domain.ScrapeResponse{
				ActorResponseMixIn: domain.Failure(fmt.Errorf("%w: %v", domain.ErrUpdateFailed, err)),
			}
		})
		state.behavior.BecomeStacked(state.WaitingScrapeReceive)
	case seedLoaded:
		state.onSeedLoaded(msg)
	case domain.GetSnapshotRequest:
		state.logger.Debug("heater@default: GetSnapshotRequest")
		ForRequest(msg).Respond(ctx, state.snapshotResponse())
	case domain.GetCheckpointRequest:
		state.logger.Debug("heater@default: GetCheckpointRequest")
		ForRequest(msg).Respond(ctx, state.checkpointResponse())
	case *actor.Stopping:
		state.logger.Debug("heater@default stopping")
	default:
		state.logger.Debug("heater@default: unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HeaterActor) WaitingScrapeReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ScrapeResponse:
		if msg.HasResponseError() {
			state.onScrapeFailure(msg.GetResponseError())
		} else {
			state.onScrapeSuccess(msg)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case heaterTick:
		// previous scrape still running, wait for the next one
		state.logger.Warn("heater@waiting tick skipped, scrape in progress")
		state.scheduler.RequestOnce(state.config.MonitorConfig.PollInterval(), ctx.Self(), heaterTick{})
	case seedLoaded:
		state.onSeedLoaded(msg)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health())
	case domain.GetSnapshotRequest:
		// the engine only moves when the scrape response arrives
		ForRequest(msg).Respond(ctx, state.snapshotResponse())
	case domain.GetCheckpointRequest:
		ForRequest(msg).Respond(ctx, state.checkpointResponse())
	default:
		state.logger.Debug("heater@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HeaterActor) loadSeed(ctx actor.Context) {
	if state.loadingSeed {
		return
	}
	state.loadingSeed = true
	uniqueId := state.config.Heater.UniqueId
	NewBackgroundTask(ctx, func() (*seedLoaded, error) {
		c, cancel := context.WithTimeout(context.Background(), seedLoadTimeout)
		defer cancel()
		seed, found, err := state.store.Load(c, uniqueId)
		return &seedLoaded{seed: seed, found: found, err: err}, nil
	}).Recover(func(err error) seedLoaded {
		return seedLoaded{err: err}
	}).WithTimeout(seedLoadTimeout + time.Second).PipeTo(ctx.Self())
}

func (state *HeaterActor) onSeedLoaded(msg seedLoaded) {
	state.loadingSeed = false
	if state.engine.Recovered() {
		return
	}
	if msg.err != nil {
		// stay unrecovered, lifetime counters must never restart from zero
		state.logger.Error("heater: could not load seed, retrying on next tick", zap.Error(msg.err))
		return
	}
	seed := msg.seed
	if !msg.found {
		state.logger.Info("heater: no stored seed, starting counters from zero")
		seed = domain.FreshSeed(time.Now())
	}
	state.engine.Restore(seed)
	state.publishValues()
}

func (state *HeaterActor) onScrapeSuccess(msg domain.ScrapeResponse) {
	state.logger.Debug("heater@waiting ScrapeResponse", zap.Int("signals", len(msg.Snapshot)))
	state.failures = 0
	state.latest = msg.Snapshot
	state.lastScrape = msg.Timestamp
	state.setAvailable(true)
	if state.engine.Update(msg.Snapshot) {
		state.logger.Debug("heater: accumulators updated", zap.Float64("energy", state.engine.Totals().BoilerEnergy))
	}
	state.publishValues()
	state.observe(true)
}

func (state *HeaterActor) onScrapeFailure(err error) {
	state.failures++
	state.logger.Warn("heater@waiting scrape failed", zap.Uint("failures", state.failures), zap.Error(err))
	if state.failures >= state.config.MonitorConfig.FailureThreshold {
		state.setAvailable(false)
	}
	state.observe(false)
}

func (state *HeaterActor) setAvailable(available bool) {
	if state.announced && state.available == available {
		return
	}
	state.available = available
	state.announced = true
	if available {
		state.logger.Info("heater: available")
	} else {
		state.logger.Warn("heater: unavailable", zap.Uint("failures", state.failures))
	}
	state.publish(events.HeaterAvailabilityEvent(available))
}

func (state *HeaterActor) publishValues() {
	for _, ev := range events.SensorUpdateEvents(state.sensors, state.view()) {
		state.publish(ev)
	}
}

func (state *HeaterActor) publish(ev any) {
	if state.eventStream != nil {
		state.eventStream.Publish(ev)
	}
}

func (state *HeaterActor) observe(ok bool) {
	if state.observer == nil {
		return
	}
	state.observer.ObserveScrape(ok, state.failures, state.available)
	if state.engine.Recovered() {
		state.observer.ObserveTotals(state.engine.Totals())
	}
}

func (state *HeaterActor) view() events.SnapshotView {
	return events.SnapshotView{
		Scrape:    state.latest,
		Totals:    state.engine.Totals().Snapshot(),
		Available: state.available,
		Recovered: state.engine.Recovered(),
	}
}

func (state *HeaterActor) checkpointResponse() domain.GetCheckpointResponse {
	resp := domain.GetCheckpointResponse{
		UniqueId:  state.config.Heater.UniqueId,
		Recovered: state.engine.Recovered(),
	}
	if resp.Recovered {
		resp.Seed = state.engine.Checkpoint()
	}
	return resp
}

func (state *HeaterActor) snapshotResponse() domain.GetSnapshotResponse {
	return domain.GetSnapshotResponse{
		Snapshot:            state.latest.Clone(),
		Totals:              state.engine.Totals(),
		Available:           state.available,
		Recovered:           state.engine.Recovered(),
		LastScrape:          state.lastScrape,
		ConsecutiveFailures: state.failures,
	}
}

func (state *HeaterActor) health() domain.ActorHealthResponse {
	st := "unrecovered"
	if state.engine.Recovered() {
		st = "unavailable"
		if state.available {
			st = "available"
		}
	}
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_HEATER,
		Healthy: true,
		State:   st,
	}
}

func (state *HeaterActor) scrapeTimeout() time.Duration {
	// outlives the kwb actor's own timeout so its failure reply arrives first
	return adactor.ScrapeTimeout(state.config.Heater.ReadTimeout()) + time.Second
}
