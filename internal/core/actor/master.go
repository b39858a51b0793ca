package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/berfenger/kwb2mqtt/internal/adapter/actor"
	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/core/port"
	. "github.com/berfenger/kwb2mqtt/internal/util/actorutil"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type KWBActorProvider func() *adactor.KWBActor

// HeaterDeps are shared by every incarnation of the heater actor, so the
// accumulators survive a restart.
type HeaterDeps struct {
	Engine   port.AccumulatorEngine
	Store    port.SeedStore
	Observer port.HeaterObserver
}

type MasterActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	kwbActor           *actor.PID
	mqttActor          *actor.PID
	heaterActor        *actor.PID
	haDiscoveryActor   *actor.PID
	kwbActorProvider   KWBActorProvider
	mqttActorProvider  MQTTActorProvider
	heaterDeps         HeaterDeps
	catalogue          Catalogue
	logger             *zap.Logger
}

type healthCheckResult struct {
	kwbActorHealthy    bool
	mqttActorHealthy   bool
	heaterActorHealthy bool
	checksReceived     int
	respondTo          *actor.PID
}

func NewMasterActor(config config.Config, kwbActorProvider KWBActorProvider, mqttActorProvider MQTTActorProvider, heaterDeps HeaterDeps, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:            config,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		logger:            ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:       &eventstream.EventStream{},
		kwbActorProvider:  kwbActorProvider,
		mqttActorProvider: mqttActorProvider,
		heaterDeps:        heaterDeps,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		groups, err := kwb.LoadSignalMaps(state.config.Heater.SignalSource)
		if err != nil {
			panic(err)
		}
		state.catalogue = NewCatalogue(&state.config, groups)

		// start KWB child
		kwbActorPID, err := state.startKWBActor(ctx)
		if err != nil {
			panic(err)
		}
		state.kwbActor = kwbActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start Heater child
		heaterActorPID, err := state.startHeaterActor(ctx)
		if err != nil {
			panic(err)
		}
		state.heaterActor = heaterActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			haDiscoveryPID, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
			state.haDiscoveryActor = haDiscoveryPID
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// KWB Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.kwbActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_KWB,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Heater Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.heaterActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_HEATER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.GetSnapshotRequest:
		ctx.Forward(state.heaterActor)
	case domain.GetCheckpointRequest:
		ctx.Forward(state.heaterActor)
	case adactor.HomeAssistantOnline:
		if state.haDiscoveryActor != nil {
			ctx.Send(state.haDiscoveryActor, msg)
		}
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_KWB) {
			state.logger.Error("master@default kwb error")
			panic(errors.New("kwb terminated"))
		}
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_KWB:
				state.currentHealthCheck.kwbActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.currentHealthCheck.mqttActorHealthy = true
			case domain.ACTOR_ID_HEATER:
				state.currentHealthCheck.heaterActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) startKWBActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	kwbProps := actor.PropsFromProducer(func() actor.Actor {
		return state.kwbActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(kwbProps, domain.ACTOR_ID_KWB)
}

func (state *MasterActor) startHeaterActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Warn("master: child failure, restarting", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(10, 1*time.Minute, decider)

	heaterProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHeaterActor(&state.config, state.kwbActor, state.heaterDeps.Engine, state.heaterDeps.Store,
			state.catalogue.Heater, state.eventStream, state.heaterDeps.Observer, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(heaterProps, domain.ACTOR_ID_HEATER)
}

func (state *MasterActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Warn("master: child failure, restarting", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.kwbActor, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *healthCheckResult) reset() {
	state.kwbActorHealthy = false
	state.mqttActorHealthy = false
	state.heaterActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.kwbActorHealthy && state.mqttActorHealthy && state.heaterActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
