package actor

import (
	"fmt"
	"time"

	adactor "github.com/berfenger/kwb2mqtt/internal/adapter/actor"
	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const discoveryRetryInterval = 5 * time.Second

type HADiscoveryActor struct {
	config           *config.Config
	behavior         actor.Behavior
	stash            *actorutil.Stash
	scheduler        *scheduler.TimerScheduler
	kwbActor         *actor.PID
	mqttActor        *actor.PID
	kwbActorHealthy  bool
	mqttActorHealthy bool
	healthyRecv      int

	logger *zap.Logger
}

type discoveryStart struct {
}

func NewHADiscoveryActor(config *config.Config, kwbActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		kwbActor:  kwbActor,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.checkHealth(ctx)
	case discoveryStart:
		state.checkHealth(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) checkHealth(ctx actor.Context) {
	state.healthyRecv = 0
	state.kwbActorHealthy = false
	state.mqttActorHealthy = false
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.kwbActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_KWB,
			Healthy: false,
		}
	})
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: false,
		}
	})
	state.behavior.Become(state.WaitingHealthyReceive)
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_KWB:
				state.kwbActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv < 2 {
			return
		}
		if state.kwbActorHealthy && state.mqttActorHealthy {
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.kwbActor, domain.GetApplianceInfoRequest{}, 2*time.Second), func(err error) any {
				return domain.GetApplianceInfoResponse{
					ActorResponseMixIn: domain.Failure(err),
				}
			})
			state.behavior.Become(state.WaitingInfoReceive)
		} else {
			state.logger.Warn("hadiscovery@healthcheck mqtt or kwb not ready, retrying")
			state.retry(ctx)
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetApplianceInfoResponse:
		if msg.HasResponseError() {
			state.logger.Error("hadiscovery@info GetApplianceInfoResponse", zap.Error(msg.GetResponseError()))
			state.retry(ctx)
			return
		}
		catalogue := NewCatalogue(state.config, msg.Groups)
		sensors := catalogue.All()
		state.logger.Info("hadiscovery@info publishing discovery", zap.Int("sensors", len(sensors)))
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: sensors,
		})
		state.behavior.Become(state.Done)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@info: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case adactor.HomeAssistantOnline:
		state.logger.Info("hadiscovery@done homeassistant restarted, republishing")
		state.checkHealth(ctx)
	default:
		state.logger.Debug("hadiscovery@done: ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) retry(ctx actor.Context) {
	state.scheduler.RequestOnce(discoveryRetryInterval, ctx.Self(), discoveryStart{})
	state.behavior.Become(state.StartingReceive)
}
