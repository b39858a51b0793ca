package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/util/actorutil"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// Appliance is the part of *kwb.Appliance the actor needs.
type Appliance interface {
	Scrape() bool
	Snapshot() kwb.Snapshot
	State() kwb.State
	LastError() error
	LastScrape() time.Time
	SignalGroups() []kwb.SignalGroup
}

// KWBActor owns the controller connection. Only one scrape runs at a time,
// requests arriving meanwhile are stashed.
type KWBActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	appliance Appliance
	timeout   time.Duration
	logger    *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

// scrapeGrace is added to the longest scrape so the appliance gets to close
// its connection before the task is abandoned.
const scrapeGrace = 2 * time.Second

// ScrapeTimeout is how long the actor waits for one scrape before replying
// with a failure.
func ScrapeTimeout(readTimeout time.Duration) time.Duration {
	return kwb.MaxScrapeDuration(readTimeout) + scrapeGrace
}

func NewKWBActor(appliance Appliance, readTimeout time.Duration, logger *zap.Logger) *KWBActor {
	act := &KWBActor{
		appliance: appliance,
		timeout:   ScrapeTimeout(readTimeout),
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_KWB, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *KWBActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *KWBActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("kwb@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("kwb@default: ActorHealthRequest")
		ctx.Respond(state.health())
	case domain.GetApplianceInfoRequest:
		state.logger.Debug("kwb@default: GetApplianceInfoRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetApplianceInfoResponse{
			Groups: state.appliance.SignalGroups(),
			State:  state.appliance.State().String(),
		})
	case domain.ScrapeRequest:
		state.logger.Debug("kwb@default: ScrapeRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.scrape),
			mapTaskResult[domain.ScrapeResponse](sender)).Recover(func(err error) backgroundTaskResult {
			if !errors.Is(err, domain.ErrUpdateFailed) {
				err = fmt.Errorf("%w: %v", domain.ErrUpdateFailed, err)
			}
			return backgroundTaskResult{
				message: domain.ScrapeResponse{
					ActorResponseMixIn: domain.Failure(err),
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingKWB)
	default:
		state.logger.Debug("kwb@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *KWBActor) WaitingKWB(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("kwb@WaitingKWB backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health())
	default:
		state.logger.Debug("kwb@WaitingKWB stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *KWBActor) health() domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_KWB,
		Healthy: true,
		State:   state.appliance.State().String(),
	}
}

func (state *KWBActor) scrape() (*domain.ScrapeResponse, error) {
	if !state.appliance.Scrape() {
		err := state.appliance.LastError()
		state.logger.Warn("kwb: scrape failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrUpdateFailed, err)
	}
	return &domain.ScrapeResponse{
		Snapshot:  state.appliance.Snapshot(),
		Timestamp: state.appliance.LastScrape(),
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
