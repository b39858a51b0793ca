package actorutil

import (
	"github.com/berfenger/kwb2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// Reply routes a response to the request's explicit ReplyTo, or to the sender.
type Reply struct {
	req domain.ActorRequest
}

func ForRequest(r domain.ActorRequest) Reply {
	return Reply{req: r}
}

func (r Reply) ReplyTo(ctx actor.Context) *actor.PID {
	if ref := r.req.ReplyTo(); ref != nil {
		return (*actor.PID)(ref)
	}
	return ctx.Sender()
}

// Respond drops the response when nobody is waiting for it.
func (r Reply) Respond(ctx actor.Context, resp domain.ActorResponse) {
	if pid := r.ReplyTo(ctx); pid != nil {
		ctx.Send(pid, resp)
	}
}
