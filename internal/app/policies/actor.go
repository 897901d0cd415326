package policies

import (
	"context"

	domainuser "travelbooking/internal/domain/user"
)

type actorKey struct{}

// WithActor records who invokes the operation. Calls without an actor are internal.
func WithActor(ctx context.Context, actor domainuser.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domainuser.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domainuser.Actor)
	return actor, ok
}
