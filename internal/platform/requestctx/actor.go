// Package requestctx carries per-request identity through context values.
package requestctx

import (
	"context"

	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

// actorContextKey is the context key for the authenticated acting principal.
type actorContextKey struct{}

// WithActor stores the verified actor in context.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in context.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	if ctx == nil {
		return domain.Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}
