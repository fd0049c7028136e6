package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting user id in context. The session
// provider is an external collaborator; the ledger only needs the
// identity it supplies.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the acting user id, or zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	actor, _ := ctx.Value(actorContextKey{}).(int64)
	return actor
}
