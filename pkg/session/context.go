package session

import "context"

type idKey struct{}

// ContextWithID returns a context carrying the session id.
func ContextWithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, idKey{}, sessionID)
}

// IDFromContext extracts the session id set by ContextWithID.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey{}).(string)
	return id, ok && id != ""
}
