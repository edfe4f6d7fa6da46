package auth

import "context"

type identityKey struct{}

// ContextWithIdentity stores a verified user id in the context.
func ContextWithIdentity(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, identityKey{}, userID)
}

// IdentityFromContext retrieves the verified user id, if any.
func IdentityFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(identityKey{}).(int64)
	return userID, ok
}
