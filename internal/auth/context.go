package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// identityKey is the context key for the authenticated principal's email.
const identityKey contextKey = "identity"

// ContextWithIdentity records the verified principal's email on the context.
// Only the authentication middleware writes this; handlers must never derive
// identity from a request body.
func ContextWithIdentity(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, identityKey, email)
}

// IdentityFromContext returns the authenticated email, or "" if the request
// is unauthenticated.
func IdentityFromContext(ctx context.Context) string {
	email, ok := ctx.Value(identityKey).(string)
	if !ok {
		return ""
	}
	return email
}
