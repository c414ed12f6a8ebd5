package models

import "context"

type identityKey struct{}

// ContextWithIdentity stores the authenticated identity for downstream consumers.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity bound by the session resolver.
// The boolean is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}

	identity, ok := ctx.Value(identityKey{}).(Identity)

	return identity, ok
}
