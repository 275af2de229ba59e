// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithIdentity/FromContext for propagating identity via context

package auth

import (
	"context"

	"github.com/2389/wallboard-relay/internal/identity"
)

// identityContextKey is the key type for storing Identity in context.Context.
type identityContextKey struct{}

// WithIdentity returns a new context with the authenticated identity attached.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext retrieves the authenticated identity from the context.
// The second return is false if the request was not authenticated.
func FromContext(ctx context.Context) (identity.Identity, bool) {
	val := ctx.Value(identityContextKey{})
	if val == nil {
		return identity.Identity{}, false
	}
	id, ok := val.(identity.Identity)
	return id, ok
}

// MustFromContext retrieves the identity from the context, panicking if absent.
// Only for handlers that sit behind the auth middleware.
func MustFromContext(ctx context.Context) identity.Identity {
	id, ok := FromContext(ctx)
	if !ok {
		panic("auth: identity not found in context")
	}
	return id
}
