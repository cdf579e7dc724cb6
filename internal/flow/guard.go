package flow

import (
	"context"

	"scanflow/internal/session"
)

// ViewFunc is a protected view body. It returns a Navigate signal when the
// view decides to move on, or nil to stay.
type ViewFunc func(ctx context.Context) (*Navigate, error)

// Guard wraps a protected view. When the session store holds no valid
// session, the store is cleared (stale partial state must not survive) and
// the caller is redirected to login without the view ever running. With a
// valid session the wrapped view runs unchanged. No network calls either way.
func Guard(store *session.Store, next ViewFunc) ViewFunc {
	return func(ctx context.Context) (*Navigate, error) {
		if !store.IsValid() {
			// Defensive normalization: a partially written session is
			// purged wholesale, never repaired field by field.
			_ = store.Clear()
			return &Navigate{Route: RouteLogin, Replace: true}, nil
		}
		return next(ctx)
	}
}
