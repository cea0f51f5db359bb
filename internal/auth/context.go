// internal/auth/context.go
//
// Requester identity carried on the request context.
//
// Authentication happens upstream (the editor gateway); by the time a
// request reaches the builder the user id arrives in the X-User-Id header.
// The middleware stores it here and handlers read it back.
//
// Usage
// -----
//     ctx = auth.WithUser(ctx, "user-42")
//     id, ok := auth.UserID(ctx)   // "user-42", true
//
// Notes
// -----
// • An empty id is treated as absent.

package auth

import "context"

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID extracts the user id from ctx.  It returns ("", false) if none is
// set.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}
