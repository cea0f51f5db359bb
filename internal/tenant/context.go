package tenant

import "context"

type appKey struct{}

// WithAppID stores the resolved app id on ctx.
func WithAppID(ctx context.Context, appID string) context.Context {
	return context.WithValue(ctx, appKey{}, appID)
}

// AppID returns the app id stored by WithAppID.
func AppID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(appKey{}).(string)
	return id, ok && id != ""
}
