package api

import (
	"errors"
	"net/http"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/auth"
	"github.com/yanizio/sitebuilder/internal/tenant"
)

// Header names set by the editor gateway.
const (
	HeaderAppID  = "X-App-Id"
	HeaderUserID = "X-User-Id"
)

// requester binds the app and the user to the request context.  Missing
// values are left for action dispatch to reject.
func requester(tenants AppResolver, hostMapping bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			appID := r.Header.Get(HeaderAppID)
			if hostMapping {
				id, err := tenants.AppID(ctx, r.Host)
				switch {
				case errors.Is(err, tenant.ErrNotFound):
					writeError(w, apperr.NotFound(apperr.CodeSiteNotFound, "no site is served from this host"))
					return
				case err != nil:
					writeError(w, err)
					return
				}
				appID = id
			}
			if appID != "" {
				ctx = tenant.WithAppID(ctx, appID)
			}
			if uid := r.Header.Get(HeaderUserID); uid != "" {
				ctx = auth.WithUser(ctx, uid)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
