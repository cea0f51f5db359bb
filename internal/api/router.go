// internal/api/router.go
//
// HTTP surface of the builder.
//
// Context
// -------
// The editor front-end talks to one endpoint:
//
//	POST /api/actions   {"action": "UPDATE_PAGE", "data": {...}}
//
// The request is bound to a tenant (request host via the apps table, or the
// X-App-Id header when host mapping is off) and a requester (X-User-Id, set
// by the authenticating gateway).  The body is dispatched through the
// action Registry; coded errors render as `{error, code, editor?, details?}`
// with the status their kind implies.  Cache tags of successful mutations
// are fanned out through the revalidation Publisher.
//
// Also mounted: `/healthz` (database ping) and `/metrics` (Prometheus).
//
// Middleware order
// ----------------
//  1. RequestID, RealIP        – correlation and client address.
//  2. access log               – one zap line per request.
//  3. Recoverer                – panics become 500s.
//  4. Security (+ ForceHTTPS)  – headers before the handler writes.
//  5. Timeout                  – bounds every action.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/sitebuilder/internal/actions"
	"github.com/yanizio/sitebuilder/internal/middleware"
	"github.com/yanizio/sitebuilder/internal/revalidate"
)

// AppResolver maps a request host to an app id.
type AppResolver interface {
	AppID(ctx context.Context, host string) (string, error)
}

// Deps are the collaborators the router needs.  Tenants may be nil when
// HostMapping is false; Publisher defaults to revalidate.Noop.
type Deps struct {
	Registry    *actions.Registry
	Tenants     AppResolver
	Publisher   revalidate.Publisher
	Log         *zap.Logger
	Health      func(ctx context.Context) error
	HostMapping bool
	ForceHTTPS  bool
	Timeout     time.Duration
}

// NewRouter builds the chi mux.
func NewRouter(d Deps) http.Handler {
	if d.Publisher == nil {
		d.Publisher = revalidate.Noop{}
	}
	if d.Timeout <= 0 {
		d.Timeout = 25 * time.Second
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(d.Log))
	r.Use(chimw.Recoverer)
	if d.ForceHTTPS {
		r.Use(middleware.ForceHTTPS)
	}
	r.Use(middleware.Security)

	r.Get("/healthz", health(d.Health))
	r.Handle("/metrics", promhttp.Handler())

	h := &actionHandler{
		registry:  d.Registry,
		publisher: d.Publisher,
		log:       d.Log.Named("api"),
	}
	r.Route("/api", func(api chi.Router) {
		api.Use(chimw.Timeout(d.Timeout))
		api.Use(requester(d.Tenants, d.HostMapping))
		api.Post("/actions", h.serve)
	})
	return r
}

func health(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// accessLog writes one line per request once the response is complete.
func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
