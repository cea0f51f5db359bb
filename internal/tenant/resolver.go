// internal/tenant/resolver.go
//
// Host → app id resolution.
//
// Context
// -------
// Every builder request acts on one tenant (app).  With host mapping on,
// the app is found by the request host in the `apps` table.  Lookups go
// through a small LRU; concurrent misses for the same host collapse into a
// single query via singleflight.
//
// Workflow
// --------
//  1. LRU hit → return.
//  2. singleflight(host) → re-check LRU, then query.
//  3. Store hit in LRU; unknown hosts are not cached.
//
// Notes
// -----
// • Only `status = 'active'` apps resolve.
// • Ports are stripped and hosts lower-cased before lookup.
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/sitebuilder/internal/cache"
	"github.com/yanizio/sitebuilder/internal/metrics"
)

// Static defaults.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 1000
)

// ErrNotFound is returned when a host maps to no active app.
var ErrNotFound = errors.New("tenant not found")

// Resolver maps request hosts to app ids.
type Resolver struct {
	db   *sqlx.DB
	log  *zap.Logger
	sfg  singleflight.Group
	apps *cache.LRU[string, string]
}

// New constructs a Resolver over the global database.
func New(db *sqlx.DB, log *zap.Logger, ttl time.Duration, maxEntries int) *Resolver {
	return &Resolver{
		db:   db,
		log:  log,
		apps: cache.New[string, string](maxEntries, ttl),
	}
}

// AppID returns the active app serving host.
func (r *Resolver) AppID(ctx context.Context, host string) (string, error) {
	host = normalise(host)
	if id, ok := r.apps.Get(host); ok {
		metrics.TenantLookupTotal.WithLabelValues("hit").Inc()
		return id, nil
	}

	v, err, _ := r.sfg.Do(host, func() (any, error) {
		// Double-check after singleflight barrier.
		if id, ok := r.apps.Get(host); ok {
			return id, nil
		}
		id, err := r.load(context.WithoutCancel(ctx), host)
		if err != nil {
			return "", err
		}
		r.apps.Add(host, id)
		metrics.CachedTenants.Set(float64(r.apps.Len()))
		return id, nil
	})
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.TenantLookupTotal.WithLabelValues("miss").Inc()
		return "", err
	case err != nil:
		metrics.TenantLookupTotal.WithLabelValues("error").Inc()
		r.log.Error("tenant lookup failed", zap.String("host", host), zap.Error(err))
		return "", err
	}
	metrics.TenantLookupTotal.WithLabelValues("load").Inc()
	return v.(string), nil
}

// Forget drops a cached mapping, e.g. after a host is re-assigned.
func (r *Resolver) Forget(host string) {
	r.apps.Remove(normalise(host))
	metrics.CachedTenants.Set(float64(r.apps.Len()))
}

func (r *Resolver) load(ctx context.Context, host string) (string, error) {
	var id string
	q := r.db.Rebind(`SELECT id FROM apps WHERE host = ? AND status = 'active'`)
	err := r.db.GetContext(ctx, &id, q, host)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

func normalise(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
