// Package metrics holds Prometheus instruments that are used across the
// builder.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "builder_actions_total",
			Help: "Dispatched actions by name and result code (\"ok\" on success).",
		}, []string{"action", "code"})

	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "builder_action_duration_seconds",
			Help:    "Action execution latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"})

	CascadeSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "builder_slug_cascade_rows",
			Help:    "Rows rewritten by one slug or parent change.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"kind"})

	DeletedPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "builder_deleted_pages_total",
			Help: "Cumulative number of page ids removed by delete closures.",
		})

	RevisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "builder_revisions_total",
			Help: "Cumulative number of revisions archived on publish.",
		})

	RevalidateErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "builder_revalidate_errors_total",
			Help: "Cache-tag publications that failed.",
		})

	TenantLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "builder_tenant_lookup_total",
			Help: "Host to app lookups by result (hit, load, miss, error).",
		}, []string{"result"})

	CachedTenants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "builder_cached_tenants",
			Help: "Number of host mappings currently cached in memory.",
		})
)

func init() {
	prometheus.MustRegister(
		ActionsTotal,
		ActionDuration,
		CascadeSize,
		DeletedPagesTotal,
		RevisionsTotal,
		RevalidateErrorsTotal,
		TenantLookupTotal,
		CachedTenants,
	)
}
