// Package metrics defines and registers all custom Prometheus metrics of the
// provisioner. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default registry at package init through
// promauto; the HTTP layer exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vpnbot"

// ── Lifecycle metrics ────────────────────────────────────────────────────────

// ConfigsCreatedTotal counts CreateConfig outcomes that reached the panel.
// Label:
//   - result: "ok", "panel_error" or "storage_error"
var ConfigsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "configs_created_total",
		Help:      "Total number of config creation attempts, by result.",
	},
	[]string{"result"},
)

// ConfigsDeletedTotal counts DeleteConfig outcomes that reached the panel.
// Label:
//   - result: "ok", "panel_error", "panel_refused" or "storage_error"
var ConfigsDeletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "configs_deleted_total",
		Help:      "Total number of config deletion attempts, by result.",
	},
	[]string{"result"},
)

// QuotaRejectionsTotal counts CreateConfig calls refused by the per-user quota.
var QuotaRejectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_rejections_total",
		Help:      "Total number of config creations rejected by the user quota.",
	},
)

// UsersRegisteredTotal counts first-contact registrations.
var UsersRegisteredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_registered_total",
		Help:      "Total number of users registered on first contact.",
	},
)

// ── Panel metrics ────────────────────────────────────────────────────────────

// PanelRequestDuration measures each HTTP round trip to the panel.
// Labels:
//   - op: "login", "add", "del" or "list"
//   - outcome: "ok" or "error"
var PanelRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "panel_request_duration_seconds",
		Help:      "Duration of HTTP requests to the VPN panel.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op", "outcome"},
)

// ── Reconciliation metrics ───────────────────────────────────────────────────

// ReconcileActionsTotal counts corrective actions taken by the reconciler.
// Label:
//   - action: "orphan_found", "orphan_deleted", "missing_remote" or "expired"
var ReconcileActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_actions_total",
		Help:      "Total number of reconciliation actions, by kind.",
	},
	[]string{"action"},
)

// ── HTTP metrics ─────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts API requests.
// Labels:
//   - method, route (the registered path template) and status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served by the API.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures API request latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the API.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── Serializer metrics ───────────────────────────────────────────────────────

// SerializerQueueDepth tracks jobs waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var SerializerQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "serializer_queue_depth",
		Help:      "Number of jobs waiting in each per-user serializer worker.",
	},
	[]string{"worker_id"},
)
