// Package metrics registers the prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCalls counts MCP tool invocations by tool and outcome code.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmem_tool_calls_total",
		Help: "MCP tool calls by tool name and result code",
	}, []string{"tool", "code"})

	// HTTPRequests counts REST requests by route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmem_http_requests_total",
		Help: "REST requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks REST latency per route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskmem_http_request_duration_seconds",
		Help:    "REST request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"route"})

	// TaskMutations counts committed task mutations by operation.
	TaskMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmem_task_mutations_total",
		Help: "Committed task mutations by operation",
	}, []string{"operation"})

	// VersionWriteFailures counts mutations that committed without an
	// audit record.
	VersionWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmem_version_write_failures_total",
		Help: "Version records that failed to persist, by operation",
	}, []string{"operation"})

	// BulkItems counts per-item outcomes of bulk reconciliation.
	BulkItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmem_bulk_items_total",
		Help: "Bulk reconciliation items by mode and outcome",
	}, []string{"mode", "outcome"})
)

// ObserveHTTP records one finished REST request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
