// Package metrics 定义推荐链路的 Prometheus 指标（promauto 注册到默认 registry）。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NodeDuration 记录 Pipeline 各 Node 的耗时。
	NodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artrec_pipeline_node_duration_seconds",
			Help:    "Duration of pipeline node execution in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node", "kind"},
	)

	// NodeItems 记录 Node 输出的候选数。
	NodeItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artrec_pipeline_node_items",
			Help:    "Number of items returned by a pipeline node",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
		},
		[]string{"node"},
	)

	// RecallErrors 记录召回源失败次数（fanout 中失败不影响其他源）。
	RecallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artrec_recall_errors_total",
			Help: "Total number of recall source failures",
		},
		[]string{"source"},
	)

	// Requests 按策略统计推荐请求。
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artrec_requests_total",
			Help: "Total number of recommendation requests by strategy",
		},
		[]string{"strategy"},
	)

	// RequestDuration 按策略记录推荐请求耗时。
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artrec_request_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// Fallbacks 统计回落到热门榜单的次数。
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artrec_fallbacks_total",
			Help: "Total number of requests served by the fallback source",
		},
		[]string{"source"},
	)

	// SnapshotBuildDuration 记录快照构建耗时。
	SnapshotBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "artrec_snapshot_build_duration_seconds",
			Help:    "Duration of interaction snapshot builds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SnapshotVersion 当前快照版本。
	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "artrec_snapshot_version",
			Help: "Version of the currently served interaction snapshot",
		},
	)

	// SnapshotInvalidations 统计失效次数。
	SnapshotInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artrec_snapshot_invalidations_total",
			Help: "Total number of snapshot invalidations",
		},
	)

	// CircuitBreakerState 存储熔断器状态：0=closed 1=half-open 2=open。
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "artrec_store_circuit_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// ObserveNode 记录一次 Node 执行。
func ObserveNode(node, kind string, start time.Time, items int) {
	NodeDuration.WithLabelValues(node, kind).Observe(time.Since(start).Seconds())
	NodeItems.WithLabelValues(node).Observe(float64(items))
}

// ObserveRequest 记录一次推荐请求。
func ObserveRequest(strategy string, start time.Time) {
	Requests.WithLabelValues(strategy).Inc()
	RequestDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
}
