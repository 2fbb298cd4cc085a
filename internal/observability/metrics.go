package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gardener"

// Metrics はgardenerのPrometheusメトリクスをまとめたもの。
// インスタンスごとに専用のレジストリを持つため、テストで並列に生成しても衝突しない。
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	authDecisions      *prometheus.CounterVec
	flagRefreshes      *prometheus.CounterVec
	manifestRejections prometheus.Counter
}

// NewMetrics は新しいMetricsを生成してレジストリに登録する。
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	m.invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_invocations_total",
			Help:      "Backend invocations by api-handler and outcome",
		},
		[]string{"handler", "outcome"},
	)
	m.invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_invocation_duration_seconds",
			Help:      "Backend invocation latency in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"handler"},
	)
	m.authDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_decisions_total",
			Help:      "Authorization decisions by mode and result",
		},
		[]string{"mode", "result"},
	)
	m.flagRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flag_refreshes_total",
			Help:      "Remote flag fetch attempts by result",
		},
		[]string{"result"},
	)
	m.manifestRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_rejections_total",
			Help:      "Service manifests rejected by validation",
		},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.invocationsTotal,
		m.invocationDuration,
		m.authDecisions,
		m.flagRefreshes,
		m.manifestRejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry はメトリクスのレジストリを返す。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler は /metrics 用のHTTPハンドラを返す。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest はHTTPリクエスト1件を記録する。
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveInvocation はバックエンド呼び出し1件を記録する。
// outcomeは success, logical_error, transport_error のいずれか。
func (m *Metrics) ObserveInvocation(handler, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.invocationsTotal.WithLabelValues(handler, outcome).Inc()
	m.invocationDuration.WithLabelValues(handler).Observe(d.Seconds())
}

// ObserveAuth は認可判定1件を記録する。
func (m *Metrics) ObserveAuth(mode string, allowed bool) {
	if m == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.authDecisions.WithLabelValues(mode, result).Inc()
}

// ObserveFlagRefresh はフラグ取得の試行1件を記録する。
func (m *Metrics) ObserveFlagRefresh(result string) {
	if m == nil {
		return
	}
	m.flagRefreshes.WithLabelValues(result).Inc()
}

// ObserveManifestRejection はマニフェスト検証失敗1件を記録する。
func (m *Metrics) ObserveManifestRejection() {
	if m == nil {
		return
	}
	m.manifestRejections.Inc()
}
