package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attendance"

// Metrics 服务指标集合，使用独立 Registry，测试之间互不干扰
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	Runs               *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	RenderFailures     *prometheus.CounterVec
	RosterSize         prometheus.Histogram
	MonthBlocks        prometheus.Counter
	RateLimitRejected  prometheus.Counter
	ArtifactStoreError *prometheus.CounterVec
}

// New 创建 Metrics 并注册 Go 运行时与进程指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "path"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_runs_total",
			Help:      "Total number of calendar generation runs by status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of a full generation run in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		RenderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_failures_total",
			Help:      "Total number of renderer failures by output format",
		}, []string{"format"}),
		RosterSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "roster_size",
			Help:      "Number of roster entries per generation run",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
		MonthBlocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "month_blocks_total",
			Help:      "Total number of synthesized month blocks",
		}),
		RateLimitRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejected_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
		ArtifactStoreError: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_store_errors_total",
			Help:      "Total number of artifact store failures by operation",
		}, []string{"op"}),
	}
}

// ObserveRun 记录一次生成
func (m *Metrics) ObserveRun(status string, d time.Duration, rosterSize, blocks int, failedFormats []string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
	m.RosterSize.Observe(float64(rosterSize))
	m.MonthBlocks.Add(float64(blocks))
	for _, f := range failedFormats {
		m.RenderFailures.WithLabelValues(f).Inc()
	}
}

// ObserveHTTP 记录一次请求
func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// StoreError 记录产物存储失败
func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.ArtifactStoreError.WithLabelValues(op).Inc()
}

// RateLimited 记录一次限流拒绝
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitRejected.Inc()
}

// Gatherer 供测试读取指标
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Handler /metrics 暴露端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
