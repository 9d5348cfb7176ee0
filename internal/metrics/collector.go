// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Provider 指标
	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec
	videoPollsTotal         *prometheus.CounterVec

	// 阶段指标
	stageRunsTotal   *prometheus.CounterVec
	stageRunDuration *prometheus.HistogramVec
	activeProjects   prometheus.Gauge

	// 媒体指标
	mediaBytesStored *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// Provider 指标
	c.providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider calls",
		},
		[]string{"provider", "capability", "status"}, // capability: text, image, video
	)

	c.providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider call duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"provider", "capability"},
	)

	c.videoPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_task_polls_total",
			Help:      "Total number of video task status polls",
		},
		[]string{"provider"},
	)

	// 阶段指标
	c.stageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Total number of stage runs and refinements",
		},
		[]string{"stage", "operation", "status"}, // operation: run, refine
	)

	c.stageRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_run_duration_seconds",
			Help:      "Stage run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 900},
		},
		[]string{"stage", "operation"},
	)

	c.activeProjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_projects",
			Help:      "Number of projects held in memory",
		},
	)

	// 媒体指标
	c.mediaBytesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_bytes_stored_total",
			Help:      "Total bytes written to the media store",
		},
		[]string{"kind"}, // kind: image, video
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🤖 Provider 指标记录
// =============================================================================

// RecordProviderRequest 记录一次 Provider 调用
func (c *Collector) RecordProviderRequest(provider, capability, status string, duration time.Duration) {
	c.providerRequestsTotal.WithLabelValues(provider, capability, status).Inc()
	c.providerRequestDuration.WithLabelValues(provider, capability).Observe(duration.Seconds())
}

// RecordVideoPoll 记录一次视频任务轮询
func (c *Collector) RecordVideoPoll(provider string) {
	c.videoPollsTotal.WithLabelValues(provider).Inc()
}

// =============================================================================
// 🎨 阶段指标记录
// =============================================================================

// RecordStageRun 记录阶段执行
func (c *Collector) RecordStageRun(stage, operation, status string, duration time.Duration) {
	c.stageRunsTotal.WithLabelValues(stage, operation, status).Inc()
	c.stageRunDuration.WithLabelValues(stage, operation).Observe(duration.Seconds())
}

// SetActiveProjects 设置内存中的项目数
func (c *Collector) SetActiveProjects(n int) {
	c.activeProjects.Set(float64(n))
}

// =============================================================================
// 🖼️ 媒体指标记录
// =============================================================================

// RecordMediaStored 记录写入媒体存储的字节数
func (c *Collector) RecordMediaStored(kind string, size int) {
	c.mediaBytesStored.WithLabelValues(kind).Add(float64(size))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
