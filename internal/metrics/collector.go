// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	namespace string

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 会话指标
	sessionOperations *prometheus.CounterVec
	streamMessages    *prometheus.CounterVec
	streamValues      *prometheus.CounterVec
	streamDuration    *prometheus.HistogramVec

	// 缓冲区指标
	bufferBatches     *prometheus.CounterVec
	bufferBatchValues *prometheus.HistogramVec
	bufferGrowths     *prometheus.CounterVec
	bufferCapacity    *prometheus.GaugeVec
	bufferExhausted   *prometheus.CounterVec
	bufferDelivered   *prometheus.CounterVec

	activeSessions prometheus.GaugeFunc

	logger *zap.Logger
	mu     sync.Mutex
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		namespace: namespace,
		logger:    logger.With(zap.String("component", "metrics")),
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

	// 会话指标
	c.sessionOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_operations_total",
			Help:      "Total number of coordination operations handled",
		},
		[]string{"operation", "alerted"},
	)

	c.streamMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "Total number of sample messages streamed",
		},
		[]string{"role", "data_type"},
	)

	c.streamValues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_values_total",
			Help:      "Total number of scalar values streamed",
		},
		[]string{"role", "data_type"},
	)

	c.streamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_duration_seconds",
			Help:      "Duration of a complete stream in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"role", "data_type"},
	)

	// 缓冲区指标
	c.bufferBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_batches_pulled_total",
			Help:      "Total number of non-empty batches pulled from producers",
		},
		[]string{"role"},
	)

	c.bufferBatchValues = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "buffer_batch_values",
			Help:      "Number of values per pulled batch",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"role"},
	)

	c.bufferGrowths = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_ring_growths_total",
			Help:      "Total number of ring buffer growths",
		},
		[]string{"role"},
	)

	c.bufferCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_ring_capacity",
			Help:      "Ring capacity after the most recent growth",
		},
		[]string{"role"},
	)

	c.bufferExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_exhausted_total",
			Help:      "Total number of producers that signalled exhaustion",
		},
		[]string{"role"},
	)

	c.bufferDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_delivered_values_total",
			Help:      "Total number of values handed out by batch buffers",
		},
		[]string{"role"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

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
// 📡 会话指标记录
// =============================================================================

// RecordOperation 记录一次协调操作，实现 session.Metrics
func (c *Collector) RecordOperation(op string, alerted bool) {
	c.sessionOperations.WithLabelValues(op, boolLabel(alerted)).Inc()
}

// RecordStream 记录一次完整的流传输，实现 session.Metrics
func (c *Collector) RecordStream(role string, dataType demux.DataType, messages, values int, d time.Duration) {
	dt := string(dataType)
	c.streamMessages.WithLabelValues(role, dt).Add(float64(messages))
	c.streamValues.WithLabelValues(role, dt).Add(float64(values))
	c.streamDuration.WithLabelValues(role, dt).Observe(d.Seconds())
}

// TrackActiveSessions 注册活跃会话数 Gauge，数值在采集时由 fn 提供。
// 只能调用一次，重复调用返回 false。
func (c *Collector) TrackActiveSessions(fn func() int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeSessions != nil {
		return false
	}
	c.activeSessions = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "active_sessions",
			Help:      "Number of open streaming sessions",
		},
		func() float64 { return float64(fn()) },
	)
	return true
}

// =============================================================================
// 🧺 缓冲区指标记录
// =============================================================================

// BufferObserver 返回按 role 打标签的 buffer.Observer
func (c *Collector) BufferObserver(role string) buffer.Observer {
	return &bufferObserver{c: c, role: role}
}

type bufferObserver struct {
	c    *Collector
	role string
}

func (o *bufferObserver) BatchPulled(values int) {
	o.c.bufferBatches.WithLabelValues(o.role).Inc()
	o.c.bufferBatchValues.WithLabelValues(o.role).Observe(float64(values))
}

func (o *bufferObserver) RingGrown(capacity int) {
	o.c.bufferGrowths.WithLabelValues(o.role).Inc()
	o.c.bufferCapacity.WithLabelValues(o.role).Set(float64(capacity))
}

func (o *bufferObserver) Exhausted() {
	o.c.bufferExhausted.WithLabelValues(o.role).Inc()
}

func (o *bufferObserver) Delivered(values int) {
	o.c.bufferDelivered.WithLabelValues(o.role).Add(float64(values))
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

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
