// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/rsimage/image"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标（运维端口）
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 图像生成指标
	imageAttemptsTotal     *prometheus.CounterVec
	imageAttemptDuration   *prometheus.HistogramVec
	imagePollsTotal        *prometheus.CounterVec
	imageGenerationsTotal  *prometheus.CounterVec
	imageGenerationSeconds *prometheus.HistogramVec

	// 闸门与账本指标
	gateDecisionsTotal *prometheus.CounterVec
	quotaDeniedTotal   *prometheus.CounterVec
	usageRecordedTotal *prometheus.CounterVec

	// 投递指标
	deliveriesTotal *prometheus.CounterVec

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

	// 图像生成指标
	c.imageAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_attempts_total",
			Help:      "Total number of upstream generation attempts",
		},
		[]string{"endpoint", "outcome"},
	)

	c.imageAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_attempt_duration_seconds",
			Help:      "Upstream generation attempt duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"endpoint"},
	)

	c.imagePollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_task_polls_total",
			Help:      "Total number of task status polls",
		},
		[]string{"outcome"},
	)

	c.imageGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_generations_total",
			Help:      "Total number of generation requests",
		},
		[]string{"kind", "outcome"},
	)

	c.imageGenerationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_generation_duration_seconds",
			Help:      "End-to-end generation duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	// 闸门与账本指标
	c.gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Total number of request gate decisions",
		},
		[]string{"result"}, // allowed, cooldown, unsafe_content
	)

	c.quotaDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_denied_total",
			Help:      "Total number of requests denied by quota",
		},
		[]string{"plan"},
	)

	c.usageRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_recorded_total",
			Help:      "Total number of generations charged to a user",
		},
		[]string{"plan"},
	)

	// 投递指标
	c.deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of image deliveries to chat users",
		},
		[]string{"method", "outcome"}, // method: bytes, url, refetch
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🖼 图像生成指标记录（实现 image.Recorder）
// =============================================================================

var _ image.Recorder = (*Collector)(nil)

// RecordAttempt 记录一次上游请求
func (c *Collector) RecordAttempt(_ context.Context, endpoint string, outcome image.Outcome, d time.Duration) {
	c.imageAttemptsTotal.WithLabelValues(endpoint, string(outcome)).Inc()
	c.imageAttemptDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordPoll 记录一次任务状态轮询
func (c *Collector) RecordPoll(_ context.Context, outcome image.Outcome) {
	c.imagePollsTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordGeneration 记录一次完整生成
func (c *Collector) RecordGeneration(_ context.Context, kind image.ProviderKind, outcome image.Outcome, d time.Duration) {
	c.imageGenerationsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
	c.imageGenerationSeconds.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// =============================================================================
// 🚦 闸门、账本与投递指标记录
// =============================================================================

// RecordGate 记录闸门判定，result 为 allowed 或拒绝原因
func (c *Collector) RecordGate(result string) {
	c.gateDecisionsTotal.WithLabelValues(result).Inc()
}

// RecordQuotaDenied 记录额度拒绝
func (c *Collector) RecordQuotaDenied(plan string) {
	c.quotaDeniedTotal.WithLabelValues(plan).Inc()
}

// RecordUsage 记录一次记账
func (c *Collector) RecordUsage(plan string) {
	c.usageRecordedTotal.WithLabelValues(plan).Inc()
}

// RecordDelivery 记录一次投递尝试
func (c *Collector) RecordDelivery(method string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	c.deliveriesTotal.WithLabelValues(method, outcome).Inc()
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
