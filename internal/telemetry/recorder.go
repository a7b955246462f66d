package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/BaSui01/rsimage/image"
)

const instrumentationName = "github.com/BaSui01/rsimage/image"

// Recorder 以 OTel 指标记录图像生成事件，实现 image.Recorder。
// 仪表来自全局 MeterProvider，遥测关闭时为 noop。
type Recorder struct {
	attemptTotal       metric.Int64Counter
	attemptDuration    metric.Float64Histogram
	pollTotal          metric.Int64Counter
	generationTotal    metric.Int64Counter
	generationDuration metric.Float64Histogram
}

var _ image.Recorder = (*Recorder)(nil)

// NewRecorder 使用全局 MeterProvider 创建 Recorder
func NewRecorder() (*Recorder, error) {
	return NewRecorderWithMeter(otel.Meter(instrumentationName))
}

// NewRecorderWithMeter 使用指定 Meter 创建 Recorder
func NewRecorderWithMeter(meter metric.Meter) (*Recorder, error) {
	r := &Recorder{}
	var err error

	// 上游尝试
	r.attemptTotal, err = meter.Int64Counter("image.attempt.total",
		metric.WithDescription("Total number of upstream image API attempts"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		return nil, err
	}

	r.attemptDuration, err = meter.Float64Histogram("image.attempt.duration",
		metric.WithDescription("Upstream attempt duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60))
	if err != nil {
		return nil, err
	}

	// 任务轮询
	r.pollTotal, err = meter.Int64Counter("image.poll.total",
		metric.WithDescription("Total number of task status polls"),
		metric.WithUnit("{poll}"))
	if err != nil {
		return nil, err
	}

	// 整次生成
	r.generationTotal, err = meter.Int64Counter("image.generation.total",
		metric.WithDescription("Total number of image generations"),
		metric.WithUnit("{generation}"))
	if err != nil {
		return nil, err
	}

	r.generationDuration, err = meter.Float64Histogram("image.generation.duration",
		metric.WithDescription("End-to-end generation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 2.5, 5, 10, 30, 60, 120, 300))
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Recorder) RecordAttempt(ctx context.Context, endpoint string, outcome image.Outcome, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", string(outcome)),
	)
	r.attemptTotal.Add(ctx, 1, attrs)
	r.attemptDuration.Record(ctx, d.Seconds(), attrs)
}

func (r *Recorder) RecordPoll(ctx context.Context, outcome image.Outcome) {
	r.pollTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

func (r *Recorder) RecordGeneration(ctx context.Context, kind image.ProviderKind, outcome image.Outcome, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", string(outcome)),
	)
	r.generationTotal.Add(ctx, 1, attrs)
	r.generationDuration.Record(ctx, d.Seconds(), attrs)
}
