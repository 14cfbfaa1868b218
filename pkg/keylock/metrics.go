package keylock

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 设计决策: 指标前缀使用 "keylock.*"，与 OTel Meter scope name 保持一致
// （Meter("keylock")），避免与 scope 名称产生冗余嵌套。
// 指标不携带 key 标签：key 通常是动态生成的业务值（订单号、资源 ID），
// 作为标签会导致高基数问题。
const (
	// metricNameAcquireTotal 获取锁次数计数器
	metricNameAcquireTotal = "keylock.acquire.total"
	// metricNameAcquireDuration 获取锁耗时直方图
	metricNameAcquireDuration = "keylock.acquire.duration"
	// metricNameReleaseTotal 释放锁次数计数器
	metricNameReleaseTotal = "keylock.release.total"
	// metricNameEntriesActive 活跃条目数
	metricNameEntriesActive = "keylock.entries.active"
)

// instrumentationVersion 仪表化版本号
const instrumentationVersion = "1.0.0"

// 指标属性键
const (
	attrAcquired   = "acquired"
	attrFailReason = "reason"
)

// 获取失败原因（attrFailReason 的取值）
const (
	reasonOccupied  = "occupied"
	reasonCancelled = "cancelled"
	reasonClosed    = "closed"
	reasonMaxKeys   = "max_keys"
)

// failReason 将获取失败的错误映射为指标原因标签。
func failReason(err error) string {
	switch {
	case errors.Is(err, ErrClosed):
		return reasonClosed
	case errors.Is(err, ErrMaxKeysExceeded):
		return reasonMaxKeys
	default:
		return reasonCancelled
	}
}

// Metrics 锁指标收集器。
// 所有 Record 方法对 nil 接收者安全（未启用指标时为 no-op）。
type Metrics struct {
	meter           metric.Meter
	acquireTotal    metric.Int64Counter
	acquireDuration metric.Float64Histogram
	releaseTotal    metric.Int64Counter
	entriesActive   metric.Int64UpDownCounter
}

// NewMetrics 创建指标收集器。
// 如果 meterProvider 为 nil，返回 nil（不收集指标）。
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	m := &Metrics{}
	m.meter = meterProvider.Meter("keylock",
		metric.WithInstrumentationVersion(instrumentationVersion),
	)

	var err error
	if m.acquireTotal, err = m.meter.Int64Counter(metricNameAcquireTotal,
		metric.WithDescription("锁获取次数"), metric.WithUnit("{acquire}")); err != nil {
		return nil, err
	}
	if m.acquireDuration, err = m.meter.Float64Histogram(metricNameAcquireDuration,
		metric.WithDescription("锁获取耗时"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...)); err != nil {
		return nil, err
	}
	if m.releaseTotal, err = m.meter.Int64Counter(metricNameReleaseTotal,
		metric.WithDescription("锁释放次数"), metric.WithUnit("{release}")); err != nil {
		return nil, err
	}
	if m.entriesActive, err = m.meter.Int64UpDownCounter(metricNameEntriesActive,
		metric.WithDescription("注册表中的活跃条目数"), metric.WithUnit("{entry}")); err != nil {
		return nil, err
	}

	return m, nil
}

// durationBuckets 耗时直方图的桶边界。
// 无争用获取是纳秒级内存操作，故桶从 1µs 起。
var durationBuckets = []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1.0}

// RecordAcquire 记录一次获取结果。
// reason 仅在 acquired 为 false 时有意义。
func (m *Metrics) RecordAcquire(ctx context.Context, acquired bool, reason string, duration time.Duration) {
	if m == nil {
		return
	}

	// 使用 context.WithoutCancel 确保即使 ctx 被取消，指标仍能记录
	metricsCtx := context.WithoutCancel(ctx)

	attrs := []attribute.KeyValue{
		attribute.Bool(attrAcquired, acquired),
	}
	if !acquired {
		attrs = append(attrs, attribute.String(attrFailReason, reason))
	}

	m.acquireTotal.Add(metricsCtx, 1, metric.WithAttributes(attrs...))
	m.acquireDuration.Record(metricsCtx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRelease 记录一次释放。
// 设计决策: 仅记录 counter，不记录 duration histogram——释放是单次内存操作，
// 耗时极短且稳定，不需要分位数分布分析。
func (m *Metrics) RecordRelease(ctx context.Context) {
	if m == nil {
		return
	}
	m.releaseTotal.Add(context.WithoutCancel(ctx), 1)
}

// RecordEntries 记录活跃条目数变化（创建 +1，回收 -1）。
func (m *Metrics) RecordEntries(delta int64) {
	if m == nil {
		return
	}
	m.entriesActive.Add(context.Background(), delta)
}
