package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/domain/values"
)

// Registry holds all collection domain metrics.
type Registry struct {
	meter metric.Meter

	// Payment metrics
	PaymentAmount   metric.Float64Histogram
	PaymentCounter  metric.Int64Counter
	PaymentFailures metric.Int64Counter

	// Dashboard read metrics
	DashboardLatency metric.Float64Histogram
	KPICacheHits     metric.Int64Counter
	KPICacheMisses   metric.Int64Counter

	// CollectionRateGauge observes the last computed collection rate.
	CollectionRateGauge metric.Float64ObservableGauge

	// API metrics
	APIRequestDuration metric.Float64Histogram
	APIRequestCounter  metric.Int64Counter

	mu             sync.RWMutex
	collectionRate float64
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initPaymentMetrics(); err != nil {
		return nil, err
	}
	if err := r.initDashboardMetrics(); err != nil {
		return nil, err
	}
	if err := r.initAPIMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initPaymentMetrics() error {
	var err error

	r.PaymentAmount, err = r.meter.Float64Histogram(
		"collections.payment.amount",
		metric.WithDescription("Recorded payment amounts in ILS"),
		metric.WithUnit("ILS"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 2500, 5000, 10000, 25000, 50000),
	)
	if err != nil {
		return err
	}

	r.PaymentCounter, err = r.meter.Int64Counter(
		"collections.payment.total",
		metric.WithDescription("Total number of recorded payments"),
	)
	if err != nil {
		return err
	}

	r.PaymentFailures, err = r.meter.Int64Counter(
		"collections.payment.failure_total",
		metric.WithDescription("Total number of failed payment writes"),
	)
	return err
}

func (r *Registry) initDashboardMetrics() error {
	var err error

	r.DashboardLatency, err = r.meter.Float64Histogram(
		"collections.dashboard.read_latency",
		metric.WithDescription("Dashboard read latency in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000),
	)
	if err != nil {
		return err
	}

	r.KPICacheHits, err = r.meter.Int64Counter(
		"collections.kpi.cache_hit_total",
		metric.WithDescription("Total KPI cache hits"),
	)
	if err != nil {
		return err
	}

	r.KPICacheMisses, err = r.meter.Int64Counter(
		"collections.kpi.cache_miss_total",
		metric.WithDescription("Total KPI cache misses"),
	)
	if err != nil {
		return err
	}

	r.CollectionRateGauge, err = r.meter.Float64ObservableGauge(
		"collections.kpi.collection_rate",
		metric.WithDescription("Last computed collection rate percentage"),
		metric.WithUnit("%"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.collectionRate)
			return nil
		}),
	)
	return err
}

func (r *Registry) initAPIMetrics() error {
	var err error

	r.APIRequestDuration, err = r.meter.Float64Histogram(
		"collections.api.request_duration",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.APIRequestCounter, err = r.meter.Int64Counter(
		"collections.api.request_total",
		metric.WithDescription("Total number of API requests"),
	)
	return err
}

// RecordPayment records a successful payment write.
func (r *Registry) RecordPayment(ctx context.Context, method fee.PaymentMethod, amount values.Money) {
	attrs := []attribute.KeyValue{
		attribute.String("method", string(method)),
	}

	r.PaymentAmount.Record(ctx, amount.ToFloat64(), metric.WithAttributes(attrs...))
	r.PaymentCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPaymentFailure records a failed payment write.
func (r *Registry) RecordPaymentFailure(ctx context.Context, method fee.PaymentMethod) {
	r.PaymentFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(method)),
	))
}

// RecordDashboardLatency records one dashboard read.
func (r *Registry) RecordDashboardLatency(ctx context.Context, latency time.Duration) {
	r.DashboardLatency.Record(ctx, float64(latency.Milliseconds()))
}

// RecordCollectionRate stores the last computed rate for the gauge.
func (r *Registry) RecordCollectionRate(ctx context.Context, rate float64) {
	r.mu.Lock()
	r.collectionRate = rate
	r.mu.Unlock()
}

// RecordKPICacheHit counts a KPI cache hit or miss.
func (r *Registry) RecordKPICacheHit(ctx context.Context, hit bool) {
	if hit {
		r.KPICacheHits.Add(ctx, 1)
		return
	}
	r.KPICacheMisses.Add(ctx, 1)
}

// RecordAPIRequest records API request metrics
func (r *Registry) RecordAPIRequest(ctx context.Context, duration float64, method, path string, statusCode int) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	}

	r.APIRequestDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
	r.APIRequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
