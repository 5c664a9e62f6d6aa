package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics holds every application metric instrument. When metrics are
// disabled the instruments are backed by a noop meter, so call sites do
// not need to guard.
type Metrics struct {
	meter metric.Meter

	// Swap execution
	SwapsExecuted      metric.Int64Counter
	SwapDuration       metric.Float64Histogram
	SlippageRejections metric.Int64Counter

	// Tier routing
	TierSelections metric.Int64Counter
	QuoteCalls     metric.Int64Counter
	QuoteDuration  metric.Float64Histogram

	// Liquidity management
	LiquidityActions metric.Int64Counter

	// Event publishing
	EventPublishes metric.Int64Counter

	// Cache
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// RPC endpoints
	RPCEndpointHealth metric.Int64Gauge

	// Errors by operation
	Errors metric.Int64Counter
}

// NewMetrics creates a Metrics instance. When enabled, instruments are
// registered with an OpenTelemetry meter exported via Prometheus.
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	var meter metric.Meter

	if enabled {
		res, err := resource.New(
			context.Background(),
			resource.WithAttributes(
				semconv.ServiceNameKey.String(serviceName),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}

		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}

		provider := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		meter = provider.Meter(serviceName)
	} else {
		meter = noop.NewMeterProvider().Meter(serviceName)
	}

	m := &Metrics{meter: meter}
	if err := m.initInstruments(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initInstruments() error {
	var err error

	m.SwapsExecuted, err = m.meter.Int64Counter(
		"router.swaps.executed",
		metric.WithDescription("Total swaps executed, by mode"),
	)
	if err != nil {
		return err
	}

	m.SwapDuration, err = m.meter.Float64Histogram(
		"router.swap.duration",
		metric.WithDescription("End-to-end swap duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.SlippageRejections, err = m.meter.Int64Counter(
		"router.slippage.rejections",
		metric.WithDescription("Swaps rejected for exceeding slippage tolerance"),
	)
	if err != nil {
		return err
	}

	m.TierSelections, err = m.meter.Int64Counter(
		"router.tier.selections",
		metric.WithDescription("Best-tier selections, by fee tier"),
	)
	if err != nil {
		return err
	}

	m.QuoteCalls, err = m.meter.Int64Counter(
		"router.quoter.calls",
		metric.WithDescription("Total QuoterV2 simulation calls"),
	)
	if err != nil {
		return err
	}

	m.QuoteDuration, err = m.meter.Float64Histogram(
		"router.quoter.duration",
		metric.WithDescription("QuoterV2 call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.LiquidityActions, err = m.meter.Int64Counter(
		"router.liquidity.actions",
		metric.WithDescription("Liquidity increases and decreases executed"),
	)
	if err != nil {
		return err
	}

	m.EventPublishes, err = m.meter.Int64Counter(
		"router.events.published",
		metric.WithDescription("Domain events published, by sink and status"),
	)
	if err != nil {
		return err
	}

	m.CacheHits, err = m.meter.Int64Counter(
		"router.cache.hits",
		metric.WithDescription("Cache hits"),
	)
	if err != nil {
		return err
	}

	m.CacheMisses, err = m.meter.Int64Counter(
		"router.cache.misses",
		metric.WithDescription("Cache misses"),
	)
	if err != nil {
		return err
	}

	m.RPCEndpointHealth, err = m.meter.Int64Gauge(
		"router.rpc.endpoint.health",
		metric.WithDescription("RPC endpoint health (1 healthy, 0 unhealthy)"),
	)
	if err != nil {
		return err
	}

	m.Errors, err = m.meter.Int64Counter(
		"router.errors",
		metric.WithDescription("Errors by operation"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Handler returns the HTTP handler serving Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSwap records a completed swap with its mode and duration.
func (m *Metrics) RecordSwap(ctx context.Context, mode string, start time.Time) {
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	m.SwapsExecuted.Add(ctx, 1, attrs)
	m.SwapDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}

// RecordTierSelection records a best-tier selection.
func (m *Metrics) RecordTierSelection(ctx context.Context, fee uint32) {
	m.TierSelections.Add(ctx, 1, metric.WithAttributes(attribute.Int64("fee_tier", int64(fee))))
}

// RecordLiquidityAction records an executed liquidity increase or decrease.
func (m *Metrics) RecordLiquidityAction(ctx context.Context, kind string) {
	m.LiquidityActions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordEventPublish records a domain event publish attempt.
func (m *Metrics) RecordEventPublish(ctx context.Context, sink, status string) {
	m.EventPublishes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("status", status),
	))
}

// RecordRPCEndpointHealth records an endpoint health transition.
func (m *Metrics) RecordRPCEndpointHealth(ctx context.Context, url string, healthy bool) {
	v := int64(0)
	if healthy {
		v = 1
	}
	m.RPCEndpointHealth.Record(ctx, v, metric.WithAttributes(attribute.String("endpoint", url)))
}

// RecordError records an error for the given operation.
func (m *Metrics) RecordError(ctx context.Context, operation string) {
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
