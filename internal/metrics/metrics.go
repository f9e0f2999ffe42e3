package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shoplite/storefront-api/pkg/config"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// AppMetrics holds all application metrics. Recording goes through the
// methods below, which tolerate a nil receiver so services can run without
// a metrics pipeline in tests.
type AppMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Database metrics
	DBQueriesTotal  metric.Int64Counter
	DBQueryDuration metric.Float64Histogram

	// Business metrics
	OrdersPlaced    metric.Int64Counter
	OrdersCancelled metric.Int64Counter
	RevenueTotal    metric.Float64Counter
	ProductsViewed  metric.Int64Counter
	CartItemsCount  metric.Int64Gauge
	ActiveCarts     metric.Int64Gauge
	StockLevel      metric.Int64Gauge

	// Application metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	serviceName string
}

// InitMetrics initializes the OpenTelemetry metric pipeline and the
// application instruments.
func InitMetrics(ctx context.Context, cfg *config.Config) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.AppEnv),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.OTELExporterOTLPHeaders != "" {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(10*time.Second),
	)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(cfg.OTELServiceName)

	// Histogram buckets in milliseconds, up to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	m := &AppMetrics{serviceName: cfg.OTELServiceName}

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	if m.HTTPRequestsErrors, err = meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	if m.DBQueriesTotal, err = meter.Int64Counter(
		"db.client.queries.count",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create db queries counter: %w", err)
	}

	if m.DBQueryDuration, err = meter.Float64Histogram(
		"db.client.queries.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create db duration histogram: %w", err)
	}

	if m.OrdersPlaced, err = meter.Int64Counter(
		"orders_placed_total",
		metric.WithDescription("Total number of orders placed"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create orders placed counter: %w", err)
	}

	if m.OrdersCancelled, err = meter.Int64Counter(
		"orders_cancelled_total",
		metric.WithDescription("Total number of orders cancelled"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create orders cancelled counter: %w", err)
	}

	if m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue from placed orders"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	if m.ProductsViewed, err = meter.Int64Counter(
		"products_viewed_total",
		metric.WithDescription("Total number of product views"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create products viewed counter: %w", err)
	}

	if m.CartItemsCount, err = meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Current number of items in a user's cart"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}

	if m.ActiveCarts, err = meter.Int64Gauge(
		"active_carts_count",
		metric.WithDescription("Number of carts holding at least one item"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create active carts gauge: %w", err)
	}

	if m.StockLevel, err = meter.Int64Gauge(
		"product_stock_level",
		metric.WithDescription("Stock remaining for a product after a ledger movement"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create stock level gauge: %w", err)
	}

	if m.CacheHits, err = meter.Int64Counter(
		"cache_hits_total",
		metric.WithDescription("Product cache hits"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	if m.CacheMisses, err = meter.Int64Counter(
		"cache_misses_total",
		metric.WithDescription("Product cache misses"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	return m, meterProvider, nil
}

// WithServiceName appends the service.name attribute to attrs.
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	if m == nil {
		return attrs
	}
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordDBQuery records one database statement execution.
func (m *AppMetrics) RecordDBQuery(ctx context.Context, operation, table string, start time.Time, success bool) {
	if m == nil {
		return
	}
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.table", table),
		attribute.Bool("db.success", success),
	})
	m.DBQueriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.DBQueryDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	})
	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if statusCode >= 400 {
		m.HTTPRequestsErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.HTTPRequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordOrderPlaced records a placed order and its revenue.
func (m *AppMetrics) RecordOrderPlaced(ctx context.Context, total decimal.Decimal, currency string) {
	if m == nil {
		return
	}
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("currency", currency),
	})
	m.OrdersPlaced.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.RevenueTotal.Add(ctx, total.InexactFloat64(), metric.WithAttributes(attrs...))
}

// RecordOrderCancelled records an order cancellation.
func (m *AppMetrics) RecordOrderCancelled(ctx context.Context) {
	if m == nil {
		return
	}
	m.OrdersCancelled.Add(ctx, 1, metric.WithAttributes(m.WithServiceName(nil)...))
}

// RecordProductView records a catalog detail view.
func (m *AppMetrics) RecordProductView(ctx context.Context, productID, categoryID int64) {
	if m == nil {
		return
	}
	m.ProductsViewed.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.Int64("product_id", productID),
		attribute.Int64("category_id", categoryID),
	})...))
}

// RecordCartItems records the current item count of one cart.
func (m *AppMetrics) RecordCartItems(ctx context.Context, userID int64, count int) {
	if m == nil {
		return
	}
	m.CartItemsCount.Record(ctx, int64(count), metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.Int64("user_id", userID),
	})...))
}

// RecordActiveCarts records the number of non-empty carts.
func (m *AppMetrics) RecordActiveCarts(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.ActiveCarts.Record(ctx, int64(count), metric.WithAttributes(m.WithServiceName(nil)...))
}

// RecordStockLevel records a product's stock after a reserve or release.
func (m *AppMetrics) RecordStockLevel(ctx context.Context, productID int64, stock int) {
	if m == nil {
		return
	}
	m.StockLevel.Record(ctx, int64(stock), metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.Int64("product_id", productID),
	})...))
}

// RecordCacheLookup records a product cache hit or miss.
func (m *AppMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(m.WithServiceName(nil)...)
	if hit {
		m.CacheHits.Add(ctx, 1, attrs)
	} else {
		m.CacheMisses.Add(ctx, 1, attrs)
	}
}

// parseHeaders parses "k1=v1,k2=v2" into a header map.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) == 2 && kv[0] != "" {
			headers[kv[0]] = kv[1]
		}
	}
	return headers
}
