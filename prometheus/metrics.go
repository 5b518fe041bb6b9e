package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"order-service/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Order metrics
	OrdersCreatedCounter      *prometheus.CounterVec
	OrderValueHistogram       prometheus.Histogram
	OrderCommitFailures       *prometheus.CounterVec
	SideEffectFailuresCounter *prometheus.CounterVec

	// Draft metrics
	DraftOperationsCounter *prometheus.CounterVec

	// Inventory metrics
	ProductInventoryGauge *prometheus.GaugeVec

	initOnce sync.Once
)

// InitMetrics registers the service metrics under the configured prefix.
// Subsequent calls are no-ops.
func InitMetrics(config *config.Config) {
	initOnce.Do(func() {
		register(promauto.With(prometheus.DefaultRegisterer), config.Metrics.Prefix)
	})
}

func register(factory promauto.Factory, prefix string) {
	HttpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthAttemptsCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthErrorsCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	DbOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	OrdersCreatedCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_orders_created_total",
			Help: "Total number of committed orders",
		},
		[]string{"payment_status", "degraded"},
	)

	OrderValueHistogram = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_order_value",
			Help:    "Order totals at commit time",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		},
	)

	OrderCommitFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_order_commit_failures_total",
			Help: "Total number of order commits rejected or failed, by reason",
		},
		[]string{"reason"},
	)

	SideEffectFailuresCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_order_side_effect_failures_total",
			Help: "Total number of post-commit bookkeeping failures",
		},
		[]string{"kind"},
	)

	DraftOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_draft_operations_total",
			Help: "Total number of draft operations",
		},
		[]string{"operation", "result"},
	)

	ProductInventoryGauge = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_product_inventory",
			Help: "Current inventory level for products",
		},
		[]string{"tenant_id", "product_id"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if DbOperationDuration == nil {
			return
		}
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordOrderCreated counts a committed order and observes its total
func RecordOrderCreated(paymentStatus string, degraded bool, total float64) {
	if OrdersCreatedCounter == nil {
		return
	}
	label := "false"
	if degraded {
		label = "true"
	}
	OrdersCreatedCounter.WithLabelValues(paymentStatus, label).Inc()
	OrderValueHistogram.Observe(total)
}

// RecordCommitFailure counts an order commit that did not produce an order
func RecordCommitFailure(reason string) {
	if OrderCommitFailures == nil {
		return
	}
	OrderCommitFailures.WithLabelValues(reason).Inc()
}

// RecordSideEffectFailure counts a swallowed stock or customer aggregate failure
func RecordSideEffectFailure(kind string) {
	if SideEffectFailuresCounter == nil {
		return
	}
	SideEffectFailuresCounter.WithLabelValues(kind).Inc()
}

// RecordDraftOperation counts draft add/remove/override/total calls
func RecordDraftOperation(operation, result string) {
	if DraftOperationsCounter == nil {
		return
	}
	DraftOperationsCounter.WithLabelValues(operation, result).Inc()
}

// UpdateProductInventory updates the gauge for product inventory
func UpdateProductInventory(tenantID, productID string, count float64) {
	if ProductInventoryGauge == nil {
		return
	}
	ProductInventoryGauge.WithLabelValues(tenantID, productID).Set(count)
}
