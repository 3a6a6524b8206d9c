package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	OrdersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_orders_created_total",
			Help: "Orders committed, by location",
		},
		[]string{"location"},
	)

	OrderRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_order_rejections_total",
			Help: "Order placements rolled back, by reason",
		},
		[]string{"reason"},
	)

	OrderStatusChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_order_status_changes_total",
			Help: "Committed order status transitions",
		},
		[]string{"from", "to"},
	)

	StockAdjustmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_stock_adjustments_total",
			Help: "Stock adjustment rows written, by direction",
		},
		[]string{"direction"},
	)

	TxRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_store_tx_retries_total",
			Help: "Store transactions retried after contention",
		},
		[]string{"backend"},
	)

	TxAbortedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_store_tx_aborted_total",
			Help: "Store transactions given up after retries or timeout",
		},
		[]string{"backend"},
	)
)

var registerOnce sync.Once

// InitMetrics registers every collector on the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			OrdersCreatedTotal,
			OrderRejectionsTotal,
			OrderStatusChangesTotal,
			StockAdjustmentsTotal,
			TxRetriesTotal,
			TxAbortedTotal,
		)
	})
}

// Middleware records request count and latency per route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		// hata varsa error handler'ı burada çalıştır ki gerçek status code sayılsın
		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()

		path := c.Route().Path
		if path == "" {
			path = "undefined"
		}

		HTTPRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		return nil
	}
}

// LocationLabel maps a nil location to the same "default" bucket the order numbers use.
func LocationLabel(locationID *string) string {
	if locationID == nil || *locationID == "" {
		return "default"
	}
	return *locationID
}
