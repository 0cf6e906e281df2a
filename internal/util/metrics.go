package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders successfully placed",
	})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of the order placement transaction",
		Buckets: prometheus.DefBuckets,
	})

	StockDepletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_depleted_total",
		Help: "Total number of times a checkout drove a product's stock to zero",
	})

	CartAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_adds_total",
		Help: "Total number of successful add-to-cart operations",
	})

	CartAddRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_add_rejected_total",
		Help: "Total number of adds refused by the soft stock check",
	})

	WishlistTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wishlist_toggles_total",
		Help: "Total number of wishlist toggles",
	}, []string{"action"})

	ProductViewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_views_total",
		Help: "Total number of counted product detail views",
	})

	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Total number of login sessions created",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
