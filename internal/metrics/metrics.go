// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersValidatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_orders_validated_total",
		Help: "Total number of orders validated with stock decremented",
	})

	OrdersSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_orders_validation_skipped_total",
		Help: "Total number of already validated orders submitted for validation",
	})

	OrdersValidationFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_orders_validation_failed_total",
		Help: "Total number of orders that failed validation",
	}, []string{"reason"})

	ValidationBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_validation_batch_duration_seconds",
		Help:    "Latency of batch order validation",
		Buckets: prometheus.DefBuckets,
	})

	DocumentsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_documents_generated_total",
		Help: "Total number of invoices and delivery notes created",
	}, []string{"kind"})

	PDFRenderedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_pdf_rendered_total",
		Help: "Total number of PDF documents rendered",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)
