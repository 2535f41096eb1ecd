package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_completed_total",
		Help: "Total number of sales completed at the terminal",
	}, []string{"mode"})

	SalesQueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_queued_total",
		Help: "Total number of sales written to the pending store",
	})

	CheckoutRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejected_total",
		Help: "Total number of checkout actions rejected by a guard",
	}, []string{"reason"})

	PendingQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pending_queue_depth",
		Help: "Number of sales currently waiting in the pending store",
	})

	SyncDrainsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_drains_total",
		Help: "Total number of reconciliation passes started",
	})

	SyncDrainsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_drains_dropped_total",
		Help: "Total number of drain triggers dropped because a pass was running",
	})

	SyncSubmitSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_submit_success_total",
		Help: "Total number of queued sales accepted by the ledger",
	})

	SyncSubmitFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_submit_failed_total",
		Help: "Total number of failed sale submissions",
	}, []string{"reason"})

	SubmitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_submit_latency_seconds",
		Help:    "Latency of sale submissions to the ledger",
		Buckets: prometheus.DefBuckets,
	})

	ConnectivityTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connectivity_transitions_total",
		Help: "Total number of online/offline transitions observed",
	}, []string{"state"})

	LedgerSalesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sales_recorded_total",
		Help: "Total number of sales recorded by the ledger",
	})

	LedgerSalesDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sales_duplicate_total",
		Help: "Total number of duplicate bill submissions absorbed",
	})

	LedgerSalesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_sales_rejected_total",
		Help: "Total number of sale submissions rejected by the ledger",
	}, []string{"reason"})

	LedgerRecordLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_record_latency_seconds",
		Help:    "Latency of the ledger sale transaction",
		Buckets: prometheus.DefBuckets,
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
