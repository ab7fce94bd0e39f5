package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts engine operations (fetch_one, fetch_many,
	// write_many, delete_many) by outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynaplan_operations_total",
			Help: "Total number of engine operations",
		},
		[]string{"operation", "status"},
	)
	// OperationDuration is the end-to-end latency of engine operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynaplan_operation_duration_seconds",
			Help:    "Engine operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	// PlansTotal counts produced access plans by kind.
	PlansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynaplan_plans_total",
			Help: "Total number of access plans by kind",
		},
		[]string{"kind"},
	)
	// PlanCacheHitsTotal counts decision cache hits.
	PlanCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dynaplan_plan_cache_hits_total",
			Help: "Total number of plan cache hits",
		},
	)
	// PlanCacheMissesTotal counts decision cache misses.
	PlanCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dynaplan_plan_cache_misses_total",
			Help: "Total number of plan cache misses",
		},
	)
	// ChunksTotal counts batch chunks issued against the store.
	ChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynaplan_chunks_total",
			Help: "Total number of batch chunks issued",
		},
		[]string{"kind"},
	)
	// RetriesTotal counts retry attempts by cause.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynaplan_retries_total",
			Help: "Total number of retry attempts",
		},
		[]string{"cause"},
	)
	// UnprocessedItemsTotal counts items the store returned as unprocessed.
	UnprocessedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynaplan_unprocessed_items_total",
			Help: "Total number of unprocessed items returned by the store",
		},
		[]string{"kind"},
	)
)
