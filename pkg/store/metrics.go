package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreWrites counts permit records written to the Redis sink.
	StoreWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdd_store_writes_total",
			Help: "Total permit records written to the Redis sink",
		},
	)

	// StoreErrors counts store operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdd_store_errors_total",
			Help: "Total Redis sink operation errors",
		},
		[]string{"operation"}, // "save", "get"
	)
)
