// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsApplied counts committed ledger entries by type.
	TransactionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bizflow_transactions_applied_total",
		Help: "Number of ledger entries committed, by transaction type.",
	}, []string{"type"})

	// TransactionsRejected counts rejected operations by reason.
	TransactionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bizflow_transactions_rejected_total",
		Help: "Number of operations rejected by the ledger core, by reason.",
	}, []string{"reason"})

	// StoreConflictRetries counts read-compute-write cycles re-run after a
	// serialization conflict.
	StoreConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bizflow_store_conflict_retries_total",
		Help: "Number of submissions retried after a store serialization conflict.",
	})
)
