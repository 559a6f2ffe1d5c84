package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chain metrics - Track transaction lifecycle
var (
	TransactionsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_transactions_submitted_total",
		Help: "Total number of transactions accepted by the chain backend",
	})

	TransactionsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_transactions_confirmed_total",
		Help: "Total number of transactions confirmed on-chain",
	})

	TransactionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forwarder_transactions_failed_total",
			Help: "Total number of terminal transaction failures by reason",
		},
		[]string{"reason"},
	)

	TransactionConfirmationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forwarder_transaction_confirmation_duration_seconds",
		Help:    "Time from submission to observed confirmation",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	DeploymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_deployments_confirmed_total",
		Help: "Total number of confirmed forwarder deployments",
	})

	RecipientChangesConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_recipient_changes_confirmed_total",
		Help: "Total number of confirmed recipient changes",
	})
)

// Ledger metrics - Track off-chain persistence
var (
	DeploymentsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_deployments_persisted_total",
		Help: "Total number of deployment records written to the ledger",
	})

	RecipientChangesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_recipient_changes_persisted_total",
		Help: "Total number of recipient updates written to the ledger",
	})

	StoreInconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_store_inconsistencies_total",
		Help: "Total number of confirmed chain actions whose ledger write failed",
	})

	StoreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forwarder_store_request_duration_seconds",
			Help:    "Duration of ledger API requests by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
