package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	TransactionsRegistered *prometheus.CounterVec
	TransactionAmount      prometheus.Histogram
	RegistrationErrors     *prometheus.CounterVec

	// Buffer metrics
	BufferAppends    *prometheus.CounterVec
	BufferDepth      prometheus.Gauge
	BatchesPublished prometheus.Counter
	BatchesFailed    *prometheus.CounterVec
	BatchSize        prometheus.Histogram

	// Consumer metrics
	DeliveriesReceived prometheus.Counter
	DeliveriesAcked    prometheus.Counter
	DeliveriesRejected *prometheus.CounterVec
	ConsumerState      *prometheus.GaugeVec
	ConsumerReconnects prometheus.Counter
	DeliveryDuration   prometheus.Histogram

	// Consolidation metrics
	EventsConsolidated *prometheus.CounterVec
	UpsertRetries      prometheus.Counter
	UpsertDuration     prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all metrics and registers them with the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransactionsRegistered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_transactions_registered_total",
				Help: "Total number of transactions registered by type",
			},
			[]string{"type"},
		),
		TransactionAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cashflow_transaction_amount",
			Help:    "Registered transaction amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		RegistrationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_registration_errors_total",
				Help: "Total transaction registration errors by stage",
			},
			[]string{"stage"},
		),

		BufferAppends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_buffer_appends_total",
				Help: "Total events appended to the message buffer",
			},
			[]string{"status"},
		),
		BufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cashflow_buffer_depth",
			Help: "Entries waiting in the message buffer at the last drain",
		}),
		BatchesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashflow_batches_published_total",
			Help: "Total batches published to the broker",
		}),
		BatchesFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_batches_failed_total",
				Help: "Total batch drain failures by stage",
			},
			[]string{"stage"},
		),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cashflow_batch_size",
			Help:    "Number of events per published batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		DeliveriesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashflow_deliveries_received_total",
			Help: "Total deliveries received from the broker",
		}),
		DeliveriesAcked: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashflow_deliveries_acked_total",
			Help: "Total deliveries acknowledged",
		}),
		DeliveriesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_deliveries_rejected_total",
				Help: "Total deliveries negatively acknowledged",
			},
			[]string{"requeue"},
		),
		ConsumerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cashflow_consumer_state",
				Help: "Current consumer state (1 for the active state)",
			},
			[]string{"state"},
		),
		ConsumerReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashflow_consumer_reconnects_total",
			Help: "Total consumer reconnect attempts",
		}),
		DeliveryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cashflow_delivery_duration_seconds",
			Help:    "Time spent handling one delivery",
			Buckets: prometheus.DefBuckets,
		}),

		EventsConsolidated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_events_consolidated_total",
				Help: "Total events applied to daily balances by type",
			},
			[]string{"type"},
		),
		UpsertRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashflow_daily_balance_upsert_retries_total",
			Help: "Total daily balance upsert retries",
		}),
		UpsertDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cashflow_daily_balance_upsert_duration_seconds",
			Help:    "Duration of daily balance upserts including retries",
			Buckets: prometheus.DefBuckets,
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashflow_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashflow_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
