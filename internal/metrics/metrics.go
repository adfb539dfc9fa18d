package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the application.
// It includes counters for commands received, messages sent,
// new clients, and histograms for database query durations.
type Metrics struct {
	CommandReceived  *prometheus.CounterVec   // Counter for received commands
	SentMessages     *prometheus.CounterVec   // Counter for sent messages
	NewClients       prometheus.Counter       // Counter for registered clients
	DBQueryDuration  *prometheus.HistogramVec // Histogram for database query durations
	ReportGeneration *prometheus.HistogramVec // Histogram for manifest generation durations
}

// NewMetrics creates a new Metrics instance with the provided Prometheus Registerer.
// It initializes the counters and histograms used by the bot and the store.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CommandReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Total number of used commands",
		}, []string{"command"}), // command: /start, my_parcels, balance, track
		SentMessages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_messages_sent_total",
			Help: "Output bot activity",
		}, []string{"type"}), // type: text, reply, error, document
		NewClients: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "telegram_new_clients_total",
			Help: "Total number of clients registered via /start",
		}),
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telegram_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'create_client', 'advance_parcel'
		ReportGeneration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "telegram_report_generation_duration_seconds",
			Help: "Duration of manifest excel generation.",
		}, []string{"scope"}), // scope: client, status
	}
}
