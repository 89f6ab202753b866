package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftsd",
			Name:      "session_events_total",
			Help:      "Count of session lifecycle events processed by the hub.",
		},
		[]string{"type"},
	)

	TransferredBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftsd",
			Name:      "transferred_bytes_total",
			Help:      "Bytes written to local storage by the download engine.",
		},
	)

	DeliveryReports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftsd",
			Name:      "delivery_reports_total",
			Help:      "Delivery reports dispatched, by transport and status.",
		},
		[]string{"transport", "status"},
	)

	WorkerPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftsd",
			Name:      "worker_panics_total",
			Help:      "Panics contained at the transfer worker boundary.",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ftsd",
			Name:      "active_sessions",
			Help:      "Number of live sessions tracked by the registry.",
		},
	)

	JournalErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ftsd",
			Name:      "journal_errors_total",
			Help:      "Failed appends to the transfer journal.",
		},
	)
)

// Register registers the ftsd metrics into the default registry.
func Register() {
	prometheus.MustRegister(SessionEvents, TransferredBytes, DeliveryReports, WorkerPanics, ActiveSessions, JournalErrors)
}
