package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every powercycle metric. It is kept apart from the default
// registry so textfile output carries no Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powercycle_operations_total",
			Help: "Total per-instance operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powercycle_operation_duration_seconds",
			Help:    "Time to bring one instance to the requested state",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"operation"},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powercycle_commands_total",
			Help: "Total state-changing commands sent to the provider",
		},
		[]string{"command"},
	)

	PollObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powercycle_poll_observations_total",
			Help: "Total state reads made while waiting for a target state",
		},
		[]string{"operation"},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "powercycle_last_run_timestamp_seconds",
			Help: "Unix time the last batch finished",
		},
	)

	LastRunFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "powercycle_last_run_failures",
			Help: "Number of instances that failed in the last batch",
		},
	)
)

func init() {
	Registry.MustRegister(
		OperationsTotal,
		OperationDuration,
		CommandsTotal,
		PollObservationsTotal,
		LastRunTimestamp,
		LastRunFailures,
	)
}

// ObserveOperation records the outcome and duration of one per-instance operation.
func ObserveOperation(operation, outcome string, d time.Duration) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveBatch records the end of a batch run.
func ObserveBatch(failures int) {
	LastRunTimestamp.SetToCurrentTime()
	LastRunFailures.Set(float64(failures))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
