package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for botctl
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// API call metrics
	APIRequests     *prometheus.CounterVec
	APILatency      *prometheus.HistogramVec
	TransportErrors *prometheus.CounterVec

	// Session metrics
	ForcedLogouts *prometheus.CounterVec
	SessionWrites *prometheus.CounterVec

	// Error metrics (by structured error code)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botctl_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botctl_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botctl_api_requests_total",
				Help: "Total number of backend API requests by response status",
			},
			[]string{"method", "route", "status"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botctl_api_request_duration_seconds",
				Help:    "Backend API request duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"method", "route"},
		),
		TransportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botctl_api_transport_errors_total",
				Help: "Total number of API requests that produced no HTTP response",
			},
			[]string{"method", "route"},
		),

		ForcedLogouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botctl_forced_logouts_total",
				Help: "Total number of 401 responses, by whether the session was torn down",
			},
			[]string{"cleared"},
		),
		SessionWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botctl_session_writes_total",
				Help: "Total number of session store writes",
			},
			[]string{"operation"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botctl_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// RecordAPICall records the outcome of one API request. A status of zero
// means the request never produced a response.
func (m *Metrics) RecordAPICall(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.APILatency.WithLabelValues(method, route).Observe(d.Seconds())
	if status == 0 {
		m.TransportErrors.WithLabelValues(method, route).Inc()
		return
	}
	m.APIRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordForcedLogout counts a 401 and whether it cleared the session.
func (m *Metrics) RecordForcedLogout(cleared bool) {
	if m == nil {
		return
	}
	m.ForcedLogouts.WithLabelValues(strconv.FormatBool(cleared)).Inc()
}

// RecordSessionWrite counts a session store write such as "token.save".
func (m *Metrics) RecordSessionWrite(op string) {
	if m == nil {
		return
	}
	m.SessionWrites.WithLabelValues(op).Inc()
}

// RecordCommand records a CLI command execution.
func (m *Metrics) RecordCommand(command string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(err == nil)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// RecordError counts an error by its structured code.
func (m *Metrics) RecordError(code, component string) {
	if m == nil || code == "" {
		return
	}
	m.Errors.WithLabelValues(code, component).Inc()
}
