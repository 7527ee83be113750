package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Helpdesk-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Pipeline
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "updates_total",
			Help:      "Inbound platform updates by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	PipelineWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "pipeline_warnings_total",
			Help:      "Non-fatal stage failures after a message was stored",
		},
		[]string{"warning"},
	)

	MessagesStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "messages_stored_total",
			Help:      "Messages stored by sender role and content type",
		},
		[]string{"role", "content_type"},
	)

	CaseTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "case_transitions_total",
			Help:      "Case status transitions",
		},
		[]string{"from", "to"},
	)

	CommitmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "commitments_detected_total",
			Help:      "Commitments detected in staff messages",
		},
	)

	TicketCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "ticket_commands_total",
			Help:      "Ticket commands by outcome",
		},
		[]string{"action"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "pipeline_duration_seconds",
			Help:      "Time to process one update",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
		},
		[]string{"kind"},
	)

	// Outbound calls
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "external_call_duration_seconds",
			Help:      "Outbound call latency by service and operation",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "operation", "status"},
	)

	// Background tasks
	BackgroundTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "background_tasks_total",
			Help:      "Background tasks by name and outcome (ok, error, dropped)",
		},
		[]string{"task", "outcome"},
	)

	// Gauges refreshed by the crontab
	OpenCases = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "open_cases",
			Help:      "Cases in detected, in_progress or waiting",
		},
	)

	OverdueCommitments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jan",
			Subsystem: "helpdesk_api",
			Name:      "overdue_commitments",
			Help:      "Pending commitments past their due date",
		},
	)
)

// RecordRequest records an HTTP request with all relevant labels
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

// RecordUpdate records one processed update
func RecordUpdate(kind, status string, durationSec float64) {
	if kind == "" {
		kind = "unknown"
	}
	UpdatesTotal.WithLabelValues(kind, status).Inc()
	PipelineDuration.WithLabelValues(kind).Observe(durationSec)
}

func RecordWarning(warning string) {
	PipelineWarningsTotal.WithLabelValues(warning).Inc()
}

func RecordMessageStored(role, contentType string) {
	MessagesStoredTotal.WithLabelValues(role, contentType).Inc()
}

func RecordCaseTransition(from, to string) {
	CaseTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordCommitment() {
	CommitmentsTotal.Inc()
}

func RecordTicketCommand(action string) {
	TicketCommandsTotal.WithLabelValues(action).Inc()
}

// RecordExternalCall records the latency of an outbound call
func RecordExternalCall(service, operation string, ok bool, durationSec float64) {
	status := "ok"
	if !ok {
		status = "error"
	}
	ExternalCallDuration.WithLabelValues(service, operation, status).Observe(durationSec)
}

func RecordBackgroundTask(task, outcome string) {
	BackgroundTasksTotal.WithLabelValues(task, outcome).Inc()
}

func SetOpenCases(n int64) {
	OpenCases.Set(float64(n))
}

func SetOverdueCommitments(n int64) {
	OverdueCommitments.Set(float64(n))
}
