package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	IngestEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "leadflow_ingest_events_total", Help: "Inbound webhook attempts by outcome"},
		[]string{"outcome"},
	)
	LeadsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "leadflow_leads_created_total", Help: "Leads created via ingestion"},
	)
	AutomationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "leadflow_automation_actions_total", Help: "Automation action executions"},
		[]string{"type", "result"},
	)
	HealthChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "leadflow_health_checks_total", Help: "Integration health check verdicts"},
		[]string{"type", "status"},
	)
	IngestLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "leadflow_ingest_latency_seconds", Help: "Inbound webhook processing latency"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(IngestEvents, LeadsCreated, AutomationActions, HealthChecks, IngestLatency)
}
