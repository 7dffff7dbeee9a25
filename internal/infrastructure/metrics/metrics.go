package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

const namespace = "servicedesk"

var (
	_ ports.AssignmentMetrics = (*Metrics)(nil)
	_ ports.ComplianceMetrics = (*Metrics)(nil)
)

// Metrics owns a private registry so tests and multiple servers never collide
// on the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	complianceRate   prometheus.Gauge
	openTickets      prometheus.Gauge
	violations       prometheus.Gauge
	atRisk           prometheus.Gauge
	anomalous        prometheus.Gauge
	rejected         prometheus.Gauge
	lastPass         prometheus.Gauge
	policyThresholds *prometheus.GaugeVec
	breachAlerts     *prometheus.CounterVec
	assignments      *prometheus.CounterVec
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		complianceRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "compliance_rate_percent",
			Help:      "Compliance rate of open tickets at the last monitor pass",
		}),
		openTickets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "open_tickets",
			Help:      "Open tickets evaluated at the last monitor pass",
		}),
		violations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "violations",
			Help:      "Open tickets past their SLA threshold",
		}),
		atRisk: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "at_risk_tickets",
			Help:      "Open tickets within the high-risk window of their deadline",
		}),
		anomalous: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "anomalous_tickets",
			Help:      "Evaluated tickets carrying at least one data anomaly",
		}),
		rejected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "rejected_snapshots",
			Help:      "Snapshots rejected as invalid at the last monitor pass",
		}),
		lastPass: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time of the last completed monitor pass",
		}),
		policyThresholds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "policy_threshold_hours",
			Help:      "Configured SLA threshold per priority",
		}, []string{"priority"}),
		breachAlerts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "breach_alerts_total",
			Help:      "SLA breach alerts published",
		}, []string{"priority"}),
		assignments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "decisions_total",
			Help:      "Auto-assignment decisions by outcome",
		}, []string{"outcome"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests processed",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveCompliance publishes the result of a monitor pass.
func (m *Metrics) ObserveCompliance(summary domain.ComplianceSummary, atRisk int) {
	m.complianceRate.Set(summary.ComplianceRate)
	m.openTickets.Set(float64(summary.Total))
	m.violations.Set(float64(summary.Violations))
	m.atRisk.Set(float64(atRisk))
	m.anomalous.Set(float64(len(summary.Anomalous)))
	m.rejected.Set(float64(len(summary.Rejected)))
	m.lastPass.SetToCurrentTime()
}

// ObserveBreachAlert counts a published breach alert.
func (m *Metrics) ObserveBreachAlert(priority domain.TicketPriority) {
	m.breachAlerts.WithLabelValues(priority.String()).Inc()
}

// ObserveAssignment counts an assignment decision.
func (m *Metrics) ObserveAssignment(outcome domain.AssignmentOutcome) {
	m.assignments.WithLabelValues(string(outcome)).Inc()
}

// ObservePolicy exports the thresholds of the policy in force.
func (m *Metrics) ObservePolicy(policy sla.Policy) {
	for _, target := range policy.Targets() {
		m.policyThresholds.WithLabelValues(target.Priority.String()).Set(target.TargetHours)
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by chi route pattern,
// keeping label cardinality bounded for paths with ids.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
