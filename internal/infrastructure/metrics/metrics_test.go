package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

func TestObserveCompliance(t *testing.T) {
	m := New()

	m.ObserveCompliance(domain.ComplianceSummary{
		Total:          10,
		Violations:     3,
		ComplianceRate: 70,
		Anomalous:      make([]domain.SLAVerdict, 2),
		Rejected:       make([]domain.RejectedTicket, 1),
	}, 4)

	assert.Equal(t, 70.0, testutil.ToFloat64(m.complianceRate))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.openTickets))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.violations))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.atRisk))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.anomalous))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected))
	assert.Positive(t, testutil.ToFloat64(m.lastPass))
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveAssignment(domain.OutcomeAssigned)
	m.ObserveAssignment(domain.OutcomeAssigned)
	m.ObserveAssignment(domain.OutcomeNoEligibleAgent)
	m.ObserveBreachAlert(domain.PriorityCritical)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.assignments.WithLabelValues(string(domain.OutcomeAssigned))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assignments.WithLabelValues(string(domain.OutcomeNoEligibleAgent))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breachAlerts.WithLabelValues("CRITICAL")))
}

func TestObservePolicy(t *testing.T) {
	m := New()
	m.ObservePolicy(sla.DefaultPolicy())

	assert.Equal(t, 4.0, testutil.ToFloat64(m.policyThresholds.WithLabelValues("CRITICAL")))
	assert.Equal(t, 72.0, testutil.ToFloat64(m.policyThresholds.WithLabelValues("LOW")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/tickets/{ticketID}/assign", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tickets/"+id+"/assign", nil))
		require.Equal(t, http.StatusConflict, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.requests.WithLabelValues(http.MethodGet, "/api/v1/tickets/{ticketID}/assign", "409")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "servicedesk_http_requests_total")
}
