package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

// DefaultMonitorInterval is how often open tickets are re-evaluated.
const DefaultMonitorInterval = time.Minute

// SLAMonitor periodically evaluates open tickets, refreshes compliance
// metrics and raises breach and at-risk alerts. Each ticket alerts at most
// once per kind for the lifetime of the process.
type SLAMonitor struct {
	tickets     ports.TicketSnapshotRepository
	policy      ports.PolicySource
	clock       ports.Clock
	broadcaster ports.EventBroadcaster
	notifier    ports.Notifier
	metrics     ports.ComplianceMetrics
	interval    time.Duration
	horizon     time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	breached map[int64]struct{}
	atRisk   map[int64]struct{}
}

// SLAMonitorConfig holds the monitor cadence.
type SLAMonitorConfig struct {
	Interval time.Duration
	Horizon  time.Duration
}

// NewSLAMonitor creates the periodic SLA evaluation worker
func NewSLAMonitor(
	tickets ports.TicketSnapshotRepository,
	policy ports.PolicySource,
	clock ports.Clock,
	broadcaster ports.EventBroadcaster,
	notifier ports.Notifier,
	metrics ports.ComplianceMetrics,
	cfg SLAMonitorConfig,
	logger *slog.Logger,
) *SLAMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultMonitorInterval
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultForecastHorizon
	}
	return &SLAMonitor{
		tickets:     tickets,
		policy:      policy,
		clock:       clock,
		broadcaster: broadcaster,
		notifier:    notifier,
		metrics:     metrics,
		interval:    cfg.Interval,
		horizon:     cfg.Horizon,
		logger:      logger.With("component", "sla_monitor"),
		breached:    make(map[int64]struct{}),
		atRisk:      make(map[int64]struct{}),
	}
}

// Run evaluates immediately and then on every tick until ctx is cancelled.
func (m *SLAMonitor) Run(ctx context.Context) {
	m.logger.Info("sla monitor started", "interval", m.interval.String())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.Tick(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("sla monitor pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			m.logger.Info("sla monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one evaluation pass.
func (m *SLAMonitor) Tick(ctx context.Context) error {
	open, err := m.tickets.ListSnapshots(ctx, ports.SnapshotFilter{OpenOnly: true})
	if err != nil {
		return fmt.Errorf("list open snapshots: %w", err)
	}

	policy := m.policy.Current()
	now := m.clock.Now()

	summary := sla.Aggregate(policy, open, now)
	forecast := sla.Forecast(policy, open, m.horizon, now)

	highRisk := 0
	for _, entry := range forecast {
		if entry.Risk == domain.RiskHigh {
			highRisk++
		}
	}
	m.metrics.ObserveCompliance(summary, highRisk)

	stillOpen := make(map[int64]struct{}, len(open))
	for _, t := range open {
		stillOpen[t.ID] = struct{}{}
	}

	for _, entry := range forecast {
		switch {
		case entry.Overdue:
			if m.markOnce(m.breached, entry.TicketID) {
				m.alert(ctx, domain.EventSLABreached, entry)
				m.metrics.ObserveBreachAlert(entry.Priority)
			}
		case entry.Risk == domain.RiskHigh:
			if m.markOnce(m.atRisk, entry.TicketID) {
				m.alert(ctx, domain.EventSLAAtRisk, entry)
			}
		}
	}

	m.prune(stillOpen)

	m.logger.Debug("sla monitor pass",
		"open", summary.Total,
		"violations", summary.Violations,
		"compliance_rate", summary.ComplianceRate,
		"at_risk", highRisk,
	)
	return nil
}

func (m *SLAMonitor) markOnce(set map[int64]struct{}, ticketID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := set[ticketID]; seen {
		return false
	}
	set[ticketID] = struct{}{}
	return true
}

// prune forgets tickets that are no longer open.
func (m *SLAMonitor) prune(open map[int64]struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.breached {
		if _, ok := open[id]; !ok {
			delete(m.breached, id)
		}
	}
	for id := range m.atRisk {
		if _, ok := open[id]; !ok {
			delete(m.atRisk, id)
		}
	}
}

func (m *SLAMonitor) alert(ctx context.Context, kind domain.EventType, entry domain.ForecastEntry) {
	event := domain.Event{
		Type:     kind,
		Payload:  domain.NewSLAAlertPayload(entry),
		TicketID: entry.TicketID,
	}

	if err := m.broadcaster.Broadcast(event); err != nil {
		m.logger.Warn("failed to broadcast sla alert", "ticket_id", entry.TicketID, "error", err)
	}

	if entry.AssigneeID == nil {
		return
	}
	if err := m.broadcaster.SendToUser(*entry.AssigneeID, event); err != nil {
		m.logger.Warn("failed to push sla alert", "ticket_id", entry.TicketID, "error", err)
	}

	if kind != domain.EventSLABreached {
		return
	}
	m.notifier.Notify(ctx, ports.NotificationParams{
		RecipientUserID: *entry.AssigneeID,
		Subject:         fmt.Sprintf("SLA breached: ticket #%d", entry.TicketID),
		Message: fmt.Sprintf("Ticket #%d (%s) passed its resolution deadline at %s.",
			entry.TicketID, entry.Priority, entry.Deadline.UTC().Format(time.RFC3339)),
		TicketID: entry.TicketID,
	})
}
