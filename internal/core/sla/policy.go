// Package sla evaluates tickets against per-priority resolution thresholds.
// Every function is pure: the caller supplies the snapshots and the current
// time, and nothing is cached between calls.
package sla

import (
	"fmt"
	"strings"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// Default thresholds per priority.
const (
	DefaultCriticalThreshold = 4 * time.Hour
	DefaultHighThreshold     = 8 * time.Hour
	DefaultMediumThreshold   = 24 * time.Hour
	DefaultLowThreshold      = 72 * time.Hour
)

// AtRiskWindow is the remaining time under which a forecast entry is high risk.
const AtRiskWindow = 2 * time.Hour

// Policy maps priorities to the maximum allowed time from creation to resolution.
// The zero value behaves like DefaultPolicy.
type Policy struct {
	thresholds map[domain.TicketPriority]time.Duration
}

// DefaultPolicy returns the stock 4h/8h/24h/72h table.
func DefaultPolicy() Policy {
	return Policy{thresholds: map[domain.TicketPriority]time.Duration{
		domain.PriorityCritical: DefaultCriticalThreshold,
		domain.PriorityHigh:     DefaultHighThreshold,
		domain.PriorityMedium:   DefaultMediumThreshold,
		domain.PriorityLow:      DefaultLowThreshold,
	}}
}

// NewPolicy copies the given table. Entries for unknown priorities are kept
// but never consulted.
func NewPolicy(thresholds map[domain.TicketPriority]time.Duration) Policy {
	copied := make(map[domain.TicketPriority]time.Duration, len(thresholds))
	for p, d := range thresholds {
		copied[p] = d
	}
	return Policy{thresholds: copied}
}

// PolicyFromHours builds a policy from hour values, the unit used in configuration.
func PolicyFromHours(hours map[domain.TicketPriority]float64) Policy {
	thresholds := make(map[domain.TicketPriority]time.Duration, len(hours))
	for p, h := range hours {
		thresholds[p] = time.Duration(h * float64(time.Hour))
	}
	return Policy{thresholds: thresholds}
}

// ThresholdFor returns the threshold for the priority. Unknown priorities and
// priorities missing from the table resolve to the MEDIUM threshold.
func (p Policy) ThresholdFor(priority domain.TicketPriority) time.Duration {
	threshold, _ := p.lookup(priority)
	return threshold
}

// lookup resolves the threshold and reports which tier supplied it.
func (p Policy) lookup(priority domain.TicketPriority) (time.Duration, domain.TicketPriority) {
	if priority.IsValid() {
		if d, ok := p.thresholds[priority]; ok && d > 0 {
			return d, priority
		}
	}
	if d, ok := p.thresholds[domain.DefaultPriority]; ok && d > 0 {
		return d, domain.DefaultPriority
	}
	return DefaultMediumThreshold, domain.DefaultPriority
}

// resolve returns the threshold plus any priority anomaly for a ticket.
func (p Policy) resolve(priority domain.TicketPriority) (time.Duration, domain.TicketPriority, []domain.Anomaly) {
	threshold, effective := p.lookup(priority)
	switch {
	case priority == "":
		return threshold, effective, []domain.Anomaly{domain.AnomalyMissingPriority}
	case !priority.IsValid():
		return threshold, effective, []domain.Anomaly{domain.AnomalyUnknownPriority}
	}
	return threshold, effective, nil
}

// Targets lists the effective threshold of every priority, most severe first.
func (p Policy) Targets() []domain.SLATarget {
	targets := make([]domain.SLATarget, 0, len(domain.AllPriorities))
	for _, priority := range domain.AllPriorities {
		targets = append(targets, domain.SLATarget{
			Priority:    priority,
			TargetHours: p.ThresholdFor(priority).Hours(),
		})
	}
	return targets
}

// Validate reports configuration problems: non-positive thresholds and tiers
// that break CRITICAL <= HIGH <= MEDIUM <= LOW. Evaluation never depends on it.
func (p Policy) Validate() error {
	var problems []string

	for priority, d := range p.thresholds {
		if !priority.IsValid() {
			problems = append(problems, fmt.Sprintf("unknown priority %q", priority))
			continue
		}
		if d <= 0 {
			problems = append(problems, fmt.Sprintf("%s threshold must be positive", priority))
		}
	}

	for i := 1; i < len(domain.AllPriorities); i++ {
		prev, cur := domain.AllPriorities[i-1], domain.AllPriorities[i]
		if p.ThresholdFor(prev) > p.ThresholdFor(cur) {
			problems = append(problems, fmt.Sprintf("%s threshold (%s) exceeds %s threshold (%s)",
				prev, p.ThresholdFor(prev), cur, p.ThresholdFor(cur)))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidPolicy, strings.Join(problems, "; "))
	}
	return nil
}
