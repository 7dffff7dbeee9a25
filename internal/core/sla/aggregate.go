package sla

import (
	"math"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// FullCompliance is reported when nothing could be violated.
const FullCompliance = 100.0

// tally accumulates counts for one group of verdicts.
type tally struct {
	total      int
	evaluated  int
	violations int
}

func (t *tally) add(v domain.SLAVerdict) {
	t.total++
	if !v.Trustworthy() {
		return
	}
	t.evaluated++
	if v.IsViolated {
		t.violations++
	}
}

func (t tally) rate() float64 {
	return ComplianceRate(t.evaluated, t.violations)
}

// ComplianceRate returns the percentage of evaluated tickets not in violation,
// rounded to two decimals. Zero evaluated tickets report full compliance.
func ComplianceRate(evaluated, violations int) float64 {
	if evaluated <= 0 {
		return FullCompliance
	}
	rate := float64(evaluated-violations) / float64(evaluated) * 100
	return math.Round(rate*100) / 100
}

// Aggregate evaluates every ticket in a single pass.
//
// Invalid snapshots are listed as rejected and do not count toward Total.
// Verdicts whose measurement could not be trusted count toward Total and are
// listed as anomalous, but are left out of the compliance denominator.
func Aggregate(policy Policy, tickets []domain.TicketSnapshot, now time.Time) domain.ComplianceSummary {
	var t tally
	summary := domain.ComplianceSummary{}

	for _, ticket := range tickets {
		verdict, err := Evaluate(policy, ticket, now)
		if err != nil {
			summary.Rejected = append(summary.Rejected, domain.RejectedTicket{
				TicketID: ticket.ID,
				Reason:   err.Error(),
			})
			continue
		}

		t.add(verdict)
		if verdict.IsViolated {
			summary.Violating = append(summary.Violating, verdict)
		}
		if !verdict.Trustworthy() {
			summary.Anomalous = append(summary.Anomalous, verdict)
		}
	}

	summary.Total = t.total
	summary.Evaluated = t.evaluated
	summary.Violations = t.violations
	summary.ComplianceRate = t.rate()
	return summary
}

// AggregateByPriority returns one compliance entry per priority, most severe
// first. Tickets are grouped by the tier whose threshold applied to them.
func AggregateByPriority(policy Policy, tickets []domain.TicketSnapshot, now time.Time) []domain.PriorityCompliance {
	tallies := make(map[domain.TicketPriority]*tally, len(domain.AllPriorities))
	for _, p := range domain.AllPriorities {
		tallies[p] = &tally{}
	}

	for _, ticket := range tickets {
		verdict, err := Evaluate(policy, ticket, now)
		if err != nil {
			continue
		}
		tallies[verdict.EffectivePriority].add(verdict)
	}

	out := make([]domain.PriorityCompliance, 0, len(domain.AllPriorities))
	for _, p := range domain.AllPriorities {
		t := tallies[p]
		out = append(out, domain.PriorityCompliance{
			Priority:       p,
			Threshold:      policy.ThresholdFor(p),
			Total:          t.total,
			Violations:     t.violations,
			ComplianceRate: t.rate(),
		})
	}
	return out
}
