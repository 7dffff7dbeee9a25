package sla

import (
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// Evaluate computes the verdict for one ticket at now.
//
// Resolved tickets are measured from creation to resolution. Terminal tickets
// without a resolution time fall back to their last update; open tickets are
// measured up to now. A ticket is violated only when the measured duration
// strictly exceeds the threshold. Bad timestamps yield a zero measurement and
// an anomaly flag instead of an error; only a structurally invalid snapshot
// returns an error.
func Evaluate(policy Policy, ticket domain.TicketSnapshot, now time.Time) (domain.SLAVerdict, error) {
	if err := ticket.Validate(); err != nil {
		return domain.SLAVerdict{}, err
	}

	threshold, effective, anomalies := policy.resolve(ticket.Priority)

	verdict := domain.SLAVerdict{
		TicketID:          ticket.ID,
		Priority:          ticket.Priority,
		EffectivePriority: effective,
		AssigneeID:        ticket.AssigneeID,
		Threshold:         threshold,
		EvaluatedAt:       now,
		Status:            domain.SLAWithin,
	}

	var end time.Time
	switch {
	case ticket.ResolvedAt != nil:
		end = *ticket.ResolvedAt
		verdict.Resolved = true
	case ticket.Status.IsTerminal() && ticket.UpdatedAt != nil:
		end = *ticket.UpdatedAt
		verdict.Resolved = true
		anomalies = append(anomalies, domain.AnomalyMissingResolvedAt)
	case ticket.Status.IsTerminal():
		verdict.Resolved = true
		verdict.Anomalies = append(anomalies, domain.AnomalyMissingResolvedAt, domain.AnomalyUnmeasurable)
		return verdict, nil
	default:
		end = now
	}

	measured := end.Sub(ticket.CreatedAt)
	if measured < 0 {
		anomalies = append(anomalies, domain.AnomalyNegativeDuration)
		measured = 0
	}

	verdict.Measured = measured
	verdict.Anomalies = anomalies
	if measured > threshold {
		verdict.IsViolated = true
		verdict.Status = domain.SLAViolated
	}
	return verdict, nil
}

// Deadline returns the instant the ticket breaches its threshold.
func Deadline(policy Policy, ticket domain.TicketSnapshot) time.Time {
	return ticket.CreatedAt.Add(policy.ThresholdFor(ticket.Priority))
}
