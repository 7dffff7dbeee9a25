package sla

import (
	"cmp"
	"slices"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

type forecastCandidate struct {
	entry     domain.ForecastEntry
	remaining time.Duration
}

// Forecast lists open tickets whose deadline falls within horizon of now,
// most urgent first. Tickets already past their deadline are included with
// Remaining clamped to zero and Overdue set. Resolved and invalid snapshots
// are skipped.
func Forecast(policy Policy, open []domain.TicketSnapshot, horizon time.Duration, now time.Time) []domain.ForecastEntry {
	candidates := make([]forecastCandidate, 0, len(open))

	for _, ticket := range open {
		if !ticket.IsOpen() || ticket.Validate() != nil {
			continue
		}

		deadline := Deadline(policy, ticket)
		remaining := deadline.Sub(now)
		if remaining > horizon {
			continue
		}

		entry := domain.ForecastEntry{
			TicketID:   ticket.ID,
			Title:      ticket.Title,
			Priority:   ticket.Priority,
			AssigneeID: ticket.AssigneeID,
			Deadline:   deadline,
			Remaining:  max(remaining, 0),
			Overdue:    remaining < 0,
			Risk:       domain.RiskMedium,
		}
		if remaining < AtRiskWindow {
			entry.Risk = domain.RiskHigh
		}
		candidates = append(candidates, forecastCandidate{entry: entry, remaining: remaining})
	}

	slices.SortFunc(candidates, func(a, b forecastCandidate) int {
		if c := cmp.Compare(a.remaining, b.remaining); c != 0 {
			return c
		}
		return cmp.Compare(a.entry.TicketID, b.entry.TicketID)
	})

	entries := make([]domain.ForecastEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = c.entry
	}
	return entries
}
