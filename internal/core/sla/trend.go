package sla

import (
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// Trend returns one compliance entry per UTC day for the periodDays days
// ending on now's date, oldest first. Tickets are bucketed by creation date;
// tickets outside the window are ignored and empty days report full
// compliance. A non-positive period yields an empty series.
func Trend(policy Policy, tickets []domain.TicketSnapshot, periodDays int, now time.Time) []domain.DailyCompliance {
	if periodDays <= 0 {
		return []domain.DailyCompliance{}
	}

	today := utcDay(now)
	start := today.AddDate(0, 0, -(periodDays - 1))

	buckets := make([][]domain.TicketSnapshot, periodDays)
	for _, ticket := range tickets {
		day := utcDay(ticket.CreatedAt)
		if day.Before(start) || day.After(today) {
			continue
		}
		idx := int(day.Sub(start).Hours() / 24)
		buckets[idx] = append(buckets[idx], ticket)
	}

	series := make([]domain.DailyCompliance, periodDays)
	for i := range buckets {
		summary := Aggregate(policy, buckets[i], now)
		series[i] = domain.DailyCompliance{
			Date:           start.AddDate(0, 0, i),
			ComplianceRate: summary.ComplianceRate,
			Count:          summary.Total,
			Violations:     summary.Violations,
		}
	}
	return series
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
