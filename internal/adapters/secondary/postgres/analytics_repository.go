package postgres

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AnalyticsRepository = (*AnalyticsRepository)(nil)

func NewAnalyticsRepository(pool *pgxpool.Pool) ports.AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// GetStatusCounts returns one row per status present in the tickets table.
func (r *AnalyticsRepository) GetStatusCounts(ctx context.Context) ([]domain.StatusCount, error) {
	const query = `
SELECT UPPER(t.status), COUNT(*)
FROM tickets t
GROUP BY UPPER(t.status)
ORDER BY UPPER(t.status)
`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	counts := make([]domain.StatusCount, 0)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts = append(counts, domain.StatusCount{
			Status: domain.TicketStatus(strings.TrimSpace(status)),
			Count:  count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// GetAgentWorkload returns assigned and still-open ticket counts per agent,
// including agents with no tickets.
func (r *AnalyticsRepository) GetAgentWorkload(ctx context.Context) ([]domain.AgentWorkload, error) {
	const query = `
SELECT u.id, u.full_name, u.email,
       COUNT(t.id) AS total_tickets,
       COUNT(t.id) FILTER (WHERE ` + openPredicate + `) AS active_tickets
FROM users u
JOIN user_roles ur ON ur.user_id = u.id
JOIN roles ro ON ro.id = ur.role_id AND ro.name = $1
LEFT JOIN tickets t ON t.assignee_id = u.id
GROUP BY u.id, u.full_name, u.email
ORDER BY active_tickets DESC, u.full_name, u.id
`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, domain.RoleAgent)
	if err != nil {
		return nil, fmt.Errorf("agent workload: %w", err)
	}
	defer rows.Close()

	items := make([]domain.AgentWorkload, 0)
	for rows.Next() {
		var (
			id   pgtype.UUID
			item domain.AgentWorkload
		)
		if err := rows.Scan(&id, &item.FullName, &item.Email, &item.TotalTickets, &item.ActiveTickets); err != nil {
			return nil, err
		}
		item.AgentID = id.Bytes
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// GetAgentResolutionStats returns closed-ticket counts and the mean handle
// time per agent. Handle time covers only tickets with a recorded resolved_at;
// agents with none report zero.
func (r *AnalyticsRepository) GetAgentResolutionStats(ctx context.Context) ([]domain.AgentPerformance, error) {
	const query = `
SELECT u.id, u.full_name,
       COUNT(t.id) FILTER (WHERE t.resolved_at IS NOT NULL OR t.status IN ('RESOLVED', 'CLOSED')) AS closed,
       (AVG(EXTRACT(EPOCH FROM (t.resolved_at - t.created_at))) FILTER (WHERE t.resolved_at IS NOT NULL))::float8 AS avg_seconds
FROM users u
JOIN user_roles ur ON ur.user_id = u.id
JOIN roles ro ON ro.id = ur.role_id AND ro.name = $1
LEFT JOIN tickets t ON t.assignee_id = u.id
GROUP BY u.id, u.full_name
ORDER BY closed DESC, u.full_name, u.id
`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, domain.RoleAgent)
	if err != nil {
		return nil, fmt.Errorf("agent resolution stats: %w", err)
	}
	defer rows.Close()

	stats := make([]domain.AgentPerformance, 0)
	for rows.Next() {
		var (
			id         pgtype.UUID
			item       domain.AgentPerformance
			avgSeconds pgtype.Float8
		)
		if err := rows.Scan(&id, &item.FullName, &item.TicketsClosed, &avgSeconds); err != nil {
			return nil, err
		}
		item.AgentID = id.Bytes
		if avgSeconds.Valid {
			item.AvgHandleTimeHours = math.Round(avgSeconds.Float64/3600*100) / 100
		}
		stats = append(stats, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
