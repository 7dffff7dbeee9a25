package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// AgentRepository reads the support roster: users holding the agent role,
// with their count of open assigned tickets.
type AgentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AgentRepository = (*AgentRepository)(nil)

func NewAgentRepository(pool *pgxpool.Pool) ports.AgentRepository {
	return &AgentRepository{pool: pool}
}

// ListRoster returns every agent, active or not, ordered by ID. Eligibility is
// the balancer's decision.
func (r *AgentRepository) ListRoster(ctx context.Context) ([]domain.Agent, error) {
	const query = `
SELECT u.id, u.full_name, u.email, u.is_active, u.created_at,
       COUNT(t.id) FILTER (WHERE ` + openPredicate + `) AS active_tickets
FROM users u
JOIN user_roles ur ON ur.user_id = u.id
JOIN roles ro ON ro.id = ur.role_id AND ro.name = $1
LEFT JOIN tickets t ON t.assignee_id = u.id
GROUP BY u.id, u.full_name, u.email, u.is_active, u.created_at
ORDER BY u.id
`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, domain.RoleAgent)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	agents := make([]domain.Agent, 0)
	for rows.Next() {
		var (
			id     pgtype.UUID
			user   domain.User
			active int64
		)
		if err := rows.Scan(&id, &user.FullName, &user.Email, &user.IsActive, &user.CreatedAt, &active); err != nil {
			return nil, err
		}
		user.ID = id.Bytes
		agents = append(agents, user.AsAgent(int(active)))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return agents, nil
}
