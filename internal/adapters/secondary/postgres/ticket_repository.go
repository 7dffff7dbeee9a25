package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/utils"
)

// openPredicate matches tickets whose SLA clock is still running.
const openPredicate = `t.resolved_at IS NULL AND t.status NOT IN ('RESOLVED', 'CLOSED')`

const snapshotColumns = `t.id, t.title, t.priority, t.status, t.assignee_id, t.created_at, t.updated_at, t.resolved_at`

// TicketSnapshotRepository reads ticket snapshots for the SLA engine and
// commits balancer decisions.
type TicketSnapshotRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketSnapshotRepository implements the port.
var _ ports.TicketSnapshotRepository = (*TicketSnapshotRepository)(nil)

// NewTicketSnapshotRepository creates a new ticket snapshot repository.
func NewTicketSnapshotRepository(pool *pgxpool.Pool) ports.TicketSnapshotRepository {
	return &TicketSnapshotRepository{pool: pool}
}

func scanSnapshot(row pgx.Row) (domain.TicketSnapshot, error) {
	var (
		snap       domain.TicketSnapshot
		priority   string
		status     string
		assigneeID pgtype.UUID
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
		resolvedAt pgtype.Timestamptz
	)
	if err := row.Scan(&snap.ID, &snap.Title, &priority, &status, &assigneeID, &createdAt, &updatedAt, &resolvedAt); err != nil {
		return domain.TicketSnapshot{}, err
	}

	snap.Priority = domain.TicketPriority(strings.ToUpper(strings.TrimSpace(priority)))
	snap.Status = domain.TicketStatus(strings.ToUpper(strings.TrimSpace(status)))
	snap.AssigneeID = utils.FromNullUUID(assigneeID)
	if createdAt.Valid {
		snap.CreatedAt = createdAt.Time.UTC()
	}
	snap.UpdatedAt = utils.FromNullTime(updatedAt)
	snap.ResolvedAt = utils.FromNullTime(resolvedAt)
	return snap, nil
}

func collectSnapshots(rows pgx.Rows) ([]domain.TicketSnapshot, error) {
	defer rows.Close()

	snapshots := make([]domain.TicketSnapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// GetSnapshot retrieves a single ticket by its ID.
func (r *TicketSnapshotRepository) GetSnapshot(ctx context.Context, ticketID int64) (*domain.TicketSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM tickets t WHERE t.id = $1`

	snap, err := scanSnapshot(GetDBTX(ctx, r.pool).QueryRow(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket snapshot %d: %w", ticketID, err)
	}
	return &snap, nil
}

// ListSnapshots loads every ticket matching the filter, ordered by ID.
func (r *TicketSnapshotRepository) ListSnapshots(ctx context.Context, filter ports.SnapshotFilter) ([]domain.TicketSnapshot, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.OpenOnly {
		conditions = append(conditions, openPredicate)
	}
	if filter.Assigned {
		conditions = append(conditions, "t.assignee_id IS NOT NULL")
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}

	query := `SELECT ` + snapshotColumns + ` FROM tickets t`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY t.id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ticket snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

// ListUnassignedOpen returns open tickets without an assignee, oldest first.
func (r *TicketSnapshotRepository) ListUnassignedOpen(ctx context.Context, limit int) ([]domain.TicketSnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
FROM tickets t
WHERE t.assignee_id IS NULL
  AND ` + openPredicate + `
ORDER BY t.created_at ASC, t.id ASC
LIMIT $1`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unassigned tickets: %w", err)
	}
	return collectSnapshots(rows)
}

// AssignIfUnassigned is a compare-and-set on an unassigned ticket whose SLA
// clock is still running. When no row matches it reports why: the ticket is
// gone, it was resolved or closed, or another writer assigned it first.
func (r *TicketSnapshotRepository) AssignIfUnassigned(ctx context.Context, ticketID int64, agentID uuid.UUID) error {
	const query = `
UPDATE tickets AS t
SET assignee_id = $2, updated_at = NOW()
WHERE t.id = $1
  AND t.assignee_id IS NULL
  AND ` + openPredicate
	db := GetDBTX(ctx, r.pool)

	tag, err := db.Exec(ctx, query, ticketID, utils.ToUUID(agentID))
	if err != nil {
		return fmt.Errorf("assign ticket %d: %w", ticketID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var open bool
	err = db.QueryRow(ctx, `SELECT `+openPredicate+` FROM tickets t WHERE t.id = $1`, ticketID).Scan(&open)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrTicketNotFound
	case err != nil:
		return fmt.Errorf("assign ticket %d: %w", ticketID, err)
	case !open:
		return apperrors.ErrCannotAssignClosed
	}
	return apperrors.ErrAssignmentConflict
}
