package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/utils"
)

const pgForeignKeyViolation = "23503"

// AuthorizationRepository handles database operations for RBAC.
type AuthorizationRepository struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// Ensure implementation matches the interface.
var _ ports.AuthorizationRepository = (*AuthorizationRepository)(nil)

// NewAuthorizationRepository creates a new repository for authorization queries.
func NewAuthorizationRepository(pool *pgxpool.Pool) ports.AuthorizationRepository {
	return &AuthorizationRepository{pool: pool, tx: NewTxRunner(pool, pgx.TxOptions{})}
}

// GetUserPermissions fetches all distinct permissions for a given user ID.
func (r *AuthorizationRepository) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	const query = `
		SELECT DISTINCT p.code
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		INNER JOIN user_roles ur ON rp.role_id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY p.code
	`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, utils.ToUUID(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		permissions = append(permissions, code)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return permissions, nil
}

// AssignRole grants a named role to a user. A user unknown to the users table
// is forbidden rather than auto-provisioned.
func (r *AuthorizationRepository) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	const query = `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, r.id FROM roles r WHERE r.name = $2
		ON CONFLICT DO NOTHING
	`
	db := GetDBTX(ctx, r.pool)

	tag, err := db.Exec(ctx, query, utils.ToUUID(userID), role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("%w: unknown user %s", apperrors.ErrForbidden, userID)
		}
		return fmt.Errorf("assign role %q: %w", role, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, role).Scan(&exists); err != nil {
		return fmt.Errorf("assign role %q: %w", role, err)
	}
	if !exists {
		return fmt.Errorf("%w: role %q", apperrors.ErrNotFound, role)
	}
	return apperrors.ErrRoleAlreadyAssigned
}

// EnsureRBACDefaults upserts the baseline roles, permissions and grants in one transaction.
func (r *AuthorizationRepository) EnsureRBACDefaults(ctx context.Context) error {
	return r.tx.Run(ctx, func(ctx context.Context) error {
		tx := GetDBTX(ctx, r.pool)
		for role, permissions := range domain.RolePermissions {
			if _, err := tx.Exec(ctx, `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, role); err != nil {
				return fmt.Errorf("upsert role %q: %w", role, err)
			}
			for _, code := range permissions {
				if _, err := tx.Exec(ctx, `INSERT INTO permissions (code) VALUES ($1) ON CONFLICT (code) DO NOTHING`, code); err != nil {
					return fmt.Errorf("upsert permission %q: %w", code, err)
				}
				const grant = `
					INSERT INTO role_permissions (role_id, permission_id)
					SELECT r.id, p.id FROM roles r, permissions p
					WHERE r.name = $1 AND p.code = $2
					ON CONFLICT DO NOTHING
				`
				if _, err := tx.Exec(ctx, grant, role, code); err != nil {
					return fmt.Errorf("grant %q to %q: %w", code, role, err)
				}
			}
		}
		return nil
	})
}
