package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/utils"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserDirectory = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) ports.UserDirectory {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	const query = `SELECT full_name, email, is_active, created_at FROM users WHERE id = $1`

	user := &domain.User{ID: userID}
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, utils.ToUUID(userID)).
		Scan(&user.FullName, &user.Email, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return user, nil
}
