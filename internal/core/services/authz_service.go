package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// Permission codes checked by the reporting and assignment services.
const (
	PermissionSLARead       = domain.PermissionSLARead
	PermissionAnalyticsRead = domain.PermissionAnalyticsRead
	PermissionTicketsAssign = domain.PermissionTicketsAssign
)

// DefaultRole is granted on first sight to users that hold no role, so a
// freshly provisioned account can read SLA status but nothing more.
const DefaultRole = domain.RoleViewer

// DefaultPermissionCacheTTL bounds how stale a revoked grant can be.
const DefaultPermissionCacheTTL = 30 * time.Second

// AuthorizationService resolves RBAC permissions, caching each user's set
// briefly because every reporting call and websocket handshake checks one.
type AuthorizationService struct {
	authRepo ports.AuthorizationRepository
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[uuid.UUID]cachedPermissions
}

type cachedPermissions struct {
	codes   []string
	expires time.Time
}

var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// AuthzOption customizes the authorization service.
type AuthzOption func(*AuthorizationService)

// WithPermissionCacheTTL sets the cache lifetime; zero disables caching.
func WithPermissionCacheTTL(ttl time.Duration) AuthzOption {
	return func(s *AuthorizationService) { s.ttl = ttl }
}

// NewAuthorizationService creates an RBAC checker over authRepo
func NewAuthorizationService(authRepo ports.AuthorizationRepository, opts ...AuthzOption) *AuthorizationService {
	s := &AuthorizationService{
		authRepo: authRepo,
		ttl:      DefaultPermissionCacheTTL,
		now:      time.Now,
		cache:    make(map[uuid.UUID]cachedPermissions),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Can reports whether userID holds permission. Errors deny.
func (s *AuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	codes, err := s.permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(codes, permission), nil
}

// GetPermissions returns the user's permission codes, never nil.
func (s *AuthorizationService) GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	codes, err := s.permissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(codes), nil
}

func (s *AuthorizationService) permissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	now := s.now()

	if s.ttl > 0 {
		s.mu.Lock()
		entry, ok := s.cache[userID]
		s.mu.Unlock()
		if ok && now.Before(entry.expires) {
			return entry.codes, nil
		}
	}

	codes, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.ttl > 0 {
		s.mu.Lock()
		s.cache[userID] = cachedPermissions{codes: codes, expires: now.Add(s.ttl)}
		s.mu.Unlock()
	}
	return codes, nil
}

// load reads the grants, bootstrapping DefaultRole for users with none.
func (s *AuthorizationService) load(ctx context.Context, userID uuid.UUID) ([]string, error) {
	codes, err := s.authRepo.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	if len(codes) > 0 {
		return codes, nil
	}

	err = s.authRepo.AssignRole(ctx, userID, DefaultRole)
	if err != nil && !errors.Is(err, apperrors.ErrRoleAlreadyAssigned) {
		return nil, fmt.Errorf("assign default role: %w", err)
	}

	codes, err = s.authRepo.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

// authorize returns ErrForbidden unless the actor holds the permission.
func authorize(ctx context.Context, authz ports.AuthorizationService, actorID uuid.UUID, permission string) error {
	allowed, err := authz.Can(ctx, actorID, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s requires %s", apperrors.ErrForbidden, actorID, permission)
	}
	return nil
}
