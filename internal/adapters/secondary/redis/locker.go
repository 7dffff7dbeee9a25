package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const lockKeyPrefix = "sla:assign-lock:"

// ErrLeaseLost is returned by release when the lease expired or was taken
// over before it was released.
var ErrLeaseLost = errors.New("ticket lock lease lost")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TicketLocker is a lease-based mutex per ticket: SET NX PX with a random token.
type TicketLocker struct {
	rdb *goredis.Client
	ttl time.Duration
}

var _ ports.TicketLocker = (*TicketLocker)(nil)

func NewTicketLocker(client *Client, ttl time.Duration) *TicketLocker {
	return &TicketLocker{rdb: client.rdb, ttl: ttl}
}

func lockKey(ticketID int64) string {
	return fmt.Sprintf("%s%d", lockKeyPrefix, ticketID)
}

// Acquire takes the lease for ticketID or returns ErrLockNotAcquired.
func (l *TicketLocker) Acquire(ctx context.Context, ticketID int64) (func(context.Context) error, error) {
	key := lockKey(ticketID)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock for ticket %d: %w", ticketID, err)
	}
	if !ok {
		return nil, apperrors.ErrLockNotAcquired
	}

	release := func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int64()
		if err != nil {
			return fmt.Errorf("release lock for ticket %d: %w", ticketID, err)
		}
		if deleted == 0 {
			return ErrLeaseLost
		}
		return nil
	}
	return release, nil
}
