package redis

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

var testClient *Client

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Printf("could not start redis container: %v", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("could not terminate redis container: %v", err)
		}
	}()

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		log.Printf("could not get redis endpoint: %v", err)
		return 1
	}

	testClient = &Client{rdb: goredis.NewClient(&goredis.Options{Addr: endpoint})}
	defer testClient.Close()

	return m.Run()
}

func TestClient_Ping(t *testing.T) {
	require.NoError(t, testClient.Ping(context.Background()))
}

func TestTicketLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	locker := NewTicketLocker(testClient, 5*time.Second)

	release, err := locker.Acquire(ctx, 101)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, 101)
	assert.ErrorIs(t, err, apperrors.ErrLockNotAcquired)

	other, err := locker.Acquire(ctx, 102)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	assert.ErrorIs(t, release(ctx), ErrLeaseLost)

	again, err := locker.Acquire(ctx, 101)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestTicketLocker_ExpiredLeaseIsNotStolenBack(t *testing.T) {
	ctx := context.Background()
	locker := NewTicketLocker(testClient, 100*time.Millisecond)

	stale, err := locker.Acquire(ctx, 201)
	require.NoError(t, err)

	var fresh func(context.Context) error
	require.Eventually(t, func() bool {
		fresh, err = locker.Acquire(ctx, 201)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	// The stale holder must not delete the new holder's lease.
	assert.ErrorIs(t, stale(ctx), ErrLeaseLost)
	_, err = locker.Acquire(ctx, 201)
	assert.ErrorIs(t, err, apperrors.ErrLockNotAcquired)

	require.NoError(t, fresh(ctx))
}

func TestTicketLocker_SingleHolderUnderContention(t *testing.T) {
	ctx := context.Background()
	locker := NewTicketLocker(testClient, 5*time.Second)

	const contenders = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		holders  int
		releases []func(context.Context) error
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, 301)
			if err != nil {
				return
			}
			mu.Lock()
			holders++
			releases = append(releases, release)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, holders)
	for _, release := range releases {
		require.NoError(t, release(ctx))
	}
}
