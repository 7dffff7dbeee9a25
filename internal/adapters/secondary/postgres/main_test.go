package postgres

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// testPool is a global connection pool used by all tests in this package.
var testPool *pgxpool.Pool

// TestMain sets up and tears down the test database container.
func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	log.Println("Setting up PostgreSQL container...")
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("sla-test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Printf("could not start postgres container: %v", err)
		return 1
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("could not terminate postgres container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("could not get connection string: %v", err)
		return 1
	}

	// postgres -> secondary -> adapters -> internal -> project root
	migrationsPath, err := filepath.Abs("../../../../migrations")
	if err != nil {
		log.Printf("could not find migrations directory: %v", err)
		return 1
	}
	if err := Migrate("file://"+migrationsPath, connStr); err != nil {
		log.Printf("could not run migrations: %v", err)
		return 1
	}

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Printf("could not create connection pool: %v", err)
		return 1
	}
	defer testPool.Close()

	return m.Run()
}

// resetTables clears everything except the seeded RBAC catalogue.
func resetTables(t *testing.T) {
	t.Helper()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	_, err := testPool.Exec(context.Background(), `TRUNCATE tickets, user_roles, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func insertUser(t *testing.T, name string, active bool, roles ...string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	_, err := testPool.Exec(ctx,
		`INSERT INTO users (id, full_name, email, is_active) VALUES ($1, $2, $3, $4)`,
		id, name, id.String()+"@example.com", active)
	require.NoError(t, err)

	for _, role := range roles {
		_, err := testPool.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) SELECT $1, id FROM roles WHERE name = $2`, id, role)
		require.NoError(t, err)
	}
	return id
}

type ticketRow struct {
	title      string
	priority   string
	status     domain.TicketStatus
	assignee   *uuid.UUID
	createdAt  time.Time
	resolvedAt *time.Time
}

func insertTicket(t *testing.T, row ticketRow) int64 {
	t.Helper()
	if row.title == "" {
		row.title = "ticket"
	}
	if row.status == "" {
		row.status = domain.StatusOpen
	}

	var id int64
	err := testPool.QueryRow(context.Background(), `
INSERT INTO tickets (title, priority, status, assignee_id, created_at, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		row.title, row.priority, string(row.status), row.assignee, row.createdAt, row.resolvedAt,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
