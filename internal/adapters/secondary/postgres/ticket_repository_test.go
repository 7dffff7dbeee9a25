package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

func TestTicketSnapshotRepository_GetSnapshot(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketSnapshotRepository(testPool)

	agent := insertUser(t, "Ada", true, domain.RoleAgent)
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	resolved := created.Add(3 * time.Hour)
	id := insertTicket(t, ticketRow{
		title:      "VPN down",
		priority:   "high",
		status:     domain.StatusResolved,
		assignee:   &agent,
		createdAt:  created,
		resolvedAt: &resolved,
	})

	snap, err := repo.GetSnapshot(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "VPN down", snap.Title)
	assert.Equal(t, domain.PriorityHigh, snap.Priority)
	assert.Equal(t, domain.StatusResolved, snap.Status)
	assert.Equal(t, &agent, snap.AssigneeID)
	assert.True(t, created.Equal(snap.CreatedAt))
	require.NotNil(t, snap.ResolvedAt)
	assert.True(t, resolved.Equal(*snap.ResolvedAt))

	_, err = repo.GetSnapshot(ctx, id+1000)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketSnapshotRepository_ListSnapshots(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketSnapshotRepository(testPool)

	agent := insertUser(t, "Ada", true, domain.RoleAgent)
	old := time.Now().UTC().Add(-72 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)
	closedAt := recent

	openAssigned := insertTicket(t, ticketRow{priority: "CRITICAL", assignee: &agent, createdAt: old})
	openUnassigned := insertTicket(t, ticketRow{priority: "LOW", createdAt: recent})
	closed := insertTicket(t, ticketRow{priority: "MEDIUM", status: domain.StatusClosed, createdAt: recent, resolvedAt: &closedAt})
	terminalNoDate := insertTicket(t, ticketRow{priority: "MEDIUM", status: domain.StatusResolved, createdAt: recent})

	ids := func(snaps []domain.TicketSnapshot) []int64 {
		out := make([]int64, 0, len(snaps))
		for _, s := range snaps {
			out = append(out, s.ID)
		}
		return out
	}

	all, err := repo.ListSnapshots(ctx, ports.SnapshotFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{openAssigned, openUnassigned, closed, terminalNoDate}, ids(all))

	open, err := repo.ListSnapshots(ctx, ports.SnapshotFilter{OpenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{openAssigned, openUnassigned}, ids(open))

	assigned, err := repo.ListSnapshots(ctx, ports.SnapshotFilter{Assigned: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{openAssigned}, ids(assigned))

	assignedOpen, err := repo.ListSnapshots(ctx, ports.SnapshotFilter{Assigned: true, OpenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{openAssigned}, ids(assignedOpen))

	from := time.Now().UTC().Add(-24 * time.Hour)
	since, err := repo.ListSnapshots(ctx, ports.SnapshotFilter{CreatedFrom: &from})
	require.NoError(t, err)
	assert.Equal(t, []int64{openUnassigned, closed, terminalNoDate}, ids(since))
}

func TestTicketSnapshotRepository_ListUnassignedOpen(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketSnapshotRepository(testPool)

	agent := insertUser(t, "Ada", true, domain.RoleAgent)
	now := time.Now().UTC()

	newest := insertTicket(t, ticketRow{createdAt: now.Add(-time.Hour), status: domain.StatusNew})
	oldest := insertTicket(t, ticketRow{createdAt: now.Add(-10 * time.Hour)})
	insertTicket(t, ticketRow{createdAt: now.Add(-20 * time.Hour), assignee: &agent})
	insertTicket(t, ticketRow{createdAt: now.Add(-30 * time.Hour), status: domain.StatusClosed})
	middle := insertTicket(t, ticketRow{createdAt: now.Add(-5 * time.Hour), status: domain.StatusPending})

	snaps, err := repo.ListUnassignedOpen(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, oldest, snaps[0].ID)
	assert.Equal(t, middle, snaps[1].ID)
	assert.Equal(t, newest, snaps[2].ID)

	limited, err := repo.ListUnassignedOpen(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, oldest, limited[0].ID)
}

func TestTicketSnapshotRepository_AssignIfUnassigned(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketSnapshotRepository(testPool)

	first := insertUser(t, "Ada", true, domain.RoleAgent)
	second := insertUser(t, "Grace", true, domain.RoleAgent)
	id := insertTicket(t, ticketRow{createdAt: time.Now().UTC()})

	require.NoError(t, repo.AssignIfUnassigned(ctx, id, first))
	assert.ErrorIs(t, repo.AssignIfUnassigned(ctx, id, second), apperrors.ErrAssignmentConflict)
	assert.ErrorIs(t, repo.AssignIfUnassigned(ctx, id+1000, second), apperrors.ErrTicketNotFound)

	snap, err := repo.GetSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, &first, snap.AssigneeID)
	assert.NotNil(t, snap.UpdatedAt)
}

func TestTicketSnapshotRepository_AssignIfUnassigned_RejectsStoppedClock(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketSnapshotRepository(testPool)
	agent := insertUser(t, "Ada", true, domain.RoleAgent)
	resolved := time.Now().UTC()

	tests := []struct {
		name string
		row  ticketRow
	}{
		{"closed status", ticketRow{priority: "HIGH", status: domain.StatusClosed}},
		{"resolved status", ticketRow{priority: "HIGH", status: domain.StatusResolved}},
		{"resolved_at set on open status", ticketRow{priority: "HIGH", resolvedAt: &resolved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row.createdAt = time.Now().UTC().Add(-time.Hour)
			id := insertTicket(t, tt.row)

			err := repo.AssignIfUnassigned(ctx, id, agent)
			assert.ErrorIs(t, err, apperrors.ErrCannotAssignClosed)

			snap, err := repo.GetSnapshot(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, snap.AssigneeID)
		})
	}
}

func TestTicketSnapshotRepository_AssignIfUnassigned_ClosedAfterRead(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketSnapshotRepository(testPool)
	agent := insertUser(t, "Ada", true, domain.RoleAgent)
	id := insertTicket(t, ticketRow{priority: "HIGH", createdAt: time.Now().UTC()})

	pending, err := repo.ListUnassignedOpen(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = testPool.Exec(ctx, `UPDATE tickets SET status = 'CLOSED', resolved_at = NOW() WHERE id = $1`, id)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.AssignIfUnassigned(ctx, pending[0].ID, agent), apperrors.ErrCannotAssignClosed)
}

func TestTicketSnapshotRepository_AssignIfUnassigned_SingleWinner(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTicketSnapshotRepository(testPool)

	agent := insertUser(t, "Ada", true, domain.RoleAgent)
	id := insertTicket(t, ticketRow{createdAt: time.Now().UTC()})

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.AssignIfUnassigned(ctx, id, agent)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperrors.ErrAssignmentConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}
