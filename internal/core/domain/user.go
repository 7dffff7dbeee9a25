package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff member known to the RBAC tables.
type User struct {
	ID        uuid.UUID
	FullName  string
	Email     string
	IsActive  bool
	CreatedAt time.Time
}

// AsAgent projects a user onto the balancer's roster view.
func (u *User) AsAgent(activeTickets int) Agent {
	return Agent{
		ID:            u.ID,
		FullName:      u.FullName,
		Email:         u.Email,
		IsActive:      u.IsActive,
		ActiveTickets: activeTickets,
	}
}
