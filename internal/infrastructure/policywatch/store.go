// Package policywatch holds the SLA policy in force and keeps it in step with
// an optional YAML policy file.
package policywatch

import (
	"sync/atomic"

	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

var _ ports.PolicySource = (*Store)(nil)

// Store is a concurrency-safe holder for the current policy.
type Store struct {
	current atomic.Pointer[sla.Policy]
}

func NewStore(initial sla.Policy) *Store {
	s := &Store{}
	s.Set(initial)
	return s
}

// Current returns the policy in force.
func (s *Store) Current() sla.Policy {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return sla.DefaultPolicy()
}

// Set replaces the policy in force.
func (s *Store) Set(policy sla.Policy) {
	s.current.Store(&policy)
}
