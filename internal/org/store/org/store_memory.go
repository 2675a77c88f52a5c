package org

import (
	"context"
	"sync"

	"credreg/internal/org/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

// InMemory implements the organization store with in-process maps. The ID
// allocator is a plain counter incremented under the same lock as the
// insert, matching the ledger's atomic-transaction discipline.
type InMemory struct {
	mu     sync.RWMutex
	orgs   map[domain.OrgID]*models.Organization
	nextID uint32
}

func NewInMemory() *InMemory {
	return &InMemory{orgs: make(map[domain.OrgID]*models.Organization)}
}

// Create allocates the next OrgID and inserts the organization.
func (s *InMemory) Create(_ context.Context, org *models.Organization) (domain.OrgID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := domain.OrgID(s.nextID)
	stored := org.Clone()
	stored.ID = id
	s.orgs[id] = stored
	return id, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.OrgID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return org.Clone(), nil
}

// Execute runs an atomic validate-then-mutate section against the
// organization. The lock is held across both callbacks so no other
// operation observes intermediate state.
func (s *InMemory) Execute(
	_ context.Context,
	id domain.OrgID,
	validate func(*models.Organization) error,
	apply func(*models.Organization),
) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(org); err != nil {
		return nil, err
	}
	apply(org)
	return org.Clone(), nil
}
