package certtype

import (
	"context"
	"sort"
	"sync"

	"credreg/internal/cert/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

// InMemory implements the certificate type store. Name uniqueness is
// enforced per organization at insert, under the same lock as the ID
// allocation.
type InMemory struct {
	mu     sync.RWMutex
	types  map[domain.CertTypeID]*models.CertificateType
	names  map[domain.OrgID]map[string]domain.CertTypeID
	byOrg  map[domain.OrgID][]domain.CertTypeID
	nextID uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		types: make(map[domain.CertTypeID]*models.CertificateType),
		names: make(map[domain.OrgID]map[string]domain.CertTypeID),
		byOrg: make(map[domain.OrgID][]domain.CertTypeID),
	}
}

// Create allocates the next CertTypeID and inserts the template. Returns
// sentinel.ErrAlreadyUsed when the name is taken within the organization.
func (s *InMemory) Create(_ context.Context, ct *models.CertificateType) (domain.CertTypeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orgNames, ok := s.names[ct.OrgID]
	if !ok {
		orgNames = make(map[string]domain.CertTypeID)
		s.names[ct.OrgID] = orgNames
	}
	if _, taken := orgNames[ct.Name]; taken {
		return 0, sentinel.ErrAlreadyUsed
	}

	s.nextID++
	id := domain.CertTypeID(s.nextID)
	stored := ct.Clone()
	stored.ID = id
	s.types[id] = stored
	orgNames[ct.Name] = id
	s.byOrg[ct.OrgID] = append(s.byOrg[ct.OrgID], id)
	return id, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.CertTypeID) (*models.CertificateType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ct, ok := s.types[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return ct.Clone(), nil
}

// ListByOrg enumerates the organization's templates in id order.
func (s *InMemory) ListByOrg(_ context.Context, orgID domain.OrgID) ([]*models.CertificateType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := append([]domain.CertTypeID(nil), s.byOrg[orgID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*models.CertificateType, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.types[id].Clone())
	}
	return out, nil
}
