// Package identity persists DID ownership, delegates, and attributes.
package identity

import (
	"context"
	"sort"
	"sync"

	"credreg/internal/did/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

type delegateKey struct {
	identity domain.AccountID
	dtype    string
	delegate domain.AccountID
}

type attributeKey struct {
	identity domain.AccountID
	name     string
}

// InMemory implements the identity store. Owner lookups fall back to the
// identity itself when no explicit owner was recorded.
type InMemory struct {
	mu         sync.RWMutex
	owners     map[domain.AccountID]domain.AccountID
	delegates  map[delegateKey]*models.DelegateRecord
	attributes map[attributeKey]*models.AttributeRecord
}

func NewInMemory() *InMemory {
	return &InMemory{
		owners:     make(map[domain.AccountID]domain.AccountID),
		delegates:  make(map[delegateKey]*models.DelegateRecord),
		attributes: make(map[attributeKey]*models.AttributeRecord),
	}
}

// OwnerOf returns the recorded owner, or the identity itself when none was
// ever set.
func (s *InMemory) OwnerOf(_ context.Context, identity domain.AccountID) (domain.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if owner, ok := s.owners[identity]; ok {
		return owner, nil
	}
	return identity, nil
}

func (s *InMemory) SetOwner(_ context.Context, identity, owner domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[identity] = owner
	return nil
}

func (s *InMemory) FindDelegate(_ context.Context, identity domain.AccountID, dtype string, delegate domain.AccountID) (*models.DelegateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.delegates[delegateKey{identity, dtype, delegate}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *rec
	return &out, nil
}

// UpsertDelegate writes the grant, replacing any previous record for the
// same (identity, type, delegate) triple.
func (s *InMemory) UpsertDelegate(_ context.Context, rec *models.DelegateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *rec
	s.delegates[delegateKey{rec.Identity, rec.Type, rec.Delegate}] = &stored
	return nil
}

// ListDelegates enumerates every delegate record for the identity, expired
// ones included, ordered by type then delegate.
func (s *InMemory) ListDelegates(_ context.Context, identity domain.AccountID) ([]*models.DelegateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DelegateRecord
	for key, rec := range s.delegates {
		if key.identity != identity {
			continue
		}
		copied := *rec
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Delegate < out[j].Delegate
	})
	return out, nil
}

func (s *InMemory) FindAttribute(_ context.Context, identity domain.AccountID, name string) (*models.AttributeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.attributes[attributeKey{identity, name}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemory) UpsertAttribute(_ context.Context, rec *models.AttributeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attributes[attributeKey{rec.Identity, rec.Name}] = rec.Clone()
	return nil
}

func (s *InMemory) DeleteAttribute(_ context.Context, identity domain.AccountID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attributeKey{identity, name}
	if _, ok := s.attributes[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.attributes, key)
	return nil
}

// ListAttributes enumerates every attribute for the identity in name
// order, expired ones included.
func (s *InMemory) ListAttributes(_ context.Context, identity domain.AccountID) ([]*models.AttributeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AttributeRecord
	for key, rec := range s.attributes {
		if key.identity != identity {
			continue
		}
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
