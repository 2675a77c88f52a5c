// Package expiry provides the time-ordered secondary index the sweeper
// scans. Entries are keyed by credential and scored by expiry moment, so a
// sweep touches only newly-expired records instead of the whole registry.
package expiry

import (
	"context"
	"sort"
	"sync"

	"credreg/pkg/domain"
)

// InMemory keeps expiry buckets in a sorted moment list. Put/Remove are
// O(log n) lookups plus O(n) slice maintenance; DueBefore walks only the
// prefix below the threshold.
type InMemory struct {
	mu      sync.RWMutex
	buckets map[domain.Moment][]domain.CredentialKey
	moments []domain.Moment // sorted ascending, unique
	byKey   map[domain.CredentialKey]domain.Moment
}

func NewInMemory() *InMemory {
	return &InMemory{
		buckets: make(map[domain.Moment][]domain.CredentialKey),
		byKey:   make(map[domain.CredentialKey]domain.Moment),
	}
}

func (s *InMemory) Put(_ context.Context, key domain.CredentialKey, expiresAt domain.Moment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byKey[key]; ok {
		s.removeLocked(key, old)
	}
	s.byKey[key] = expiresAt
	if _, ok := s.buckets[expiresAt]; !ok {
		i := sort.Search(len(s.moments), func(i int) bool { return s.moments[i] >= expiresAt })
		s.moments = append(s.moments, 0)
		copy(s.moments[i+1:], s.moments[i:])
		s.moments[i] = expiresAt
	}
	s.buckets[expiresAt] = append(s.buckets[expiresAt], key)
	return nil
}

func (s *InMemory) Remove(_ context.Context, key domain.CredentialKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.byKey[key]
	if !ok {
		return nil
	}
	s.removeLocked(key, expiresAt)
	return nil
}

// DueBefore returns every indexed key whose expiry moment is strictly
// below the threshold.
func (s *InMemory) DueBefore(_ context.Context, threshold domain.Moment) ([]domain.CredentialKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CredentialKey
	for _, m := range s.moments {
		if m >= threshold {
			break
		}
		out = append(out, s.buckets[m]...)
	}
	return out, nil
}

func (s *InMemory) removeLocked(key domain.CredentialKey, expiresAt domain.Moment) {
	delete(s.byKey, key)
	bucket := s.buckets[expiresAt]
	for i := range bucket {
		if bucket[i] == key {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(s.buckets, expiresAt)
		i := sort.Search(len(s.moments), func(i int) bool { return s.moments[i] >= expiresAt })
		if i < len(s.moments) && s.moments[i] == expiresAt {
			s.moments = append(s.moments[:i], s.moments[i+1:]...)
		}
	} else {
		s.buckets[expiresAt] = bucket
	}
}
