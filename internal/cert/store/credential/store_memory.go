package credential

import (
	"context"
	"sort"
	"sync"

	"credreg/internal/cert/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

// InMemory implements the issued credential store. Uniqueness per
// (cert type, owner) key is permanent: deleted keys are retired unless the
// store was built with reissue-after-sweep enabled, so a swept key is still
// rejected at insert.
type InMemory struct {
	mu      sync.RWMutex
	creds   map[domain.CredentialKey]*models.Credential
	byOrg   map[domain.OrgID]map[domain.CredentialKey]struct{}
	retired map[domain.CredentialKey]struct{}

	allowReissue bool
}

type Option func(*InMemory)

// WithReissueAfterSweep lets a key be issued again after the sweeper
// purged it. Off by default to keep history tamper-evident.
func WithReissueAfterSweep() Option {
	return func(s *InMemory) { s.allowReissue = true }
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		creds:   make(map[domain.CredentialKey]*models.Credential),
		byOrg:   make(map[domain.OrgID]map[domain.CredentialKey]struct{}),
		retired: make(map[domain.CredentialKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts an Active record. Returns sentinel.ErrAlreadyUsed when
// any record (whatever its state) holds the key, and sentinel.ErrRetired
// when the key was spent by a sweep.
func (s *InMemory) Create(_ context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cred.Key()
	if _, exists := s.creds[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if _, spent := s.retired[key]; spent {
		return sentinel.ErrRetired
	}

	s.creds[key] = cred.Clone()
	orgKeys, ok := s.byOrg[cred.IssuedBy]
	if !ok {
		orgKeys = make(map[domain.CredentialKey]struct{})
		s.byOrg[cred.IssuedBy] = orgKeys
	}
	orgKeys[key] = struct{}{}
	return nil
}

func (s *InMemory) Find(_ context.Context, key domain.CredentialKey) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cred.Clone(), nil
}

// Execute runs an atomic validate-then-mutate section against the record.
func (s *InMemory) Execute(
	_ context.Context,
	key domain.CredentialKey,
	validate func(*models.Credential) error,
	apply func(*models.Credential),
) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(cred); err != nil {
		return nil, err
	}
	apply(cred)
	return cred.Clone(), nil
}

// ListByOrg enumerates credentials issued by the organization, ordered by
// key for deterministic output.
func (s *InMemory) ListByOrg(_ context.Context, orgID domain.OrgID) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]domain.CredentialKey, 0, len(s.byOrg[orgID]))
	for key := range s.byOrg[orgID] {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CertTypeID != keys[j].CertTypeID {
			return keys[i].CertTypeID < keys[j].CertTypeID
		}
		return keys[i].Owner < keys[j].Owner
	})

	out := make([]*models.Credential, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.creds[key].Clone())
	}
	return out, nil
}

// Delete removes the record for good (the sweep path). The key is retired
// unless reissue-after-sweep is enabled. Deleting an absent key returns
// sentinel.ErrNotFound so the sweeper stays idempotent.
func (s *InMemory) Delete(_ context.Context, key domain.CredentialKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.creds, key)
	if orgKeys, ok := s.byOrg[cred.IssuedBy]; ok {
		delete(orgKeys, key)
	}
	if !s.allowReissue {
		s.retired[key] = struct{}{}
	}
	return nil
}

// Discard removes the record without retiring the key. Rollback path for a
// failed issuance, never used by the sweeper.
func (s *InMemory) Discard(_ context.Context, key domain.CredentialKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.creds, key)
	if orgKeys, ok := s.byOrg[cred.IssuedBy]; ok {
		delete(orgKeys, key)
	}
	return nil
}
