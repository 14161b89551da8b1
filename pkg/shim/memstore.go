package shim

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryCredentialStore is a mutex-guarded CredentialStore for tests and
// single-node development.
type MemoryCredentialStore struct {
	mu          sync.RWMutex
	credentials []*AccessCredential
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) FindLatest(ctx context.Context, userID, shimKey string) (*AccessCredential, error) {
	all, err := s.FindAll(ctx, userID, shimKey)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrCredentialNotFound
	}
	return all[0], nil
}

func (s *MemoryCredentialStore) FindAll(_ context.Context, userID, shimKey string) ([]*AccessCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*AccessCredential
	for _, c := range s.credentials {
		if c.UserID == userID && c.ShimKey == shimKey {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryCredentialStore) Save(_ context.Context, credential *AccessCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = append(s.credentials, credential)
	return nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, credential *AccessCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.credentials {
		if c.ID == credential.ID {
			s.credentials = append(s.credentials[:i], s.credentials[i+1:]...)
			return nil
		}
	}
	return ErrCredentialNotFound
}

// MemoryPendingAuthorizationStore is a mutex-guarded
// PendingAuthorizationStore with lazy TTL expiry.
type MemoryPendingAuthorizationStore struct {
	mu      sync.RWMutex
	pending map[string]*PendingAuthorization
	ttl     time.Duration
	now     func() time.Time
}

var _ PendingAuthorizationStore = (*MemoryPendingAuthorizationStore)(nil)

// NewMemoryPendingAuthorizationStore creates a store expiring records after
// ttl. A zero ttl disables expiry.
func NewMemoryPendingAuthorizationStore(ttl time.Duration) *MemoryPendingAuthorizationStore {
	return &MemoryPendingAuthorizationStore{
		pending: make(map[string]*PendingAuthorization),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryPendingAuthorizationStore) Save(_ context.Context, pending *PendingAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pending[pending.StateToken]; ok && !s.expired(existing) {
		return ErrStateConflict
	}
	s.pending[pending.StateToken] = pending
	return nil
}

func (s *MemoryPendingAuthorizationStore) FindByStateToken(_ context.Context, stateToken string) (*PendingAuthorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[stateToken]
	if !ok || s.expired(p) {
		return nil, ErrNoPendingAuthorization
	}
	return p, nil
}

func (s *MemoryPendingAuthorizationStore) Delete(_ context.Context, pending *PendingAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.pending[pending.StateToken]
	delete(s.pending, pending.StateToken)
	if !ok || s.expired(existing) {
		return ErrNoPendingAuthorization
	}
	return nil
}

func (s *MemoryPendingAuthorizationStore) expired(p *PendingAuthorization) bool {
	return s.ttl > 0 && s.now().Sub(p.CreatedAt) > s.ttl
}
