package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/cordoeats/backend/internal/common"
)

// tokenSize is the number of random bytes per token, 256 bits of entropy.
const tokenSize = 32

// MemoryStore is the process-local reference implementation. A single mutex
// guards the whole table; every critical section is a handful of map
// operations, and the lookup + delete-on-expiry in Verify happens inside one
// of them. All outstanding tokens are lost on process restart.
type MemoryStore struct {
	mu       sync.Mutex
	tokens   map[string]Record
	validity time.Duration
}

func NewMemoryStore(validity time.Duration) *MemoryStore {
	return &MemoryStore{
		tokens:   make(map[string]Record),
		validity: validity,
	}
}

func (s *MemoryStore) Issue(ctx context.Context, userID, tenantSlug string) (string, error) {
	token, err := common.MakeRandURLSafeString(tokenSize)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.tokens[token] = Record{
		UserID:     userID,
		TenantSlug: tenantSlug,
		ExpiresAt:  time.Now().Add(s.validity),
	}
	s.mu.Unlock()

	return token, nil
}

func (s *MemoryStore) Verify(ctx context.Context, token string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if time.Now().After(rec.ExpiresAt) {
		delete(s.tokens, token)
		return nil, common.ErrorNotFound
	}

	out := rec
	return &out, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, rec := range s.tokens {
		if now.After(rec.ExpiresAt) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of live entries. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
