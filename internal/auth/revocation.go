package auth

import (
	"context"
	"sync"
	"time"

	"github.com/SargisDallakyan/blogPlatform/internal/cache"
)

const revokedKeyPrefix = "revoked:"

// RevocationList records token IDs that must no longer be accepted.
// Entries only need to live until the token's own expiry.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocationList stores revoked token IDs in Redis with a TTL.
type RedisRevocationList struct {
	cache *cache.Client
	now   func() time.Time
}

var _ RevocationList = (*RedisRevocationList)(nil)

// NewRedisRevocationList creates a revocation list backed by Redis.
func NewRedisRevocationList(c *cache.Client) *RedisRevocationList {
	return &RedisRevocationList{cache: c, now: time.Now}
}

// Revoke marks tokenID as revoked until expiresAt.
func (r *RedisRevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.cache.Set(ctx, revokedKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked reports whether tokenID has been revoked.
func (r *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r.cache.Exists(ctx, revokedKeyPrefix+tokenID)
}

// MemoryRevocationList keeps revoked token IDs in process memory.
// It is used when no Redis address is configured and therefore only
// covers a single server instance.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

var _ RevocationList = (*MemoryRevocationList)(nil)

// NewMemoryRevocationList creates an empty in-process revocation list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke marks tokenID as revoked until expiresAt.
func (m *MemoryRevocationList) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked(now)
	if expiresAt.After(now) {
		m.entries[tokenID] = expiresAt
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked and is not yet expired.
func (m *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt, ok := m.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(now) {
		delete(m.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// Len returns the number of live entries.
func (m *MemoryRevocationList) Len() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked(now)
	return len(m.entries)
}

func (m *MemoryRevocationList) pruneLocked(now time.Time) {
	for id, expiresAt := range m.entries {
		if !expiresAt.After(now) {
			delete(m.entries, id)
		}
	}
}
