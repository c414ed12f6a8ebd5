package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryTokenRepo keeps used refresh-token IDs in process memory. It is
// used when no Redis address is configured; entries do not survive a
// restart and are not shared between replicas.
type MemoryTokenRepo struct {
	cache *cache.Cache
}

func NewMemoryTokenRepo(cleanupInterval time.Duration) *MemoryTokenRepo {
	return &MemoryTokenRepo{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (r *MemoryTokenRepo) Claim(_ context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}

	// Add fails when a live entry already exists.
	return r.cache.Add(revokedTokenKey(tokenID), struct{}{}, ttl) == nil, nil
}
