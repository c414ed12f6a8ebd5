package repository

import (
	"context"
	"fmt"
	"time"

	redisapp "job_portal/internal/storage/redis"
)

type RedisTokenRepo struct {
	client *redisapp.Client
}

func NewRedisTokenRepo(client *redisapp.Client) *RedisTokenRepo {
	return &RedisTokenRepo{client: client}
}

// Claim marks tokenID as used until ttl elapses and reports whether this call
// was the first to do so. A token past its expiry is rejected by signature
// checks anyway, so non-positive ttl stores nothing.
func (r *RedisTokenRepo) Claim(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	const op = "repository.RedisTokenRepo.Claim"

	if ttl <= 0 {
		return true, nil
	}

	claimed, err := r.client.SetNX(ctx, revokedTokenKey(tokenID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return claimed, nil
}

func revokedTokenKey(tokenID string) string {
	return "revoked:refresh:" + tokenID
}
