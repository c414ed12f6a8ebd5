package repository

import (
	"context"
	"time"

	"job_portal/internal/domain/models"
)

// UserRepository is implemented by every user-store driver.
type UserRepository interface {
	VerifyCredentials(ctx context.Context, email, password string) (models.Account, error)
	UserByID(ctx context.Context, id string) (models.Account, error)
	CreateUser(ctx context.Context, email, password string) (models.Account, error)
}

// TokenRepository tracks refresh-token IDs that must no longer be accepted.
// Claim is atomic: of any number of concurrent calls for one ID, exactly one
// reports true.
type TokenRepository interface {
	Claim(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
}

var (
	_ UserRepository = (*UserRepo)(nil)
	_ UserRepository = (*HTTPUserRepo)(nil)
	_ UserRepository = (*MemoryUserRepo)(nil)

	_ TokenRepository = (*RedisTokenRepo)(nil)
	_ TokenRepository = (*MemoryTokenRepo)(nil)
)
