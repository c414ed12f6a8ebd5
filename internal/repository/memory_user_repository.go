package repository

import (
	"context"
	"fmt"
	"sync"

	"job_portal/internal/domain/models"
	"job_portal/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type memoryUser struct {
	account models.Account
	hash    []byte
}

// MemoryUserRepo is an in-process user store for local runs and tests.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	cost    int
	byID    map[string]*memoryUser
	byEmail map[string]string
}

func NewMemoryUserRepository(bcryptCost int) *MemoryUserRepo {
	return &MemoryUserRepo{
		cost:    bcryptCost,
		byID:    make(map[string]*memoryUser),
		byEmail: make(map[string]string),
	}
}

// Seed stores an account with an explicit role and activity flag.
func (r *MemoryUserRepo) Seed(email, password string, role models.Role, active bool) (models.Account, error) {
	const op = "repository.MemoryUserRepo.Seed"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrUserExists, "Email is already registered"))
	}

	account := models.Account{
		ID:       uuid.NewString(),
		Email:    email,
		Role:     string(role),
		IsActive: active,
	}
	r.byID[account.ID] = &memoryUser{account: account, hash: hash}
	r.byEmail[email] = account.ID

	return account, nil
}

func (r *MemoryUserRepo) CreateUser(_ context.Context, email, password string) (models.Account, error) {
	return r.Seed(email, password, models.RoleUser, true)
}

func (r *MemoryUserRepo) VerifyCredentials(_ context.Context, email, password string) (models.Account, error) {
	const op = "repository.MemoryUserRepo.VerifyCredentials"

	r.mu.RLock()
	user, ok := r.byID[r.byEmail[email]]
	r.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword(user.hash, []byte(password)) != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrInvalidCredentials, "Invalid email or password"))
	}

	return user.account, nil
}

func (r *MemoryUserRepo) UserByID(_ context.Context, id string) (models.Account, error) {
	const op = "repository.MemoryUserRepo.UserByID"

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return user.account, nil
}

// SetActive flips the activity flag of an existing account.
func (r *MemoryUserRepo) SetActive(id string, active bool) error {
	const op = "repository.MemoryUserRepo.SetActive"

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	user.account.IsActive = active

	return nil
}
