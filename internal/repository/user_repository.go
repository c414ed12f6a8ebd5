package repository

import (
	"context"
	"errors"
	"fmt"

	"job_portal/internal/domain/models"
	"job_portal/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const (
	usersTable = "users"

	uniqueViolation = "23505"
)

// UserRepo is the postgres-backed user store.
type UserRepo struct {
	db   *pgxpool.Pool
	sb   sq.StatementBuilderType
	cost int
}

func NewUserRepository(db *pgxpool.Pool, bcryptCost int) *UserRepo {
	return &UserRepo{
		db:   db,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		cost: bcryptCost,
	}
}

func (r *UserRepo) CreateUser(ctx context.Context, email, password string) (models.Account, error) {
	const op = "repository.user_repository.CreateUser"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Insert(usersTable).
		Columns("email", "password_hash", "role", "is_active").
		Values(email, hash, string(models.RoleUser), true).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrUserExists, "Email is already registered"))
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Account{
		ID:       id.String(),
		Email:    email,
		Role:     string(models.RoleUser),
		IsActive: true,
	}, nil
}

func (r *UserRepo) VerifyCredentials(ctx context.Context, email, password string) (models.Account, error) {
	const op = "repository.user_repository.VerifyCredentials"

	account, hash, err := r.selectOne(ctx, sq.Eq{"email": email})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrInvalidCredentials, "Invalid email or password"))
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrInvalidCredentials, "Invalid email or password"))
	}

	return account, nil
}

func (r *UserRepo) UserByID(ctx context.Context, id string) (models.Account, error) {
	const op = "repository.user_repository.UserByID"

	userID, err := uuid.Parse(id)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	account, _, err := r.selectOne(ctx, sq.Eq{"id": userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

func (r *UserRepo) selectOne(ctx context.Context, where sq.Eq) (models.Account, []byte, error) {
	query, args, err := r.sb.Select("id", "email", "password_hash", "role", "is_active").
		From(usersTable).
		Where(where).
		ToSql()
	if err != nil {
		return models.Account{}, nil, fmt.Errorf("can't build sql: %w", err)
	}

	var (
		id      uuid.UUID
		account models.Account
		hash    []byte
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(&id, &account.Email, &hash, &account.Role, &account.IsActive)
	if err != nil {
		return models.Account{}, nil, err
	}
	account.ID = id.String()

	return account, hash, nil
}
