package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"job_portal/internal/domain/models"
	"job_portal/internal/lib/jwt"
	"job_portal/internal/lib/logger/sl"
	"job_portal/internal/metrics"
	"job_portal/internal/storage"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrRegistrationFailed  = errors.New("registration failed")
	ErrLoginFailed         = errors.New("login failed")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

const (
	MsgCredentialsRequired = "Email and password are required"
	MsgRegisterRequired    = "Email, password and password confirmation are required"
	MsgInvalidEmail        = "Please enter a valid email address"
	MsgPasswordMismatch    = "Passwords do not match"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError lists every rule a registration request broke.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type UserStore interface {
	VerifyCredentials(ctx context.Context, email, password string) (models.Account, error)
	UserByID(ctx context.Context, id string) (models.Account, error)
	CreateUser(ctx context.Context, email, password string) (models.Account, error)
}

type TokenCodec interface {
	MintAccessToken(identity models.Identity) (string, error)
	MintRefreshToken(identity models.Identity) (string, error)
	VerifyRefreshToken(token string) (*jwt.RefreshClaims, error)
}

// RevocationStore records used refresh-token IDs. Claim reports false when
// the ID was already recorded, and must be atomic across concurrent callers.
type RevocationStore interface {
	Claim(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
}

type LoginResult struct {
	Identity models.Identity
	Tokens   models.TokenPair
}

type Auth struct {
	log         *slog.Logger
	users       UserStore
	codec       TokenCodec
	revocations RevocationStore
	now         func() time.Time
}

func New(log *slog.Logger, users UserStore, codec TokenCodec, revocations RevocationStore) *Auth {
	return &Auth{
		log:         log,
		users:       users,
		codec:       codec,
		revocations: revocations,
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Auth) Register(ctx context.Context, email, password, confirmPassword string) (models.Identity, error) {
	const op = "auth.Register"

	email = normalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("registering user")

	if err := validateRegistration(email, password, confirmPassword); err != nil {
		log.Info("registration rejected", sl.Err(err))
		metrics.AuthEvent("register", "invalid")

		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	account, err := a.users.CreateUser(ctx, email, password)
	if err != nil {
		if isRejection(err) {
			log.Warn("user store rejected registration", sl.Err(err))
			metrics.AuthEvent("register", "rejected")

			return models.Identity{}, fmt.Errorf("%s: %w: %w", op, ErrRegistrationFailed, err)
		}

		log.Error("failed to create user", sl.Err(err))
		metrics.AuthEvent("register", "error")

		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("user_id", account.ID))
	metrics.AuthEvent("register", "success")

	return account.Identity(), nil
}

func validateRegistration(email, password, confirmPassword string) error {
	if email == "" || password == "" || confirmPassword == "" {
		return &ValidationError{Violations: []string{MsgRegisterRequired}}
	}

	if !emailPattern.MatchString(email) {
		return &ValidationError{Violations: []string{MsgInvalidEmail}}
	}

	if password != confirmPassword {
		return &ValidationError{Violations: []string{MsgPasswordMismatch}}
	}

	if violations := ValidatePassword(password); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	return nil
}

func (a *Auth) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const op = "auth.Login"

	email = normalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("attempting to login user")

	if email == "" || password == "" {
		metrics.AuthEvent("login", "invalid")

		return LoginResult{}, fmt.Errorf("%s: %w", op, &ValidationError{Violations: []string{MsgCredentialsRequired}})
	}

	account, err := a.users.VerifyCredentials(ctx, email, password)
	if err != nil {
		if isRejection(err) || errors.Is(err, storage.ErrUserNotFound) {
			log.Info("invalid credentials", sl.Err(err))
			metrics.AuthEvent("login", "rejected")

			return LoginResult{}, fmt.Errorf("%s: %w: %w", op, ErrLoginFailed, err)
		}

		log.Error("failed to verify credentials", sl.Err(err))
		metrics.AuthEvent("login", "error")

		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !account.IsActive {
		log.Warn("login attempt for disabled account", slog.String("user_id", account.ID))
		metrics.AuthEvent("login", "disabled")

		return LoginResult{}, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	identity := account.Identity()

	tokens, err := a.mintPair(identity)
	if err != nil {
		log.Error("failed to generate tokens", sl.Err(err))
		metrics.AuthEvent("login", "error")

		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("user_id", identity.ID))
	metrics.AuthEvent("login", "success")

	return LoginResult{Identity: identity, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// token is claimed before the new pair is minted, so of several concurrent
// calls with one token at most one succeeds.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(
		slog.String("op", op),
	)

	claims, err := a.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		log.Info("refresh token rejected", sl.Err(err))
		metrics.AuthEvent("refresh", "rejected")

		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidRefreshToken, err)
	}

	log = log.With(slog.String("user_id", claims.Subject))

	account, err := a.users.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("refresh for unknown user", sl.Err(err))
			metrics.AuthEvent("refresh", "rejected")

			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		log.Error("failed to load user", sl.Err(err))
		metrics.AuthEvent("refresh", "error")

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !account.IsActive {
		log.Info("refresh for disabled account")
		metrics.AuthEvent("refresh", "rejected")

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	claimed, err := a.claim(ctx, claims)
	if err != nil {
		log.Error("failed to claim refresh token", sl.Err(err))
		metrics.AuthEvent("refresh", "error")

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if !claimed {
		log.Warn("revoked refresh token presented", slog.String("token_id", claims.ID))
		metrics.AuthEvent("refresh", "rejected")

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	tokens, err := a.mintPair(account.Identity())
	if err != nil {
		log.Error("failed to generate tokens", sl.Err(err))
		metrics.AuthEvent("refresh", "error")

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens refreshed")
	metrics.AuthEvent("refresh", "success")

	return tokens, nil
}

// Logout revokes the presented refresh token. Tokens that no longer verify
// need no revocation and are ignored.
func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	const op = "auth.Logout"

	if refreshToken == "" {
		return nil
	}

	claims, err := a.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	if _, err := a.claim(ctx, claims); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("user logged out", slog.String("op", op), slog.String("user_id", claims.Subject))
	metrics.AuthEvent("logout", "success")

	return nil
}

func (a *Auth) mintPair(identity models.Identity) (models.TokenPair, error) {
	access, err := a.codec.MintAccessToken(identity)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := a.codec.MintRefreshToken(identity)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (a *Auth) claim(ctx context.Context, claims *jwt.RefreshClaims) (bool, error) {
	if a.revocations == nil {
		return true, nil
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(a.now())
	}

	return a.revocations.Claim(ctx, claims.ID, ttl)
}

func isRejection(err error) bool {
	return errors.Is(err, storage.ErrInvalidCredentials) ||
		errors.Is(err, storage.ErrUserExists) ||
		errors.Is(err, storage.ErrRejected)
}

// UserMessage renders err as text suitable for showing to the user. The user
// store's own wording is preferred when it supplied one.
func UserMessage(err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return strings.Join(validation.Violations, ". ")
	}

	var rejection *storage.RejectionError
	if errors.As(err, &rejection) && rejection.Message != "" {
		return rejection.Message
	}

	switch {
	case errors.Is(err, ErrAccountDisabled):
		return "This account has been disabled"
	case errors.Is(err, ErrLoginFailed):
		return "Invalid email or password"
	case errors.Is(err, storage.ErrUserExists):
		return "An account with this email already exists"
	case errors.Is(err, ErrRegistrationFailed):
		return "Registration failed"
	case errors.Is(err, ErrInvalidRefreshToken):
		return "Invalid or expired refresh token"
	}

	return "Something went wrong, please try again"
}
