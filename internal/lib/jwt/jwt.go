package jwt

import (
	"errors"
	"fmt"
	"time"

	"job_portal/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid  = errors.New("token invalid")
	ErrConfiguration = errors.New("token codec misconfigured")
)

const (
	// AccessTokenVersion is embedded in every access token. Tokens carrying
	// any other version are rejected.
	AccessTokenVersion = 1

	refreshTokenType = "refresh"
)

type AccessClaims struct {
	Role    string `json:"role"`
	Version int    `json:"version"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

type Option func(*Codec)

// WithClock replaces the wall clock used for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a codec holding two independent signing secrets, one per token kind.
func New(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, opts ...Option) (*Codec, error) {
	const op = "jwt.New"

	switch {
	case accessSecret == "" || refreshSecret == "":
		return nil, fmt.Errorf("%s: %w: signing secrets must be set", op, ErrConfiguration)
	case accessSecret == refreshSecret:
		return nil, fmt.Errorf("%s: %w: access and refresh secrets must differ", op, ErrConfiguration)
	case accessTTL <= 0 || refreshTTL <= 0:
		return nil, fmt.Errorf("%s: %w: token lifetimes must be positive", op, ErrConfiguration)
	}

	c := &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

func (c *Codec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

func (c *Codec) MintAccessToken(identity models.Identity) (string, error) {
	const op = "jwt.Codec.MintAccessToken"

	now := c.now()
	claims := AccessClaims{
		Role:    string(identity.Role),
		Version: AccessTokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

func (c *Codec) MintRefreshToken(identity models.Identity) (string, error) {
	const op = "jwt.Codec.MintRefreshToken"

	now := c.now()
	claims := RefreshClaims{
		TokenType: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d-%s", identity.ID, now.UnixNano(), uuid.NewString()),
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

func (c *Codec) VerifyAccessToken(token string) (*AccessClaims, error) {
	const op = "jwt.Codec.VerifyAccessToken"

	claims := &AccessClaims{}
	if err := c.parse(token, claims, c.accessSecret); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Subject == "" || claims.Version != AccessTokenVersion {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}
	if _, ok := models.ParseRole(claims.Role); !ok {
		return nil, fmt.Errorf("%s: %w: unknown role %q", op, ErrTokenInvalid, claims.Role)
	}

	return claims, nil
}

func (c *Codec) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	const op = "jwt.Codec.VerifyRefreshToken"

	claims := &RefreshClaims{}
	if err := c.parse(token, claims, c.refreshSecret); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Subject == "" || claims.ID == "" || claims.TokenType != refreshTokenType {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	return claims, nil
}

// Identity rebuilds the request principal from verified access claims.
func (c *AccessClaims) Identity() models.Identity {
	return models.Identity{ID: c.Subject, Role: models.Role(c.Role)}
}

func (c *Codec) parse(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %w", ErrTokenInvalid, jwt.ErrTokenExpired)
		}

		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if !parsed.Valid {
		return ErrTokenInvalid
	}

	return nil
}
