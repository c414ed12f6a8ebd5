package middleware

import (
	"errors"
	"log/slog"

	"job_portal/internal/domain/models"
	"job_portal/internal/lib/cookies"
	"job_portal/internal/lib/jwt"
	"job_portal/internal/lib/logger/sl"
	"job_portal/internal/metrics"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// IdentityKey is the echo context key holding the request's models.Identity.
const IdentityKey = "identity"

type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.AccessClaims, error)
}

// SessionResolver binds the identity carried by the access token cookie to
// the request. A missing or rejected token leaves the request anonymous; the
// middleware never fails a request and performs no I/O.
func SessionResolver(codec AccessTokenVerifier, log *slog.Logger) echo.MiddlewareFunc {
	const op = "middleware.SessionResolver"

	log = log.With(slog.String("op", op))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := cookies.AccessToken(c)
			if token == "" {
				return next(c)
			}

			claims, err := codec.VerifyAccessToken(token)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, gojwt.ErrTokenExpired) {
					reason = "expired"
				}
				metrics.SessionRejections.WithLabelValues(reason).Inc()

				log.Debug("access token rejected",
					slog.String("reason", reason),
					slog.String("path", c.Request().URL.Path),
					sl.Err(err),
				)

				return next(c)
			}

			identity := claims.Identity()

			c.Set(IdentityKey, identity)
			req := c.Request()
			c.SetRequest(req.WithContext(models.ContextWithIdentity(req.Context(), identity)))

			return next(c)
		}
	}
}

// IdentityFrom returns the identity bound by SessionResolver.
func IdentityFrom(c echo.Context) (models.Identity, bool) {
	identity, ok := c.Get(IdentityKey).(models.Identity)

	return identity, ok
}
