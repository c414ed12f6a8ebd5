package middleware

import (
	"net/http"
	"net/url"

	"job_portal/internal/domain/models"
	"job_portal/internal/transport/http/dto/response"
	"job_portal/internal/transport/http/views"

	"github.com/labstack/echo/v4"
)

const LoginPath = "/auth/login"

// RequireAuthenticated lets identified requests through. Anonymous page
// navigations are sent to the login form with a returnUrl; anything else
// gets a 401 body.
func RequireAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := IdentityFrom(c); !ok {
			return unauthenticated(c)
		}

		return next(c)
	}
}

func RequireRole(role models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return unauthenticated(c)
			}

			if identity.Role != role {
				if isNavigation(c) {
					return views.RenderError(c, http.StatusForbidden, "You do not have permission to view this page.")
				}

				return c.JSON(http.StatusForbidden, response.ErrForbidden)
			}

			return next(c)
		}
	}
}

func unauthenticated(c echo.Context) error {
	if isNavigation(c) {
		target := LoginPath + "?returnUrl=" + url.QueryEscape(c.Request().URL.RequestURI())

		return c.Redirect(http.StatusFound, target)
	}

	return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
}

func isNavigation(c echo.Context) bool {
	return c.Request().Method == http.MethodGet
}
