package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"job_portal/internal/domain/models"
	"job_portal/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveGuarded(t *testing.T, guard echo.MiddlewareFunc, method, target string, identity *models.Identity) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if identity != nil {
		c.Set(IdentityKey, *identity)
	}

	handler := guard(func(c echo.Context) error {
		return c.String(http.StatusOK, "protected")
	})
	require.NoError(t, handler(c))

	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()

	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

var (
	user  = &models.Identity{ID: "u1", Role: models.RoleUser}
	admin = &models.Identity{ID: "a1", Role: models.RoleAdmin}
)

func TestRequireAuthenticated(t *testing.T) {
	t.Run("anonymous page view redirects to login", func(t *testing.T) {
		rec := serveGuarded(t, RequireAuthenticated, http.MethodGet, "/account?tab=jobs&x=1", nil)

		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
		require.NoError(t, err)
		assert.Equal(t, LoginPath, loc.Path)
		assert.Equal(t, "/account?tab=jobs&x=1", loc.Query().Get("returnUrl"))
		assert.Contains(t, rec.Header().Get(echo.HeaderLocation), "returnUrl=%2Faccount%3Ftab%3Djobs%26x%3D1")
	})

	t.Run("anonymous api call gets 401", func(t *testing.T) {
		rec := serveGuarded(t, RequireAuthenticated, http.MethodPost, "/api/v1/applications", nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Header().Get(echo.HeaderLocation))
		assert.Equal(t, response.ErrUnauthorized, decodeError(t, rec))
	})

	t.Run("identified request passes", func(t *testing.T) {
		rec := serveGuarded(t, RequireAuthenticated, http.MethodGet, "/account", user)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "protected", rec.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole(models.RoleAdmin)

	tests := []struct {
		name       string
		method     string
		identity   *models.Identity
		wantStatus int
		check      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:       "anonymous page view",
			method:     http.MethodGet,
			wantStatus: http.StatusFound,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, LoginPath+"?returnUrl=%2Fadmin", rec.Header().Get(echo.HeaderLocation))
			},
		},
		{
			name:       "anonymous api call",
			method:     http.MethodDelete,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "user page view",
			method:     http.MethodGet,
			identity:   user,
			wantStatus: http.StatusForbidden,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
				assert.Contains(t, rec.Body.String(), "403")
				assert.NotContains(t, rec.Body.String(), "protected")
			},
		},
		{
			name:       "user api call",
			method:     http.MethodPost,
			identity:   user,
			wantStatus: http.StatusForbidden,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, response.ErrForbidden, decodeError(t, rec))
			},
		},
		{
			name:       "admin passes",
			method:     http.MethodPost,
			identity:   admin,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveGuarded(t, guard, tt.method, "/admin", tt.identity)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}
