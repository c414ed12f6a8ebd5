package cookies

import (
	"net/http"
	"time"

	"job_portal/internal/domain/models"

	"github.com/labstack/echo/v4"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Binder writes the auth token pair onto responses. Access and refresh
// cookies differ only in same-site mode and lifetime.
type Binder struct {
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(secure bool, accessTTL, refreshTTL time.Duration) *Binder {
	return &Binder{
		secure:     secure,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (b *Binder) SetAuthCookies(c echo.Context, pair models.TokenPair) {
	c.SetCookie(b.cookie(AccessTokenCookie, pair.AccessToken, http.SameSiteLaxMode, b.accessTTL))
	c.SetCookie(b.cookie(RefreshTokenCookie, pair.RefreshToken, http.SameSiteStrictMode, b.refreshTTL))
}

func (b *Binder) ClearAuthCookies(c echo.Context) {
	for _, ck := range []*http.Cookie{
		b.cookie(AccessTokenCookie, "", http.SameSiteLaxMode, 0),
		b.cookie(RefreshTokenCookie, "", http.SameSiteStrictMode, 0),
	} {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

func (b *Binder) cookie(name, value string, sameSite http.SameSite, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: sameSite,
	}
}

// AccessToken returns the access token cookie value, or "" when absent.
func AccessToken(c echo.Context) string {
	return value(c, AccessTokenCookie)
}

func RefreshToken(c echo.Context) string {
	return value(c, RefreshTokenCookie)
}

func value(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}

	return ck.Value
}
