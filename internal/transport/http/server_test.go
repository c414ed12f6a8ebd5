package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	httpapp "job_portal/internal/app/http"
	"job_portal/internal/domain/models"
	"job_portal/internal/lib/cookies"
	"job_portal/internal/lib/jwt"
	"job_portal/internal/repository"
	"job_portal/internal/services/auth"
	httprouters "job_portal/internal/transport/http"
	"job_portal/internal/transport/http/dto/response"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "admin@jobs.example"
	adminPassword = "Admin123!x"
	userPassword  = "Valid123!"
)

var testCtx = context.Background()

type ServerSuite struct {
	suite.Suite
	server *httptest.Server
	codec  *jwt.Codec
	users  *repository.MemoryUserRepo
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupSuite() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	codec, err := jwt.New("access-secret", "refresh-secret", 15*time.Minute, 30*24*time.Hour)
	s.Require().NoError(err)
	s.codec = codec

	s.users = repository.NewMemoryUserRepository(bcrypt.MinCost)
	_, err = s.users.Seed(adminEmail, adminPassword, models.RoleAdmin, true)
	s.Require().NoError(err)

	authService := auth.New(log, s.users, codec, repository.NewMemoryTokenRepo(time.Minute))
	binder := cookies.New(false, codec.AccessTTL(), codec.RefreshTTL())

	srv := httpapp.New(log, httpapp.Options{SessionSecret: "test-session-secret"}, codec,
		httprouters.NewRouter(log, authService, binder))
	srv.BuildRouters()

	s.server = httptest.NewServer(srv.Handler())
}

func (s *ServerSuite) TearDownSuite() {
	s.server.Close()
}

func (s *ServerSuite) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *ServerSuite) do(client *http.Client, method, path string, form url.Values, extra ...*http.Cookie) *http.Response {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(testCtx, method, s.server.URL+path, body)
	s.Require().NoError(err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range extra {
		req.AddCookie(ck)
	}

	resp, err := client.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { resp.Body.Close() })

	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(b)
}

func responseCookies(resp *http.Response) map[string]*http.Cookie {
	res := make(map[string]*http.Cookie)
	for _, ck := range resp.Cookies() {
		res[ck.Name] = ck
	}

	return res
}

func (s *ServerSuite) login(client *http.Client, email, password string) *http.Response {
	return s.do(client, http.MethodPost, "/auth/login", url.Values{
		"email":    {email},
		"password": {password},
	})
}

func (s *ServerSuite) register(client *http.Client) (string, *http.Response) {
	email := strings.ToLower(gofakeit.Email())

	resp := s.do(client, http.MethodPost, "/auth/register", url.Values{
		"email":           {email},
		"password":        {userPassword},
		"confirmPassword": {userPassword},
	})

	return email, resp
}

func (s *ServerSuite) TestRegister_AutoLogin() {
	t := s.T()
	client := s.newClient()

	email, resp := s.register(client)

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	got := responseCookies(resp)
	require.Contains(t, got, cookies.AccessTokenCookie)
	require.Contains(t, got, cookies.RefreshTokenCookie)
	assert.Equal(t, 15*60, got[cookies.AccessTokenCookie].MaxAge)
	assert.Equal(t, 30*24*60*60, got[cookies.RefreshTokenCookie].MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, got[cookies.AccessTokenCookie].SameSite)
	assert.Equal(t, http.SameSiteStrictMode, got[cookies.RefreshTokenCookie].SameSite)

	claims, err := s.codec.VerifyAccessToken(got[cookies.AccessTokenCookie].Value)
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleUser), claims.Role)

	account := s.do(client, http.MethodGet, "/account", nil)
	require.Equal(t, http.StatusOK, account.StatusCode)
	assert.Contains(t, readBody(t, account), claims.Subject)

	admin := s.do(client, http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusForbidden, admin.StatusCode)
	assert.Contains(t, admin.Header.Get("Content-Type"), "text/html")

	again := s.login(s.newClient(), email, userPassword)
	assert.Equal(t, http.StatusFound, again.StatusCode)
	assert.Equal(t, "/", again.Header.Get("Location"))
}

func (s *ServerSuite) TestRegister_ValidationErrors() {
	t := s.T()

	resp := s.do(s.newClient(), http.MethodPost, "/auth/register", url.Values{
		"email":           {"new@ex.com"},
		"password":        {"12345678"},
		"confirmPassword": {"12345678"},
	})

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.NotContains(t, responseCookies(resp), cookies.AccessTokenCookie)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/register", loc.Path)

	msg := loc.Query().Get("error")
	for _, rule := range []string{auth.MsgPasswordLength, auth.MsgPasswordUpper, auth.MsgPasswordLower, auth.MsgPasswordSpecial} {
		assert.Contains(t, msg, rule)
	}
}

func (s *ServerSuite) TestRegister_Duplicate() {
	t := s.T()

	resp := s.do(s.newClient(), http.MethodPost, "/auth/register", url.Values{
		"email":           {adminEmail},
		"password":        {userPassword},
		"confirmPassword": {userPassword},
	})

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/auth/register?error="))
	assert.NotContains(t, responseCookies(resp), cookies.AccessTokenCookie)
}

func (s *ServerSuite) TestLogin_WrongPassword() {
	t := s.T()
	client := s.newClient()

	resp := s.login(client, adminEmail, "Wrong123!x")

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login?error=Invalid+email+or+password", resp.Header.Get("Location"))

	got := responseCookies(resp)
	assert.NotContains(t, got, cookies.AccessTokenCookie)
	assert.NotContains(t, got, cookies.RefreshTokenCookie)

	page := s.do(client, http.MethodGet, resp.Header.Get("Location"), nil)
	require.Equal(t, http.StatusOK, page.StatusCode)

	body := readBody(t, page)
	assert.Contains(t, body, "Invalid email or password")
	assert.Contains(t, body, `value="`+adminEmail+`"`)
}

func (s *ServerSuite) TestLogin_ReturnURL() {
	t := s.T()

	tests := []struct {
		name      string
		returnURL string
		want      string
	}{
		{name: "local path", returnURL: "/account?tab=2", want: "/account?tab=2"},
		{name: "empty", returnURL: "", want: "/"},
		{name: "protocol relative", returnURL: "//evil.example/x", want: "/"},
		{name: "backslash", returnURL: `/\evil.example`, want: "/"},
		{name: "absolute", returnURL: "https://evil.example/", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(s.newClient(), http.MethodPost, "/auth/login", url.Values{
				"email":     {adminEmail},
				"password":  {adminPassword},
				"returnUrl": {tt.returnURL},
			})

			require.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, tt.want, resp.Header.Get("Location"))
		})
	}
}

func (s *ServerSuite) TestProtectedPage_RedirectsAnonymous() {
	t := s.T()

	resp := s.do(s.newClient(), http.MethodGet, "/account", nil)

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login?returnUrl=%2Faccount", resp.Header.Get("Location"))

	page := s.do(s.newClient(), http.MethodGet, resp.Header.Get("Location"), nil)
	require.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, readBody(t, page), `name="returnUrl" value="/account"`)
}

func (s *ServerSuite) TestAdmin() {
	t := s.T()
	client := s.newClient()

	require.Equal(t, http.StatusFound, s.login(client, adminEmail, adminPassword).StatusCode)

	resp := s.do(client, http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Admin dashboard")

	me := s.do(client, http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, me.StatusCode)

	var body struct {
		Status string          `json:"status"`
		Data   models.Identity `json:"data"`
	}
	require.NoError(t, json.NewDecoder(me.Body).Decode(&body))
	assert.Equal(t, models.RoleAdmin, body.Data.Role)
}

func (s *ServerSuite) TestForgedAccessCookieIsAnonymous() {
	t := s.T()

	forger, err := jwt.New("wrong-secret", "refresh-secret", time.Minute, time.Hour)
	require.NoError(t, err)

	forged, err := forger.MintAccessToken(models.Identity{ID: "someone", Role: models.RoleAdmin})
	require.NoError(t, err)

	home := s.do(s.newClient(), http.MethodGet, "/", nil,
		&http.Cookie{Name: cookies.AccessTokenCookie, Value: forged})
	require.Equal(t, http.StatusOK, home.StatusCode)
	body := readBody(t, home)
	assert.Contains(t, body, `href="/auth/login"`)
	assert.NotContains(t, body, "Log out")

	admin := s.do(s.newClient(), http.MethodGet, "/admin", nil,
		&http.Cookie{Name: cookies.AccessTokenCookie, Value: forged})
	assert.Equal(t, http.StatusFound, admin.StatusCode)
}

func (s *ServerSuite) TestRefresh() {
	t := s.T()
	client := s.newClient()

	_, resp := s.register(client)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	original := responseCookies(resp)[cookies.RefreshTokenCookie]
	require.NotNil(t, original)

	first := s.do(client, http.MethodPost, "/auth/refresh", nil)
	require.Equal(t, http.StatusOK, first.StatusCode)

	var tokens response.AccessTokenResponse
	require.NoError(t, json.NewDecoder(first.Body).Decode(&tokens))
	assert.NotEmpty(t, tokens.AccessToken)

	rotated := responseCookies(first)
	require.Contains(t, rotated, cookies.RefreshTokenCookie)
	assert.NotEqual(t, original.Value, rotated[cookies.RefreshTokenCookie].Value)
	assert.Equal(t, tokens.AccessToken, rotated[cookies.AccessTokenCookie].Value)

	second := s.do(client, http.MethodPost, "/auth/refresh", nil)
	require.Equal(t, http.StatusOK, second.StatusCode)
	assert.NotEqual(t, rotated[cookies.RefreshTokenCookie].Value, responseCookies(second)[cookies.RefreshTokenCookie].Value)

	replay := s.do(s.newClient(), http.MethodPost, "/auth/refresh", nil, original)
	require.Equal(t, http.StatusUnauthorized, replay.StatusCode)

	var errBody response.ErrorResponse
	require.NoError(t, json.NewDecoder(replay.Body).Decode(&errBody))
	assert.Equal(t, response.ErrInvalidRefreshToken.Error, errBody.Error)

	cleared := responseCookies(replay)
	require.Contains(t, cleared, cookies.AccessTokenCookie)
	require.Contains(t, cleared, cookies.RefreshTokenCookie)
	assert.Empty(t, cleared[cookies.RefreshTokenCookie].Value)
	assert.Equal(t, -1, cleared[cookies.RefreshTokenCookie].MaxAge)
}

func (s *ServerSuite) TestRefresh_WithoutToken() {
	resp := s.do(s.newClient(), http.MethodPost, "/auth/refresh", nil)

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *ServerSuite) TestLogout() {
	t := s.T()
	client := s.newClient()

	_, resp := s.register(client)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	refresh := responseCookies(resp)[cookies.RefreshTokenCookie]
	require.NotNil(t, refresh)

	out := s.do(client, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusFound, out.StatusCode)
	assert.Equal(t, "/", out.Header.Get("Location"))

	cleared := responseCookies(out)
	require.Contains(t, cleared, cookies.AccessTokenCookie)
	assert.Equal(t, -1, cleared[cookies.AccessTokenCookie].MaxAge)

	account := s.do(client, http.MethodGet, "/account", nil)
	assert.Equal(t, http.StatusFound, account.StatusCode)

	replay := s.do(s.newClient(), http.MethodPost, "/auth/refresh", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
}

func (s *ServerSuite) TestMetricsEndpoint() {
	t := s.T()

	s.do(s.newClient(), http.MethodGet, "/", nil)

	resp := s.do(s.newClient(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "job_portal_http_requests_total")
}

func (s *ServerSuite) TestNotFound() {
	t := s.T()

	page := s.do(s.newClient(), http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Contains(t, page.Header.Get("Content-Type"), "text/html")

	api := s.do(s.newClient(), http.MethodPost, "/nope", url.Values{})
	require.Equal(t, http.StatusNotFound, api.StatusCode)
	assert.Contains(t, api.Header.Get("Content-Type"), "application/json")
}

func TestSafeReturnURL(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/":                    "/",
		"/jobs/42?apply=1":     "/jobs/42?apply=1",
		"jobs":                 "/",
		"//evil.example":       "/",
		`/\evil.example`:       "/",
		"https://evil.example": "/",
		"javascript:alert(1)":  "/",
	}

	for in, want := range tests {
		assert.Equal(t, want, httprouters.SafeReturnURL(in), in)
	}
}
