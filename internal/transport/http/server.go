package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"job_portal/internal/domain/models"
	"job_portal/internal/lib/cookies"
	"job_portal/internal/lib/logger/sl"
	"job_portal/internal/middleware"
	"job_portal/internal/services/auth"
	"job_portal/internal/transport/http/dto/request"
	"job_portal/internal/transport/http/dto/response"
	"job_portal/internal/transport/http/views"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	flashSession = "flash"
	flashEmail   = "email"

	homePath     = "/"
	registerPath = "/auth/register"
)

type AuthService interface {
	Register(ctx context.Context, email, password, confirmPassword string) (models.Identity, error)
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type CookieBinder interface {
	SetAuthCookies(c echo.Context, pair models.TokenPair)
	ClearAuthCookies(c echo.Context)
}

type Routers struct {
	log         *slog.Logger
	AuthService AuthService
	Cookies     CookieBinder
}

func NewRouter(log *slog.Logger, authService AuthService, binder CookieBinder) *Routers {
	return &Routers{
		log:         log,
		AuthService: authService,
		Cookies:     binder,
	}
}

func (r *Routers) Home(c echo.Context) error {
	return c.Render(http.StatusOK, "home", &views.Page{Title: "Home"})
}

func (r *Routers) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login", &views.Page{
		Title:     "Log in",
		Error:     c.QueryParam("error"),
		Email:     r.popFlashEmail(c),
		ReturnURL: SafeReturnURL(c.QueryParam("returnUrl")),
	})
}

func (r *Routers) Login(c echo.Context) error {
	const op = "http.routers.Login"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return r.backToForm(c, middleware.LoginPath, response.ErrInvalidRequestFormat.Details, "", c.QueryParam("returnUrl"))
	}
	if req.ReturnURL == "" {
		req.ReturnURL = c.QueryParam("returnUrl")
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid login request", sl.Err(err))
		return r.backToForm(c, middleware.LoginPath, response.ErrInvalidRequestFormat.Details, req.Email, req.ReturnURL)
	}

	res, err := r.AuthService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if !isExpected(err) {
			log.Error("login failed", sl.Err(err))
		}

		return r.backToForm(c, middleware.LoginPath, auth.UserMessage(err), req.Email, req.ReturnURL)
	}

	r.Cookies.SetAuthCookies(c, res.Tokens)

	return c.Redirect(http.StatusFound, SafeReturnURL(req.ReturnURL))
}

func (r *Routers) RegisterPage(c echo.Context) error {
	return c.Render(http.StatusOK, "register", &views.Page{
		Title: "Register",
		Error: c.QueryParam("error"),
		Email: r.popFlashEmail(c),
	})
}

// Register creates the account and logs it in straight away.
func (r *Routers) Register(c echo.Context) error {
	const op = "http.routers.Register"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.RegisterRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return r.backToForm(c, registerPath, response.ErrInvalidRequestFormat.Details, "", "")
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid register request", sl.Err(err))
		return r.backToForm(c, registerPath, response.ErrInvalidRequestFormat.Details, req.Email, "")
	}

	ctx := c.Request().Context()

	identity, err := r.AuthService.Register(ctx, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		if !isExpected(err) {
			log.Error("registration failed", sl.Err(err))
		}

		return r.backToForm(c, registerPath, auth.UserMessage(err), req.Email, "")
	}

	res, err := r.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		log.Error("auto-login after registration failed", slog.String("user_id", identity.ID), sl.Err(err))

		return r.backToForm(c, middleware.LoginPath, auth.UserMessage(err), req.Email, "")
	}

	r.Cookies.SetAuthCookies(c, res.Tokens)

	log.Info("user registered successfully", slog.String("user_id", identity.ID))

	return c.Redirect(http.StatusFound, homePath)
}

func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	if err := r.AuthService.Logout(c.Request().Context(), cookies.RefreshToken(c)); err != nil {
		r.log.Warn("failed to revoke refresh token", slog.String("op", op), sl.Err(err))
	}

	r.Cookies.ClearAuthCookies(c)

	return c.Redirect(http.StatusFound, homePath)
}

// Refresh rotates the token pair held in the refresh cookie. A JSON body
// with refreshToken is accepted for clients that do not send cookies.
func (r *Routers) Refresh(c echo.Context) error {
	const op = "http.routers.Refresh"

	log := r.log.With(
		slog.String("op", op),
	)

	token := cookies.RefreshToken(c)
	if token == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.Bind(&req); err == nil {
			token = req.RefreshToken
		}
	}

	pair, err := r.AuthService.Refresh(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			r.Cookies.ClearAuthCookies(c)
			return c.JSON(http.StatusUnauthorized, response.ErrInvalidRefreshToken)
		}

		log.Error("error refresh tokens", sl.Err(err))
		return err
	}

	r.Cookies.SetAuthCookies(c, pair)

	return c.JSON(http.StatusOK, response.AccessTokenResponse{AccessToken: pair.AccessToken})
}

func (r *Routers) Account(c echo.Context) error {
	return c.Render(http.StatusOK, "account", &views.Page{Title: "My account"})
}

func (r *Routers) AdminDashboard(c echo.Context) error {
	return c.Render(http.StatusOK, "admin", &views.Page{Title: "Admin"})
}

// Me reports the identity bound to the request.
func (r *Routers) Me(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(identity))
}

func (r *Routers) backToForm(c echo.Context, formPath, message, email, returnURL string) error {
	r.pushFlashEmail(c, email)

	q := url.Values{}
	q.Set("error", message)
	if formPath == middleware.LoginPath && returnURL != "" {
		q.Set("returnUrl", SafeReturnURL(returnURL))
	}

	return c.Redirect(http.StatusFound, formPath+"?"+q.Encode())
}

func (r *Routers) pushFlashEmail(c echo.Context, email string) {
	if email == "" {
		return
	}

	sess, err := session.Get(flashSession, c)
	if err != nil {
		return
	}
	sess.AddFlash(email, flashEmail)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		r.log.Warn("failed to save flash session", sl.Err(err))
	}
}

func (r *Routers) popFlashEmail(c echo.Context) string {
	sess, err := session.Get(flashSession, c)
	if err != nil {
		return ""
	}

	flashes := sess.Flashes(flashEmail)
	if len(flashes) == 0 {
		return ""
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		r.log.Warn("failed to save flash session", sl.Err(err))
	}

	email, _ := flashes[0].(string)

	return email
}

func isExpected(err error) bool {
	return errors.Is(err, auth.ErrValidation) ||
		errors.Is(err, auth.ErrLoginFailed) ||
		errors.Is(err, auth.ErrRegistrationFailed) ||
		errors.Is(err, auth.ErrAccountDisabled)
}

// SafeReturnURL accepts only same-origin paths and falls back to "/".
func SafeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") ||
		strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return homePath
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return homePath
	}

	return raw
}
