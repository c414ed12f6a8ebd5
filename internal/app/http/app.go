package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"job_portal/internal/domain/models"
	"job_portal/internal/lib/logger/sl"
	mw "job_portal/internal/middleware"
	httprouters "job_portal/internal/transport/http"
	"job_portal/internal/transport/http/dto/response"
	"job_portal/internal/transport/http/views"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Options struct {
	Host            string
	Port            string
	SessionSecret   string
	SecureCookies   bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	opts    Options
}

func New(log *slog.Logger, opts Options, codec mw.AccessTokenVerifier, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout

	e.Validator = &CustomValidator{validator: validator.New()}
	e.Renderer = views.MustNew()
	e.HTTPErrorHandler = errorHandler(log)

	store := sessions.NewCookieStore([]byte(opts.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogMethod:   true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			)

			return nil
		},
	}))
	e.Use(mw.PrometheusMetrics)
	e.Use(session.Middleware(store))
	e.Use(mw.SessionResolver(codec, log))

	return &Server{
		log:     log,
		e:       e,
		routers: routers,
		opts:    opts,
	}
}

// Handler exposes the configured echo instance, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) BuildRouters() {
	s.e.GET("/", s.routers.Home)
	s.e.GET("/metrics", echoprometheus.NewHandler())

	authGroup := s.e.Group("/auth")
	{
		authGroup.GET("/login", s.routers.LoginPage)
		authGroup.POST("/login", s.routers.Login)
		authGroup.GET("/register", s.routers.RegisterPage)
		authGroup.POST("/register", s.routers.Register)
		authGroup.POST("/logout", s.routers.Logout)
		authGroup.POST("/refresh", s.routers.Refresh)
	}

	s.e.GET("/account", s.routers.Account, mw.RequireAuthenticated)

	adminGroup := s.e.Group("/admin", mw.RequireRole(models.RoleAdmin))
	{
		adminGroup.GET("", s.routers.AdminDashboard)
	}

	api := s.e.Group("/api/v1", mw.RequireAuthenticated)
	{
		api.GET("/me", s.routers.Me)
	}
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info("starting http server", slog.String("op", op), slog.String("addr", s.addr()))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(s.addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("stopping http server", slog.String("op", op))

	if err := s.e.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefully: %w", op, err)
	}

	return nil
}

func (s *Server) addr() string {
	return s.opts.Host + ":" + s.opts.Port
}

// errorHandler renders errors nobody handled. Page navigations get the HTML
// error page, everything else a JSON body; internal details never leave the
// process.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := http.StatusText(status)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		}

		if status >= http.StatusInternalServerError {
			log.Error("unhandled error",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				sl.Err(err),
			)
		}

		var werr error
		switch {
		case c.Request().Method == http.MethodHead:
			werr = c.NoContent(status)
		case c.Request().Method == http.MethodGet && !acceptsJSON(c):
			werr = views.RenderError(c, status, message)
		default:
			werr = c.JSON(status, response.ErrorResponseWithDetails(errorCode(status), message))
		}
		if werr != nil {
			log.Error("failed to write error response", sl.Err(werr))
		}
	}
}

func acceptsJSON(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)

	return accept == echo.MIMEApplicationJSON
}

func errorCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	}

	if status >= http.StatusInternalServerError {
		return response.ErrInternal.Error
	}

	return "error"
}
