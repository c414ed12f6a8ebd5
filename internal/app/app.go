package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	httpapp "job_portal/internal/app/http"
	"job_portal/internal/config"
	"job_portal/internal/domain/models"
	"job_portal/internal/lib/cookies"
	"job_portal/internal/lib/jwt"
	"job_portal/internal/lib/logger/sl"
	"job_portal/internal/repository"
	"job_portal/internal/services/auth"
	"job_portal/internal/storage/postgresql"
	redisapp "job_portal/internal/storage/redis"
	httprouters "job_portal/internal/transport/http"
)

const revocationCleanupInterval = 10 * time.Minute

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.Server
	closers    []func()
}

// New wires the application from cfg. Misconfiguration panics so the
// process refuses to start.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) *App {
	a := &App{log: log}

	codec, err := jwt.New(
		cfg.Auth.AccessTokenSecret,
		cfg.Auth.RefreshTokenSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	if err != nil {
		panic(err)
	}

	users := a.userStore(ctx, cfg)
	revocations := a.revocationStore(ctx, cfg)

	authService := auth.New(log, users, codec, revocations)
	binder := cookies.New(cfg.IsProduction(), cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	routers := httprouters.NewRouter(log, authService, binder)

	a.HTTPServer = httpapp.New(log, httpapp.Options{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		SessionSecret:   cfg.Auth.SessionSecret,
		SecureCookies:   cfg.IsProduction(),
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, codec, routers)
	a.HTTPServer.BuildRouters()

	return a
}

func (a *App) userStore(ctx context.Context, cfg *config.Config) auth.UserStore {
	const op = "app.userStore"

	log := a.log.With(slog.String("op", op), slog.String("driver", cfg.UserStore.Driver))

	switch cfg.UserStore.Driver {
	case config.DriverHTTP:
		log.Info("using external user store", slog.String("url", cfg.UserStore.BaseURL))

		return repository.NewHTTPUserRepository(cfg.UserStore.BaseURL, cfg.UserStore.Timeout)

	case config.DriverPostgres:
		storage, err := postgresql.New(ctx, cfg.UserStore.DSN)
		if err != nil {
			panic(err)
		}
		a.closers = append(a.closers, storage.Stop)

		log.Info("using postgres user store")

		return repository.NewUserRepository(storage.Pool(), cfg.Auth.BcryptCost)
	}

	repo := repository.NewMemoryUserRepository(cfg.Auth.BcryptCost)
	if cfg.Admin.Email != "" {
		if _, err := repo.Seed(strings.ToLower(strings.TrimSpace(cfg.Admin.Email)), cfg.Admin.Password, models.RoleAdmin, true); err != nil {
			panic(err)
		}
		log.Info("seeded admin account", slog.String("email", cfg.Admin.Email))
	}

	log.Warn("using in-memory user store, accounts are lost on restart")

	return repo
}

func (a *App) revocationStore(ctx context.Context, cfg *config.Config) auth.RevocationStore {
	const op = "app.revocationStore"

	log := a.log.With(slog.String("op", op))

	if cfg.Redis.RedisAddr == "" {
		log.Info("no redis configured, keeping revoked refresh tokens in memory")

		return repository.NewMemoryTokenRepo(revocationCleanupInterval)
	}

	client := redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
	if err := client.HealthCheck(ctx); err != nil {
		log.Error("redis is unreachable", sl.Err(err))
		panic(err)
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.log.Error("failed to close redis client", sl.Err(err))
		}
	})

	log.Info("using redis revocation list", slog.String("addr", cfg.Redis.RedisAddr))

	return repository.NewRedisTokenRepo(client)
}

// Stop shuts the HTTP server down and releases storage connections.
func (a *App) Stop() {
	if err := a.HTTPServer.Stop(); err != nil {
		a.log.Error("failed to stop http server", sl.Err(err))
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
