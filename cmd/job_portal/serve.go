package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"job_portal/internal/app"
	"job_portal/internal/config"

	"github.com/spf13/cobra"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ResolvePath(*configPath))
			if err != nil {
				return err
			}

			log := setupLogger(cfg.Env)
			log.Info("starting job portal", slog.String("env", cfg.Env))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(ctx, log, cfg)

			go func() {
				application.HTTPServer.MustRun()
			}()

			<-ctx.Done()

			application.Stop()
			log.Info("gracefully stopped")

			return nil
		},
	}
}
