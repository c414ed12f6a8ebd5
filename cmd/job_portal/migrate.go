package main

import (
	"errors"
	"fmt"
	"os"

	"job_portal/internal/config"
	"job_portal/internal/storage/postgresql"

	"github.com/spf13/cobra"
)

func migrateCmd(configPath *string) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres user store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = os.Getenv("USER_STORE_DSN")
			}
			if dsn == "" {
				cfg, err := config.Load(config.ResolvePath(*configPath))
				if err != nil {
					return err
				}
				dsn = cfg.UserStore.DSN
			}
			if dsn == "" {
				return errors.New("no database dsn: set --dsn, USER_STORE_DSN or user_store.dsn")
			}

			if err := postgresql.Migrate(cmd.Context(), dsn); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")

			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection string")

	return cmd
}
