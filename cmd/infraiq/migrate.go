package main

import (
	"errors"

	"github.com/spf13/cobra"

	"infraiq/platform/internal/store/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Database.URL == "" {
				return errors.New("DATABASE_URL is required")
			}
			pg, err := postgres.NewStore(a.cfg.Database.URL)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.Migrate(cmd.Context()); err != nil {
				return err
			}
			a.log.Info("migrations applied")
			return nil
		},
	}
}
