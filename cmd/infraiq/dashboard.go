package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"infraiq/platform/internal/backend"
	"infraiq/platform/internal/dashboard"
	"infraiq/platform/internal/session"
	"infraiq/platform/internal/tier"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Run the dashboard gateway",
		RunE: func(*cobra.Command, []string) error {
			cfg := a.cfg

			catalog, err := tier.Load(cfg.Dashboard.TierCatalogPath)
			if err != nil {
				return err
			}
			resolver, err := session.NewJWTResolver(cfg.Session.Secret, cfg.Session.CookieName)
			if err != nil {
				return fmt.Errorf("SESSION_SECRET: %w", err)
			}
			conn := backend.NewConn(cfg.Backend.URL, cfg.Backend.Timeout)
			admin, err := backend.NewAdminClient(conn, cfg.Backend.AdminKey)
			if err != nil {
				return err
			}

			srv := dashboard.NewServer(cfg.Dashboard, resolver, admin, conn, catalog, a.log)
			return serve(a.log, "dashboard", cfg.Dashboard.ListenAddr(), srv.Handler())
		},
	}
}
