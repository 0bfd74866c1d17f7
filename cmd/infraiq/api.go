package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"infraiq/platform/internal/httpapi"
	"infraiq/platform/internal/metrics"
	"infraiq/platform/internal/store"
	"infraiq/platform/internal/store/memory"
	"infraiq/platform/internal/store/postgres"
	"infraiq/platform/internal/tier"
)

func newAPICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Run the backend API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			log := a.log

			catalog, err := tier.Load(cfg.Dashboard.TierCatalogPath)
			if err != nil {
				return err
			}

			var st store.Store
			if cfg.Database.URL != "" {
				pg, err := postgres.NewStore(cfg.Database.URL)
				if err != nil {
					return err
				}
				defer pg.Close()

				if err := pg.Migrate(cmd.Context()); err != nil {
					return err
				}
				if err := metrics.RegisterPool(prometheus.DefaultRegisterer, pg.Pool()); err != nil {
					log.Warn("pool metrics disabled", zap.Error(err))
				}
				st = pg
				log.Info("using postgres store")
			} else {
				st = memory.NewStore()
				log.Info("using memory store")
			}

			if cfg.API.AdminKey == "" {
				log.Warn("API_ADMIN_KEY is not set; identity lookups are disabled")
			}

			srv := httpapi.NewServer(cfg.API, st, catalog, log)
			return serve(log, "api", cfg.API.ListenAddr(), srv.Handler())
		},
	}
}
