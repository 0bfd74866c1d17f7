package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"infraiq/platform/internal/backend"
	"infraiq/platform/internal/model"
)

func newSyncCmd(a *app) *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "sync <file>",
		Short: "Push a scan result JSON file to the backend with a personal API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				apiKey = a.cfg.Sync.APIKey
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var req model.SyncRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if !req.Tool.Valid() {
				return fmt.Errorf("unknown tool %q", req.Tool)
			}

			conn := backend.NewConn(a.cfg.Backend.URL, a.cfg.Backend.Timeout)
			uc, err := backend.NewUserClient(conn, apiKey)
			if errors.Is(err, backend.ErrMissingCredential) {
				return errors.New("an API key is required (--api-key or SYNC_API_KEY)")
			}
			if err != nil {
				return err
			}

			resp, err := uc.Sync(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.log.Info("scan synced", zap.String("scan_id", resp.ScanID))
			fmt.Fprintln(cmd.OutOrStdout(), resp.DashboardURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "personal API key (env SYNC_API_KEY)")
	return cmd
}
