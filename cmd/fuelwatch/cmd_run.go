package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/osservaprezzi/fuelwatch/internal/api"
	"github.com/osservaprezzi/fuelwatch/internal/config"
	httpserver "github.com/osservaprezzi/fuelwatch/internal/http"
	"github.com/osservaprezzi/fuelwatch/internal/models"
	"github.com/osservaprezzi/fuelwatch/internal/poller"
)

func runCmd() *cobra.Command {
	var refreshHour int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the continuous monitoring service",
		Long: "Loads every configuration record, starts one poller per monitored station " +
			"and serves the metrics and status endpoints until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if refreshHour < 0 || refreshHour > 23 {
				return fmt.Errorf("--refresh-hour must be between 0 and 23")
			}
			cfg.RefreshHour = refreshHour

			records, err := config.LoadRecords(cfg.ConfigDir)
			if err != nil {
				return fmt.Errorf("loading configuration records: %w", err)
			}
			if len(records) == 0 {
				return fmt.Errorf("no configuration records in %s, run 'fuelwatch discover' first", cfg.ConfigDir)
			}

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Int("refreshHour", cfg.RefreshHour).
				Int("records", len(records)).
				Msg("starting fuelwatch")

			client := api.New(cfg.APIBaseURL, time.Duration(cfg.RequestTimeout)*time.Second, logger)
			metrics := httpserver.NewMetrics()

			registry := poller.NewRegistry(client, metrics, cfg.RefreshHour, logger)
			defer registry.Close()

			storeStatus := models.ConfigStoreStatus{
				Dir:         cfg.ConfigDir,
				RecordCount: len(records),
			}
			httpServer := httpserver.NewServer(cfg.HTTPAddr, registry, storeStatus, metrics, logger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			for _, rec := range records {
				if err := registry.LoadRecord(ctx, rec); err != nil {
					return fmt.Errorf("loading record %s: %w", rec.ID, err)
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}
			registry.Close()

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&refreshHour, "refresh-hour", cfg.RefreshHour, "Hour of day (0-23) for the forced daily refresh")

	return cmd
}
