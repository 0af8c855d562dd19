package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/osservaprezzi/fuelwatch/internal/api"
	"github.com/osservaprezzi/fuelwatch/internal/resolver"
)

func fetchCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "fetch <station-id>",
		Short: "Run a one-time fetch for a station",
		Long:  "Fetches and resolves a single station and prints the canonical record as JSON. Useful for testing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			stationID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid station id %q", args[0])
			}

			client := api.New(cfg.APIBaseURL, time.Duration(cfg.RequestTimeout)*time.Second, logger)

			payload, err := client.StationDetails(cmd.Context(), stationID)
			if err != nil {
				return err
			}

			var out any = resolver.Resolve(payload)
			if raw {
				out = payload
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding output: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the raw upstream payload instead of the canonical record")

	return cmd
}
