package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-master/internal/scan"
)

var scanGeocode bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the national news scan and store new signals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.scanPipeline().Run(ctx)
		if err != nil {
			return eris.Wrap(err, "scan")
		}

		if scanGeocode {
			updated, err := scan.GeocodeBackfill(ctx, env.Store, env.geocoder(), 100, cfg.Geocode.BatchConcurrency)
			if err != nil {
				return eris.Wrap(err, "geocode backfill")
			}
			zap.L().Info("scan geocoding done", zap.Int("located", updated))
		}

		zap.L().Info("scan done",
			zap.Int("prospects", result.Prospects),
			zap.Int("inserted", result.Inserted),
			zap.Int("duplicates", result.Duplicates),
		)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanGeocode, "geocode", false, "geocode newly inserted signals after the scan")
	rootCmd.AddCommand(scanCmd)
}
