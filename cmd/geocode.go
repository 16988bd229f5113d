package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-master/internal/scan"
)

var geocodeLimit int

var geocodeCmd = &cobra.Command{
	Use:   "geocode-backfill",
	Short: "Backfill coordinates for signals without a location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		env := &appEnv{Store: st}
		updated, err := scan.GeocodeBackfill(ctx, st, env.geocoder(), geocodeLimit, cfg.Geocode.BatchConcurrency)
		if err != nil {
			return eris.Wrap(err, "geocode backfill")
		}

		zap.L().Info("geocode done", zap.Int("located", updated))
		return nil
	},
}

func init() {
	geocodeCmd.Flags().IntVar(&geocodeLimit, "limit", 100, "maximum signals to geocode")
	rootCmd.AddCommand(geocodeCmd)
}
