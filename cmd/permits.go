package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-master/internal/permits"
)

var permitsRecord bool

var permitsCmd = &cobra.Command{
	Use:   "permits",
	Short: "Fetch building-permit alerts from the national and county feeds",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		fetcher, err := env.permitFetcher()
		if err != nil {
			return err
		}

		alerts, err := fetcher.Fetch(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch permits")
		}

		for _, a := range alerts {
			fmt.Printf("%s  [%s]  %s\n  %s\n", a.Date, a.Src, a.Title, a.URL)
		}

		if permitsRecord {
			inserted, err := permits.Record(ctx, env.Store, alerts)
			if err != nil {
				return eris.Wrap(err, "record permits")
			}
			zap.L().Info("permits recorded",
				zap.Int("fetched", len(alerts)),
				zap.Int("inserted", inserted),
			)
		}
		return nil
	},
}

func init() {
	permitsCmd.Flags().BoolVar(&permitsRecord, "record", false, "persist alerts as permit signals")
	rootCmd.AddCommand(permitsCmd)
}
