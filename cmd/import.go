package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads from a CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrapf(err, "open %s", importCSVPath)
		}
		defer f.Close() //nolint:errcheck

		leads, err := parseLeadsCSV(f)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		for _, lead := range leads {
			if err := st.UpsertLead(ctx, lead); err != nil {
				return eris.Wrapf(err, "upsert lead %s", lead.Name)
			}
		}

		zap.L().Info("import complete",
			zap.Int("leads", len(leads)),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "file", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
