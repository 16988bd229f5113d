package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-master/internal/model"
	"github.com/sells-group/lead-master/internal/report"
	"github.com/sells-group/lead-master/internal/store"
)

var (
	exportFormat string
	exportOut    string
	exportSector string
	exportStatus string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a lead report as PDF or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, err := report.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Sector: exportSector,
			Status: model.LeadStatus(exportStatus),
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}

		out := exportOut
		if out == "" {
			out = format.Filename(time.Now())
		}
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close() //nolint:errcheck

		if err := report.Write(f, format, leads); err != nil {
			return err
		}

		zap.L().Info("report written",
			zap.String("file", out),
			zap.Int("leads", len(leads)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "pdf", "report format: pdf or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default lead-report-<date>.<format>)")
	exportCmd.Flags().StringVar(&exportSector, "sector", "", "filter by sector tag")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "filter by lead status")
	rootCmd.AddCommand(exportCmd)
}
