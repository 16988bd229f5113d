package main

import (
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-master/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		fetcher, err := env.permitFetcher()
		if err != nil {
			return err
		}

		srv := server.New(env.Store, fetcher, env.scanPipeline(),
			server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		if err := srv.ListenAndServe(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
