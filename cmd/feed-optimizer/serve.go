package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sapat/feed-optimizer/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the optimization API over HTTP",
		Long: `Serve the optimization API over HTTP.

Routes:
  POST /optimize/simplex   exact solve with shadow prices
  POST /optimize/pso       particle swarm solve
  POST /optimize/compare   both solvers side by side
  GET  /api/version        build version
  GET  /metrics            Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if address != "" {
				app.conf.Server.Address = address
			}
			cfg, err := server.NewConfig(app.conf.Server)
			if err != nil {
				return err
			}

			handler := server.NewHandler(app.logger, app.runner, app.metrics, cfg, version)
			return server.New(app.logger, handler, cfg).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address override, e.g. :8080")

	return cmd
}
