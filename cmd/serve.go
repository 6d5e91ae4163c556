package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillpath/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := setup(ctx, cmd, runtimeOptions{traceWriter: os.Stderr})
		if err != nil {
			return err
		}
		defer rt.Close()

		cfg := rt.cfg
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		def, err := rt.catalog.DefaultLearner(cfg.Learner.Default)
		if err != nil {
			return fmt.Errorf("default learner: %w", err)
		}
		// A failure here is not fatal; the session is retried on first use.
		if _, err := rt.manager.Ensure(ctx, def.Name); err != nil {
			rt.logger.Error("failed to initialize default learner", "learner", def.Name, "error", err)
		}

		srv := server.New(server.Options{
			Manager:        rt.manager,
			Metrics:        rt.metrics,
			Logger:         rt.logger,
			DefaultLearner: def.Name,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Tracing:        cfg.Telemetry.Tracing,
			Version:        buildVersion(),
		})
		err = srv.Run(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
		rt.endAll(context.WithoutCancel(ctx))
		return err
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
