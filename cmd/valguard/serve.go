package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gazette-app/valguard/internal/config"
	"github.com/gazette-app/valguard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP validation host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := initLogger(cfg)

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		srv := server.New(a.router(), server.Config{
			Port:            cfg.AppPort,
			ReadTimeout:     cfg.ReadTimeout,
			WriteTimeout:    cfg.WriteTimeout,
			ShutdownTimeout: cfg.ShutdownTimeout,
		}, logger)

		if err := a.monitor.Start(); err != nil {
			return fmt.Errorf("start memory monitor: %w", err)
		}
		srv.OnShutdown("memory-monitor", a.monitor.Shutdown)

		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("start cleanup scheduler: %w", err)
		}
		srv.OnShutdown("cleanup-scheduler", a.scheduler.Shutdown)

		logger.Info("starting server",
			"port", cfg.AppPort,
			"env", cfg.AppEnv,
			"validator", a.validator.Name(),
			"metrics", cfg.MetricsBackend,
			"version", version,
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}
