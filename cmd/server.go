/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coaltrack/apiserver/config"
	"github.com/coaltrack/apiserver/internal/logging"
	"github.com/coaltrack/apiserver/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the shipment API server",
	Long: `Starts the shipment API server. Usage:

	coaltrack server
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)
		slog.SetDefault(logger)
		if !cfg.Database.Configured() {
			logger.Warn("database settings incomplete; data endpoints will fail until DB_HOST, DB_USER and DB_NAME are set")
		}

		srv := server.New(cfg, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
