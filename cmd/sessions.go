/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/coaltrack/apiserver/config"
	"github.com/coaltrack/apiserver/internal/db"
	"github.com/coaltrack/apiserver/internal/logging"
	"github.com/coaltrack/apiserver/internal/services"
	"github.com/coaltrack/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage login sessions",
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete sessions whose expiry has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)

		pool := db.NewManager(cfg.Database, logger)
		defer pool.Close()

		ttl := time.Duration(cfg.Session.TTLDays) * 24 * time.Hour
		authService := services.NewAuthService(
			store.NewUserRepository(pool),
			store.NewSessionRepository(pool, ttl, logger),
		)
		removed, err := authService.PurgeExpiredSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("purge sessions failed: %w", err)
		}
		logger.Info("expired sessions purged", "removed", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsPurgeCmd)
}
