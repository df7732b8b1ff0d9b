/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/coaltrack/apiserver/config"
	"github.com/coaltrack/apiserver/internal/db"
	"github.com/coaltrack/apiserver/internal/logging"
	"github.com/coaltrack/apiserver/internal/services"
	"github.com/coaltrack/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// seedAdminCmd creates the bootstrap admin account.
var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin user if it does not exist",
	Long: `Creates the dashboard admin account from ADMIN_NAME, ADMIN_EMAIL,
ADMIN_PASSWORD and ADMIN_ROLE. Does nothing when a user with the same
email already exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)

		pool := db.NewManager(cfg.Database, logger)
		defer pool.Close()

		userService := services.NewUserService(store.NewUserRepository(pool))
		user, created, err := userService.SeedAdmin(cmd.Context(), cfg.Admin)
		if err != nil {
			return fmt.Errorf("seed admin failed: %w", err)
		}

		if !created {
			logger.Info("admin already exists", "email", user.Email)
			return nil
		}
		logger.Info("admin user created", "id", user.ID, "email", user.Email, "role", user.Role)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedAdminCmd)
}
