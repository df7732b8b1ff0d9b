/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/coaltrack/apiserver/config"
	"github.com/coaltrack/apiserver/internal/db"
	"github.com/coaltrack/apiserver/internal/logging"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if err := db.MigrateUp(cfg.Database); err != nil {
			return err
		}
		logging.New(cfg.Log).Info("migrations applied")
		return nil
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if err := db.MigrateDown(cfg.Database, migrateDownSteps); err != nil {
			return err
		}
		logging.New(cfg.Log).Info("migrations rolled back", "steps", migrateDownSteps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back (0 rolls back all)")
}
