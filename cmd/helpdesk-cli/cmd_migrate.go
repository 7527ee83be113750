package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/helpdesk-api/internal/infrastructure/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database schema migrations",
	Long:  `Run the embedded SQL migrations against DATABASE_URL.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE:  runMigrateDown,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	RunE:  runMigrateVersion,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)

	migrateUpCmd.Flags().Bool("create-db", false, "Create the database if it does not exist")
	migrateDownCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
}

func openDatabase(cmd *cobra.Command, createIfMissing bool) (*gorm.DB, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return database.Connect(database.Config{
		DatabaseURL:     cfg.DatabaseURL,
		MaxIdle:         1,
		MaxOpen:         2,
		CreateIfMissing: createIfMissing,
		LogLevel:        gormlogger.Silent,
	}, cliLogger(cmd))
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	createDB, _ := cmd.Flags().GetBool("create-db")
	db, err := openDatabase(cmd, createDB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.AutoMigrate(cmd.Context(), db, cliLogger(cmd)); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return printVersion(cmd, db)
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	steps, _ := cmd.Flags().GetInt("steps")
	if steps < 1 {
		return fmt.Errorf("--steps must be at least 1, got %d", steps)
	}
	db, err := openDatabase(cmd, false)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.MigrateDown(cmd.Context(), db, steps, cliLogger(cmd)); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return printVersion(cmd, db)
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	db, err := openDatabase(cmd, false)
	if err != nil {
		return err
	}
	defer database.Close(db)
	return printVersion(cmd, db)
}

func printVersion(cmd *cobra.Command, db *gorm.DB) error {
	version, dirty, err := database.MigrationVersion(cmd.Context(), db, cliLogger(cmd))
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}
