package main

import (
	"fmt"
	"os"

	"github.com/bitfantasy/requisition/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var rootCmd = &cobra.Command{
	Use:   "requisitionctl",
	Short: "Maintenance commands for the requisition service",
	Long:  `requisitionctl migrates the schema, backfills request numbers and prints the effective workflow configuration.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", config.GetEnvOrDefault("REQUISITIONCTL_VERBOSE", "") == "true", "Log SQL statements")
}

func openDatabase(cmd *cobra.Command, cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newLogger(cmd *cobra.Command) *zap.Logger {
	zapCfg := zap.NewDevelopmentConfig()
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	l, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
