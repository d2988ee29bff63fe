package main

import (
	"fmt"
	"os"

	"github.com/bitfantasy/requisition/internal/config"
	"github.com/bitfantasy/requisition/internal/requisition/repository"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the requisition tables",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMigrate(cmd); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openDatabase(cmd, cfg)
	if err != nil {
		return err
	}
	return repository.AutoMigrate(db)
}
