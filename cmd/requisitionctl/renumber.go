package main

import (
	"fmt"
	"os"

	"github.com/bitfantasy/requisition/internal/config"
	"github.com/bitfantasy/requisition/internal/requisition/repository"
	"github.com/bitfantasy/requisition/internal/requisition/service"
	"github.com/spf13/cobra"
)

var renumberCmd = &cobra.Command{
	Use:   "renumber",
	Short: "Assign PR numbers to requests stored without one",
	Long:  `Walks requests whose number is not in PR-NNNNNN form, oldest first, and gives each the next value of the request counter.`,
	Run: func(cmd *cobra.Command, args []string) {
		n, err := runRenumber(cmd)
		if err != nil {
			fmt.Printf("Renumber failed after %d updates: %v\n", n, err)
			os.Exit(1)
		}
		fmt.Printf("Renumbered %d requests\n", n)
	},
}

func init() {
	rootCmd.AddCommand(renumberCmd)
}

func runRenumber(cmd *cobra.Command) (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 0, err
	}
	db, err := openDatabase(cmd, cfg)
	if err != nil {
		return 0, err
	}
	logger := newLogger(cmd)
	defer logger.Sync()

	repos := repository.NewRepositories(db)
	return service.Renumber(cmd.Context(), repos.Request, repos.Counter, logger)
}
