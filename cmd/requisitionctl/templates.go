package main

import (
	"fmt"
	"os"

	"github.com/bitfantasy/requisition/internal/config"
	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/bitfantasy/requisition/internal/requisition/workflow"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Print the effective department rules and checklist templates",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTemplates(); err != nil {
			fmt.Printf("Invalid workflow configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}

func runTemplates() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	policy, err := workflow.NewPolicy(
		cfg.Workflow.RequesterDepartments,
		cfg.Workflow.ProjectDepartments,
		cfg.Workflow.Checklists,
	)
	if err != nil {
		return err
	}

	fmt.Println("Requester departments:")
	for _, d := range policy.RequesterDepartments {
		fmt.Printf("  - %s\n", d)
	}
	fmt.Println("Project departments:")
	for _, d := range policy.ProjectDepartments {
		fmt.Printf("  - %s\n", d)
	}
	for _, dt := range entity.DocumentTypes {
		fmt.Printf("Checklist for %s:\n", dt)
		for i, label := range policy.Checklists.Labels(dt) {
			fmt.Printf("  %d. %s\n", i+1, label)
		}
	}
	return nil
}
