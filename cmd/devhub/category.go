package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devhub-tools/devhub/internal/types"
	"github.com/devhub-tools/devhub/internal/ui"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	GroupID: "data",
	Short:   "Manage categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category; its id is derived from the name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		c, err := a.hub.AddCategory(ctx, args[0])
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("category name is required")
		}
		fmt.Printf("%s Created %s (%s)\n", ui.Success("✓"), ui.CategoryLabel(*c), c.ID)
		a.settle(ctx)
		return nil
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories with link counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The hub seeds the default categories on first use.
		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		state := a.hub.Snapshot()
		counts := make(map[string]int, len(state.Categories))
		for _, l := range state.Links {
			counts[l.CategoryID]++
		}
		counts[types.AllCategoryID] = len(state.Links)

		fmt.Print(ui.CategoryTable(state.Categories, counts))
		return nil
	},
}

func init() {
	categoryCmd.AddCommand(categoryAddCmd, categoryListCmd)
	rootCmd.AddCommand(categoryCmd)
}
