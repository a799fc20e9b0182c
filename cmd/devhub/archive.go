package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devhub-tools/devhub/internal/archive"
	"github.com/devhub-tools/devhub/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	GroupID: "data",
	Short:   "Write links, categories and todos to a JSONL file",
	Long: `Write every record in the local database to a JSONL file, one record
per line. Without a file argument the archive is written to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		if len(args) == 0 {
			if _, err := archive.Export(ctx, a.store, os.Stdout); err != nil {
				return err
			}
			return nil
		}

		result, err := archive.ExportFile(ctx, a.store, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s Exported %d links, %d categories, %d todos to %s\n",
			ui.Success("✓"), result.Links, result.Categories, result.Todos, args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "data",
	Short:   "Load records from a JSONL archive into the local database",
	Long: `Load records from a file written by 'devhub export'. Records with an
existing id replace the stored one. The "All Links" category is never
overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		backup, _ := cmd.Flags().GetBool("backup")

		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		result, err := archive.Import(ctx, a.store, archive.ImportOptions{
			From:   args[0],
			DryRun: dryRun,
			Backup: backup,
		})
		if err != nil {
			return err
		}

		for _, msg := range result.Errors {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
		if result.BackupCreated != "" {
			fmt.Printf("Backup written to %s\n", result.BackupCreated)
		}

		verb := "Imported"
		if dryRun {
			verb = "Would import"
		}
		fmt.Printf("%s %s %d links, %d categories, %d todos\n",
			ui.Success("✓"), verb, result.Links, result.Categories, result.Todos)

		if !dryRun {
			a.settle(ctx)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "Count records without writing")
	importCmd.Flags().Bool("backup", false, "Export the current database next to the input file first")

	rootCmd.AddCommand(exportCmd, importCmd)
}
