package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devhub-tools/devhub/internal/sheet"
)

var sheetCmd = &cobra.Command{
	Use:     "sheet",
	GroupID: "advanced",
	Short:   "Local backup endpoint",
}

var sheetServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a backup endpoint backed by a local YAML workbook",
	Long: `Serve a backup endpoint that speaks the same protocol as the hosted
spreadsheet script: POST {"action":"push",...} stores links and categories,
GET ?action=pull returns them.

Point devhub at it with:
  devhub config set-url http://127.0.0.1:8787/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		file, _ := cmd.Flags().GetString("file")
		if !cmd.Flags().Changed("addr") {
			addr = cfg.SheetAddr
		}
		if !cmd.Flags().Changed("file") {
			file = cfg.SheetFile
		}

		server, err := sheet.NewServer(&sheet.Config{
			Addr:   addr,
			File:   file,
			Logger: logs.Logger("sheet"),
		})
		if err != nil {
			return err
		}
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start backup endpoint: %w", err)
		}

		fmt.Printf("Backup endpoint listening on %s\n", server.URL())
		if file != "" {
			fmt.Printf("Workbook: %s\n", file)
		}
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		if err := server.Stop(); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	sheetServeCmd.Flags().String("addr", "127.0.0.1:8787", "Listen address (default from config)")
	sheetServeCmd.Flags().String("file", "", "Workbook file (default from config)")

	sheetCmd.AddCommand(sheetServeCmd)
	rootCmd.AddCommand(sheetCmd)
}
