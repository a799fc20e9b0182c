package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devhub-tools/devhub/internal/dashboard"
	"github.com/devhub-tools/devhub/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "advanced",
	Short:   "Run the sync engine and the real-time dashboard",
	Long: `Run devhub in the foreground.

The sync engine watches the local database, including writes made by other
devhub processes, and pushes to the backup endpoint after changes settle.
A WebSocket dashboard broadcasts every change to connected clients.

WebSocket messages:
- links, categories, todos: full snapshots of a collection
- sync_status: backup status and sync configuration
- notice: one-off messages such as restore results

Endpoints:
  ws://localhost:8080/ws
  GET  /health, /api/state
  POST /api/sync, /api/restore`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") {
			port = cfg.DashboardPort
		}

		a, err := openApp(appOptions{withHub: true, watch: cfg.StoreWatch})
		if err != nil {
			return err
		}
		defer a.Close()

		server := dashboard.NewServer(&dashboard.Config{
			Port:    port,
			Actions: a.hub,
			Logger:  logs.Logger("dashboard"),
		})
		remove := a.hub.AddListener(dashboard.NewHandler(server, logs.Logger("dashboard")))
		defer remove()

		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}

		state := a.hub.Snapshot()
		fmt.Printf("%s devhub serving %d links from %s\n", ui.Success("✓"), len(state.Links), cfg.DBPath)
		fmt.Printf("Dashboard: http://localhost:%d\n", port)
		fmt.Printf("WebSocket: ws://localhost:%d/ws\n", port)
		fmt.Printf("Backup:    %s\n", ui.StatusBadge(state.Status))
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		fmt.Println("\nShutting down...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Dashboard port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
