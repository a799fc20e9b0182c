package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/devhub-tools/devhub/internal/autosync"
	"github.com/devhub-tools/devhub/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Push links and categories to the backup now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.SyncTimeout+5*time.Second)
		defer cancel()

		state := a.hub.Snapshot()
		if err := a.hub.SyncNow(ctx); err != nil {
			if errors.Is(err, autosync.ErrSyncDisabled) {
				return fmt.Errorf("no backup URL configured (run 'devhub config set-url <url>')")
			}
			return err
		}
		fmt.Printf("%s Pushed %d links and %d categories\n", ui.Success("✓"), len(state.Links), len(state.Categories))
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:     "restore",
	GroupID: "sync",
	Short:   "Fetch links and categories from the backup",
	Long: `Fetch the backup and show what it holds.

With --save, every restored link is written into the local database.
Categories from the backup are never written locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		save, _ := cmd.Flags().GetBool("save")

		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.SyncTimeout+5*time.Second)
		defer cancel()

		if save {
			n, err := a.hub.RestoreToStore(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s Restored %d links into %s\n", ui.Success("✓"), n, cfg.DBPath)
			return nil
		}

		data, err := a.hub.Restore(ctx)
		if err != nil {
			if errors.Is(err, autosync.ErrSyncDisabled) {
				return fmt.Errorf("no backup URL configured (run 'devhub config set-url <url>')")
			}
			return err
		}
		state := a.hub.Snapshot()
		fmt.Print(ui.LinkTable(data.Links, state.Categories))
		fmt.Printf("\n%d links, %d categories in backup. Use --save to keep them.\n", len(data.Links), len(data.Categories))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show backup configuration and whether the endpoint answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		syncCfg := a.settings.LoadSyncConfig()
		status := autosync.StatusOffline
		if syncCfg.Enabled() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.SyncTimeout)
			defer cancel()
			if a.backup.Pull(ctx, syncCfg.SheetURL) != nil {
				status = autosync.StatusSynced
			}
		}

		fmt.Print(ui.SyncSummary(status, syncCfg, time.Now()))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "sync",
	Short:   "Manage the backup configuration",
}

var configSetURLCmd = &cobra.Command{
	Use:   "set-url <url>",
	Short: "Set the backup endpoint (empty string disables sync)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := strings.TrimSpace(args[0])
		if err := validateEndpoint(endpoint); err != nil {
			return err
		}

		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.hub.Engine().SetSheetURL(endpoint); err != nil {
			return err
		}
		if endpoint == "" {
			fmt.Println("Backup sync disabled")
			return nil
		}
		fmt.Printf("%s Backup URL set to %s\n", ui.Success("✓"), endpoint)
		return nil
	},
}

var configAutoSyncCmd = &cobra.Command{
	Use:       "auto-sync <on|off>",
	Short:     "Turn automatic pushes on or off",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes":
			enabled = true
		case "off", "false", "no":
			enabled = false
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}

		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.hub.Engine().SetAutoSync(enabled); err != nil {
			return err
		}
		fmt.Printf("Auto-sync %s\n", args[0])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the sync configuration and file locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		syncCfg := a.settings.LoadSyncConfig()
		status := autosync.StatusSynced
		if !syncCfg.Enabled() {
			status = autosync.StatusOffline
		}
		fmt.Print(ui.SyncSummary(status, syncCfg, time.Now()))

		configFile := cfg.File
		if configFile == "" {
			configFile = ui.Muted("(none)")
		}
		fmt.Printf("\n%s\n", ui.Title("Files:"))
		fmt.Printf("  config:   %s\n", configFile)
		fmt.Printf("  database: %s\n", cfg.DBPath)
		fmt.Printf("  settings: %s\n", cfg.SettingsPath)
		fmt.Printf("  debounce: %s\n", cfg.SyncDebounce)
		return nil
	},
}

var setupCmd = &cobra.Command{
	Use:     "setup",
	GroupID: "sync",
	Short:   "Configure the backup interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsInteractive() {
			return fmt.Errorf("setup needs a terminal; use 'devhub config set-url' and 'devhub config auto-sync' instead")
		}

		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		current := a.hub.Engine().Config()
		endpoint := current.SheetURL
		autoSync := current.IsAutoSync

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Backup URL").
					Description("Web endpoint that stores your links. Leave empty to disable sync.").
					Placeholder("https://script.google.com/macros/s/.../exec").
					Value(&endpoint).
					Validate(func(s string) error { return validateEndpoint(strings.TrimSpace(s)) }),
				huh.NewConfirm().
					Title("Push changes automatically?").
					Affirmative("Yes").
					Negative("No").
					Value(&autoSync),
			),
		)
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Println("Setup cancelled")
				return nil
			}
			return err
		}

		next := current
		next.SheetURL = strings.TrimSpace(endpoint)
		next.IsAutoSync = autoSync
		if err := a.hub.Engine().SetConfig(next); err != nil {
			return err
		}
		fmt.Printf("%s Saved sync settings to %s\n", ui.Success("✓"), a.settings.Path())
		return nil
	},
}

// validateEndpoint accepts "" or an absolute http(s) URL.
func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q: expected http(s)://host/...", endpoint)
	}
	return nil
}

func init() {
	restoreCmd.Flags().Bool("save", false, "Write restored links into the local database")

	configCmd.AddCommand(configSetURLCmd, configAutoSyncCmd, configShowCmd)
	rootCmd.AddCommand(syncCmd, restoreCmd, statusCmd, configCmd, setupCmd)
}
