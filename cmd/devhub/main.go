// Package main provides the devhub CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devhub-tools/devhub/internal/config"
	"github.com/devhub-tools/devhub/internal/logging"
)

var (
	flagConfigFile string
	flagDataDir    string

	// cfg and logs are set by PersistentPreRunE for every subcommand.
	cfg  *config.Config
	logs *logging.Factory
)

var rootCmd = &cobra.Command{
	Use:   "devhub",
	Short: "devhub keeps your developer links organized and backed up",
	Long: `devhub is a local link organizer for developers.

Links, categories and todos live in a local SQLite database. When a backup
endpoint is configured, changes are pushed to it automatically a short while
after they stop arriving, and can be restored from it at any time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(config.Options{
			ConfigFile: flagConfigFile,
			DataDir:    flagDataDir,
		})
		if err != nil {
			return err
		}
		if err := loaded.EnsureDataDir(); err != nil {
			return err
		}

		logCfg := logging.DefaultConfig()
		logCfg.File = loaded.LogFile
		cfg = loaded
		logs = logging.New(logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "config file (default: <data-dir>/devhub.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: ~/.devhub)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Links, categories and todos:"},
		&cobra.Group{ID: "sync", Title: "Backup and sync:"},
		&cobra.Group{ID: "advanced", Title: "Servers and tools:"},
	)
}

func main() {
	err := rootCmd.Execute()
	if logs != nil {
		_ = logs.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
