package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devhub-tools/devhub/internal/enrich"
	"github.com/devhub-tools/devhub/internal/ui"
)

var aiCmd = &cobra.Command{
	Use:     "ai",
	GroupID: "advanced",
	Short:   "Claude link enhancement",
}

var aiTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that the configured API key and model work",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEnricher()
		if err != nil {
			return fmt.Errorf("%w (set anthropic.api_key in devhub.yaml or ANTHROPIC_API_KEY)", err)
		}

		if !enrich.KnownModel(client.Model()) {
			fmt.Fprintf(os.Stderr, "Warning: model %q is not one of %s\n", client.Model(), strings.Join(enrich.Models, ", "))
		}

		res := client.TestConnection(context.Background())
		if !res.Success {
			return errors.New(res.Message)
		}
		fmt.Printf("%s %s (%s)\n", ui.Success("✓"), res.Message, res.Latency.Round(time.Millisecond))
		return nil
	},
}

func init() {
	aiCmd.AddCommand(aiTestCmd)
	rootCmd.AddCommand(aiCmd)
}
