package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/devhub-tools/devhub/internal/enrich"
	"github.com/devhub-tools/devhub/internal/hub"
	"github.com/devhub-tools/devhub/internal/store"
	"github.com/devhub-tools/devhub/internal/types"
	"github.com/devhub-tools/devhub/internal/ui"
)

var linkCmd = &cobra.Command{
	Use:     "link",
	GroupID: "data",
	Short:   "Manage saved links",
}

var linkAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Save a link",
	Long: `Save a link. The URL gets https:// when it has no scheme.

With --enhance, the description and category are suggested by Claude
(requires anthropic.api_key or ANTHROPIC_API_KEY).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		category, _ := cmd.Flags().GetString("category")
		enhance, _ := cmd.Flags().GetBool("enhance")

		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		draft := hub.LinkDraft{Name: args[0], URL: args[1], Description: description, CategoryID: category}

		if enhance {
			enhanced, err := a.hub.Enhance(ctx, draft)
			switch {
			case errors.Is(err, enrich.ErrNoAPIKey):
				fmt.Fprintln(os.Stderr, "Warning: no Anthropic API key configured, saving without enhancement")
			case err != nil:
				fmt.Fprintf(os.Stderr, "Warning: enhancement failed: %v\n", err)
			default:
				if description == "" {
					draft.Description = enhanced.Description
				}
				if category == "" {
					draft.CategoryID = enhanced.CategoryID
				}
			}
		}

		if draft.CategoryID != "" && !types.HasCategory(a.hub.Snapshot().Categories, draft.CategoryID) {
			return fmt.Errorf("unknown category %q (see 'devhub category list')", draft.CategoryID)
		}

		link, err := a.hub.AddLink(ctx, draft)
		if err != nil {
			return err
		}
		if link == nil {
			return fmt.Errorf("name and url are required")
		}

		fmt.Printf("%s Saved %s %s\n", ui.Success("✓"), link.Name, ui.Muted(link.URL))
		a.settle(ctx)
		return nil
	},
}

var linkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved links, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		query, _ := cmd.Flags().GetString("search")
		since, _ := cmd.Flags().GetString("since")

		var cutoff time.Time
		if since != "" {
			t, err := parseSince(since, time.Now())
			if err != nil {
				return err
			}
			cutoff = t
		}

		a, err := openApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		links, err := a.store.Links().List(ctx)
		if err != nil {
			return err
		}
		categories, err := a.store.Categories().List(ctx)
		if err != nil {
			return err
		}

		if category == "" {
			category = types.AllCategoryID
		}
		links = types.FilterLinks(links, category, query)
		if !cutoff.IsZero() {
			links = linksSince(links, cutoff)
		}

		fmt.Print(ui.LinkTable(links, categories))
		return nil
	},
}

var linkRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a link by id or id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		id, err := resolveID(a.hub.Snapshot().Links, args[0], func(l types.LinkItem) string { return l.ID })
		if err != nil {
			return err
		}
		if err := a.hub.DeleteLink(ctx, id); err != nil {
			return err
		}
		fmt.Printf("%s Deleted link %s\n", ui.Success("✓"), id)
		a.settle(ctx)
		return nil
	},
}

var enhanceCmd = &cobra.Command{
	Use:     "enhance <name> <url>",
	GroupID: "data",
	Short:   "Suggest a description and category for a link without saving it",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		draft, err := a.hub.Enhance(context.Background(), hub.LinkDraft{Name: args[0], URL: args[1]})
		if err != nil {
			if errors.Is(err, enrich.ErrNoAPIKey) {
				return fmt.Errorf("set anthropic.api_key in devhub.yaml or ANTHROPIC_API_KEY")
			}
			return err
		}

		category := types.ResolveCategory(a.hub.Snapshot().Categories, draft.CategoryID)
		fmt.Printf("%s %s\n", ui.Title("Description:"), draft.Description)
		fmt.Printf("%s %s\n", ui.Title("Category:"), ui.CategoryLabel(category))
		return nil
	},
}

var sinceParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseSince accepts a Go duration ("36h"), a date ("2025-01-31") or
// natural language ("last week", "3 days ago").
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}

	r, err := sinceParser.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse --since %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q", s)
	}
	return r.Time, nil
}

func linksSince(links []types.LinkItem, cutoff time.Time) []types.LinkItem {
	out := make([]types.LinkItem, 0, len(links))
	for _, l := range links {
		if !l.Created().Before(cutoff) {
			out = append(out, l)
		}
	}
	return out
}

// resolveID finds the unique item whose id equals or starts with prefix.
func resolveID[T any](items []T, prefix string, id func(T) string) (string, error) {
	var matches []string
	for _, item := range items {
		v := id(item)
		if v == prefix {
			return v, nil
		}
		if strings.HasPrefix(v, prefix) {
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no match for %q: %w", prefix, store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func init() {
	linkAddCmd.Flags().StringP("description", "d", "", "Description")
	linkAddCmd.Flags().StringP("category", "c", "", "Category id (default: all)")
	linkAddCmd.Flags().Bool("enhance", false, "Suggest description and category with Claude")

	linkListCmd.Flags().StringP("category", "c", "", "Only links in this category")
	linkListCmd.Flags().StringP("search", "s", "", "Case-insensitive match on name, url or description")
	linkListCmd.Flags().String("since", "", `Only links added since ("3 days ago", "last week", "36h", "2025-01-31")`)

	linkCmd.AddCommand(linkAddCmd, linkListCmd, linkRmCmd)
	rootCmd.AddCommand(linkCmd, enhanceCmd)
}
