// Package ui renders devhub data for the terminal.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/devhub-tools/devhub/internal/autosync"
	"github.com/devhub-tools/devhub/internal/types"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)
)

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ColorEnabled reports whether stdout should receive ANSI styling.
func ColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Title renders a heading.
func Title(s string) string { return titleStyle.Render(s) }

// Muted renders secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }

// Success renders a success message.
func Success(s string) string { return successStyle.Render(s) }

// Error renders an error message.
func Error(s string) string { return errorStyle.Render(s) }

// StatusBadge renders a sync status with its indicator.
func StatusBadge(s autosync.Status) string {
	label := "● " + string(s)
	switch s {
	case autosync.StatusSynced:
		return successStyle.Render(label)
	case autosync.StatusPending:
		return pendingStyle.Render(label)
	case autosync.StatusOffline:
		return errorStyle.Render(label)
	default:
		return label
	}
}

// CategoryLabel renders a category as its glyph and name in its color.
func CategoryLabel(c types.Category) string {
	style := c.Color.Style()
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(style.Foreground)).
		Render(c.Icon.Glyph() + " " + c.Name)
}

// RelativeTime renders t relative to now. The zero time renders as "never".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < 0:
		return t.Format("2006-01-02 15:04")
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SyncSummary renders the sync status block shown by "devhub status".
func SyncSummary(status autosync.Status, cfg types.SyncConfig, now time.Time) string {
	endpoint := cfg.SheetURL
	if endpoint == "" {
		endpoint = Muted("(not configured)")
	}
	auto := "off"
	if cfg.IsAutoSync {
		auto = "on"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Title("Backup:"), StatusBadge(status))
	fmt.Fprintf(&b, "  endpoint:    %s\n", endpoint)
	fmt.Fprintf(&b, "  auto-sync:   %s\n", auto)
	fmt.Fprintf(&b, "  last synced: %s\n", RelativeTime(cfg.LastSynced(), now))
	return b.String()
}

// LinkTable renders links with their resolved categories.
func LinkTable(links []types.LinkItem, categories []types.Category) string {
	if len(links) == 0 {
		return Muted("No links found.") + "\n"
	}

	rows := make([][]string, 0, len(links))
	for _, l := range links {
		rows = append(rows, []string{
			shortID(l.ID),
			l.Name,
			l.URL,
			CategoryLabel(types.ResolveCategory(categories, l.CategoryID)),
			l.Created().Format("2006-01-02"),
		})
	}
	return table([]string{"ID", "NAME", "URL", "CATEGORY", "ADDED"}, rows)
}

// CategoryTable renders categories.
func CategoryTable(categories []types.Category, counts map[string]int) string {
	if len(categories) == 0 {
		return Muted("No categories.") + "\n"
	}

	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []string{c.ID, CategoryLabel(c), fmt.Sprint(counts[c.ID])})
	}
	return table([]string{"ID", "NAME", "LINKS"}, rows)
}

// TodoList renders todos, completed ones struck through.
func TodoList(todos []types.TodoItem) string {
	if len(todos) == 0 {
		return Muted("Nothing to do.") + "\n"
	}

	var b strings.Builder
	for _, t := range todos {
		box, text := "[ ]", t.Text
		if t.Completed {
			box, text = "[x]", doneStyle.Render(t.Text)
		}
		fmt.Fprintf(&b, "%s %s %s\n", box, Muted(shortID(t.ID)), text)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// table renders an aligned table. Widths account for ANSI styling.
func table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		for i, cell := range cells {
			if style != nil {
				cell = style.Render(cell)
			}
			b.WriteString(cell)
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers, &titleStyle)
	for _, row := range rows {
		writeRow(row, nil)
	}
	return b.String()
}
