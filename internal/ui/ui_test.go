package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/devhub-tools/devhub/internal/autosync"
	"github.com/devhub-tools/devhub/internal/types"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-49 * time.Hour), "2d ago"},
		{now.Add(-30 * 24 * time.Hour), "2025-05-02"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeTime(tt.t, now))
	}
}

func TestStatusBadge(t *testing.T) {
	for _, s := range []autosync.Status{autosync.StatusSynced, autosync.StatusPending, autosync.StatusOffline} {
		assert.Equal(t, "● "+string(s), ansi.Strip(StatusBadge(s)))
	}
}

func TestCategoryLabel_FallbackIcon(t *testing.T) {
	label := ansi.Strip(CategoryLabel(types.Category{Name: "Mystery", Icon: "Unknown", Color: "plaid"}))
	assert.Equal(t, types.IconFolder.Glyph()+" Mystery", label)
}

func TestLinkTable(t *testing.T) {
	cats := types.DefaultCategories()
	links := []types.LinkItem{
		{ID: "0123456789", Name: "Go", URL: "https://go.dev", CategoryID: "backend", CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.Local).UnixMilli()},
		{ID: "b", Name: "Dangling", URL: "https://x.dev", CategoryID: "gone"},
	}

	out := ansi.Strip(LinkTable(links, cats))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "01234567 ")
	assert.Contains(t, lines[1], "Backend")
	assert.Contains(t, lines[1], "2025-01-02")
	assert.Contains(t, lines[2], "All Links", "dangling category resolves to all")

	assert.Equal(t, strings.Index(lines[0], "NAME"), strings.Index(lines[1], "Go"))
}

func TestLinkTable_Empty(t *testing.T) {
	assert.Equal(t, "No links found.\n", ansi.Strip(LinkTable(nil, nil)))
}

func TestTodoList(t *testing.T) {
	out := ansi.Strip(TodoList([]types.TodoItem{
		{ID: "t1", Text: "open"},
		{ID: "t2", Text: "closed", Completed: true},
	}))
	assert.Contains(t, out, "[ ] t1 open")
	assert.Contains(t, out, "[x] t2 closed")
}

func TestSyncSummary(t *testing.T) {
	now := time.Now()
	ts := now.Add(-2 * time.Minute).UnixMilli()
	out := ansi.Strip(SyncSummary(autosync.StatusSynced, types.SyncConfig{SheetURL: "https://x", IsAutoSync: true, LastSyncedAt: &ts}, now))

	assert.Contains(t, out, "● synced")
	assert.Contains(t, out, "https://x")
	assert.Contains(t, out, "auto-sync:   on")
	assert.Contains(t, out, "2m ago")

	out = ansi.Strip(SyncSummary(autosync.StatusOffline, types.DefaultSyncConfig(), now))
	assert.Contains(t, out, "(not configured)")
	assert.Contains(t, out, "never")
}
