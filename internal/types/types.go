// Package types defines the devhub data model: links, categories, todos and
// the local sync configuration, plus the presentation lookups for category
// icons and colors.
package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AllCategoryID is the reserved category meaning "no category filter".
// It always exists and is never deleted or overwritten by sync.
const AllCategoryID = "all"

// Kind identifies one of the entity collections held by the primary store.
type Kind string

const (
	KindLinks      Kind = "links"
	KindCategories Kind = "categories"
	KindTodos      Kind = "todos"
)

// Kinds lists every entity kind in a fixed order.
var Kinds = []Kind{KindLinks, KindCategories, KindTodos}

// LinkItem is a saved bookmark.
type LinkItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	CategoryID  string `json:"categoryId"`
	// CreatedAt is Unix milliseconds; it is the descending sort key.
	CreatedAt int64 `json:"createdAt"`
}

// Key returns the store key of the link.
func (l LinkItem) Key() string { return l.ID }

// Created returns CreatedAt as a time.Time.
func (l LinkItem) Created() time.Time { return time.UnixMilli(l.CreatedAt) }

// Category groups links. The ID is a slug derived from the name at creation.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  Icon   `json:"icon"`
	Color Color  `json:"color"`
}

// Key returns the store key of the category.
func (c Category) Key() string { return c.ID }

// TodoItem is an entry in the todo side-panel.
type TodoItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"`
}

// Key returns the store key of the todo.
func (t TodoItem) Key() string { return t.ID }

// SyncConfig is the device-local backup configuration. It is never stored
// in the primary store.
type SyncConfig struct {
	SheetURL   string `json:"sheetUrl"`
	IsAutoSync bool   `json:"isAutoSync"`
	// LastSyncedAt is advisory only (Unix milliseconds); nil until the first
	// successful push.
	LastSyncedAt *int64 `json:"lastSyncedAt"`
}

// DefaultSyncConfig returns the configuration used before anything was saved.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{IsAutoSync: true}
}

// Enabled reports whether a backup endpoint is configured.
func (c SyncConfig) Enabled() bool { return c.SheetURL != "" }

// LastSynced returns LastSyncedAt as a time, or the zero time if unset.
func (c SyncConfig) LastSynced() time.Time {
	if c.LastSyncedAt == nil {
		return time.Time{}
	}
	return time.UnixMilli(*c.LastSyncedAt)
}

// NewLink builds a link with a fresh id and creation time. The URL is
// normalized with FormatURL.
func NewLink(name, rawURL, description, categoryID string, now time.Time) LinkItem {
	if categoryID == "" {
		categoryID = AllCategoryID
	}
	return LinkItem{
		ID:          uuid.NewString(),
		Name:        name,
		URL:         FormatURL(rawURL),
		Description: description,
		CategoryID:  categoryID,
		CreatedAt:   now.UnixMilli(),
	}
}

// NewTodo builds an open todo with a fresh id.
func NewTodo(text string, now time.Time) TodoItem {
	return TodoItem{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: now.UnixMilli(),
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slug derives a category id from its display name.
func Slug(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "-")
}

// NewCategory builds a user category with the default folder icon and
// slate color.
func NewCategory(name string) Category {
	return Category{
		ID:    Slug(name),
		Name:  name,
		Icon:  IconFolder,
		Color: ColorSlate,
	}
}

// DefaultCategories returns the built-in category set seeded on first run.
func DefaultCategories() []Category {
	return []Category{
		{ID: AllCategoryID, Name: "All Links", Icon: IconLayers, Color: ColorBlue},
		{ID: "frontend", Name: "Frontend", Icon: IconLayout, Color: ColorIndigo},
		{ID: "backend", Name: "Backend", Icon: IconServer, Color: ColorEmerald},
		{ID: "data", Name: "Data & DB", Icon: IconDatabase, Color: ColorAmber},
		{ID: "docs", Name: "Documentation", Icon: IconGlobe, Color: ColorRose},
		{ID: "apis", Name: "APIs", Icon: IconCode, Color: ColorViolet},
	}
}

// HasCategory reports whether id names a category in set.
func HasCategory(set []Category, id string) bool {
	for _, c := range set {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ResolveCategory returns the category with the given id. Dangling references
// resolve to the "all" category when present, otherwise to a synthetic
// uncategorized entry. It never fails.
func ResolveCategory(set []Category, id string) Category {
	var all *Category
	for i := range set {
		if set[i].ID == id {
			return set[i]
		}
		if set[i].ID == AllCategoryID {
			all = &set[i]
		}
	}
	if all != nil {
		return *all
	}
	return Category{ID: AllCategoryID, Name: "Uncategorized", Icon: IconFolder, Color: ColorSlate}
}

// String implements fmt.Stringer for log output.
func (l LinkItem) String() string {
	return fmt.Sprintf("%s (%s)", l.Name, l.URL)
}
