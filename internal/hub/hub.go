// Package hub wires the primary store subscriptions into the sync engine and
// exposes the user intents of the link organizer.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/devhub-tools/devhub/internal/autosync"
	"github.com/devhub-tools/devhub/internal/backup"
	"github.com/devhub-tools/devhub/internal/enrich"
	"github.com/devhub-tools/devhub/internal/store"
	"github.com/devhub-tools/devhub/internal/types"
)

// Enricher suggests metadata for a link.
type Enricher interface {
	Enhance(ctx context.Context, name, url string, categories []types.Category) (enrich.Suggestion, error)
}

// Listener receives every change the hub observes. Calls for one kind are
// ordered; there is no ordering across kinds.
type Listener interface {
	LinksChanged(links []types.LinkItem)
	CategoriesChanged(categories []types.Category)
	TodosChanged(todos []types.TodoItem)
	SyncStatusChanged(status autosync.Status, cfg types.SyncConfig)
	Notice(n autosync.Notice)
}

// Options configures a Hub.
type Options struct {
	// Engine configures the sync engine. Its Observer is replaced by the hub.
	Engine *autosync.Config

	// Enricher is optional; without it Enhance returns enrich.ErrNoAPIKey.
	Enricher Enricher

	Logger *log.Logger

	// Now is the clock used for new records (default: time.Now)
	Now func() time.Time
}

// Hub owns the store subscriptions and the sync engine for one process.
type Hub struct {
	store    *store.Store
	engine   *autosync.Engine
	enricher Enricher
	logger   *log.Logger
	now      func() time.Time

	mu                    sync.Mutex
	unsubs                []store.Unsubscribe
	firstCategorySnapshot bool
	closed                bool

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int
}

// Open subscribes to the three collections of st and starts the sync
// engine. The first empty category snapshot seeds the default categories.
func Open(st *store.Store, transport autosync.Transport, settings autosync.ConfigStore, opts *Options) (*Hub, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if opts == nil {
		opts = &Options{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[hub] ", log.LstdFlags)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	h := &Hub{
		store:                 st,
		enricher:              opts.Enricher,
		logger:                opts.Logger,
		now:                   opts.Now,
		firstCategorySnapshot: true,
		listeners:             make(map[int]Listener),
	}

	engineCfg := autosync.DefaultConfig()
	if opts.Engine != nil {
		c := *opts.Engine
		engineCfg = &c
	}
	engineCfg.Observer = observer{h}

	engine, err := autosync.NewWithConfig(transport, settings, engineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync engine: %w", err)
	}
	h.engine = engine

	if err := h.subscribe(); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

func (h *Hub) subscribe() error {
	unsubLinks, err := h.store.Links().Subscribe(h.onLinks)
	if err != nil {
		return fmt.Errorf("failed to subscribe to links: %w", err)
	}
	h.addUnsub(unsubLinks)

	unsubCats, err := h.store.Categories().Subscribe(h.onCategories)
	if err != nil {
		return fmt.Errorf("failed to subscribe to categories: %w", err)
	}
	h.addUnsub(unsubCats)

	unsubTodos, err := h.store.Todos().Subscribe(h.onTodos)
	if err != nil {
		return fmt.Errorf("failed to subscribe to todos: %w", err)
	}
	h.addUnsub(unsubTodos)
	return nil
}

func (h *Hub) addUnsub(u store.Unsubscribe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubs = append(h.unsubs, u)
}

func (h *Hub) onLinks(links []types.LinkItem) {
	h.engine.OnLinksChanged(links)
	h.each(func(l Listener) { l.LinksChanged(links) })
}

func (h *Hub) onCategories(categories []types.Category) {
	h.mu.Lock()
	first := h.firstCategorySnapshot
	h.firstCategorySnapshot = false
	h.mu.Unlock()

	if first && len(categories) == 0 {
		h.logger.Printf("No categories found, seeding defaults")
		for _, cat := range types.DefaultCategories() {
			if err := h.store.Categories().Save(context.Background(), cat); err != nil {
				h.logger.Printf("Error seeding category %s: %v", cat.ID, err)
			}
		}
	}

	h.engine.OnCategoriesChanged(categories)
	h.each(func(l Listener) { l.CategoriesChanged(categories) })
}

func (h *Hub) onTodos(todos []types.TodoItem) {
	h.engine.OnTodosChanged(todos)
	h.each(func(l Listener) { l.TodosChanged(todos) })
}

// observer forwards engine events to the hub listeners.
type observer struct{ h *Hub }

func (o observer) StatusChanged(status autosync.Status, cfg types.SyncConfig) {
	o.h.each(func(l Listener) { l.SyncStatusChanged(status, cfg) })
}

func (o observer) Notice(n autosync.Notice) {
	o.h.logger.Printf("Notice: %s", n.Message)
	o.h.each(func(l Listener) { l.Notice(n) })
}

// AddListener registers l and returns a function that removes it.
func (h *Hub) AddListener(l Listener) func() {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			h.listenersMu.Lock()
			delete(h.listeners, id)
			h.listenersMu.Unlock()
		})
	}
}

func (h *Hub) each(fn func(Listener)) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, l := range h.listeners {
		fn(l)
	}
}

// Engine returns the sync engine.
func (h *Hub) Engine() *autosync.Engine { return h.engine }

// Store returns the primary store.
func (h *Hub) Store() *store.Store { return h.store }

// Snapshot returns the current working set.
func (h *Hub) Snapshot() autosync.State { return h.engine.Snapshot() }

// FilteredLinks returns the working links in categoryID matching query,
// newest first.
func (h *Hub) FilteredLinks(categoryID, query string) []types.LinkItem {
	return types.FilterLinks(h.engine.Snapshot().Links, categoryID, query)
}

// LinkDraft is the input of AddLink.
type LinkDraft struct {
	Name        string
	URL         string
	Description string
	CategoryID  string
}

// AddLink saves a new link. A draft without a name or URL is ignored and
// nil is returned.
func (h *Hub) AddLink(ctx context.Context, d LinkDraft) (*types.LinkItem, error) {
	if d.Name == "" || d.URL == "" {
		return nil, nil
	}

	link := types.NewLink(d.Name, d.URL, d.Description, d.CategoryID, h.now())
	if err := h.store.Links().Save(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to add link: %w", err)
	}
	return &link, nil
}

// DeleteLink removes a link.
func (h *Hub) DeleteLink(ctx context.Context, id string) error {
	if err := h.store.Links().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

// AddCategory saves a user category with the default icon and color. An
// empty name is ignored.
func (h *Hub) AddCategory(ctx context.Context, name string) (*types.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	cat := types.NewCategory(name)
	if cat.ID == types.AllCategoryID {
		return nil, fmt.Errorf("category id %q is reserved", cat.ID)
	}
	if err := h.store.Categories().Save(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to add category: %w", err)
	}
	return &cat, nil
}

// AddTodo saves a new open todo. Empty text is ignored.
func (h *Hub) AddTodo(ctx context.Context, text string) (*types.TodoItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	todo := types.NewTodo(text, h.now())
	if err := h.store.Todos().Save(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to add todo: %w", err)
	}
	return &todo, nil
}

// ToggleTodo flips the completed flag of a todo and saves the whole record.
func (h *Hub) ToggleTodo(ctx context.Context, id string) (types.TodoItem, error) {
	todo, err := h.store.Todos().Get(ctx, id)
	if err != nil {
		return types.TodoItem{}, fmt.Errorf("failed to toggle todo %s: %w", id, err)
	}

	todo.Completed = !todo.Completed
	if err := h.store.Todos().Save(ctx, todo); err != nil {
		return types.TodoItem{}, fmt.Errorf("failed to toggle todo %s: %w", id, err)
	}
	return todo, nil
}

// DeleteTodo removes a todo.
func (h *Hub) DeleteTodo(ctx context.Context, id string) error {
	if err := h.store.Todos().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

// Enhance fills in a draft's description and category using the enricher.
// An unknown suggested category becomes "all". On error the draft is
// returned unchanged.
func (h *Hub) Enhance(ctx context.Context, d LinkDraft) (LinkDraft, error) {
	if d.Name == "" || d.URL == "" {
		return d, nil
	}
	if h.enricher == nil {
		return d, enrich.ErrNoAPIKey
	}

	categories := h.engine.Snapshot().Categories
	s, err := h.enricher.Enhance(ctx, d.Name, d.URL, categories)
	if err != nil {
		h.logger.Printf("Enhancement failed: %v", err)
		return d, err
	}

	d.Description = s.Description
	d.CategoryID = s.CategoryID
	if !types.HasCategory(categories, d.CategoryID) {
		d.CategoryID = types.AllCategoryID
	}
	return d, nil
}

// SyncNow pushes the working set immediately.
func (h *Hub) SyncNow(ctx context.Context) error {
	return h.engine.SyncNow(ctx, nil)
}

// Restore replaces the working set from the backup without touching the
// store.
func (h *Hub) Restore(ctx context.Context) (*backup.Data, error) {
	return h.engine.Restore(ctx)
}

// RestoreToStore restores from the backup and then saves every restored
// link into the primary store. It returns the number of links written.
func (h *Hub) RestoreToStore(ctx context.Context) (int, error) {
	data, err := h.engine.Restore(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	written := 0
	for _, link := range data.Links {
		if err := h.store.Links().Save(ctx, link); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}
	if len(errs) > 0 {
		return written, fmt.Errorf("failed to save %d restored links: %w", len(errs), errors.Join(errs...))
	}
	return written, nil
}

// Close ends the three subscriptions and stops the sync engine together.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	unsubs := h.unsubs
	h.unsubs = nil
	h.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	h.engine.Teardown()
}
