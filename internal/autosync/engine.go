package autosync

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/devhub-tools/devhub/internal/backup"
	"github.com/devhub-tools/devhub/internal/types"
)

// DefaultDebounce is the quiet window before an automatic push.
const DefaultDebounce = 2000 * time.Millisecond

// Transport pushes to and pulls from the backup endpoint. Failures are
// reported as false / nil, never as errors.
type Transport interface {
	Push(ctx context.Context, endpoint string, links []types.LinkItem, categories []types.Category) bool
	Pull(ctx context.Context, endpoint string) *backup.Data
}

// ConfigStore persists the sync configuration.
type ConfigStore interface {
	LoadSyncConfig() types.SyncConfig
	SaveSyncConfig(cfg types.SyncConfig) error
}

// Config holds engine configuration.
type Config struct {
	// Debounce is the quiet window before an automatic push (default: 2s)
	Debounce time.Duration

	// Governed lists the kinds whose first snapshot opens the readiness
	// gate (default: links, categories and todos)
	Governed []types.Kind

	// Clock drives the debounce timer and timestamps (default: wall clock)
	Clock Clock

	// Observer receives status changes and notices (default: none)
	Observer Observer

	// Logger for engine activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Debounce: DefaultDebounce,
		Governed: slices.Clone(types.Kinds),
		Clock:    SystemClock{},
		Observer: nopObserver{},
		Logger:   log.New(os.Stderr, "[autosync] ", log.LstdFlags),
	}
}

// Engine owns the working set, the sync configuration, the status and the
// debounce timer.
type Engine struct {
	transport Transport
	settings  ConfigStore
	config    *Config

	mu         sync.Mutex
	cfg        types.SyncConfig
	status     Status
	links      []types.LinkItem
	categories []types.Category
	todos      []types.TodoItem
	governed   map[types.Kind]bool
	ready      map[types.Kind]bool

	timer   Timer
	gen     uint64
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	flights sync.WaitGroup
}

// New creates an engine with default configuration. The sync configuration
// is loaded from settings once.
func New(transport Transport, settings ConfigStore) (*Engine, error) {
	return NewWithConfig(transport, settings, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(transport Transport, settings ConfigStore, config *Config) (*Engine, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	def := DefaultConfig()
	if config == nil {
		config = def
	}
	if config.Debounce <= 0 {
		config.Debounce = def.Debounce
	}
	if len(config.Governed) == 0 {
		config.Governed = def.Governed
	}
	if config.Clock == nil {
		config.Clock = def.Clock
	}
	if config.Observer == nil {
		config.Observer = def.Observer
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}

	governed := make(map[types.Kind]bool, len(config.Governed))
	for _, k := range config.Governed {
		governed[k] = true
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		transport:  transport,
		settings:   settings,
		config:     config,
		cfg:        settings.LoadSyncConfig(),
		status:     StatusSynced,
		links:      []types.LinkItem{},
		categories: []types.Category{},
		todos:      []types.TodoItem{},
		governed:   governed,
		ready:      make(map[types.Kind]bool),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// OnLinksChanged replaces the working links with a store snapshot.
func (e *Engine) OnLinksChanged(links []types.LinkItem) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.links = slices.Clone(links)
	e.markReadyLocked(types.KindLinks)
	e.evaluateLocked()
}

// OnCategoriesChanged replaces the working categories with a store snapshot.
func (e *Engine) OnCategoriesChanged(categories []types.Category) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.categories = slices.Clone(categories)
	e.markReadyLocked(types.KindCategories)
	e.evaluateLocked()
}

// OnTodosChanged replaces the working todos. Todos are not backed up, so a
// todo change only re-evaluates the gate when it completes readiness.
func (e *Engine) OnTodosChanged(todos []types.TodoItem) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.todos = slices.Clone(todos)
	if e.markReadyLocked(types.KindTodos) {
		e.evaluateLocked()
	}
}

// markReadyLocked records the first snapshot of kind. It reports whether
// this call completed the readiness gate.
func (e *Engine) markReadyLocked(kind types.Kind) bool {
	if e.ready[kind] {
		return false
	}
	e.ready[kind] = true
	if e.readyLocked() {
		e.config.Logger.Printf("All collections loaded")
		return true
	}
	return false
}

func (e *Engine) readyLocked() bool {
	for k := range e.governed {
		if !e.ready[k] {
			return false
		}
	}
	return true
}

// gateLocked reports whether an automatic push may be scheduled.
func (e *Engine) gateLocked() bool {
	switch {
	case e.closed:
		return false
	case e.cfg.SheetURL == "":
		return false
	case !e.cfg.IsAutoSync:
		return false
	case !e.readyLocked():
		return false
	case len(e.links) == 0 && len(e.categories) == 0:
		return false
	}
	return true
}

// evaluateLocked cancels any pending push and, if the gate holds, arms a new
// one.
func (e *Engine) evaluateLocked() {
	e.cancelTimerLocked()
	if !e.gateLocked() {
		return
	}

	e.gen++
	gen := e.gen
	e.timer = e.config.Clock.AfterFunc(e.config.Debounce, func() { e.fire(gen) })
}

func (e *Engine) cancelTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

// fire runs a debounced push if it is still the current one.
func (e *Engine) fire(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	endpoint := e.cfg.SheetURL
	links, categories := e.links, e.categories
	ctx := e.ctx
	e.flights.Add(1)
	e.mu.Unlock()
	defer e.flights.Done()

	e.config.Logger.Printf("Auto-sync: pushing %d links, %d categories", len(links), len(categories))
	e.attempt(ctx, endpoint, links, categories)
}

// attempt runs one push through the status state machine.
func (e *Engine) attempt(ctx context.Context, endpoint string, links []types.LinkItem, categories []types.Category) bool {
	e.mu.Lock()
	e.status = StatusPending
	e.emitStatusLocked()
	e.mu.Unlock()

	ok := e.transport.Push(ctx, endpoint, links, categories)

	e.mu.Lock()
	if ok {
		e.status = StatusSynced
		ts := e.config.Clock.Now().UnixMilli()
		next := e.cfg
		next.LastSyncedAt = &ts
		e.cfg = next
		if err := e.settings.SaveSyncConfig(next); err != nil {
			e.config.Logger.Printf("Warning: failed to persist sync config: %v", err)
		}
	} else {
		e.status = StatusOffline
		e.config.Logger.Printf("Sync to %s failed, status offline", endpoint)
	}
	e.emitStatusLocked()
	e.mu.Unlock()
	return ok
}

func (e *Engine) emitStatusLocked() {
	e.config.Observer.StatusChanged(e.status, e.cfg)
}

func (e *Engine) notice(level NoticeLevel, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.Observer.Notice(Notice{Level: level, Message: msg})
}

// SyncNow pushes the working links immediately, bypassing the debounce.
// A nil categories uses the last-known category set.
func (e *Engine) SyncNow(ctx context.Context, categories []types.Category) error {
	e.mu.Lock()
	endpoint := e.cfg.SheetURL
	links := e.links
	if categories == nil {
		categories = e.categories
	}
	e.mu.Unlock()

	if endpoint == "" {
		return ErrSyncDisabled
	}

	e.config.Logger.Printf("Manual sync: pushing %d links, %d categories", len(links), len(categories))
	if !e.attempt(ctx, endpoint, links, categories) {
		return ErrPushFailed
	}
	return nil
}

// Restore pulls the backup and replaces the working links, and the working
// categories when the backup holds any. The current "all" category is kept
// as is. Restored data is not written to the primary store.
func (e *Engine) Restore(ctx context.Context) (*backup.Data, error) {
	e.mu.Lock()
	endpoint := e.cfg.SheetURL
	e.mu.Unlock()

	if endpoint == "" {
		return nil, ErrSyncDisabled
	}

	data := e.transport.Pull(ctx, endpoint)
	if data == nil {
		e.config.Logger.Printf("Restore from %s failed", endpoint)
		e.notice(NoticeError, "Failed to fetch data from the backup. Check your URL.")
		return nil, ErrRestoreFailed
	}

	e.mu.Lock()
	e.links = slices.Clone(data.Links)
	if len(data.Categories) > 0 {
		e.categories = mergeSentinel(e.categories, data.Categories)
	}
	e.status = StatusSynced
	e.evaluateLocked()
	e.config.Logger.Printf("Restored %d links, %d categories", len(data.Links), len(data.Categories))
	e.emitStatusLocked()
	e.mu.Unlock()

	e.notice(NoticeInfo, "Data restored successfully from the backup!")
	return data, nil
}

// mergeSentinel returns pulled with the "all" category taken from current
// when current has one.
func mergeSentinel(current, pulled []types.Category) []types.Category {
	idx := slices.IndexFunc(current, func(c types.Category) bool { return c.ID == types.AllCategoryID })
	if idx < 0 {
		return slices.Clone(pulled)
	}

	out := make([]types.Category, 0, len(pulled)+1)
	out = append(out, current[idx])
	for _, c := range pulled {
		if c.ID != types.AllCategoryID {
			out = append(out, c)
		}
	}
	return out
}

// SetSheetURL changes the backup endpoint, persists it and re-evaluates the
// gate.
func (e *Engine) SetSheetURL(endpoint string) error {
	return e.update(func(cfg *types.SyncConfig) {
		cfg.SheetURL = strings.TrimSpace(endpoint)
	})
}

// SetAutoSync turns automatic pushes on or off.
func (e *Engine) SetAutoSync(enabled bool) error {
	return e.update(func(cfg *types.SyncConfig) {
		cfg.IsAutoSync = enabled
	})
}

// SetConfig replaces the endpoint and auto-sync flag together. The last sync
// time is kept.
func (e *Engine) SetConfig(next types.SyncConfig) error {
	return e.update(func(cfg *types.SyncConfig) {
		cfg.SheetURL = strings.TrimSpace(next.SheetURL)
		cfg.IsAutoSync = next.IsAutoSync
	})
}

func (e *Engine) update(fn func(cfg *types.SyncConfig)) error {
	e.mu.Lock()
	next := e.cfg
	fn(&next)
	if err := e.settings.SaveSyncConfig(next); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to save sync config: %w", err)
	}
	e.cfg = next
	e.evaluateLocked()
	e.emitStatusLocked()
	e.mu.Unlock()
	return nil
}

// Status returns the current sync status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Config returns the current sync configuration.
func (e *Engine) Config() types.SyncConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Pending reports whether a debounced push is armed.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer != nil
}

// Snapshot returns a copy of the working set and sync state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Links:      slices.Clone(e.links),
		Categories: slices.Clone(e.categories),
		Todos:      slices.Clone(e.todos),
		Status:     e.status,
		Config:     e.cfg,
		Ready:      e.readyLocked(),
	}
}

// Teardown cancels any pending push and stops the engine. Automatic pushes
// never fire afterwards. It waits for an in-flight automatic push to return.
func (e *Engine) Teardown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.cancelTimerLocked()
	e.cancel()
	e.mu.Unlock()

	e.flights.Wait()
	e.config.Logger.Println("Sync engine stopped")
}
