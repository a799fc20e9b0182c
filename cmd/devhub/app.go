package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devhub-tools/devhub/internal/autosync"
	"github.com/devhub-tools/devhub/internal/backup"
	"github.com/devhub-tools/devhub/internal/enrich"
	"github.com/devhub-tools/devhub/internal/hub"
	"github.com/devhub-tools/devhub/internal/settings"
	"github.com/devhub-tools/devhub/internal/store"
	"github.com/devhub-tools/devhub/internal/types"
)

// app bundles the collaborators one command needs.
type app struct {
	store    *store.Store
	settings *settings.Store
	backup   *backup.Client
	hub      *hub.Hub
	events   *events
}

type appOptions struct {
	// withHub starts the sync engine and category seeding.
	withHub bool
	// watch enables detection of writes from other processes.
	watch bool
}

func openApp(opts appOptions) (*app, error) {
	storeOpts := store.DefaultOptions()
	storeOpts.Logger = logs.Logger("store")
	storeOpts.WatchExternal = opts.watch

	st, err := store.Open(cfg.DBPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &app{
		store:    st,
		settings: settings.New(cfg.SettingsPath, logs.Logger("settings")),
		backup: backup.NewWithConfig(&backup.Config{
			Timeout: cfg.SyncTimeout,
			Logger:  logs.Logger("backup"),
		}),
	}
	if !opts.withHub {
		return a, nil
	}

	engineCfg := autosync.DefaultConfig()
	engineCfg.Debounce = cfg.SyncDebounce
	engineCfg.Logger = logs.Logger("autosync")

	hubOpts := &hub.Options{
		Engine: engineCfg,
		Logger: logs.Logger("hub"),
	}
	if enricher, err := newEnricher(); err == nil {
		hubOpts.Enricher = enricher
	}

	h, err := hub.Open(st, a.backup, a.settings, hubOpts)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to start hub: %w", err)
	}
	a.hub = h
	a.events = newEvents()
	h.AddListener(a.events)
	if err := waitReady(h, readyTimeout); err != nil {
		a.Close()
		return nil, err
	}
	a.events.drain()
	return a, nil
}

const readyTimeout = 2 * time.Second

var errNotReady = errors.New("store did not deliver its initial data in time")

type snapshotter interface {
	Snapshot() autosync.State
}

// waitReady blocks until every collection has delivered its first snapshot
// to the engine, so later events belong to this command's own writes.
func waitReady(s snapshotter, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !s.Snapshot().Ready {
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w (waited %s)", errNotReady, timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (a *app) Close() {
	if a.hub != nil {
		a.hub.Close()
	}
	if err := a.store.Close(); err != nil {
		logs.Logger("store").Printf("Warning: failed to close database: %v", err)
	}
}

// settle waits for a write to reach the sync engine and, if that armed an
// automatic push, for the push to finish.
func (a *app) settle(ctx context.Context) {
	select {
	case <-a.events.changed:
	case <-time.After(time.Second):
		return
	case <-ctx.Done():
		return
	}

	if !a.hub.Engine().Pending() {
		return
	}

	deadline := time.After(cfg.SyncDebounce + cfg.SyncTimeout + time.Second)
	for {
		select {
		case s := <-a.events.status:
			if s != autosync.StatusPending {
				return
			}
		case <-deadline:
			return
		case <-ctx.Done():
			return
		}
	}
}

func newEnricher() (*enrich.Client, error) {
	return enrich.New(enrich.Config{
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.AnthropicModel,
		Logger: logs.Logger("enrich"),
	})
}

// events is a hub.Listener that signals data and status changes.
type events struct {
	changed chan struct{}
	status  chan autosync.Status
}

func newEvents() *events {
	return &events{
		changed: make(chan struct{}, 1),
		status:  make(chan autosync.Status, 8),
	}
}

func (e *events) drain() {
	for {
		select {
		case <-e.changed:
		case <-e.status:
		default:
			return
		}
	}
}

func (e *events) signal() {
	select {
	case e.changed <- struct{}{}:
	default:
	}
}

func (e *events) LinksChanged([]types.LinkItem)      { e.signal() }
func (e *events) CategoriesChanged([]types.Category) { e.signal() }
func (e *events) TodosChanged([]types.TodoItem)      { e.signal() }
func (e *events) Notice(autosync.Notice)             {}

func (e *events) SyncStatusChanged(s autosync.Status, _ types.SyncConfig) {
	select {
	case e.status <- s:
	default:
	}
}
