// Package store is the primary store adapter: an embedded SQLite document
// store holding links, categories and todos, with live per-collection
// subscriptions.
//
// Architecture:
//   - Database file: <data dir>/devhub.db (WAL mode)
//   - One table per entity kind; each row is the JSON document of one record
//   - Writes replace whole records (no partial merge)
//   - Subscribers receive the full collection after every change
//
// Other processes may write the same database file. When external watching is
// enabled the store observes the database files with fsnotify and
// re-delivers snapshots that changed underneath it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/devhub-tools/devhub/internal/types"
)

// Store errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalidID = errors.New("record id is required")
	ErrClosed    = errors.New("store is closed")
)

// Options configures a Store.
type Options struct {
	// Logger for store activity (default: stderr logger with [store] prefix)
	Logger *log.Logger

	// WatchExternal enables fsnotify-based detection of writes made by other
	// processes to the same database.
	WatchExternal bool

	// WatchDebounce is how long the watcher waits after the last file event
	// before re-reading the collections (default: 100ms).
	WatchDebounce time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Logger:        log.New(os.Stderr, "[store] ", log.LstdFlags),
		WatchDebounce: 100 * time.Millisecond,
	}
}

// Store owns the database connection and the three typed collections.
type Store struct {
	conn   *sql.DB
	path   string
	logger *log.Logger

	links      *Collection[types.LinkItem]
	categories *Collection[types.Category]
	todos      *Collection[types.TodoItem]

	watcher *Watcher

	closeOnce sync.Once
	closeErr  error
}

// Open opens (creating if needed) the database at path and initializes the
// schema.
//
// The caller MUST call Close() when done so subscriptions end and the WAL is
// checkpointed.
//
// Example:
//
//	st, err := store.Open(".devhub/devhub.db", nil)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = DefaultOptions().Logger
	}
	if opts.WatchDebounce <= 0 {
		opts.WatchDebounce = 100 * time.Millisecond
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)", filepath.ToSlash(path))
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{
		conn:   conn,
		path:   path,
		logger: opts.Logger,
	}
	if err := s.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.links = newCollection[types.LinkItem](types.KindLinks, conn, opts.Logger)
	s.categories = newCollection[types.Category](types.KindCategories, conn, opts.Logger)
	s.todos = newCollection[types.TodoItem](types.KindTodos, conn, opts.Logger)

	if opts.WatchExternal {
		w, err := NewWatcher(path, opts.WatchDebounce, s.refresh)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		if err := w.Start(); err != nil {
			_ = w.Stop()
			_ = conn.Close()
			return nil, err
		}
		s.watcher = w
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, kind := range types.Kinds {
		stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`, kind)
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize %s table: %w", kind, err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Links returns the links collection.
func (s *Store) Links() *Collection[types.LinkItem] { return s.links }

// Categories returns the categories collection.
func (s *Store) Categories() *Collection[types.Category] { return s.categories }

// Todos returns the todos collection.
func (s *Store) Todos() *Collection[types.TodoItem] { return s.todos }

// refresh re-reads every collection and delivers snapshots that differ from
// the last ones delivered. It is driven by the external-change watcher.
func (s *Store) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.links.refresh(ctx)
	s.categories.refresh(ctx)
	s.todos.refresh(ctx)
}

// Close stops watching, ends every subscription and closes the database.
// Close is idempotent.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Printf("Error stopping watcher: %v", err)
			}
		}

		s.links.close()
		s.categories.close()
		s.todos.close()

		if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
		}
		if err := s.conn.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close database: %w", err)
		}
	})
	return s.closeErr
}
