package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/devhub-tools/devhub/internal/types"
)

// Entity is a record that can be kept in a Collection.
type Entity interface {
	comparable
	Key() string
}

// Unsubscribe ends a subscription. It is safe to call more than once and
// from inside the subscription's own callback.
type Unsubscribe func()

// Collection is a keyed set of records of one entity kind.
//
// Snapshots for a collection are read and queued under one lock, so every
// subscriber observes them in the order the writes happened.
type Collection[T Entity] struct {
	kind   types.Kind
	conn   *sql.DB
	logger *log.Logger

	mu        sync.Mutex
	subs      map[uint64]*subscription[T]
	nextID    uint64
	last      []T
	lastValid bool
	closed    bool
}

func newCollection[T Entity](kind types.Kind, conn *sql.DB, logger *log.Logger) *Collection[T] {
	return &Collection[T]{
		kind:   kind,
		conn:   conn,
		logger: logger,
		subs:   make(map[uint64]*subscription[T]),
	}
}

// Kind returns the entity kind stored in the collection.
func (c *Collection[T]) Kind() types.Kind { return c.kind }

// Save upserts item keyed by its id, replacing any existing record.
func (c *Collection[T]) Save(ctx context.Context, item T) error {
	id := item.Key()
	if id == "" {
		return ErrInvalidID
	}

	doc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record %s: %w", c.kind, id, err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, doc, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		doc = excluded.doc,
		updated_at = excluded.updated_at
	`, c.kind)
	if _, err := c.conn.ExecContext(ctx, query, id, string(doc), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save %s record %s: %w", c.kind, id, err)
	}

	c.publish(ctx, false)
	return nil
}

// Delete removes the record with the given id. Deleting a missing record is
// a no-op.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	res, err := c.conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c.kind), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s record %s: %w", c.kind, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	c.publish(ctx, false)
	return nil
}

// Get returns the record with the given id, or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	var doc string
	err := c.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id = ?`, c.kind), id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s record %s: %w", c.kind, id, err)
	}

	var item T
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return zero, fmt.Errorf("failed to decode %s record %s: %w", c.kind, id, err)
	}
	return item, nil
}

// List returns every record ordered by id.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	rows, err := c.conn.QueryContext(ctx, fmt.Sprintf(`SELECT id, doc FROM %s ORDER BY id`, c.kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.kind, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", c.kind, err)
		}
		var item T
		if err := json.Unmarshal([]byte(doc), &item); err != nil {
			c.logger.Printf("Warning: skipping undecodable %s record %s: %v", c.kind, id, err)
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", c.kind, err)
	}
	return items, nil
}

// Subscribe registers fn to receive the full collection: once immediately
// with the current contents and again after every add, update or remove.
// Callbacks run on a dedicated goroutine per subscription, so fn may call
// Save or Delete on the store.
//
// Errors reading the initial snapshot are returned to the caller.
func (c *Collection[T]) Subscribe(fn func([]T)) (Unsubscribe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	snap, err := c.List(context.Background())
	if err != nil {
		return nil, err
	}

	id := c.nextID
	c.nextID++
	sub := newSubscription(fn)
	c.subs[id] = sub
	c.last, c.lastValid = snap, true
	sub.enqueue(snap)
	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			sub.stop()
		})
	}, nil
}

// publish reads the current snapshot and queues it for every subscriber.
// When onlyIfChanged is set, a snapshot equal to the last one delivered is
// dropped.
func (c *Collection[T]) publish(ctx context.Context, onlyIfChanged bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || len(c.subs) == 0 {
		c.lastValid = false
		return
	}

	snap, err := c.List(ctx)
	if err != nil {
		c.logger.Printf("Error reading %s snapshot: %v", c.kind, err)
		return
	}
	if onlyIfChanged && c.lastValid && slices.Equal(c.last, snap) {
		return
	}

	c.last, c.lastValid = snap, true
	for _, sub := range c.subs {
		sub.enqueue(slices.Clone(snap))
	}
}

func (c *Collection[T]) refresh(ctx context.Context) {
	c.publish(ctx, true)
}

func (c *Collection[T]) close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[uint64]*subscription[T])
	c.closed = true
	c.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

// subscription is an ordered, unbounded queue of snapshots drained by one
// goroutine.
type subscription[T any] struct {
	fn func([]T)

	mu      sync.Mutex
	cond    *sync.Cond
	queue   [][]T
	stopped bool
}

func newSubscription[T any](fn func([]T)) *subscription[T] {
	s := &subscription[T]{fn: fn}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscription[T]) enqueue(snap []T) {
	s.mu.Lock()
	if !s.stopped {
		s.queue = append(s.queue, snap)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *subscription[T]) stop() {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *subscription[T]) run() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped {
			s.mu.Unlock()
			return
		}
		snap := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.fn(snap)
	}
}
