package store

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/devhub-tools/devhub/internal/types"
)

// testDBPath returns a temporary path for test databases
func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "devhub.db")
}

func openTestStore(t *testing.T, path string, watch bool) *Store {
	t.Helper()

	st, err := Open(path, &Options{
		Logger:        log.New(io.Discard, "", 0),
		WatchExternal: watch,
		WatchDebounce: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// recorder collects snapshots delivered to a subscription.
type recorder[T any] struct {
	ch chan []T
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{ch: make(chan []T, 64)}
}

func (r *recorder[T]) callback(items []T) { r.ch <- items }

func (r *recorder[T]) next(t *testing.T) []T {
	t.Helper()
	select {
	case items := <-r.ch:
		return items
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func (r *recorder[T]) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case items := <-r.ch:
		t.Fatalf("unexpected snapshot: %v", items)
	case <-time.After(wait):
	}
}

func TestOpen_CreatesTables(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)

	for _, kind := range types.Kinds {
		var count int
		err := st.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, string(kind)).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to query table %s: %v", kind, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", kind)
		}
	}
}

func TestSave_UpsertReplacesWholeRecord(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)
	ctx := context.Background()

	link := types.LinkItem{ID: "l1", Name: "Go", URL: "https://go.dev", Description: "lang", CategoryID: "backend", CreatedAt: 10}
	if err := st.Links().Save(ctx, link); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	updated := types.LinkItem{ID: "l1", Name: "Go", URL: "https://go.dev", CreatedAt: 10}
	if err := st.Links().Save(ctx, updated); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	got, err := st.Links().Get(ctx, "l1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != updated {
		t.Errorf("Get() = %+v, want %+v", got, updated)
	}

	all, err := st.Links().List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 link, got %d", len(all))
	}
}

func TestSave_RequiresID(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)

	err := st.Todos().Save(context.Background(), types.TodoItem{Text: "no id"})
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("Save() error = %v, want ErrInvalidID", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)

	_, err := st.Categories().Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDelete_MissingIsNoop(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)
	rec := newRecorder[types.TodoItem]()

	unsub, err := st.Todos().Subscribe(rec.callback)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer unsub()
	rec.next(t)

	if err := st.Todos().Delete(context.Background(), "ghost"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	rec.none(t, 100*time.Millisecond)
}

func TestSubscribe_InitialAndSubsequentSnapshots(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)
	ctx := context.Background()

	if err := st.Categories().Save(ctx, types.Category{ID: "all", Name: "All Links"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	rec := newRecorder[types.Category]()
	unsub, err := st.Categories().Subscribe(rec.callback)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer unsub()

	if got := rec.next(t); len(got) != 1 || got[0].ID != "all" {
		t.Fatalf("initial snapshot = %+v, want [all]", got)
	}

	if err := st.Categories().Save(ctx, types.NewCategory("Tools")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if got := rec.next(t); len(got) != 2 {
		t.Fatalf("snapshot after add = %+v, want 2 categories", got)
	}

	if err := st.Categories().Delete(ctx, "tools"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if got := rec.next(t); len(got) != 1 {
		t.Fatalf("snapshot after delete = %+v, want 1 category", got)
	}
}

func TestSubscribe_EmptyCollectionDeliversEmptySnapshot(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)
	rec := newRecorder[types.LinkItem]()

	unsub, err := st.Links().Subscribe(rec.callback)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer unsub()

	if got := rec.next(t); len(got) != 0 {
		t.Errorf("initial snapshot = %+v, want empty", got)
	}
}

func TestSubscribe_OrderedDelivery(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)
	ctx := context.Background()
	rec := newRecorder[types.TodoItem]()

	unsub, err := st.Todos().Subscribe(rec.callback)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer unsub()
	rec.next(t)

	const n = 20
	for i := 0; i < n; i++ {
		todo := types.TodoItem{ID: string(rune('a' + i)), Text: "t"}
		if err := st.Todos().Save(ctx, todo); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
	}

	for i := 1; i <= n; i++ {
		if got := rec.next(t); len(got) != i {
			t.Fatalf("snapshot %d has %d todos, want %d", i, len(got), i)
		}
	}
}

func TestSubscribe_CallbackMaySave(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)
	seeded := make(chan struct{})
	rec := newRecorder[types.Category]()

	first := true
	unsub, err := st.Categories().Subscribe(func(cats []types.Category) {
		rec.callback(cats)
		if first && len(cats) == 0 {
			first = false
			for _, c := range types.DefaultCategories() {
				if err := st.Categories().Save(context.Background(), c); err != nil {
					t.Errorf("Save() from callback failed: %v", err)
				}
			}
			close(seeded)
		}
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer unsub()

	select {
	case <-seeded:
	case <-time.After(5 * time.Second):
		t.Fatal("callback deadlocked while saving")
	}

	var last []types.Category
	for i := 0; i <= len(types.DefaultCategories()); i++ {
		last = rec.next(t)
	}
	if len(last) != len(types.DefaultCategories()) {
		t.Errorf("final snapshot has %d categories, want %d", len(last), len(types.DefaultCategories()))
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)
	rec := newRecorder[types.LinkItem]()

	unsub, err := st.Links().Subscribe(rec.callback)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	rec.next(t)

	unsub()
	unsub() // idempotent

	if err := st.Links().Save(context.Background(), types.LinkItem{ID: "x", Name: "x"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	rec.none(t, 100*time.Millisecond)
}

func TestClose_RejectsNewSubscriptions(t *testing.T) {
	st := openTestStore(t, testDBPath(t), false)
	if err := st.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}

	if _, err := st.Links().Subscribe(func([]types.LinkItem) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() after Close error = %v, want ErrClosed", err)
	}
}

func TestWatch_ExternalWriteIsDelivered(t *testing.T) {
	path := testDBPath(t)
	watched := openTestStore(t, path, true)
	writer := openTestStore(t, path, false)

	rec := newRecorder[types.LinkItem]()
	unsub, err := watched.Links().Subscribe(rec.callback)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer unsub()
	rec.next(t)

	link := types.LinkItem{ID: "ext", Name: "External", URL: "https://example.com"}
	if err := writer.Links().Save(context.Background(), link); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-rec.ch:
			if len(got) == 1 && got[0].ID == "ext" {
				return
			}
		case <-deadline:
			t.Fatal("external write was not delivered")
		}
	}
}
