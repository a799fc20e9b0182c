package store

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// TestWatcher_StartStop verifies that the watcher can start and stop cleanly.
func TestWatcher_StartStop(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "devhub.db")

	w, err := NewWatcher(dbPath, 10*time.Millisecond, func() {})
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("Newly created watcher should not be running")
	}

	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !w.IsRunning() {
		t.Error("Watcher should be running after Start()")
	}
	if err := w.Start(); err == nil {
		t.Error("second Start() should fail")
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("Watcher should not be running after Stop()")
	}
}

// TestWatcher_DebouncesBursts verifies that a burst of writes produces a
// single change notification and that unrelated files are ignored.
func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "devhub.db")

	var calls atomic.Int32
	w, err := NewWatcher(dbPath, 150*time.Millisecond, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Fatalf("unrelated file triggered %d notifications", n)
	}

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(dbPath+"-wal", []byte{byte(i)}, 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 notification for a burst, got %d", n)
	}
}
