package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_Prefix(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Stderr = &buf

	f := New(cfg)
	defer f.Close()

	f.Logger("store").Printf("opened %s", "x.db")

	out := buf.String()
	if !strings.HasPrefix(out, "[store] ") {
		t.Fatalf("expected [store] prefix, got %q", out)
	}
	if !strings.Contains(out, "opened x.db") {
		t.Fatalf("missing message in %q", out)
	}
}

func TestLogger_File(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "devhub.log")

	cfg := DefaultConfig()
	cfg.Stderr = &buf
	cfg.File = path

	f := New(cfg)
	f.Logger("autosync").Println("push ok")
	f.Logger("hub").Println("seeded")
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[autosync] ") || !strings.Contains(string(data), "[hub] ") {
		t.Fatalf("log file missing lines: %q", data)
	}
	if buf.String() == "" {
		t.Fatal("console output should still receive lines")
	}
}

func TestClose_NoFile(t *testing.T) {
	if err := New(DefaultConfig()).Close(); err != nil {
		t.Fatalf("Close without file: %v", err)
	}
}
