package main

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devhub-tools/devhub/internal/autosync"
	"github.com/devhub-tools/devhub/internal/store"
	"github.com/devhub-tools/devhub/internal/types"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"36h", now.Add(-36 * time.Hour)},
		{"90m", now.Add(-90 * time.Minute)},
		{"2025-01-31", time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSince(tt.in, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseSince_NaturalLanguage(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	got, err := parseSince("3 days ago", now)
	require.NoError(t, err)
	assert.True(t, got.Before(now))
	assert.Equal(t, 12, got.Day())
}

func TestParseSince_Garbage(t *testing.T) {
	_, err := parseSince("whenever it suits", time.Now())
	assert.Error(t, err)
}

func TestLinksSince(t *testing.T) {
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	links := []types.LinkItem{
		{ID: "old", CreatedAt: cutoff.Add(-time.Hour).UnixMilli()},
		{ID: "edge", CreatedAt: cutoff.UnixMilli()},
		{ID: "new", CreatedAt: cutoff.Add(time.Hour).UnixMilli()},
	}

	got := linksSince(links, cutoff)
	require.Len(t, got, 2)
	assert.Equal(t, "edge", got[0].ID)
	assert.Equal(t, "new", got[1].ID)
}

func TestResolveID(t *testing.T) {
	todos := []types.TodoItem{{ID: "abc123"}, {ID: "abd456"}, {ID: "ab"}}
	id := func(t types.TodoItem) string { return t.ID }

	got, err := resolveID(todos, "abc", id)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)

	got, err = resolveID(todos, "ab", id)
	require.NoError(t, err)
	assert.Equal(t, "ab", got, "exact match wins over prefixes")

	_, err = resolveID(todos, "a", id)
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveID(todos, "zzz", id)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"https://script.google.com/macros/s/abc/exec", false},
		{"http://127.0.0.1:8787/", false},
		{"ftp://example.com", true},
		{"example.com/path", true},
		{"https://", true},
	}
	for _, tt := range tests {
		err := validateEndpoint(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
	}
}

type readyAfter struct {
	calls atomic.Int32
	after int32
}

func (r *readyAfter) Snapshot() autosync.State {
	n := r.calls.Add(1)
	return autosync.State{Ready: r.after >= 0 && n > r.after}
}

func TestWaitReady(t *testing.T) {
	r := &readyAfter{after: 3}
	require.NoError(t, waitReady(r, time.Second))
	assert.Equal(t, int32(4), r.calls.Load())
}

func TestWaitReady_TimesOut(t *testing.T) {
	err := waitReady(&readyAfter{after: -1}, 50*time.Millisecond)
	assert.ErrorIs(t, err, errNotReady)
}

func TestCommandsReturnErrors(t *testing.T) {
	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		assert.Nil(t, cmd.Run, "%s should use RunE so deferred cleanup runs on error", cmd.CommandPath())
		for _, sub := range cmd.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
	assert.True(t, rootCmd.SilenceErrors)
}
