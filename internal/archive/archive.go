// Package archive exports the primary store to a JSONL file and imports it
// back. Each line holds one record tagged with its kind.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/devhub-tools/devhub/internal/store"
	"github.com/devhub-tools/devhub/internal/types"
)

// Record is one line of an archive.
type Record struct {
	Kind types.Kind      `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// ImportOptions configures Import.
type ImportOptions struct {
	From   string // Input JSONL file path
	DryRun bool   // Count without writing
	Backup bool   // Export the current contents next to From before writing
}

// Result holds per-kind counts for an export or import.
type Result struct {
	Links         int
	Categories    int
	Todos         int
	BackupCreated string
	Errors        []string
}

func (r *Result) count(kind types.Kind) {
	switch kind {
	case types.KindLinks:
		r.Links++
	case types.KindCategories:
		r.Categories++
	case types.KindTodos:
		r.Todos++
	}
}

// Export writes every record of st to w, links first, then categories, then
// todos.
func Export(ctx context.Context, st *store.Store, w io.Writer) (*Result, error) {
	result := &Result{}
	enc := json.NewEncoder(w)

	links, err := st.Links().List(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := st.Categories().List(ctx)
	if err != nil {
		return nil, err
	}
	todos, err := st.Todos().List(ctx)
	if err != nil {
		return nil, err
	}

	write := func(kind types.Kind, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s record: %w", kind, err)
		}
		if err := enc.Encode(Record{Kind: kind, Data: data}); err != nil {
			return fmt.Errorf("failed to write %s record: %w", kind, err)
		}
		result.count(kind)
		return nil
	}

	for _, l := range links {
		if err := write(types.KindLinks, l); err != nil {
			return nil, err
		}
	}
	for _, c := range categories {
		if err := write(types.KindCategories, c); err != nil {
			return nil, err
		}
	}
	for _, t := range todos {
		if err := write(types.KindTodos, t); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ExportFile writes the archive to path atomically.
func ExportFile(ctx context.Context, st *store.Store, path string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	result, err := Export(ctx, st, bw)
	if err == nil {
		err = bw.Flush()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename temp file: %w", err)
	}
	return result, nil
}

// FromJSONL reads every record in path.
func FromJSONL(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	var records []Record
	decoder := json.NewDecoder(file)
	for line := 1; ; line++ {
		var rec Record
		if err := decoder.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid JSON at record %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Import saves the records of opts.From into st. Records with an existing id
// replace the stored one. The "all" category is never overwritten. Per-record
// failures are collected in Result.Errors.
func Import(ctx context.Context, st *store.Store, opts ImportOptions) (*Result, error) {
	result := &Result{}

	records, err := FromJSONL(opts.From)
	if err != nil {
		return nil, err
	}

	if opts.Backup && !opts.DryRun {
		backupPath := opts.From + ".backup." + time.Now().Format("20060102-150405")
		if _, err := ExportFile(ctx, st, backupPath); err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
		result.BackupCreated = backupPath
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := importRecord(ctx, st, rec, opts.DryRun); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d (%s): %v", i+1, rec.Kind, err))
			continue
		}
		if rec.Kind == types.KindCategories && isAllCategory(rec) {
			continue
		}
		result.count(rec.Kind)
	}
	return result, nil
}

func importRecord(ctx context.Context, st *store.Store, rec Record, dryRun bool) error {
	switch rec.Kind {
	case types.KindLinks:
		return save(ctx, st.Links(), rec.Data, dryRun)
	case types.KindCategories:
		if isAllCategory(rec) {
			return nil
		}
		return save(ctx, st.Categories(), rec.Data, dryRun)
	case types.KindTodos:
		return save(ctx, st.Todos(), rec.Data, dryRun)
	default:
		return fmt.Errorf("unknown kind %q", rec.Kind)
	}
}

func save[T store.Entity](ctx context.Context, c *store.Collection[T], data json.RawMessage, dryRun bool) error {
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	if item.Key() == "" {
		return store.ErrInvalidID
	}
	if dryRun {
		return nil
	}
	return c.Save(ctx, item)
}

func isAllCategory(rec Record) bool {
	var c types.Category
	return json.Unmarshal(rec.Data, &c) == nil && c.ID == types.AllCategoryID
}
