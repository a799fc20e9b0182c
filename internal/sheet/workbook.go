// Package sheet is a self-hosted backup endpoint that speaks the same
// protocol as the spreadsheet script: records are kept as rows of named
// sheets whose header row is taken from the first pushed record.
package sheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Sheet names used by the backup protocol.
const (
	LinksSheet      = "Links"
	CategoriesSheet = "Categories"
)

// Record is one object as it travels over the wire.
type Record map[string]any

// Table is a sheet: a header row and data rows. A row holds only the cells
// that were present in the pushed record, so a missing field stays missing
// after a round trip rather than turning into null.
type Table struct {
	Headers []string         `yaml:"headers"`
	Rows    []map[string]any `yaml:"rows"`
}

// NewTable builds a table from records. Headers are the sorted keys of the
// first record; keys absent from it are dropped from every row.
func NewTable(records []Record) Table {
	if len(records) == 0 {
		return Table{}
	}

	headers := make([]string, 0, len(records[0]))
	for k := range records[0] {
		headers = append(headers, k)
	}
	slices.Sort(headers)

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(headers))
		for _, h := range headers {
			if v, ok := rec[h]; ok {
				row[h] = normalize(v)
			}
		}
		rows = append(rows, row)
	}
	return Table{Headers: headers, Rows: rows}
}

// Records reconstructs the objects held by the table.
func (t Table) Records() []Record {
	out := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(Record, len(t.Headers))
		for _, h := range t.Headers {
			if v, ok := row[h]; ok {
				rec[h] = v
			}
		}
		out = append(out, rec)
	}
	return out
}

// normalize turns json.Number cells into int64 or float64 so they are
// stored as YAML numbers.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = normalize(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = normalize(vv)
		}
		return out
	default:
		return v
	}
}

// Workbook is a set of named tables, optionally persisted to a YAML file.
type Workbook struct {
	path string

	mu     sync.RWMutex
	sheets map[string]Table
}

// OpenWorkbook loads the workbook at path. An empty path keeps the workbook
// in memory only; a missing file starts empty.
func OpenWorkbook(path string) (*Workbook, error) {
	wb := &Workbook{path: path, sheets: map[string]Table{}}
	if path == "" {
		return wb, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return wb, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workbook %s: %w", path, err)
	}

	var doc struct {
		Sheets map[string]Table `yaml:"sheets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workbook %s: %w", path, err)
	}
	if doc.Sheets != nil {
		wb.sheets = doc.Sheets
	}
	return wb, nil
}

// Get returns the records of a sheet. A missing sheet is empty.
func (wb *Workbook) Get(name string) []Record {
	wb.mu.RLock()
	defer wb.mu.RUnlock()
	return wb.sheets[name].Records()
}

// Replace clears the named sheets and fills them with the given records,
// then persists the workbook.
func (wb *Workbook) Replace(sheets map[string][]Record) error {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	next := make(map[string]Table, len(wb.sheets)+len(sheets))
	for k, v := range wb.sheets {
		next[k] = v
	}
	for name, records := range sheets {
		next[name] = NewTable(records)
	}

	if err := wb.save(next); err != nil {
		return err
	}
	wb.sheets = next
	return nil
}

func (wb *Workbook) save(sheets map[string]Table) error {
	if wb.path == "" {
		return nil
	}

	dir := filepath.Dir(wb.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create workbook dir: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"sheets": sheets}); err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}

	// Write atomically via temp file
	tmpFile, err := os.CreateTemp(dir, filepath.Base(wb.path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(buf.Bytes())
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp workbook: %w", err)
	}

	if err := os.Rename(name, wb.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename workbook: %w", err)
	}
	return nil
}
