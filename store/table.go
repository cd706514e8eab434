package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Row is one sheet row keyed by column name. Columns missing from the sheet
// read back as "".
type Row map[string]string

// Sheet is a whole collection as read from a Table.
type Sheet struct {
	Header   []string
	Rows     []Row
	Revision int64
}

// Table is a whole-document tabular backend: a collection is read in full
// and replaced in full. Write must fail with ErrConflict when the stored
// revision is not expectedRevision.
type Table interface {
	Read(ctx context.Context, name string) (Sheet, error)
	Write(ctx context.Context, name string, sheet Sheet, expectedRevision int64) (int64, error)
}

// FileTable keeps each collection as <dir>/<name>.csv with its revision in
// <dir>/<name>.rev. The revision check and replace are atomic within one
// process; files are swapped in with rename.
type FileTable struct {
	dir string
	mu  sync.Mutex
}

func NewFileTable(dir string) (*FileTable, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sheet dir: %w", err)
	}
	return &FileTable{dir: dir}, nil
}

func (t *FileTable) csvPath(name string) string { return filepath.Join(t.dir, name+".csv") }
func (t *FileTable) revPath(name string) string { return filepath.Join(t.dir, name+".rev") }

func (t *FileTable) Read(ctx context.Context, name string) (Sheet, error) {
	if err := ctx.Err(); err != nil {
		return Sheet{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLocked(name)
}

func (t *FileTable) readLocked(name string) (Sheet, error) {
	rev, err := t.revisionLocked(name)
	if err != nil {
		return Sheet{}, err
	}
	f, err := os.Open(t.csvPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return Sheet{Revision: rev}, nil
	}
	if err != nil {
		return Sheet{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return Sheet{Revision: rev}, nil
	}
	if err != nil {
		return Sheet{}, fmt.Errorf("read %s header: %w", name, err)
	}
	sheet := Sheet{Header: header, Revision: rev}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sheet{}, fmt.Errorf("read %s: %w", name, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func (t *FileTable) revisionLocked(name string) (int64, error) {
	b, err := os.ReadFile(t.revPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s revision: %w", name, err)
	}
	rev, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s revision: %w", name, err)
	}
	return rev, nil
}

func (t *FileTable) Write(ctx context.Context, name string, sheet Sheet, expectedRevision int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.revisionLocked(name)
	if err != nil {
		return 0, err
	}
	if current != expectedRevision {
		return current, ErrConflict
	}

	tmp, err := os.CreateTemp(t.dir, name+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(sheet.Header); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write %s header: %w", name, err)
	}
	rec := make([]string, len(sheet.Header))
	for _, row := range sheet.Rows {
		for i, col := range sheet.Header {
			rec[i] = row[col]
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return 0, fmt.Errorf("write %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("flush %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), t.csvPath(name)); err != nil {
		return 0, fmt.Errorf("replace %s: %w", name, err)
	}

	next := current + 1
	if err := os.WriteFile(t.revPath(name), []byte(strconv.FormatInt(next, 10)), 0o644); err != nil {
		return 0, fmt.Errorf("write %s revision: %w", name, err)
	}
	return next, nil
}
