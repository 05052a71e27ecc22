// Package tsv provides the minimal tab-separated-value reading/writing the
// engine needs: a mandatory header row, no leading/trailing whitespace
// on any cell, and an empty cell is the empty string (nullness comes from
// the configured nulltype, never from file syntax). It is deliberately thin:
// the CLI's TSV-to-schema "guess" heuristic and any richer reader
// plumbing are out of scope.
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ontodev/valve-go/internal/errs"
)

// Table is a fully-read TSV file: its header (column order) and its data
// rows, each row being a slice parallel to Header.
type Table struct {
	Header []string
	Rows [][]string
}

// ReadFile reads and validates a TSV file from path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.Config, fmt.Sprintf("opening TSV file %s", path), err)
	}
	defer f.Close()
	return Read(f, path)
}

// Read reads and validates a TSV stream. name is used only in error
// messages (typically a file path).
func Read(r io.Reader, name string) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var header []string
	var rows [][]string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		fields := strings.Split(line, "\t")
		for i, f := range fields {
			if err := checkWhitespace(f); err != nil {
				return nil, errs.Configf("%s:%d: cell %d: %v", name, lineNo, i+1, err)
			}
		}
		if header == nil {
			header = fields
			continue
		}
		rows = append(rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.Config, fmt.Sprintf("reading TSV file %s", name), err)
	}
	if header == nil {
		return nil, errs.Configf("%s: missing header row", name)
	}
	return &Table{Header: header, Rows: rows}, nil
}

func checkWhitespace(cell string) error {
	trimmed := strings.TrimSpace(cell)
	if trimmed != cell {
		return fmt.Errorf("leading or trailing whitespace in cell %q", cell)
	}
	return nil
}

// RowMaps converts the table into a slice of column->value maps, in row
// order, matching Header exactly column-for-column.
func (t *Table) RowMaps() []map[string]string {
	out := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		m := make(map[string]string, len(t.Header))
		for j, col := range t.Header {
			if j < len(row) {
				m[col] = row[j]
			} else {
				m[col] = ""
			}
		}
		out[i] = m
	}
	return out
}

// WriteFile writes header+rows back out as TSV, used by `save`/`save-as`.
func WriteFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.Database, fmt.Sprintf("creating TSV file %s", path), err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return errs.Wrap(errs.Database, "writing TSV header", err)
	}
	for _, row := range rows {
		if _, err := w.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return errs.Wrap(errs.Database, "writing TSV row", err)
		}
	}
	return w.Flush()
}

// HeaderPermutation reports whether got is a permutation of want (same
// multiset of names), used to validate a table's TSV header against its
// configured columns.
func HeaderPermutation(want, got []string) error {
	wantSet := make(map[string]int, len(want))
	for _, w := range want {
		wantSet[w]++
	}
	gotSet := make(map[string]int, len(got))
	for _, g := range got {
		gotSet[g]++
	}
	for w, n := range wantSet {
		if gotSet[w] != n {
			return fmt.Errorf("configured column %q missing from TSV header", w)
		}
	}
	for g, n := range gotSet {
		if wantSet[g] != n {
			return fmt.Errorf("TSV header has unconfigured column %q", g)
		}
	}
	return nil
}
