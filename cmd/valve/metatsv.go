package main

import (
	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/tsv"
)

// appendMetaRow appends one row to a meta-table TSV file (table.tsv,
// column.tsv, datatype.tsv, rule.tsv), used by `add column`/`add
// datatype`/`add table`. The running configuration is not updated in
// place; a later `load-all`/config reload picks up the new row.
func appendMetaRow(path string, row map[string]string) error {
	t, err := tsv.ReadFile(path)
	if err != nil {
		return err
	}
	newRow := make([]string, len(t.Header))
	for i, col := range t.Header {
		newRow[i] = row[col]
	}
	return tsv.WriteFile(path, t.Header, append(t.Rows, newRow))
}

// removeMetaRow deletes every row of a meta-table TSV whose keyCol equals
// keyVal.
func removeMetaRow(path, keyCol, keyVal string) error {
	t, err := tsv.ReadFile(path)
	if err != nil {
		return err
	}
	keyIdx := -1
	for i, col := range t.Header {
		if col == keyCol {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return errs.Configf("%s: no column %q", path, keyCol)
	}
	var kept [][]string
	for _, row := range t.Rows {
		if keyIdx < len(row) && row[keyIdx] == keyVal {
			continue
		}
		kept = append(kept, row)
	}
	return tsv.WriteFile(path, t.Header, kept)
}

// removeColumnRow deletes the column.tsv row for (table,column), which
// removeMetaRow's single-key match can't express since column names repeat
// across tables.
func removeColumnRow(path, table, column string) error {
	t, err := tsv.ReadFile(path)
	if err != nil {
		return err
	}
	tableIdx, colIdx := -1, -1
	for i, h := range t.Header {
		switch h {
		case "table":
			tableIdx = i
		case "column":
			colIdx = i
		}
	}
	if tableIdx < 0 || colIdx < 0 {
		return errs.Configf("%s: missing table/column header", path)
	}
	var kept [][]string
	for _, row := range t.Rows {
		if tableIdx < len(row) && colIdx < len(row) && row[tableIdx] == table && row[colIdx] == column {
			continue
		}
		kept = append(kept, row)
	}
	return tsv.WriteFile(path, t.Header, kept)
}

// renameColumnInMeta renames one column within one table in column.tsv,
// where both `table` and `column` together identify the row.
func renameColumnInMeta(path, table, oldCol, newCol string) error {
	t, err := tsv.ReadFile(path)
	if err != nil {
		return err
	}
	tableIdx, colIdx := -1, -1
	for i, h := range t.Header {
		switch h {
		case "table":
			tableIdx = i
		case "column":
			colIdx = i
		}
	}
	if tableIdx < 0 || colIdx < 0 {
		return errs.Configf("%s: missing table/column header", path)
	}
	for _, row := range t.Rows {
		if tableIdx < len(row) && colIdx < len(row) && row[tableIdx] == table && row[colIdx] == oldCol {
			row[colIdx] = newCol
		}
	}
	return tsv.WriteFile(path, t.Header, t.Rows)
}

// renameMetaValue rewrites keyCol's value from oldVal to newVal in every
// row of a meta-table TSV, used by `rename table`/`rename datatype`.
func renameMetaValue(path, keyCol, oldVal, newVal string) error {
	t, err := tsv.ReadFile(path)
	if err != nil {
		return err
	}
	keyIdx := -1
	for i, col := range t.Header {
		if col == keyCol {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return errs.Configf("%s: no column %q", path, keyCol)
	}
	for _, row := range t.Rows {
		if keyIdx < len(row) && row[keyIdx] == oldVal {
			row[keyIdx] = newVal
		}
	}
	return tsv.WriteFile(path, t.Header, t.Rows)
}
