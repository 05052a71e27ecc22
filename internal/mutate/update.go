package mutate

import (
	"database/sql"
	"fmt"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/history"
	"github.com/ontodev/valve-go/internal/store"
	"github.com/ontodev/valve-go/internal/validate"
)

// dependentRow names a row in another table that might be affected by a
// change to one row of a given table.
type dependentRow struct {
	Table string
	RowNumber int64
}

// UpdateRow runs an update end to end: before/intra/after
// cascade, counterfactual validation of the target row, delete+reinsert
// with conflict routing, and a history entry.
func (m *Mutator) UpdateRow(table string, rowNumber int64, newRow map[string]string, user string) (validate.Row, error) {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return nil, errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	oldRow, err := m.getRowFromDB(tx, table, rowNumber)
	if err != nil {
		return nil, err
	}

	batchID := history.NewBatchID()

	before, after, intra, err := m.getRowsToUpdate(tx, table, rowNumber, oldRow, newRow)
	if err != nil {
		return nil, err
	}

	// Step 3: process `before` first, rows whose foreign reference
	// matched the *current* value, re-validated now that it's about to
	// change. do_not_recurse guards against revisiting this same set.
	for _, dep := range before {
		if err := m.revalidateDependentNoRecurse(tx, dep, user, batchID); err != nil {
			return nil, err
		}
	}

	// Step 4: validate the target row counterfactually, then delete +
	// reinsert, routing to conflict as needed.
	validated, err := validate.IntraRow(m.Cfg, table, newRow)
	if err != nil {
		return nil, errs.Wrap(errs.Data, "intra-row validation", err)
	}
	validated, conflict, err := validate.InterRow(tx, m.Store.Dialect, m.Cfg, table, rowNumber, validated, &validate.QueryAsIf{
		Kind: validate.AsIfReplace, Table: table, RowNumber: rowNumber, Row: validated,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Database, "inter-row validation", err)
	}

	rowOrder, err := m.currentRowOrderOf(tx, table, rowNumber)
	if err != nil {
		return nil, err
	}
	if err := m.deleteRowFromBothTables(tx, table, rowNumber); err != nil {
		return nil, err
	}
	if err := m.deleteMessagesForRow(tx, table, rowNumber); err != nil {
		return nil, err
	}
	if err := m.writeRow(tx, table, rowNumber, rowOrder, validated, conflict); err != nil {
		return nil, err
	}
	if err := m.persistMessages(tx, table, rowNumber, validated.AllMessages()); err != nil {
		return nil, err
	}
	if err := m.recordHistory(tx, table, rowNumber, oldRow, newRow, user, batchID); err != nil {
		return nil, err
	}

	// Step 5: process `intra` then `after`.
	for _, dep := range intra {
		if err := m.revalidateDependentNoRecurse(tx, dep, user, batchID); err != nil {
			return nil, err
		}
	}
	for _, dep := range after {
		if err := m.revalidateDependentNoRecurse(tx, dep, user, batchID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.Wrap(errs.Database, "committing update", err)
	}
	return validated, nil
}

// UpdateValue implements `update_value(table, row_number, column, value)`:
// fetch the current row, change one column, and run the full update
// algorithm.
func (m *Mutator) UpdateValue(table string, rowNumber int64, column, value string, user string) (validate.Row, error) {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return nil, errs.Wrap(errs.Database, "beginning transaction", err)
	}
	current, err := m.getRowFromDB(tx, table, rowNumber)
	tx.Rollback()
	if err != nil {
		return nil, err
	}
	updated := make(map[string]string, len(current))
	for k, v := range current {
		updated[k] = v
	}
	updated[column] = value
	return m.UpdateRow(table, rowNumber, updated, user)
}

// getRowsToUpdate gathers before (dependent rows keyed on
// the current value), after (dependent rows keyed on the new value), and
// intra (rows in the same table sharing a unique/primary value with the
// target, excluding the target itself).
func (m *Mutator) getRowsToUpdate(tx *sql.Tx, table string, rowNumber int64, oldRow, newRow map[string]string) (before, after, intra []dependentRow, err error) {
	for depTable, depCons := range m.Cfg.Constraints {
		for _, fe := range depCons.Foreign {
			if fe.ForeignTable != table {
				continue
			}
			oldVal, newVal := oldRow[fe.ForeignColumn], newRow[fe.ForeignColumn]
			if oldVal != "" {
				rows, err := m.findRowsByColumnValue(tx, depTable, fe.Column, oldVal)
				if err != nil {
					return nil, nil, nil, err
				}
				before = append(before, rows...)
			}
			if newVal != "" && newVal != oldVal {
				rows, err := m.findRowsByColumnValue(tx, depTable, fe.Column, newVal)
				if err != nil {
					return nil, nil, nil, err
				}
				after = append(after, rows...)
			}
		}
	}

	cons := m.Cfg.Constraints[table]
	if cons != nil {
		keyCols := append(append([]string{}, cons.Primary...), cons.Unique...)
		for _, col := range keyCols {
			val := oldRow[col]
			if val == "" {
				continue
			}
			rows, err := m.findRowsByColumnValue(tx, table, col, val)
			if err != nil {
				return nil, nil, nil, err
			}
			for _, r := range rows {
				if r.RowNumber != rowNumber {
					intra = append(intra, r)
				}
			}
		}
	}

	return before, after, intra, nil
}

func (m *Mutator) findRowsByColumnValue(tx *sql.Tx, table, column, value string) ([]dependentRow, error) {
	q := fmt.Sprintf("SELECT row_number FROM %s_view WHERE %s = %s", table, column, store.Placeholder)
	rows, err := tx.Query(m.rewrite(q), value)
	if err != nil {
		return nil, errs.Wrap(errs.Database, fmt.Sprintf("finding dependent rows in %s", table), err)
	}
	defer rows.Close()
	var out []dependentRow
	for rows.Next() {
		var rn int64
		if err := rows.Scan(&rn); err != nil {
			return nil, errs.Wrap(errs.Database, "scanning dependent row", err)
		}
		out = append(out, dependentRow{Table: table, RowNumber: rn})
	}
	return out, nil
}

// revalidateDependentNoRecurse re-validates a dependent row's inter-row
// constraints in place and re-routes it between base and conflict if its
// status changed, without cascading further. The history entry it records
// shares batchID with the triggering UpdateRow call, so the whole cascade
// can be found by one batch_id.
func (m *Mutator) revalidateDependentNoRecurse(tx *sql.Tx, dep dependentRow, user, batchID string) error {
	row, err := m.getRowFromDB(tx, dep.Table, dep.RowNumber)
	if err != nil {
		return err
	}
	validated, err := validate.IntraRow(m.Cfg, dep.Table, row)
	if err != nil {
		return errs.Wrap(errs.Data, "intra-row validation", err)
	}
	validated, conflict, err := validate.InterRow(tx, m.Store.Dialect, m.Cfg, dep.Table, dep.RowNumber, validated, nil)
	if err != nil {
		return errs.Wrap(errs.Database, "inter-row validation", err)
	}

	rowOrder, err := m.currentRowOrderOf(tx, dep.Table, dep.RowNumber)
	if err != nil {
		return err
	}
	if err := m.deleteRowFromBothTables(tx, dep.Table, dep.RowNumber); err != nil {
		return err
	}
	if err := m.deleteMessagesForRow(tx, dep.Table, dep.RowNumber); err != nil {
		return err
	}
	if err := m.writeRow(tx, dep.Table, dep.RowNumber, rowOrder, validated, conflict); err != nil {
		return err
	}
	if err := m.persistMessages(tx, dep.Table, dep.RowNumber, validated.AllMessages()); err != nil {
		return err
	}
	return m.recordHistory(tx, dep.Table, dep.RowNumber, row, row, user, batchID)
}

// getRowFromDB implements `get_row_from_db(table, row_number)`, reading
// from whichever of base/conflict currently holds the row.
func (m *Mutator) getRowFromDB(tx *sql.Tx, table string, rowNumber int64) (map[string]string, error) {
	t := m.Cfg.Tables[table]
	cols := t.ColumnOrder
	q := fmt.Sprintf("SELECT %s FROM %s_view WHERE row_number = %s", joinColumns(cols), table, store.Placeholder)
	row := tx.QueryRow(m.rewrite(q), rowNumber)

	dest := make([]any, len(cols))
	values := make([]sql.NullString, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.Dataf("table %s has no row %d", table, rowNumber)
		}
		return nil, errs.Wrap(errs.Database, "reading row", err)
	}

	out := make(map[string]string, len(cols))
	for i, col := range cols {
		out[col] = values[i].String
	}
	return out, nil
}

// GetCellFromDB implements `get_cell_from_db(table, row_number, column)`.
func (m *Mutator) GetCellFromDB(table string, rowNumber int64, column string) (string, error) {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return "", errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()
	row, err := m.getRowFromDB(tx, table, rowNumber)
	if err != nil {
		return "", err
	}
	return row[column], nil
}

// GetRowFromDB is the exported form of getRowFromDB, opening its own
// transaction.
func (m *Mutator) GetRowFromDB(table string, rowNumber int64) (map[string]string, error) {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return nil, errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()
	return m.getRowFromDB(tx, table, rowNumber)
}

func (m *Mutator) deleteRowFromBothTables(tx *sql.Tx, table string, rowNumber int64) error {
	for _, suffix := range []string{"", "_conflict"} {
		q := fmt.Sprintf("DELETE FROM %s%s WHERE row_number = %s", table, suffix, store.Placeholder)
		if _, err := tx.Exec(m.rewrite(q), rowNumber); err != nil {
			return errs.Wrap(errs.Database, fmt.Sprintf("deleting row from %s%s", table, suffix), err)
		}
	}
	return nil
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
