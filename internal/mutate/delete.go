package mutate

import (
	"database/sql"
	"fmt"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/history"
	"github.com/ontodev/valve-go/internal/store"
	"github.com/ontodev/valve-go/internal/validate"
)

// DeleteRow implements `delete_row(table, row_number)`: the target
// row is removed first, then every table-external dependent of it is
// re-validated counterfactually against its absence, exactly like the
// `before` phase of update but with no `after`/`intra` phase since there is
// no new value to key on.
func (m *Mutator) DeleteRow(table string, rowNumber int64, user string) error {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	oldRow, err := m.getRowFromDB(tx, table, rowNumber)
	if err != nil {
		return err
	}

	var before []dependentRow
	for depTable, depCons := range m.Cfg.Constraints {
		for _, fe := range depCons.Foreign {
			if fe.ForeignTable != table {
				continue
			}
			val := oldRow[fe.ForeignColumn]
			if val == "" {
				continue
			}
			rows, err := m.findRowsByColumnValue(tx, depTable, fe.Column, val)
			if err != nil {
				return err
			}
			before = append(before, rows...)
		}
	}

	if err := m.deleteRowFromBothTables(tx, table, rowNumber); err != nil {
		return err
	}
	if err := m.deleteMessagesForRow(tx, table, rowNumber); err != nil {
		return err
	}
	batchID := history.NewBatchID()
	if err := m.recordHistory(tx, table, rowNumber, oldRow, nil, user, batchID); err != nil {
		return err
	}

	for _, dep := range before {
		if err := m.revalidateDependentNoRecurse(tx, dep, user, batchID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Database, "committing delete", err)
	}
	return nil
}

// MoveRow implements `move_row(table, row_number, after_row_number)`
//: renumbers row_order so the moved row immediately
// follows afterRowNumber, or becomes first when afterRowNumber == 0.
// row_number itself never changes.
func (m *Mutator) MoveRow(table string, rowNumber, afterRowNumber int64) error {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	order, err := m.currentRowOrder(tx, table)
	if err != nil {
		return err
	}

	newOrder := make([]int64, 0, len(order))
	for _, rn := range order {
		if rn == rowNumber {
			continue
		}
		newOrder = append(newOrder, rn)
	}

	if afterRowNumber == 0 {
		newOrder = append([]int64{rowNumber}, newOrder...)
	} else {
		inserted := false
		final := make([]int64, 0, len(newOrder)+1)
		for _, rn := range newOrder {
			final = append(final, rn)
			if rn == afterRowNumber {
				final = append(final, rowNumber)
				inserted = true
			}
		}
		if !inserted {
			return errs.Dataf("table %s has no row %d to move after", table, afterRowNumber)
		}
		newOrder = final
	}

	for i, rn := range newOrder {
		if err := m.setRowOrder(tx, table, rn, int64(i+1)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Database, "committing move", err)
	}
	return nil
}

func (m *Mutator) currentRowOrder(tx *sql.Tx, table string) ([]int64, error) {
	q := fmt.Sprintf("SELECT row_number FROM %s_view ORDER BY row_order", table)
	rows, err := tx.Query(q)
	if err != nil {
		return nil, errs.Wrap(errs.Database, "reading row order", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var rn int64
		if err := rows.Scan(&rn); err != nil {
			return nil, errs.Wrap(errs.Database, "scanning row order", err)
		}
		out = append(out, rn)
	}
	return out, nil
}

func (m *Mutator) setRowOrder(tx *sql.Tx, table string, rowNumber, order int64) error {
	for _, suffix := range []string{"", "_conflict"} {
		q := fmt.Sprintf("UPDATE %s%s SET row_order = %s WHERE row_number = %s", table, suffix, store.Placeholder, store.Placeholder)
		if _, err := tx.Exec(m.rewrite(q), order, rowNumber); err != nil {
			return errs.Wrap(errs.Database, fmt.Sprintf("setting row_order in %s%s", table, suffix), err)
		}
	}
	return nil
}

// InsertMessage implements `insert_message`: attach one message to
// a cell outside the normal validation flow.
func (m *Mutator) InsertMessage(table string, rowNumber int64, msg validate.Message) error {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()
	if err := m.persistMessages(tx, table, rowNumber, []validate.Message{msg}); err != nil {
		return err
	}
	return commit(tx)
}

// UpdateMessage implements `update_message`: overwrite one message
// identified by its id in place.
func (m *Mutator) UpdateMessage(messageID int64, msg validate.Message) error {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	q := fmt.Sprintf(`UPDATE message SET "column" = %s, value = %s, level = %s, rule = %s, message = %s WHERE message_id = %s`,
		store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder)
	if _, err := tx.Exec(m.rewrite(q), msg.Column, msg.Value, msg.Level, msg.Rule, msg.Message, messageID); err != nil {
		return errs.Wrap(errs.Database, "updating message", err)
	}
	return commit(tx)
}

// DeleteMessage implements `delete_message(id)`.
func (m *Mutator) DeleteMessage(messageID int64) error {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()
	q := fmt.Sprintf("DELETE FROM message WHERE message_id = %s", store.Placeholder)
	if _, err := tx.Exec(m.rewrite(q), messageID); err != nil {
		return errs.Wrap(errs.Database, "deleting message", err)
	}
	return commit(tx)
}

// DeleteMessagesLike implements `delete_messages_like(pattern)`: pattern is
// matched against the message text with SQL LIKE semantics.
func (m *Mutator) DeleteMessagesLike(pattern string) error {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()
	q := fmt.Sprintf("DELETE FROM message WHERE message LIKE %s", store.Placeholder)
	if _, err := tx.Exec(m.rewrite(q), pattern); err != nil {
		return errs.Wrap(errs.Database, "deleting messages by pattern", err)
	}
	return commit(tx)
}

func commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Database, "committing transaction", err)
	}
	return nil
}
