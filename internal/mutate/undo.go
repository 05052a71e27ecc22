package mutate

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/store"
	"github.com/ontodev/valve-go/internal/validate"
)

// historyRow mirrors one `history` table row relevant to undo/redo.
type historyRow struct {
	ID int64
	Table string
	Row int64
	From sql.NullString
	To sql.NullString
	UndoneBy sql.NullString
}

// Undo fetches the most recent history row with
// undone_by NULL, revert the row to its from state (delete on original
// insert, insert on original delete, update otherwise), and mark it
// undone_by = user.
func (m *Mutator) Undo(user string) error {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	q := `SELECT history_id, "table", row, "from", "to", undone_by FROM history WHERE undone_by IS NULL ORDER BY history_id DESC LIMIT 1`
	h, err := scanHistoryRow(tx.QueryRow(q))
	if err != nil {
		return err
	}
	if h == nil {
		return errs.Dataf("no active history entry to undo")
	}

	if err := m.revertTo(tx, h, h.From); err != nil {
		return err
	}

	upd := fmt.Sprintf("UPDATE history SET undone_by = %s WHERE history_id = %s", store.Placeholder, store.Placeholder)
	if _, err := tx.Exec(m.rewrite(upd), user, h.ID); err != nil {
		return errs.Wrap(errs.Database, "marking history entry undone", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Database, "committing undo", err)
	}
	return nil
}

// Redo fetches the oldest history row with undone_by non-NULL whose id is
// greater than the next entry waiting to be undone (the most recent row
// with undone_by NULL), so an orphaned entry, one older than an active
// entry, is never offered; it reapplies that row's to state and clears
// undone_by.
func (m *Mutator) Redo() error {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	var nextToUndo sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(history_id) FROM history WHERE undone_by IS NULL`).Scan(&nextToUndo); err != nil {
		return errs.Wrap(errs.Database, "finding next entry to undo", err)
	}

	q := fmt.Sprintf(`SELECT history_id, "table", row, "from", "to", undone_by FROM history WHERE undone_by IS NOT NULL AND history_id > %s ORDER BY history_id ASC LIMIT 1`, store.Placeholder)
	h, err := scanHistoryRow(tx.QueryRow(m.rewrite(q), nextToUndo.Int64))
	if err != nil {
		return err
	}
	if h == nil {
		return errs.Dataf("no undone history entry to redo")
	}

	if err := m.revertTo(tx, h, h.To); err != nil {
		return err
	}

	upd := fmt.Sprintf("UPDATE history SET undone_by = NULL WHERE history_id = %s", store.Placeholder)
	if _, err := tx.Exec(m.rewrite(upd), h.ID); err != nil {
		return errs.Wrap(errs.Database, "clearing undone_by", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Database, "committing redo", err)
	}
	return nil
}

// revertTo applies target (a 'from' or 'to' JSON payload, possibly NULL
// meaning "row absent") to h.Table/h.Row, routing through the same
// intra/inter validation and conflict-routing path as a normal mutation so
// the result is indistinguishable from one.
func (m *Mutator) revertTo(tx *sql.Tx, h *historyRow, target sql.NullString) error {
	if !target.Valid {
		return m.revertToAbsent(tx, h)
	}
	var row map[string]string
	if err := json.Unmarshal([]byte(target.String), &row); err != nil {
		return errs.Wrap(errs.Serialization, "decoding history payload", err)
	}

	validated, err := validate.IntraRow(m.Cfg, h.Table, row)
	if err != nil {
		return errs.Wrap(errs.Data, "intra-row validation", err)
	}
	validated, conflict, err := validate.InterRow(tx, m.Store.Dialect, m.Cfg, h.Table, h.Row, validated, &validate.QueryAsIf{
		Kind: validate.AsIfReplace, Table: h.Table, RowNumber: h.Row, Row: validated,
	})
	if err != nil {
		return errs.Wrap(errs.Database, "inter-row validation", err)
	}

	rowOrder, err := m.currentRowOrderOf(tx, h.Table, h.Row)
	if err != nil {
		rowOrder = h.Row
	}
	if err := m.deleteRowFromBothTables(tx, h.Table, h.Row); err != nil {
		return err
	}
	if err := m.deleteMessagesForRow(tx, h.Table, h.Row); err != nil {
		return err
	}
	if err := m.writeRow(tx, h.Table, h.Row, rowOrder, validated, conflict); err != nil {
		return err
	}
	return m.persistMessages(tx, h.Table, h.Row, validated.AllMessages())
}

func (m *Mutator) revertToAbsent(tx *sql.Tx, h *historyRow) error {
	if err := m.deleteRowFromBothTables(tx, h.Table, h.Row); err != nil {
		return err
	}
	return m.deleteMessagesForRow(tx, h.Table, h.Row)
}

func scanHistoryRow(row *sql.Row) (*historyRow, error) {
	var h historyRow
	err := row.Scan(&h.ID, &h.Table, &h.Row, &h.From, &h.To, &h.UndoneBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Database, "scanning history row", err)
	}
	return &h, nil
}
