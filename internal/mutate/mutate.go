// Package mutate implements transactional row mutation with cascading
// re-validation, conflict-table routing, message persistence, and an
// undo/redo history log.
package mutate

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ontodev/valve-go/internal/config"
	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/history"
	"github.com/ontodev/valve-go/internal/logging"
	"github.com/ontodev/valve-go/internal/store"
	"github.com/ontodev/valve-go/internal/validate"
)

// Mutator is the public API for transactional row mutation: insert/update/
// delete/move, message CRUD, and undo/redo, each running inside a single
// transaction per call.
type Mutator struct {
	Store *store.Store
	Cfg *config.Config
	Logger logging.Logger
}

// New returns a Mutator. If logger is nil, a NullLogger is used.
func New(st *store.Store, cfg *config.Config, logger logging.Logger) *Mutator {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Mutator{Store: st, Cfg: cfg, Logger: logger}
}

func (m *Mutator) rewrite(q string) string { return store.RewritePlaceholders(m.Store.Dialect, q) }

// InsertRow implements `insert_row(table, row) → (row_number, row)`.
func (m *Mutator) InsertRow(table string, row map[string]string, user string) (int64, validate.Row, error) {
	tx, err := m.Store.DB().Begin()
	if err != nil {
		return 0, nil, errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	validated, err := validate.IntraRow(m.Cfg, table, row)
	if err != nil {
		return 0, nil, errs.Wrap(errs.Data, "intra-row validation", err)
	}

	rowNumber, err := m.allocateRowNumber(tx, table)
	if err != nil {
		return 0, nil, err
	}

	validated, conflict, err := validate.InterRow(tx, m.Store.Dialect, m.Cfg, table, rowNumber, validated, &validate.QueryAsIf{
		Kind: validate.AsIfAdd, Table: table, RowNumber: rowNumber, Row: validated,
	})
	if err != nil {
		return 0, nil, errs.Wrap(errs.Database, "inter-row validation", err)
	}

	rowOrder, err := m.allocateRowOrder(tx, table)
	if err != nil {
		return 0, nil, err
	}
	if err := m.writeRow(tx, table, rowNumber, rowOrder, validated, conflict); err != nil {
		return 0, nil, err
	}
	if err := m.persistMessages(tx, table, rowNumber, validated.AllMessages()); err != nil {
		return 0, nil, err
	}

	if err := m.recordHistory(tx, table, rowNumber, nil, row, user, history.NewBatchID()); err != nil {
		return 0, nil, err
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, errs.Wrap(errs.Database, "committing insert", err)
	}
	return rowNumber, validated, nil
}

// writeRow inserts validated into table (or table_conflict when conflict
// is true), assuming neither copy currently holds rowNumber. rowOrder is
// preserved across update's delete+reinsert and freshly allocated on
// insert.
func (m *Mutator) writeRow(tx *sql.Tx, table string, rowNumber, rowOrder int64, row validate.Row, conflict bool) error {
	t := m.Cfg.Tables[table]
	dest := table
	if conflict {
		dest = table + "_conflict"
	}

	placeholders := make([]string, len(t.ColumnOrder)+2)
	for i := range placeholders {
		placeholders[i] = store.Placeholder
	}
	columns := append([]string{"row_number", "row_order"}, t.ColumnOrder...)
	values := append([]any{rowNumber, rowOrder}, row.Values(t.ColumnOrder)...)

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", dest, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.Exec(m.rewrite(q), values...); err != nil {
		return errs.Wrap(errs.Database, fmt.Sprintf("inserting row into %s", dest), err)
	}
	return nil
}

// allocateRowOrder returns max(row_order)+1 across base and conflict for
// table, the position a freshly inserted row lands at (append to the end).
func (m *Mutator) allocateRowOrder(tx *sql.Tx, table string) (int64, error) {
	var maxBase, maxConflict sql.NullInt64
	if err := tx.QueryRow(fmt.Sprintf("SELECT MAX(row_order) FROM %s", table)).Scan(&maxBase); err != nil {
		return 0, errs.Wrap(errs.Database, "allocating row order", err)
	}
	if err := tx.QueryRow(fmt.Sprintf("SELECT MAX(row_order) FROM %s_conflict", table)).Scan(&maxConflict); err != nil {
		return 0, errs.Wrap(errs.Database, "allocating row order", err)
	}
	max := int64(0)
	if maxBase.Valid && maxBase.Int64 > max {
		max = maxBase.Int64
	}
	if maxConflict.Valid && maxConflict.Int64 > max {
		max = maxConflict.Int64
	}
	return max + 1, nil
}

// currentRowOrderOf returns the row_order currently assigned to
// (table,rowNumber), for preserving it across a delete+reinsert.
func (m *Mutator) currentRowOrderOf(tx *sql.Tx, table string, rowNumber int64) (int64, error) {
	q := fmt.Sprintf("SELECT row_order FROM %s_view WHERE row_number = %s", table, store.Placeholder)
	var order sql.NullInt64
	if err := tx.QueryRow(m.rewrite(q), rowNumber).Scan(&order); err != nil {
		return 0, errs.Wrap(errs.Database, "reading row order", err)
	}
	if order.Valid {
		return order.Int64, nil
	}
	return rowNumber, nil
}

// persistMessages writes every message produced for a row into the
// `message` table.
func (m *Mutator) persistMessages(tx *sql.Tx, table string, rowNumber int64, messages []validate.Message) error {
	for _, msg := range messages {
		q := fmt.Sprintf(`INSERT INTO message ("table", row, "column", value, level, rule, message) VALUES (%s, %s, %s, %s, %s, %s, %s)`,
			store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder)
		if _, err := tx.Exec(m.rewrite(q), table, rowNumber, msg.Column, msg.Value, msg.Level, msg.Rule, msg.Message); err != nil {
			return errs.Wrap(errs.Database, "persisting message", err)
		}
	}
	return nil
}

// deleteMessagesForRow removes every message attached to (table,row), used
// before re-inserting a row's messages on update.
func (m *Mutator) deleteMessagesForRow(tx *sql.Tx, table string, rowNumber int64) error {
	q := fmt.Sprintf(`DELETE FROM message WHERE "table" = %s AND row = %s`, store.Placeholder, store.Placeholder)
	_, err := tx.Exec(m.rewrite(q), table, rowNumber)
	if err != nil {
		return errs.Wrap(errs.Database, "deleting row messages", err)
	}
	return nil
}

// allocateRowNumber returns max(row_number)+1 across base, conflict, and
// history for table.
func (m *Mutator) allocateRowNumber(tx *sql.Tx, table string) (int64, error) {
	var maxBase, maxConflict, maxHistory sql.NullInt64
	if err := tx.QueryRow(fmt.Sprintf("SELECT MAX(row_number) FROM %s", table)).Scan(&maxBase); err != nil {
		return 0, errs.Wrap(errs.Database, "allocating row number", err)
	}
	if err := tx.QueryRow(fmt.Sprintf("SELECT MAX(row_number) FROM %s_conflict", table)).Scan(&maxConflict); err != nil {
		return 0, errs.Wrap(errs.Database, "allocating row number", err)
	}
	if err := tx.QueryRow(m.rewrite(fmt.Sprintf(`SELECT MAX(row) FROM history WHERE "table" = %s`, store.Placeholder)), table).Scan(&maxHistory); err != nil {
		return 0, errs.Wrap(errs.Database, "allocating row number", err)
	}
	max := int64(0)
	if maxBase.Valid && maxBase.Int64 > max {
		max = maxBase.Int64
	}
	if maxConflict.Valid && maxConflict.Int64 > max {
		max = maxConflict.Int64
	}
	if maxHistory.Valid && maxHistory.Int64 > max {
		max = maxHistory.Int64
	}
	return max + 1, nil
}

// recordHistory records a history entry with a per-column summary between
// from/to, tagged with batchID so cascade-related entries can be found
// together.
func (m *Mutator) recordHistory(tx *sql.Tx, table string, rowNumber int64, from, to map[string]string, user, batchID string) error {
	summary := history.Summarize(from, to, validate.LevelUpdate, nil)
	summaryJSON, err := marshalSummary(summary)
	if err != nil {
		return errs.Wrap(errs.Serialization, "marshaling history summary", err)
	}
	fromJSON, err := marshalRow(from)
	if err != nil {
		return errs.Wrap(errs.Serialization, "marshaling history 'from'", err)
	}
	toJSON, err := marshalRow(to)
	if err != nil {
		return errs.Wrap(errs.Serialization, "marshaling history 'to'", err)
	}

	q := fmt.Sprintf(`INSERT INTO history ("table", row, "from", "to", summary, "user", undone_by, timestamp, batch_id) VALUES (%s, %s, %s, %s, %s, %s, NULL, %s, %s)`,
		store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder)
	_, err = tx.Exec(m.rewrite(q), table, rowNumber, nullIfEmpty(from, fromJSON), nullIfEmpty(to, toJSON), summaryJSON, user, time.Now().Unix(), batchID)
	if err != nil {
		return errs.Wrap(errs.Database, "recording history", err)
	}
	return nil
}

// nullIfEmpty turns a nil row's marshaled "" into a real SQL NULL, so
// revertTo can tell "row did not exist" apart from "row was all blanks".
func nullIfEmpty(row map[string]string, marshaled string) any {
	if row == nil {
		return nil
	}
	return marshaled
}
