// Package loader implements chunked, concurrent bulk loading of a table's
// TSV data into the database: split into fixed-size chunks, validate
// chunks in parallel batches of host-CPU-count size, then insert each
// chunk's rows with a fast multi-row INSERT that falls back to per-row
// inter-row validation and split base/conflict insertion on a constraint
// violation.
package loader

import (
	"database/sql"
	"fmt"
	"runtime"
	"strings"

	"github.com/ontodev/valve-go/internal/config"
	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/history"
	"github.com/ontodev/valve-go/internal/logging"
	"github.com/ontodev/valve-go/internal/schema"
	"github.com/ontodev/valve-go/internal/store"
	"github.com/ontodev/valve-go/internal/tsv"
	"github.com/ontodev/valve-go/internal/validate"
)

// ChunkSize is the number of TSV data rows per chunk.
const ChunkSize = 500

// chunkRow is one raw TSV row paired with the row_number it will occupy,
// computed up front so ordering survives concurrent validation.
type chunkRow struct {
	rowNumber int64
	values map[string]string
}

// validatedRow is a chunkRow after intra-row validation.
type validatedRow struct {
	rowNumber int64
	raw map[string]string
	row validate.Row
}

// Loader drives the bulk load of one or more tables into a Store.
type Loader struct {
	Store *store.Store
	Cfg *config.Config
	Logger logging.Logger
	Concurrency int // 0 means runtime.NumCPU()
}

// New returns a Loader. If logger is nil, a NullLogger is used.
func New(st *store.Store, cfg *config.Config, logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Loader{Store: st, Cfg: cfg, Logger: logger}
}

// LoadAll loads every user table in the configuration's dependency order.
func (l *Loader) LoadAll() error {
	for _, name := range l.Cfg.SortedTables {
		t := l.Cfg.Tables[name]
		if t == nil || t.Type != config.KindUser {
			continue
		}
		if err := l.LoadTable(name); err != nil {
			return err
		}
	}
	return nil
}

// LoadTable loads one table's TSV file.
func (l *Loader) LoadTable(table string) error {
	t, ok := l.Cfg.Tables[table]
	if !ok {
		return errs.Configf("unknown table %q", table)
	}
	tsvTable, err := tsv.ReadFile(t.Path)
	if err != nil {
		return err
	}
	if err := tsv.HeaderPermutation(t.ColumnOrder, tsvTable.Header); err != nil {
		return errs.Wrap(errs.Config, fmt.Sprintf("table %s header", table), err)
	}

	batchID := NewBatchIDForLoad()

	chunks := l.splitIntoChunks(tsvTable)
	concurrency := l.Concurrency
	if concurrency == 0 {
		concurrency = runtime.NumCPU()
	}

	batchSize := concurrency
	if batchSize <= 0 {
		batchSize = 1
	}
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		validatedBatch, err := validateChunksConcurrently(batch, concurrency, func(chunk []chunkRow) ([]validatedRow, error) {
			return l.validateChunk(table, chunk)
		})
		if err != nil {
			return errs.Wrap(errs.Data, fmt.Sprintf("validating %s chunk", table), err)
		}

		for _, chunk := range validatedBatch {
			if err := l.insertChunk(table, chunk); err != nil {
				return err
			}
		}

		l.Logger.Printf("loaded %s: %d chunks in batch %s", table, len(batch), batchID)
	}

	return nil
}

// splitIntoChunks splits the TSV's data rows into
// fixed-size chunks, pre-assigning each row's final row_number.
func (l *Loader) splitIntoChunks(t *tsv.Table) [][]chunkRow {
	rowMaps := t.RowMaps()
	var chunks [][]chunkRow
	for chunkIndex := 0; chunkIndex*ChunkSize < len(rowMaps); chunkIndex++ {
		start := chunkIndex * ChunkSize
		end := start + ChunkSize
		if end > len(rowMaps) {
			end = len(rowMaps)
		}
		chunk := make([]chunkRow, 0, end-start)
		for i := start; i < end; i++ {
			chunk = append(chunk, chunkRow{
				rowNumber: int64(chunkIndex)*ChunkSize + int64(i-start) + 1,
				values: rowMaps[i],
			})
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// validateChunk runs intra-row validation over one chunk. It touches no
// database and is safe to run on a worker goroutine ;
// workers share l.Cfg's compiled conditions by reference, never copying or
// recompiling them.
func (l *Loader) validateChunk(table string, chunk []chunkRow) ([]validatedRow, error) {
	out := make([]validatedRow, len(chunk))
	for i, cr := range chunk {
		row, err := validate.IntraRow(l.Cfg, table, cr.values)
		if err != nil {
			return nil, err
		}
		out[i] = validatedRow{rowNumber: cr.rowNumber, raw: cr.values, row: row}
	}
	return out, nil
}

// insertChunk attempts one multi-row fast-path
// INSERT for the whole chunk; on a constraint error, fall back to inserting
// row by row with full inter-row validation and conflict routing.
func (l *Loader) insertChunk(table string, chunk []validatedRow) error {
	tx, err := l.Store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	anyError := false
	for _, vr := range chunk {
		if vr.row.HasError() {
			anyError = true
			break
		}
	}

	if !anyError {
		fastErr := l.fastPathInsert(tx, table, chunk)
		if fastErr == nil {
			if err := l.persistChunkMessages(tx, table, chunk); err != nil {
				return err
			}
			return commitLoad(tx)
		}
		if !isConstraintViolation(fastErr) {
			return fastErr
		}
		// Fast path failed on a constraint; fall through to slow path in a
		// fresh transaction (the failed one may be aborted by the driver).
		tx.Rollback()
		tx, err = l.Store.DB().Begin()
		if err != nil {
			return errs.Wrap(errs.Database, "beginning transaction", err)
		}
		defer tx.Rollback()
	}

	if err := l.slowPathInsert(tx, table, chunk); err != nil {
		return err
	}
	return commitLoad(tx)
}

// fastPathInsert implements the "most chunks have no constraint violations"
// optimization: a single multi-row INSERT into
// the base table, skipping per-row inter-row checks entirely.
func (l *Loader) fastPathInsert(tx *sql.Tx, table string, chunk []validatedRow) error {
	t := l.Cfg.Tables[table]
	columns := append([]string{"row_number", "row_order"}, t.ColumnOrder...)

	var valueTuples []string
	var args []any
	for _, vr := range chunk {
		placeholders := make([]string, len(columns))
		for i := range placeholders {
			placeholders[i] = store.Placeholder
		}
		valueTuples = append(valueTuples, "("+strings.Join(placeholders, ", ")+")")
		args = append(args, vr.rowNumber, vr.rowNumber)
		args = append(args, vr.row.Values(t.ColumnOrder)...)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(columns, ", "), strings.Join(valueTuples, ", "))
	_, err := tx.Exec(store.RewritePlaceholders(l.Store.Dialect, q), args...)
	if err != nil {
		return errs.Wrap(errs.Database, fmt.Sprintf("fast-path insert into %s", table), err)
	}
	return nil
}

// slowPathInsert is the fallback: run inter-row
// validation per row (honoring rows already decided earlier in the same
// chunk via an as-if substitution isn't needed here, since bulk load never
// references rows from its own not-yet-committed chunk) and route each row
// to base or conflict individually.
func (l *Loader) slowPathInsert(tx *sql.Tx, table string, chunk []validatedRow) error {
	t := l.Cfg.Tables[table]
	for _, vr := range chunk {
		row, conflict, err := validate.InterRow(tx, l.Store.Dialect, l.Cfg, table, vr.rowNumber, vr.row, nil)
		if err != nil {
			return errs.Wrap(errs.Database, fmt.Sprintf("inter-row validation for %s row %d", table, vr.rowNumber), err)
		}

		dest := table
		if conflict {
			dest = table + "_conflict"
		}
		columns := append([]string{"row_number", "row_order"}, t.ColumnOrder...)
		placeholders := make([]string, len(columns))
		for i := range placeholders {
			placeholders[i] = store.Placeholder
		}
		args := append([]any{vr.rowNumber, vr.rowNumber}, row.Values(t.ColumnOrder)...)
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", dest, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.Exec(store.RewritePlaceholders(l.Store.Dialect, q), args...); err != nil {
			return errs.Wrap(errs.Database, fmt.Sprintf("slow-path insert into %s", dest), err)
		}

		if err := l.persistMessages(tx, table, vr.rowNumber, row.AllMessages()); err != nil {
			return err
		}
	}
	return nil
}

// persistChunkMessages writes every message produced by a fast-path chunk.
func (l *Loader) persistChunkMessages(tx *sql.Tx, table string, chunk []validatedRow) error {
	for _, vr := range chunk {
		if err := l.persistMessages(tx, table, vr.rowNumber, vr.row.AllMessages()); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) persistMessages(tx *sql.Tx, table string, rowNumber int64, messages []validate.Message) error {
	for _, msg := range messages {
		q := fmt.Sprintf(`INSERT INTO message ("table", row, "column", value, level, rule, message) VALUES (%s, %s, %s, %s, %s, %s, %s)`,
			store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder, store.Placeholder)
		if _, err := tx.Exec(store.RewritePlaceholders(l.Store.Dialect, q), table, rowNumber, msg.Column, msg.Value, msg.Level, msg.Rule, msg.Message); err != nil {
			return errs.Wrap(errs.Database, "persisting message", err)
		}
	}
	return nil
}

func commitLoad(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Database, "committing load chunk", err)
	}
	return nil
}

// CreateAll materializes DDL for the whole configuration, used by
// the `create-all` CLI verb ahead of `load-all`.
func CreateAll(st *store.Store, cfg *config.Config) error {
	mat := schema.New(cfg, st.Dialect)
	stmts, err := mat.AllDDL()
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := st.DB().Exec(stmt); err != nil {
			return errs.Wrap(errs.Database, "executing DDL", err)
		}
	}
	return nil
}

// DropAll drops every user table (and its conflict table and views) plus
// message and history, used by the `drop-all` CLI verb.
func DropAll(st *store.Store, cfg *config.Config) error {
	for i := len(cfg.SortedTables) - 1; i >= 0; i-- {
		name := cfg.SortedTables[i]
		t := cfg.Tables[name]
		if t == nil {
			continue
		}
		if t.Type == config.KindUser {
			if err := dropTable(st, name); err != nil {
				return err
			}
		}
	}
	for _, stmt := range []string{"DROP TABLE IF EXISTS message", "DROP TABLE IF EXISTS history"} {
		if _, err := st.DB().Exec(stmt); err != nil {
			return errs.Wrap(errs.Database, "dropping table", err)
		}
	}
	return nil
}

func dropTable(st *store.Store, name string) error {
	stmts := []string{
		fmt.Sprintf("DROP VIEW IF EXISTS %s_text_view", name),
		fmt.Sprintf("DROP VIEW IF EXISTS %s_view", name),
		fmt.Sprintf("DROP TABLE IF EXISTS %s_conflict", name),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", name),
	}
	for _, stmt := range stmts {
		if _, err := st.DB().Exec(stmt); err != nil {
			return errs.Wrap(errs.Database, "dropping table", err)
		}
	}
	return nil
}

// NewBatchIDForLoad mints a correlation id a bulk-load run can attach to
// its log lines, reusing history's uuid-based id generator for consistency
// with the mutator's batch ids.
func NewBatchIDForLoad() string { return history.NewBatchID() }
