package schema

import (
	"fmt"
	"strings"

	"github.com/ontodev/valve-go/internal/config"
)

// Materializer emits DDL for a loaded configuration against one dialect.
type Materializer struct {
	Dialect Dialect
	Cfg *config.Config
}

// New returns a Materializer for cfg targeting dialect.
func New(cfg *config.Config, dialect Dialect) *Materializer {
	return &Materializer{Dialect: dialect, Cfg: cfg}
}

// AllDDL returns the full ordered DDL script for the configuration: for
// each user table (in load order) its base table, conflict table, indexes,
// and views, plus the message and history tables.
func (m *Materializer) AllDDL() ([]string, error) {
	var stmts []string
	stmts = append(stmts, m.messageTableDDL(), m.historyTableDDL())

	for _, name := range m.Cfg.SortedTables {
		t := m.Cfg.Tables[name]
		if t == nil || t.Type != config.KindUser {
			continue
		}
		tableStmts, err := m.TableDDL(name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, tableStmts...)
	}
	return stmts, nil
}

// TableDDL emits everything for one user table: (i) base CREATE TABLE,
// (ii) the conflict CREATE TABLE without constraints, (iii) unique indexes
// on row_number, (iv) an implicit unique index on tree-child columns,
// (v) the unifying view, (vi) the all-text view.
func (m *Materializer) TableDDL(table string) ([]string, error) {
	t, ok := m.Cfg.Tables[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	cons := m.Cfg.Constraints[table]

	var stmts []string
	stmts = append(stmts, m.createTable(t, cons, table, false))
	stmts = append(stmts, m.createTable(t, cons, table+"_conflict", true))
	stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX %s_row_number_idx ON %s (row_number)", table, table))
	stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX %s_conflict_row_number_idx ON %s_conflict (row_number)", table, table))

	primaryOrUnique := map[string]bool{}
	for _, c := range cons.Primary {
		primaryOrUnique[c] = true
	}
	for _, c := range cons.Unique {
		primaryOrUnique[c] = true
	}
	for _, te := range cons.Tree {
		if !primaryOrUnique[te.Child] {
			stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX %s_%s_tree_idx ON %s (%s)", table, te.Child, table, te.Child))
		}
	}

	stmts = append(stmts, m.view(t))
	stmts = append(stmts, m.textView(t))

	return stmts, nil
}

func (m *Materializer) createTable(t *config.Table, cons *config.Constraints, name string, isConflict bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n row_number BIGINT,\n row_order BIGINT", name)

	for _, colName := range t.ColumnOrder {
		col := t.Columns[colName]
		sqlType := m.sqlType(col.Datatype)
		fmt.Fprintf(&b, ",\n %s %s", colName, sqlType)
	}

	if !isConflict {
		if len(cons.Primary) > 0 {
			fmt.Fprintf(&b, ",\n PRIMARY KEY (%s)", strings.Join(cons.Primary, ", "))
		}
		for _, u := range cons.Unique {
			fmt.Fprintf(&b, ",\n UNIQUE (%s)", u)
		}
		for _, fe := range cons.Foreign {
			fmt.Fprintf(&b, ",\n FOREIGN KEY (%s) REFERENCES %s (%s)", fe.Column, fe.ForeignTable, fe.ForeignColumn)
		}
	}

	b.WriteString("\n)")
	return b.String()
}

func (m *Materializer) sqlType(datatypeName string) string {
	dt, ok := m.Cfg.Datatypes[datatypeName]
	if !ok {
		return "TEXT"
	}
	switch strings.ToLower(dt.SQLType) {
	case "text":
		return "TEXT"
	case "varchar":
		return "VARCHAR"
	case "numeric":
		return "NUMERIC"
	case "integer":
		return "INTEGER"
	case "real":
		return "REAL"
	default:
		return "TEXT"
	}
}

func (m *Materializer) messageTableDDL() string {
	idCol := m.Dialect.autoincrementPrimaryKey("message_id")
	return fmt.Sprintf(`CREATE TABLE message (
 %s,
 "table" TEXT,
 row BIGINT,
 "column" TEXT,
 value TEXT,
 level TEXT,
 rule TEXT,
 message TEXT
)`, idCol)
}

func (m *Materializer) historyTableDDL() string {
	idCol := m.Dialect.autoincrementPrimaryKey("history_id")
	return fmt.Sprintf(`CREATE TABLE history (
 %s,
 "table" TEXT,
 row BIGINT,
 "from" TEXT,
 "to" TEXT,
 summary TEXT,
 "user" TEXT,
 undone_by TEXT,
 timestamp TIMESTAMP,
 batch_id TEXT
)`, idCol)
}
