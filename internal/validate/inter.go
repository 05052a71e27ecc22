package validate

import (
	"database/sql"
	"fmt"

	"github.com/ontodev/valve-go/internal/config"
	"github.com/ontodev/valve-go/internal/schema"
	"github.com/ontodev/valve-go/internal/store"
)

// Queryer is the subset of *sql.Tx inter-row validation needs; satisfied by
// *sql.Tx and useful to stub in tests.
type Queryer interface {
	QueryRow(query string, args...any) *sql.Row
	Query(query string, args...any) (*sql.Rows, error)
}

// InterRow checks unique/primary, foreign, tree, and
// under checks against the current database state (within tx), honoring an
// optional counterfactual substitution. It returns the row with inter-row
// messages appended and whether the row must be routed to the conflict
// table.
func InterRow(tx Queryer, dialect schema.Dialect, cfg *config.Config, table string, rowNumber int64, row Row, asIf *QueryAsIf) (Row, bool, error) {
	cons := cfg.Constraints[table]
	if cons == nil {
		return row, false, nil
	}
	conflict := false

	keyColumns := append(append([]string{}, cons.Primary...), cons.Unique...)
	for _, col := range keyColumns {
		cell := row[col]
		if cell == nil || cell.IsNull {
			continue
		}
		exists, err := valueExistsInBase(tx, dialect, table, col, cell.Value, rowNumber)
		if err != nil {
			return row, false, err
		}
		if exists {
			conflict = true
			cell.Valid = false
			cell.Messages = append(cell.Messages, Message{
				Table: table, Column: col, Value: cell.Value, Level: LevelError,
				Rule: "key:unique",
				Message: fmt.Sprintf("value %q already exists in %s.%s", cell.Value, table, col),
			})
		}
	}

	for _, fe := range cons.Foreign {
		cell := row[fe.Column]
		if cell == nil || cell.IsNull {
			continue
		}
		exists, err := valueExistsInView(tx, dialect, fe.ForeignTable, fe.ForeignColumn, cell.Value)
		if err != nil {
			return row, false, err
		}
		if !exists && asIf != nil && asIf.Table == fe.ForeignTable {
			// The as-if edit hasn't been committed, so it isn't in the
			// view yet; honor it directly.
			exists = asIfProvidesValue(asIf, fe.ForeignColumn, cell.Value)
		}
		if !exists {
			conflict = true
			cell.Valid = false
			cell.Messages = append(cell.Messages, Message{
				Table: table, Column: fe.Column, Value: cell.Value, Level: LevelError,
				Rule: "foreign:" + fe.ForeignTable + "." + fe.ForeignColumn,
				Message: fmt.Sprintf("value %q does not exist in %s.%s", cell.Value, fe.ForeignTable, fe.ForeignColumn),
			})
		}
	}

	for _, te := range cons.Tree {
		cell := row[te.Child]
		if cell == nil || cell.IsNull {
			continue
		}
		exists, err := valueExistsInView(tx, dialect, table, te.Parent, cell.Value)
		if err != nil {
			return row, false, err
		}
		if !exists {
			conflict = true
			cell.Valid = false
			cell.Messages = append(cell.Messages, Message{
				Table: table, Column: te.Child, Value: cell.Value, Level: LevelError,
				Rule: "tree:" + te.Parent,
				Message: fmt.Sprintf("value %q is not the value of any row's %s column", cell.Value, te.Parent),
			})
		}
	}

	for _, ue := range cons.Under {
		cell := row[ue.Column]
		if cell == nil || cell.IsNull {
			continue
		}
		ok, err := underHolds(tx, dialect, cfg, ue, cell.Value)
		if err != nil {
			return row, false, err
		}
		if !ok {
			conflict = true
			cell.Valid = false
			cell.Messages = append(cell.Messages, Message{
				Table: table, Column: ue.Column, Value: cell.Value, Level: LevelError,
				Rule: "under:" + ue.TreeTable + "." + ue.TreeColumn,
				Message: fmt.Sprintf("value %q is not under %q in %s.%s", cell.Value, ue.Value, ue.TreeTable, ue.TreeColumn),
			})
		}
	}

	return row, conflict, nil
}

func asIfProvidesValue(asIf *QueryAsIf, column, value string) bool {
	if asIf.Kind == AsIfRemove || asIf.Row == nil {
		return false
	}
	cell := asIf.Row[column]
	return cell != nil && !cell.IsNull && cell.Value == value
}

func valueExistsInBase(tx Queryer, dialect schema.Dialect, table, column, value string, excludeRowNumber int64) (bool, error) {
	q := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s AND row_number != %s LIMIT 1",
		table, column, store.Placeholder, store.Placeholder)
	row := tx.QueryRow(store.RewritePlaceholders(dialect, q), value, excludeRowNumber)
	return rowExists(row)
}

func valueExistsInView(tx Queryer, dialect schema.Dialect, table, column, value string) (bool, error) {
	q := fmt.Sprintf("SELECT 1 FROM %s_view WHERE %s = %s LIMIT 1", table, column, store.Placeholder)
	row := tx.QueryRow(store.RewritePlaceholders(dialect, q), value)
	return rowExists(row)
}

func rowExists(row *sql.Row) (bool, error) {
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// underHolds checks that value lies in the
// transitive closure of descendants of ue.Value in the tree rooted at
// ue.TreeTable/ue.TreeColumn. Closure is computed breadth-first in Go
// rather than via a recursive SQL CTE so the same code path works
// identically against both backends; recursion is bounded by the tree's
// depth, which is finite because the intra-table tree graph is acyclic by
// construction.
func underHolds(tx Queryer, dialect schema.Dialect, cfg *config.Config, ue config.UnderEdge, value string) (bool, error) {
	if value == ue.Value {
		return true, nil
	}

	pointerColumn, err := pointerColumnFor(cfg, ue)
	if err != nil {
		return false, err
	}

	visited := map[string]bool{ue.Value: true}
	frontier := []string{ue.Value}
	const maxDepth = 10000 // generous guard; real trees are far shallower
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		q := fmt.Sprintf("SELECT %s FROM %s_view WHERE %s IN (%s)", ue.TreeColumn, ue.TreeTable, pointerColumn, placeholderList(len(frontier)))
		rows, err := tx.Query(store.RewritePlaceholders(dialect, q), toAny(frontier)...)
		if err != nil {
			return false, err
		}
		var next []string
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return false, err
			}
			if v == value {
				rows.Close()
				return true, nil
			}
			if !visited[v] {
				visited[v] = true
				next = append(next, v)
			}
		}
		rows.Close()
		frontier = next
	}
	return false, nil
}

// pointerColumnFor finds the tree-pointer column (the child side of the
// tree(C) structure rooted at ue.TreeColumn) within ue.TreeTable, so
// underHolds can walk "whose pointer column equals this id" one level at a
// time. A tree(C) is guaranteed to exist rooted at T.C wherever under(T.C, V)
// is declared; deriveConstraints checks this at load time.
func pointerColumnFor(cfg *config.Config, ue config.UnderEdge) (string, error) {
	cons := cfg.Constraints[ue.TreeTable]
	if cons == nil {
		return "", fmt.Errorf("under(%s.%s,...): table %q has no constraints", ue.TreeTable, ue.TreeColumn, ue.TreeTable)
	}
	for _, te := range cons.Tree {
		if te.Parent == ue.TreeColumn {
			return te.Child, nil
		}
	}
	return "", fmt.Errorf("under(%s.%s,...): no tree(...) rooted at %s.%s", ue.TreeTable, ue.TreeColumn, ue.TreeTable, ue.TreeColumn)
}

func placeholderList(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ", "
		}
		s += store.Placeholder
	}
	return s
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
