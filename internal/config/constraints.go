package config

import "github.com/ontodev/valve-go/internal/errs"

// deriveConstraints extracts constraints and checks the
// column-structure invariants: a tree(C) column's child argument C must
// share its SQL type, and under(T.C, V) requires a tree rooted at T.C.
func deriveConstraints(cfg *Config) error {
	for name, t := range cfg.Tables {
		if t.Type != KindUser {
			continue
		}
		cons := &Constraints{}
		for _, colName := range t.ColumnOrder {
			col := t.Columns[colName]
			switch col.Structure.Kind {
			case StructurePrimary:
				cons.Primary = append(cons.Primary, colName)
			case StructureUnique:
				cons.Unique = append(cons.Unique, colName)
			case StructureFrom:
				if _, ok := cfg.Tables[col.Structure.FromTable]; !ok {
					return errs.Configf("table %s column %s: from() references unknown table %q", name, colName, col.Structure.FromTable)
				}
				cons.Foreign = append(cons.Foreign, ForeignEdge{
					Column: colName,
					ForeignTable: col.Structure.FromTable,
					ForeignColumn: col.Structure.FromColumn,
				})
			case StructureTree:
				childCol, ok := t.Columns[col.Structure.TreeChildColumn]
				if !ok {
					return errs.Configf("table %s column %s: tree() references unknown column %q", name, colName, col.Structure.TreeChildColumn)
				}
				if sqlTypeOf(cfg, col.Datatype) != sqlTypeOf(cfg, childCol.Datatype) {
					return errs.Configf("table %s column %s: tree() child column %q must share its SQL type", name, colName, col.Structure.TreeChildColumn)
				}
				cons.Tree = append(cons.Tree, TreeEdge{Parent: colName, Child: col.Structure.TreeChildColumn})
			case StructureUnder:
				if _, ok := cfg.Tables[col.Structure.UnderTable]; !ok {
					return errs.Configf("table %s column %s: under() references unknown table %q", name, colName, col.Structure.UnderTable)
				}
				cons.Under = append(cons.Under, UnderEdge{
					Column: colName,
					TreeTable: col.Structure.UnderTable,
					TreeColumn: col.Structure.UnderColumn,
					Value: col.Structure.UnderValue,
				})
			}
		}
		cfg.Constraints[name] = cons
	}

	// under(T.C, V) requires a tree to exist rooted at T.C.
	for name, cons := range cfg.Constraints {
		for _, u := range cons.Under {
			treeCons, ok := cfg.Constraints[u.TreeTable]
			if !ok {
				return errs.Configf("table %s: under() references table %q with no constraints", name, u.TreeTable)
			}
			found := false
			for _, te := range treeCons.Tree {
				if te.Parent == u.TreeColumn {
					found = true
					break
				}
			}
			if !found {
				return errs.Configf("table %s: under(%s.%s,...) requires a tree(...) rooted at %s.%s", name, u.TreeTable, u.TreeColumn, u.TreeTable, u.TreeColumn)
			}
		}
	}

	return validateTreeAcyclicity(cfg)
}

func sqlTypeOf(cfg *Config, datatypeName string) string {
	dt, ok := cfg.Datatypes[datatypeName]
	if !ok {
		return ""
	}
	return dt.SQLType
}

// validateTreeAcyclicity checks the intra-table tree graph (parent->child
// column edges) of every table is acyclic.
func validateTreeAcyclicity(cfg *Config) error {
	for name, cons := range cfg.Constraints {
		edges := map[string]string{}
		for _, te := range cons.Tree {
			edges[te.Parent] = te.Child
		}
		for start := range edges {
			seen := map[string]bool{}
			cur := start
			for {
				next, ok := edges[cur]
				if !ok {
					break
				}
				if seen[cur] {
					return errs.Configf("table %s: tree column %q forms a cycle", name, start)
				}
				seen[cur] = true
				cur = next
			}
		}
	}
	return nil
}
