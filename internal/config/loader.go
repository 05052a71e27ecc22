package config

import (
	"fmt"
	"path/filepath"

	"github.com/ontodev/valve-go/internal/condition"
	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/lang"
	"github.com/ontodev/valve-go/internal/tsv"
)

// Load reads the table meta-table at tablePath, discovers
// and read the other three meta-tables, validate every cross-reference,
// open each user table's TSV header, derive constraints, synthesize the
// message/history tables, and produce the sorted load order.
func Load(tablePath string) (*Config, error) {
	tableTSV, err := tsv.ReadFile(tablePath)
	if err != nil {
		return nil, err
	}
	if err := tsv.HeaderPermutation(TableMetaColumns, tableTSV.Header); err != nil {
		return nil, errs.Configf("table meta-table %s: %v", tablePath, err)
	}

	cfg := &Config{
		Tables: map[string]*Table{},
		Datatypes: map[string]*Datatype{},
		Constraints: map[string]*Constraints{},
	}

	metaPaths := map[TableKind]string{}
	baseDir := filepath.Dir(tablePath)

	for _, row := range tableTSV.RowMaps() {
		name := row["table"]
		if name == "" {
			return nil, errs.Configf("table meta-table %s: row with empty table name", tablePath)
		}
		kind := TableKind(row["type"])
		t := &Table{
			Name: name,
			Path: resolvePath(baseDir, row["path"]),
			Type: kind,
			Description: row["description"],
			Columns: map[string]*Column{},
		}
		if _, dup := cfg.Tables[name]; dup {
			return nil, errs.Configf("table meta-table %s: duplicate table %q", tablePath, name)
		}
		cfg.Tables[name] = t

		switch kind {
		case KindTable:
			if name != "table" {
				return nil, errs.Configf("table meta-table %s: only the table named 'table' may have type 'table', found %q", tablePath, name)
			}
			if t.Path != "" && t.Path != tablePath && filepath.Base(t.Path) != filepath.Base(tablePath) {
				return nil, errs.Configf("table meta-table %s: its own declared path %q does not match the file it was read from", tablePath, t.Path)
			}
			metaPaths[KindTable] = tablePath
		case KindColumn, KindDatatype, KindRule:
			if existing, dup := metaPaths[kind]; dup {
				return nil, errs.Configf("table meta-table %s: duplicate meta-table of type %q (%s and %s)", tablePath, kind, existing, t.Path)
			}
			metaPaths[kind] = t.Path
		}
	}

	if _, ok := metaPaths[KindColumn]; !ok {
		return nil, errs.Configf("table meta-table %s: missing required meta-table of type 'column'", tablePath)
	}
	if _, ok := metaPaths[KindDatatype]; !ok {
		return nil, errs.Configf("table meta-table %s: missing required meta-table of type 'datatype'", tablePath)
	}

	parser := lang.NewParser()

	if err := loadDatatypes(cfg, parser, metaPaths[KindDatatype]); err != nil {
		return nil, err
	}
	if err := loadColumns(cfg, parser, metaPaths[KindColumn]); err != nil {
		return nil, err
	}
	if rulePath, ok := metaPaths[KindRule]; ok {
		if err := loadRules(cfg, parser, rulePath); err != nil {
			return nil, err
		}
	}
	if err := openUserTableHeaders(cfg); err != nil {
		return nil, err
	}
	if err := deriveConstraints(cfg); err != nil {
		return nil, err
	}

	synthesizeMessageAndHistory(cfg)

	sorted, err := sortTables(cfg)
	if err != nil {
		return nil, err
	}
	cfg.SortedTables = append([]string{"message", "history"}, sorted...)

	return cfg, nil
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func loadDatatypes(cfg *Config, parser *lang.Parser, path string) error {
	table, err := tsv.ReadFile(path)
	if err != nil {
		return err
	}
	if err := tsv.HeaderPermutation(DatatypeMetaColumns, table.Header); err != nil {
		return errs.Configf("datatype meta-table %s: %v", path, err)
	}

	for _, row := range table.RowMaps() {
		name := row["datatype"]
		if name == "" {
			return errs.Configf("datatype meta-table %s: row with empty datatype name", path)
		}
		if _, dup := cfg.Datatypes[name]; dup {
			return errs.Configf("datatype meta-table %s: duplicate datatype %q", path, name)
		}
		cfg.Datatypes[name] = &Datatype{
			Name: name,
			Parent: row["parent"],
			Condition: row["condition"],
			SQLType: row["SQL type"],
			HTMLType: row["HTML type"],
			Description: row["description"],
			Structure: row["structure"],
			Transform: row["transform"],
		}
	}

	for _, required := range RequiredDatatypes {
		if _, ok := cfg.Datatypes[required]; !ok {
			return errs.Configf("datatype meta-table %s: missing required datatype %q", path, required)
		}
	}

	if err := resolveSQLTypes(cfg); err != nil {
		return err
	}

	order, err := sortDatatypes(cfg)
	if err != nil {
		return err
	}
	cfg.DatatypeOrder = order

	compiled := map[string]*condition.Compiled{}
	for _, name := range order {
		dt := cfg.Datatypes[name]
		c, err := condition.Compile(parser, dt.Condition, compiled)
		if err != nil {
			return errs.Configf("datatype %q: %v", name, err)
		}
		compiled[name] = c
		dt.Compiled = c
	}

	return nil
}

// resolveSQLTypes climbs the parent chain to fill in any datatype missing
// an explicit SQL type.
func resolveSQLTypes(cfg *Config) error {
	var resolve func(name string, seen map[string]bool) (string, error)
	resolve = func(name string, seen map[string]bool) (string, error) {
		dt, ok := cfg.Datatypes[name]
		if !ok {
			return "", fmt.Errorf("datatype %q has unknown parent", name)
		}
		if dt.SQLType != "" {
			return dt.SQLType, nil
		}
		if dt.Parent == "" {
			return "", fmt.Errorf("datatype %q has no SQL type and no parent", name)
		}
		if seen[name] {
			return "", fmt.Errorf("datatype %q parent chain is cyclic", name)
		}
		seen[name] = true
		parentType, err := resolve(dt.Parent, seen)
		if err != nil {
			return "", err
		}
		return parentType, nil
	}

	for name, dt := range cfg.Datatypes {
		if dt.SQLType == "" {
			t, err := resolve(name, map[string]bool{})
			if err != nil {
				return errs.Configf("resolving SQL type: %v", err)
			}
			dt.SQLType = t
		}
	}
	return nil
}

// sortDatatypes returns datatype names in parent-before-child order so
// condition compilation can resolve bare-Label references to already
// compiled predicates.
func sortDatatypes(cfg *Config) ([]string, error) {
	const root = ""
	children := map[string][]string{}
	for name, dt := range cfg.Datatypes {
		children[dt.Parent] = append(children[dt.Parent], name)
	}

	var order []string
	visited := map[string]bool{}
	var visit func(string, map[string]bool) error
	visit = func(name string, visiting map[string]bool) error {
		if name == root {
			for _, child := range children[root] {
				if err := visit(child, visiting); err != nil {
					return err
				}
			}
			return nil
		}
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("datatype %q is part of a parent cycle", name)
		}
		visiting[name] = true
		order = append(order, name)
		visited[name] = true
		for _, child := range children[name] {
			if err := visit(child, visiting); err != nil {
				return err
			}
		}
		delete(visiting, name)
		return nil
	}

	if err := visit(root, map[string]bool{}); err != nil {
		return nil, errs.Configf("datatype tree: %v", err)
	}
	if len(order) != len(cfg.Datatypes) {
		return nil, errs.Configf("datatype tree is cyclic or has unreachable parents")
	}
	return order, nil
}

func loadColumns(cfg *Config, parser *lang.Parser, path string) error {
	table, err := tsv.ReadFile(path)
	if err != nil {
		return err
	}
	if err := tsv.HeaderPermutation(ColumnMetaColumns, table.Header); err != nil {
		return errs.Configf("column meta-table %s: %v", path, err)
	}

	for _, row := range table.RowMaps() {
		tableName, colName := row["table"], row["column"]
		t, ok := cfg.Tables[tableName]
		if !ok {
			return errs.Configf("column meta-table %s: references unknown table %q", path, tableName)
		}
		if _, ok := cfg.Datatypes[row["datatype"]]; !ok {
			return errs.Configf("column meta-table %s: %s.%s references unknown datatype %q", path, tableName, colName, row["datatype"])
		}
		if nt := row["nulltype"]; nt != "" {
			if _, ok := cfg.Datatypes[nt]; !ok {
				return errs.Configf("column meta-table %s: %s.%s references unknown nulltype %q", path, tableName, colName, nt)
			}
		}

		structure, err := ParseStructure(parser, row["structure"])
		if err != nil {
			return errs.Configf("column meta-table %s: %s.%s: %v", path, tableName, colName, err)
		}

		col := &Column{
			Table: tableName,
			Name: colName,
			Label: row["label"],
			Datatype: row["datatype"],
			Nulltype: row["nulltype"],
			StructureRaw: row["structure"],
			Structure: structure,
			Description: row["description"],
		}
		if _, dup := t.Columns[colName]; dup {
			return errs.Configf("column meta-table %s: duplicate column %s.%s", path, tableName, colName)
		}
		t.Columns[colName] = col
		t.ColumnOrder = append(t.ColumnOrder, colName)
	}
	return nil
}

func loadRules(cfg *Config, parser *lang.Parser, path string) error {
	table, err := tsv.ReadFile(path)
	if err != nil {
		return err
	}
	if err := tsv.HeaderPermutation(RuleMetaColumns, table.Header); err != nil {
		return errs.Configf("rule meta-table %s: %v", path, err)
	}

	compiledDatatypes := map[string]*condition.Compiled{}
	for name, dt := range cfg.Datatypes {
		compiledDatatypes[name] = dt.Compiled
	}

	for _, row := range table.RowMaps() {
		tableName := row["table"]
		t, ok := cfg.Tables[tableName]
		if !ok {
			return errs.Configf("rule meta-table %s: references unknown table %q", path, tableName)
		}
		whenCol, thenCol := row["when column"], row["then column"]
		if _, ok := t.Columns[whenCol]; !ok {
			return errs.Configf("rule meta-table %s: %s has no column %q", path, tableName, whenCol)
		}
		if _, ok := t.Columns[thenCol]; !ok {
			return errs.Configf("rule meta-table %s: %s has no column %q", path, tableName, thenCol)
		}

		whenCond, err := condition.Compile(parser, row["when condition"], compiledDatatypes)
		if err != nil {
			return errs.Configf("rule meta-table %s: when condition: %v", path, err)
		}
		thenCond, err := condition.Compile(parser, row["then condition"], compiledDatatypes)
		if err != nil {
			return errs.Configf("rule meta-table %s: then condition: %v", path, err)
		}

		rule := &Rule{
			Table: tableName,
			WhenColumn: whenCol,
			WhenConditionRaw: row["when condition"],
			ThenColumn: thenCol,
			ThenConditionRaw: row["then condition"],
			Level: row["level"],
			Description: row["description"],
			WhenCondition: whenCond,
			ThenCondition: thenCond,
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
	return nil
}

// openUserTableHeaders opens each user table's TSV
// header, confirm it is a permutation of configured columns, and set
// ColumnOrder from the header (overriding the column-config insertion
// order recorded by loadColumns).
func openUserTableHeaders(cfg *Config) error {
	for name, t := range cfg.Tables {
		if t.Type != KindUser || t.Path == "" {
			continue
		}
		header, err := tsv.ReadFile(t.Path)
		if err != nil {
			return err
		}
		configured := t.ColumnOrder
		if err := tsv.HeaderPermutation(configured, header.Header); err != nil {
			return errs.Configf("table %s (%s): %v", name, t.Path, err)
		}
		t.ColumnOrder = append([]string(nil), header.Header...)
	}
	return nil
}
