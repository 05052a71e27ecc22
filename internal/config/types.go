// Package config implements the configuration loader: reading the
// four meta-tables, cross-checking integrity, extracting per-table
// constraints, and producing the topologically sorted load order.
package config

import "github.com/ontodev/valve-go/internal/condition"

// Datatype is a named node in the single-inheritance datatype tree.
type Datatype struct {
	Name string
	Parent string
	Condition string
	SQLType string
	HTMLType string
	Description string
	Structure string
	Transform string

	Compiled *condition.Compiled
}

// StructureKind tags the parsed form of a column's structure directive.
type StructureKind int

const (
	StructureNone StructureKind = iota
	StructurePrimary
	StructureUnique
	StructureFrom
	StructureTree
	StructureUnder
)

// Structure is the parsed form of a column's structure string:
// `primary`, `unique`, `from(T.C)`, `tree(C)`, or `under(T.C, V)`.
type Structure struct {
	Kind StructureKind

	// StructureFrom
	FromTable string
	FromColumn string

	// StructureTree: the sibling column in the same table that points back
	// at this column, i.e. this column is the parent and TreeChildColumn
	// is the pointer column whose values must resolve to it.
	TreeChildColumn string

	// StructureUnder
	UnderTable string
	UnderColumn string
	UnderValue string
}

// Column belongs to exactly one table.
type Column struct {
	Table string
	Name string
	Label string
	Datatype string
	Nulltype string
	StructureRaw string
	Structure Structure
	Description string

	NulltypeCompiled *condition.Compiled
}

// TableKind distinguishes user tables from the four meta-tables and the
// two synthesized singletons.
type TableKind string

const (
	KindUser TableKind = ""
	KindTable TableKind = "table"
	KindColumn TableKind = "column"
	KindDatatype TableKind = "datatype"
	KindRule TableKind = "rule"
	KindMessage TableKind = "message"
	KindHistory TableKind = "history"
)

// Table is one row of the `table` meta-table plus its resolved column
// configuration. ColumnOrder reflects the TSV header when the table
// has been loaded from a file, otherwise the column-config insertion order.
type Table struct {
	Name string
	Path string
	Type TableKind
	Description string

	ColumnOrder []string
	Columns map[string]*Column
}

// Rule is one (when, then) implication evaluated per row.
type Rule struct {
	Table string
	WhenColumn string
	WhenConditionRaw string
	ThenColumn string
	ThenConditionRaw string
	Level string
	Description string

	WhenCondition *condition.Compiled
	ThenCondition *condition.Compiled
}

// ForeignEdge is a `from(T.C)` constraint.
type ForeignEdge struct {
	Column string
	ForeignTable string
	ForeignColumn string
}

// TreeEdge is a `tree(C)` constraint: Parent is the column carrying the
// structure, Child is the sibling column named inside tree(...) whose
// values must resolve to a value in Parent (except at the tree's roots).
type TreeEdge struct {
	Child string
	Parent string
}

// UnderEdge is an `under(T.C, V)` constraint.
type UnderEdge struct {
	Column string
	TreeTable string
	TreeColumn string
	Value string
}

// Constraints is the derived constraint set for one user table.
type Constraints struct {
	Primary []string
	Unique []string
	Foreign []ForeignEdge
	Tree []TreeEdge
	Under []UnderEdge
}

// Config is the fully loaded, validated, and cross-checked configuration.
// Once built it is treated as shared-immutable: compiled predicates are
// cloned by reference into worker goroutines during bulk load.
type Config struct {
	Tables map[string]*Table
	Datatypes map[string]*Datatype
	Constraints map[string]*Constraints
	Rules []*Rule

	// SortedTables is the load order: message, history, then user tables
	// in dependency order.
	SortedTables []string

	// DatatypeOrder lists datatype names in parent-before-child order,
	// the order in which their conditions must be compiled.
	DatatypeOrder []string
}

// RequiredDatatypes are the builtin datatypes every configuration must
// define.
var RequiredDatatypes = []string{"text", "empty", "line", "word"}

// TableMetaColumns lists the required columns of each meta-table.
var TableMetaColumns = []string{"table", "path", "type", "description"}
var ColumnMetaColumns = []string{"table", "column", "label", "nulltype", "datatype", "structure", "description"}
var DatatypeMetaColumns = []string{"datatype", "parent", "condition", "SQL type", "HTML type", "description", "structure", "transform"}
var RuleMetaColumns = []string{"table", "when column", "when condition", "then column", "then condition", "level", "description"}
