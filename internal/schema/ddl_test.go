package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontodev/valve-go/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Tables: map[string]*config.Table{
			"person": {
				Name:        "person",
				Type:        config.KindUser,
				ColumnOrder: []string{"id", "name", "manager"},
				Columns: map[string]*config.Column{
					"id":      {Name: "id", Datatype: "word", Structure: config.Structure{Kind: config.StructurePrimary}},
					"name":    {Name: "name", Datatype: "line"},
					"manager": {Name: "manager", Datatype: "word"},
				},
			},
		},
		Datatypes: map[string]*config.Datatype{
			"word": {Name: "word", SQLType: "text"},
			"line": {Name: "line", SQLType: "text"},
		},
		Constraints: map[string]*config.Constraints{
			"person": {
				Primary: []string{"id"},
				Tree:    []config.TreeEdge{{Child: "manager", Parent: "id"}},
			},
		},
		SortedTables: []string{"message", "history", "person"},
	}
	return cfg
}

func TestTableDDLSQLite(t *testing.T) {
	m := New(testConfig(), DialectSQLite)
	stmts, err := m.TableDDL("person")
	require.NoError(t, err)
	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[0], "CREATE TABLE person")
	assert.Contains(t, stmts[0], "row_number BIGINT")
	assert.Contains(t, stmts[0], "PRIMARY KEY (id)")
	assert.Contains(t, stmts[1], "CREATE TABLE person_conflict")
	assert.NotContains(t, stmts[1], "PRIMARY KEY")
	joined := strings.Join(stmts, "\n")
	assert.Contains(t, joined, "person_manager_tree_idx")
	assert.Contains(t, joined, "CREATE VIEW person_view")
	assert.Contains(t, joined, "CREATE VIEW person_text_view")
	assert.Contains(t, joined, "json_group_array")
}

func TestTableDDLPostgres(t *testing.T) {
	m := New(testConfig(), DialectPostgres)
	stmts, err := m.TableDDL("person")
	require.NoError(t, err)
	joined := strings.Join(stmts, "\n")
	assert.Contains(t, joined, "json_agg")
	assert.Contains(t, joined, "json_build_object")
}

func TestMessageAndHistoryDDL(t *testing.T) {
	m := New(testConfig(), DialectSQLite)
	assert.Contains(t, m.messageTableDDL(), "INTEGER PRIMARY KEY AUTOINCREMENT")
	pm := New(testConfig(), DialectPostgres)
	assert.Contains(t, pm.messageTableDDL(), "SERIAL PRIMARY KEY")
}

func TestAllDDLOrdersMessageHistoryFirst(t *testing.T) {
	m := New(testConfig(), DialectSQLite)
	stmts, err := m.AllDDL()
	require.NoError(t, err)
	assert.Contains(t, stmts[0], "CREATE TABLE message")
	assert.Contains(t, stmts[1], "CREATE TABLE history")
}
