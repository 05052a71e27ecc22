package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontodev/valve-go/internal/condition"
	"github.com/ontodev/valve-go/internal/config"
	"github.com/ontodev/valve-go/internal/lang"
)

func compileFor(t *testing.T, raw string, known map[string]*condition.Compiled) *condition.Compiled {
	t.Helper()
	c, err := condition.Compile(lang.NewParser(), raw, known)
	require.NoError(t, err)
	return c
}

func buildCfg(t *testing.T) *config.Config {
	integerCond := compileFor(t, `match(/[0-9]+/)`, nil)
	emptyCond := compileFor(t, `equals("")`, nil)

	cfg := &config.Config{
		Datatypes: map[string]*config.Datatype{
			"integer": {Name: "integer", Compiled: integerCond},
			"empty":   {Name: "empty", Compiled: emptyCond},
		},
		Tables: map[string]*config.Table{
			"person": {
				Name:        "person",
				ColumnOrder: []string{"age"},
				Columns: map[string]*config.Column{
					"age": {Name: "age", Datatype: "integer", Nulltype: "empty"},
				},
			},
		},
	}
	cfg.Datatypes["age_nulltype"] = cfg.Datatypes["empty"]
	return cfg
}

func TestIntraRowDatatypeFailure(t *testing.T) {
	cfg := buildCfg(t)
	row, err := IntraRow(cfg, "person", map[string]string{"age": "forty"})
	require.NoError(t, err)
	cell := row["age"]
	require.NotNil(t, cell)
	assert.False(t, cell.Valid)
	require.Len(t, cell.Messages, 1)
	assert.Equal(t, "datatype:integer", cell.Messages[0].Rule)
	assert.Equal(t, LevelError, cell.Messages[0].Level)
}

func TestIntraRowNulltypeSkipsDatatype(t *testing.T) {
	cfg := buildCfg(t)
	row, err := IntraRow(cfg, "person", map[string]string{"age": ""})
	require.NoError(t, err)
	cell := row["age"]
	assert.True(t, cell.IsNull)
	assert.Empty(t, cell.Messages)
}

func TestIntraRowValidValue(t *testing.T) {
	cfg := buildCfg(t)
	row, err := IntraRow(cfg, "person", map[string]string{"age": "40"})
	require.NoError(t, err)
	cell := row["age"]
	assert.True(t, cell.Valid)
	assert.False(t, cell.IsNull)
	assert.Empty(t, cell.Messages)
}

func TestIntraRowRuleViolation(t *testing.T) {
	lineCond := compileFor(t, `exclude(/\n/)`, nil)
	emptyCond := compileFor(t, `equals("")`, nil)
	known := map[string]*condition.Compiled{"line": lineCond}
	whenCond := compileFor(t, `equals("yes")`, known)
	thenCond := compileFor(t, `exclude(/^$/)`, known)

	cfg := &config.Config{
		Datatypes: map[string]*config.Datatype{
			"line":  {Name: "line", Compiled: lineCond},
			"empty": {Name: "empty", Compiled: emptyCond},
		},
		Tables: map[string]*config.Table{
			"t": {
				Name:        "t",
				ColumnOrder: []string{"has_note", "note"},
				Columns: map[string]*config.Column{
					"has_note": {Name: "has_note", Datatype: "line"},
					"note":     {Name: "note", Datatype: "line"},
				},
			},
		},
		Rules: []*config.Rule{
			{
				Table: "t", WhenColumn: "has_note", ThenColumn: "note",
				Level: "error", WhenCondition: whenCond, ThenCondition: thenCond,
			},
		},
	}

	row, err := IntraRow(cfg, "t", map[string]string{"has_note": "yes", "note": ""})
	require.NoError(t, err)
	cell := row["note"]
	require.Len(t, cell.Messages, 1)
	assert.Contains(t, cell.Messages[0].Rule, "rule:")
}
