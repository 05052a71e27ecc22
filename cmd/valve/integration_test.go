package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryViewRoundTrip(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.loader.LoadTable("team"))

	rows, err := queryView(a, "team", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0]["id"])
	assert.Equal(t, "Engineering", rows[0]["name"])
	assert.Equal(t, []any{}, rows[0]["message"])
}

func TestQueryViewUnknownTable(t *testing.T) {
	a := newTestApp(t)
	_, err := queryView(a, "nosuchtable", "")
	assert.Error(t, err)
}

func TestQueryMessagesAfterDatatypeError(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.loader.LoadTable("team"))

	// A blank id fails the `word` datatype and attaches an error-level
	// message to the row; no other row has that id, so the row itself
	// goes into the base table.
	rowNumber, row, err := a.mutator.InsertRow("team", map[string]string{"id": "", "name": "Sales"}, "tester")
	require.NoError(t, err)
	require.True(t, row.HasError())

	messages, err := queryMessages(a, "team", rowNumber, "")
	require.NoError(t, err)
	require.NotEmpty(t, messages)
	assert.Equal(t, "team", messages[0].Table)
	assert.Equal(t, rowNumber, messages[0].Row)
}

func TestTruncateTable(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.loader.LoadTable("team"))

	require.NoError(t, truncateTable(a, "team"))

	rows, err := queryView(a, "team", "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTruncateTableUnknown(t *testing.T) {
	a := newTestApp(t)
	assert.Error(t, truncateTable(a, "nosuchtable"))
}

func TestSchemaSummary(t *testing.T) {
	a := newTestApp(t)
	summaries := schemaSummary(a)

	var team *tableSummary
	for i := range summaries {
		if summaries[i].Name == "team" {
			team = &summaries[i]
		}
	}
	require.NotNil(t, team)
	require.Len(t, team.Columns, 2)
	assert.Equal(t, "id", team.Columns[0].Name)
	assert.Equal(t, "word", team.Columns[0].Datatype)
}
