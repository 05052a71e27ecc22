package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontodev/valve-go/internal/tsv"
)

func writeTSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAppendMetaRow(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "table.tsv", "table\tpath\ttype\tdescription\nteam\tteam.tsv\t\t\n")

	require.NoError(t, appendMetaRow(path, map[string]string{
		"table": "person", "path": "person.tsv", "type": "", "description": "",
	}))

	tbl, err := tsv.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"person", "person.tsv", "", ""}, tbl.Rows[1])
}

func TestRemoveMetaRow(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "table.tsv",
		"table\tpath\ttype\tdescription\nteam\tteam.tsv\t\t\nperson\tperson.tsv\t\t\n")

	require.NoError(t, removeMetaRow(path, "table", "team"))

	tbl, err := tsv.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "person", tbl.Rows[0][0])
}

func TestRemoveMetaRowUnknownColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "table.tsv", "table\tpath\nteam\tteam.tsv\n")
	err := removeMetaRow(path, "nope", "x")
	assert.Error(t, err)
}

func TestRemoveColumnRow(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "column.tsv",
		"table\tcolumn\tdatatype\nteam\tid\tword\nteam\tname\tline\nperson\tname\tline\n")

	require.NoError(t, removeColumnRow(path, "team", "name"))

	tbl, err := tsv.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	for _, row := range tbl.Rows {
		if row[0] == "team" {
			assert.Equal(t, "id", row[1])
		}
	}
}

func TestRenameColumnInMeta(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "column.tsv",
		"table\tcolumn\tdatatype\nteam\tname\tline\nperson\tname\tline\n")

	require.NoError(t, renameColumnInMeta(path, "team", "name", "label"))

	tbl, err := tsv.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "label", tbl.Rows[0][1])
	assert.Equal(t, "name", tbl.Rows[1][1])
}

func TestRenameMetaValue(t *testing.T) {
	dir := t.TempDir()
	path := writeTSV(t, dir, "table.tsv", "table\tpath\nteam\tteam.tsv\n")

	require.NoError(t, renameMetaValue(path, "table", "team", "squad"))

	tbl, err := tsv.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "squad", tbl.Rows[0][0])
}
