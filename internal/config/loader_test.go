package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestProject writes a minimal valid configuration (a `person` table
// with a self-referential tree and a foreign `team` table) to dir and
// returns the path to table.tsv.
func writeTestProject(t *testing.T, dir string) string {
	t.Helper()

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	write("table.tsv",
		"table\tpath\ttype\tdescription\n"+
			"table\ttable.tsv\ttable\tthe table table\n"+
			"column\tcolumn.tsv\tcolumn\tthe column table\n"+
			"datatype\tdatatype.tsv\tdatatype\tthe datatype table\n"+
			"team\tteam.tsv\t\tteams\n"+
			"person\tperson.tsv\t\tpeople\n")

	write("datatype.tsv",
		"datatype\tparent\tcondition\tSQL type\tHTML type\tdescription\tstructure\ttransform\n"+
			"text\t\t\ttext\ttextarea\tany text\t\t\n"+
			"empty\ttext\tequals(\"\")\ttext\t\tthe empty string\t\t\n"+
			"line\ttext\texclude(/\\n/)\ttext\t\ta line\t\t\n"+
			"word\tline\tmatch(/\\w+/)\ttext\t\ta word\t\t\n"+
			"integer\tword\tmatch(/[0-9]+/)\tinteger\t\tan integer\t\t\n")

	write("column.tsv",
		"table\tcolumn\tlabel\tnulltype\tdatatype\tstructure\tdescription\n"+
			"team\tid\tID\t\tword\tprimary\tteam identifier\n"+
			"team\tname\tName\tempty\tline\t\tteam name\n"+
			"person\tid\tID\t\tword\tprimary\tperson identifier\n"+
			"person\tname\tName\t\tline\ttree(manager)\tperson name\n"+
			"person\tmanager\tManager\tempty\tword\t\tmanager name\n"+
			"person\tteam_id\tTeam\tempty\tword\tfrom(team.id)\tteam id\n")

	write("team.tsv", "id\tname\nt1\tEngineering\n")
	write("person.tsv", "id\tname\tmanager\tteam_id\np1\tAlice\t\tt1\np2\tBob\tAlice\tt1\n")

	return filepath.Join(dir, "table.tsv")
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	tablePath := writeTestProject(t, dir)

	cfg, err := Load(tablePath)
	require.NoError(t, err)

	assert.Contains(t, cfg.Tables, "person")
	assert.Contains(t, cfg.Tables, "team")
	assert.Contains(t, cfg.Tables, "message")
	assert.Contains(t, cfg.Tables, "history")

	assert.Equal(t, []string{"message", "history"}, cfg.SortedTables[:2])
	// person depends on team (foreign), so team must precede person.
	teamIdx, personIdx := indexOf(cfg.SortedTables, "team"), indexOf(cfg.SortedTables, "person")
	assert.Greater(t, personIdx, teamIdx)

	personCons := cfg.Constraints["person"]
	require.Len(t, personCons.Primary, 1)
	assert.Equal(t, "id", personCons.Primary[0])
	require.Len(t, personCons.Tree, 1)
	assert.Equal(t, "manager", personCons.Tree[0].Child)
	assert.Equal(t, "name", personCons.Tree[0].Parent)
	require.Len(t, personCons.Foreign, 1)
	assert.Equal(t, "team", personCons.Foreign[0].ForeignTable)
}

func TestLoadMissingDatatypeMetaTableFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "table.tsv"),
		[]byte("table\tpath\ttype\tdescription\ntable\ttable.tsv\ttable\t\n"+
			"column\tcolumn.tsv\tcolumn\t\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "column.tsv"),
		[]byte("table\tcolumn\tlabel\tnulltype\tdatatype\tstructure\tdescription\n"), 0o644))

	_, err := Load(filepath.Join(dir, "table.tsv"))
	assert.Error(t, err)
}

func TestLoadUnknownDatatypeReferenceFails(t *testing.T) {
	dir := t.TempDir()
	tablePath := writeTestProject(t, dir)
	// Corrupt the column table to reference an undefined datatype.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "column.tsv"),
		[]byte("table\tcolumn\tlabel\tnulltype\tdatatype\tstructure\tdescription\n"+
			"team\tid\tID\t\tnonexistent\tprimary\t\n"), 0o644))
	// team.tsv no longer matches; simplify to a single column.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "team.tsv"), []byte("id\nt1\n"), 0o644))

	_, err := Load(tablePath)
	assert.Error(t, err)
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}
