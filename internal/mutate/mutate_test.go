package mutate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontodev/valve-go/internal/config"
	"github.com/ontodev/valve-go/internal/schema"
	"github.com/ontodev/valve-go/internal/store"
)

// writeProject writes a minimal two-table project (team, person) with a
// foreign edge person.team_id -> team.id and a self-referential tree rooted
// at person.name with person.manager as the pointer column, mirroring the
// config package's own test fixture.
func writeProject(t *testing.T, dir string) string {
	t.Helper()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("table.tsv",
		"table\tpath\ttype\tdescription\n"+
			"table\ttable.tsv\ttable\t\n"+
			"column\tcolumn.tsv\tcolumn\t\n"+
			"datatype\tdatatype.tsv\tdatatype\t\n"+
			"team\tteam.tsv\t\t\n"+
			"person\tperson.tsv\t\t\n")
	write("datatype.tsv",
		"datatype\tparent\tcondition\tSQL type\tHTML type\tdescription\tstructure\ttransform\n"+
			"text\t\t\ttext\ttextarea\t\t\t\n"+
			"empty\ttext\tequals(\"\")\ttext\t\t\t\t\n"+
			"line\ttext\texclude(/\\n/)\ttext\t\t\t\t\n"+
			"word\tline\tmatch(/\\w+/)\ttext\t\t\t\t\n")
	write("column.tsv",
		"table\tcolumn\tlabel\tnulltype\tdatatype\tstructure\tdescription\n"+
			"team\tid\tID\t\tword\tprimary\t\n"+
			"team\tname\tName\tempty\tline\t\t\n"+
			"person\tid\tID\t\tword\tprimary\t\n"+
			"person\tname\tName\t\tline\ttree(manager)\t\n"+
			"person\tmanager\tManager\tempty\tword\t\t\n"+
			"person\tteam_id\tTeam\tempty\tword\tfrom(team.id)\t\n")
	write("team.tsv", "id\tname\nt1\tEngineering\n")
	write("person.tsv", "id\tname\tmanager\tteam_id\np1\tAlice\t\tt1\n")
	return filepath.Join(dir, "table.tsv")
}

// openTestDB loads the fixture project, materializes its DDL into a fresh
// in-memory SQLite database, and returns the loaded config alongside an
// open Store.
func openTestDB(t *testing.T) (*config.Config, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(writeProject(t, dir))
	require.NoError(t, err)

	st, err := store.Open("sqlite://" + filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mat := schema.New(cfg, st.Dialect)
	stmts, err := mat.AllDDL()
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := st.DB().Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return cfg, st
}

func TestInsertRowValid(t *testing.T) {
	cfg, st := openTestDB(t)
	m := New(st, cfg, nil)

	rowNumber, row, err := m.InsertRow("team", map[string]string{"id": "t2", "name": "Sales"}, "tester")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rowNumber)
	assert.False(t, row.HasError())

	got, err := m.GetRowFromDB("team", rowNumber)
	require.NoError(t, err)
	assert.Equal(t, "t2", got["id"])
	assert.Equal(t, "Sales", got["name"])
}

func TestInsertRowForeignViolationRoutesToConflict(t *testing.T) {
	cfg, st := openTestDB(t)
	m := New(st, cfg, nil)

	rowNumber, row, err := m.InsertRow("person", map[string]string{
		"id": "p2", "name": "Bob", "manager": "", "team_id": "nonexistent",
	}, "tester")
	require.NoError(t, err)
	assert.True(t, row.HasError())

	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM person_conflict WHERE row_number = ?", rowNumber).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpdateValueTriggersUniqueConflict(t *testing.T) {
	cfg, st := openTestDB(t)
	m := New(st, cfg, nil)

	_, _, err := m.InsertRow("team", map[string]string{"id": "t1", "name": "Engineering"}, "tester")
	require.NoError(t, err)
	rn, _, err := m.InsertRow("team", map[string]string{"id": "t2", "name": "Sales"}, "tester")
	require.NoError(t, err)

	_, err = m.UpdateValue("team", rn, "id", "t1", "tester")
	require.NoError(t, err)

	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM team_conflict WHERE row_number = ?", rn).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDeleteRowRemovesRowAndMessages(t *testing.T) {
	cfg, st := openTestDB(t)
	m := New(st, cfg, nil)

	rn, _, err := m.InsertRow("team", map[string]string{"id": "t2", "name": "Sales"}, "tester")
	require.NoError(t, err)

	require.NoError(t, m.DeleteRow("team", rn, "tester"))

	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM team WHERE row_number = ?", rn).Scan(&count))
	assert.Equal(t, 0, count)
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM message WHERE "table" = 'team' AND row = ?`, rn).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestUndoRedoRoundTrip(t *testing.T) {
	cfg, st := openTestDB(t)
	m := New(st, cfg, nil)

	rn, _, err := m.InsertRow("team", map[string]string{"id": "t2", "name": "Sales"}, "tester")
	require.NoError(t, err)

	_, err = m.UpdateValue("team", rn, "name", "Marketing", "tester")
	require.NoError(t, err)

	require.NoError(t, m.Undo("tester"))
	row, err := m.GetRowFromDB("team", rn)
	require.NoError(t, err)
	assert.Equal(t, "Sales", row["name"])

	require.NoError(t, m.Undo("tester"))
	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM team WHERE row_number = ?", rn).Scan(&count))
	assert.Equal(t, 0, count)

	require.NoError(t, m.Redo())
	row, err = m.GetRowFromDB("team", rn)
	require.NoError(t, err)
	assert.Equal(t, "Sales", row["name"])

	require.NoError(t, m.Redo())
	row, err = m.GetRowFromDB("team", rn)
	require.NoError(t, err)
	assert.Equal(t, "Marketing", row["name"])
}

func TestMoveRowReordersRowOrder(t *testing.T) {
	cfg, st := openTestDB(t)
	m := New(st, cfg, nil)

	rn1, _, err := m.InsertRow("team", map[string]string{"id": "t2", "name": "Sales"}, "tester")
	require.NoError(t, err)
	rn2, _, err := m.InsertRow("team", map[string]string{"id": "t3", "name": "Marketing"}, "tester")
	require.NoError(t, err)

	require.NoError(t, m.MoveRow("team", rn2, 0))

	rows, err := st.DB().Query("SELECT row_number FROM team_view ORDER BY row_order")
	require.NoError(t, err)
	defer rows.Close()
	var order []int64
	for rows.Next() {
		var rn int64
		require.NoError(t, rows.Scan(&rn))
		order = append(order, rn)
	}
	require.Len(t, order, 2)
	assert.Equal(t, rn2, order[0])
	assert.NotEqual(t, rn1, order[0])
}
