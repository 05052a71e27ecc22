package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontodev/valve-go/internal/config"
	"github.com/ontodev/valve-go/internal/schema"
	"github.com/ontodev/valve-go/internal/store"
	"github.com/ontodev/valve-go/internal/tsv"
)

func writeProject(t *testing.T, dir string, personRows []string) string {
	t.Helper()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("table.tsv",
		"table\tpath\ttype\tdescription\n"+
			"table\ttable.tsv\ttable\t\n"+
			"column\tcolumn.tsv\tcolumn\t\n"+
			"datatype\tdatatype.tsv\tdatatype\t\n"+
			"person\tperson.tsv\t\t\n")
	write("datatype.tsv",
		"datatype\tparent\tcondition\tSQL type\tHTML type\tdescription\tstructure\ttransform\n"+
			"text\t\t\ttext\ttextarea\t\t\t\n"+
			"empty\ttext\tequals(\"\")\ttext\t\t\t\t\n"+
			"line\ttext\texclude(/\\n/)\ttext\t\t\t\t\n"+
			"word\tline\tmatch(/\\w+/)\ttext\t\t\t\t\n")
	write("column.tsv",
		"table\tcolumn\tlabel\tnulltype\tdatatype\tstructure\tdescription\n"+
			"person\tid\tID\t\tword\tprimary\t\n"+
			"person\tname\tName\t\tline\t\t\n")
	write("person.tsv", "id\tname\n"+strings.Join(personRows, "\n"))
	return filepath.Join(dir, "table.tsv")
}

func openTestDB(t *testing.T, personRows []string) (*config.Config, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(writeProject(t, dir, personRows))
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

func TestLoadTableInsertsAllRows(t *testing.T) {
	rows := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, fmt.Sprintf("p%d\tName%d", i, i))
	}
	cfg, st := openTestDB(t, rows)
	l := New(st, cfg, nil)

	require.NoError(t, l.LoadTable("person"))

	var count int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM person").Scan(&count))
	assert.Equal(t, 10, count)
}

func TestLoadTableRoutesDuplicatePrimaryKeyToConflict(t *testing.T) {
	rows := []string{"p1\tAlice", "p1\tDuplicate", "p2\tBob"}
	cfg, st := openTestDB(t, rows)
	l := New(st, cfg, nil)

	require.NoError(t, l.LoadTable("person"))

	var base, conflict int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM person").Scan(&base))
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM person_conflict").Scan(&conflict))
	assert.Equal(t, 3, base+conflict)
	assert.Equal(t, 1, conflict)
}

func TestSplitIntoChunksAssignsSequentialRowNumbers(t *testing.T) {
	rows := make([]string, 0, 1200)
	for i := 0; i < 1200; i++ {
		rows = append(rows, fmt.Sprintf("p%d\tName%d", i, i))
	}
	cfg, st := openTestDB(t, rows)
	l := New(st, cfg, nil)

	tbl, err := tsv.ReadFile(cfg.Tables["person"].Path)
	require.NoError(t, err)
	chunks := l.splitIntoChunks(tbl)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], ChunkSize)
	assert.Equal(t, int64(1), chunks[0][0].rowNumber)
	assert.Equal(t, int64(ChunkSize), chunks[0][len(chunks[0])-1].rowNumber)
	assert.Equal(t, int64(ChunkSize+1), chunks[1][0].rowNumber)
}

func TestIsConstraintViolation(t *testing.T) {
	assert.True(t, isConstraintViolation(fmt.Errorf("UNIQUE constraint failed: person.id")))
	assert.True(t, isConstraintViolation(fmt.Errorf("pq: duplicate key value violates unique constraint \"person_pkey\"")))
	assert.False(t, isConstraintViolation(fmt.Errorf("connection refused")))
	assert.False(t, isConstraintViolation(nil))
}
