package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ontodev/valve-go/internal/config"
	"github.com/ontodev/valve-go/internal/loader"
	"github.com/ontodev/valve-go/internal/logging"
	"github.com/ontodev/valve-go/internal/mutate"
	"github.com/ontodev/valve-go/internal/schema"
	"github.com/ontodev/valve-go/internal/store"
)

// writeTeamProject writes a minimal one-table project, enough to exercise
// the CLI's data-inspection and data-mutation helpers without going
// through cobra command parsing.
func writeTeamProject(t *testing.T, dir string) string {
	t.Helper()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("table.tsv",
		"table\tpath\ttype\tdescription\n"+
			"table\ttable.tsv\ttable\t\n"+
			"column\tcolumn.tsv\tcolumn\t\n"+
			"datatype\tdatatype.tsv\tdatatype\t\n"+
			"team\tteam.tsv\t\t\n")
	write("datatype.tsv",
		"datatype\tparent\tcondition\tSQL type\tHTML type\tdescription\tstructure\ttransform\n"+
			"text\t\t\ttext\ttextarea\t\t\t\n"+
			"empty\ttext\tequals(\"\")\ttext\t\t\t\t\n"+
			"line\ttext\texclude(/\\n/)\ttext\t\t\t\t\n"+
			"word\tline\tmatch(/\\w+/)\ttext\t\t\t\t\n")
	write("column.tsv",
		"table\tcolumn\tlabel\tnulltype\tdatatype\tstructure\tdescription\n"+
			"team\tid\tID\t\tword\tprimary\t\n"+
			"team\tname\tName\tempty\tline\t\t\n")
	write("team.tsv", "id\tname\nt1\tEngineering\n")
	return filepath.Join(dir, "table.tsv")
}

// newTestApp loads a fixture project, materializes its DDL into a fresh
// on-disk SQLite database, and returns a ready *app the same way openApp
// would, minus flag resolution.
func newTestApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(writeTeamProject(t, dir))
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

	logger := logging.NullLogger{}
	l := loader.New(st, cfg, logger)
	return &app{
		cfg:     cfg,
		store:   st,
		logger:  logger,
		mutator: mutate.New(st, cfg, logger),
		loader:  l,
	}
}
