package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	g := &globalFlags{projectFile: filepath.Join(t.TempDir(), "missing.toml")}
	r, err := g.resolve()
	require.NoError(t, err)
	assert.Equal(t, defaultTableTSV, r.tableTSV)
	assert.Equal(t, defaultDatabaseURL, r.databaseURL)
	assert.Equal(t, defaultChunkSize, r.chunkSize)
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, ".valverc.toml")
	require.NoError(t, os.WriteFile(projectPath, []byte(`
table_tsv = "from-toml.tsv"
database_url = "sqlite://from-toml.db"
chunk_size = 250
`), 0o644))

	t.Run("toml overrides default", func(t *testing.T) {
		g := &globalFlags{projectFile: projectPath}
		r, err := g.resolve()
		require.NoError(t, err)
		assert.Equal(t, "from-toml.tsv", r.tableTSV)
		assert.Equal(t, "sqlite://from-toml.db", r.databaseURL)
		assert.Equal(t, 250, r.chunkSize)
	})

	t.Run("env overrides toml", func(t *testing.T) {
		t.Setenv("VALVE_TABLE_TSV", "from-env.tsv")
		g := &globalFlags{projectFile: projectPath}
		r, err := g.resolve()
		require.NoError(t, err)
		assert.Equal(t, "from-env.tsv", r.tableTSV)
	})

	t.Run("flag overrides env and toml", func(t *testing.T) {
		t.Setenv("VALVE_TABLE_TSV", "from-env.tsv")
		g := &globalFlags{projectFile: projectPath, tableTSV: "from-flag.tsv"}
		r, err := g.resolve()
		require.NoError(t, err)
		assert.Equal(t, "from-flag.tsv", r.tableTSV)
	})
}

func TestCurrentUser(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		g := &globalFlags{user: "alice"}
		t.Setenv("USER", "bob")
		assert.Equal(t, "alice", g.currentUser())
	})
	t.Run("falls back to USER", func(t *testing.T) {
		g := &globalFlags{}
		t.Setenv("USER", "bob")
		assert.Equal(t, "bob", g.currentUser())
	})
	t.Run("falls back to valve", func(t *testing.T) {
		g := &globalFlags{}
		t.Setenv("USER", "")
		assert.Equal(t, "valve", g.currentUser())
	})
}
