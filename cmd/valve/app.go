package main

import (
	"os"

	"github.com/ontodev/valve-go/internal/config"
	"github.com/ontodev/valve-go/internal/loader"
	"github.com/ontodev/valve-go/internal/logging"
	"github.com/ontodev/valve-go/internal/mutate"
	"github.com/ontodev/valve-go/internal/store"
)

// globalFlags holds the root command's persistent flags, resolved against
// the environment and .valverc.toml at the point each subcommand runs:
// flag > env var > toml file > built-in default.
type globalFlags struct {
	tableTSV    string
	databaseURL string
	projectFile string
	saveDir     string
	chunkSize   int
	user        string
}

// currentUser resolves the actor name recorded in history entries: the
// --user flag, then $USER, then "valve".
func (g *globalFlags) currentUser() string {
	if g.user != "" {
		return g.user
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "valve"
}

const (
	defaultTableTSV    = "table.tsv"
	defaultDatabaseURL = "sqlite://valve.db"
	defaultChunkSize   = loader.ChunkSize
)

// resolved is the three-tier-precedence result of a globalFlags lookup.
type resolved struct {
	tableTSV    string
	databaseURL string
	saveDir     string
	chunkSize   int
}

func (g *globalFlags) resolve() (*resolved, error) {
	pf, err := config.LoadProjectFile(g.projectFile)
	if err != nil {
		return nil, err
	}

	r := &resolved{
		tableTSV:    defaultTableTSV,
		databaseURL: defaultDatabaseURL,
		chunkSize:   defaultChunkSize,
	}
	if pf.TableTSV != "" {
		r.tableTSV = pf.TableTSV
	}
	if pf.DatabaseURL != "" {
		r.databaseURL = pf.DatabaseURL
	}
	if pf.SaveDir != "" {
		r.saveDir = pf.SaveDir
	}
	if pf.ChunkSize > 0 {
		r.chunkSize = pf.ChunkSize
	}

	if v := os.Getenv("VALVE_TABLE_TSV"); v != "" {
		r.tableTSV = v
	}
	if v := os.Getenv("VALVE_DATABASE_URL"); v != "" {
		r.databaseURL = v
	}

	if g.tableTSV != "" {
		r.tableTSV = g.tableTSV
	}
	if g.databaseURL != "" {
		r.databaseURL = g.databaseURL
	}
	if g.saveDir != "" {
		r.saveDir = g.saveDir
	}
	if g.chunkSize != 0 {
		r.chunkSize = g.chunkSize
	}

	return r, nil
}

// app bundles the configuration, open store, and the engine components
// the subcommands use.
type app struct {
	cfg      *config.Config
	store    *store.Store
	logger   logging.Logger
	mutator  *mutate.Mutator
	loader   *loader.Loader
	resolved *resolved
}

// openApp loads the configuration and opens the database, the common
// preamble of nearly every subcommand.
func openApp(g *globalFlags) (*app, error) {
	r, err := g.resolve()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(r.tableTSV)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(r.databaseURL)
	if err != nil {
		return nil, err
	}
	logger := logging.New()
	l := loader.New(st, cfg, logger)
	l.Concurrency = 0
	return &app{
		cfg:      cfg,
		store:    st,
		logger:   logger,
		mutator:  mutate.New(st, cfg, logger),
		loader:   l,
		resolved: r,
	}, nil
}

func (a *app) close() {
	a.store.Close()
}

// readStdinRow reads a JSON object from standard input, the shape every
// row-accepting subcommand expects.
func readStdinRow() (map[string]string, error) {
	return decodeJSONRow(os.Stdin)
}
