package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/ontodev/valve-go/internal/errs"
)

// ProjectFile is the optional `.valverc.toml` project file. It fills in the same two
// values the environment variables cover, plus two CLI conveniences with
// no environment-variable equivalent: a default `save` directory and the
// bulk-load chunk size. The chunk size is read and resolved but the loader
// does not take it; bulk loads always use loader.ChunkSize.
type ProjectFile struct {
	TableTSV string `toml:"table_tsv"`
	DatabaseURL string `toml:"database_url"`
	SaveDir string `toml:"save_dir"`
	ChunkSize int `toml:"chunk_size"`
}

// LoadProjectFile reads path if it exists, returning a zero ProjectFile
// (not an error) when it does not; the file is optional at every call
// site.
func LoadProjectFile(path string) (*ProjectFile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &ProjectFile{}, nil
	}
	var pf ProjectFile
	if _, err := toml.DecodeFile(path, &pf); err != nil {
		return nil, errs.Wrap(errs.Config, "reading "+path, err)
	}
	return &pf, nil
}
