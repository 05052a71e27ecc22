package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/ontodev/valve-go/internal/errs"
)

// decodeJSONRow reads a single JSON object (string -> string) from r, the
// shape every row-accepting subcommand expects on standard input.
func decodeJSONRow(r io.Reader) (map[string]string, error) {
	var row map[string]string
	if err := json.NewDecoder(r).Decode(&row); err != nil {
		return nil, errs.Wrap(errs.Input, "decoding row JSON from stdin", err)
	}
	return row, nil
}

// printJSON writes v to stdout as indented JSON, the CLI's uniform output
// shape for `get`, `validate`, and other inspection subcommands.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", " ")
	if err := enc.Encode(v); err != nil {
		return errs.Wrap(errs.Serialization, "encoding output JSON", err)
	}
	return nil
}
