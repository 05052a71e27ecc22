package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/config"
	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/tsv"
)

// saveFlags backs both `save` and `save-as`.
type saveFlags struct {
	saveDir string
}

func saveCmd(g *globalFlags) *cobra.Command {
	flags := &saveFlags{}
	cmd := &cobra.Command{
		Use:   "save [table...]",
		Short: "Write every (or the named) table back to its TSV file",
		RunE: func(_ *cobra.Command, args []string) error {
			return runSave(g, args, flags)
		},
	}
	cmd.Flags().StringVar(&flags.saveDir, "save-dir", "", "write into this directory instead of each table's configured path")
	return cmd
}

func runSave(g *globalFlags, tables []string, flags *saveFlags) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	saveDir := flags.saveDir
	if saveDir == "" {
		saveDir = a.resolved.saveDir
	}

	names := tables
	if len(names) == 0 {
		for _, name := range a.cfg.SortedTables {
			if t := a.cfg.Tables[name]; t != nil && t.Type == config.KindUser {
				names = append(names, name)
			}
		}
	}
	for _, name := range names {
		if err := saveTable(a, name, saveDir); err != nil {
			return err
		}
	}
	return nil
}

func saveAsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "save-as <table> <path>",
		Short: "Write one table's current content to an explicit path",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return saveTableTo(a, args[0], args[1])
		},
	}
}

func saveTable(a *app, table, saveDir string) error {
	t, ok := a.cfg.Tables[table]
	if !ok {
		return errs.Configf("unknown table %q", table)
	}
	path := t.Path
	if saveDir != "" {
		path = saveDir + "/" + table + ".tsv"
	}
	return saveTableTo(a, table, path)
}

func saveTableTo(a *app, table, path string) error {
	t, ok := a.cfg.Tables[table]
	if !ok {
		return errs.Configf("unknown table %q", table)
	}

	q := fmt.Sprintf("SELECT %s FROM %s_text_view", columnList(t.ColumnOrder), table)
	rows, err := a.store.DB().Query(q)
	if err != nil {
		return errs.Wrap(errs.Database, fmt.Sprintf("reading %s for save", table), err)
	}
	defer rows.Close()

	var out [][]string
	scanTargets := make([]any, len(t.ColumnOrder))
	for rows.Next() {
		cells := make([]sql.NullString, len(t.ColumnOrder))
		for i := range cells {
			scanTargets[i] = &cells[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return errs.Wrap(errs.Database, fmt.Sprintf("scanning %s row", table), err)
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = c.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(errs.Database, fmt.Sprintf("reading %s for save", table), err)
	}

	return tsv.WriteFile(path, t.ColumnOrder, out)
}

func columnList(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
