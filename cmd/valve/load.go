package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/loader"
	"github.com/ontodev/valve-go/internal/store"
)

func loadAllCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "load-all",
		Short: "Bulk-load every configured table's TSV file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLoadAll(g)
		},
	}
}

func runLoadAll(g *globalFlags) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer a.close()
	return a.loader.LoadAll()
}

func loadCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "load <table>",
		Short: "Bulk-load one table's TSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runLoad(g, args[0])
		},
	}
}

func runLoad(g *globalFlags, table string) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer a.close()
	return a.loader.LoadTable(table)
}

func createAllCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create-all",
		Short: "Materialize DDL for every configured table",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCreateAll(g)
		},
	}
}

func runCreateAll(g *globalFlags) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer a.close()
	return loader.CreateAll(a.store, a.cfg)
}

func dropAllCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-all",
		Short: "Drop every table, view, and the message/history singletons",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDropAll(g)
		},
	}
}

func runDropAll(g *globalFlags) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer a.close()
	return loader.DropAll(a.store, a.cfg)
}

func dropCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop one table and its conflict table and views",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runDrop(g, args[0])
		},
	}
}

func runDrop(g *globalFlags, table string) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer a.close()
	if _, ok := a.cfg.Tables[table]; !ok {
		return errs.Configf("unknown table %q", table)
	}
	stmts := []string{
		fmt.Sprintf("DROP VIEW IF EXISTS %s_text_view", table),
		fmt.Sprintf("DROP VIEW IF EXISTS %s_view", table),
		fmt.Sprintf("DROP TABLE IF EXISTS %s_conflict", table),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", table),
	}
	for _, stmt := range stmts {
		if _, err := a.store.DB().Exec(stmt); err != nil {
			return errs.Wrap(errs.Database, "dropping table", err)
		}
	}
	return nil
}

func truncateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "truncate <table>",
		Short: "Delete every row of one table and its conflict table",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runTruncate(g, args[0])
		},
	}
}

func runTruncate(g *globalFlags, table string) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer a.close()
	return truncateTable(a, table)
}

func truncateTable(a *app, table string) error {
	if _, ok := a.cfg.Tables[table]; !ok {
		return errs.Configf("unknown table %q", table)
	}
	if _, err := a.store.DB().Exec(fmt.Sprintf("DELETE FROM %s_conflict", table)); err != nil {
		return errs.Wrap(errs.Database, "truncating table", err)
	}
	if _, err := a.store.DB().Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return errs.Wrap(errs.Database, "truncating table", err)
	}
	for _, stmt := range []string{
		fmt.Sprintf(`DELETE FROM message WHERE "table" = %s`, store.Placeholder),
		fmt.Sprintf(`DELETE FROM history WHERE "table" = %s`, store.Placeholder),
	} {
		if _, err := a.store.DB().Exec(a.store.Rewrite(stmt), table); err != nil {
			return errs.Wrap(errs.Database, "truncating table", err)
		}
	}
	return nil
}

func truncateAllCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "truncate-all",
		Short: "Delete every row of every configured table",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTruncateAll(g)
		},
	}
}

func runTruncateAll(g *globalFlags) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer a.close()
	for name, t := range a.cfg.Tables {
		if t.Type != "" {
			continue
		}
		if err := truncateTable(a, name); err != nil {
			return err
		}
	}
	return nil
}
