// Package main is the valve CLI, built with spf13/cobra: a root command,
// per-subcommand flag structs, RunE delegating to a runXxx function.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/errs"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "valve",
		Short:         "Table-oriented data validation engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	globals := &globalFlags{}
	rootCmd.PersistentFlags().StringVar(&globals.tableTSV, "table-tsv", "", "path to the root table.tsv (default: $VALVE_TABLE_TSV, then .valverc.toml, then \"table.tsv\")")
	rootCmd.PersistentFlags().StringVar(&globals.databaseURL, "database-url", "", "database URL (default: $VALVE_DATABASE_URL, then .valverc.toml, then \"sqlite://valve.db\")")
	rootCmd.PersistentFlags().StringVar(&globals.projectFile, "project-file", ".valverc.toml", "path to the optional project file")
	rootCmd.PersistentFlags().StringVar(&globals.saveDir, "save-dir", "", "default directory for `save` (default: .valverc.toml, then the table's own directory)")
	rootCmd.PersistentFlags().IntVar(&globals.chunkSize, "chunk-size", 0, "bulk-load chunk size (default: .valverc.toml, then 500); resolved but not passed to the loader, which always uses 500-row chunks")
	rootCmd.PersistentFlags().StringVar(&globals.user, "user", "", "actor name recorded in history entries (default: $USER, then \"valve\")")

	rootCmd.AddCommand(
		loadAllCmd(globals),
		loadCmd(globals),
		createAllCmd(globals),
		dropAllCmd(globals),
		dropCmd(globals),
		truncateCmd(globals),
		truncateAllCmd(globals),
		saveCmd(globals),
		saveAsCmd(globals),
		getCmd(globals),
		validateCmd(globals),
		addCmd(globals),
		updateCmd(globals),
		deleteCmd(globals),
		renameCmd(globals),
		moveCmd(globals),
		undoCmd(globals),
		redoCmd(globals),
		historyCmd(globals),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(errs.ExitCode(err))
		return
	}
	os.Exit(0)
}
