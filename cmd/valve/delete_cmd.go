package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/store"
)

func deleteCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a row, messages, or a configuration entry",
	}
	cmd.AddCommand(
		deleteRowCmd(g),
		deleteColumnCmd(g),
		deleteDatatypeCmd(g),
		deleteMessagesCmd(g),
		deleteTableCmd(g),
	)
	return cmd
}

func deleteRowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "row <table> <row>",
		Short: "Delete a row",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			rowNumber, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return errs.Inputf("row %q is not a number", args[1])
			}
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return a.mutator.DeleteRow(args[0], rowNumber, g.currentUser())
		},
	}
}

func deleteColumnCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "column <table> <column>",
		Short: "Remove a column declaration from column.tsv",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return removeColumnRow(a.cfg.Tables["column"].Path, args[0], args[1])
		},
	}
}

func deleteDatatypeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "datatype <name>",
		Short: "Remove a datatype declaration from datatype.tsv",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return removeMetaRow(a.cfg.Tables["datatype"].Path, "datatype", args[0])
		},
	}
}

func deleteTableCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "table <name>",
		Short: "Remove a table declaration from table.tsv",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return removeMetaRow(a.cfg.Tables["table"].Path, "table", args[0])
		},
	}
}

func deleteMessagesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "messages <table> [row]",
		Short: "Delete every message for a table, or one row of it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()

			if len(args) == 2 {
				rowNumber, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return errs.Inputf("row %q is not a number", args[1])
				}
				q := fmt.Sprintf(`DELETE FROM message WHERE "table" = %s AND row = %s`, store.Placeholder, store.Placeholder)
				_, err = a.store.DB().Exec(a.store.Rewrite(q), args[0], rowNumber)
				if err != nil {
					return errs.Wrap(errs.Database, "deleting messages", err)
				}
				return nil
			}

			q := fmt.Sprintf(`DELETE FROM message WHERE "table" = %s`, store.Placeholder)
			if _, err := a.store.DB().Exec(a.store.Rewrite(q), args[0]); err != nil {
				return errs.Wrap(errs.Database, "deleting messages", err)
			}
			return nil
		},
	}
}
