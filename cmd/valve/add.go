package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/validate"
)

func addCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert a row, message, or configuration entry",
	}
	cmd.AddCommand(
		addRowCmd(g),
		addColumnCmd(g),
		addDatatypeCmd(g),
		addMessageCmd(g),
		addTableCmd(g),
	)
	return cmd
}

func addRowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "row <table>",
		Short: "Insert a row read as JSON from standard input",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			row, err := readStdinRow()
			if err != nil {
				return err
			}
			rowNumber, validated, err := a.mutator.InsertRow(args[0], row, g.currentUser())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"row_number": rowNumber, "row": validated, "valid": !validated.HasError()})
		},
	}
}

func addMessageCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "message <table> <row>",
		Short: "Attach a message (read as JSON from standard input) to a row",
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
			raw, err := readStdinRow()
			if err != nil {
				return err
			}
			msg := validate.Message{
				Table: args[0], Row: rowNumber,
				Column: raw["column"], Value: raw["value"],
				Level: raw["level"], Rule: raw["rule"], Message: raw["message"],
			}
			return a.mutator.InsertMessage(args[0], rowNumber, msg)
		},
	}
}

func addColumnCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "column <table>",
		Short: "Declare a column (read as JSON from standard input) in column.tsv",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			spec, err := readStdinRow()
			if err != nil {
				return err
			}
			spec["table"] = args[0]
			columnPath := a.cfg.Tables["column"].Path
			return appendMetaRow(columnPath, spec)
		},
	}
}

func addDatatypeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "datatype",
		Short: "Declare a datatype (read as JSON from standard input) in datatype.tsv",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			spec, err := readStdinRow()
			if err != nil {
				return err
			}
			datatypePath := a.cfg.Tables["datatype"].Path
			return appendMetaRow(datatypePath, spec)
		},
	}
}

func addTableCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "table <name> <path>",
		Short: "Declare a user table in table.tsv",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			tablePath := a.cfg.Tables["table"].Path
			return appendMetaRow(tablePath, map[string]string{
				"table": args[0], "path": args[1], "type": "", "description": "",
			})
		},
	}
}
