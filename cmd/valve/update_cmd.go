package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/validate"
)

func updateCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a row, a single cell, or a message",
	}
	cmd.AddCommand(updateRowCmd(g), updateValueCmd(g), updateMessageCmd(g))
	return cmd
}

func updateRowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "row <table> <row>",
		Short: "Replace a row's content, read as JSON from standard input",
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
			row, err := readStdinRow()
			if err != nil {
				return err
			}
			validated, err := a.mutator.UpdateRow(args[0], rowNumber, row, g.currentUser())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"row": validated, "valid": !validated.HasError()})
		},
	}
}

func updateValueCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "value <table> <row> <column> <value>",
		Short: "Update a single cell",
		Args:  cobra.ExactArgs(4),
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
			validated, err := a.mutator.UpdateValue(args[0], rowNumber, args[2], args[3], g.currentUser())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"row": validated, "valid": !validated.HasError()})
		},
	}
}

func updateMessageCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "message <message-id>",
		Short: "Overwrite a message in place, read as JSON from standard input",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			messageID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errs.Inputf("message id %q is not a number", args[0])
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
				Column: raw["column"], Value: raw["value"],
				Level: raw["level"], Rule: raw["rule"], Message: raw["message"],
			}
			return a.mutator.UpdateMessage(messageID, msg)
		},
	}
}
