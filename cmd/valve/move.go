package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/errs"
)

func moveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "move <table> <row> <after>",
		Short: "Move a row to immediately follow another (0 = first)",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			rowNumber, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return errs.Inputf("row %q is not a number", args[1])
			}
			after, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return errs.Inputf("after %q is not a number", args[2])
			}
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return a.mutator.MoveRow(args[0], rowNumber, after)
		},
	}
}
