package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/store"
	"github.com/ontodev/valve-go/internal/validate"
)

func validateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use: "validate <table> [row [column value]]",
		Short: "Validate a row without persisting it; exits 1 if any cell is invalid",
		Args: cobra.RangeArgs(1, 4),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(g, args)
		},
	}
}

func runValidate(g *globalFlags, args []string) error {
	a, err := openApp(g)
	if err != nil {
		return err
	}
	defer a.close()

	table := args[0]
	switch len(args) {
	case 1:
		return validateNewRow(a, table)
	case 2:
		rowNumber, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errs.Inputf("row %q is not a number", args[1])
		}
		return validateReplacedRow(a, table, rowNumber)
	case 4:
		rowNumber, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errs.Inputf("row %q is not a number", args[1])
		}
		return validateCell(a, table, rowNumber, args[2], args[3])
	default:
		return errs.Inputf("validate takes <table> [row [column value]]")
	}
}

func validateNewRow(a *app, table string) error {
	raw, err := readStdinRow()
	if err != nil {
		return err
	}

	row, err := validate.IntraRow(a.cfg, table, raw)
	if err != nil {
		return errs.Wrap(errs.Data, "intra-row validation", err)
	}

	tx, err := a.store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	nextRow, err := nextRowNumber(a, tx, table)
	if err != nil {
		return err
	}
	row, _, err = validate.InterRow(tx, a.store.Dialect, a.cfg, table, nextRow, row, &validate.QueryAsIf{
		Kind: validate.AsIfAdd, Table: table, RowNumber: nextRow, Row: row,
	})
	if err != nil {
		return errs.Wrap(errs.Database, "inter-row validation", err)
	}

	return reportValidation(row)
}

func validateReplacedRow(a *app, table string, rowNumber int64) error {
	raw, err := readStdinRow()
	if err != nil {
		return err
	}

	row, err := validate.IntraRow(a.cfg, table, raw)
	if err != nil {
		return errs.Wrap(errs.Data, "intra-row validation", err)
	}

	tx, err := a.store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	row, _, err = validate.InterRow(tx, a.store.Dialect, a.cfg, table, rowNumber, row, &validate.QueryAsIf{
		Kind: validate.AsIfReplace, Table: table, RowNumber: rowNumber, Row: row,
	})
	if err != nil {
		return errs.Wrap(errs.Database, "inter-row validation", err)
	}

	return reportValidation(row)
}

func validateCell(a *app, table string, rowNumber int64, column, value string) error {
	current, err := a.mutator.GetRowFromDB(table, rowNumber)
	if err != nil {
		return err
	}
	raw := make(map[string]string, len(current))
	for k, v := range current {
		raw[k] = v
	}
	raw[column] = value

	row, err := validate.IntraRow(a.cfg, table, raw)
	if err != nil {
		return errs.Wrap(errs.Data, "intra-row validation", err)
	}

	tx, err := a.store.DB().Begin()
	if err != nil {
		return errs.Wrap(errs.Database, "beginning transaction", err)
	}
	defer tx.Rollback()

	row, _, err = validate.InterRow(tx, a.store.Dialect, a.cfg, table, rowNumber, row, &validate.QueryAsIf{
		Kind: validate.AsIfReplace, Table: table, RowNumber: rowNumber, Row: row,
	})
	if err != nil {
		return errs.Wrap(errs.Database, "inter-row validation", err)
	}

	return reportValidation(row)
}

// nextRowNumber mirrors the mutator's own row-number allocation, used here only to pick a placeholder row number for a not-yet-
// inserted row's counterfactual validation.
func nextRowNumber(a *app, tx *sql.Tx, table string) (int64, error) {
	var maxBase, maxConflict, maxHistory sql.NullInt64
	if err := tx.QueryRow(fmt.Sprintf("SELECT MAX(row_number) FROM %s", table)).Scan(&maxBase); err != nil {
		return 0, errs.Wrap(errs.Database, "allocating row number", err)
	}
	if err := tx.QueryRow(fmt.Sprintf("SELECT MAX(row_number) FROM %s_conflict", table)).Scan(&maxConflict); err != nil {
		return 0, errs.Wrap(errs.Database, "allocating row number", err)
	}
	q := a.store.Rewrite(fmt.Sprintf(`SELECT MAX(row) FROM history WHERE "table" = %s`, store.Placeholder))
	if err := tx.QueryRow(q, table).Scan(&maxHistory); err != nil {
		return 0, errs.Wrap(errs.Database, "allocating row number", err)
	}
	max := int64(0)
	if maxBase.Valid && maxBase.Int64 > max {
		max = maxBase.Int64
	}
	if maxConflict.Valid && maxConflict.Int64 > max {
		max = maxConflict.Int64
	}
	if maxHistory.Valid && maxHistory.Int64 > max {
		max = maxHistory.Int64
	}
	return max + 1, nil
}

func reportValidation(row validate.Row) error {
	out := map[string]any{
		"row": row,
		"messages": row.AllMessages(),
		"valid": !row.HasError(),
	}
	if err := printJSON(out); err != nil {
		return err
	}
	if row.HasError() {
		return errs.Dataf("row is invalid")
	}
	return nil
}
