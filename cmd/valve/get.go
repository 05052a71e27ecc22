package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/errs"
	"github.com/ontodev/valve-go/internal/store"
)

func getCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Inspect configuration and stored data",
	}
	cmd.AddCommand(
		getTableCmd(g),
		getRowCmd(g),
		getCellCmd(g),
		getValueCmd(g),
		getMessagesCmd(g),
		getSchemaCmd(g),
		getTableOrderCmd(g),
	)
	return cmd
}

func getTableCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "table <table>",
		Short: "Print every row of a table's unifying view",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			rows, err := queryView(a, args[0], "")
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
}

func getRowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "row <table> <row>",
		Short: "Print one row from a table's unifying view",
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
			rows, err := queryView(a, args[0], fmt.Sprintf("row_number = %d", rowNumber))
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return errs.Dataf("%s row %d not found", args[0], rowNumber)
			}
			return printJSON(rows[0])
		},
	}
}

func getCellCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cell <table> <row> <column>",
		Short: "Print one cell's value and messages",
		Args:  cobra.ExactArgs(3),
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

			value, err := a.mutator.GetCellFromDB(args[0], rowNumber, args[2])
			if err != nil {
				return err
			}
			messages, err := queryMessages(a, args[0], rowNumber, args[2])
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"table":    args[0],
				"row":      rowNumber,
				"column":   args[2],
				"value":    value,
				"messages": messages,
			})
		},
	}
}

func getValueCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "value <table> <row> <column>",
		Short: "Print one cell's raw value, with no message wrapper",
		Args:  cobra.ExactArgs(3),
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
			value, err := a.mutator.GetCellFromDB(args[0], rowNumber, args[2])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
}

func getMessagesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "messages <table> <row>",
		Short: "Print every message attached to a row",
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
			messages, err := queryMessages(a, args[0], rowNumber, "")
			if err != nil {
				return err
			}
			return printJSON(messages)
		},
	}
}

func getSchemaCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the loaded table/column/datatype configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return printJSON(schemaSummary(a))
		},
	}
}

func getTableOrderCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "table-order",
		Short: "Print tables in dependency load order",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return printJSON(a.cfg.SortedTables)
		},
	}
}

type columnSummary struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Datatype string `json:"datatype"`
	Nulltype string `json:"nulltype,omitempty"`
	Structure string `json:"structure,omitempty"`
}

type tableSummary struct {
	Name    string          `json:"name"`
	Type    string          `json:"type,omitempty"`
	Path    string          `json:"path,omitempty"`
	Columns []columnSummary `json:"columns,omitempty"`
}

func schemaSummary(a *app) []tableSummary {
	var out []tableSummary
	for _, name := range a.cfg.SortedTables {
		t, ok := a.cfg.Tables[name]
		if !ok {
			continue
		}
		ts := tableSummary{Name: t.Name, Type: string(t.Type), Path: t.Path}
		for _, colName := range t.ColumnOrder {
			col := t.Columns[colName]
			if col == nil {
				continue
			}
			ts.Columns = append(ts.Columns, columnSummary{
				Name: col.Name, Label: col.Label, Datatype: col.Datatype,
				Nulltype: col.Nulltype, Structure: col.StructureRaw,
			})
		}
		out = append(out, ts)
	}
	return out
}

// queryView reads table's unifying view, optionally filtered by a raw SQL
// predicate (no user input ever reaches where; callers only pass
// int64-formatted literals), decoding the message/history JSON aggregates
// into nested values instead of opaque strings.
func queryView(a *app, table, where string) ([]map[string]any, error) {
	t, ok := a.cfg.Tables[table]
	if !ok {
		return nil, errs.Configf("unknown table %q", table)
	}
	q := fmt.Sprintf("SELECT row_number, row_order, %s, message, history FROM %s_view", columnList(t.ColumnOrder), table)
	if where != "" {
		q += " WHERE " + where
	}
	rows, err := a.store.DB().Query(q)
	if err != nil {
		return nil, errs.Wrap(errs.Database, fmt.Sprintf("reading %s", table), err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		cells := make([]sql.NullString, len(t.ColumnOrder))
		var rowNumber, rowOrder int64
		var messageJSON, historyJSON sql.NullString
		scanTargets := make([]any, 0, len(cells)+4)
		scanTargets = append(scanTargets, &rowNumber, &rowOrder)
		for i := range t.ColumnOrder {
			scanTargets = append(scanTargets, &cells[i])
		}
		scanTargets = append(scanTargets, &messageJSON, &historyJSON)
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, errs.Wrap(errs.Database, fmt.Sprintf("scanning %s row", table), err)
		}

		m := map[string]any{"row_number": rowNumber, "row_order": rowOrder}
		for i, colName := range t.ColumnOrder {
			if cells[i].Valid {
				m[colName] = cells[i].String
			} else {
				m[colName] = nil
			}
		}
		m["message"] = decodeAggregate(messageJSON)
		m["history"] = decodeAggregate(historyJSON)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Database, fmt.Sprintf("reading %s", table), err)
	}
	return out, nil
}

func decodeAggregate(s sql.NullString) any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return s.String
	}
	return v
}

type messageRecord struct {
	ID      int64  `json:"message_id"`
	Table   string `json:"table"`
	Row     int64  `json:"row"`
	Column  string `json:"column"`
	Value   string `json:"value"`
	Level   string `json:"level"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// queryMessages lists message rows for (table,row), optionally narrowed to
// one column.
func queryMessages(a *app, table string, rowNumber int64, column string) ([]messageRecord, error) {
	q := fmt.Sprintf(`SELECT message_id, "table", row, "column", value, level, rule, message FROM message WHERE "table" = %s AND row = %s`,
		store.Placeholder, store.Placeholder)
	args := []any{table, rowNumber}
	if column != "" {
		q += fmt.Sprintf(` AND "column" = %s`, store.Placeholder)
		args = append(args, column)
	}
	q += " ORDER BY message_id"

	rows, err := a.store.DB().Query(a.store.Rewrite(q), args...)
	if err != nil {
		return nil, errs.Wrap(errs.Database, "reading messages", err)
	}
	defer rows.Close()

	var out []messageRecord
	for rows.Next() {
		var r messageRecord
		if err := rows.Scan(&r.ID, &r.Table, &r.Row, &r.Column, &r.Value, &r.Level, &r.Rule, &r.Message); err != nil {
			return nil, errs.Wrap(errs.Database, "scanning message", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Database, "reading messages", err)
	}
	return out, nil
}
