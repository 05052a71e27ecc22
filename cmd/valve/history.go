package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ontodev/valve-go/internal/errs"
)

func undoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recent not-yet-undone history entry",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return a.mutator.Undo(g.currentUser())
		},
	}
}

func redoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Re-apply the oldest undone history entry",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return a.mutator.Redo()
		},
	}
}

type historyFlags struct {
	context int
}

type historyRecord struct {
	ID        int64   `json:"history_id"`
	Table     string  `json:"table"`
	Row       int64   `json:"row"`
	From      any     `json:"from"`
	To        any     `json:"to"`
	Summary   any     `json:"summary"`
	User      string  `json:"user"`
	UndoneBy  *string `json:"undone_by"`
	Timestamp int64   `json:"timestamp"`
	BatchID   string  `json:"batch_id"`
}

func historyCmd(g *globalFlags) *cobra.Command {
	flags := &historyFlags{context: 10}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent history entries, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			records, err := listHistory(a, flags.context)
			if err != nil {
				return err
			}
			return printJSON(records)
		},
	}
	cmd.Flags().IntVar(&flags.context, "context", 10, "number of history entries to list")
	return cmd
}

func listHistory(a *app, limit int) ([]historyRecord, error) {
	q := fmt.Sprintf(`SELECT history_id, "table", row, "from", "to", summary, "user", undone_by, timestamp, batch_id
FROM history ORDER BY history_id DESC LIMIT %d`, limit)
	rows, err := a.store.DB().Query(q)
	if err != nil {
		return nil, errs.Wrap(errs.Database, "reading history", err)
	}
	defer rows.Close()

	var out []historyRecord
	for rows.Next() {
		var (
			id, row, timestamp      int64
			table                   string
			from, to, summary, user sql.NullString
			undoneBy                sql.NullString
			batchID                 sql.NullString
		)
		if err := rows.Scan(&id, &table, &row, &from, &to, &summary, &user, &undoneBy, &timestamp, &batchID); err != nil {
			return nil, errs.Wrap(errs.Database, "scanning history", err)
		}
		rec := historyRecord{
			ID: id, Table: table, Row: row, User: user.String, Timestamp: timestamp, BatchID: batchID.String,
			From:    decodeAggregate(from),
			To:      decodeAggregate(to),
			Summary: decodeAggregate(summary),
		}
		if undoneBy.Valid {
			rec.UndoneBy = &undoneBy.String
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Database, "reading history", err)
	}
	return out, nil
}
