// Package history models the undo/redo log.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ColumnChange is one entry of a history summary array.
type ColumnChange struct {
	Column string `json:"column"`
	Level string `json:"level"`
	OldValue string `json:"old_value"`
	Value string `json:"value"`
	Message string `json:"message"`
}

// Entry is one row of the `history` table.
type Entry struct {
	ID int64
	BatchID string // correlates every history row produced by one cascading mutator call
	Table string
	Row int64
	From json.RawMessage
	To json.RawMessage
	Summary []ColumnChange
	User string
	UndoneBy string
	Timestamp int64 // unix seconds
}

// NewBatchID mints a correlation id for one logical mutator call, so a
// cascading update's several history rows (the target row plus every
// dependent row it touches) can be found together later via their shared
// batch_id column.
func NewBatchID() string {
	return uuid.NewString()
}

// Summarize builds the per-column summary between a before and after
// column->value map.
func Summarize(before, after map[string]string, level string, messageFor func(column string) string) []ColumnChange {
	var out []ColumnChange
	cols := make(map[string]bool, len(before)+len(after))
	for c := range before {
		cols[c] = true
	}
	for c := range after {
		cols[c] = true
	}
	for col := range cols {
		ov, nv := before[col], after[col]
		if ov == nv {
			continue
		}
		msg := ""
		if messageFor != nil {
			msg = messageFor(col)
		} else {
			msg = fmt.Sprintf("changed from %q to %q", ov, nv)
		}
		out = append(out, ColumnChange{Column: col, Level: level, OldValue: ov, Value: nv, Message: msg})
	}
	return out
}
