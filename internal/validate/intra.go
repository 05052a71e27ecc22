package validate

import (
	"fmt"

	"github.com/ontodev/valve-go/internal/config"
)

// IntraRow validates every cell of row against its column's nulltype and
// datatype condition, then every rule keyed on that column. It touches no database and is therefore safe to run on a
// worker goroutine.
func IntraRow(cfg *config.Config, table string, row map[string]string) (Row, error) {
	t, ok := cfg.Tables[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	out := make(Row, len(t.ColumnOrder))
	for _, colName := range t.ColumnOrder {
		col, ok := t.Columns[colName]
		if !ok {
			continue
		}
		raw := row[colName]
		out[colName] = validateCell(cfg, col, raw)
	}

	for _, colName := range t.ColumnOrder {
		for _, rule := range cfg.RulesFor(table, colName) {
			whenCell := out[rule.WhenColumn]
			thenCell := out[rule.ThenColumn]
			if whenCell == nil || thenCell == nil || whenCell.IsNull {
				continue
			}
			if !rule.WhenCondition.Predicate(whenCell.Value) {
				continue
			}
			if rule.ThenCondition.Predicate(thenCell.Value) {
				continue
			}
			msg := Message{
				Table: table,
				Column: rule.ThenColumn,
				Value: thenCell.Value,
				Level: levelOrDefault(rule.Level),
				Rule: "rule:" + ruleName(rule),
				Message: fmt.Sprintf("because %s is %q, %s must satisfy %q", rule.WhenColumn, whenCell.Value, rule.ThenColumn, rule.ThenConditionRaw),
			}
			thenCell.Messages = append(thenCell.Messages, msg)
			if msg.Level == LevelError {
				thenCell.Valid = false
			}
		}
	}

	return out, nil
}

func validateCell(cfg *config.Config, col *config.Column, raw string) *Cell {
	cell := &Cell{Value: raw, Valid: true}

	if col.Nulltype != "" {
		nt := cfg.Datatypes[col.Nulltype]
		if nt != nil && nt.Compiled.Predicate(raw) {
			cell.IsNull = true
			return cell
		}
	}

	dt := cfg.Datatypes[col.Datatype]
	if dt == nil {
		return cell
	}
	if !dt.Compiled.Predicate(raw) {
		cell.Valid = false
		cell.Messages = append(cell.Messages, Message{
			Column: col.Name,
			Value: raw,
			Level: LevelError,
			Rule: "datatype:" + col.Datatype,
			Message: fmt.Sprintf("%q is not a valid %s", raw, col.Datatype),
		})
	}
	return cell
}

func levelOrDefault(level string) string {
	if level == "" {
		return LevelError
	}
	return level
}

func ruleName(r *config.Rule) string {
	return fmt.Sprintf("%s(%s, %s)", r.Table, r.WhenColumn, r.ThenColumn)
}
