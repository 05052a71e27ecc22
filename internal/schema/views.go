package schema

import (
	"fmt"
	"strings"

	"github.com/ontodev/valve-go/internal/config"
)

// view builds a view unioning base and conflict,
// left-joined with a JSON aggregation of current messages and a JSON array
// of non-undone history summaries, per row_number.
func (m *Materializer) view(t *config.Table) string {
	cols := strings.Join(t.ColumnOrder, ", ")

	messageObj := m.Dialect.jsonObject(
		quoteKey(m.Dialect, "column")+", message."+quoteIdent(m.Dialect, "column"),
		quoteKey(m.Dialect, "value")+", message.value",
		quoteKey(m.Dialect, "level")+", message.level",
		quoteKey(m.Dialect, "rule")+", message.rule",
		quoteKey(m.Dialect, "message")+", message.message",
	)
	messageAgg := m.Dialect.jsonArrayAgg(messageObj)

	historyAgg := m.Dialect.jsonArrayAgg("history.summary")

	return fmt.Sprintf(`CREATE VIEW %s_view AS
SELECT t.row_number, t.row_order, %s,
 (SELECT %s FROM message WHERE message.%s = '%s' AND message.row = t.row_number) AS message,
 (SELECT %s FROM history WHERE history.%s = '%s' AND history.row = t.row_number AND history.undone_by IS NULL) AS history
FROM (
 SELECT row_number, row_order, %s FROM %s
 UNION ALL
 SELECT row_number, row_order, %s FROM %s_conflict
) AS t
ORDER BY t.row_order`,
		t.Name, cols,
		messageAgg, quoteIdent(m.Dialect, "table"), t.Name,
		historyAgg, quoteIdent(m.Dialect, "table"), t.Name,
		cols, t.Name,
		cols, t.Name)
}

// textView builds a view where every column is coerced to TEXT, with a
// NULL value replaced by the most recent message.value for that
// (table,row,column), ordered by descending message id.
func (m *Materializer) textView(t *config.Table) string {
	var exprs []string
	for _, colName := range t.ColumnOrder {
		col := t.Columns[colName]
		sqlType := m.sqlType(col.Datatype)
		fallback := fmt.Sprintf(
			"(SELECT message.value FROM message WHERE message.%s = '%s' AND message.row = t.row_number AND message.%s = '%s' ORDER BY message.message_id DESC LIMIT 1)",
			quoteIdent(m.Dialect, "table"), t.Name, quoteIdent(m.Dialect, "column"), colName,
		)
		expr := fmt.Sprintf("COALESCE(CAST(t.%s AS TEXT), %s) AS %s", colName, fallback, colName)
		if strings.EqualFold(sqlType, "text") {
			expr = fmt.Sprintf("COALESCE(t.%s, %s) AS %s", colName, fallback, colName)
		}
		exprs = append(exprs, expr)
	}

	return fmt.Sprintf(`CREATE VIEW %s_text_view AS
SELECT t.row_number, t.row_order, %s
FROM (
 SELECT row_number, row_order, %s FROM %s
 UNION ALL
 SELECT row_number, row_order, %s FROM %s_conflict
) AS t
ORDER BY t.row_order`,
		t.Name, strings.Join(exprs, ", "),
		strings.Join(t.ColumnOrder, ", "), t.Name,
		strings.Join(t.ColumnOrder, ", "), t.Name)
}

// quoteIdent quotes a reserved-word identifier the way each dialect
// expects; both backends here accept double quotes.
func quoteIdent(_ Dialect, ident string) string {
	return `"` + ident + `"`
}

// quoteKey formats a JSON object key for the dialect's object-builder
// function: json_object() (SQLite) takes bare string keys, json_build_object
// (PostgreSQL) takes the same 'key', value,... pairs.
func quoteKey(_ Dialect, key string) string {
	return "'" + key + "'"
}
