package config

// synthesizeMessageAndHistory builds the fixed-schema `message` and
// `history` table configurations.
func synthesizeMessageAndHistory(cfg *Config) {
	cfg.Tables["message"] = &Table{
		Name: "message", Type: KindMessage,
		ColumnOrder: []string{"message_id", "table", "row", "column", "value", "level", "rule", "message"},
		Columns: map[string]*Column{},
	}
	cfg.Tables["history"] = &Table{
		Name: "history", Type: KindHistory,
		ColumnOrder: []string{"history_id", "table", "row", "from", "to", "summary", "user", "undone_by", "timestamp"},
		Columns: map[string]*Column{},
	}
}
