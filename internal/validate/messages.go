package validate

import "sort"

// SortMessages orders messages by (table, row, column, rule) for stable
// display. Ordering isn't strictly required for correctness, but every
// caller benefits from determinism.
func SortMessages(messages []Message) []Message {
	out := append([]Message(nil), messages...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Rule < b.Rule
	})
	return out
}

// Summary is a per-level message count. The CLI's load commands do not
// print it.
type Summary struct {
	Error   int
	Warning int
	Info    int
	Update  int
}

// AddMessageCounts tallies messages into s by level.
func (s *Summary) AddMessageCounts(messages []Message) {
	for _, m := range messages {
		switch m.Level {
		case LevelError:
			s.Error++
		case LevelWarning:
			s.Warning++
		case LevelInfo:
			s.Info++
		case LevelUpdate:
			s.Update++
		}
	}
}
