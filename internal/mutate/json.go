package mutate

import (
	"encoding/json"
	"sort"

	"github.com/ontodev/valve-go/internal/history"
)

func marshalRow(row map[string]string) (string, error) {
	if row == nil {
		return "", nil
	}
	b, err := json.Marshal(row)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func marshalSummary(summary []history.ColumnChange) (string, error) {
	sort.Slice(summary, func(i, j int) bool { return summary[i].Column < summary[j].Column })
	b, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
