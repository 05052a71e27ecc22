package config

import (
	"fmt"

	"github.com/ontodev/valve-go/internal/lang"
)

// ParseStructure parses a column's structure string using the same
// expression grammar as conditions: `primary` and `unique` are bare
// labels, `from`/`tree`/`under` are function applications.
func ParseStructure(parser *lang.Parser, raw string) (Structure, error) {
	if raw == "" {
		return Structure{Kind: StructureNone}, nil
	}

	expr, err := parser.Parse(raw)
	if err != nil {
		return Structure{}, fmt.Errorf("parsing structure %q: %w", raw, err)
	}

	switch expr.Kind {
	case lang.KindLabel:
		switch expr.Label {
		case "primary":
			return Structure{Kind: StructurePrimary}, nil
		case "unique":
			return Structure{Kind: StructureUnique}, nil
		default:
			return Structure{}, fmt.Errorf("unrecognized structure %q", raw)
		}

	case lang.KindFunction:
		switch expr.Name {
		case "from":
			if len(expr.Args) != 1 || expr.Args[0].Kind != lang.KindField {
				return Structure{}, fmt.Errorf("from() requires a single table.column argument, got %q", raw)
			}
			return Structure{Kind: StructureFrom, FromTable: expr.Args[0].Table, FromColumn: expr.Args[0].Label}, nil

		case "tree":
			if len(expr.Args) != 1 || expr.Args[0].Kind != lang.KindLabel {
				return Structure{}, fmt.Errorf("tree() requires a single column argument, got %q", raw)
			}
			return Structure{Kind: StructureTree, TreeChildColumn: expr.Args[0].Label}, nil

		case "under":
			if len(expr.Args) != 2 || expr.Args[0].Kind != lang.KindField {
				return Structure{}, fmt.Errorf("under() requires (table.column, value), got %q", raw)
			}
			value := expr.Args[1].Label
			if expr.Args[1].Kind == lang.KindField {
				value = expr.Args[1].Table + "." + expr.Args[1].Label
			}
			return Structure{
				Kind: StructureUnder,
				UnderTable: expr.Args[0].Table,
				UnderColumn: expr.Args[0].Label,
				UnderValue: value,
			}, nil

		default:
			return Structure{}, fmt.Errorf("unrecognized structure function %q", expr.Name)
		}
	default:
		return Structure{}, fmt.Errorf("unrecognized structure %q", raw)
	}
}
