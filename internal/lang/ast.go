// Package lang implements the small expression language used by datatype
// conditions, column structure, and rule conditions. It turns a
// condition string into an AST; internal/condition compiles the AST into an
// executable predicate.
package lang

import "fmt"

// Kind tags the variant of an Expression node.
type Kind int

const (
	KindNone Kind = iota
	KindLabel
	KindField
	KindRegexMatch
	KindFunction
)

// Expression is a node of the parsed condition language. Ownership is
// tree-shaped (no back-references), so a single tagged struct with a
// children slice is enough; there is no need for reference-counted or
// interface-based node types.
type Expression struct {
	Kind Kind

	// KindLabel / KindField
	Label string // KindLabel: the bare word/string. KindField: the column part.
	Table string // KindField only: the table part.

	// KindRegexMatch
	Pattern string
	Flags string

	// KindFunction
	Name string
	Args []*Expression
}

// None is the "no condition" expression. The validator treats an absent
// condition, and the literal "null"/"not null" conditions, specially rather
// than through a compiled predicate.
var None = &Expression{Kind: KindNone}

func (e *Expression) String() string {
	switch e.Kind {
	case KindNone:
		return ""
	case KindLabel:
		return e.Label
	case KindField:
		return fmt.Sprintf("%s.%s", e.Table, e.Label)
	case KindRegexMatch:
		return fmt.Sprintf("/%s/%s", e.Pattern, e.Flags)
	case KindFunction:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.String()
		}
		s := e.Name + "("
		for i, a := range args {
			if i > 0 {
				s += ", "
			}
			s += a
		}
		return s + ")"
	default:
		return "<invalid>"
	}
}

// IsNull reports whether the raw (unparsed) condition string is the literal
// "null" keyword, handled specially by the validator rather than compiled.
func IsNull(raw string) bool { return raw == "null" }

// IsNotNull reports whether the raw condition string is "not null".
func IsNotNull(raw string) bool { return raw == "not null" }
