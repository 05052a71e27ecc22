// Package condition compiles internal/lang expressions into executable
// string predicates.
package condition

import (
	"fmt"
	"regexp"

	"github.com/ontodev/valve-go/internal/lang"
)

// Predicate is a compiled, read-only test over a cell's raw text. Predicates
// are safe to share by reference across goroutines once compiled: they
// close over immutable state only (a literal, a compiled *regexp.Regexp, or
// another Predicate).
type Predicate func(value string) bool

// Compiled pairs a predicate with the source it was compiled from, for
// error messages and for re-displaying a datatype's condition.
type Compiled struct {
	Original string
	Parsed *lang.Expression
	Predicate Predicate
}

// alwaysTrue is used for the no-condition, "null", and "not null" cases:
// the validator special-cases nullness itself rather than running a
// predicate for it.
func alwaysTrue(string) bool { return true }

// Compile compiles a raw condition string against the map of
// already-compiled datatype predicates (keyed by datatype name). Compiling
// a datatype tree in parent-then-child order (as internal/config does)
// guarantees every bare-Label reference in datatypes is already present in
// compiledDatatypes by the time it's needed, so cycles can't be observed
// here; they are rejected earlier by the acyclicity check on the datatype
// tree.
func Compile(parser *lang.Parser, raw string, compiledDatatypes map[string]*Compiled) (*Compiled, error) {
	switch {
	case raw == "":
		return &Compiled{Original: "", Parsed: lang.None, Predicate: alwaysTrue}, nil
	case lang.IsNull(raw):
		return &Compiled{Original: raw, Parsed: &lang.Expression{Kind: lang.KindLabel, Label: "null"}, Predicate: alwaysTrue}, nil
	case lang.IsNotNull(raw):
		return &Compiled{Original: raw, Parsed: &lang.Expression{Kind: lang.KindLabel, Label: "not null"}, Predicate: alwaysTrue}, nil
	}

	expr, err := parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	return compileExpr(raw, expr, compiledDatatypes)
}

func compileExpr(raw string, expr *lang.Expression, compiledDatatypes map[string]*Compiled) (*Compiled, error) {
	switch expr.Kind {
	case lang.KindFunction:
		pred, err := compileFunction(expr)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", raw, err)
		}
		return &Compiled{Original: raw, Parsed: expr, Predicate: pred}, nil
	case lang.KindLabel:
		referenced, ok := compiledDatatypes[expr.Label]
		if !ok {
			return nil, fmt.Errorf("condition %q refers to unknown datatype %q", raw, expr.Label)
		}
		return &Compiled{Original: raw, Parsed: referenced.Parsed, Predicate: referenced.Predicate}, nil
	default:
		return nil, fmt.Errorf("condition %q is not a function application or datatype reference", raw)
	}
}

func compileFunction(expr *lang.Expression) (Predicate, error) {
	switch expr.Name {
	case "equals":
		if len(expr.Args) != 1 || expr.Args[0].Kind != lang.KindLabel {
			return nil, fmt.Errorf("equals() takes exactly one label argument")
		}
		want := expr.Args[0].Label
		return func(v string) bool { return v == want }, nil

	case "match", "search", "exclude":
		if len(expr.Args) != 1 || expr.Args[0].Kind != lang.KindRegexMatch {
			return nil, fmt.Errorf("%s() takes exactly one regular expression argument", expr.Name)
		}
		re, err := compileRegex(expr.Name, expr.Args[0])
		if err != nil {
			return nil, err
		}
		switch expr.Name {
		case "match":
			return re.MatchString, nil
		case "search":
			return re.MatchString, nil
		default: // exclude
			return func(v string) bool { return !re.MatchString(v) }, nil
		}

	case "in":
		if len(expr.Args) == 0 {
			return nil, fmt.Errorf("in() requires at least one argument")
		}
		alternatives := make(map[string]struct{}, len(expr.Args))
		for _, arg := range expr.Args {
			if arg.Kind != lang.KindLabel {
				return nil, fmt.Errorf("argument to in() is not a label: %s", arg.String())
			}
			alternatives[arg.Label] = struct{}{}
		}
		return func(v string) bool {
			_, ok := alternatives[v]
			return ok
		}, nil

	default:
		return nil, fmt.Errorf("unrecognized function %q", expr.Name)
	}
}

func compileRegex(name string, node *lang.Expression) (*regexp.Regexp, error) {
	flags := ""
	if node.Flags != "" {
		flags = "(?" + node.Flags + ")"
	}
	var pattern string
	switch name {
	case "match":
		pattern = "^" + flags + node.Pattern + "$"
	default: // search, exclude
		pattern = flags + node.Pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression /%s/%s: %w", node.Pattern, node.Flags, err)
	}
	return re, nil
}
