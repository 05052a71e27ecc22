package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	p := NewParser()
	expr, err := p.Parse("word")
	require.NoError(t, err)
	assert.Equal(t, KindLabel, expr.Kind)
	assert.Equal(t, "word", expr.Label)
}

func TestParseQuotedLabel(t *testing.T) {
	p := NewParser()
	expr, err := p.Parse(`'some value'`)
	require.NoError(t, err)
	assert.Equal(t, KindLabel, expr.Kind)
	assert.Equal(t, "some value", expr.Label)
}

func TestParseField(t *testing.T) {
	p := NewParser()
	expr, err := p.Parse("parent.table")
	require.NoError(t, err)
	assert.Equal(t, KindField, expr.Kind)
	assert.Equal(t, "parent", expr.Table)
	assert.Equal(t, "table", expr.Label)
}

func TestParseRegexMatch(t *testing.T) {
	p := NewParser()
	expr, err := p.Parse("match(/^[A-Z]+$/i)")
	require.NoError(t, err)
	require.Equal(t, KindFunction, expr.Kind)
	assert.Equal(t, "match", expr.Name)
	require.Len(t, expr.Args, 1)
	assert.Equal(t, KindRegexMatch, expr.Args[0].Kind)
	assert.Equal(t, "^[A-Z]+$", expr.Args[0].Pattern)
	assert.Equal(t, "i", expr.Args[0].Flags)
}

func TestParseFunctionMultiArg(t *testing.T) {
	p := NewParser()
	expr, err := p.Parse(`in("a", "b", c)`)
	require.NoError(t, err)
	require.Equal(t, KindFunction, expr.Kind)
	assert.Equal(t, "in", expr.Name)
	require.Len(t, expr.Args, 3)
	assert.Equal(t, "a", expr.Args[0].Label)
	assert.Equal(t, "b", expr.Args[1].Label)
	assert.Equal(t, "c", expr.Args[2].Label)
}

func TestParseNestedFunction(t *testing.T) {
	p := NewParser()
	expr, err := p.Parse(`from(table.column)`)
	require.NoError(t, err)
	require.Equal(t, KindFunction, expr.Kind)
	require.Len(t, expr.Args, 1)
	assert.Equal(t, KindField, expr.Args[0].Kind)
}

func TestParseNone(t *testing.T) {
	p := NewParser()
	expr, err := p.Parse("")
	require.NoError(t, err)
	assert.Equal(t, KindNone, expr.Kind)
}

func TestParseTrailingGarbageIsError(t *testing.T) {
	p := NewParser()
	_, err := p.Parse("equals(x) equals(y)")
	assert.Error(t, err)
}

func TestParseUnterminatedRegex(t *testing.T) {
	p := NewParser()
	_, err := p.Parse("match(/abc)")
	assert.Error(t, err)
}
