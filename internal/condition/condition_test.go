package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontodev/valve-go/internal/lang"
)

func compile(t *testing.T, raw string, known map[string]*Compiled) *Compiled {
	t.Helper()
	p := lang.NewParser()
	c, err := Compile(p, raw, known)
	require.NoError(t, err)
	return c
}

func TestCompileEquals(t *testing.T) {
	c := compile(t, `equals("foo")`, nil)
	assert.True(t, c.Predicate("foo"))
	assert.False(t, c.Predicate("bar"))
}

func TestCompileMatch(t *testing.T) {
	c := compile(t, `match(/[0-9]+/)`, nil)
	assert.True(t, c.Predicate("123"))
	assert.False(t, c.Predicate("abc123"))
}

func TestCompileSearch(t *testing.T) {
	c := compile(t, `search(/foo/)`, nil)
	assert.True(t, c.Predicate("xxfooxx"))
	assert.False(t, c.Predicate("bar"))
}

func TestCompileExclude(t *testing.T) {
	c := compile(t, `exclude(/foo/)`, nil)
	assert.False(t, c.Predicate("xxfooxx"))
	assert.True(t, c.Predicate("bar"))
}

func TestCompileIn(t *testing.T) {
	c := compile(t, `in(a, b, c)`, nil)
	assert.True(t, c.Predicate("b"))
	assert.False(t, c.Predicate("d"))
}

func TestCompileMatchCaseInsensitive(t *testing.T) {
	c := compile(t, `match(/abc/i)`, nil)
	assert.True(t, c.Predicate("ABC"))
}

func TestCompileDatatypeReference(t *testing.T) {
	known := map[string]*Compiled{
		"word": compile(t, `match(/[a-z]+/)`, nil),
	}
	c := compile(t, "word", known)
	assert.True(t, c.Predicate("hello"))
	assert.False(t, c.Predicate("Hello"))
}

func TestCompileUnknownDatatypeReferenceFails(t *testing.T) {
	p := lang.NewParser()
	_, err := Compile(p, "nonexistent", map[string]*Compiled{})
	assert.Error(t, err)
}

func TestCompileNoConditionAlwaysTrue(t *testing.T) {
	c := compile(t, "", nil)
	assert.True(t, c.Predicate("anything"))
}

func TestCompileNullAndNotNull(t *testing.T) {
	c := compile(t, "null", nil)
	assert.True(t, c.Predicate("anything"))
	c = compile(t, "not null", nil)
	assert.True(t, c.Predicate("anything"))
}
