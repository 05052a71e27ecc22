package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONRow(t *testing.T) {
	row, err := decodeJSONRow(strings.NewReader(`{"id":"1","name":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "1", "name": "alice"}, row)
}

func TestDecodeJSONRowInvalid(t *testing.T) {
	_, err := decodeJSONRow(strings.NewReader(`not json`))
	assert.Error(t, err)
}

// captureStdout redirects os.Stdout for the duration of fn and returns what
// was written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestPrintJSON(t *testing.T) {
	out := captureStdout(t, func() {
		require.NoError(t, printJSON(map[string]any{"a": 1}))
	})
	assert.Contains(t, out, `"a": 1`)
}
