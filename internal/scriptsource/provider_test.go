package scriptsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString_WritesDedentedScript(t *testing.T) {
	p := NewProvider(t.TempDir(), "")

	path, err := p.FromString("hello.st.js", `
        st.write("hello")
    `)
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\nst.write(\"hello\")\n", string(data))
}

func TestFromString_IndentationNormalizationIdempotent(t *testing.T) {
	p := NewProvider(t.TempDir(), "")

	indented := "        st.write(\"a\")\n        st.write(\"b\")\n"
	flush := "st.write(\"a\")\nst.write(\"b\")\n"

	p1, err := p.FromString("a.st.js", indented)
	require.NoError(t, err)
	p2, err := p.FromString("b.st.js", flush)
	require.NoError(t, err)

	d1, err := os.ReadFile(p1)
	require.NoError(t, err)
	d2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, d2, d1)
}

func TestFromString_UnwritableScratchDirPropagates(t *testing.T) {
	p := NewProvider(filepath.Join(t.TempDir(), "does-not-exist"), "")

	_, err := p.FromString("x.st.js", "st.write(1)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write inline script")
}

func TestFromFixture_ExistingScript(t *testing.T) {
	fixtures := t.TempDir()
	original := "st.write(\"from fixture\")\n"
	require.NoError(t, os.WriteFile(filepath.Join(fixtures, "fix.st.js"), []byte(original), 0o644))

	p := NewProvider(t.TempDir(), fixtures)

	path, err := p.FromFixture("fix.st.js")
	require.NoError(t, err)

	// Returned without modification: no dedent, no rewrite.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestFromFixture_Missing(t *testing.T) {
	p := NewProvider(t.TempDir(), t.TempDir())

	_, err := p.FromFixture("nope.st.js")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "nope.st.js")
}
