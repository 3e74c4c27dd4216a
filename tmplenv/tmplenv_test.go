package tmplenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOptionalOmitLaw(t *testing.T) {
	env := New()

	value, ok, err := env.RenderOptional("t", "{{ omit }}", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestRenderOptionalNonOmitPassesThrough(t *testing.T) {
	env := New()

	value, ok, err := env.RenderOptional("t", "hello {{ .name }}", map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello world", value)
}

func TestOmitSentinelUniquePerEnv(t *testing.T) {
	a := New()
	b := New()
	assert.NotEqual(t, a.OmitSentinel(), b.OmitSentinel())
}

func TestDefaultFilterFallsBackOnOmit(t *testing.T) {
	env := New()

	rendered, err := env.Render("t", `{{ omit | default "fallback" true }}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", rendered)
}

func TestDefaultFilterPassesThroughNonEmpty(t *testing.T) {
	env := New()

	rendered, err := env.Render("t", `{{ .desc | default "fallback" true }}`, map[string]any{"desc": "Amazon"})
	require.NoError(t, err)
	assert.Equal(t, "Amazon", rendered)
}

func TestAsPosixPathNormalizesBackslashes(t *testing.T) {
	env := New()

	rendered, err := env.Render("t", `{{ .path | as_posix_path }}`, map[string]any{"path": `data\mercury.csv`})
	require.NoError(t, err)
	assert.Equal(t, "data/mercury.csv", rendered)
}

func TestIsOmittedExactMatchOnly(t *testing.T) {
	env := New()
	assert.True(t, env.IsOmitted(env.OmitSentinel()))
	assert.False(t, env.IsOmitted(env.OmitSentinel()+"x"))
}
