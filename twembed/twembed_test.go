package twembed

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDist(t *testing.T) {
	for _, name := range []string{"index", "theme.css", "preflight", "utilities"} {
		rc, err := New(4).OpenDist(name)
		require.NoError(t, err, name)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.NotEmpty(t, b, name)
	}
	for _, name := range []string{"base", "theme"} {
		s, err := New(3).ReadDist(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, s)
	}
	_, err := New(3).OpenDist("index")
	assert.Error(t, err)
}

func TestStylesheet(t *testing.T) {
	p, s, ok := Stylesheet("tailwindcss")
	require.True(t, ok)
	assert.Equal(t, "/node_modules/tailwindcss/index.css", p)
	assert.Contains(t, s, `@import "./theme.css" layer(theme);`)

	_, s, ok = Stylesheet("tailwindcss/theme.css")
	require.True(t, ok)
	assert.Contains(t, s, "--color-red-500: oklch(63.7% 0.237 25.331);")

	_, _, ok = Stylesheet("daisyui")
	assert.False(t, ok)
}
