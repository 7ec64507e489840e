package twdesign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress/twcss"
)

func TestThemeAdd(t *testing.T) {
	th := NewTheme()
	th.Add("--color-red-500", "red", 0)
	th.Add("--color-red-500", "#f00", ThemeDefault)
	v, _ := th.Get("--color-red-500")
	assert.Equal(t, "red", v, "defaults never override explicit tokens")

	th.Add("--color-blue-500", "blue", 0)
	th.Add("--spacing", "0.25rem", 0)
	th.Add("--color-*", "initial", 0)
	assert.Equal(t, []string{"--spacing"}, th.Keys())

	th.Add("--*", "initial", 0)
	assert.Zero(t, th.Len())
}

func TestThemeNamespace(t *testing.T) {
	th := NewTheme()
	th.Add("--radius", "0.25rem", 0)
	th.Add("--radius-md", "0.375rem", 0)
	th.Add("--text-sm", "0.875rem", 0)
	th.Add("--text-sm--line-height", "1.25rem", 0)
	assert.Equal(t, []string{"DEFAULT", "md"}, th.Namespace("--radius"))
	assert.Equal(t, []string{"sm"}, th.Namespace("--text"))

	key, ok := th.Resolve("", "--radius")
	assert.True(t, ok)
	assert.Equal(t, "--radius", key)
	_, ok = th.Resolve("xl", "--radius")
	assert.False(t, ok)
}

func TestThemePathKey(t *testing.T) {
	th := NewTheme()
	th.Add("--color-red-500", "#ef4444", 0)
	th.Add("--text-lg", "1.125rem", 0)
	th.Add("--text-lg--line-height", "1.75rem", 0)
	th.Add("--breakpoint-md", "48rem", 0)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"colors.red.500", "--color-red-500", true},
		{"colors.red[500]", "--color-red-500", true},
		{"--color-red-500", "--color-red-500", true},
		{"fontSize.lg", "--text-lg", true},
		{"fontSize.lg.1.lineHeight", "--text-lg--line-height", true},
		{"screens.md", "--breakpoint-md", true},
		{"colors.green.500", "", false},
	}
	for _, tc := range tests {
		got, ok := th.PathKey(tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}
}

func TestThemeVariablesSkipReference(t *testing.T) {
	th := NewTheme()
	th.Add("--color-red-500", "#ef4444", 0)
	th.Add("--font-sans", "ui-sans-serif", ThemeReference)
	assert.Equal(t, []Variable{{Key: "--color-red-500", Value: "#ef4444"}}, th.Variables())

	c := th.Clone()
	c.Add("--color-red-500", "red", 0)
	v, _ := th.Get("--color-red-500")
	assert.Equal(t, "#ef4444", v)
}

func TestPathNamespace(t *testing.T) {
	assert.Equal(t, "--color-red", PathNamespace("colors.red"))
	assert.Equal(t, "--spacing", PathNamespace("spacing"))
	assert.Equal(t, "--shadow-inner", PathNamespace("boxShadow.inner"))
	assert.Equal(t, "--tab-size-4", PathNamespace("tabSize.4"))
	assert.Equal(t, "--color", PathNamespace("--color-*"))
}

func TestThemeAddRule(t *testing.T) {
	nodes, err := twcss.Parse(`@theme inline reference {
  --spacing-1\.5: 0.375rem;
  --color-*: initial;
  @keyframes wiggle { 50% { rotate: 3deg; } }
}`, "")
	require.NoError(t, err)
	th := NewTheme()
	th.Add("--color-red-500", "red", 0)
	th.AddRule(nodes[0])

	tv, ok := th.Lookup("--spacing-1.5")
	require.True(t, ok)
	assert.Equal(t, "0.375rem", tv.Value)
	assert.Equal(t, ThemeInline|ThemeReference, tv.Options)
	assert.False(t, th.Has("--color-red-500"))
	assert.Equal(t, []string{"wiggle"}, th.KeyframeNames())

	assert.Equal(t, ThemeDefault|ThemeStatic, ParseThemeOptions("default theme(static)"))
}
