package twfiles

import (
	"context"
	"net/http"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress/twvfs"
)

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"main.css":                     {Data: []byte(`@import "tailwindcss";`)},
		"tailwind.config.js":           {Data: []byte(`module.exports = {}`)},
		"plugins/x.mjs":                {Data: []byte(`export default {}`)},
		"index.html":                   {Data: []byte(`<p>`)},
		"node_modules/a/index.css":     {Data: []byte(`.a{}`)},
		"dist/out.css":                 {Data: []byte(`.b{}`)},
		"big.css":                      {Data: make([]byte, 64)},
		".gitignore":                   {Data: []byte("dist/\n")},
		"components/card/style.css":    {Data: []byte(`.card{}`)},
		"components/card/fixture.json": {Data: []byte(`{}`)},
	}

	vol, err := LoadFS(fsys, WithMaxSize(32))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/components/card/fixture.json",
		"/components/card/style.css",
		"/main.css",
		"/plugins/x.mjs",
		"/tailwind.config.js",
	}, vol.Paths())

	vol, err = LoadFS(fsys, WithPatterns("*.css"), WithIgnore("main.css"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/big.css"}, vol.Paths())
}

func TestLoadSave(t *testing.T) {
	ctx := context.Background()
	vol := twvfs.NewVolume(map[string]string{
		"/main.css":           `@import "tailwindcss";`,
		"/plugins/forms.js":   `module.exports = function () {}`,
		"/tailwind.config.js": `module.exports = {}`,
	})
	base := "mem://localhost/twfiles/case001"
	require.NoError(t, Save(ctx, vol, base))

	got, err := Load(ctx, base)
	require.NoError(t, err)
	assert.True(t, vol.Equal(got), "got %v", got.Map())

	got, err = Load(ctx, base, WithPatterns("plugins/**"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/plugins/forms.js"}, got.Paths())
}

func TestHTTPFiles(t *testing.T) {
	hf := NewHTTP(http.FS(fstest.MapFS{
		"site/main.css": {Data: []byte(`@tailwind utilities;`)},
	}))
	hf.NameMapFunc = func(p string) string { return "site" + p }
	vol, err := hf.Load("/main.css", "/tailwind.config.js")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"/main.css": `@tailwind utilities;`}, vol.Map())
}
