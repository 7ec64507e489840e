package twv3

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twmodule"
	"github.com/gotailwindcss/windpress/twresolve"
	"github.com/gotailwindcss/windpress/twvfs"
)

const directives = "@tailwind base;\n@tailwind components;\n@tailwind utilities;\n"

func newTestEngine() *Engine {
	return New(WithFetcher(twfetch.Static{}))
}

func TestCompile(t *testing.T) {

	type tcase struct {
		name       string
		files      map[string]string
		candidates []string
		content    []windpress.ContentRecord
		out        []*regexp.Regexp
		notOut     []*regexp.Regexp
	}

	tcaseList := []tcase{
		{
			name:       "default1",
			files:      map[string]string{"/main.css": directives},
			candidates: []string{"flex", "bg-red-500"},
			out: []*regexp.Regexp{
				regexp.MustCompile(`^` + regexp.QuoteMeta(windpress.Banner("3.4.17")) + "\n"),
				regexp.MustCompile(regexp.QuoteMeta("box-sizing: border-box;")),
				regexp.MustCompile(regexp.QuoteMeta("--tw-translate-x: 0;")),
				regexp.MustCompile(regexp.QuoteMeta(".flex {\n  display: flex;\n}")),
				regexp.MustCompile(regexp.QuoteMeta("background-color: rgb(239 68 68 / var(--tw-bg-opacity, 1));")),
			},
			notOut: []*regexp.Regexp{
				regexp.MustCompile(`theme\(`),
				regexp.MustCompile(`@tailwind`),
			},
		},
		{
			name: "config1",
			files: map[string]string{
				"/main.css": "@tailwind utilities;",
				"/tailwind.config.js": `module.exports = {
  theme: { extend: { colors: { brand: "#123456" } } },
  content: [{ raw: '<div class="text-brand">' }],
};`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".text-brand {")),
			},
		},
		{
			name:    "content-record1",
			files:   map[string]string{"/main.css": "@tailwind utilities;"},
			content: []windpress.ContentRecord{{Content: `<p class="italic underline">hi</p>`}},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".italic {")),
				regexp.MustCompile(regexp.QuoteMeta(".underline {")),
			},
		},
		{
			name: "layer1",
			files: map[string]string{
				"/main.css": directives + `
@layer components {
  .btn { padding: 1rem; }
  .card { color: red; }
}
@layer base {
  h1 { font-size: 2rem; }
}`,
				"/tailwind.config.js": `module.exports = { corePlugins: { preflight: false } };`,
			},
			candidates: []string{"btn", "hover:btn"},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta("h1 {\n  font-size: 2rem;\n}")),
				regexp.MustCompile(regexp.QuoteMeta(".btn {\n  padding: 1rem;\n}")),
				regexp.MustCompile(regexp.QuoteMeta(`.hover\:btn:hover {`)),
				regexp.MustCompile(regexp.QuoteMeta("--tw-translate-x: 0;")),
			},
			notOut: []*regexp.Regexp{
				regexp.MustCompile(`\.card`),
				regexp.MustCompile(`box-sizing: border-box`),
			},
		},
		{
			name: "apply1",
			files: map[string]string{"/main.css": `@tailwind utilities;
@layer components {
  .btn { @apply font-bold px-4; }
}
.x { @apply btn; }`},
			out: []*regexp.Regexp{
				regexp.MustCompile(`(?s)\.x \{[^}]*font-weight:`),
				regexp.MustCompile(`(?s)\.x \{[^}]*padding-left: (1rem|calc\(0\.25rem \* 4\));`),
			},
		},
		{
			name: "dark-class1",
			files: map[string]string{
				"/main.css":           "@tailwind utilities;",
				"/tailwind.config.js": `module.exports = { darkMode: "class" };`,
			},
			candidates: []string{"dark:flex"},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(`:is(.dark .dark\:flex) {`)),
			},
		},
		{
			name: "important1",
			files: map[string]string{
				"/main.css":           "@tailwind utilities;",
				"/tailwind.config.js": `module.exports = { important: "#app" };`,
			},
			candidates: []string{"flex"},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta("#app .flex {")),
			},
		},
		{
			name: "prefix1",
			files: map[string]string{
				"/main.css":           "@tailwind utilities;",
				"/tailwind.config.js": `export default { prefix: "tw-" };`,
			},
			candidates: []string{"tw-flex", "flex"},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".tw-flex {")),
			},
			notOut: []*regexp.Regexp{
				regexp.MustCompile(`\n\.flex `),
			},
		},
		{
			name: "safelist1",
			files: map[string]string{
				"/main.css":           "@tailwind utilities;",
				"/tailwind.config.js": `module.exports = { safelist: ["underline"], blocklist: ["italic"] };`,
			},
			candidates: []string{"italic"},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".underline {")),
			},
			notOut: []*regexp.Regexp{
				regexp.MustCompile(`\.italic`),
			},
		},
		{
			name:       "import1",
			files:      map[string]string{"/main.css": `@import "tailwindcss/utilities";`},
			candidates: []string{"flex"},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".flex {")),
			},
			notOut: []*regexp.Regexp{
				regexp.MustCompile(`box-sizing`),
			},
		},
		{
			name:       "keyframes1",
			files:      map[string]string{"/main.css": "@tailwind utilities;"},
			candidates: []string{"animate-spin"},
			out: []*regexp.Regexp{
				regexp.MustCompile(`(?s)@keyframes spin \{\s*to \{`),
			},
		},
		{
			name: "files1",
			files: map[string]string{
				"/main.css":           "@tailwind utilities;",
				"/tailwind.config.js": `module.exports = { content: ["./src/**/*.html"] };`,
				"/src/index.html":     `<b class="uppercase">`,
				"/other/page.html":    `<b class="lowercase">`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".uppercase {")),
			},
			notOut: []*regexp.Regexp{
				regexp.MustCompile(`\.lowercase`),
			},
		},
		{
			name: "plugin1",
			files: map[string]string{
				"/main.css": "@tailwind utilities;",
				"/tailwind.config.js": `const plugin = require("tailwindcss/plugin");
module.exports = {
  plugins: [
    plugin(function ({ addUtilities }) {
      addUtilities({ ".content-auto": { contentVisibility: "auto" } });
    }),
  ],
};`,
			},
			candidates: []string{"content-auto"},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".content-auto {\n  content-visibility: auto;\n}")),
			},
		},
		{
			name: "at-config1",
			files: map[string]string{
				"/main.css":  `@config "./cfg/tw.js"; @tailwind utilities;`,
				"/cfg/tw.js": `module.exports = { prefix: "x-" };`,
			},
			candidates: []string{"x-flex"},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".x-flex {")),
			},
		},
		{
			name:  "nesting1",
			files: map[string]string{"/main.css": `.card { color: red; &:hover { color: blue; } }`},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".card:hover {\n  color: blue;\n}")),
			},
		},
	}

	e := newTestEngine()
	for _, tc := range tcaseList {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			out, err := e.Compile(context.Background(), &windpress.Request{
				Candidates: tc.candidates,
				Content:    tc.content,
				Volume:     twvfs.NewVolume(tc.files),
			})
			require.NoError(t, err)
			for _, re := range tc.out {
				assert.Regexp(t, re, out)
			}
			for _, re := range tc.notOut {
				assert.NotRegexp(t, re, out)
			}
			if t.Failed() {
				t.Logf("OUTPUT:\n%s", out)
			}
		})
	}
}

func TestCompileDeterministic(t *testing.T) {
	e := newTestEngine()
	vol := twvfs.NewVolume(map[string]string{"/main.css": directives})
	a, err := e.Compile(context.Background(), &windpress.Request{Candidates: []string{"md:flex", "p-1", "hover:underline"}, Volume: vol})
	require.NoError(t, err)
	b, err := e.Compile(context.Background(), &windpress.Request{Candidates: []string{"hover:underline", "p-1", "md:flex"}, Volume: vol})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, e.cache.Len())
}

func TestCompileErrors(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	_, err := e.Compile(ctx, &windpress.Request{Volume: twvfs.NewVolume(nil)})
	var ce *windpress.CompileError
	require.True(t, errors.As(err, &ce))
	var snf *twresolve.StylesheetNotFoundError
	assert.True(t, errors.As(err, &snf))

	_, err = e.Compile(ctx, &windpress.Request{
		Config: "/missing.config.js",
		Volume: twvfs.NewVolume(map[string]string{"/main.css": directives}),
	})
	var mnf *twmodule.ModuleNotFoundError
	assert.True(t, errors.As(err, &mnf))

	_, err = e.Compile(ctx, &windpress.Request{
		Volume: twvfs.NewVolume(map[string]string{"/main.css": `.a { @apply nope-nope; }`}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope-nope")

	_, err = e.Compile(ctx, &windpress.Request{
		Volume: twvfs.NewVolume(map[string]string{
			"/main.css":           directives,
			"/tailwind.config.js": `module.exports = { darkMode: "sometimes" };`,
		}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sometimes")
}

func TestDesignSystem(t *testing.T) {
	e := newTestEngine()
	vol := twvfs.NewVolume(map[string]string{
		"/main.css":           directives,
		"/tailwind.config.js": `module.exports = { theme: { extend: { colors: { brand: "#123456" } } } };`,
	})
	ds, err := e.DesignSystem(context.Background(), "", vol)
	require.NoError(t, err)
	assert.True(t, ds.Legacy())
	assert.True(t, ds.Theme.Has("--color-brand"))

	again, err := e.DesignSystem(context.Background(), windpress.DefaultEntrypoint, vol)
	require.NoError(t, err)
	assert.Same(t, ds, again)
}
