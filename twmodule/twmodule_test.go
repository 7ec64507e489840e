package twmodule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twvfs"
)

func TestScanImports(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{name: "default import", src: `import colors from "./colors"`, want: []string{"./colors"}},
		{name: "side effect", src: `import './setup.js';`, want: []string{"./setup.js"}},
		{name: "named", src: `import { a, b as c } from '../lib'`, want: []string{"../lib"}},
		{name: "namespace", src: `import * as ns from "pkg"`, want: []string{"pkg"}},
		{name: "re-export", src: `export { x } from "./x"; export * from './y'`, want: []string{"./x", "./y"}},
		{name: "require", src: `const p = require("tailwindcss/plugin")`, want: []string{"tailwindcss/plugin"}},
		{name: "dynamic", src: "const m = await import(`./lazy.js`)", want: []string{"./lazy.js"}},
		{name: "dynamic with quote", src: "import(`./it's.js`); import(\"./b\")", want: []string{"./it's.js", "./b"}},
		{name: "unterminated template", src: "import(`./a.js", want: nil},
		{name: "template with expression", src: "import(`./${name}.js`)", want: nil},
		{name: "comments", src: "// import a from './a'\n/* require('./b') */\nimport c from './c'", want: []string{"./c"}},
		{name: "member call", src: `obj.require("./nope")`, want: nil},
		{name: "object key from", src: `export default { theme: { from: "x" }, plugins: [require("./p")] }`, want: []string{"./p"}},
		{name: "plain strings", src: `const s = "./not-an-import"`, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, s := range scanImports(tc.src) {
				got = append(got, s.Value)
				assert.Equal(t, s.Value, tc.src[s.Offset+1:s.End-1])
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLoadModule(t *testing.T) {
	vol := twvfs.NewVolume(map[string]string{
		"/tailwind.config.js": `import colors from './colors'
const plugin = require('tailwindcss/plugin')
export default {
  theme: { extend: { colors } },
  plugins: [plugin(function () {})],
}`,
		"/colors.ts": `const brand: string = '#0ea5e9'
export default { brand }`,
	})
	l := New(WithFetcher(twfetch.Static{}))
	m, err := l.LoadModule(context.Background(), "./tailwind.config.js", "/", vol)
	require.NoError(t, err)
	assert.Equal(t, "/tailwind.config.js", m.Path)
	assert.Equal(t, "/", m.Base)

	var cfg map[string]interface{}
	require.NoError(t, m.Runtime.ExportTo(m.Default, &cfg))
	theme := cfg["theme"].(map[string]interface{})
	colors := theme["extend"].(map[string]interface{})["colors"].(map[string]interface{})
	assert.Equal(t, "#0ea5e9", colors["brand"])
	assert.Len(t, cfg["plugins"], 1)
}

func TestLoadModuleExtensions(t *testing.T) {
	vol := twvfs.NewVolume(map[string]string{
		"/lib/index.js": `module.exports = { value: 42 }`,
		"/data.json":    `{"name": "windpress"}`,
		"/main.js":      `module.exports = { lib: require('./lib').value, name: require('./data').name }`,
	})
	m, err := New(WithFetcher(twfetch.Static{})).LoadModule(context.Background(), "/main", "", vol)
	require.NoError(t, err)
	obj := m.Exports.ToObject(m.Runtime)
	assert.EqualValues(t, 42, obj.Get("lib").ToInteger())
	assert.Equal(t, "windpress", obj.Get("name").String())
}

func TestLoadModuleNotFound(t *testing.T) {
	vol := twvfs.NewVolume(map[string]string{
		"/a.js": `export * from './b'`,
		"/b.js": `import x from './missing'; export default x`,
	})
	l := New(WithFetcher(twfetch.Static{}))

	_, err := l.LoadModule(context.Background(), "./nope.js", "/", vol)
	var nf *ModuleNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "./nope.js", nf.Path)

	_, err = l.LoadModule(context.Background(), "/a.js", "/", vol)
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "./missing", nf.Path)
	assert.Equal(t, []string{"/a.js", "/b.js", "./missing"}, nf.Chain)
}

func TestLoadModuleRemote(t *testing.T) {
	fetcher := twfetch.Static{
		"https://cdn.example.com/pkg/plugin.js": `const helper = require('./helper.js'); module.exports = { name: helper() }`,
		"https://cdn.example.com/pkg/helper.js": `module.exports = () => 'remote'`,
	}
	vol := twvfs.NewVolume(nil)
	m, err := New(WithFetcher(fetcher)).LoadModule(context.Background(), "https://cdn.example.com/pkg/plugin.js", "/", vol)
	require.NoError(t, err)
	assert.Equal(t, "remote", m.Exports.ToObject(m.Runtime).Get("name").String())
	assert.Equal(t, 0, vol.Len())
}

func TestLoadModuleEvalError(t *testing.T) {
	vol := twvfs.NewVolume(map[string]string{
		"/bad.js":   `module.exports = {`,
		"/throw.js": `throw new Error("boom")`,
	})
	l := New(WithFetcher(twfetch.Static{}))
	var ee *EvalError
	_, err := l.LoadModule(context.Background(), "/bad.js", "/", vol)
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "/bad.js", ee.Path)
	_, err = l.LoadModule(context.Background(), "/throw.js", "/", vol)
	require.True(t, errors.As(err, &ee))
	assert.Contains(t, err.Error(), "boom")
}

func TestLoadModuleCycle(t *testing.T) {
	vol := twvfs.NewVolume(map[string]string{
		"/a.js": `exports.name = 'a'; const b = require('./b'); exports.other = b.name`,
		"/b.js": `exports.name = 'b'; const a = require('./a'); exports.seen = a.name`,
	})
	m, err := New(WithFetcher(twfetch.Static{})).LoadModule(context.Background(), "/a.js", "/", vol)
	require.NoError(t, err)
	assert.Equal(t, "b", m.Exports.ToObject(m.Runtime).Get("other").String())
}

func TestLoadModuleInterrupted(t *testing.T) {
	vol := twvfs.NewVolume(map[string]string{"/loop.js": `for (;;) {}`})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(WithFetcher(twfetch.Static{})).LoadModule(ctx, "/loop.js", "/", vol)
	var ee *EvalError
	require.True(t, errors.As(err, &ee))
}

func TestBuiltinWithOptions(t *testing.T) {
	vol := twvfs.NewVolume(map[string]string{
		"/p.js": `const plugin = require('tailwindcss/plugin')
module.exports = plugin.withOptions((o) => () => o.size, (o) => ({ theme: { size: o.size } }))({ size: 3 })`,
	})
	m, err := New(WithFetcher(twfetch.Static{})).LoadModule(context.Background(), "/p.js", "/", vol)
	require.NoError(t, err)
	obj := m.Exports.ToObject(m.Runtime)
	assert.EqualValues(t, 3, obj.Get("__options").ToObject(m.Runtime).Get("size").ToInteger())
}
