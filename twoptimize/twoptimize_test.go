package twoptimize_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress/twoptimize"
)

func ExampleOptimize() {
	res, err := twoptimize.Optimize("/*! banner */\n.a { color: red; &:hover { color: blue; } }", true)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%s", res.Code)
	// Output: /*! banner */
	// .a{color:red}.a:hover{color:blue}
}

func TestOptimizeWarnings(t *testing.T) {
	res, err := twoptimize.Optimize(".a { color: red; }\n.b { color }\n}", false)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, 2, res.Warnings[0].Line)
	assert.Contains(t, res.Warnings[0].Message, "invalid declaration")
	assert.Equal(t, 3, res.Warnings[1].Line)
	assert.Equal(t, ".a {\n  color: red;\n}\n", res.CSS)
	assert.Equal(t, res.CSS, string(res.Code))
}

func TestOptimizePrefixes(t *testing.T) {
	in := ".a { backdrop-filter: blur(4px); user-select: none; background-clip: text; mask-image: none; }\n" +
		".b { background-clip: padding-box; -webkit-user-select: none; user-select: none; }"

	res, err := twoptimize.Optimize(in, false)
	require.NoError(t, err)
	assert.Equal(t, `.a {
  -webkit-backdrop-filter: blur(4px);
  backdrop-filter: blur(4px);
  -webkit-user-select: none;
  user-select: none;
  -webkit-background-clip: text;
  background-clip: text;
  -webkit-mask-image: none;
  mask-image: none;
}
.b {
  background-clip: padding-box;
  -webkit-user-select: none;
  user-select: none;
}
`, res.CSS)

	res, err = twoptimize.Optimize(in, false, twoptimize.WithTargets(twoptimize.Targets{Safari: 18, Chrome: 120, Firefox: 128}))
	require.NoError(t, err)
	assert.NotContains(t, res.CSS, "-webkit-backdrop-filter")
	assert.NotContains(t, res.CSS, "-webkit-mask-image")
	assert.Contains(t, res.CSS, "-webkit-background-clip: text;")
}

func TestOptimizePrefixesInAtRules(t *testing.T) {
	res, err := twoptimize.Optimize("@media print { .a { hyphens: auto; } }", false)
	require.NoError(t, err)
	assert.Equal(t, "@media print {\n  .a {\n    -webkit-hyphens: auto;\n    hyphens: auto;\n  }\n}\n", res.CSS)
}

func TestBuild(t *testing.T) {
	normal, minified, err := twoptimize.Build(".a { color: red; }\n.b { color }")
	require.NoError(t, err)
	assert.Equal(t, ".a {\n  color: red;\n}\n", string(normal.Code))
	assert.Equal(t, ".a{color:red}", string(minified.Code))
	assert.Len(t, minified.Warnings, 1)
	assert.Equal(t, normal.Warnings, minified.Warnings)
}

func TestMinify(t *testing.T) {
	code, err := twoptimize.Minify(".a {\n  color: red;\n}\n.b {\n  color: blue;\n}\n")
	require.NoError(t, err)
	assert.Equal(t, ".a{color:red}.b{color:blue}", string(code))
}
