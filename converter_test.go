package windpress_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
)

func testDesignSystem(legacy bool) *twdesign.DesignSystem {
	th := twdesign.NewTheme()
	th.Add("--spacing", "0.25rem", twdesign.ThemeDefault)
	th.Add("--breakpoint-sm", "40rem", twdesign.ThemeDefault)
	th.Add("--breakpoint-md", "48rem", twdesign.ThemeDefault)
	th.Add("--color-red-500", "#ef4444", twdesign.ThemeDefault)
	th.Add("--font-weight-bold", "700", twdesign.ThemeDefault)
	return twdesign.New(th, twdesign.Options{Legacy: legacy})
}

func ExampleConverter_SetPostProcFunc() {

	var buf bytes.Buffer
	conv := windpress.New(&buf, testDesignSystem(true))
	conv.SetPostProcFunc(func(out io.Writer, in io.Reader) error {
		m := minify.New()
		m.AddFunc("text/css", css.Minify)
		return m.Minify("text/css", out, in)
	})
	conv.AddReader("input.css", strings.NewReader(`.test1 { @apply font-bold; }`))
	err := conv.Run()
	if err != nil {
		panic(err)
	}
	fmt.Printf("%s", buf.String())

	// notice the missing trailing semicolon

	// Output: .test1{font-weight:700}
}

func TestConverter(t *testing.T) {

	type tcase struct {
		name   string            // test case name
		legacy bool              // 3.x conventions
		in     map[string]string // input files (processed alphabetical by filename)
		out    []*regexp.Regexp  // output must match these regexps
		outerr *regexp.Regexp    // must result in an error with text that matches this (if non-nil)
	}

	tcaseList := []tcase{
		{
			name: "simple1",
			in: map[string]string{
				"001.css": `.test1 { display: block; }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(`^` + regexp.QuoteMeta(".test1 {\n  display: block;\n}\n") + `$`),
			},
		},
		{
			name: "two-files2", // verify the sequence is correct
			in: map[string]string{
				"012.css": `.test2 { display: inline; }`,
				"021.css": `.test1 { display: block; }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(`(?s)\.test2 .*\.test1 `),
			},
		},
		{
			name: "bad1",
			in: map[string]string{
				"001.css": `.test1 { display: block; ! }`,
			},
			outerr: regexp.MustCompile(`^001\.css:1:`),
		},
		{
			name: "atrule1",
			in: map[string]string{
				"001.css": `@charset "utf-8"; .test1 { display: block; }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(`^` + regexp.QuoteMeta(`@charset "utf-8";`)),
			},
		},
		{
			name: "comments1",
			in: map[string]string{
				"001.css": `/*! keep */ /* drop */ .a { color: red; }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(`^` + regexp.QuoteMeta(`/*! keep */`) + `\n\.a `),
			},
		},
		{
			name: "nesting1",
			in: map[string]string{
				"001.css": `.card { color: red; &:hover { color: blue; } .title { font-weight: 700; } }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".card:hover {\n  color: blue;\n}")),
				regexp.MustCompile(regexp.QuoteMeta(".card .title {\n  font-weight: 700;\n}")),
			},
		},
		{
			name: "apply1",
			in: map[string]string{
				"001.css": `.test { @apply px-1; }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta("padding-inline: calc(var(--spacing) * 1);")),
			},
		},
		{
			name:   "apply2",
			legacy: true,
			in: map[string]string{
				"001.css": `.test { @apply px-1 py-2; }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta("padding-left: calc(0.25rem * 1);\n  padding-right: calc(0.25rem * 1);")),
				regexp.MustCompile(regexp.QuoteMeta("padding-top: calc(0.25rem * 2);")),
			},
		},
		{
			name: "apply-important1",
			in: map[string]string{
				"001.css": `.test { @apply hover:underline !important; }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta(".test:hover {\n    text-decoration-line: underline !important;")),
			},
		},
		{
			name: "apply-unknown1",
			in: map[string]string{
				"001.css": `.test { @apply nope-x; }`,
			},
			outerr: regexp.MustCompile(regexp.QuoteMeta("001.css: cannot apply unknown utility class `nope-x`")),
		},
		{
			name: "variant1",
			in: map[string]string{
				"001.css": `.test { @variant hover { color: red; } }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta("@media (hover: hover) {\n  .test:hover {\n    color: red;\n  }\n}")),
			},
		},
		{
			name: "variant-unknown1",
			in: map[string]string{
				"001.css": `.test { @variant wobbly { color: red; } }`,
			},
			outerr: regexp.MustCompile(`unknown variant: wobbly`),
		},
		{
			name:   "theme1",
			legacy: true,
			in: map[string]string{
				"001.css": `.test { color: theme(colors.red.500); margin: theme("spacing.4", 1rem); }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta("color: #ef4444;")),
			},
		},
		{
			name: "theme-missing1",
			in: map[string]string{
				"001.css": `.test { color: theme(colors.nope); }`,
			},
			outerr: regexp.MustCompile(`could not resolve theme value "colors.nope"`),
		},
		{
			name:   "screen1",
			legacy: true,
			in: map[string]string{
				"001.css": `@screen md { .a { display: none; } } @media screen(sm) { .b { display: none; } }`,
			},
			out: []*regexp.Regexp{
				regexp.MustCompile(regexp.QuoteMeta("@media (min-width: 48rem) {\n  .a {")),
				regexp.MustCompile(regexp.QuoteMeta("@media (min-width: 40rem) {\n  .b {")),
			},
		},
		{
			name: "screen-unknown1",
			in: map[string]string{
				"001.css": `@screen xxl { .a { display: none; } }`,
			},
			outerr: regexp.MustCompile("no `xxl` screen found"),
		},
	}

	for _, tc := range tcaseList {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := windpress.New(&buf, testDesignSystem(tc.legacy))
			klist := make([]string, 0, len(tc.in))
			for k := range tc.in {
				klist = append(klist, k)
			}
			sort.Strings(klist)
			for _, k := range klist {
				c.AddReader(k, strings.NewReader(tc.in[k]))
			}
			err := c.Run()
			if tc.outerr != nil {
				require.Error(t, err)
				assert.Regexp(t, tc.outerr, err.Error())
				return
			}
			require.NoError(t, err)
			bufstr := buf.String()
			for _, outre := range tc.out {
				assert.Regexp(t, outre, bufstr)
			}
			if t.Failed() {
				t.Logf("OUTPUT: (err=%v)\n%s", err, bufstr)
			}
		})
	}

}

func TestConverterBannerAndFinalizer(t *testing.T) {
	var buf bytes.Buffer
	c := windpress.New(&buf, testDesignSystem(false))
	c.SetBanner("4.1.11")
	c.SetFinalizer(func(nodes []*twcss.Node) []*twcss.Node {
		return append(nodes, twcss.NewRule(".added", twcss.NewDecl("color", "red")))
	})
	c.AddNodes(twcss.NewRule(".a", twcss.NewDecl("margin", "--spacing(2)")))
	require.NoError(t, c.Run())
	assert.Equal(t, windpress.Banner("4.1.11")+"\n"+
		".a {\n  margin: calc(var(--spacing) * 2);\n}\n"+
		".added {\n  color: red;\n}\n", buf.String())
}

func TestExpandApplyLoop(t *testing.T) {
	ds := testDesignSystem(false)
	ds.AddClassRule(twdesign.LayerComponents, twcss.NewRule(".a", twcss.NewStatement("apply", "b")))
	ds.AddClassRule(twdesign.LayerComponents, twcss.NewRule(".b", twcss.NewStatement("apply", "a")))
	_, err := windpress.Expand(ds, []*twcss.Node{twcss.NewRule(".x", twcss.NewStatement("apply", "a"))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too deep")
}

func TestCompileErrorUnwrap(t *testing.T) {
	cause := &twdesign.UnknownUtilityError{Class: "x"}
	err := error(&windpress.CompileError{Entrypoint: "/main.css", Err: cause})
	var got *twdesign.UnknownUtilityError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "compile /main.css: cannot apply unknown utility class `x`", err.Error())
}

func TestParseVersion(t *testing.T) {
	for in, want := range map[string]windpress.Version{"3": windpress.V3, "v4": windpress.V4, "4.1.11": windpress.V4, "3.4.17": windpress.V3} {
		got, err := windpress.ParseVersion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := windpress.ParseVersion("2")
	assert.Error(t, err)
}
