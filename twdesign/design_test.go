package twdesign

import (
	"errors"
	"strings"
	"testing"

	"github.com/gotailwindcss/windpress/twcss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTheme() *Theme {
	th := NewTheme()
	for _, kv := range [][2]string{
		{"--spacing", "0.25rem"},
		{"--breakpoint-sm", "40rem"},
		{"--breakpoint-md", "48rem"},
		{"--color-red-500", "#ef4444"},
		{"--color-blue-500", "#3b82f6"},
		{"--text-sm", "0.875rem"},
		{"--text-sm--line-height", "1.25rem"},
		{"--font-weight-bold", "700"},
		{"--radius-md", "0.375rem"},
		{"--shadow-md", "0 4px 6px -1px rgb(0 0 0 / 0.1)"},
		{"--animate-spin", "spin 1s linear infinite"},
		{"--container-md", "28rem"},
	} {
		th.Add(kv[0], kv[1], ThemeDefault)
	}
	nodes, err := twcss.Parse("@keyframes spin { to { transform: rotate(360deg); } }", "")
	if err != nil {
		panic(err)
	}
	th.AddKeyframes(nodes[0])
	return th
}

func newTestDS(opts Options) *DesignSystem {
	return New(testTheme(), opts)
}

func css(ds *DesignSystem, candidates ...string) string {
	out := ds.Generate(candidates)
	return twcss.Print(append(out.Components, out.Utilities...))
}

func TestGenerate(t *testing.T) {
	ds := newTestDS(Options{})
	tests := []struct {
		candidate string
		want      string
	}{
		{"p-4", ".p-4 {\n  padding: calc(var(--spacing) * 4);\n}\n"},
		{"-m-2", ".-m-2 {\n  margin: calc(var(--spacing) * -2);\n}\n"},
		{"flex", ".flex {\n  display: flex;\n}\n"},
		{"bg-red-500", ".bg-red-500 {\n  background-color: var(--color-red-500);\n}\n"},
		{"bg-red-500/50", ".bg-red-500\\/50 {\n  background-color: color-mix(in oklab, var(--color-red-500) 50%, transparent);\n}\n"},
		{"w-1/2", ".w-1\\/2 {\n  width: calc(1/2 * 100%);\n}\n"},
		{"text-sm", ".text-sm {\n  font-size: var(--text-sm);\n  line-height: var(--tw-leading, var(--text-sm--line-height));\n}\n"},
		{"font-bold!", ".font-bold\\! {\n  --tw-font-weight: var(--font-weight-bold) !important;\n  font-weight: var(--font-weight-bold) !important;\n}\n"},
		{"[mask-type:luminance]", ".\\[mask-type\\:luminance\\] {\n  mask-type: luminance;\n}\n"},
		{"hover:underline", "@media (hover: hover) {\n  .hover\\:underline:hover {\n    text-decoration-line: underline;\n  }\n}\n"},
		{"md:flex", "@media (width >= 48rem) {\n  .md\\:flex {\n    display: flex;\n  }\n}\n"},
		{"rounded-md", ".rounded-md {\n  border-radius: var(--radius-md);\n}\n"},
	}
	for _, tc := range tests {
		t.Run(tc.candidate, func(t *testing.T) {
			assert.Equal(t, tc.want, css(ds, tc.candidate))
		})
	}
}

func TestGenerateLegacy(t *testing.T) {
	ds := newTestDS(Options{Legacy: true})
	tests := []struct {
		candidate string
		want      string
	}{
		{"p-4", ".p-4 {\n  padding: calc(0.25rem * 4);\n}\n"},
		{"bg-red-500", ".bg-red-500 {\n  --tw-bg-opacity: 1;\n  background-color: rgb(239 68 68 / var(--tw-bg-opacity, 1));\n}\n"},
		{"text-blue-500/50", ".text-blue-500\\/50 {\n  color: rgb(59 130 246 / 0.5);\n}\n"},
		{"md:flex", "@media (min-width: 48rem) {\n  .md\\:flex {\n    display: flex;\n  }\n}\n"},
		{"group-hover:underline", ".group:hover .group-hover\\:underline {\n  text-decoration-line: underline;\n}\n"},
		{"w-1/2", ".w-1\\/2 {\n  width: 50%;\n}\n"},
	}
	for _, tc := range tests {
		t.Run(tc.candidate, func(t *testing.T) {
			assert.Equal(t, tc.want, css(ds, tc.candidate))
		})
	}
}

func TestGenerateSkipsUnknown(t *testing.T) {
	ds := newTestDS(Options{})
	out := ds.Generate([]string{"p-4", "not-a-class", "p-4", "bg-nope-500", "hover:"})
	assert.Equal(t, []string{"p-4"}, out.Matched)
}

func TestGenerateOrder(t *testing.T) {
	ds := newTestDS(Options{})
	out := ds.Generate([]string{"md:p-2", "hover:p-2", "p-10", "p-2", "flex"})
	assert.Equal(t, []string{"flex", "p-2", "p-10", "hover:p-2", "md:p-2"}, out.Matched)
}

func TestGenerateImportantOptions(t *testing.T) {
	ds := newTestDS(Options{Legacy: true, ImportantSelector: "#app"})
	assert.Equal(t, "#app .flex {\n  display: flex;\n}\n", css(ds, "flex"))

	ds = newTestDS(Options{Important: true})
	assert.Equal(t, ".flex {\n  display: flex !important;\n}\n", css(ds, "flex"))
}

func TestGeneratePrefix(t *testing.T) {
	ds := newTestDS(Options{Prefix: "tw"})
	assert.Equal(t, ".tw\\:flex {\n  display: flex;\n}\n", css(ds, "tw:flex"))
	assert.Empty(t, css(ds, "flex"))

	ds = newTestDS(Options{Legacy: true, Prefix: "tw-", PrefixStyle: PrefixDash})
	assert.Equal(t, ".tw-flex {\n  display: flex;\n}\n", css(ds, "tw-flex"))
}

func TestUsage(t *testing.T) {
	ds := newTestDS(Options{})
	out := ds.Generate([]string{"animate-spin", "shadow-md", "p-1"})
	assert.Equal(t, []string{"--spacing", "--animate-spin"}, out.Variables)
	require.Len(t, out.Keyframes, 1)
	assert.Equal(t, "spin", out.Keyframes[0].Params)

	var names []string
	for _, p := range out.Properties {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "--tw-shadow")
	assert.Contains(t, names, "--tw-ring-shadow")
}

func TestSortClasses(t *testing.T) {
	ds := newTestDS(Options{})
	in := []string{"hover:p-2", "unknown-x", "p-4", "flex", "p-2"}
	got := ds.SortClasses(in)
	assert.Equal(t, []string{"unknown-x", "flex", "p-2", "p-4", "hover:p-2"}, got)
	assert.Equal(t, got, ds.SortClasses(got))
}

func TestApply(t *testing.T) {
	ds := newTestDS(Options{})
	body, err := ds.Apply([]string{"hover:underline", "p-4"})
	require.NoError(t, err)
	rule := twcss.Flatten([]*twcss.Node{twcss.NewRule(".btn", body...)})
	assert.Equal(t, ".btn {\n  padding: calc(var(--spacing) * 4);\n}\n"+
		"@media (hover: hover) {\n  .btn:hover {\n    text-decoration-line: underline;\n  }\n}\n", twcss.Print(rule))

	_, err = ds.Apply([]string{"p-4", "bogus"})
	var unknown *UnknownUtilityError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "bogus", unknown.Class)
}

func TestCandidatesToCSS(t *testing.T) {
	ds := newTestDS(Options{})
	got := ds.CandidatesToCSS([]string{"flex", "nope"})
	assert.Equal(t, []string{".flex {\n  display: flex;\n}\n", ""}, got)
}

func TestEntities(t *testing.T) {
	ds := newTestDS(Options{})
	got := ds.Entities("bg-blue-500")
	require.Len(t, got, 1)
	assert.Equal(t, ".bg-blue-500", got[0].Selector)
	assert.Equal(t, []Declaration{{Property: "background-color", Value: "var(--color-blue-500)"}}, got[0].Declarations)
	assert.Equal(t, "#3b82f6", ds.ResolveVars(got[0].Declarations[0].Value))
}

func TestResolveFunctions(t *testing.T) {
	legacy := newTestDS(Options{Legacy: true})
	v, err := legacy.ResolveFunctions("1px solid theme(colors.red.500 / 50%)")
	require.NoError(t, err)
	assert.Equal(t, "1px solid rgb(239 68 68 / 0.5)", v)

	v, err = legacy.ResolveFunctions("theme('spacing')")
	require.NoError(t, err)
	assert.Equal(t, "0.25rem", v)

	v, err = legacy.ResolveFunctions("theme(colors.nope, red)")
	require.NoError(t, err)
	assert.Equal(t, "red", v)

	_, err = legacy.ResolveFunctions("theme(colors.nope)")
	var tfe *ThemeFunctionError
	require.True(t, errors.As(err, &tfe))
	assert.Equal(t, "colors.nope", tfe.Path)

	modern := newTestDS(Options{})
	v, err = modern.ResolveFunctions("--spacing(4)")
	require.NoError(t, err)
	assert.Equal(t, "calc(var(--spacing) * 4)", v)

	v, err = modern.ResolveFunctions("--theme(--color-red-500)")
	require.NoError(t, err)
	assert.Equal(t, "var(--color-red-500)", v)

	v, err = modern.ResolveFunctions("--alpha(var(--color-red-500) / 25%)")
	require.NoError(t, err)
	assert.Equal(t, "color-mix(in oklab, var(--color-red-500) 25%, transparent)", v)
}

func TestCSSUtility(t *testing.T) {
	th := testTheme()
	th.Add("--tab-size-github", "8", ThemeDefault)
	ds := New(th, Options{})

	nodes, err := twcss.Parse(`
@utility content-auto { content-visibility: auto; }
@utility tab-* { tab-size: --value(--tab-size-*, integer, [integer]); }
`, "/app.css")
	require.NoError(t, err)
	for _, n := range nodes {
		require.NoError(t, ds.AddCSSUtility(n))
	}

	got := ds.CandidatesToCSS([]string{"content-auto", "tab-github", "tab-4", "tab-[12]", "tab-foo"})
	assert.Equal(t, ".content-auto {\n  content-visibility: auto;\n}\n", got[0])
	assert.Equal(t, ".tab-github {\n  tab-size: var(--tab-size-github);\n}\n", got[1])
	assert.Equal(t, ".tab-4 {\n  tab-size: 4;\n}\n", got[2])
	assert.Equal(t, ".tab-\\[12\\] {\n  tab-size: 12;\n}\n", got[3])
	assert.Empty(t, got[4])
}

func TestCustomVariant(t *testing.T) {
	ds := newTestDS(Options{})
	require.NoError(t, ds.AddCustomVariant(twcss.NewStatement("custom-variant", "theme-midnight (&:where([data-theme=midnight] *))")))
	require.NoError(t, ds.AddCustomVariant(twcss.NewAtRule("custom-variant", "hocus",
		twcss.NewRule("&:hover", twcss.NewStatement("slot", "")),
		twcss.NewRule("&:focus", twcss.NewStatement("slot", "")),
	)))

	assert.Equal(t, ".theme-midnight\\:flex:where([data-theme=midnight] *) {\n  display: flex;\n}\n", css(ds, "theme-midnight:flex"))
	assert.Equal(t, ".hocus\\:flex:hover, .hocus\\:flex:focus {\n  display: flex;\n}\n", css(ds, "hocus:flex"))

	err := ds.AddCustomVariant(twcss.NewAtRule("custom-variant", "broken", twcss.NewDecl("color", "red")))
	assert.Error(t, err)
}

func TestMatchUtilityAndVariant(t *testing.T) {
	ds := newTestDS(Options{Legacy: true})
	ds.MatchUtility("tab-size", MatchOptions{
		Values: []KeyValue{{"DEFAULT", "4"}, {"2", "2"}},
		Types:  []string{"number"},
	}, func(value, _ string) []*twcss.Node {
		return []*twcss.Node{twcss.NewDecl("tab-size", value)}
	})
	ds.MatchVariant("theme", []KeyValue{{"dark", "dark"}}, func(value, _ string) []string {
		return []string{`&[data-theme="` + value + `"]`}
	})

	got := ds.CandidatesToCSS([]string{"tab-size", "tab-size-2", "tab-size-[7]", "tab-size-3", "theme-dark:tab-size"})
	assert.Equal(t, ".tab-size {\n  tab-size: 4;\n}\n", got[0])
	assert.Equal(t, ".tab-size-2 {\n  tab-size: 2;\n}\n", got[1])
	assert.Equal(t, ".tab-size-\\[7\\] {\n  tab-size: 7;\n}\n", got[2])
	assert.Empty(t, got[3])
	assert.Equal(t, ".theme-dark\\:tab-size[data-theme=\"dark\"] {\n  tab-size: 4;\n}\n", got[4])
}

func TestClassRule(t *testing.T) {
	ds := newTestDS(Options{Legacy: true})
	nodes, err := twcss.Parse(".btn { padding: 1rem; } .btn:hover > svg { color: red; }", "")
	require.NoError(t, err)
	for _, n := range nodes {
		ds.AddClassRule(LayerComponents, n)
	}
	out := ds.Generate([]string{"p-1", "btn"})
	require.Len(t, out.Components, 2)
	assert.Equal(t, ".btn {\n  padding: 1rem;\n}\n.btn:hover > svg {\n  color: red;\n}\n", twcss.Print(out.Components))

	body, err := ds.Apply([]string{"btn"})
	require.NoError(t, err)
	assert.Len(t, body, 2)
}

func TestClassList(t *testing.T) {
	ds := newTestDS(Options{})
	var names []string
	mods := map[string][]string{}
	for _, item := range ds.ClassList() {
		names = append(names, item.Name)
		mods[item.Name] = item.Modifiers
	}
	assert.Contains(t, names, "flex")
	assert.Contains(t, names, "p-4")
	assert.Contains(t, names, "-m-4")
	assert.Contains(t, names, "bg-red-500")
	assert.Contains(t, names, "rounded-md")
	assert.Equal(t, opacitySteps, mods["bg-red-500"])

	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
}

func TestVariantsList(t *testing.T) {
	ds := newTestDS(Options{})
	byName := map[string]VariantItem{}
	for _, v := range ds.Variants() {
		byName[v.Name] = v
	}
	assert.True(t, byName["group"].Compound)
	assert.Equal(t, []string{"sm", "md"}, byName["max"].Values)
	_, ok := byName["hover"]
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(ds.Variants()[0].Name, "*"))
}
