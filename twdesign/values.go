package twdesign

import (
	"strconv"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
)

// spacingScale is the suggested multiplier list when the theme has a
// --spacing base unit.
var spacingScale = []string{"0", "0.5", "1", "1.5", "2", "2.5", "3", "3.5", "4", "5", "6", "7", "8", "9", "10", "11", "12", "14", "16", "20", "24", "28", "32", "36", "40", "44", "48", "52", "56", "60", "64", "72", "80", "96"}

var opacitySteps = func() []string {
	ret := make([]string, 0, 21)
	for i := 0; i <= 100; i += 5 {
		ret = append(ret, strconv.Itoa(i))
	}
	return ret
}()

// themeRef returns var(--key), or the literal value for inline tokens, in
// legacy mode or when literal is set (media queries cannot use var()).
func (ds *DesignSystem) themeRef(key string, literal bool) string {
	tv, ok := ds.Theme.Lookup(key)
	if !ok {
		return ""
	}
	if literal || ds.opts.Legacy || tv.Options&ThemeInline != 0 {
		return tv.Value
	}
	return "var(" + key + ")"
}

// themeValue resolves a value against namespaces. A nil value asks for the
// bare namespace key (rounded → --radius); arbitrary values pass through.
func (ds *DesignSystem) themeValue(v *Value, namespaces ...string) (string, bool) {
	if v == nil {
		key, ok := ds.Theme.Resolve("", namespaces...)
		if !ok {
			return "", false
		}
		return ds.themeRef(key, false), true
	}
	if v.Kind == ArbitraryValue {
		return v.Text, true
	}
	key, ok := ds.Theme.Resolve(v.Text, namespaces...)
	if !ok {
		return "", false
	}
	return ds.themeRef(key, false), true
}

func (ds *DesignSystem) spacingValues() []string {
	if ds.Theme.Has("--spacing") {
		return append(append([]string(nil), spacingScale...), "px")
	}
	return ds.Theme.Namespace("--spacing")
}

// spacing resolves a spacing scale value: theme tokens first, then
// multiples of the --spacing unit.
func (ds *DesignSystem) spacing(v *Value, neg bool) (string, bool) {
	if v == nil {
		return "", false
	}
	var out string
	switch {
	case v.Kind == ArbitraryValue:
		if !lengthLike(v) {
			return "", false
		}
		out = v.Text
	case v.Text == "DEFAULT":
		return "", false
	default:
		if key, ok := ds.Theme.Resolve(v.Text, "--spacing"); ok {
			out = ds.themeRef(key, false)
			break
		}
		switch {
		case v.Text == "px":
			out = "1px"
		case isMultiple(v.Text) && ds.Theme.Has("--spacing"):
			unit := ds.themeRef("--spacing", false)
			if neg {
				return "calc(" + unit + " * -" + v.Text + ")", true
			}
			return "calc(" + unit + " * " + v.Text + ")", true
		default:
			return "", false
		}
	}
	if neg {
		out = negate(out)
	}
	return out, true
}

// lengthLike accepts arbitrary values usable as lengths.
func lengthLike(v *Value) bool {
	switch v.DataType {
	case "", "any":
	case "length", "percentage", "number":
		return true
	default:
		return false
	}
	switch InferType(v.Text) {
	case "color", "url", "image", "family-name":
		return false
	}
	return true
}

func typeIs(v *Value, types ...string) bool {
	t := v.DataType
	if t == "" {
		t = InferType(v.Text)
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// keywordValue looks v up in a keyword list of name/value pairs.
func keywordValue(v *Value, keywords []string) (string, bool) {
	if v == nil || v.Kind != NamedValue {
		return "", false
	}
	for i := 0; i+1 < len(keywords); i += 2 {
		if keywords[i] == v.Text {
			return keywords[i+1], true
		}
	}
	return "", false
}

func keywordNames(keywords []string) []string {
	ret := make([]string, 0, len(keywords)/2)
	for i := 0; i < len(keywords); i += 2 {
		ret = append(ret, keywords[i])
	}
	return ret
}

func (ds *DesignSystem) colorValues() []string {
	return append([]string{"inherit", "current", "transparent"}, ds.Theme.Namespace("--color")...)
}

func colorModifiers(string) []string { return opacitySteps }

// color resolves the color of a candidate, opacity modifier not applied.
func (ds *DesignSystem) color(v *Value) (string, bool) {
	if v == nil {
		return "", false
	}
	if v.Kind == ArbitraryValue {
		if v.DataType != "" {
			return v.Text, v.DataType == "color"
		}
		t := InferType(v.Text)
		return v.Text, t == "color" || t == ""
	}
	switch v.Text {
	case "inherit":
		return "inherit", true
	case "current":
		return "currentColor", true
	case "transparent":
		return "transparent", true
	}
	key, ok := ds.Theme.Resolve(v.Text, "--color")
	if !ok || v.Text == "DEFAULT" {
		return "", false
	}
	return ds.themeRef(key, false), true
}

// colorDecls sets props to the candidate color. In legacy mode opaque
// colors go through opacityVar (--tw-bg-opacity) so opacity utilities can
// change them.
func (ds *DesignSystem) colorDecls(c *Candidate, opacityVar string, props ...string) []*twcss.Node {
	col, ok := ds.color(c.Value)
	if !ok {
		return nil
	}
	alpha := ""
	if c.Modifier != nil {
		if alpha, ok = ds.alpha(c.Modifier); !ok {
			return nil
		}
	}
	var nodes []*twcss.Node
	if ds.opts.Legacy && alpha == "" && opacityVar != "" {
		if rgb, ok := parseColor(col); ok && rgb.a == 1 {
			nodes = append(nodes, twcss.NewDecl(opacityVar, "1"))
			col = "rgb(" + rgb.channels() + " / var(" + opacityVar + ", 1))"
		}
	}
	col = WithAlpha(col, alpha, ds.opts.Legacy)
	for _, p := range props {
		nodes = append(nodes, twcss.NewDecl(p, col))
	}
	return nodes
}

// alpha resolves an opacity modifier, consulting --opacity-* tokens first.
func (ds *DesignSystem) alpha(m *Value) (string, bool) {
	if m.Kind == NamedValue {
		if v, ok := ds.Theme.Get("--opacity-" + m.Text); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f <= 1 && !strings.HasSuffix(v, "%") {
				return formatFloat(f*100) + "%", true
			}
			return v, true
		}
	}
	return alphaValue(m)
}

// opacity renders a 0-100 opacity value: 50% in 4.x, 0.5 in legacy mode.
func (ds *DesignSystem) opacity(v *Value) (string, bool) {
	if v == nil {
		return "", false
	}
	if v.Kind == ArbitraryValue {
		return v.Text, true
	}
	if t, ok := ds.Theme.Get("--opacity-" + v.Text); ok {
		return t, true
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil || f < 0 || f > 100 || !isNumber(v.Text) {
		return "", false
	}
	if ds.opts.Legacy {
		return formatFloat(f / 100), true
	}
	return v.Text + "%", true
}

// fraction renders a/b as a percentage.
func (ds *DesignSystem) fraction(fr string) (string, bool) {
	if ds.opts.Legacy {
		return fractionPercent(fr)
	}
	if _, ok := fractionPercent(fr); !ok {
		return "", false
	}
	return "calc(" + fr + " * 100%)", true
}

func integerValues(from, to int) func() []string {
	return func() []string {
		ret := make([]string, 0, to-from+1)
		for i := from; i <= to; i++ {
			ret = append(ret, strconv.Itoa(i))
		}
		return ret
	}
}

func fixed(values ...string) func() []string {
	return func() []string { return values }
}

func concat(fns ...func() []string) func() []string {
	return func() []string {
		var ret []string
		for _, f := range fns {
			ret = append(ret, f()...)
		}
		return ret
	}
}
