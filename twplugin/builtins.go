package twplugin

import (
	"encoding/json"
	"strings"

	"github.com/dop251/goja"

	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
)

// Builtin module names served to configs and plugins.
const (
	ColorsModule       = "tailwindcss/colors"
	DefaultThemeModule = "tailwindcss/defaultTheme"
	FlattenModule      = "tailwindcss/lib/util/flattenColorPalette"
)

// Builtins returns the sources of the host modules configs import,
// generated from the default theme t.
func Builtins(t *twdesign.Theme) map[string]string {
	colors := colorsSource(t)
	return map[string]string{
		ColorsModule:                  "module.exports = " + colors + ";\n",
		DefaultThemeModule:            "module.exports = " + defaultThemeSource(t, colors) + ";\n",
		"tailwindcss/defaultTheme.js": "module.exports = require(\"" + DefaultThemeModule + "\");\n",
		"tailwindcss/colors.js":       "module.exports = require(\"" + ColorsModule + "\");\n",
		FlattenModule:                 flattenSource,
		"tailwindcss/lib/util/flattenColorPalette.js": "module.exports = require(\"" + FlattenModule + "\");\n",
	}
}

// EvalBuiltin evaluates a builtin CommonJS source in rt and returns its
// exports. It must not require other modules.
func EvalBuiltin(rt *goja.Runtime, src string) (goja.Value, error) {
	return rt.RunString("(function () { var module = { exports: {} }; var exports = module.exports;\n" + src + "\nreturn module.exports; })()")
}

const flattenSource = `function flattenColorPalette(colors, prefix) {
  var out = {};
  Object.keys(colors || {}).forEach(function (name) {
    var value = colors[name];
    var key = name === "DEFAULT" && prefix ? prefix : (prefix ? prefix + "-" + name : name);
    if (value && typeof value === "object") {
      var nested = flattenColorPalette(value, key);
      Object.keys(nested).forEach(function (k) { out[k] = nested[k]; });
    } else {
      out[key] = value;
    }
  });
  return out;
}
module.exports = function (colors) { return flattenColorPalette(colors, ""); };
module.exports.default = module.exports;
`

// jsObject builds an object literal keeping insertion order.
type jsObject struct {
	keys []string
	vals map[string]string
}

func newJSObject() *jsObject { return &jsObject{vals: map[string]string{}} }

func (o *jsObject) set(key, literal string) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = literal
}

func (o *jsObject) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, k := range o.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(k))
		b.WriteString(": ")
		b.WriteString(o.vals[k])
	}
	b.WriteString("}")
	return b.String()
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func colorsSource(t *twdesign.Theme) string {
	root := newJSObject()
	root.set("inherit", quote("inherit"))
	root.set("current", quote("currentColor"))
	root.set("transparent", quote("transparent"))
	groups := map[string]*jsObject{}
	for _, name := range t.Namespace("--color") {
		v, _ := t.Get("--color-" + name)
		i := strings.LastIndexByte(name, '-')
		if i < 0 || !isShade(name[i+1:]) {
			root.set(name, quote(v))
			continue
		}
		family, shade := name[:i], name[i+1:]
		g, ok := groups[family]
		if !ok {
			g = newJSObject()
			groups[family] = g
			root.set(family, "")
		}
		g.set(shade, quote(v))
	}
	for family, g := range groups {
		root.vals[family] = g.String()
	}
	return root.String()
}

func isShade(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// defaultSections are the config sections exported by defaultTheme.
var defaultSections = []struct {
	section string
	ns      string
}{
	{"screens", "--breakpoint"},
	{"spacing", "--spacing"},
	{"fontFamily", "--font"},
	{"fontSize", "--text"},
	{"fontWeight", "--font-weight"},
	{"letterSpacing", "--tracking"},
	{"lineHeight", "--leading"},
	{"borderRadius", "--radius"},
	{"boxShadow", "--shadow"},
	{"dropShadow", "--drop-shadow"},
	{"blur", "--blur"},
	{"maxWidth", "--container"},
	{"animation", "--animate"},
	{"aspectRatio", "--aspect"},
	{"transitionTimingFunction", "--ease"},
}

func defaultThemeSource(t *twdesign.Theme, colors string) string {
	root := newJSObject()
	root.set("colors", colors)
	for _, s := range defaultSections {
		obj := newJSObject()
		for _, name := range t.Namespace(s.ns) {
			key := s.ns
			if name != "DEFAULT" {
				key = s.ns + "-" + name
			}
			v, _ := t.Get(key)
			switch s.section {
			case "fontFamily":
				parts := twcss.SplitList(v)
				lits := make([]string, len(parts))
				for i, p := range parts {
					lits[i] = quote(p)
				}
				obj.set(name, "["+strings.Join(lits, ", ")+"]")
			case "fontSize":
				lh, ok := t.Get(key + "--line-height")
				if !ok {
					obj.set(name, quote(v))
					continue
				}
				obj.set(name, "["+quote(v)+", {\"lineHeight\": "+quote(lh)+"}]")
			default:
				obj.set(name, quote(v))
			}
		}
		root.set(s.section, obj.String())
	}
	return root.String()
}
