package twdesign

import (
	"sort"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
)

// ThemeOption flags how a theme token was declared.
type ThemeOption int

const (
	// ThemeDefault tokens never override tokens declared without it.
	ThemeDefault ThemeOption = 1 << iota
	// ThemeInline tokens are substituted by value instead of var().
	ThemeInline
	// ThemeReference tokens are usable but never emitted.
	ThemeReference
	// ThemeStatic tokens are always emitted, used or not.
	ThemeStatic
)

// ThemeValue is a single design token.
type ThemeValue struct {
	Value   string
	Options ThemeOption
}

// Theme holds the design tokens (custom properties such as --color-red-500)
// and the keyframes declared next to them, in declaration order.
type Theme struct {
	values    map[string]*ThemeValue
	order     []string
	keyframes map[string]*twcss.Node
	kfOrder   []string
}

// NewTheme returns an empty theme.
func NewTheme() *Theme {
	return &Theme{values: map[string]*ThemeValue{}, keyframes: map[string]*twcss.Node{}}
}

// Add declares key. A value of "initial" removes key, or the whole
// namespace when key ends in "-*" ("--*" clears everything).
func (t *Theme) Add(key, value string, opts ThemeOption) {
	if value == "initial" {
		switch {
		case key == "--*":
			t.values = map[string]*ThemeValue{}
			t.order = nil
			t.keyframes = map[string]*twcss.Node{}
			t.kfOrder = nil
		case strings.HasSuffix(key, "-*"):
			t.clearNamespace(strings.TrimSuffix(key, "*"))
		default:
			t.remove(key)
		}
		return
	}
	if existing, ok := t.values[key]; ok {
		if opts&ThemeDefault != 0 && existing.Options&ThemeDefault == 0 {
			return
		}
		existing.Value = value
		existing.Options = opts
		return
	}
	t.values[key] = &ThemeValue{Value: value, Options: opts}
	t.order = append(t.order, key)
}

func (t *Theme) remove(key string) {
	if _, ok := t.values[key]; !ok {
		return
	}
	delete(t.values, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
}

// clearNamespace removes every key starting with prefix ("--color-").
func (t *Theme) clearNamespace(prefix string) {
	kept := t.order[:0:0]
	for _, k := range t.order {
		if strings.HasPrefix(k, prefix) || k+"-" == prefix {
			delete(t.values, k)
			continue
		}
		kept = append(kept, k)
	}
	t.order = kept
	if prefix == "--animate-" {
		t.keyframes = map[string]*twcss.Node{}
		t.kfOrder = nil
	}
}

// AddKeyframes registers an @keyframes rule, replacing one of the same name.
func (t *Theme) AddKeyframes(n *twcss.Node) {
	name := strings.TrimSpace(n.Params)
	if _, ok := t.keyframes[name]; !ok {
		t.kfOrder = append(t.kfOrder, name)
	}
	t.keyframes[name] = n
}

// Keyframes returns the @keyframes rule called name.
func (t *Theme) Keyframes(name string) (*twcss.Node, bool) {
	n, ok := t.keyframes[name]
	return n, ok
}

// KeyframeNames returns the keyframe names in declaration order.
func (t *Theme) KeyframeNames() []string {
	return append([]string(nil), t.kfOrder...)
}

// Get returns the token value.
func (t *Theme) Get(key string) (string, bool) {
	v, ok := t.values[key]
	if !ok {
		return "", false
	}
	return v.Value, true
}

// Lookup returns the token.
func (t *Theme) Lookup(key string) (*ThemeValue, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Has reports whether key is declared.
func (t *Theme) Has(key string) bool {
	_, ok := t.values[key]
	return ok
}

// Keys returns all keys in declaration order.
func (t *Theme) Keys() []string {
	return append([]string(nil), t.order...)
}

// Len returns the number of tokens.
func (t *Theme) Len() int { return len(t.order) }

// Resolve finds the first namespace holding name and returns its key. An
// empty name (or DEFAULT) matches the bare namespace key, e.g. --radius.
func (t *Theme) Resolve(name string, namespaces ...string) (string, bool) {
	for _, ns := range namespaces {
		key := ns
		if name != "" && name != "DEFAULT" {
			key = ns + "-" + name
		}
		if _, ok := t.values[key]; ok {
			return key, true
		}
	}
	return "", false
}

// Namespace returns the value names declared under ns, e.g. "red-500" for
// --color-red-500 when ns is "--color". Sub-properties such as
// --text-xs--line-height are skipped. The bare key is reported as "DEFAULT".
func (t *Theme) Namespace(ns string) []string {
	var ret []string
	prefix := ns + "-"
	for _, k := range t.order {
		switch {
		case k == ns:
			ret = append(ret, "DEFAULT")
		case strings.HasPrefix(k, prefix):
			name := k[len(prefix):]
			if name == "" || strings.Contains(name, "--") || name == "*" {
				continue
			}
			ret = append(ret, name)
		}
	}
	return ret
}

// Clone copies the theme.
func (t *Theme) Clone() *Theme {
	c := NewTheme()
	for _, k := range t.order {
		v := *t.values[k]
		c.values[k] = &v
		c.order = append(c.order, k)
	}
	for _, name := range t.kfOrder {
		c.keyframes[name] = t.keyframes[name].Clone()
		c.kfOrder = append(c.kfOrder, name)
	}
	return c
}

// configNamespaces maps config style theme sections to token namespaces.
var configNamespaces = map[string]string{
	"colors":                   "--color",
	"accentColor":              "--color",
	"backgroundColor":          "--color",
	"borderColor":              "--color",
	"textColor":                "--color",
	"spacing":                  "--spacing",
	"padding":                  "--spacing",
	"margin":                   "--spacing",
	"width":                    "--width",
	"height":                   "--height",
	"fontFamily":               "--font",
	"fontSize":                 "--text",
	"fontWeight":               "--font-weight",
	"letterSpacing":            "--tracking",
	"lineHeight":               "--leading",
	"borderRadius":             "--radius",
	"borderWidth":              "--border-width",
	"boxShadow":                "--shadow",
	"dropShadow":               "--drop-shadow",
	"blur":                     "--blur",
	"screens":                  "--breakpoint",
	"containers":               "--container",
	"maxWidth":                 "--container",
	"transitionTimingFunction": "--ease",
	"transitionDuration":       "--duration",
	"animation":                "--animate",
	"aspectRatio":              "--aspect",
	"opacity":                  "--opacity",
	"zIndex":                   "--z-index",
	"perspective":              "--perspective",
	"inset":                    "--inset",
	"gridTemplateColumns":      "--grid-template-columns",
	"gridTemplateRows":         "--grid-template-rows",
}

// ConfigNamespace returns the token namespace of a config theme section.
func ConfigNamespace(section string) (string, bool) {
	ns, ok := configNamespaces[section]
	return ns, ok
}

// PathKey converts a theme() path to a token key. Paths may be custom
// properties (--color-red-500) or dotted config paths (colors.red.500,
// spacing[2.5], fontSize.lg.1.lineHeight).
func (t *Theme) PathKey(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "--") {
		if t.Has(p) {
			return p, true
		}
		return "", false
	}
	parts := splitThemePath(p)
	if len(parts) == 0 {
		return "", false
	}
	ns, ok := configNamespaces[parts[0]]
	if !ok {
		ns = "--" + kebab(parts[0])
	}
	rest := parts[1:]
	if len(rest) > 0 && rest[len(rest)-1] == "DEFAULT" {
		rest = rest[:len(rest)-1]
	}
	// fontSize.lg.1.lineHeight → --text-lg--line-height
	if ns == "--text" && len(rest) >= 2 {
		last := rest[len(rest)-1]
		if last == "lineHeight" || (last == "1" && len(rest) == 2) {
			key := ns + "-" + rest[0] + "--line-height"
			if t.Has(key) {
				return key, true
			}
		}
		if last == "0" && len(rest) == 2 {
			rest = rest[:1]
		}
	}
	key := ns
	if len(rest) > 0 {
		key = ns + "-" + strings.Join(rest, "-")
	}
	if t.Has(key) {
		return key, true
	}
	return "", false
}

// PathNamespace returns the key prefix a theme() path names, declared or
// not: colors.red gives --color-red, spacing gives --spacing.
func PathNamespace(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "--") {
		return strings.TrimSuffix(p, "-*")
	}
	parts := splitThemePath(p)
	if len(parts) == 0 {
		return ""
	}
	ns, ok := configNamespaces[parts[0]]
	if !ok {
		ns = "--" + kebab(parts[0])
	}
	rest := parts[1:]
	if len(rest) > 0 && rest[len(rest)-1] == "DEFAULT" {
		rest = rest[:len(rest)-1]
	}
	if len(rest) == 0 {
		return ns
	}
	return ns + "-" + strings.Join(rest, "-")
}

// Entries returns the tokens under a theme() path as name/value pairs,
// the view plugins and config functions get of a section. A theme that only
// declares the --spacing multiplier reports the default spacing scale.
func (t *Theme) Entries(p string) []KeyValue {
	ns := PathNamespace(p)
	var ret []KeyValue
	for _, name := range t.Namespace(ns) {
		key := ns
		if name != "DEFAULT" {
			key = ns + "-" + name
		}
		v, _ := t.Get(key)
		ret = append(ret, KeyValue{Key: name, Value: v})
	}
	if ns == "--spacing" && len(ret) == 1 && ret[0].Key == "DEFAULT" {
		ret = []KeyValue{{Key: "px", Value: "1px"}}
		for _, n := range spacingScale {
			ret = append(ret, KeyValue{Key: n, Value: "calc(var(--spacing) * " + n + ")"})
		}
	}
	return ret
}

// splitThemePath splits colors.red.500 and spacing[2.5] into segments.
func splitThemePath(p string) []string {
	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(p); i++ {
		switch c := p[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(p[i:], ']')
			if end < 0 {
				cur.WriteString(p[i+1:])
				i = len(p)
				continue
			}
			seg := strings.Trim(p[i+1:i+end], `"'`)
			parts = append(parts, seg)
			i += end
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return parts
}

func kebab(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteByte(c + 'a' - 'A')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Variables returns every non reference token in declaration order.
func (t *Theme) Variables() []Variable {
	ret := make([]Variable, 0, len(t.order))
	for _, k := range t.order {
		v := t.values[k]
		if v.Options&ThemeReference != 0 {
			continue
		}
		ret = append(ret, Variable{Key: k, Value: v.Value})
	}
	return ret
}

// Variable is a theme custom property.
type Variable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// sortedKeys returns keys ordered by their declaration order in t.
func (t *Theme) sortedKeys(keys map[string]bool) []string {
	pos := make(map[string]int, len(t.order))
	for i, k := range t.order {
		pos[k] = i
	}
	ret := make([]string, 0, len(keys))
	for k := range keys {
		ret = append(ret, k)
	}
	sort.Slice(ret, func(i, j int) bool { return pos[ret[i]] < pos[ret[j]] })
	return ret
}

// ParseThemeOptions reads the options of an @theme rule: "default inline",
// "reference", "static". A theme(...) wrapper is accepted.
func ParseThemeOptions(params string) ThemeOption {
	params = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(params), "theme("), ")")
	var opts ThemeOption
	for _, w := range strings.FieldsFunc(params, func(r rune) bool { return r == ' ' || r == '(' || r == ')' }) {
		switch w {
		case "default":
			opts |= ThemeDefault
		case "inline":
			opts |= ThemeInline
		case "reference":
			opts |= ThemeReference
		case "static":
			opts |= ThemeStatic
		}
	}
	return opts
}

// AddRule adds the custom properties and keyframes declared in an @theme
// rule. Escaped keys such as --spacing-1\.5 are unescaped.
func (t *Theme) AddRule(n *twcss.Node) {
	opts := ParseThemeOptions(n.Params)
	for _, c := range n.Nodes {
		switch {
		case c.Kind == twcss.Decl && strings.HasPrefix(c.Property, "--"):
			t.Add(twcss.Unescape(c.Property), strings.TrimSpace(c.Value), opts)
		case c.IsAt("keyframes"):
			t.AddKeyframes(c.Clone())
		}
	}
}
