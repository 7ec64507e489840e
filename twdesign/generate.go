package twdesign

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
)

// compiled is a candidate turned into CSS plus what is needed to order it.
type compiled struct {
	raw      string
	layer    Layer
	variants []int // variant orders, descending
	order    int
	// body is the utility body with variants applied, relative to &.
	body []*twcss.Node
	// nodes are the flat rules selecting the class itself.
	nodes []*twcss.Node
}

// compile returns the compiled form of raw, or nil when no utility
// matches. Results are memoized.
func (ds *DesignSystem) compile(raw string) *compiled {
	if v, ok := ds.cache.Load(raw); ok {
		return v.(*compiled)
	}
	var ret *compiled
	for _, c := range ds.ParseCandidate(raw) {
		if ret = ds.compileCandidate(c); ret != nil {
			break
		}
	}
	ds.cache.Store(raw, ret)
	return ret
}

func (ds *DesignSystem) compileCandidate(c *Candidate) *compiled {
	body, u := ds.utilityBody(c)
	if len(body) == 0 {
		return nil
	}
	ret := &compiled{raw: c.Raw, order: ds.utilityCount}
	if u != nil {
		ret.order = u.order
		ret.layer = u.Layer
	}
	if c.Important {
		markImportant(body)
	}
	for _, v := range c.Variants {
		wraps := ds.variantWraps(v)
		if wraps == nil {
			return nil
		}
		body = applyWraps(body, wraps)
		ret.variants = append(ret.variants, ds.variantOrder(v))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ret.variants)))
	ret.body = body

	nodes := twcss.Flatten([]*twcss.Node{twcss.NewRule("."+twcss.EscapeClass(c.Raw), twcss.CloneAll(body)...)})
	if ds.opts.Important {
		markImportant(nodes)
	}
	if sel := ds.opts.ImportantSelector; sel != "" {
		twcss.Walk(nodes, func(n *twcss.Node) bool {
			if n.Kind == twcss.Rule {
				items := twcss.SplitList(n.Selector)
				for i, it := range items {
					items[i] = sel + " " + it
				}
				n.Selector = strings.Join(items, ", ")
				return false
			}
			return true
		})
	}
	ret.nodes = nodes
	return ret
}

// utilityBody runs the utilities registered for the candidate root until
// one accepts it.
func (ds *DesignSystem) utilityBody(c *Candidate) ([]*twcss.Node, *Utility) {
	if c.Property != "" {
		value := c.PropertyValue
		if c.Modifier != nil {
			a, ok := ds.alpha(c.Modifier)
			if !ok {
				return nil, nil
			}
			value = WithAlpha(value, a, ds.opts.Legacy)
		}
		return []*twcss.Node{twcss.NewDecl(c.Property, value)}, nil
	}
	for _, u := range ds.utilities[c.Root] {
		if u.Compile == nil {
			continue
		}
		cc := c
		if u.Kind == StaticUtility {
			if c.Value != nil || c.Modifier != nil || c.Negative {
				continue
			}
		} else {
			if c.Negative && !u.Negative {
				continue
			}
			if c.Value != nil && c.Value.Fraction != "" {
				if u.Fraction {
					cp := *c
					cp.Modifier = nil
					cc = &cp
				} else {
					cp := *c
					v := *c.Value
					v.Fraction = ""
					cp.Value = &v
					cc = &cp
				}
			}
			if cc.Modifier != nil && !u.Modifier {
				continue
			}
		}
		if body := u.Compile(cc); len(body) > 0 {
			return body, u
		}
	}
	return nil, nil
}

func (ds *DesignSystem) variantOrder(v *VariantCandidate) int {
	if v.Selector != "" {
		return len(ds.variantList)
	}
	if def, ok := ds.variants[v.Root]; ok {
		return def.order
	}
	return len(ds.variantList)
}

func markImportant(nodes []*twcss.Node) {
	twcss.Walk(nodes, func(n *twcss.Node) bool {
		if n.Kind == twcss.Decl {
			n.Important = true
		}
		return true
	})
}

// compareCompiled orders candidates by variants, then utility, then by
// name with numbers compared numerically.
func compareCompiled(a, b *compiled) int {
	for i := 0; i < len(a.variants) || i < len(b.variants); i++ {
		switch {
		case i >= len(a.variants):
			return -1
		case i >= len(b.variants):
			return 1
		case a.variants[i] != b.variants[i]:
			if a.variants[i] < b.variants[i] {
				return -1
			}
			return 1
		}
	}
	if a.order != b.order {
		if a.order < b.order {
			return -1
		}
		return 1
	}
	return naturalCompare(a.raw, b.raw)
}

// Output is the result of Generate.
type Output struct {
	Utilities  []*twcss.Node
	Components []*twcss.Node
	// Matched lists the candidates that produced CSS, in output order.
	Matched []string
	Usage
}

// Generate compiles candidates into ordered rules. Unknown candidates are
// skipped, duplicates are emitted once.
func (ds *DesignSystem) Generate(candidates []string) *Output {
	seen := make(map[string]bool, len(candidates))
	var list []*compiled
	for _, raw := range candidates {
		if seen[raw] {
			continue
		}
		seen[raw] = true
		if c := ds.compile(raw); c != nil {
			list = append(list, c)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return compareCompiled(list[i], list[j]) < 0 })

	out := &Output{}
	for _, c := range list {
		nodes := twcss.CloneAll(c.nodes)
		if c.layer == LayerComponents {
			out.Components = append(out.Components, nodes...)
		} else {
			out.Utilities = append(out.Utilities, nodes...)
		}
		out.Matched = append(out.Matched, c.raw)
	}
	all := append(append([]*twcss.Node(nil), out.Components...), out.Utilities...)
	out.Usage = *ds.Usage(all)
	return out
}

// Usage is what a stylesheet needs from the theme.
type Usage struct {
	// Variables are the theme keys referenced, directly or through other
	// theme values, plus static keys, in theme order.
	Variables  []string
	Keyframes  []*twcss.Node
	Properties []Property
}

// Usage scans nodes for theme variables, keyframes and registered
// properties they use.
func (ds *DesignSystem) Usage(nodes []*twcss.Node) *Usage {
	vars := map[string]bool{}
	var queue []string
	useVar := func(key string) {
		if vars[key] || !ds.Theme.Has(key) {
			return
		}
		vars[key] = true
		queue = append(queue, key)
	}
	props := map[string]bool{}
	var propOrder []string
	useProp := func(name string) {
		if _, ok := ds.properties[name]; ok && !props[name] {
			props[name] = true
			propOrder = append(propOrder, name)
		}
	}
	kf := map[string]bool{}
	var kfOrder []string
	useAnimation := func(value string) {
		for _, part := range twcss.SplitList(value) {
			for _, w := range strings.Fields(part) {
				if _, ok := ds.Theme.Keyframes(w); ok && !kf[w] {
					kf[w] = true
					kfOrder = append(kfOrder, w)
				}
			}
		}
	}

	twcss.Walk(nodes, func(n *twcss.Node) bool {
		switch n.Kind {
		case twcss.Decl:
			useProp(n.Property)
			for _, ref := range varRefs(n.Value) {
				useVar(ref)
				useProp(ref)
			}
			if strings.HasPrefix(n.Property, "animation") {
				useAnimation(n.Value)
			}
		case twcss.AtRule:
			for _, ref := range varRefs(n.Params) {
				useVar(ref)
			}
		}
		return true
	})
	for _, key := range ds.Theme.Keys() {
		if tv, _ := ds.Theme.Lookup(key); tv.Options&ThemeStatic != 0 {
			useVar(key)
		}
	}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		v, _ := ds.Theme.Get(key)
		for _, ref := range varRefs(v) {
			useVar(ref)
		}
		if strings.HasPrefix(key, "--animate") {
			useAnimation(v)
		}
	}

	u := &Usage{}
	for _, key := range ds.Theme.sortedKeys(vars) {
		if tv, _ := ds.Theme.Lookup(key); tv.Options&ThemeReference != 0 {
			continue
		}
		u.Variables = append(u.Variables, key)
	}
	for _, name := range kfOrder {
		n, _ := ds.Theme.Keyframes(name)
		u.Keyframes = append(u.Keyframes, n.Clone())
	}
	for _, name := range propOrder {
		u.Properties = append(u.Properties, ds.properties[name])
	}
	return u
}

// varRefs returns the custom properties named in var() calls of v.
func varRefs(v string) []string {
	var ret []string
	for {
		i := strings.Index(v, "var(")
		if i < 0 {
			return ret
		}
		v = strings.TrimLeft(v[i+4:], " ")
		end := strings.IndexAny(v, ",) ")
		if end < 0 {
			end = len(v)
		}
		if name := v[:end]; strings.HasPrefix(name, "--") {
			ret = append(ret, name)
		}
		v = v[end:]
	}
}

// ResolveVars replaces var() references to theme keys by their values, for
// display.
func (ds *DesignSystem) ResolveVars(v string) string {
	for depth := 0; depth < 8 && strings.Contains(v, "var(--"); depth++ {
		changed := false
		v = replaceCalls(v, "var", func(args string) (string, bool) {
			parts := splitTop(args, ',')
			name := strings.TrimSpace(parts[0])
			if tv, ok := ds.Theme.Get(name); ok {
				changed = true
				return tv, true
			}
			if len(parts) > 1 {
				changed = true
				return strings.TrimSpace(strings.Join(parts[1:], ",")), true
			}
			return "", false
		})
		if !changed {
			break
		}
	}
	return v
}

// replaceCalls rewrites every name(...) call in v, innermost arguments
// first. fn returns false to keep a call as is.
func replaceCalls(v, name string, fn func(args string) (string, bool)) string {
	var b strings.Builder
	for {
		i := indexCall(v, name)
		if i < 0 {
			b.WriteString(v)
			return b.String()
		}
		start := i + len(name) + 1
		depth, end := 1, -1
		for j := start; j < len(v); j++ {
			switch v[j] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				end = j
				break
			}
		}
		if end < 0 {
			b.WriteString(v)
			return b.String()
		}
		args := replaceCalls(v[start:end], name, fn)
		b.WriteString(v[:i])
		if out, ok := fn(args); ok {
			b.WriteString(out)
		} else {
			b.WriteString(name + "(" + args + ")")
		}
		v = v[end+1:]
	}
}

// indexCall finds name( not preceded by an identifier character.
func indexCall(v, name string) int {
	off := 0
	for {
		i := strings.Index(v[off:], name+"(")
		if i < 0 {
			return -1
		}
		i += off
		if i == 0 || !(isAlnum(v[i-1]) || v[i-1] == '-' || v[i-1] == '_') {
			return i
		}
		off = i + 1
	}
}

// UnknownUtilityError is returned by Apply for classes no utility matches.
type UnknownUtilityError struct {
	Class string
}

func (e *UnknownUtilityError) Error() string {
	return fmt.Sprintf("cannot apply unknown utility class `%s`", e.Class)
}

// Apply returns the bodies of classes, relative to &, in class order. It
// backs @apply.
func (ds *DesignSystem) Apply(classes []string) ([]*twcss.Node, error) {
	var list []*compiled
	for _, cls := range classes {
		c := ds.compile(cls)
		if c == nil {
			return nil, &UnknownUtilityError{Class: cls}
		}
		list = append(list, c)
	}
	sort.SliceStable(list, func(i, j int) bool { return compareCompiled(list[i], list[j]) < 0 })
	var ret []*twcss.Node
	for _, c := range list {
		ret = append(ret, twcss.CloneAll(c.body)...)
	}
	return ret, nil
}

// SortClasses returns classes in canonical order: unknown classes first in
// their original order, then as Generate would emit them.
func (ds *DesignSystem) SortClasses(classes []string) []string {
	type entry struct {
		class string
		c     *compiled
	}
	entries := make([]entry, len(classes))
	for i, cls := range classes {
		entries[i] = entry{cls, ds.compile(cls)}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].c, entries[j].c
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		}
		return compareCompiled(a, b) < 0
	})
	ret := make([]string, len(entries))
	for i, e := range entries {
		ret[i] = e.class
	}
	return ret
}

// CandidatesToCSS returns the CSS of each candidate, "" for unknown ones.
func (ds *DesignSystem) CandidatesToCSS(candidates []string) []string {
	ret := make([]string, len(candidates))
	for i, raw := range candidates {
		if c := ds.compile(raw); c != nil {
			ret[i] = twcss.Print(c.nodes)
		}
	}
	return ret
}

// Declaration is a property/value pair of a class entity.
type Declaration struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// ClassEntity is one rule a class produces.
type ClassEntity struct {
	Selector     string        `json:"selector"`
	Declarations []Declaration `json:"declarations"`
}

// Entities returns the rules of a class with their declarations.
func (ds *DesignSystem) Entities(raw string) []ClassEntity {
	c := ds.compile(raw)
	if c == nil {
		return nil
	}
	var ret []ClassEntity
	twcss.Walk(c.nodes, func(n *twcss.Node) bool {
		if n.Kind != twcss.Rule {
			return true
		}
		e := ClassEntity{Selector: n.Selector}
		for _, d := range n.Decls() {
			e.Declarations = append(e.Declarations, Declaration{Property: d.Property, Value: d.Value})
		}
		ret = append(ret, e)
		return false
	})
	return ret
}

// ThemeFunctionError reports a theme() path that resolves to nothing.
type ThemeFunctionError struct {
	Path string
}

func (e *ThemeFunctionError) Error() string {
	return fmt.Sprintf("could not resolve theme value %q", e.Path)
}

// ResolveFunctions expands theme(), --theme(), --spacing() and --alpha()
// in a declaration value or at-rule prelude.
func (ds *DesignSystem) ResolveFunctions(v string) (string, error) {
	if !strings.Contains(v, "(") {
		return v, nil
	}
	var err error
	fail := func(path string) (string, bool) {
		if err == nil {
			err = &ThemeFunctionError{Path: path}
		}
		return "", false
	}
	v = replaceCalls(v, "--theme", func(args string) (string, bool) {
		path, fallback, alpha, inline := themeArgs(args)
		tv, ok := ds.Theme.Lookup(path)
		if !ok || !strings.HasPrefix(path, "--") {
			if fallback != "" {
				return fallback, true
			}
			return fail(path)
		}
		out := "var(" + path + ")"
		if inline || ds.opts.Legacy || tv.Options&ThemeInline != 0 {
			out = tv.Value
		}
		return WithAlpha(out, alpha, ds.opts.Legacy), true
	})
	v = replaceCalls(v, "theme", func(args string) (string, bool) {
		path, fallback, alpha, _ := themeArgs(args)
		key, ok := ds.Theme.PathKey(path)
		if !ok {
			if fallback != "" {
				return fallback, true
			}
			return fail(path)
		}
		out, _ := ds.Theme.Get(key)
		return WithAlpha(out, alpha, ds.opts.Legacy), true
	})
	v = replaceCalls(v, "--spacing", func(args string) (string, bool) {
		unit, ok := ds.Theme.Get("--spacing")
		if !ok {
			return fail("--spacing")
		}
		if !ds.opts.Legacy {
			unit = "var(--spacing)"
		}
		return "calc(" + unit + " * " + strings.TrimSpace(args) + ")", true
	})
	v = replaceCalls(v, "--alpha", func(args string) (string, bool) {
		i := strings.LastIndex(args, "/")
		if i < 0 {
			return fail(args)
		}
		return WithAlpha(strings.TrimSpace(args[:i]), strings.TrimSpace(args[i+1:]), ds.opts.Legacy), true
	})
	return v, err
}

// themeArgs splits `path / alpha, fallback` and an inline flag.
func themeArgs(args string) (path, fallback, alpha string, inline bool) {
	parts := splitTop(args, ',')
	path = strings.Trim(strings.TrimSpace(parts[0]), `"'`)
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "inline" {
			inline = true
			continue
		}
		if fallback != "" {
			fallback += ", "
		}
		fallback += p
	}
	if i := strings.LastIndex(path, "/"); i > 0 && !strings.Contains(path[i:], "]") {
		alpha = strings.TrimSpace(path[i+1:])
		path = strings.TrimSpace(path[:i])
		if alpha != "" && !strings.HasSuffix(alpha, "%") && !strings.HasPrefix(alpha, "var(") {
			if f, ok := alphaValue(&Value{Kind: ArbitraryValue, Text: alpha}); ok {
				alpha = f
			}
		}
	}
	return path, fallback, alpha, inline
}
