package twdesign

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
)

// AddCSSUtility registers a utility defined in CSS with @utility. Names
// ending in -* are functional; their declarations resolve --value() and
// --modifier() against the candidate.
func (ds *DesignSystem) AddCSSUtility(n *twcss.Node) error {
	name := strings.TrimSpace(n.Params)
	if name == "" || !n.Block {
		return fmt.Errorf("@utility needs a name and a block")
	}
	body := twcss.CloneAll(n.Nodes)
	if !strings.HasSuffix(name, "-*") {
		if strings.Contains(name, "*") {
			return fmt.Errorf("@utility %s: invalid name", name)
		}
		ds.AddUtility(&Utility{Root: name, Kind: StaticUtility, Compile: func(*Candidate) []*twcss.Node {
			return twcss.CloneAll(body)
		}})
		return nil
	}
	root := strings.TrimSuffix(name, "-*")
	if root == "" {
		return fmt.Errorf("@utility %s: invalid name", name)
	}
	u := &Utility{Root: root, Kind: FunctionalUtility}
	var namespaces []string
	twcss.Walk(body, func(c *twcss.Node) bool {
		if c.Kind != twcss.Decl {
			return true
		}
		if strings.Contains(c.Value, "--modifier(") {
			u.Modifier = true
		}
		for _, fn := range []string{"--value", "--modifier"} {
			replaceCalls(c.Value, fn, func(args string) (string, bool) {
				for _, a := range splitTop(args, ',') {
					a = strings.TrimSpace(a)
					switch {
					case a == "ratio":
						u.Fraction = true
					case fn == "--value" && strings.HasPrefix(a, "--") && strings.HasSuffix(a, "-*"):
						namespaces = append(namespaces, strings.TrimSuffix(a, "-*"))
					}
				}
				return "", false
			})
		}
		return true
	})
	u.Values = func() []string {
		var ret []string
		for _, ns := range namespaces {
			ret = append(ret, ds.Theme.Namespace(ns)...)
		}
		return ret
	}
	u.Compile = func(c *Candidate) []*twcss.Node {
		return ds.resolveCSSUtility(body, c)
	}
	ds.AddUtility(u)
	return nil
}

// resolveCSSUtility substitutes --value() and --modifier() in body.
// Declarations that do not resolve are dropped; the candidate is invalid
// when none of them resolves or a modifier goes unused.
func (ds *DesignSystem) resolveCSSUtility(body []*twcss.Node, c *Candidate) []*twcss.Node {
	out := twcss.CloneAll(body)
	resolvedValue := false
	usedModifier := false
	out = twcss.Replace(out, func(n *twcss.Node) ([]*twcss.Node, bool) {
		if n.Kind != twcss.Decl {
			return nil, false
		}
		hasValue := strings.Contains(n.Value, "--value(")
		hasModifier := strings.Contains(n.Value, "--modifier(")
		if !hasValue && !hasModifier {
			return nil, false
		}
		ok := true
		v := replaceCalls(n.Value, "--value", func(args string) (string, bool) {
			r, found := ds.cssValue(args, c.Value, c.Value == nil)
			if !found {
				ok = false
			}
			return r, found
		})
		v = replaceCalls(v, "--modifier", func(args string) (string, bool) {
			if c.Modifier == nil {
				ok = false
				return "", false
			}
			r, found := ds.cssValue(args, c.Modifier, false)
			if !found {
				ok = false
			}
			return r, found
		})
		if !ok {
			return []*twcss.Node{}, true
		}
		if hasValue {
			resolvedValue = true
		}
		if hasModifier {
			usedModifier = true
		}
		n.Value = v
		return nil, false
	})
	if !resolvedValue || (c.Modifier != nil && !usedModifier) {
		return nil
	}
	if c.Negative {
		return nil
	}
	return out
}

// cssValue resolves one --value()/--modifier() argument list: theme
// namespaces (--tab-size-*), bare types (integer), arbitrary types
// ([length], [*]) and quoted literals.
func (ds *DesignSystem) cssValue(args string, v *Value, bare bool) (string, bool) {
	for _, a := range splitTop(args, ',') {
		a = strings.TrimSpace(a)
		if bare {
			if strings.HasPrefix(a, "--") && strings.HasSuffix(a, "-*") {
				if key, ok := ds.Theme.Resolve("", strings.TrimSuffix(a, "-*")); ok {
					return ds.themeRef(key, false), true
				}
			}
			continue
		}
		if v == nil {
			return "", false
		}
		switch {
		case strings.HasPrefix(a, "[") && strings.HasSuffix(a, "]"):
			if v.Kind != ArbitraryValue {
				continue
			}
			t := a[1 : len(a)-1]
			if t == "*" || typeIs(v, t) || (t == "integer" && isInteger(v.Text)) || (t == "number" && isNumber(v.Text)) {
				return v.Text, true
			}
		case v.Kind == ArbitraryValue:
			continue
		case strings.HasPrefix(a, "--") && strings.HasSuffix(a, "-*"):
			if key, ok := ds.Theme.Resolve(v.Text, strings.TrimSuffix(a, "-*")); ok && v.Text != "DEFAULT" {
				return ds.themeRef(key, false), true
			}
		case len(a) >= 2 && (a[0] == '\'' || a[0] == '"') && a[len(a)-1] == a[0]:
			if v.Text == a[1:len(a)-1] {
				return v.Text, true
			}
		case a == "integer":
			if isInteger(v.Text) {
				return v.Text, true
			}
		case a == "number":
			if isMultiple(v.Text) {
				return v.Text, true
			}
		case a == "percentage":
			if strings.HasSuffix(v.Text, "%") && isMultiple(strings.TrimSuffix(v.Text, "%")) {
				return v.Text, true
			}
		case a == "ratio":
			if v.Fraction != "" {
				return strings.Replace(v.Fraction, "/", " / ", 1), true
			}
		case a == "any":
			return v.Text, true
		}
	}
	return "", false
}

// AddCustomVariant registers a variant defined with @custom-variant, either
// as a statement holding selectors or at-rules in parentheses, or as a
// block marking where the utility goes with @slot.
func (ds *DesignSystem) AddCustomVariant(n *twcss.Node) error {
	params := strings.TrimSpace(n.Params)
	name := params
	var defs []string
	if i := strings.IndexAny(params, " ("); i >= 0 {
		name = params[:i]
		rest := strings.TrimSpace(params[i:])
		if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
			return fmt.Errorf("@custom-variant %s: expected a parenthesized selector", name)
		}
		defs = []string{strings.TrimSpace(rest[1 : len(rest)-1])}
	}
	if name == "" {
		return errors.New("@custom-variant needs a name")
	}
	if !n.Block {
		if len(defs) == 0 {
			return fmt.Errorf("@custom-variant %s: missing selector", name)
		}
		ds.AddStaticVariant(name, defs...)
		return nil
	}
	if len(defs) > 0 {
		return fmt.Errorf("@custom-variant %s: use either a selector or a block", name)
	}
	wraps, err := slotWraps(n.Nodes)
	if err != nil {
		return fmt.Errorf("@custom-variant %s: %w", name, err)
	}
	ds.AddVariant(&Variant{Name: name, Kind: StaticVariant, Apply: func(*VariantCandidate) []Wrap { return wraps }})
	return nil
}

// slotWraps turns a @custom-variant block into wraps. Sibling branches
// holding @slot are merged into a selector list when they are plain
// selectors.
func slotWraps(nodes []*twcss.Node) ([]Wrap, error) {
	var paths [][]Wrap
	var walk func(nodes []*twcss.Node, prefix []Wrap)
	walk = func(nodes []*twcss.Node, prefix []Wrap) {
		for _, n := range nodes {
			switch {
			case n.Kind == twcss.AtRule && n.Name == "slot":
				paths = append(paths, append([]Wrap(nil), prefix...))
			case n.Kind == twcss.Rule:
				walk(n.Nodes, append(append([]Wrap(nil), prefix...), Wrap{Selector: n.Selector}))
			case n.Kind == twcss.AtRule && n.Block:
				walk(n.Nodes, append(append([]Wrap(nil), prefix...), Wrap{AtRule: n.Name, Params: n.Params}))
			}
		}
	}
	walk(nodes, nil)
	switch len(paths) {
	case 0:
		return nil, errors.New("block has no @slot")
	case 1:
		return paths[0], nil
	}
	var selectors []string
	for _, p := range paths {
		if len(p) != 1 || p[0].Selector == "" {
			return nil, errors.New("several @slot branches must each be a single selector")
		}
		selectors = append(selectors, p[0].Selector)
	}
	return []Wrap{{Selector: strings.Join(selectors, ", ")}}, nil
}

// ApplyVariant nests body in the named variant, for @variant inside rules.
func (ds *DesignSystem) ApplyVariant(name string, body []*twcss.Node) ([]*twcss.Node, bool) {
	v := ds.parseVariant(name)
	if v == nil {
		return nil, false
	}
	wraps := ds.variantWraps(v)
	if wraps == nil {
		return nil, false
	}
	return applyWraps(body, wraps), true
}

// KeyValue is an ordered theme-like entry handed in by plugins.
type KeyValue struct {
	Key   string
	Value string
}

func lookup(kvs []KeyValue, key string) (string, bool) {
	for _, kv := range kvs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// MatchOptions configures MatchUtility.
type MatchOptions struct {
	Values []KeyValue
	// Types limits arbitrary values; empty or "any" accepts everything.
	Types    []string
	Negative bool
	// Modifiers are the named modifiers; AnyModifier also accepts
	// arbitrary ones.
	Modifiers   []KeyValue
	AnyModifier bool
	Layer       Layer
}

// MatchUtility registers a functional utility whose body is produced by
// fn from the resolved value and modifier ("" when absent).
func (ds *DesignSystem) MatchUtility(root string, opts MatchOptions, fn func(value, modifier string) []*twcss.Node) {
	u := &Utility{
		Root:     root,
		Kind:     FunctionalUtility,
		Layer:    opts.Layer,
		Negative: opts.Negative,
		Modifier: opts.AnyModifier || len(opts.Modifiers) > 0,
	}
	for _, kv := range opts.Values {
		if strings.Contains(kv.Key, "/") {
			u.Fraction = true
		}
	}
	u.Values = func() []string {
		ret := make([]string, 0, len(opts.Values))
		for _, kv := range opts.Values {
			ret = append(ret, kv.Key)
		}
		return ret
	}
	if len(opts.Modifiers) > 0 {
		u.Modifiers = func(string) []string {
			ret := make([]string, 0, len(opts.Modifiers))
			for _, kv := range opts.Modifiers {
				ret = append(ret, kv.Key)
			}
			return ret
		}
	}
	anyType := len(opts.Types) == 0
	for _, t := range opts.Types {
		if t == "any" {
			anyType = true
		}
	}
	u.Compile = func(c *Candidate) []*twcss.Node {
		var value string
		v := c.Value
		switch {
		case v == nil:
			var ok bool
			if value, ok = lookup(opts.Values, "DEFAULT"); !ok {
				return nil
			}
		case v.Kind == ArbitraryValue:
			if !anyType && !typeIs(v, append(opts.Types, "")...) {
				return nil
			}
			value = v.Text
		case v.Fraction != "":
			var ok bool
			if value, ok = lookup(opts.Values, v.Fraction); !ok {
				return nil
			}
		default:
			var ok bool
			if value, ok = lookup(opts.Values, v.Text); !ok {
				return nil
			}
		}
		if c.Negative {
			value = negate(value)
		}
		var mod string
		if m := c.Modifier; m != nil {
			switch {
			case m.Kind == ArbitraryValue && opts.AnyModifier:
				mod = m.Text
			default:
				var ok bool
				if mod, ok = lookup(opts.Modifiers, m.Text); !ok {
					return nil
				}
			}
		}
		return fn(value, mod)
	}
	ds.AddUtility(u)
}

// MatchVariant registers a functional variant whose definitions (selectors
// with & or at-rules) fn returns for the resolved value.
func (ds *DesignSystem) MatchVariant(name string, values []KeyValue, fn func(value, modifier string) []string) {
	ds.AddVariant(&Variant{
		Name: name,
		Kind: FunctionalVariant,
		Values: func() []string {
			ret := make([]string, 0, len(values))
			for _, kv := range values {
				if kv.Key != "DEFAULT" {
					ret = append(ret, kv.Key)
				}
			}
			return ret
		},
		Apply: func(v *VariantCandidate) []Wrap {
			var value string
			switch {
			case v.Value == nil:
				var ok bool
				if value, ok = lookup(values, "DEFAULT"); !ok {
					return nil
				}
			case v.Value.Kind == ArbitraryValue:
				value = v.Value.Text
			default:
				var ok bool
				if value, ok = lookup(values, v.Value.Text); !ok {
					return nil
				}
			}
			var mod string
			if v.Modifier != nil {
				mod = v.Modifier.Text
			}
			defs := fn(value, mod)
			if len(defs) == 0 {
				return nil
			}
			return wrapsFromDefs(defs)
		},
	})
}
