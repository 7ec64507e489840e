// Package twdesign is the design system behind both compile engines: the
// theme, the candidate parser, the utility and variant registries and the
// generator turning class candidates into CSS rules. Engines build one
// DesignSystem per (entrypoint, volume) and treat it as read-only once it
// is handed out; generation results are memoized per candidate.
package twdesign

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/gotailwindcss/windpress/twcss"
)

// PrefixStyle tells where a configured prefix goes in a class name.
type PrefixStyle int

const (
	// PrefixVariant puts the prefix in front like a variant: tw:flex.
	PrefixVariant PrefixStyle = iota
	// PrefixDash glues the prefix to the utility: tw-flex, hover:-tw-m-2.
	PrefixDash
)

// Options shape the generated CSS.
type Options struct {
	// Legacy selects the 3.x output conventions: theme values inlined,
	// colors as rgb() with --tw-*-opacity, min-width media queries,
	// .group:hover & style compound variants and transform shorthands.
	Legacy            bool
	Prefix            string
	PrefixStyle       PrefixStyle
	Separator         string
	Important         bool
	ImportantSelector string
	Logger            *slog.Logger
}

// Layer is the cascade layer a utility is emitted in.
type Layer int

const (
	LayerUtilities Layer = iota
	LayerComponents
)

// UtilityKind tells static utilities (flex) from functional ones (p-4).
type UtilityKind int

const (
	StaticUtility UtilityKind = iota
	FunctionalUtility
)

// CompileFunc returns the body of a utility, declarations and nested
// &-rules, or nil when the candidate is not valid for it.
type CompileFunc func(c *Candidate) []*twcss.Node

// Utility is a registered utility.
type Utility struct {
	Root  string
	Kind  UtilityKind
	Layer Layer
	// Modifier is set when the utility consumes candidate modifiers
	// (bg-red-500/50). Fraction accepts a/b values (w-1/2).
	Modifier bool
	Fraction bool
	Negative bool
	Compile  CompileFunc
	// Values lists the suggested values, "DEFAULT" meaning the bare root.
	Values func() []string
	// Modifiers lists suggested modifiers for a value.
	Modifiers func(value string) []string
	order     int
}

// VariantKind tells static, functional and compound variants apart.
type VariantKind int

const (
	StaticVariant VariantKind = iota
	FunctionalVariant
	CompoundVariant
)

// Wrap is one level a variant nests a utility body in: a selector with &
// or a block at-rule. Prepend nodes are added to the body first, e.g. the
// content declaration of ::before.
type Wrap struct {
	Selector string
	AtRule   string
	Params   string
	Prepend  []*twcss.Node
}

// Variant is a registered variant. Apply returns the wraps for a parsed
// variant, outermost first, or nil when it does not apply. Compound
// variants get the wraps of their inner variant.
type Variant struct {
	Name     string
	Kind     VariantKind
	Apply    func(v *VariantCandidate) []Wrap
	Compound func(v *VariantCandidate, inner []Wrap) []Wrap
	Values   func() []string
	order    int
}

// Property is a registered custom property emitted as @property.
type Property struct {
	Name    string
	Syntax  string
	Inherit bool
	Initial string
}

// Rule returns the @property rule registering p.
func (p Property) Rule() *twcss.Node {
	syntax := p.Syntax
	if syntax == "" {
		syntax = `"*"`
	}
	inherits := "false"
	if p.Inherit {
		inherits = "true"
	}
	n := twcss.NewAtRule("property", p.Name, twcss.NewDecl("syntax", syntax), twcss.NewDecl("inherits", inherits))
	if p.Initial != "" {
		n.Nodes = append(n.Nodes, twcss.NewDecl("initial-value", p.Initial))
	}
	return n
}

// DesignSystem is the compiled view of a theme plus the utilities and
// variants available to candidates.
type DesignSystem struct {
	Theme *Theme
	opts  Options

	utilities    map[string][]*Utility
	utilityCount int
	variants     map[string]*Variant
	variantList  []*Variant
	properties   map[string]Property
	base         []*twcss.Node

	cache sync.Map // raw candidate -> *compiled
}

// New returns a design system over theme with the built-in utilities and
// variants registered.
func New(theme *Theme, opts Options) *DesignSystem {
	if theme == nil {
		theme = NewTheme()
	}
	if opts.Separator == "" {
		opts.Separator = ":"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ds := &DesignSystem{
		Theme:      theme,
		opts:       opts,
		utilities:  map[string][]*Utility{},
		variants:   map[string]*Variant{},
		properties: map[string]Property{},
	}
	registerUtilities(ds)
	registerVariants(ds)
	return ds
}

// Options returns the options the design system was built with.
func (ds *DesignSystem) Options() Options { return ds.opts }

// Legacy reports whether 3.x output conventions are in use.
func (ds *DesignSystem) Legacy() bool { return ds.opts.Legacy }

func (ds *DesignSystem) separator() string { return ds.opts.Separator }

// AddUtility registers u after the existing utilities.
func (ds *DesignSystem) AddUtility(u *Utility) {
	u.order = ds.utilityCount
	ds.utilityCount++
	ds.utilities[u.Root] = append(ds.utilities[u.Root], u)
	ds.cache.Clear()
}

func (ds *DesignSystem) hasUtility(root string, kind UtilityKind) bool {
	for _, u := range ds.utilities[root] {
		if u.Kind == kind {
			return true
		}
	}
	return false
}

// Utilities returns the utilities registered for root.
func (ds *DesignSystem) Utilities(root string) []*Utility {
	return ds.utilities[root]
}

// AddVariant registers v. A variant of the same name is replaced in place,
// keeping its position in the variant order.
func (ds *DesignSystem) AddVariant(v *Variant) {
	if old, ok := ds.variants[v.Name]; ok {
		v.order = old.order
		for i, o := range ds.variantList {
			if o == old {
				ds.variantList[i] = v
			}
		}
	} else {
		v.order = len(ds.variantList)
		ds.variantList = append(ds.variantList, v)
	}
	ds.variants[v.Name] = v
	ds.cache.Clear()
}

// Variant returns the variant called name.
func (ds *DesignSystem) Variant(name string) (*Variant, bool) {
	v, ok := ds.variants[name]
	return v, ok
}

// AddStaticVariant registers a variant from selector (&:hover) and
// at-rule (@media print) definitions. Several selectors form a list;
// at-rules nest, outermost first.
func (ds *DesignSystem) AddStaticVariant(name string, defs ...string) {
	wraps := wrapsFromDefs(defs)
	ds.AddVariant(&Variant{Name: name, Kind: StaticVariant, Apply: func(*VariantCandidate) []Wrap { return wraps }})
}

func wrapsFromDefs(defs []string) []Wrap {
	var wraps []Wrap
	var selectors []string
	for _, d := range defs {
		d = strings.TrimSpace(d)
		if strings.HasPrefix(d, "@") {
			name, params := splitAtRule(d)
			wraps = append(wraps, Wrap{AtRule: name, Params: params})
			continue
		}
		if !strings.Contains(d, "&") {
			d = "&" + d
		}
		selectors = append(selectors, d)
	}
	if len(selectors) > 0 {
		wraps = append(wraps, Wrap{Selector: strings.Join(selectors, ", ")})
	}
	return wraps
}

// splitAtRule splits "@media (x)" into "media" and "(x)".
func splitAtRule(s string) (string, string) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	i := strings.IndexAny(s, " (")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// AddProperty registers a custom property declared with @property when
// used.
func (ds *DesignSystem) AddProperty(p Property) {
	if p.Syntax == "" {
		p.Syntax = `"*"`
	}
	ds.properties[p.Name] = p
}

// AddBase appends nodes emitted in the base layer.
func (ds *DesignSystem) AddBase(nodes ...*twcss.Node) {
	ds.base = append(ds.base, nodes...)
}

// Base returns the base layer nodes added by plugins.
func (ds *DesignSystem) Base() []*twcss.Node { return twcss.CloneAll(ds.base) }

// AddClassRule registers the classes of a plain rule (.btn:hover > svg)
// as static utilities, so they can be used as candidates and in @apply.
// The rule is attached to every class its selector names.
func (ds *DesignSystem) AddClassRule(layer Layer, rule *twcss.Node) {
	for _, sel := range twcss.SplitList(rule.Selector) {
		classes := twcss.SelectorClasses(sel)
		if len(classes) == 0 {
			continue
		}
		for _, class := range classes {
			body := relativeBody(sel, class, rule.Nodes)
			ds.appendStaticBody(layer, class, body)
		}
	}
}

// relativeBody rewrites the nodes of a rule selected by sel to hang off &
// standing for class.
func relativeBody(sel, class string, nodes []*twcss.Node) []*twcss.Node {
	esc := "." + twcss.EscapeClass(class)
	rel := strings.Replace(sel, esc, "&", 1)
	if rel == "&" {
		return twcss.CloneAll(nodes)
	}
	return []*twcss.Node{twcss.NewRule(rel, twcss.CloneAll(nodes)...)}
}

func (ds *DesignSystem) appendStaticBody(layer Layer, class string, body []*twcss.Node) {
	for _, u := range ds.utilities[class] {
		if u.Kind == StaticUtility && u.Layer == layer && u.Compile != nil && u.Values == nil {
			prev := u.Compile
			u.Compile = func(c *Candidate) []*twcss.Node {
				return append(prev(c), twcss.CloneAll(body)...)
			}
			ds.cache.Clear()
			return
		}
	}
	ds.AddUtility(&Utility{
		Root:    class,
		Kind:    StaticUtility,
		Layer:   layer,
		Compile: func(*Candidate) []*twcss.Node { return twcss.CloneAll(body) },
	})
}

// static registers a built-in static utility from property/value pairs.
func (ds *DesignSystem) static(name string, decls ...string) {
	if len(decls)%2 != 0 {
		panic(fmt.Sprintf("twdesign: odd declaration list for %s", name))
	}
	ds.AddUtility(&Utility{
		Root: name,
		Kind: StaticUtility,
		Compile: func(*Candidate) []*twcss.Node {
			return pairs(decls...)
		},
	})
}

func pairs(decls ...string) []*twcss.Node {
	nodes := make([]*twcss.Node, 0, len(decls)/2)
	for i := 0; i < len(decls); i += 2 {
		nodes = append(nodes, twcss.NewDecl(decls[i], decls[i+1]))
	}
	return nodes
}

// ClassItem is an entry of the class list.
type ClassItem struct {
	Name      string   `json:"name"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// ClassList returns every class the registered utilities suggest, in
// utility order.
func (ds *DesignSystem) ClassList() []ClassItem {
	var all []*Utility
	for _, us := range ds.utilities {
		all = append(all, us...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].order < all[j].order })

	seen := map[string]bool{}
	var ret []ClassItem
	add := func(name string, mods []string) {
		if seen[name] {
			return
		}
		seen[name] = true
		ret = append(ret, ClassItem{Name: ds.prefixed(name), Modifiers: mods})
	}
	for _, u := range all {
		if u.Kind == StaticUtility {
			add(u.Root, nil)
			continue
		}
		if u.Values == nil {
			continue
		}
		for _, v := range u.Values() {
			name := u.Root + "-" + v
			if v == "DEFAULT" {
				name = u.Root
			}
			var mods []string
			if u.Modifiers != nil {
				mods = u.Modifiers(v)
			}
			add(name, mods)
			if u.Negative && v != "DEFAULT" && v != "0" && v != "auto" && v != "px" && isNumberish(v) {
				add("-"+name, mods)
			}
		}
	}
	return ret
}

func isNumberish(v string) bool {
	return len(v) > 0 && (isDigit(v[0]) || v == "px")
}

func (ds *DesignSystem) prefixed(class string) string {
	if ds.opts.Prefix == "" {
		return class
	}
	if ds.opts.PrefixStyle == PrefixVariant {
		return ds.opts.Prefix + ds.opts.Separator + class
	}
	if strings.HasPrefix(class, "-") {
		return "-" + ds.opts.Prefix + class[1:]
	}
	return ds.opts.Prefix + class
}

// VariantItem describes a variant for completion.
type VariantItem struct {
	Name     string   `json:"name"`
	Values   []string `json:"values,omitempty"`
	Compound bool     `json:"compound,omitempty"`
}

// Variants returns the registered variants in order.
func (ds *DesignSystem) Variants() []VariantItem {
	ret := make([]VariantItem, 0, len(ds.variantList))
	for _, v := range ds.variantList {
		item := VariantItem{Name: v.Name, Compound: v.Kind == CompoundVariant}
		if v.Values != nil {
			item.Values = v.Values()
		}
		ret = append(ret, item)
	}
	return ret
}

// Variables returns the theme custom properties.
func (ds *DesignSystem) Variables() []Variable {
	return ds.Theme.Variables()
}
