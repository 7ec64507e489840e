package twdesign

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
)

var ariaStates = []string{"busy", "checked", "disabled", "expanded", "hidden", "pressed", "readonly", "required", "selected"}

func registerVariants(ds *DesignSystem) {
	legacy := ds.opts.Legacy
	sv := ds.AddStaticVariant

	sv("*", ":is(& > *)")
	if !legacy {
		sv("**", ":is(& *)")
	}

	sv("first-letter", "&::first-letter")
	sv("first-line", "&::first-line")
	sv("marker", "& *::marker", "&::marker")
	sv("selection", "& *::selection", "&::selection")
	sv("file", "&::file-selector-button")
	sv("placeholder", "&::placeholder")
	sv("backdrop", "&::backdrop")
	content := []*twcss.Node{twcss.NewDecl("content", "var(--tw-content)")}
	for _, pe := range []string{"before", "after"} {
		wraps := []Wrap{{Selector: "&::" + pe, Prepend: content}}
		ds.AddVariant(&Variant{Name: pe, Kind: StaticVariant, Apply: func(*VariantCandidate) []Wrap { return wraps }})
	}
	ds.AddProperty(Property{Name: "--tw-content", Initial: `""`})

	sv("first", "&:first-child")
	sv("last", "&:last-child")
	sv("only", "&:only-child")
	sv("odd", "&:nth-child(odd)")
	sv("even", "&:nth-child(even)")
	sv("first-of-type", "&:first-of-type")
	sv("last-of-type", "&:last-of-type")
	sv("only-of-type", "&:only-of-type")
	sv("visited", "&:visited")
	sv("target", "&:target")
	if legacy {
		sv("open", "&[open]")
	} else {
		sv("open", "&:is([open], :popover-open, :open)")
	}
	sv("default", "&:default")
	sv("checked", "&:checked")
	sv("indeterminate", "&:indeterminate")
	sv("placeholder-shown", "&:placeholder-shown")
	sv("autofill", "&:autofill")
	sv("optional", "&:optional")
	sv("required", "&:required")
	sv("valid", "&:valid")
	sv("invalid", "&:invalid")
	sv("user-valid", "&:user-valid")
	sv("user-invalid", "&:user-invalid")
	sv("in-range", "&:in-range")
	sv("out-of-range", "&:out-of-range")
	sv("read-only", "&:read-only")
	sv("empty", "&:empty")
	sv("focus-within", "&:focus-within")
	if legacy {
		sv("hover", "&:hover")
	} else {
		sv("hover", "@media (hover: hover)", "&:hover")
	}
	sv("focus", "&:focus")
	sv("focus-visible", "&:focus-visible")
	sv("active", "&:active")
	sv("enabled", "&:enabled")
	sv("disabled", "&:disabled")
	if !legacy {
		sv("inert", "&:is([inert], [inert] *)")
	}

	ds.AddVariant(&Variant{Name: "nth", Kind: FunctionalVariant, Apply: nthVariant("nth-child")})
	ds.AddVariant(&Variant{Name: "nth-last", Kind: FunctionalVariant, Apply: nthVariant("nth-last-child")})
	ds.AddVariant(&Variant{Name: "nth-of-type", Kind: FunctionalVariant, Apply: nthVariant("nth-of-type")})
	ds.AddVariant(&Variant{Name: "nth-last-of-type", Kind: FunctionalVariant, Apply: nthVariant("nth-last-of-type")})

	ds.AddVariant(&Variant{
		Name: "aria",
		Kind: FunctionalVariant,
		Apply: func(v *VariantCandidate) []Wrap {
			if v.Value == nil {
				return nil
			}
			if v.Value.Kind == ArbitraryValue {
				return []Wrap{{Selector: "&[aria-" + attrSelector(v.Value.Text) + "]"}}
			}
			return []Wrap{{Selector: `&[aria-` + v.Value.Text + `="true"]`}}
		},
		Values: func() []string { return ariaStates },
	})
	ds.AddVariant(&Variant{
		Name: "data",
		Kind: FunctionalVariant,
		Apply: func(v *VariantCandidate) []Wrap {
			if v.Value == nil {
				return nil
			}
			return []Wrap{{Selector: "&[data-" + attrSelector(v.Value.Text) + "]"}}
		},
	})
	ds.AddVariant(&Variant{
		Name: "supports",
		Kind: FunctionalVariant,
		Apply: func(v *VariantCandidate) []Wrap {
			if v.Value == nil {
				return nil
			}
			t := v.Value.Text
			switch {
			case v.Value.Kind == NamedValue:
				t = "(" + t + ": var(--tw))"
			case strings.HasPrefix(t, "not ") || strings.HasPrefix(t, "selector(") || strings.HasPrefix(t, "font-") || strings.HasPrefix(t, "("):
			case strings.Contains(t, ":"):
				i := strings.IndexByte(t, ':')
				t = "(" + strings.TrimSpace(t[:i]) + ": " + strings.TrimSpace(t[i+1:]) + ")"
			default:
				t = "(" + t + ": var(--tw))"
			}
			return []Wrap{{AtRule: "supports", Params: t}}
		},
	})

	sv("motion-safe", "@media (prefers-reduced-motion: no-preference)")
	sv("motion-reduce", "@media (prefers-reduced-motion: reduce)")
	sv("contrast-more", "@media (prefers-contrast: more)")
	sv("contrast-less", "@media (prefers-contrast: less)")

	breakpoints := ds.breakpoints()
	ds.AddVariant(&Variant{
		Name: "max",
		Kind: FunctionalVariant,
		Apply: func(v *VariantCandidate) []Wrap {
			w, ok := ds.screenValue(v)
			if !ok {
				return nil
			}
			if legacy {
				return []Wrap{{AtRule: "media", Params: "not all and (min-width: " + w + ")"}}
			}
			return []Wrap{{AtRule: "media", Params: "(width < " + w + ")"}}
		},
		Values: func() []string { return breakpoints },
	})
	for _, bp := range breakpoints {
		key := "--breakpoint-" + bp
		ds.AddVariant(&Variant{
			Name: bp,
			Kind: StaticVariant,
			Apply: func(*VariantCandidate) []Wrap {
				return []Wrap{{AtRule: "media", Params: ds.minWidth(ds.themeRef(key, true))}}
			},
		})
	}
	ds.AddVariant(&Variant{
		Name: "min",
		Kind: FunctionalVariant,
		Apply: func(v *VariantCandidate) []Wrap {
			w, ok := ds.screenValue(v)
			if !ok {
				return nil
			}
			return []Wrap{{AtRule: "media", Params: ds.minWidth(w)}}
		},
		Values: func() []string { return breakpoints },
	})

	if !legacy {
		containers := func() []string { return ds.Theme.Namespace("--container") }
		for _, name := range []string{"@max", "@", "@min"} {
			op := ">="
			if name == "@max" {
				op = "<"
			}
			ds.AddVariant(&Variant{
				Name: name,
				Kind: FunctionalVariant,
				Apply: func(v *VariantCandidate) []Wrap {
					if v.Value == nil {
						return nil
					}
					w := v.Value.Text
					if v.Value.Kind == NamedValue {
						key, ok := ds.Theme.Resolve(w, "--container")
						if !ok {
							return nil
						}
						w = ds.themeRef(key, true)
					}
					params := "(width " + op + " " + w + ")"
					if v.Modifier != nil {
						params = v.Modifier.Text + " " + params
					}
					return []Wrap{{AtRule: "container", Params: params}}
				},
				Values: containers,
			})
		}
	}

	sv("portrait", "@media (orientation: portrait)")
	sv("landscape", "@media (orientation: landscape)")
	if legacy {
		sv("ltr", `&:where([dir="ltr"], [dir="ltr"] *)`)
		sv("rtl", `&:where([dir="rtl"], [dir="rtl"] *)`)
	} else {
		sv("ltr", `&:where(:dir(ltr), [dir="ltr"], [dir="ltr"] *)`)
		sv("rtl", `&:where(:dir(rtl), [dir="rtl"], [dir="rtl"] *)`)
	}
	sv("dark", "@media (prefers-color-scheme: dark)")
	if !legacy {
		sv("starting", "@starting-style")
	}
	sv("print", "@media print")
	sv("forced-colors", "@media (forced-colors: active)")

	ds.AddVariant(&Variant{Name: "not", Kind: CompoundVariant, Compound: notVariant})
	ds.AddVariant(&Variant{Name: "group", Kind: CompoundVariant, Compound: ds.relationVariant("group", " *", " &")})
	ds.AddVariant(&Variant{Name: "peer", Kind: CompoundVariant, Compound: ds.relationVariant("peer", " ~ *", " ~ &")})
	ds.AddVariant(&Variant{Name: "has", Kind: CompoundVariant, Compound: func(_ *VariantCandidate, inner []Wrap) []Wrap {
		return mapSelectors(inner, func(items []string) string {
			return "&:has(" + strings.Join(starred(items), ", ") + ")"
		})
	}})
	if !legacy {
		ds.AddVariant(&Variant{Name: "in", Kind: CompoundVariant, Compound: func(_ *VariantCandidate, inner []Wrap) []Wrap {
			return mapSelectors(inner, func(items []string) string {
				return ":where(" + strings.Join(starred(items), ", ") + ") &"
			})
		}})
	}
}

func nthVariant(pseudo string) func(v *VariantCandidate) []Wrap {
	return func(v *VariantCandidate) []Wrap {
		if v.Value == nil {
			return nil
		}
		if v.Value.Kind == NamedValue && !isPositiveInteger(v.Value.Text) {
			return nil
		}
		return []Wrap{{Selector: "&:" + pseudo + "(" + v.Value.Text + ")"}}
	}
}

// attrSelector normalizes sort=asc into sort="asc" style attribute tests.
func attrSelector(s string) string {
	i := strings.IndexByte(s, '=')
	if i < 0 {
		return s
	}
	name, val := s[:i], s[i+1:]
	flag := ""
	if n := len(val); n > 2 && val[n-2] == ' ' && (val[n-1] == 'i' || val[n-1] == 's') {
		flag, val = val[n-2:], val[:n-2]
	}
	if len(val) > 0 && (val[0] == '"' || val[0] == '\'') {
		return name + "=" + val + flag
	}
	return name + `="` + val + `"` + flag
}

// breakpoints returns the --breakpoint-* names ordered by width.
func (ds *DesignSystem) breakpoints() []string {
	names := ds.Theme.Namespace("--breakpoint")
	widths := make(map[string]float64, len(names))
	kept := names[:0:0]
	for _, n := range names {
		if n == "DEFAULT" {
			continue
		}
		v, _ := ds.Theme.Get("--breakpoint-" + n)
		widths[n] = pixels(v)
		kept = append(kept, n)
	}
	sort.SliceStable(kept, func(i, j int) bool { return widths[kept[i]] < widths[kept[j]] })
	return kept
}

// pixels converts px and rem lengths for ordering purposes.
func pixels(v string) float64 {
	v = strings.TrimSpace(v)
	mult := 1.0
	switch {
	case strings.HasSuffix(v, "rem"):
		v, mult = v[:len(v)-3], 16
	case strings.HasSuffix(v, "em"):
		v, mult = v[:len(v)-2], 16
	case strings.HasSuffix(v, "px"):
		v = v[:len(v)-2]
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f * mult
}

func (ds *DesignSystem) minWidth(w string) string {
	if ds.opts.Legacy {
		return "(min-width: " + w + ")"
	}
	return "(width >= " + w + ")"
}

func (ds *DesignSystem) screenValue(v *VariantCandidate) (string, bool) {
	if v.Value == nil {
		return "", false
	}
	if v.Value.Kind == ArbitraryValue {
		return v.Value.Text, true
	}
	key, ok := ds.Theme.Resolve(v.Value.Text, "--breakpoint")
	if !ok {
		return "", false
	}
	return ds.themeRef(key, true), true
}

// mapSelectors rewrites the selector wraps of a compound variant's inner
// variant, leaving at-rules in place. Pseudo-elements cannot be compounded.
func mapSelectors(inner []Wrap, fn func(items []string) string) []Wrap {
	ret := make([]Wrap, 0, len(inner))
	found := false
	for _, w := range inner {
		if w.Selector != "" {
			if len(w.Prepend) > 0 || strings.Contains(w.Selector, "::") {
				return nil
			}
			w.Selector = fn(twcss.SplitList(w.Selector))
			found = true
		}
		ret = append(ret, w)
	}
	if !found {
		return nil
	}
	return ret
}

func starred(items []string) []string {
	ret := make([]string, len(items))
	for i, it := range items {
		ret[i] = strings.ReplaceAll(it, "&", "*")
	}
	return ret
}

func notVariant(_ *VariantCandidate, inner []Wrap) []Wrap {
	hasSelector := false
	for _, w := range inner {
		if w.Selector != "" {
			hasSelector = true
		}
	}
	if !hasSelector {
		ret := make([]Wrap, 0, len(inner))
		for _, w := range inner {
			switch w.AtRule {
			case "media":
				w.Params = "not all and " + w.Params
			case "supports", "container":
				w.Params = "not " + w.Params
			default:
				return nil
			}
			ret = append(ret, w)
		}
		return ret
	}
	var ret []Wrap
	for _, w := range inner {
		if w.Selector == "" {
			continue
		}
		if len(w.Prepend) > 0 || strings.Contains(w.Selector, "::") {
			return nil
		}
		items := twcss.SplitList(w.Selector)
		simple := true
		for _, it := range items {
			if !strings.HasPrefix(it, "&") || strings.Count(it, "&") != 1 {
				simple = false
			}
		}
		if simple {
			for i, it := range items {
				items[i] = it[1:]
			}
			w.Selector = "&:not(" + strings.Join(items, ", ") + ")"
		} else {
			w.Selector = "&:not(" + strings.Join(starred(items), ", ") + ")"
		}
		ret = append(ret, w)
	}
	return ret
}

// relationVariant builds group-* and peer-*. The marker class gets the
// modifier as a name: group-hover/item uses .group/item.
func (ds *DesignSystem) relationVariant(marker, modern, legacy string) func(v *VariantCandidate, inner []Wrap) []Wrap {
	return func(v *VariantCandidate, inner []Wrap) []Wrap {
		class := ds.prefixed(marker)
		if v.Modifier != nil {
			class += "/" + v.Modifier.Text
		}
		sel := "." + twcss.EscapeClass(class)
		return mapSelectors(inner, func(items []string) string {
			out := make([]string, len(items))
			if ds.opts.Legacy {
				for i, it := range items {
					out[i] = strings.ReplaceAll(it, "&", sel) + legacy
				}
				return strings.Join(out, ", ")
			}
			for i, it := range items {
				out[i] = strings.ReplaceAll(it, "&", ":where("+sel+")") + modern
			}
			return "&:is(" + strings.Join(out, ", ") + ")"
		})
	}
}

// variantWraps resolves a parsed variant to its wraps.
func (ds *DesignSystem) variantWraps(v *VariantCandidate) []Wrap {
	if v.Selector != "" {
		if strings.HasPrefix(v.Selector, "@") {
			name, params := splitAtRule(v.Selector)
			return []Wrap{{AtRule: name, Params: params}}
		}
		return []Wrap{{Selector: v.Selector}}
	}
	def, ok := ds.variants[v.Root]
	if !ok {
		return nil
	}
	if def.Kind == CompoundVariant {
		if v.Inner == nil {
			return nil
		}
		inner := ds.variantWraps(v.Inner)
		if inner == nil {
			return nil
		}
		return def.Compound(v, inner)
	}
	if def.Apply == nil {
		return nil
	}
	return def.Apply(v)
}

// applyWraps nests body in wraps, the first wrap ending up outermost.
func applyWraps(body []*twcss.Node, wraps []Wrap) []*twcss.Node {
	for i := len(wraps) - 1; i >= 0; i-- {
		w := wraps[i]
		if len(w.Prepend) > 0 {
			body = append(twcss.CloneAll(w.Prepend), body...)
		}
		switch {
		case w.AtRule != "":
			body = []*twcss.Node{twcss.NewAtRule(w.AtRule, w.Params, body...)}
		case w.Selector != "":
			body = []*twcss.Node{twcss.NewRule(w.Selector, body...)}
		}
	}
	return body
}
