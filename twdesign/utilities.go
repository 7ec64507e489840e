package twdesign

import (
	"strconv"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
)

type utilityFlag func(*Utility)

func withNegative(u *Utility) { u.Negative = true }

func withFraction(u *Utility) { u.Fraction = true }

func withModifiers(fn func(string) []string) utilityFlag {
	return func(u *Utility) {
		u.Modifier = true
		u.Modifiers = fn
	}
}

func (ds *DesignSystem) functional(root string, values func() []string, compile CompileFunc, flags ...utilityFlag) {
	u := &Utility{Root: root, Kind: FunctionalUtility, Compile: compile, Values: values}
	for _, f := range flags {
		f(u)
	}
	ds.AddUtility(u)
}

// staticGroup registers prefix-name utilities setting prop, values
// given as name/value pairs.
func (ds *DesignSystem) staticGroup(prefix, prop string, pairs ...string) {
	for i := 0; i+1 < len(pairs); i += 2 {
		name := prefix + "-" + pairs[i]
		if pairs[i] == "" {
			name = prefix
		}
		ds.static(name, prop, pairs[i+1])
	}
}

func decls(props []string, value string) []*twcss.Node {
	nodes := make([]*twcss.Node, len(props))
	for i, p := range props {
		nodes[i] = twcss.NewDecl(p, value)
	}
	return nodes
}

// spacingUtility registers root for props on the spacing scale, keywords
// (name/value pairs) checked first.
func (ds *DesignSystem) spacingUtility(root string, props []string, keywords []string, flags ...utilityFlag) {
	ds.functional(root, concat(fixed(keywordNames(keywords)...), ds.spacingValues), func(c *Candidate) []*twcss.Node {
		if v, ok := keywordValue(c.Value, keywords); ok {
			if c.Negative {
				return nil
			}
			return decls(props, v)
		}
		v, ok := ds.spacing(c.Value, c.Negative)
		if !ok {
			return nil
		}
		return decls(props, v)
	}, flags...)
}

var fractions = []string{"1/2", "1/3", "2/3", "1/4", "2/4", "3/4", "1/5", "2/5", "3/5", "4/5", "1/6", "5/6"}

// sizeUtility registers sizing roots (w, max-w, inset) accepting keywords,
// fractions, theme namespaces and the spacing scale.
func (ds *DesignSystem) sizeUtility(root string, props []string, keywords []string, namespaces []string, flags ...utilityFlag) {
	values := func() []string {
		ret := keywordNames(keywords)
		ret = append(ret, ds.spacingValues()...)
		ret = append(ret, fractions...)
		for _, ns := range namespaces {
			ret = append(ret, ds.Theme.Namespace(ns)...)
		}
		return ret
	}
	ds.functional(root, values, func(c *Candidate) []*twcss.Node {
		v := c.Value
		if v == nil {
			return nil
		}
		if kw, ok := keywordValue(v, keywords); ok {
			if c.Negative {
				if kw != "100%" {
					return nil
				}
				kw = "-100%"
			}
			return decls(props, kw)
		}
		if v.Fraction != "" {
			fr, ok := ds.fraction(v.Fraction)
			if !ok {
				return nil
			}
			if c.Negative {
				fr = negate(fr)
			}
			return decls(props, fr)
		}
		if v.Kind == NamedValue {
			if strings.HasPrefix(v.Text, "screen-") {
				if key, ok := ds.Theme.Resolve(strings.TrimPrefix(v.Text, "screen-"), "--breakpoint"); ok && !c.Negative {
					return decls(props, ds.themeRef(key, false))
				}
			}
			if key, ok := ds.Theme.Resolve(v.Text, namespaces...); ok && v.Text != "DEFAULT" {
				val := ds.themeRef(key, false)
				if c.Negative {
					val = negate(val)
				}
				return decls(props, val)
			}
		}
		val, ok := ds.spacing(v, c.Negative)
		if !ok {
			return nil
		}
		return decls(props, val)
	}, append(flags, withFraction)...)
}

// themeUtility registers root reading tokens from namespaces, arbitrary
// values accepted when their type is one of types (or unknown).
func (ds *DesignSystem) themeUtility(root string, props []string, namespaces []string, types []string, flags ...utilityFlag) {
	values := func() []string {
		var ret []string
		for _, ns := range namespaces {
			ret = append(ret, ds.Theme.Namespace(ns)...)
		}
		return ret
	}
	ds.functional(root, values, func(c *Candidate) []*twcss.Node {
		if c.Value != nil && c.Value.Kind == ArbitraryValue && len(types) > 0 && !typeIs(c.Value, append(types, "")...) {
			return nil
		}
		v, ok := ds.themeValue(c.Value, namespaces...)
		if !ok {
			return nil
		}
		if c.Negative {
			v = negate(v)
		}
		return decls(props, v)
	}, flags...)
}

// integerUtility registers root for plain integers and arbitrary values.
func (ds *DesignSystem) integerUtility(root string, props []string, format func(string) string, values func() []string, flags ...utilityFlag) {
	ds.functional(root, values, func(c *Candidate) []*twcss.Node {
		v := c.Value
		if v == nil {
			return nil
		}
		var out string
		switch {
		case v.Kind == ArbitraryValue:
			out = v.Text
		case isInteger(v.Text):
			out = v.Text
			if format != nil {
				out = format(v.Text)
			}
		default:
			return nil
		}
		if c.Negative {
			out = negate(out)
		}
		return decls(props, out)
	}, flags...)
}

func (ds *DesignSystem) colorUtility(root, opacityVar string, props ...string) {
	ds.functional(root, ds.colorValues, func(c *Candidate) []*twcss.Node {
		return ds.colorDecls(c, opacityVar, props...)
	}, withModifiers(colorModifiers))
}

func suffix(s string) func(string) string { return func(v string) string { return v + s } }

func registerUtilities(ds *DesignSystem) {
	registerLayout(ds)
	registerSpacing(ds)
	registerSizing(ds)
	registerFlexGrid(ds)
	registerTypography(ds)
	registerBackgrounds(ds)
	registerBorders(ds)
	registerEffects(ds)
	registerTransforms(ds)
	registerInteractivity(ds)
}

func registerLayout(ds *DesignSystem) {
	legacy := ds.opts.Legacy

	ds.static("sr-only",
		"position", "absolute", "width", "1px", "height", "1px", "padding", "0", "margin", "-1px",
		"overflow", "hidden", "clip", "rect(0, 0, 0, 0)", "white-space", "nowrap", "border-width", "0")
	ds.static("not-sr-only",
		"position", "static", "width", "auto", "height", "auto", "padding", "0", "margin", "0",
		"overflow", "visible", "clip", "auto", "white-space", "normal")
	ds.staticGroup("pointer-events", "pointer-events", "none", "none", "auto", "auto")
	ds.static("visible", "visibility", "visible")
	ds.static("invisible", "visibility", "hidden")
	ds.static("collapse", "visibility", "collapse")
	for _, p := range []string{"static", "fixed", "absolute", "relative", "sticky"} {
		ds.static(p, "position", p)
	}

	insetKeywords := []string{"auto", "auto", "full", "100%"}
	if legacy {
		ds.sizeUtility("inset", []string{"inset"}, insetKeywords, []string{"--inset"}, withNegative)
		ds.sizeUtility("inset-x", []string{"left", "right"}, insetKeywords, []string{"--inset"}, withNegative)
		ds.sizeUtility("inset-y", []string{"top", "bottom"}, insetKeywords, []string{"--inset"}, withNegative)
	} else {
		ds.sizeUtility("inset", []string{"inset"}, insetKeywords, []string{"--inset"}, withNegative)
		ds.sizeUtility("inset-x", []string{"inset-inline"}, insetKeywords, []string{"--inset"}, withNegative)
		ds.sizeUtility("inset-y", []string{"inset-block"}, insetKeywords, []string{"--inset"}, withNegative)
	}
	ds.sizeUtility("start", []string{"inset-inline-start"}, insetKeywords, []string{"--inset"}, withNegative)
	ds.sizeUtility("end", []string{"inset-inline-end"}, insetKeywords, []string{"--inset"}, withNegative)
	for _, side := range []string{"top", "right", "bottom", "left"} {
		ds.sizeUtility(side, []string{side}, insetKeywords, []string{"--inset"}, withNegative)
	}

	ds.static("isolate", "isolation", "isolate")
	ds.static("isolation-auto", "isolation", "auto")
	ds.static("z-auto", "z-index", "auto")
	ds.functional("z", fixed("0", "10", "20", "30", "40", "50"), func(c *Candidate) []*twcss.Node {
		v := c.Value
		if v == nil {
			return nil
		}
		out := v.Text
		if v.Kind == NamedValue {
			if t, ok := ds.Theme.Get("--z-index-" + v.Text); ok {
				out = t
			} else if !isInteger(v.Text) {
				return nil
			}
		}
		if c.Negative {
			out = negate(out)
		}
		return decls([]string{"z-index"}, out)
	}, withNegative)

	first := "calc(-infinity)"
	last := "calc(infinity)"
	if legacy {
		first, last = "-9999", "9999"
	}
	ds.static("order-first", "order", first)
	ds.static("order-last", "order", last)
	ds.static("order-none", "order", "0")
	ds.integerUtility("order", []string{"order"}, nil, integerValues(1, 12), withNegative)

	ds.staticGroup("float", "float", "start", "inline-start", "end", "inline-end", "right", "right", "left", "left", "none", "none")
	ds.staticGroup("clear", "clear", "start", "inline-start", "end", "inline-end", "left", "left", "right", "right", "both", "both", "none", "none")

	ds.AddUtility(&Utility{Root: "container", Kind: StaticUtility, Compile: func(*Candidate) []*twcss.Node {
		nodes := []*twcss.Node{twcss.NewDecl("width", "100%")}
		for _, bp := range ds.breakpoints() {
			w := ds.themeRef("--breakpoint-"+bp, true)
			nodes = append(nodes, twcss.NewAtRule("media", ds.minWidth(w), twcss.NewDecl("max-width", w)))
		}
		return nodes
	}})

	ds.static("box-border", "box-sizing", "border-box")
	ds.static("box-content", "box-sizing", "content-box")

	ds.static("line-clamp-none", "overflow", "visible", "display", "block", "-webkit-box-orient", "horizontal", "-webkit-line-clamp", "unset")
	ds.functional("line-clamp", integerValues(1, 6), func(c *Candidate) []*twcss.Node {
		v := c.Value
		if v == nil || (v.Kind == NamedValue && !isPositiveInteger(v.Text)) {
			return nil
		}
		return pairs("overflow", "hidden", "display", "-webkit-box", "-webkit-box-orient", "vertical", "-webkit-line-clamp", v.Text)
	})

	for _, d := range []string{"block", "inline-block", "inline", "flex", "inline-flex", "table", "inline-table",
		"table-caption", "table-cell", "table-column", "table-column-group", "table-footer-group",
		"table-header-group", "table-row-group", "table-row", "flow-root", "grid", "inline-grid", "contents", "list-item"} {
		ds.static(d, "display", d)
	}
	ds.static("hidden", "display", "none")

	ds.functional("aspect", concat(fixed("auto", "square"), func() []string { return ds.Theme.Namespace("--aspect") }), func(c *Candidate) []*twcss.Node {
		v := c.Value
		switch {
		case v == nil:
			return nil
		case v.Kind == ArbitraryValue:
			return decls([]string{"aspect-ratio"}, v.Text)
		case v.Fraction != "":
			return decls([]string{"aspect-ratio"}, strings.Replace(v.Fraction, "/", " / ", 1))
		case v.Text == "auto":
			return decls([]string{"aspect-ratio"}, "auto")
		case v.Text == "square":
			return decls([]string{"aspect-ratio"}, "1 / 1")
		}
		val, ok := ds.themeValue(v, "--aspect")
		if !ok {
			return nil
		}
		return decls([]string{"aspect-ratio"}, val)
	}, withFraction)

	ds.staticGroup("overflow", "overflow", "auto", "auto", "hidden", "hidden", "clip", "clip", "visible", "visible", "scroll", "scroll")
	ds.staticGroup("overflow-x", "overflow-x", "auto", "auto", "hidden", "hidden", "clip", "clip", "visible", "visible", "scroll", "scroll")
	ds.staticGroup("overflow-y", "overflow-y", "auto", "auto", "hidden", "hidden", "clip", "clip", "visible", "visible", "scroll", "scroll")
	ds.staticGroup("overscroll", "overscroll-behavior", "auto", "auto", "contain", "contain", "none", "none")
	ds.staticGroup("object", "object-fit", "contain", "contain", "cover", "cover", "fill", "fill", "none", "none", "scale-down", "scale-down")
	ds.staticGroup("object", "object-position", "bottom", "bottom", "center", "center", "left", "left", "left-bottom", "left bottom",
		"left-top", "left top", "right", "right", "right-bottom", "right bottom", "right-top", "right top", "top", "top")
	ds.integerUtility("columns", []string{"columns"}, nil, integerValues(1, 12))
}

func registerSpacing(ds *DesignSystem) {
	legacy := ds.opts.Legacy
	auto := []string{"auto", "auto"}
	type side struct {
		name  string
		props []string
	}
	sides := func(p string) []side {
		x := []string{p + "-inline"}
		y := []string{p + "-block"}
		if legacy {
			x = []string{p + "-left", p + "-right"}
			y = []string{p + "-top", p + "-bottom"}
		}
		return []side{
			{"", []string{p}},
			{"x", x},
			{"y", y},
			{"s", []string{p + "-inline-start"}},
			{"e", []string{p + "-inline-end"}},
			{"t", []string{p + "-top"}},
			{"r", []string{p + "-right"}},
			{"b", []string{p + "-bottom"}},
			{"l", []string{p + "-left"}},
		}
	}
	for _, s := range sides("margin") {
		ds.spacingUtility("m"+s.name, s.props, auto, withNegative)
	}
	for _, s := range sides("padding") {
		ds.spacingUtility("p"+s.name, s.props, nil)
	}

	for _, axis := range []string{"x", "y"} {
		start, end := "margin-inline-start", "margin-inline-end"
		if axis == "y" {
			start, end = "margin-block-start", "margin-block-end"
		}
		if legacy {
			start, end = "margin-right", "margin-left"
			if axis == "y" {
				start, end = "margin-bottom", "margin-top"
			}
		}
		reverse := "--tw-space-" + axis + "-reverse"
		ds.AddProperty(Property{Name: reverse, Initial: "0"})
		ds.functional("space-"+axis, ds.spacingValues, func(c *Candidate) []*twcss.Node {
			v, ok := ds.spacing(c.Value, c.Negative)
			if !ok {
				return nil
			}
			return []*twcss.Node{twcss.NewRule(ds.childSelector(),
				twcss.NewDecl(reverse, "0"),
				twcss.NewDecl(start, "calc("+v+" * var("+reverse+"))"),
				twcss.NewDecl(end, "calc("+v+" * calc(1 - var("+reverse+")))"),
			)}
		}, withNegative)
		ds.AddUtility(&Utility{Root: "space-" + axis + "-reverse", Kind: StaticUtility, Compile: func(*Candidate) []*twcss.Node {
			return []*twcss.Node{twcss.NewRule(ds.childSelector(), twcss.NewDecl(reverse, "1"))}
		}})
	}
}

// childSelector selects the children spacing and divide utilities act on.
func (ds *DesignSystem) childSelector() string {
	if ds.opts.Legacy {
		return "& > :not([hidden]) ~ :not([hidden])"
	}
	return ":where(& > :not(:last-child))"
}

func registerSizing(ds *DesignSystem) {
	common := []string{"auto", "auto", "full", "100%", "min", "min-content", "max", "max-content", "fit", "fit-content"}
	width := append(append([]string(nil), common...), "screen", "100vw", "svw", "100svw", "lvw", "100lvw", "dvw", "100dvw")
	height := append(append([]string(nil), common...), "screen", "100vh", "svh", "100svh", "lvh", "100lvh", "dvh", "100dvh", "lh", "1lh")

	ds.sizeUtility("size", []string{"width", "height"}, common, []string{"--size"})
	ds.sizeUtility("w", []string{"width"}, width, []string{"--width", "--container"})
	ds.sizeUtility("min-w", []string{"min-width"}, width, []string{"--min-width", "--container"})
	ds.sizeUtility("max-w", []string{"max-width"}, append([]string{"none", "none", "prose", "65ch"}, width...), []string{"--max-width", "--container"})
	ds.sizeUtility("h", []string{"height"}, height, []string{"--height"})
	ds.sizeUtility("min-h", []string{"min-height"}, height, []string{"--min-height"})
	ds.sizeUtility("max-h", []string{"max-height"}, append([]string{"none", "none"}, height...), []string{"--max-height"})
}

func registerFlexGrid(ds *DesignSystem) {
	ds.static("flex-1", "flex", "1 1 0%")
	ds.static("flex-auto", "flex", "1 1 auto")
	ds.static("flex-initial", "flex", "0 1 auto")
	ds.static("flex-none", "flex", "none")
	ds.functional("flex", nil, func(c *Candidate) []*twcss.Node {
		if c.Value == nil || c.Value.Kind != ArbitraryValue {
			if c.Value != nil && isInteger(c.Value.Text) {
				return decls([]string{"flex"}, c.Value.Text)
			}
			return nil
		}
		return decls([]string{"flex"}, c.Value.Text)
	})
	ds.static("shrink", "flex-shrink", "1")
	ds.integerUtility("shrink", []string{"flex-shrink"}, nil, fixed("0"))
	ds.static("grow", "flex-grow", "1")
	ds.integerUtility("grow", []string{"flex-grow"}, nil, fixed("0"))
	ds.sizeUtility("basis", []string{"flex-basis"}, []string{"auto", "auto", "full", "100%"}, []string{"--container"})

	ds.static("table-auto", "table-layout", "auto")
	ds.static("table-fixed", "table-layout", "fixed")
	ds.static("border-collapse", "border-collapse", "collapse")
	ds.static("border-separate", "border-collapse", "separate")

	ds.staticGroup("flex", "flex-direction", "row", "row", "row-reverse", "row-reverse", "col", "column", "col-reverse", "column-reverse")
	ds.staticGroup("flex", "flex-wrap", "wrap", "wrap", "wrap-reverse", "wrap-reverse", "nowrap", "nowrap")

	grid := func(root, prop string) {
		ds.static(root+"-none", prop, "none")
		ds.static(root+"-subgrid", prop, "subgrid")
		ds.functional(root, integerValues(1, 12), func(c *Candidate) []*twcss.Node {
			v := c.Value
			switch {
			case v == nil:
				return nil
			case v.Kind == ArbitraryValue:
				return decls([]string{prop}, v.Text)
			case isPositiveInteger(v.Text):
				return decls([]string{prop}, "repeat("+v.Text+", minmax(0, 1fr))")
			}
			val, ok := ds.themeValue(v, "--"+prop)
			if !ok {
				return nil
			}
			return decls([]string{prop}, val)
		})
	}
	grid("grid-cols", "grid-template-columns")
	grid("grid-rows", "grid-template-rows")
	line := func(root, prop string) {
		ds.static(root+"-auto", prop, "auto")
		ds.static(root+"-span-full", prop, "1 / -1")
		ds.functional(root+"-span", integerValues(1, 12), func(c *Candidate) []*twcss.Node {
			v := c.Value
			if v == nil || (v.Kind == NamedValue && !isPositiveInteger(v.Text)) {
				return nil
			}
			return decls([]string{prop}, "span "+v.Text+" / span "+v.Text)
		})
		ds.static(root+"-start-auto", prop+"-start", "auto")
		ds.integerUtility(root+"-start", []string{prop + "-start"}, nil, integerValues(1, 13), withNegative)
		ds.static(root+"-end-auto", prop+"-end", "auto")
		ds.integerUtility(root+"-end", []string{prop + "-end"}, nil, integerValues(1, 13), withNegative)
	}
	line("col", "grid-column")
	line("row", "grid-row")
	ds.staticGroup("grid-flow", "grid-auto-flow", "row", "row", "col", "column", "dense", "dense", "row-dense", "row dense", "col-dense", "column dense")
	ds.staticGroup("auto-cols", "grid-auto-columns", "auto", "auto", "min", "min-content", "max", "max-content", "fr", "minmax(0, 1fr)")
	ds.staticGroup("auto-rows", "grid-auto-rows", "auto", "auto", "min", "min-content", "max", "max-content", "fr", "minmax(0, 1fr)")

	ds.spacingUtility("gap", []string{"gap"}, nil)
	ds.spacingUtility("gap-x", []string{"column-gap"}, nil)
	ds.spacingUtility("gap-y", []string{"row-gap"}, nil)

	flexStart, flexEnd := "flex-start", "flex-end"
	ds.staticGroup("justify", "justify-content", "normal", "normal", "start", flexStart, "end", flexEnd, "center", "center",
		"between", "space-between", "around", "space-around", "evenly", "space-evenly", "stretch", "stretch")
	ds.staticGroup("justify-items", "justify-items", "start", "start", "end", "end", "center", "center", "stretch", "stretch", "normal", "normal")
	ds.staticGroup("justify-self", "justify-self", "auto", "auto", "start", "start", "end", "end", "center", "center", "stretch", "stretch")
	ds.staticGroup("content", "align-content", "normal", "normal", "center", "center", "start", flexStart, "end", flexEnd,
		"between", "space-between", "around", "space-around", "evenly", "space-evenly", "baseline", "baseline", "stretch", "stretch")
	ds.staticGroup("items", "align-items", "start", flexStart, "end", flexEnd, "center", "center", "baseline", "baseline", "stretch", "stretch")
	ds.staticGroup("self", "align-self", "auto", "auto", "start", flexStart, "end", flexEnd, "center", "center", "stretch", "stretch", "baseline", "baseline")
	ds.staticGroup("place-content", "place-content", "center", "center", "start", "start", "end", "end", "between", "space-between",
		"around", "space-around", "evenly", "space-evenly", "baseline", "baseline", "stretch", "stretch")
	ds.staticGroup("place-items", "place-items", "start", "start", "end", "end", "center", "center", "baseline", "baseline", "stretch", "stretch")
	ds.staticGroup("place-self", "place-self", "auto", "auto", "start", "start", "end", "end", "center", "center", "stretch", "stretch")
}

func registerTypography(ds *DesignSystem) {
	legacy := ds.opts.Legacy

	ds.functional("font", func() []string {
		var ret []string
		for _, n := range ds.Theme.Namespace("--font") {
			if !strings.HasPrefix(n, "weight-") {
				ret = append(ret, n)
			}
		}
		return ret
	}, func(c *Candidate) []*twcss.Node {
		v := c.Value
		if v == nil {
			return nil
		}
		if v.Kind == ArbitraryValue {
			if v.DataType == "number" || (v.DataType == "" && InferType(v.Text) == "number") {
				return nil
			}
			return decls([]string{"font-family"}, v.Text)
		}
		if strings.HasPrefix(v.Text, "weight-") {
			return nil
		}
		key, ok := ds.Theme.Resolve(v.Text, "--font")
		if !ok {
			return nil
		}
		return decls([]string{"font-family"}, ds.themeRef(key, false))
	})
	ds.AddProperty(Property{Name: "--tw-font-weight"})
	ds.functional("font", func() []string { return ds.Theme.Namespace("--font-weight") }, func(c *Candidate) []*twcss.Node {
		v := c.Value
		if v == nil {
			return nil
		}
		var w string
		if v.Kind == ArbitraryValue {
			if v.DataType != "number" && (v.DataType != "" || InferType(v.Text) != "number") {
				return nil
			}
			w = v.Text
		} else {
			key, ok := ds.Theme.Resolve(v.Text, "--font-weight")
			if !ok {
				return nil
			}
			w = ds.themeRef(key, false)
		}
		if legacy {
			return decls([]string{"font-weight"}, w)
		}
		return pairs("--tw-font-weight", w, "font-weight", w)
	})

	ds.AddProperty(Property{Name: "--tw-leading"})
	ds.functional("text", func() []string { return ds.Theme.Namespace("--text") }, func(c *Candidate) []*twcss.Node {
		v := c.Value
		if v == nil {
			return nil
		}
		var size, lh string
		if v.Kind == ArbitraryValue {
			if !typeIs(v, "length", "percentage", "absolute-size", "relative-size") {
				return nil
			}
			size = v.Text
		} else {
			key, ok := ds.Theme.Resolve(v.Text, "--text")
			if !ok || v.Text == "DEFAULT" {
				return nil
			}
			size = ds.themeRef(key, false)
			if ds.Theme.Has(key + "--line-height") {
				lh = ds.themeRef(key+"--line-height", false)
				if !legacy {
					lh = "var(--tw-leading, " + lh + ")"
				}
			}
		}
		if c.Modifier != nil {
			m, ok := ds.leading(c.Modifier)
			if !ok {
				return nil
			}
			lh = m
		}
		nodes := []*twcss.Node{twcss.NewDecl("font-size", size)}
		if lh != "" {
			nodes = append(nodes, twcss.NewDecl("line-height", lh))
		}
		return nodes
	}, withModifiers(func(string) []string { return ds.spacingValues() }))
	ds.staticGroup("text", "text-align", "left", "left", "center", "center", "right", "right", "justify", "justify", "start", "start", "end", "end")
	ds.colorUtility("text", "--tw-text-opacity", "color")
	if legacy {
		ds.opacityUtility("text-opacity", "--tw-text-opacity")
	}

	ds.functional("leading", func() []string { return ds.Theme.Namespace("--leading") }, func(c *Candidate) []*twcss.Node {
		if c.Value == nil {
			return nil
		}
		v, ok := ds.leading(c.Value)
		if !ok {
			return nil
		}
		if legacy {
			return decls([]string{"line-height"}, v)
		}
		return pairs("--tw-leading", v, "line-height", v)
	})
	if !legacy {
		ds.static("leading-none", "--tw-leading", "1", "line-height", "1")
	}
	ds.AddProperty(Property{Name: "--tw-tracking"})
	ds.functional("tracking", func() []string { return ds.Theme.Namespace("--tracking") }, func(c *Candidate) []*twcss.Node {
		v, ok := ds.themeValue(c.Value, "--tracking")
		if !ok || c.Value == nil {
			return nil
		}
		if c.Negative {
			v = negate(v)
		}
		if legacy {
			return decls([]string{"letter-spacing"}, v)
		}
		return pairs("--tw-tracking", v, "letter-spacing", v)
	}, withNegative)

	ds.static("italic", "font-style", "italic")
	ds.static("not-italic", "font-style", "normal")
	ds.static("underline", "text-decoration-line", "underline")
	ds.static("overline", "text-decoration-line", "overline")
	ds.static("line-through", "text-decoration-line", "line-through")
	ds.static("no-underline", "text-decoration-line", "none")
	ds.static("uppercase", "text-transform", "uppercase")
	ds.static("lowercase", "text-transform", "lowercase")
	ds.static("capitalize", "text-transform", "capitalize")
	ds.static("normal-case", "text-transform", "none")
	ds.static("truncate", "overflow", "hidden", "text-overflow", "ellipsis", "white-space", "nowrap")
	ds.static("text-ellipsis", "text-overflow", "ellipsis")
	ds.static("text-clip", "text-overflow", "clip")
	ds.staticGroup("text", "text-wrap", "wrap", "wrap", "nowrap", "nowrap", "balance", "balance", "pretty", "pretty")
	ds.staticGroup("whitespace", "white-space", "normal", "normal", "nowrap", "nowrap", "pre", "pre", "pre-line", "pre-line",
		"pre-wrap", "pre-wrap", "break-spaces", "break-spaces")
	ds.static("break-normal", "overflow-wrap", "normal", "word-break", "normal")
	ds.static("break-words", "overflow-wrap", "break-word")
	ds.static("break-all", "word-break", "break-all")
	ds.static("break-keep", "word-break", "keep-all")
	ds.static("antialiased", "-webkit-font-smoothing", "antialiased", "-moz-osx-font-smoothing", "grayscale")
	ds.static("subpixel-antialiased", "-webkit-font-smoothing", "auto", "-moz-osx-font-smoothing", "auto")
	ds.staticGroup("list", "list-style-type", "none", "none", "disc", "disc", "decimal", "decimal")
	ds.staticGroup("list", "list-style-position", "inside", "inside", "outside", "outside")
	ds.staticGroup("align", "vertical-align", "baseline", "baseline", "top", "top", "middle", "middle", "bottom", "bottom",
		"text-top", "text-top", "text-bottom", "text-bottom", "sub", "sub", "super", "super")
	ds.spacingUtility("indent", []string{"text-indent"}, nil, withNegative)

	ds.staticGroup("decoration", "text-decoration-style", "solid", "solid", "double", "double", "dotted", "dotted", "dashed", "dashed", "wavy", "wavy")
	ds.static("decoration-auto", "text-decoration-thickness", "auto")
	ds.static("decoration-from-font", "text-decoration-thickness", "from-font")
	ds.integerUtility("decoration", []string{"text-decoration-thickness"}, suffix("px"), fixed("0", "1", "2", "4", "8"))
	ds.colorUtility("decoration", "", "text-decoration-color")
	ds.static("underline-offset-auto", "text-underline-offset", "auto")
	ds.integerUtility("underline-offset", []string{"text-underline-offset"}, suffix("px"), fixed("0", "1", "2", "4", "8"), withNegative)
}

// leading resolves a line height: --leading tokens, then the spacing scale.
func (ds *DesignSystem) leading(v *Value) (string, bool) {
	if v.Kind == ArbitraryValue {
		return v.Text, true
	}
	if key, ok := ds.Theme.Resolve(v.Text, "--leading"); ok {
		return ds.themeRef(key, false), true
	}
	return ds.spacing(v, false)
}

func (ds *DesignSystem) opacityUtility(root, variable string) {
	ds.functional(root, fixed(opacitySteps...), func(c *Candidate) []*twcss.Node {
		v, ok := ds.opacity(c.Value)
		if !ok {
			return nil
		}
		if strings.HasSuffix(v, "%") {
			f, _ := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
			v = formatFloat(f / 100)
		}
		return decls([]string{variable}, v)
	})
}

var gradientDirections = []string{"t", "to top", "tr", "to top right", "r", "to right", "br", "to bottom right",
	"b", "to bottom", "bl", "to bottom left", "l", "to left", "tl", "to top left"}

func registerBackgrounds(ds *DesignSystem) {
	legacy := ds.opts.Legacy
	ds.staticGroup("bg", "background-attachment", "fixed", "fixed", "local", "local", "scroll", "scroll")
	ds.staticGroup("bg-clip", "background-clip", "border", "border-box", "padding", "padding-box", "content", "content-box", "text", "text")
	ds.staticGroup("bg", "background-repeat", "repeat", "repeat", "no-repeat", "no-repeat", "repeat-x", "repeat-x", "repeat-y", "repeat-y")
	ds.staticGroup("bg", "background-size", "auto", "auto", "cover", "cover", "contain", "contain")
	ds.staticGroup("bg", "background-position", "bottom", "bottom", "center", "center", "left", "left", "right", "right", "top", "top")
	ds.static("bg-none", "background-image", "none")

	ds.functional("bg", nil, func(c *Candidate) []*twcss.Node {
		v := c.Value
		if v == nil || v.Kind != ArbitraryValue || !typeIs(v, "url", "image") {
			return nil
		}
		return decls([]string{"background-image"}, v.Text)
	})
	ds.colorUtility("bg", "--tw-bg-opacity", "background-color")
	if legacy {
		ds.opacityUtility("bg-opacity", "--tw-bg-opacity")
	}

	for i := 0; i+1 < len(gradientDirections); i += 2 {
		dir := gradientDirections[i+1]
		if legacy {
			ds.static("bg-gradient-to-"+gradientDirections[i], "background-image", "linear-gradient("+dir+", var(--tw-gradient-stops))")
			continue
		}
		ds.static("bg-linear-to-"+gradientDirections[i], "--tw-gradient-position", dir+" in oklab", "background-image", "linear-gradient(var(--tw-gradient-stops))")
		ds.static("bg-gradient-to-"+gradientDirections[i], "--tw-gradient-position", dir+" in oklab", "background-image", "linear-gradient(var(--tw-gradient-stops))")
	}
	if !legacy {
		for _, p := range []Property{
			{Name: "--tw-gradient-position"},
			{Name: "--tw-gradient-from", Syntax: `"<color>"`, Initial: "#0000"},
			{Name: "--tw-gradient-via", Syntax: `"<color>"`, Initial: "#0000"},
			{Name: "--tw-gradient-to", Syntax: `"<color>"`, Initial: "#0000"},
			{Name: "--tw-gradient-stops"},
			{Name: "--tw-gradient-via-stops"},
			{Name: "--tw-gradient-from-position", Syntax: `"<length-percentage>"`, Initial: "0%"},
			{Name: "--tw-gradient-via-position", Syntax: `"<length-percentage>"`, Initial: "50%"},
			{Name: "--tw-gradient-to-position", Syntax: `"<length-percentage>"`, Initial: "100%"},
		} {
			ds.AddProperty(p)
		}
	}
	const stops = "var(--tw-gradient-via-stops, var(--tw-gradient-position), var(--tw-gradient-from) var(--tw-gradient-from-position), var(--tw-gradient-to) var(--tw-gradient-to-position))"
	const viaStops = "var(--tw-gradient-position), var(--tw-gradient-from) var(--tw-gradient-from-position), var(--tw-gradient-via) var(--tw-gradient-via-position), var(--tw-gradient-to) var(--tw-gradient-to-position)"
	for _, stop := range []string{"from", "via", "to"} {
		stop := stop
		ds.functional(stop, fixed("0%", "5%", "10%", "25%", "50%", "75%", "90%", "100%"), func(c *Candidate) []*twcss.Node {
			v := c.Value
			if v == nil {
				return nil
			}
			if (v.Kind == NamedValue && strings.HasSuffix(v.Text, "%") && isNumber(strings.TrimSuffix(v.Text, "%"))) ||
				(v.Kind == ArbitraryValue && typeIs(v, "length", "percentage")) {
				return decls([]string{"--tw-gradient-" + stop + "-position"}, v.Text)
			}
			return nil
		})
		ds.functional(stop, ds.colorValues, func(c *Candidate) []*twcss.Node {
			col, ok := ds.colorWithAlpha(c)
			if !ok {
				return nil
			}
			if legacy {
				faded := "rgb(255 255 255 / 0)"
				if rgb, ok := parseColor(col); ok {
					faded = "rgb(" + rgb.channels() + " / 0)"
				}
				switch stop {
				case "from":
					return pairs("--tw-gradient-from", col+" var(--tw-gradient-from-position)",
						"--tw-gradient-to", faded+" var(--tw-gradient-to-position)",
						"--tw-gradient-stops", "var(--tw-gradient-from), var(--tw-gradient-to)")
				case "via":
					return pairs("--tw-gradient-to", faded+" var(--tw-gradient-to-position)",
						"--tw-gradient-stops", "var(--tw-gradient-from), "+col+" var(--tw-gradient-via-position), var(--tw-gradient-to)")
				}
				return pairs("--tw-gradient-to", col+" var(--tw-gradient-to-position)")
			}
			if stop == "via" {
				return pairs("--tw-gradient-via", col, "--tw-gradient-via-stops", viaStops, "--tw-gradient-stops", "var(--tw-gradient-via-stops)")
			}
			return pairs("--tw-gradient-"+stop, col, "--tw-gradient-stops", stops)
		}, withModifiers(colorModifiers))
	}

	ds.staticGroup("mix-blend", "mix-blend-mode", "normal", "normal", "multiply", "multiply", "screen", "screen", "overlay", "overlay",
		"darken", "darken", "lighten", "lighten", "difference", "difference", "exclusion", "exclusion", "plus-lighter", "plus-lighter")
	ds.staticGroup("bg-blend", "background-blend-mode", "normal", "normal", "multiply", "multiply", "screen", "screen", "overlay", "overlay")

	ds.static("fill-none", "fill", "none")
	ds.colorUtility("fill", "", "fill")
	ds.static("stroke-none", "stroke", "none")
	ds.integerUtility("stroke", []string{"stroke-width"}, nil, fixed("0", "1", "2"))
	ds.colorUtility("stroke", "", "stroke")
}

// colorWithAlpha resolves the candidate color with its opacity modifier.
func (ds *DesignSystem) colorWithAlpha(c *Candidate) (string, bool) {
	col, ok := ds.color(c.Value)
	if !ok {
		return "", false
	}
	if c.Modifier == nil {
		return col, true
	}
	a, ok := ds.alpha(c.Modifier)
	if !ok {
		return "", false
	}
	return WithAlpha(col, a, ds.opts.Legacy), true
}

func registerBorders(ds *DesignSystem) {
	legacy := ds.opts.Legacy

	radiusSides := []struct {
		name  string
		props []string
	}{
		{"", []string{"border-radius"}},
		{"s", []string{"border-start-start-radius", "border-end-start-radius"}},
		{"e", []string{"border-start-end-radius", "border-end-end-radius"}},
		{"t", []string{"border-top-left-radius", "border-top-right-radius"}},
		{"r", []string{"border-top-right-radius", "border-bottom-right-radius"}},
		{"b", []string{"border-bottom-right-radius", "border-bottom-left-radius"}},
		{"l", []string{"border-top-left-radius", "border-bottom-left-radius"}},
		{"ss", []string{"border-start-start-radius"}},
		{"se", []string{"border-start-end-radius"}},
		{"ee", []string{"border-end-end-radius"}},
		{"es", []string{"border-end-start-radius"}},
		{"tl", []string{"border-top-left-radius"}},
		{"tr", []string{"border-top-right-radius"}},
		{"br", []string{"border-bottom-right-radius"}},
		{"bl", []string{"border-bottom-left-radius"}},
	}
	full := "calc(infinity * 1px)"
	if legacy {
		full = "9999px"
	}
	for _, side := range radiusSides {
		root := "rounded"
		if side.name != "" {
			root += "-" + side.name
		}
		props := side.props
		ds.functional(root, func() []string {
			return append([]string{"DEFAULT", "none", "full"}, ds.Theme.Namespace("--radius")...)
		}, func(c *Candidate) []*twcss.Node {
			v := c.Value
			if v != nil && v.Kind == NamedValue {
				switch v.Text {
				case "none":
					return decls(props, "0")
				case "full":
					if !ds.Theme.Has("--radius-full") {
						return decls(props, full)
					}
				}
			}
			if v == nil && !ds.Theme.Has("--radius") {
				return decls(props, "0.25rem")
			}
			val, ok := ds.themeValue(v, "--radius")
			if !ok {
				return nil
			}
			return decls(props, val)
		})
	}

	borderSides := []struct {
		name string
		side []string
	}{
		{"", []string{"border"}},
		{"x", []string{"border-inline"}},
		{"y", []string{"border-block"}},
		{"s", []string{"border-inline-start"}},
		{"e", []string{"border-inline-end"}},
		{"t", []string{"border-top"}},
		{"r", []string{"border-right"}},
		{"b", []string{"border-bottom"}},
		{"l", []string{"border-left"}},
	}
	if legacy {
		borderSides[1].side = []string{"border-left", "border-right"}
		borderSides[2].side = []string{"border-top", "border-bottom"}
	}
	for _, bs := range borderSides {
		root := "border"
		if bs.name != "" {
			root += "-" + bs.name
		}
		widthProps := make([]string, len(bs.side))
		colorProps := make([]string, len(bs.side))
		for i, s := range bs.side {
			widthProps[i] = s + "-width"
			colorProps[i] = s + "-color"
		}
		ds.functional(root, fixed("DEFAULT", "0", "2", "4", "8"), func(c *Candidate) []*twcss.Node {
			w, ok := ds.borderWidth(c.Value)
			if !ok {
				return nil
			}
			return decls(widthProps, w)
		})
		ds.colorUtility(root, "--tw-border-opacity", colorProps...)
	}
	if legacy {
		ds.opacityUtility("border-opacity", "--tw-border-opacity")
	}
	ds.staticGroup("border", "border-style", "solid", "solid", "dashed", "dashed", "dotted", "dotted", "double", "double", "hidden", "hidden", "none", "none")

	for _, axis := range []string{"x", "y"} {
		reverse := "--tw-divide-" + axis + "-reverse"
		start, end := "border-inline-start-width", "border-inline-end-width"
		if axis == "y" {
			start, end = "border-top-width", "border-bottom-width"
		}
		if legacy {
			start, end = "border-right-width", "border-left-width"
			if axis == "y" {
				start, end = "border-bottom-width", "border-top-width"
			}
		}
		ds.AddProperty(Property{Name: reverse, Initial: "0"})
		ds.functional("divide-"+axis, fixed("DEFAULT", "0", "2", "4", "8"), func(c *Candidate) []*twcss.Node {
			w, ok := ds.borderWidth(c.Value)
			if !ok {
				return nil
			}
			return []*twcss.Node{twcss.NewRule(ds.childSelector(),
				twcss.NewDecl(reverse, "0"),
				twcss.NewDecl(start, "calc("+w+" * var("+reverse+"))"),
				twcss.NewDecl(end, "calc("+w+" * calc(1 - var("+reverse+")))"),
			)}
		})
		ds.AddUtility(&Utility{Root: "divide-" + axis + "-reverse", Kind: StaticUtility, Compile: func(*Candidate) []*twcss.Node {
			return []*twcss.Node{twcss.NewRule(ds.childSelector(), twcss.NewDecl(reverse, "1"))}
		}})
	}
	ds.functional("divide", ds.colorValues, func(c *Candidate) []*twcss.Node {
		body := ds.colorDecls(c, "--tw-divide-opacity", "border-color")
		if body == nil {
			return nil
		}
		return []*twcss.Node{twcss.NewRule(ds.childSelector(), body...)}
	}, withModifiers(colorModifiers))

	if legacy {
		ds.static("outline-none", "outline", "2px solid transparent", "outline-offset", "2px")
		ds.static("outline", "outline-style", "solid")
	} else {
		ds.AddProperty(Property{Name: "--tw-outline-style", Initial: "solid"})
		ds.static("outline-hidden", "outline", "2px solid transparent", "outline-offset", "2px")
		ds.static("outline-none", "--tw-outline-style", "none", "outline-style", "none")
	}
	ds.staticGroup("outline", "outline-style", "dashed", "dashed", "dotted", "dotted", "double", "double")
	ds.functional("outline", fixed("DEFAULT", "0", "1", "2", "4", "8"), func(c *Candidate) []*twcss.Node {
		if c.Value == nil {
			if legacy {
				return nil
			}
			return pairs("outline-style", "var(--tw-outline-style)", "outline-width", "1px")
		}
		w, ok := ds.borderWidth(c.Value)
		if !ok {
			return nil
		}
		return decls([]string{"outline-width"}, w)
	})
	ds.colorUtility("outline", "", "outline-color")
	ds.integerUtility("outline-offset", []string{"outline-offset"}, suffix("px"), fixed("0", "1", "2", "4", "8"), withNegative)

	ds.registerRing()
}

// borderWidth resolves border, divide and outline widths: 1px for the
// bare utility, Npx for integers.
func (ds *DesignSystem) borderWidth(v *Value) (string, bool) {
	if v == nil {
		if t, ok := ds.Theme.Get("--border-width"); ok {
			return t, true
		}
		return "1px", true
	}
	if v.Kind == ArbitraryValue {
		if !typeIs(v, "length", "line-width", "") {
			return "", false
		}
		return v.Text, true
	}
	if t, ok := ds.Theme.Get("--border-width-" + v.Text); ok {
		return t, true
	}
	if isInteger(v.Text) && !strings.HasPrefix(v.Text, "-") {
		return v.Text + "px", true
	}
	return "", false
}

func (ds *DesignSystem) registerRing() {
	legacy := ds.opts.Legacy
	if legacy {
		ds.functional("ring", fixed("DEFAULT", "0", "1", "2", "4", "8"), func(c *Candidate) []*twcss.Node {
			w := "3px"
			if c.Value != nil {
				var ok bool
				if w, ok = ds.borderWidth(c.Value); !ok {
					return nil
				}
			}
			return pairs(
				"--tw-ring-offset-shadow", "var(--tw-ring-inset) 0 0 0 var(--tw-ring-offset-width) var(--tw-ring-offset-color)",
				"--tw-ring-shadow", "var(--tw-ring-inset) 0 0 0 calc("+w+" + var(--tw-ring-offset-width)) var(--tw-ring-color)",
				"box-shadow", "var(--tw-ring-offset-shadow), var(--tw-ring-shadow), var(--tw-shadow, 0 0 #0000)",
			)
		})
		ds.colorUtility("ring", "--tw-ring-opacity", "--tw-ring-color")
		ds.opacityUtility("ring-opacity", "--tw-ring-opacity")
	} else {
		for _, name := range []string{"--tw-shadow", "--tw-inset-shadow", "--tw-inset-ring-shadow", "--tw-ring-offset-shadow", "--tw-ring-shadow"} {
			ds.AddProperty(Property{Name: name, Initial: "0 0 #0000"})
		}
		ds.AddProperty(Property{Name: "--tw-ring-inset"})
		ds.AddProperty(Property{Name: "--tw-ring-offset-width", Syntax: `"<length>"`, Initial: "0px"})
		ds.AddProperty(Property{Name: "--tw-ring-offset-color", Initial: "#fff"})
		ds.AddProperty(Property{Name: "--tw-ring-color"})
		ds.AddProperty(Property{Name: "--tw-shadow-color"})
		ds.functional("ring", fixed("DEFAULT", "0", "1", "2", "4", "8"), func(c *Candidate) []*twcss.Node {
			w, ok := ds.borderWidth(c.Value)
			if !ok {
				return nil
			}
			return pairs(
				"--tw-ring-shadow", "var(--tw-ring-inset,) 0 0 0 calc("+w+" + var(--tw-ring-offset-width)) var(--tw-ring-color, currentcolor)",
				"box-shadow", shadowStack,
			)
		})
		ds.colorUtility("ring", "", "--tw-ring-color")
	}
	ds.static("ring-inset", "--tw-ring-inset", "inset")
	ds.functional("ring-offset", fixed("0", "1", "2", "4", "8"), func(c *Candidate) []*twcss.Node {
		if c.Value == nil {
			return nil
		}
		w, ok := ds.borderWidth(c.Value)
		if !ok {
			return nil
		}
		if legacy {
			return decls([]string{"--tw-ring-offset-width"}, w)
		}
		return pairs("--tw-ring-offset-width", w,
			"--tw-ring-offset-shadow", "var(--tw-ring-inset,) 0 0 0 var(--tw-ring-offset-width) var(--tw-ring-offset-color)")
	})
	ds.colorUtility("ring-offset", "", "--tw-ring-offset-color")
}

const shadowStack = "var(--tw-inset-shadow), var(--tw-inset-ring-shadow), var(--tw-ring-offset-shadow), var(--tw-ring-shadow), var(--tw-shadow)"

// colorizeShadow wraps every color of a shadow in fn, so a shadow color
// utility can replace it.
func colorizeShadow(v string, fn func(color string) string) string {
	var b strings.Builder
	for i := 0; i < len(v); {
		rest := v[i:]
		start := -1
		for _, p := range []string{"rgb(", "rgba(", "hsl(", "oklch(", "#"} {
			if strings.HasPrefix(rest, p) {
				start = i
				break
			}
		}
		if start < 0 {
			b.WriteByte(v[i])
			i++
			continue
		}
		end := i
		if v[i] == '#' {
			end = i + 1
			for end < len(v) && isHexDigit(v[end]) {
				end++
			}
		} else {
			depth := 0
			for end < len(v) {
				if v[end] == '(' {
					depth++
				} else if v[end] == ')' {
					depth--
					if depth == 0 {
						end++
						break
					}
				}
				end++
			}
		}
		b.WriteString(fn(v[i:end]))
		i = end
	}
	return b.String()
}

func registerEffects(ds *DesignSystem) {
	legacy := ds.opts.Legacy

	ds.static("shadow-none", "--tw-shadow", "0 0 #0000", "box-shadow", ds.shadowBox())
	ds.functional("shadow", func() []string { return ds.Theme.Namespace("--shadow") }, func(c *Candidate) []*twcss.Node {
		v := c.Value
		var raw string
		switch {
		case v != nil && v.Kind == ArbitraryValue:
			if typeIs(v, "color") {
				return nil
			}
			raw = v.Text
		case v == nil:
			key, ok := ds.Theme.Resolve("", "--shadow")
			if !ok {
				if key, ok = ds.Theme.Resolve("sm", "--shadow"); !ok {
					return nil
				}
			}
			raw = ds.themeRef(key, true)
		default:
			key, ok := ds.Theme.Resolve(v.Text, "--shadow")
			if !ok {
				return nil
			}
			raw = ds.themeRef(key, true)
		}
		if legacy {
			return pairs("--tw-shadow", raw,
				"--tw-shadow-colored", colorizeShadow(raw, func(string) string { return "var(--tw-shadow-color)" }),
				"box-shadow", ds.shadowBox())
		}
		return pairs("--tw-shadow", colorizeShadow(raw, func(col string) string { return "var(--tw-shadow-color, " + col + ")" }),
			"box-shadow", ds.shadowBox())
	})
	ds.functional("shadow", ds.colorValues, func(c *Candidate) []*twcss.Node {
		col, ok := ds.colorWithAlpha(c)
		if !ok {
			return nil
		}
		if legacy {
			return pairs("--tw-shadow-color", col, "--tw-shadow", "var(--tw-shadow-colored)")
		}
		return pairs("--tw-shadow-color", col)
	}, withModifiers(colorModifiers))

	ds.functional("opacity", fixed(opacitySteps...), func(c *Candidate) []*twcss.Node {
		v, ok := ds.opacity(c.Value)
		if !ok {
			return nil
		}
		return decls([]string{"opacity"}, v)
	})

	filters := "var(--tw-blur,) var(--tw-brightness,) var(--tw-contrast,) var(--tw-grayscale,) var(--tw-hue-rotate,) var(--tw-invert,) var(--tw-saturate,) var(--tw-sepia,) var(--tw-drop-shadow,)"
	backdrop := "var(--tw-backdrop-blur,) var(--tw-backdrop-brightness,) var(--tw-backdrop-contrast,) var(--tw-backdrop-grayscale,) var(--tw-backdrop-hue-rotate,) var(--tw-backdrop-invert,) var(--tw-backdrop-opacity,) var(--tw-backdrop-saturate,) var(--tw-backdrop-sepia,)"
	if legacy {
		filters = strings.ReplaceAll(filters, ",)", ")")
		backdrop = strings.ReplaceAll(backdrop, ",)", ")")
	}
	for _, name := range []string{"blur", "brightness", "contrast", "grayscale", "hue-rotate", "invert", "saturate", "sepia", "drop-shadow"} {
		ds.AddProperty(Property{Name: "--tw-" + name})
		ds.AddProperty(Property{Name: "--tw-backdrop-" + name})
	}
	filter := func(prefix, prop, stack string) {
		vname := func(n string) string { return "--tw-" + strings.TrimPrefix(prefix+n, "-") }
		ds.static(strings.TrimPrefix(prefix+"filter-none", "-"), prop, "none")
		ds.functional(strings.TrimPrefix(prefix+"blur", "-"), func() []string {
			return append([]string{"none"}, ds.Theme.Namespace("--blur")...)
		}, func(c *Candidate) []*twcss.Node {
			var v string
			if c.Value != nil && c.Value.Kind == NamedValue && c.Value.Text == "none" {
				v = "0"
			} else {
				var ok bool
				if c.Value == nil && !ds.Theme.Has("--blur") {
					v = "8px"
				} else if v, ok = ds.themeValue(c.Value, "--blur"); !ok {
					return nil
				}
			}
			return pairs(vname("blur"), "blur("+v+")", prop, stack)
		})
		amount := func(name, fn string, defaultValue string, values []string, percent bool) {
			ds.functional(strings.TrimPrefix(prefix+name, "-"), fixed(values...), func(c *Candidate) []*twcss.Node {
				var v string
				switch {
				case c.Value == nil && defaultValue != "":
					v = defaultValue
				case c.Value == nil:
					return nil
				case c.Value.Kind == ArbitraryValue:
					v = c.Value.Text
				case !isNumber(c.Value.Text):
					return nil
				case percent:
					v = c.Value.Text + "%"
					if legacy {
						f, _ := strconv.ParseFloat(c.Value.Text, 64)
						v = formatFloat(f / 100)
					}
				default:
					v = c.Value.Text + "deg"
				}
				if c.Negative {
					v = negate(v)
				}
				return pairs(vname(name), fn+"("+v+")", prop, stack)
			}, func(u *Utility) { u.Negative = name == "hue-rotate" })
		}
		amount("brightness", "brightness", "", []string{"0", "50", "75", "90", "95", "100", "105", "110", "125", "150", "200"}, true)
		amount("contrast", "contrast", "", []string{"0", "50", "75", "100", "125", "150", "200"}, true)
		amount("grayscale", "grayscale", "100%", []string{"DEFAULT", "0"}, true)
		amount("hue-rotate", "hue-rotate", "", []string{"0", "15", "30", "60", "90", "180"}, false)
		amount("invert", "invert", "100%", []string{"DEFAULT", "0"}, true)
		amount("saturate", "saturate", "", []string{"0", "50", "100", "150", "200"}, true)
		amount("sepia", "sepia", "100%", []string{"DEFAULT", "0"}, true)
	}
	filter("", "filter", filters)
	filter("backdrop-", "backdrop-filter", backdrop)

	ds.functional("drop-shadow", func() []string { return ds.Theme.Namespace("--drop-shadow") }, func(c *Candidate) []*twcss.Node {
		v, ok := ds.themeValue(c.Value, "--drop-shadow")
		if !ok {
			return nil
		}
		if c.Value != nil && c.Value.Kind == NamedValue && c.Value.Text == "none" {
			return pairs("--tw-drop-shadow", " ", "filter", filters)
		}
		var parts []string
		raw := v
		if c.Value == nil || c.Value.Kind == NamedValue {
			key, _ := ds.Theme.Resolve(textOf(c.Value), "--drop-shadow")
			raw = ds.themeRef(key, true)
		}
		for _, p := range twcss.SplitList(raw) {
			parts = append(parts, "drop-shadow("+p+")")
		}
		return pairs("--tw-drop-shadow", strings.Join(parts, " "), "filter", filters)
	})
}

func textOf(v *Value) string {
	if v == nil {
		return ""
	}
	return v.Text
}

func (ds *DesignSystem) shadowBox() string {
	if ds.opts.Legacy {
		return "var(--tw-ring-offset-shadow, 0 0 #0000), var(--tw-ring-shadow, 0 0 #0000), var(--tw-shadow)"
	}
	return shadowStack
}

const legacyTransform = "translate(var(--tw-translate-x), var(--tw-translate-y)) rotate(var(--tw-rotate)) skewX(var(--tw-skew-x)) skewY(var(--tw-skew-y)) scaleX(var(--tw-scale-x)) scaleY(var(--tw-scale-y))"

func registerTransforms(ds *DesignSystem) {
	legacy := ds.opts.Legacy
	for _, n := range []string{"--tw-translate-x", "--tw-translate-y", "--tw-translate-z"} {
		ds.AddProperty(Property{Name: n, Initial: "0"})
	}
	for _, n := range []string{"--tw-scale-x", "--tw-scale-y", "--tw-scale-z"} {
		ds.AddProperty(Property{Name: n, Initial: "1"})
	}
	for _, n := range []string{"--tw-rotate-x", "--tw-rotate-y", "--tw-rotate-z", "--tw-skew-x", "--tw-skew-y"} {
		ds.AddProperty(Property{Name: n})
	}

	translate := func(root string, axes ...string) {
		values := concat(fixed("full"), ds.spacingValues, fixed(fractions...))
		ds.functional(root, values, func(c *Candidate) []*twcss.Node {
			v, ok := ds.translateValue(c)
			if !ok {
				return nil
			}
			var nodes []*twcss.Node
			for _, a := range axes {
				nodes = append(nodes, twcss.NewDecl("--tw-translate-"+a, v))
			}
			if legacy {
				return append(nodes, twcss.NewDecl("transform", legacyTransform))
			}
			return append(nodes, twcss.NewDecl("translate", "var(--tw-translate-x) var(--tw-translate-y)"))
		}, withNegative, withFraction)
	}
	if !legacy {
		translate("translate", "x", "y")
	}
	translate("translate-x", "x")
	translate("translate-y", "y")

	scaleValues := fixed("0", "50", "75", "90", "95", "100", "105", "110", "125", "150")
	scale := func(root string, axes ...string) {
		ds.functional(root, scaleValues, func(c *Candidate) []*twcss.Node {
			v := c.Value
			if v == nil {
				return nil
			}
			var out string
			switch {
			case v.Kind == ArbitraryValue:
				out = v.Text
			case !isInteger(v.Text):
				return nil
			case legacy:
				f, _ := strconv.ParseFloat(v.Text, 64)
				out = formatFloat(f / 100)
			default:
				out = v.Text + "%"
			}
			if c.Negative {
				out = negate(out)
			}
			var nodes []*twcss.Node
			for _, a := range axes {
				nodes = append(nodes, twcss.NewDecl("--tw-scale-"+a, out))
			}
			if legacy {
				return append(nodes, twcss.NewDecl("transform", legacyTransform))
			}
			return append(nodes, twcss.NewDecl("scale", "var(--tw-scale-x) var(--tw-scale-y)"))
		}, withNegative)
	}
	if legacy {
		scale("scale", "x", "y")
	} else {
		scale("scale", "x", "y", "z")
	}
	scale("scale-x", "x")
	scale("scale-y", "y")

	angle := func(c *Candidate) (string, bool) {
		v := c.Value
		if v == nil {
			return "", false
		}
		var out string
		switch {
		case v.Kind == ArbitraryValue:
			out = v.Text
		case isNumber(v.Text):
			out = v.Text + "deg"
		default:
			return "", false
		}
		if c.Negative {
			out = negate(out)
		}
		return out, true
	}
	ds.functional("rotate", fixed("0", "1", "2", "3", "6", "12", "45", "90", "180"), func(c *Candidate) []*twcss.Node {
		a, ok := angle(c)
		if !ok {
			return nil
		}
		if legacy {
			return pairs("--tw-rotate", a, "transform", legacyTransform)
		}
		return pairs("rotate", a)
	}, withNegative)
	for _, axis := range []string{"x", "y"} {
		axis := axis
		ds.functional("skew-"+axis, fixed("0", "1", "2", "3", "6", "12"), func(c *Candidate) []*twcss.Node {
			a, ok := angle(c)
			if !ok {
				return nil
			}
			if legacy {
				return pairs("--tw-skew-"+axis, a, "transform", legacyTransform)
			}
			return pairs("--tw-skew-"+axis, "skew"+strings.ToUpper(axis)+"("+a+")",
				"transform", "var(--tw-rotate-x,) var(--tw-rotate-y,) var(--tw-rotate-z,) var(--tw-skew-x,) var(--tw-skew-y,)")
		}, withNegative)
	}
	ds.static("transform-none", "transform", "none")
	if legacy {
		ds.static("transform", "transform", legacyTransform)
	}
	ds.staticGroup("origin", "transform-origin", "center", "center", "top", "top", "top-right", "top right", "right", "right",
		"bottom-right", "bottom right", "bottom", "bottom", "bottom-left", "bottom left", "left", "left", "top-left", "top left")
}

// translateValue resolves translate amounts: spacing, fractions, full, px.
func (ds *DesignSystem) translateValue(c *Candidate) (string, bool) {
	v := c.Value
	if v == nil {
		return "", false
	}
	var out string
	switch {
	case v.Kind == NamedValue && v.Text == "full":
		out = "100%"
	case v.Fraction != "":
		fr, ok := ds.fraction(v.Fraction)
		if !ok {
			return "", false
		}
		out = fr
	default:
		return ds.spacing(v, c.Negative)
	}
	if c.Negative {
		out = negate(out)
	}
	return out, true
}

func registerInteractivity(ds *DesignSystem) {
	legacy := ds.opts.Legacy

	transitionProps := []string{
		"", "color, background-color, border-color, outline-color, text-decoration-color, fill, stroke, --tw-gradient-from, --tw-gradient-via, --tw-gradient-to, opacity, box-shadow, transform, translate, scale, rotate, filter, -webkit-backdrop-filter, backdrop-filter",
		"all", "all",
		"colors", "color, background-color, border-color, outline-color, text-decoration-color, fill, stroke, --tw-gradient-from, --tw-gradient-via, --tw-gradient-to",
		"opacity", "opacity",
		"shadow", "box-shadow",
		"transform", "transform, translate, scale, rotate",
	}
	ease := "var(--tw-ease, var(--default-transition-timing-function))"
	duration := "var(--tw-duration, var(--default-transition-duration))"
	if legacy {
		transitionProps[1] = "color, background-color, border-color, text-decoration-color, fill, stroke, opacity, box-shadow, transform, filter, backdrop-filter"
		transitionProps[5] = "color, background-color, border-color, text-decoration-color, fill, stroke"
		transitionProps[11] = "transform"
		ease = "cubic-bezier(0.4, 0, 0.2, 1)"
		duration = "150ms"
	}
	ds.static("transition-none", "transition-property", "none")
	for i := 0; i+1 < len(transitionProps); i += 2 {
		name := "transition"
		if transitionProps[i] != "" {
			name += "-" + transitionProps[i]
		}
		ds.static(name, "transition-property", transitionProps[i+1], "transition-timing-function", ease, "transition-duration", duration)
	}
	ds.AddProperty(Property{Name: "--tw-duration"})
	ds.AddProperty(Property{Name: "--tw-ease"})
	timing := func(root, prop, variable, ns string, values []string) {
		ds.functional(root, fixed(values...), func(c *Candidate) []*twcss.Node {
			v := c.Value
			if v == nil {
				return nil
			}
			var out string
			switch {
			case v.Kind == ArbitraryValue:
				out = v.Text
			case ds.Theme.Has(ns + "-" + v.Text):
				out = ds.themeRef(ns+"-"+v.Text, false)
			case isInteger(v.Text):
				out = v.Text + "ms"
			default:
				return nil
			}
			if legacy || variable == "" {
				return decls([]string{prop}, out)
			}
			return pairs(variable, out, prop, out)
		})
	}
	msValues := []string{"0", "75", "100", "150", "200", "300", "500", "700", "1000"}
	timing("duration", "transition-duration", "--tw-duration", "--duration", msValues)
	timing("delay", "transition-delay", "", "--delay", msValues)

	if legacy {
		ds.static("ease-linear", "transition-timing-function", "linear")
	} else {
		ds.static("ease-linear", "--tw-ease", "linear", "transition-timing-function", "linear")
		ds.static("ease-initial", "--tw-ease", "initial", "transition-timing-function", "initial")
	}
	ds.functional("ease", func() []string { return ds.Theme.Namespace("--ease") }, func(c *Candidate) []*twcss.Node {
		if c.Value == nil {
			return nil
		}
		v, ok := ds.themeValue(c.Value, "--ease")
		if !ok {
			return nil
		}
		if legacy {
			return decls([]string{"transition-timing-function"}, v)
		}
		return pairs("--tw-ease", v, "transition-timing-function", v)
	})

	ds.static("animate-none", "animation", "none")
	ds.themeUtility("animate", []string{"animation"}, []string{"--animate"}, nil)

	ds.staticGroup("will-change", "will-change", "auto", "auto", "scroll", "scroll-position", "contents", "contents", "transform", "transform")
	if legacy {
		ds.static("content-none", "content", "none")
	} else {
		ds.static("content-none", "--tw-content", "none", "content", "none")
	}
	ds.functional("content", nil, func(c *Candidate) []*twcss.Node {
		if c.Value == nil || c.Value.Kind != ArbitraryValue {
			return nil
		}
		return pairs("--tw-content", c.Value.Text, "content", "var(--tw-content)")
	})

	ds.staticGroup("cursor", "cursor", "auto", "auto", "default", "default", "pointer", "pointer", "wait", "wait", "text", "text",
		"move", "move", "help", "help", "not-allowed", "not-allowed", "none", "none", "progress", "progress",
		"crosshair", "crosshair", "grab", "grab", "grabbing", "grabbing", "zoom-in", "zoom-in", "zoom-out", "zoom-out")
	ds.functional("cursor", nil, func(c *Candidate) []*twcss.Node {
		if c.Value == nil || c.Value.Kind != ArbitraryValue {
			return nil
		}
		return decls([]string{"cursor"}, c.Value.Text)
	})
	for _, s := range []string{"none", "text", "all", "auto"} {
		if legacy {
			ds.static("select-"+s, "user-select", s)
		} else {
			ds.static("select-"+s, "-webkit-user-select", s, "user-select", s)
		}
	}
	ds.static("resize", "resize", "both")
	ds.staticGroup("resize", "resize", "none", "none", "x", "horizontal", "y", "vertical")
	ds.staticGroup("appearance", "appearance", "none", "none", "auto", "auto")
	ds.staticGroup("scroll", "scroll-behavior", "auto", "auto", "smooth", "smooth")
	ds.staticGroup("touch", "touch-action", "auto", "auto", "none", "none", "pan-x", "pan-x", "pan-y", "pan-y", "manipulation", "manipulation")
	ds.colorUtility("accent", "", "accent-color")
	ds.colorUtility("caret", "", "caret-color")
	ds.spacingUtility("scroll-m", []string{"scroll-margin"}, nil, withNegative)
	ds.spacingUtility("scroll-p", []string{"scroll-padding"}, nil)
}
