package twdesign

import (
	"strings"
)

// ValueKind tells a named value (red-500) from an arbitrary one ([#f00]).
type ValueKind int

const (
	NamedValue ValueKind = iota
	ArbitraryValue
)

// Value is the value or modifier part of a candidate.
type Value struct {
	Kind ValueKind
	// Text is the named value, or the decoded arbitrary value with
	// underscores turned into spaces.
	Text string
	// DataType is the explicit type hint of an arbitrary value, "color" in
	// bg-[color:var(--brand)].
	DataType string
	// Fraction is set for named values followed by a numeric modifier, 1/2
	// in w-1/2.
	Fraction string
}

// Candidate is a parsed class name.
type Candidate struct {
	Raw       string
	Variants  []*VariantCandidate
	Important bool
	Negative  bool
	Root      string
	Value     *Value
	Modifier  *Value
	// Property and PropertyValue are set for arbitrary properties such as
	// [mask-type:luminance].
	Property      string
	PropertyValue string
}

// VariantCandidate is one parsed variant of a candidate, outermost first.
type VariantCandidate struct {
	Raw      string
	Root     string
	Value    *Value
	Modifier *Value
	// Selector holds an arbitrary variant, "&:nth-child(3)" or "@media (orientation: portrait)".
	Selector string
	// Inner is the variant a compound variant (group-, peer-, not-) applies to.
	Inner *VariantCandidate
}

// splitTop splits s on sep outside brackets, parentheses and quotes.
func splitTop(s string, sep byte) []string {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\\':
			i++
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// splitTopString is splitTop for multi-byte separators.
func splitTopString(s, sep string) []string {
	if len(sep) == 1 {
		return splitTop(s, sep[0])
	}
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case depth == 0 && strings.HasPrefix(s[i:], sep):
			out = append(out, s[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// lastTop returns the index of the last sep outside brackets, or -1.
func lastTop(s string, sep byte) int {
	idx := -1
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			i++
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == sep && depth == 0:
			idx = i
		}
	}
	return idx
}

// balanced reports whether brackets and parentheses in s pair up.
func balanced(s string) bool {
	var stack []byte
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			i++
		case '[', '(':
			stack = append(stack, c)
		case ']', ')':
			if len(stack) == 0 {
				return false
			}
			open := stack[len(stack)-1]
			if (c == ']' && open != '[') || (c == ')' && open != '(') {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// DecodeArbitrary turns the inside of [...] into CSS: underscores become
// spaces (\_ stays an underscore, url() contents are kept) and math
// operators inside calc-like functions get the spaces CSS requires.
func DecodeArbitrary(s string) string {
	var b strings.Builder
	urlDepth := 0
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && s[i+1] == '_':
			b.WriteByte('_')
			i++
			continue
		case c == '(':
			depth++
			if strings.HasSuffix(b.String(), "url") && urlDepth == 0 {
				urlDepth = depth
			}
		case c == ')':
			if depth == urlDepth {
				urlDepth = 0
			}
			depth--
		case c == '_' && urlDepth == 0:
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(c)
	}
	return addMathSpaces(b.String())
}

var mathFunctions = []string{"calc(", "min(", "max(", "clamp("}

// addMathSpaces inserts spaces around + - * / inside calc(), min(), max()
// and clamp() when the author left them out: calc(100%-2rem).
func addMathSpaces(s string) string {
	found := false
	for _, fn := range mathFunctions {
		if strings.Contains(s, fn) {
			found = true
			break
		}
	}
	if !found {
		return s
	}
	var b strings.Builder
	var stack []bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		inMath := len(stack) > 0 && stack[len(stack)-1]
		switch c {
		case '(':
			math := false
			for _, fn := range mathFunctions {
				name := fn[:len(fn)-1]
				if strings.HasSuffix(s[:i], name) {
					math = true
				}
			}
			if inMath && !math {
				prev := lastWord(s[:i])
				math = prev == ""
			}
			stack = append(stack, math)
			b.WriteByte(c)
			continue
		case ')':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			b.WriteByte(c)
			continue
		}
		if inMath && (c == '+' || c == '-' || c == '*' || c == '/') && isOperator(s, i) {
			out := strings.TrimRight(b.String(), " ")
			b.Reset()
			b.WriteString(out)
			b.WriteByte(' ')
			b.WriteByte(c)
			b.WriteByte(' ')
			for i+1 < len(s) && s[i+1] == ' ' {
				i++
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func lastWord(s string) string {
	i := len(s)
	for i > 0 && (isAlnum(s[i-1]) || s[i-1] == '-') {
		i--
	}
	return s[i:]
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// isOperator reports whether s[i] is a binary operator rather than a sign,
// part of an identifier (var(--x-y)) or an exponent (1e-3).
func isOperator(s string, i int) bool {
	c := s[i]
	j := i - 1
	for j >= 0 && s[j] == ' ' {
		j--
	}
	if j < 0 {
		return false
	}
	prev := s[j]
	if c == '-' || c == '+' {
		if prev == '(' || prev == ',' || prev == '*' || prev == '/' || prev == '+' || prev == '-' {
			return false
		}
		if j == i-1 && (isAlnum(prev) || prev == '-') {
			// inside an identifier unless the word before is a number with unit
			w := lastWord(s[:i])
			if w == "" || !(w[0] >= '0' && w[0] <= '9') {
				return false
			}
			if strings.HasSuffix(w, "e") && len(w) > 1 {
				return false
			}
		}
		if i+1 < len(s) && s[i+1] == '-' {
			return false
		}
	}
	return true
}

// parseValue parses a named or bracketed value, bg-(--brand) style
// variable shorthands included.
func parseValue(s string) (*Value, bool) {
	switch {
	case s == "":
		return nil, false
	case s[0] == '[':
		if s[len(s)-1] != ']' || len(s) < 3 || !balanced(s[1:len(s)-1]) {
			return nil, false
		}
		return arbitraryValue(s[1 : len(s)-1])
	case s[0] == '(':
		if s[len(s)-1] != ')' || len(s) < 3 {
			return nil, false
		}
		inner := s[1 : len(s)-1]
		hint := ""
		if i := strings.Index(inner, ":"); i > 0 && !strings.HasPrefix(inner, "--") {
			hint, inner = inner[:i], inner[i+1:]
		}
		if !strings.HasPrefix(inner, "--") {
			return nil, false
		}
		return &Value{Kind: ArbitraryValue, Text: "var(" + DecodeArbitrary(inner) + ")", DataType: hint}, true
	}
	if strings.ContainsAny(s, "[]()") {
		return nil, false
	}
	return &Value{Kind: NamedValue, Text: s}, true
}

func arbitraryValue(s string) (*Value, bool) {
	hint := ""
	if i := strings.IndexByte(s, ':'); i > 0 {
		if _, ok := dataTypes[s[:i]]; ok {
			hint, s = s[:i], s[i+1:]
		}
	}
	if s == "" {
		return nil, false
	}
	return &Value{Kind: ArbitraryValue, Text: DecodeArbitrary(s), DataType: hint}, true
}

// candidateBase is the utility part of a candidate once variants,
// important and negative markers are removed.
type candidateBase struct {
	important bool
	negative  bool
	base      string
}

func stripMarkers(base string) (candidateBase, bool) {
	var cb candidateBase
	if strings.HasPrefix(base, "!") {
		cb.important = true
		base = base[1:]
	} else if strings.HasSuffix(base, "!") {
		cb.important = true
		base = base[:len(base)-1]
	}
	if base == "" {
		return cb, false
	}
	cb.base = base
	return cb, true
}

// ParseCandidate returns the readings of raw this design system can
// compile, most specific root first. The result is empty for strings that
// can never be a class.
func (ds *DesignSystem) ParseCandidate(raw string) []*Candidate {
	if raw == "" || strings.ContainsAny(raw, " \t\n\r") || !balanced(raw) {
		return nil
	}
	parts := splitTopString(raw, ds.separator())
	if ds.opts.Prefix != "" && ds.opts.PrefixStyle == PrefixVariant {
		if len(parts) < 2 || parts[0] != ds.opts.Prefix {
			return nil
		}
		parts = parts[1:]
	}
	variants := make([]*VariantCandidate, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		v := ds.parseVariant(p)
		if v == nil {
			return nil
		}
		variants = append(variants, v)
	}
	cb, ok := stripMarkers(parts[len(parts)-1])
	if !ok {
		return nil
	}
	base := cb.base

	// [property:value] with an optional /modifier
	if base[0] == '[' {
		end := strings.LastIndexByte(base, ']')
		if end < 0 {
			return nil
		}
		var mod *Value
		if rest := base[end+1:]; rest != "" {
			if rest[0] != '/' {
				return nil
			}
			if mod, ok = parseValue(rest[1:]); !ok {
				return nil
			}
		}
		inner := base[1:end]
		i := strings.IndexByte(inner, ':')
		if i <= 0 || i == len(inner)-1 {
			return nil
		}
		prop, val := inner[:i], inner[i+1:]
		if !validProperty(prop) {
			return nil
		}
		return []*Candidate{{
			Raw:           raw,
			Variants:      variants,
			Important:     cb.important,
			Modifier:      mod,
			Property:      prop,
			PropertyValue: DecodeArbitrary(val),
		}}
	}

	if ds.opts.Prefix != "" && ds.opts.PrefixStyle == PrefixDash {
		neg := strings.HasPrefix(base, "-")
		b := strings.TrimPrefix(base, "-")
		if !strings.HasPrefix(b, ds.opts.Prefix) {
			return nil
		}
		base = b[len(ds.opts.Prefix):]
		if neg {
			base = "-" + base
		}
	}
	if strings.HasPrefix(base, "-") {
		cb.negative = true
		base = base[1:]
		if base == "" {
			return nil
		}
	}

	var ret []*Candidate
	mk := func(root string, value, mod *Value) *Candidate {
		return &Candidate{
			Raw:       raw,
			Variants:  variants,
			Important: cb.important,
			Negative:  cb.negative,
			Root:      root,
			Value:     value,
			Modifier:  mod,
		}
	}
	if ds.hasUtility(base, StaticUtility) {
		ret = append(ret, mk(base, nil, nil))
	}

	name := base
	var mod *Value
	if i := lastTop(base, '/'); i > 0 {
		if mod, ok = parseValue(base[i+1:]); !ok {
			return ret
		}
		name = base[:i]
	}

	// root-[arbitrary] and root-(--var)
	if last := name[len(name)-1]; last == ']' || last == ')' {
		open := byte('[')
		if last == ')' {
			open = '('
		}
		i := strings.IndexByte(name, open)
		if i <= 1 || name[i-1] != '-' {
			return ret
		}
		root := name[:i-1]
		v, ok := parseValue(name[i:])
		if !ok || !ds.hasUtility(root, FunctionalUtility) {
			return ret
		}
		return append(ret, mk(root, v, mod))
	}
	if ds.hasUtility(name, FunctionalUtility) && mod == nil {
		ret = append(ret, mk(name, nil, nil))
	}
	for i := len(name) - 1; i > 0; i-- {
		if name[i] != '-' {
			continue
		}
		root := name[:i]
		if !ds.hasUtility(root, FunctionalUtility) {
			continue
		}
		v, ok := parseValue(name[i+1:])
		if !ok {
			continue
		}
		if mod != nil && mod.Kind == NamedValue && isNumber(v.Text) && isNumber(mod.Text) {
			v.Fraction = v.Text + "/" + mod.Text
		}
		ret = append(ret, mk(root, v, mod))
	}
	return ret
}

func validProperty(p string) bool {
	if strings.HasPrefix(p, "--") {
		return len(p) > 2
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		if !(c >= 'a' && c <= 'z') && c != '-' {
			return false
		}
	}
	return p != "" && p != "-"
}

func (ds *DesignSystem) parseVariant(raw string) *VariantCandidate {
	return ds.parseVariantIn(raw, false)
}

// parseVariantIn parses a variant. Inside a compound variant a bare
// arbitrary selector (group-[.active]) stands for &:is(selector).
func (ds *DesignSystem) parseVariantIn(raw string, compound bool) *VariantCandidate {
	if raw == "" {
		return nil
	}
	if raw[0] == '[' {
		if raw[len(raw)-1] != ']' {
			return nil
		}
		sel := DecodeArbitrary(raw[1 : len(raw)-1])
		if !strings.HasPrefix(sel, "@") && !strings.Contains(sel, "&") {
			switch {
			case compound:
				sel = "&:is(" + sel + ")"
			case ds.opts.Legacy:
				sel = "&" + sel
			default:
				return nil
			}
		}
		return &VariantCandidate{Raw: raw, Selector: sel}
	}
	if v, ok := ds.variants[raw]; ok && v.Kind == StaticVariant {
		return &VariantCandidate{Raw: raw, Root: raw}
	}

	name := raw
	var mod *Value
	if i := lastTop(raw, '/'); i > 0 {
		m, ok := parseValue(raw[i+1:])
		if !ok {
			return nil
		}
		name, mod = raw[:i], m
	}
	if v, ok := ds.variants[name]; ok && v.Kind != CompoundVariant {
		return &VariantCandidate{Raw: raw, Root: name, Modifier: mod}
	}
	// @md, @[30rem]
	if strings.HasPrefix(name, "@") && len(name) > 1 && ds.variants["@"] != nil {
		if _, ok := ds.variants[name]; !ok && !strings.HasPrefix(name, "@min-") && !strings.HasPrefix(name, "@max-") {
			if v, ok := parseValue(name[1:]); ok {
				return &VariantCandidate{Raw: raw, Root: "@", Value: v, Modifier: mod}
			}
		}
	}
	if last := name[len(name)-1]; last == ']' || last == ')' {
		open := byte('[')
		if last == ')' {
			open = '('
		}
		if i := strings.IndexByte(name, open); i > 1 && name[i-1] == '-' {
			root := name[:i-1]
			if v, ok := ds.variants[root]; ok && v.Kind == FunctionalVariant {
				if val, ok := parseValue(name[i:]); ok {
					return &VariantCandidate{Raw: raw, Root: root, Value: val, Modifier: mod}
				}
			}
		}
	}
	for i := len(name) - 1; i > 0; i-- {
		if name[i] != '-' {
			continue
		}
		root := name[:i]
		v, ok := ds.variants[root]
		if !ok {
			continue
		}
		switch v.Kind {
		case CompoundVariant:
			inner := ds.parseVariantIn(name[i+1:], true)
			if inner == nil {
				continue
			}
			return &VariantCandidate{Raw: raw, Root: root, Inner: inner, Modifier: mod}
		case FunctionalVariant:
			val, ok := parseValue(name[i+1:])
			if !ok {
				continue
			}
			return &VariantCandidate{Raw: raw, Root: root, Value: val, Modifier: mod}
		}
	}
	return nil
}
