// Package twintellisense answers editor queries from a design system:
// class autocomplete, canonical class order, the CSS of a class and the
// theme variables.
package twintellisense

import (
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/gotailwindcss/windpress/twdesign"
)

// Source is what autocomplete reads. *twdesign.DesignSystem and *Session
// implement it, the latter memoized.
type Source interface {
	ClassList() []twdesign.ClassItem
	Entities(candidate string) []twdesign.ClassEntity
	ResolveVars(v string) string
}

// Suggestion is an autocomplete result. Color is the value of the first
// declaration of the class whose property is a color, nil if none.
type Suggestion struct {
	Value string  `json:"value"`
	Color *string `json:"color"`
}

// DefaultThreshold is the highest normalized edit distance a typo match
// may have.
const DefaultThreshold = 0.4

type searchOptions struct {
	threshold float64
	limit     int
}

// SearchOption configures SearchClassList.
type SearchOption func(*searchOptions)

// WithThreshold sets the fuzzy match threshold, DefaultThreshold by
// default. 0 allows exact substrings only.
func WithThreshold(t float64) SearchOption { return func(o *searchOptions) { o.threshold = t } }

// WithLimit caps the number of suggestions, 0 means all.
func WithLimit(n int) SearchOption { return func(o *searchOptions) { o.limit = n } }

// query is a parsed autocomplete query: variants:!base/opacity.
type query struct {
	prefix    string
	important bool
	q         string
	opacity   []int
	isOpacity bool
}

func parseQuery(s string) query {
	var pq query
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		pq.prefix, s = s[:i], s[i+1:]
	}
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		pq.important, s = true, rest
	}
	pq.q = s
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		if steps, ok := opacityWindow(s[i+1:]); ok {
			pq.q, pq.opacity, pq.isOpacity = s[:i], steps, true
		}
	}
	return pq
}

// opacityWindow returns the opacity values to suggest for the hint after a
// '/'. A bare '/' gives 0 to 100 in steps of 5. A one digit hint d gives d
// then d0 to d9, a two digit hint the decade it falls in, 100 itself.
// Hints that are not numbers from 0 to 100 are not opacities.
func opacityWindow(hint string) ([]int, bool) {
	if hint == "" {
		var ret []int
		for v := 0; v <= 100; v += 5 {
			ret = append(ret, v)
		}
		return ret, true
	}
	n, err := strconv.Atoi(hint)
	if err != nil || n < 0 || n > 100 || len(hint) > 3 {
		return nil, false
	}
	switch {
	case n == 100:
		return []int{100}, true
	case len(hint) == 1:
		ret := []int{n}
		for v := n * 10; v <= n*10+9; v++ {
			if v != n {
				ret = append(ret, v)
			}
		}
		return ret, true
	default:
		base := n / 10 * 10
		ret := make([]int, 0, 10)
		for v := base; v <= base+9; v++ {
			ret = append(ret, v)
		}
		return ret, true
	}
}

type ranked struct {
	item  twdesign.ClassItem
	tier  int
	score float64
	pos   int
}

// SearchClassList suggests classes for query. An empty query returns the
// whole class list. The part before the last ':' is a variant prefix kept
// in the values, a leading '!' marks them important and a trailing '/'
// with an optional number expands opacity modifiers of the color classes
// containing the base, without fuzzy or typo matches.
// Matches rank prefix first, then substring, then in-order characters,
// then typos within the threshold.
func SearchClassList(src Source, q string, opts ...SearchOption) []Suggestion {
	o := searchOptions{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	list := src.ClassList()
	if q == "" {
		ret := make([]Suggestion, 0, len(list))
		for _, item := range list {
			ret = append(ret, Suggestion{Value: item.Name, Color: colorOf(src, item.Name)})
			if o.limit > 0 && len(ret) == o.limit {
				break
			}
		}
		return ret
	}

	pq := parseQuery(q)
	threshold := o.threshold
	if pq.isOpacity {
		// opacity expansion only applies to classes containing the base
		threshold = 0
	}
	var hits []ranked
	for i, item := range list {
		if pq.isOpacity && len(item.Modifiers) == 0 {
			continue
		}
		if r, ok := rank(pq.q, item.Name, threshold); ok {
			r.item, r.pos = item, i
			hits = append(hits, r)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.score != b.score {
			return a.score < b.score
		}
		return a.pos < b.pos
	})

	var ret []Suggestion
	add := func(name string) bool {
		value := name
		if pq.important {
			value = "!" + value
		}
		if pq.prefix != "" {
			value = pq.prefix + ":" + value
		}
		ret = append(ret, Suggestion{Value: value, Color: colorOf(src, name)})
		return o.limit > 0 && len(ret) >= o.limit
	}
	for _, h := range hits {
		if !pq.isOpacity {
			if add(h.item.Name) {
				return ret
			}
			continue
		}
		for _, v := range pq.opacity {
			if add(h.item.Name + "/" + strconv.Itoa(v)) {
				return ret
			}
		}
	}
	return ret
}

// rank places name against q. Tiers: 0 prefix, 1 substring, 2 characters
// in order, 3 within the edit distance threshold of a same length prefix.
func rank(q, name string, threshold float64) (ranked, bool) {
	if q == "" {
		return ranked{tier: 0}, true
	}
	lq, ln := strings.ToLower(q), strings.ToLower(name)
	if strings.HasPrefix(ln, lq) {
		return ranked{tier: 0, score: float64(len(name))}, true
	}
	if i := strings.Index(ln, lq); i >= 0 {
		return ranked{tier: 1, score: float64(i*1000 + len(name))}, true
	}
	if threshold <= 0 {
		return ranked{}, false
	}
	if d := fuzzy.RankMatchFold(q, name); d >= 0 {
		return ranked{tier: 2, score: float64(d)}, true
	}
	head := ln
	if len(head) > len(lq) {
		head = head[:len(lq)]
	}
	d := fuzzy.LevenshteinDistance(lq, head)
	norm := float64(d) / float64(max(len(lq), len(head)))
	if norm <= threshold {
		return ranked{tier: 3, score: norm}, true
	}
	return ranked{}, false
}

func colorOf(src Source, candidate string) *string {
	for _, e := range src.Entities(candidate) {
		for _, d := range e.Declarations {
			if strings.Contains(d.Property, "color") {
				v := src.ResolveVars(d.Value)
				return &v
			}
		}
	}
	return nil
}
