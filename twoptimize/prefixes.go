package twoptimize

import (
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
)

// prefix is a vendor prefixed form of a property and the targets that
// still need it.
type prefix struct {
	vendor string
	need   func(t Targets) bool
	// value restricts the prefix to declarations with this value.
	value string
}

func safariBefore(v int) func(Targets) bool {
	return func(t Targets) bool { return t.Safari > 0 && t.Safari < v }
}

func chromeBefore(v int) func(Targets) bool {
	return func(t Targets) bool { return t.Chrome > 0 && t.Chrome < v }
}

func firefoxBefore(v int) func(Targets) bool {
	return func(t Targets) bool { return t.Firefox > 0 && t.Firefox < v }
}

func webkitBrowsers(t Targets) bool { return t.Safari > 0 || t.Chrome > 0 }

func either(fns ...func(Targets) bool) func(Targets) bool {
	return func(t Targets) bool {
		for _, fn := range fns {
			if fn(t) {
				return true
			}
		}
		return false
	}
}

var maskPrefix = []prefix{{vendor: "-webkit-", need: either(safariBefore(16), chromeBefore(120))}}

var prefixes = map[string][]prefix{
	"backdrop-filter":      {{vendor: "-webkit-", need: safariBefore(18)}},
	"user-select":          {{vendor: "-webkit-", need: safariBefore(99)}},
	"text-size-adjust":     {{vendor: "-webkit-", need: webkitBrowsers}, {vendor: "-moz-", need: firefoxBefore(999)}},
	"background-clip":      {{vendor: "-webkit-", need: webkitBrowsers, value: "text"}},
	"box-decoration-break": {{vendor: "-webkit-", need: webkitBrowsers}},
	"hyphens":              {{vendor: "-webkit-", need: safariBefore(17)}},
	"appearance":           {{vendor: "-webkit-", need: safariBefore(16)}},
	"backface-visibility":  {{vendor: "-webkit-", need: safariBefore(16)}},
	"text-decoration-skip": {{vendor: "-webkit-", need: safariBefore(99)}},
	"mask-image":           maskPrefix,
	"mask-size":            maskPrefix,
	"mask-position":        maskPrefix,
	"mask-repeat":          maskPrefix,
	"mask-clip":            maskPrefix,
	"mask-origin":          maskPrefix,
	"mask-composite":       maskPrefix,
	"mask-mode":            maskPrefix,
}

// addPrefixes inserts the prefixed declarations the targets need before
// the standard ones.
func addPrefixes(nodes []*twcss.Node, t Targets) []*twcss.Node {
	for _, n := range nodes {
		if n.Kind == twcss.Decl || len(n.Nodes) == 0 {
			continue
		}
		n.Nodes = prefixDecls(addPrefixes(n.Nodes, t), t)
	}
	return nodes
}

func prefixDecls(nodes []*twcss.Node, t Targets) []*twcss.Node {
	have := map[string]bool{}
	for _, n := range nodes {
		if n.Kind == twcss.Decl {
			have[n.Property] = true
		}
	}
	out := make([]*twcss.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == twcss.Decl {
			for _, p := range prefixes[n.Property] {
				name := p.vendor + n.Property
				if have[name] || !p.need(t) {
					continue
				}
				if p.value != "" && strings.TrimSpace(n.Value) != p.value {
					continue
				}
				d := n.Clone()
				d.Property = name
				out = append(out, d)
			}
		}
		out = append(out, n)
	}
	return out
}
