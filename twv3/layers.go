package twv3

import (
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
)

type layerRule struct {
	layer twdesign.Layer
	rule  *twcss.Node
}

// layers pulls @layer blocks and @config out of a bundled stylesheet.
// Base layer nodes are emitted at @tailwind base as they are. Component
// and utility rules become classes of the design system, emitted only when
// used and available to @apply and variants.
type layers struct {
	base   []*twcss.Node
	rules  []layerRule
	config *twcss.Node
}

func (l *layers) collect(nodes []*twcss.Node) []*twcss.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		switch {
		case n.IsAt("config") && !n.Block:
			if l.config == nil {
				l.config = n
			}
		case n.IsAt("layer") && n.Block:
			switch strings.TrimSpace(n.Params) {
			case "base":
				l.base = append(l.base, n.Nodes...)
			case "components":
				l.addRules(twdesign.LayerComponents, n.Nodes, nil)
			case "utilities":
				l.addRules(twdesign.LayerUtilities, n.Nodes, nil)
			default:
				out = append(out, n)
			}
		default:
			out = append(out, n)
		}
	}
	return out
}

// addRules registers the rules of a layer. Rules inside conditional
// at-rules keep the condition nested in their body:
// @media print { .btn { x: y } } registers .btn { @media print { x: y } }.
func (l *layers) addRules(layer twdesign.Layer, nodes []*twcss.Node, wrap *twcss.Node) {
	for _, n := range nodes {
		switch n.Kind {
		case twcss.Rule:
			rule := n
			if wrap != nil {
				rule = twcss.NewRule(n.Selector, twcss.NewAtRule(wrap.Name, wrap.Params, twcss.CloneAll(n.Nodes)...))
				rule.Source = n.Source
			}
			l.rules = append(l.rules, layerRule{layer: layer, rule: rule})
		case twcss.AtRule:
			if n.Block {
				l.addRules(layer, n.Nodes, n)
			}
		}
	}
}
