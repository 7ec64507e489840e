package twcss

import "strings"

// conditional group at-rules may sit inside style rules and get hoisted
// around them when flattening
var groupAtRules = map[string]bool{
	"media":          true,
	"supports":       true,
	"container":      true,
	"layer":          true,
	"starting-style": true,
	"scope":          true,
	"document":       true,
}

// Flatten resolves nested style rules into plain rules, joining selectors
// (& is replaced by the parent selector, otherwise a descendant combinator
// is used) and hoisting conditional at-rules out of rules. Declarations of
// a rule come before the rules nested in it. Rules left without
// declarations are dropped.
func Flatten(nodes []*Node) []*Node {
	return flattenList(nodes, "")
}

func flattenList(nodes []*Node, sel string) []*Node {
	var decls, rest []*Node
	for _, n := range nodes {
		switch n.Kind {
		case Decl:
			if sel != "" {
				decls = append(decls, n.Clone())
			} else {
				rest = append(rest, n.Clone())
			}
		case Comment:
			if sel == "" {
				rest = append(rest, n.Clone())
			}
		case Rule:
			child := n.Selector
			if sel != "" {
				child = JoinSelector(sel, n.Selector)
			}
			rest = append(rest, flattenList(n.Nodes, child)...)
		case AtRule:
			switch {
			case n.Block && groupAtRules[n.Name]:
				inner := flattenList(n.Nodes, sel)
				if len(inner) == 0 && sel != "" {
					continue
				}
				c := &Node{Kind: AtRule, Name: n.Name, Params: n.Params, Block: true, Nodes: inner, Source: n.Source}
				if c.Nodes == nil {
					c.Nodes = []*Node{}
				}
				rest = append(rest, c)
			case sel != "" && !n.Block:
				decls = append(decls, n.Clone())
			default:
				rest = append(rest, n.Clone())
			}
		}
	}
	if sel != "" && len(decls) > 0 {
		rest = append([]*Node{{Kind: Rule, Selector: sel, Nodes: decls}}, rest...)
	}
	return rest
}

// JoinSelector combines a parent and a nested selector list.
func JoinSelector(parent, child string) string {
	parents := SplitList(parent)
	children := SplitList(child)
	var out []string
	for _, c := range children {
		for _, p := range parents {
			if strings.Contains(c, "&") {
				out = append(out, strings.ReplaceAll(c, "&", p))
			} else {
				out = append(out, p+" "+c)
			}
		}
	}
	return strings.Join(out, ", ")
}

// SplitList splits a comma separated list at the top level, leaving commas
// inside parentheses, brackets and strings alone. Items are trimmed.
func SplitList(s string) []string {
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
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}
