// Package twcss is a small stylesheet tree: a nesting-aware parser on top of
// the tdewolff CSS lexer, a printer, and the nesting flattener used before
// output.
package twcss

import "strings"

// Kind tells what a Node holds.
type Kind int

const (
	Rule Kind = iota
	AtRule
	Decl
	Comment
)

func (k Kind) String() string {
	switch k {
	case Rule:
		return "rule"
	case AtRule:
		return "at-rule"
	case Decl:
		return "decl"
	case Comment:
		return "comment"
	}
	return "unknown"
}

// Node is one stylesheet item. Which fields are meaningful depends on Kind:
// Selector for rules, Name/Params/Block for at-rules (Name has no leading @),
// Property/Value/Important for declarations and Text for comments.
type Node struct {
	Kind      Kind
	Selector  string
	Name      string
	Params    string
	Block     bool
	Property  string
	Value     string
	Important bool
	Text      string
	Nodes     []*Node

	// Source is the file the node was parsed from, if any.
	Source string
}

// NewRule returns a style rule.
func NewRule(selector string, nodes ...*Node) *Node {
	return &Node{Kind: Rule, Selector: selector, Nodes: nodes}
}

// NewAtRule returns an at-rule with a block.
func NewAtRule(name, params string, nodes ...*Node) *Node {
	return &Node{Kind: AtRule, Name: name, Params: params, Block: true, Nodes: nodes}
}

// NewStatement returns an at-rule without a block, e.g. @import.
func NewStatement(name, params string) *Node {
	return &Node{Kind: AtRule, Name: name, Params: params}
}

// NewDecl returns a declaration.
func NewDecl(property, value string) *Node {
	return &Node{Kind: Decl, Property: property, Value: value}
}

// NewComment returns a comment, text is wrapped in /* */ when it is not already.
func NewComment(text string) *Node {
	if !strings.HasPrefix(text, "/*") {
		text = "/*" + text + "*/"
	}
	return &Node{Kind: Comment, Text: text}
}

// IsAt reports whether n is an at-rule named name.
func (n *Node) IsAt(name string) bool {
	return n != nil && n.Kind == AtRule && n.Name == name
}

// Clone deep-copies n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Nodes = CloneAll(n.Nodes)
	return &c
}

// CloneAll deep-copies a node list.
func CloneAll(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	ret := make([]*Node, len(nodes))
	for i, n := range nodes {
		ret[i] = n.Clone()
	}
	return ret
}

// Walk calls fn for every node depth first. Children are visited when fn
// returns true.
func Walk(nodes []*Node, fn func(n *Node) bool) {
	for _, n := range nodes {
		if fn(n) && len(n.Nodes) > 0 {
			Walk(n.Nodes, fn)
		}
	}
}

// Replace rebuilds a node list. For each node fn may return a replacement
// (possibly empty) and true, otherwise the node is kept and its children are
// processed the same way.
func Replace(nodes []*Node, fn func(n *Node) ([]*Node, bool)) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if repl, ok := fn(n); ok {
			out = append(out, repl...)
			continue
		}
		if len(n.Nodes) > 0 {
			n.Nodes = Replace(n.Nodes, fn)
		}
		out = append(out, n)
	}
	return out
}

// Decls returns the direct declaration children of n.
func (n *Node) Decls() []*Node {
	var ret []*Node
	for _, c := range n.Nodes {
		if c.Kind == Decl {
			ret = append(ret, c)
		}
	}
	return ret
}
