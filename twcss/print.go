package twcss

import "strings"

// Print renders nodes as an indented stylesheet.
func Print(nodes []*Node) string {
	var b strings.Builder
	printList(&b, nodes, 0)
	return b.String()
}

// String renders a single node.
func (n *Node) String() string {
	return Print([]*Node{n})
}

func printList(b *strings.Builder, nodes []*Node, depth int) {
	for _, n := range nodes {
		printNode(b, n, depth)
	}
}

func printNode(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case Comment:
		b.WriteString(indent)
		b.WriteString(n.Text)
		b.WriteByte('\n')
	case Decl:
		b.WriteString(indent)
		b.WriteString(n.Property)
		b.WriteString(": ")
		b.WriteString(n.Value)
		if n.Important {
			b.WriteString(" !important")
		}
		b.WriteString(";\n")
	case Rule:
		b.WriteString(indent)
		b.WriteString(n.Selector)
		b.WriteString(" {\n")
		printList(b, n.Nodes, depth+1)
		b.WriteString(indent)
		b.WriteString("}\n")
	case AtRule:
		b.WriteString(indent)
		b.WriteByte('@')
		b.WriteString(n.Name)
		if n.Params != "" {
			b.WriteByte(' ')
			b.WriteString(n.Params)
		}
		if !n.Block {
			b.WriteString(";\n")
			return
		}
		b.WriteString(" {\n")
		printList(b, n.Nodes, depth+1)
		b.WriteString(indent)
		b.WriteString("}\n")
	}
}
