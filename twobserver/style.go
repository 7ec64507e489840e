package twobserver

import (
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultStyleID is the id of the style element the observer writes.
const DefaultStyleID = "windpress-style"

// StyleContainer is the style element holding the generated stylesheet.
// It is created on first write, at the end of head, or of the root element
// when there is no head.
type StyleContainer struct {
	doc *Document
	id  string

	mu   sync.Mutex
	node *html.Node
}

// NewStyleContainer returns the container with the given id in doc. An
// existing style element with that id is reused.
func NewStyleContainer(doc *Document, id string) *StyleContainer {
	return &StyleContainer{doc: doc, id: id}
}

func (c *StyleContainer) ensure() (*html.Node, error) {
	if c.node != nil {
		return c.node, nil
	}
	if n := c.doc.Find(ByID(c.id)); n != nil {
		c.node = n
		return n, nil
	}
	parent := c.doc.Find(ByTag(atom.Head))
	if parent == nil {
		parent = c.doc.Find(func(n *html.Node) bool { return n.Type == html.ElementNode })
	}
	if parent == nil {
		parent = c.doc.root
	}
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     "style",
		Attr:     []html.Attribute{{Key: "id", Val: c.id}},
	}
	if err := c.doc.AppendChild(parent, n); err != nil {
		return nil, err
	}
	c.node = n
	return n, nil
}

// Set replaces the stylesheet text.
func (c *StyleContainer) Set(css string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.ensure()
	if err != nil {
		return err
	}
	c.doc.SetText(n, css)
	return nil
}

// Text returns the current stylesheet, "" before the first write.
func (c *StyleContainer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.node == nil {
		if n := c.doc.Find(ByID(c.id)); n != nil {
			return c.doc.Text(n)
		}
		return ""
	}
	return c.doc.Text(c.node)
}
