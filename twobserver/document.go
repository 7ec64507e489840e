// Package twobserver keeps a generated stylesheet in step with the classes
// used in an HTML document as the document changes.
package twobserver

import (
	"errors"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Op is the kind of change a Record describes.
type Op string

const (
	OpInsert  Op = "insert"
	OpRemove  Op = "remove"
	OpText    Op = "text"
	OpAttr    Op = "attr"
	OpAttrDel Op = "attr_del"
)

// Record is one document change. Target is the node changed, the parent
// for inserts and removals. Tag is the element the change is about: the
// inserted or removed child, otherwise Target.
type Record struct {
	Op       Op         `json:"op"`
	Target   *html.Node `json:"-"`
	Tag      string     `json:"tag,omitempty"`
	Name     string     `json:"name,omitempty"`
	Value    string     `json:"value,omitempty"`
	OldValue string     `json:"old_value,omitempty"`
}

var (
	ErrAttached   = errors.New("twobserver: node already has a parent")
	ErrNotChild   = errors.New("twobserver: node is not a child of parent")
	ErrNotElement = errors.New("twobserver: node is not an element")
)

// Document is an HTML tree whose changes, made through its methods, are
// queued as records. It is safe for concurrent use.
type Document struct {
	mu      sync.Mutex
	root    *html.Node
	records []Record
	changed chan struct{}
}

// NewDocument wraps root.
func NewDocument(root *html.Node) *Document {
	return &Document{root: root, changed: make(chan struct{}, 1)}
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(root), nil
}

// Changed receives a value when records are waiting to be drained.
func (d *Document) Changed() <-chan struct{} { return d.changed }

// Drain returns and clears the queued records.
func (d *Document) Drain() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	recs := d.records
	d.records = nil
	return recs
}

func (d *Document) record(r Record) {
	d.records = append(d.records, r)
	select {
	case d.changed <- struct{}{}:
	default:
	}
}

// Find returns the first node, in document order, fn accepts.
func (d *Document) Find(fn func(*html.Node) bool) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return find(d.root, fn)
}

func find(n *html.Node, fn func(*html.Node) bool) *html.Node {
	if fn(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, fn); f != nil {
			return f
		}
	}
	return nil
}

// ByID matches the element with the given id attribute.
func ByID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return n.Type == html.ElementNode && ok && v == id
	}
}

// ByTag matches elements of tag a.
func ByTag(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == a }
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Attribute returns the value of an attribute of n.
func (d *Document) Attribute(n *html.Node, name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return attr(n, name)
}

// SetAttribute sets an attribute of element n.
func (d *Document) SetAttribute(n *html.Node, name, value string) error {
	if n.Type != html.ElementNode {
		return ErrNotElement
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	old, _ := attr(n, name)
	set := false
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			set = true
			break
		}
	}
	if !set {
		n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
	}
	d.record(Record{Op: OpAttr, Target: n, Tag: n.Data, Name: name, Value: value, OldValue: old})
	return nil
}

// RemoveAttribute removes an attribute of element n. Removing an absent
// attribute records nothing.
func (d *Document) RemoveAttribute(n *html.Node, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.record(Record{Op: OpAttrDel, Target: n, Tag: n.Data, Name: name, OldValue: a.Val})
			return
		}
	}
}

// AppendChild adds child as the last child of parent.
func (d *Document) AppendChild(parent, child *html.Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if child.Parent != nil {
		return ErrAttached
	}
	parent.AppendChild(child)
	d.record(Record{Op: OpInsert, Target: parent, Tag: child.Data})
	return nil
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if child.Parent != parent {
		return ErrNotChild
	}
	parent.RemoveChild(child)
	d.record(Record{Op: OpRemove, Target: parent, Tag: child.Data})
	return nil
}

// SetText replaces the children of n with a single text node.
func (d *Document) SetText(n *html.Node, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := textOf(n)
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	d.record(Record{Op: OpText, Target: n, Tag: n.Data, Value: text, OldValue: old})
}

// Text returns the text content of n.
func (d *Document) Text(n *html.Node) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return textOf(n)
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Classes returns every class token of every element.
func (d *Document) Classes() map[string]struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	set := map[string]struct{}{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if v, ok := attr(n, "class"); ok {
				for _, c := range strings.Fields(v) {
					set[c] = struct{}{}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return set
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// ignored reports whether r is about a style or script element, which the
// observer writes itself.
func ignored(r Record) bool {
	switch strings.ToLower(r.Tag) {
	case "style", "script":
		return true
	}
	if r.Target != nil && r.Target.Type == html.ElementNode {
		switch r.Target.DataAtom {
		case atom.Style, atom.Script:
			return true
		}
	}
	return false
}

// relevant reports whether r may change the classes in use.
func relevant(r Record) bool {
	if ignored(r) {
		return false
	}
	switch r.Op {
	case OpAttr, OpAttrDel:
		return r.Name == "class"
	}
	return true
}
