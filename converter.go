package windpress

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
)

// New returns an initialized instance of Converter. The out param
// indicates where output is written, it must not be nil.
func New(out io.Writer, ds *twdesign.DesignSystem) *Converter {
	if out == nil {
		panic(fmt.Errorf("windpress.Converter.out is nil, cannot continue"))
	}
	if ds == nil {
		panic(fmt.Errorf("windpress.Converter.ds is nil, cannot continue"))
	}
	return &Converter{
		out: out,
		ds:  ds,
	}
}

// Converter does processing of CSS input and writes a single output CSS
// file with the design system directives resolved (see Expand) and nesting
// flattened. Inputs are processed in the order they are added.
type Converter struct {
	out          io.Writer
	ds           *twdesign.DesignSystem
	inputs       []*input
	banner       string
	postProcFunc func(out io.Writer, in io.Reader) error
	finalize     func(nodes []*twcss.Node) []*twcss.Node
}

type input struct {
	name  string    // display file name
	r     io.Reader // read input from here
	nodes []*twcss.Node
}

// SetBanner makes the output start with the license banner of a Tailwind
// version, see Banner.
func (c *Converter) SetBanner(version string) {
	c.banner = Banner(version)
}

// SetPostProcFunc sets the function that is called to post-process the output.
// This is normally used for minification, e.g. with tdewolff/minify. The
// post processor reads the flattened stylesheet from in and writes to out.
func (c *Converter) SetPostProcFunc(f func(out io.Writer, in io.Reader) error) {
	c.postProcFunc = f
}

// SetFinalizer sets a function that sees the whole tree after directives
// are expanded and before nesting is flattened. Engines use it to fill in
// what depends on the final content, like the used theme variables.
func (c *Converter) SetFinalizer(f func(nodes []*twcss.Node) []*twcss.Node) {
	c.finalize = f
}

// AddReader adds an input source. The name is used only in error
// messages to indicate the source. And r is the CSS source to be processed,
// it must not be nil.
func (c *Converter) AddReader(name string, r io.Reader) {
	if r == nil {
		panic(fmt.Errorf("windpress.Converter.AddReader(%q, r): r is nil, cannot continue", name))
	}
	c.inputs = append(c.inputs, &input{name: name, r: r})
}

// AddNodes adds an already parsed input. The nodes are owned by the
// converter from now on.
func (c *Converter) AddNodes(nodes ...*twcss.Node) {
	c.inputs = append(c.inputs, &input{nodes: nodes})
}

// Run performs the conversion. The output is written to the writer specified
// in New().
func (c *Converter) Run() (reterr error) {

	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if ok {
				reterr = e
			} else {
				reterr = fmt.Errorf("%v", r)
			}
		}
	}()

	w := bufio.NewWriter(c.out)
	defer func() { // ensure we always flush, and record the error if no other
		err := w.Flush()
		if err != nil && reterr == nil {
			reterr = err
		}
	}()

	var nodes []*twcss.Node
	for _, in := range c.inputs {
		if in.r == nil {
			nodes = append(nodes, in.nodes...)
			continue
		}
		b, err := io.ReadAll(in.r)
		if err != nil {
			return fmt.Errorf("%s: %w", in.name, err)
		}
		parsed, err := twcss.Parse(string(b), in.name)
		if err != nil {
			return err
		}
		nodes = append(nodes, parsed...)
	}

	nodes, err := Expand(c.ds, nodes)
	if err != nil {
		return err
	}
	if c.finalize != nil {
		nodes = c.finalize(nodes)
	}
	nodes = twcss.Flatten(stripComments(nodes))

	var body bytes.Buffer
	if c.banner != "" {
		body.WriteString(c.banner)
		body.WriteByte('\n')
	}
	body.WriteString(twcss.Print(nodes))

	if c.postProcFunc == nil {
		_, err = w.Write(body.Bytes())
		return err
	}
	return c.postProcFunc(w, &body)
}

// stripComments drops comments except /*! ones, which are meant to stay.
func stripComments(nodes []*twcss.Node) []*twcss.Node {
	return twcss.Replace(nodes, func(n *twcss.Node) ([]*twcss.Node, bool) {
		if n.Kind == twcss.Comment && !strings.HasPrefix(n.Text, "/*!") {
			return nil, true
		}
		return nil, false
	})
}
