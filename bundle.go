package windpress

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twresolve"
	"github.com/gotailwindcss/windpress/twvfs"
)

// Importer loads the stylesheets @import refers to. *twresolve.Resolver
// implements it.
type Importer interface {
	LoadStylesheet(ctx context.Context, id, base string, vol *twvfs.Volume) (*twresolve.Stylesheet, error)
}

// ImportOptions are the Tailwind specific @import options seen while
// bundling: @import "tailwindcss" prefix(tw) important.
type ImportOptions struct {
	Prefix    string
	Important bool
}

// Bundle loads the stylesheet id and inlines its @import rules, wrapping
// imported content in the layer, supports and media conditions the import
// names. Imports written as url(...) are kept as they are and moved to the
// top. Every node remembers the file it came from in Source.
func Bundle(ctx context.Context, imp Importer, id, base string, vol *twvfs.Volume) ([]*twcss.Node, ImportOptions, error) {
	b := &bundler{ctx: ctx, imp: imp, vol: vol}
	nodes, err := b.load(id, base, nil)
	if err != nil {
		return nil, b.opts, err
	}
	return append(b.kept, nodes...), b.opts, nil
}

type bundler struct {
	ctx  context.Context
	imp  Importer
	vol  *twvfs.Volume
	opts ImportOptions
	kept []*twcss.Node
}

func (b *bundler) load(id, base string, chain []string) ([]*twcss.Node, error) {
	ss, err := b.imp.LoadStylesheet(b.ctx, id, base, b.vol)
	if err != nil {
		return nil, err
	}
	for _, p := range chain {
		if p == ss.Path {
			return nil, fmt.Errorf("%s: circular @import of %s", chain[len(chain)-1], ss.Path)
		}
	}
	nodes, err := twcss.Parse(ss.Content, ss.Path)
	if err != nil {
		return nil, err
	}
	return b.inline(nodes, ss.Base, append(chain[:len(chain):len(chain)], ss.Path))
}

func (b *bundler) inline(nodes []*twcss.Node, base string, chain []string) ([]*twcss.Node, error) {
	out := make([]*twcss.Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.IsAt("import") || n.Block {
			out = append(out, n)
			continue
		}
		imp := parseImport(n.Params)
		if imp.url || imp.spec == "" {
			b.kept = append(b.kept, n)
			continue
		}
		children, err := b.load(imp.spec, base, chain)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", chain[len(chain)-1], err)
		}
		if imp.prefix != "" {
			b.opts.Prefix = imp.prefix
		}
		if imp.important {
			b.opts.Important = true
		}
		if imp.theme != "" {
			twcss.Walk(children, func(c *twcss.Node) bool {
				if c.IsAt("theme") {
					c.Params = strings.TrimSpace(c.Params + " " + imp.theme)
				}
				return true
			})
		}
		out = append(out, imp.wrap(children)...)
	}
	return out, nil
}

type importRule struct {
	spec      string
	url       bool
	layer     *string
	supports  string
	media     string
	prefix    string
	important bool
	theme     string
}

func (r importRule) wrap(nodes []*twcss.Node) []*twcss.Node {
	if r.media != "" {
		nodes = []*twcss.Node{twcss.NewAtRule("media", r.media, nodes...)}
	}
	if r.supports != "" {
		nodes = []*twcss.Node{twcss.NewAtRule("supports", r.supports, nodes...)}
	}
	if r.layer != nil {
		nodes = []*twcss.Node{twcss.NewAtRule("layer", *r.layer, nodes...)}
	}
	return nodes
}

// parseImport reads `"x.css" layer(base) supports(display: grid) prefix(tw)
// important theme(static) screen and (min-width: 40rem)`.
func parseImport(params string) importRule {
	var r importRule
	params = strings.TrimSpace(params)
	rest := ""
	switch {
	case strings.HasPrefix(params, "url("):
		end := closing(params, 3)
		r.url = true
		r.spec = strings.Trim(strings.TrimSpace(params[4:end]), `"'`)
		return r
	case strings.HasPrefix(params, `"`), strings.HasPrefix(params, `'`):
		q := params[0]
		end := strings.IndexByte(params[1:], q)
		if end < 0 {
			return r
		}
		r.spec = params[1 : end+1]
		rest = params[end+2:]
	default:
		return r
	}
	if twfetch.IsRemote(r.spec) && path.Ext(r.spec) != ".css" {
		// font services and the like
		r.url = true
		return r
	}
	var media []string
	for _, tok := range splitWords(rest) {
		name, args, isFn := strings.Cut(tok, "(")
		if isFn {
			args = strings.TrimSuffix(args, ")")
		}
		switch {
		case tok == "layer":
			empty := ""
			r.layer = &empty
		case isFn && name == "layer":
			r.layer = &args
		case isFn && name == "supports":
			r.supports = args
			if !strings.Contains(args, "(") {
				r.supports = "(" + args + ")"
			}
		case isFn && name == "prefix":
			r.prefix = args
		case isFn && name == "theme":
			r.theme = args
		case isFn && name == "source":
		case tok == "important":
			r.important = true
		default:
			media = append(media, tok)
		}
	}
	r.media = strings.Join(media, " ")
	return r
}

// splitWords splits at top level whitespace.
func splitWords(s string) []string {
	var out []string
	depth := 0
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(':
			depth++
		case c == ')':
			depth--
		case (c == ' ' || c == '\t' || c == '\n') && depth == 0:
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// closing returns the index of the parenthesis matching the one at open.
func closing(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(s)
}
