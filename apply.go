package windpress

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
)

// maxApplyDepth bounds @apply chains through user classes that @apply
// each other.
const maxApplyDepth = 32

// Expand resolves the directives a design system answers, in place where
// possible: @apply, @variant, @screen, screen() and the theme functions in
// values and at-rule preludes. Errors name the source file of the rule
// they happened in.
func Expand(ds *twdesign.DesignSystem, nodes []*twcss.Node) ([]*twcss.Node, error) {
	a := &applier{ds: ds}
	out := a.expand(nodes, 0)
	return out, a.err
}

type applier struct {
	ds  *twdesign.DesignSystem
	err error
}

func (a *applier) fail(n *twcss.Node, err error) {
	if a.err != nil {
		return
	}
	if n != nil && n.Source != "" {
		err = fmt.Errorf("%s: %w", n.Source, err)
	}
	a.err = err
}

func (a *applier) expand(nodes []*twcss.Node, depth int) []*twcss.Node {
	return twcss.Replace(nodes, func(n *twcss.Node) ([]*twcss.Node, bool) {
		if a.err != nil {
			return nil, false
		}
		switch n.Kind {
		case twcss.Decl:
			v, err := a.ds.ResolveFunctions(n.Value)
			if err != nil {
				a.fail(n, err)
			}
			n.Value = v
			return nil, false
		case twcss.AtRule:
			return a.atRule(n, depth)
		}
		return nil, false
	})
}

func (a *applier) atRule(n *twcss.Node, depth int) ([]*twcss.Node, bool) {
	switch n.Name {
	case "apply":
		if depth >= maxApplyDepth {
			a.fail(n, errors.New("@apply nests too deep, classes probably apply each other"))
			return nil, true
		}
		classes, important := parseApply(n.Params)
		body, err := a.ds.Apply(classes)
		if err != nil {
			a.fail(n, err)
			return nil, true
		}
		if important {
			twcss.Walk(body, func(c *twcss.Node) bool {
				if c.Kind == twcss.Decl {
					c.Important = true
				}
				return true
			})
		}
		return a.expand(body, depth+1), true
	case "variant":
		if !n.Block {
			return nil, false
		}
		body, ok := a.ds.ApplyVariant(strings.TrimSpace(n.Params), n.Nodes)
		if !ok {
			a.fail(n, fmt.Errorf("cannot use @variant with unknown variant: %s", n.Params))
			return nil, true
		}
		return a.expand(body, depth), true
	case "screen":
		bp, ok := a.screen(strings.TrimSpace(n.Params))
		if !ok {
			a.fail(n, fmt.Errorf("no `%s` screen found", n.Params))
			return nil, true
		}
		return a.expand([]*twcss.Node{twcss.NewAtRule("media", bp, n.Nodes...)}, depth), true
	}
	if strings.Contains(n.Params, "screen(") {
		n.Params = a.replaceScreen(n, n.Params)
	}
	if strings.Contains(n.Params, "theme(") {
		v, err := a.ds.ResolveFunctions(n.Params)
		if err != nil {
			a.fail(n, err)
		}
		n.Params = v
	}
	return nil, false
}

// parseApply splits "@apply font-bold hover:underline !important".
func parseApply(params string) ([]string, bool) {
	fields := strings.Fields(params)
	important := false
	classes := fields[:0:0]
	for _, f := range fields {
		if f == "!important" {
			important = true
			continue
		}
		classes = append(classes, f)
	}
	return classes, important
}

// screen returns the media query of a breakpoint name.
func (a *applier) screen(name string) (string, bool) {
	v, ok := a.ds.Theme.Get("--breakpoint-" + name)
	if !ok {
		return "", false
	}
	return "(min-width: " + v + ")", true
}

func (a *applier) replaceScreen(n *twcss.Node, params string) string {
	for {
		i := strings.Index(params, "screen(")
		if i < 0 {
			return params
		}
		end := strings.IndexByte(params[i:], ')')
		if end < 0 {
			return params
		}
		name := strings.Trim(strings.TrimSpace(params[i+len("screen("):i+end]), `"'`)
		bp, ok := a.screen(name)
		if !ok {
			a.fail(n, fmt.Errorf("no `%s` screen found", name))
			return params
		}
		params = params[:i] + bp + params[i+end+1:]
	}
}
