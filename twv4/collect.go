package twv4

import (
	"strconv"
	"strings"

	"github.com/gotailwindcss/windpress/twcss"
)

// collector pulls the configuration at-rules out of a bundled stylesheet.
type collector struct {
	themes    []*twcss.Node
	variants  []*twcss.Node
	utilities []*twcss.Node
	plugins   []*twcss.Node
	configs   []*twcss.Node
	sources   []string
	blocked   map[string]bool

	marked bool
}

// collect removes @theme, @custom-variant, @utility, @plugin, @config and
// @source from nodes. The first emitting @theme is replaced by the
// "@tailwind theme" marker where the used variables are written later.
func (c *collector) collect(nodes []*twcss.Node) []*twcss.Node {
	return twcss.Replace(nodes, func(n *twcss.Node) ([]*twcss.Node, bool) {
		if n.Kind != twcss.AtRule {
			return nil, false
		}
		switch n.Name {
		case "theme":
			c.themes = append(c.themes, n)
			if c.marked || strings.Contains(n.Params, "reference") {
				return nil, true
			}
			c.marked = true
			m := twcss.NewStatement("tailwind", "theme")
			m.Source = n.Source
			return []*twcss.Node{m}, true
		case "custom-variant":
			c.variants = append(c.variants, n)
		case "utility":
			c.utilities = append(c.utilities, n)
		case "plugin":
			c.plugins = append(c.plugins, n)
		case "config":
			c.configs = append(c.configs, n)
		case "source":
			c.source(n.Params)
		default:
			return nil, false
		}
		return nil, true
	})
}

// source handles @source. Paths are of no use without a file system scan
// and are dropped; inline() candidates are kept, or blocked after "not".
func (c *collector) source(params string) {
	params = strings.TrimSpace(params)
	not := false
	if rest, ok := strings.CutPrefix(params, "not "); ok {
		not = true
		params = strings.TrimSpace(rest)
	}
	args, ok := strings.CutPrefix(params, "inline(")
	if !ok {
		return
	}
	args = strings.Trim(strings.TrimSpace(strings.TrimSuffix(args, ")")), `"'`)
	for _, word := range strings.Fields(args) {
		for _, cand := range expandBraces(word) {
			if not {
				c.blocked[cand] = true
			} else {
				c.sources = append(c.sources, cand)
			}
		}
	}
}

// expandBraces expands {a,b} alternatives and {from..to..step} ranges:
// "hover:bg-red-{50,{100..300..100}}" gives bg-red-50, -100, -200, -300.
func expandBraces(s string) []string {
	open := strings.IndexByte(s, '{')
	if open < 0 {
		return []string{s}
	}
	depth := 0
	end := -1
	for i := open; i < len(s) && end < 0; i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
	}
	if end < 0 {
		return []string{s}
	}
	prefix, body, suffix := s[:open], s[open+1:end], s[end+1:]

	var alts []string
	if r, ok := braceRange(body); ok {
		alts = r
	} else {
		for _, part := range splitBraceList(body) {
			alts = append(alts, expandBraces(part)...)
		}
	}
	var out []string
	for _, a := range alts {
		for _, rest := range expandBraces(suffix) {
			out = append(out, prefix+a+rest)
		}
	}
	return out
}

func splitBraceList(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func braceRange(s string) ([]string, bool) {
	parts := strings.Split(s, "..")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, false
	}
	from, err1 := strconv.Atoi(parts[0])
	to, err2 := strconv.Atoi(parts[1])
	step := 1
	var err3 error
	if len(parts) == 3 {
		step, err3 = strconv.Atoi(parts[2])
	}
	if err1 != nil || err2 != nil || err3 != nil || step <= 0 {
		return nil, false
	}
	var out []string
	if from <= to {
		for i := from; i <= to; i += step {
			out = append(out, strconv.Itoa(i))
		}
	} else {
		for i := from; i >= to; i -= step {
			out = append(out, strconv.Itoa(i))
		}
	}
	return out, true
}
