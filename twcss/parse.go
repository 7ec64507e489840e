package twcss

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// SyntaxError describes a problem found while parsing. Line and Column are
// 1-based.
type SyntaxError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
}

// Parse parses a stylesheet, nested rules included. The first syntax error
// is returned.
func Parse(src, file string) ([]*Node, error) {
	nodes, errs := ParseRecover(src, file)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return nodes, nil
}

// ParseRecover parses like Parse but skips past malformed constructs,
// returning every problem found along with what could be parsed.
func ParseRecover(src, file string) ([]*Node, []*SyntaxError) {
	p := &parser{src: src, file: file}
	l := css.NewLexer(parse.NewInputString(src))
	off := 0
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			break
		}
		p.toks = append(p.toks, token{tt: tt, data: string(data), off: off})
		off += len(data)
	}
	p.toks = append(p.toks, token{tt: css.ErrorToken, off: off})
	nodes := p.parseList(false)
	return nodes, p.errs
}

type token struct {
	tt   css.TokenType
	data string
	off  int
}

type parser struct {
	src  string
	file string
	toks []token
	pos  int
	errs []*SyntaxError
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.tt != css.ErrorToken {
		p.pos++
	}
	return t
}

func (p *parser) errorf(off int, format string, args ...interface{}) {
	line, col := 1, 1
	for i := 0; i < off && i < len(p.src); i++ {
		if p.src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	p.errs = append(p.errs, &SyntaxError{File: p.file, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) skipWhitespace() {
	for p.peek().tt == css.WhitespaceToken {
		p.pos++
	}
}

func (p *parser) parseList(nested bool) []*Node {
	var out []*Node
	for {
		p.skipWhitespace()
		t := p.peek()
		switch t.tt {
		case css.ErrorToken:
			return out
		case css.RightBraceToken:
			if nested {
				return out
			}
			p.errorf(t.off, "unexpected }")
			p.pos++
		case css.SemicolonToken, css.CDOToken, css.CDCToken:
			p.pos++
		case css.CommentToken:
			p.pos++
			out = append(out, &Node{Kind: Comment, Text: t.data, Source: p.file})
		case css.AtKeywordToken:
			out = append(out, p.parseAtRule())
		default:
			if n := p.parseRuleOrDecl(); n != nil {
				out = append(out, n)
			}
		}
	}
}

// prelude reads raw tokens up to a top level ; { or } and returns them with
// the terminating token, which is not consumed.
func (p *parser) prelude() ([]token, token) {
	var toks []token
	depth := 0
	for {
		t := p.peek()
		switch t.tt {
		case css.ErrorToken:
			return toks, t
		case css.SemicolonToken, css.LeftBraceToken, css.RightBraceToken:
			if depth == 0 {
				return toks, t
			}
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		}
		p.pos++
		toks = append(toks, t)
	}
}

func (p *parser) block() ([]*Node, bool) {
	open := p.next()
	nodes := p.parseList(true)
	if p.peek().tt != css.RightBraceToken {
		p.errorf(open.off, "unclosed block")
		return nodes, false
	}
	p.pos++
	if nodes == nil {
		nodes = []*Node{}
	}
	return nodes, true
}

func (p *parser) parseAtRule() *Node {
	at := p.next()
	toks, term := p.prelude()
	n := &Node{Kind: AtRule, Name: strings.ToLower(at.data[1:]), Params: joinTokens(toks, true), Source: p.file}
	switch term.tt {
	case css.LeftBraceToken:
		n.Block = true
		n.Nodes, _ = p.block()
	case css.SemicolonToken:
		p.pos++
	}
	return n
}

func (p *parser) parseRuleOrDecl() *Node {
	start := p.peek()
	toks, term := p.prelude()
	if term.tt == css.LeftBraceToken {
		sel := joinTokens(toks, true)
		if sel == "" {
			p.errorf(start.off, "missing selector")
		}
		n := &Node{Kind: Rule, Selector: sel, Source: p.file}
		n.Nodes, _ = p.block()
		if sel == "" {
			return nil
		}
		return n
	}
	if term.tt == css.SemicolonToken {
		p.pos++
	}
	return p.declaration(start, toks)
}

func (p *parser) declaration(start token, toks []token) *Node {
	colon := -1
	depth := 0
	for i, t := range toks {
		switch t.tt {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.ColonToken:
			if depth == 0 && colon < 0 {
				colon = i
			}
		}
	}
	if colon < 0 {
		p.errorf(start.off, "invalid declaration %q", joinTokens(toks, true))
		return nil
	}
	prop := joinTokens(toks[:colon], true)
	if prop == "" || strings.ContainsAny(prop, " \t\n") {
		p.errorf(start.off, "invalid property name %q", prop)
		return nil
	}
	custom := strings.HasPrefix(prop, "--")
	value := joinTokens(toks[colon+1:], !custom)
	n := &Node{Kind: Decl, Property: prop, Source: p.file}
	if !custom {
		prop = strings.ToLower(prop)
		n.Property = prop
	}
	n.Value, n.Important = splitImportant(value)
	return n
}

func splitImportant(value string) (string, bool) {
	i := strings.LastIndexByte(value, '!')
	if i < 0 {
		return value, false
	}
	if strings.EqualFold(strings.TrimSpace(value[i+1:]), "important") {
		return strings.TrimSpace(value[:i]), true
	}
	return value, false
}

// joinTokens concatenates token text, dropping comments. When collapse is
// set, whitespace runs become a single space and the ends are trimmed.
func joinTokens(toks []token, collapse bool) string {
	var b strings.Builder
	space := false
	for _, t := range toks {
		switch t.tt {
		case css.CommentToken:
			continue
		case css.WhitespaceToken:
			if collapse {
				space = b.Len() > 0
				continue
			}
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteString(t.data)
	}
	return strings.TrimSpace(b.String())
}
