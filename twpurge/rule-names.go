package twpurge

import (
	"bytes"
	"errors"
	"io"
	"sort"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"github.com/gotailwindcss/windpress/twcss"
)

// ClassNames returns the distinct classes selected by the rules of a
// compiled stylesheet, unescaped and sorted: `.md\:flex:hover` gives
// "md:flex". Only the first compound of each selector is looked at.
func ClassNames(r io.Reader) ([]string, error) {
	found := make(map[string]struct{})
	p := css.NewParser(parse.NewInput(r), false)

	for {
		gt, _, _ := p.Next()
		switch gt {
		case css.ErrorGrammar:
			err := p.Err()
			if errors.Is(err, io.EOF) {
				return sortedKeys(found), nil
			}
			return sortedKeys(found), err
		case css.QualifiedRuleGrammar, css.BeginRulesetGrammar:
			for _, sel := range splitSelectors(p.Values()) {
				if k := ruleClass(sel); k != "" {
					found[k] = struct{}{}
				}
			}
		}
	}
}

func splitSelectors(tokens []css.Token) [][]css.Token {
	var ret [][]css.Token
	start := 0
	for i, t := range tokens {
		if t.TokenType == css.CommaToken {
			ret = append(ret, tokens[start:i])
			start = i + 1
		}
	}
	return append(ret, tokens[start:])
}

// ruleClass looks for Delim('.') followed by Ident() and disregards
// everything after.
func ruleClass(tokens []css.Token) string {
	for len(tokens) > 0 && tokens[0].TokenType == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	if len(tokens) < 2 {
		return ""
	}
	if tokens[0].TokenType != css.DelimToken || !bytes.Equal(tokens[0].Data, []byte(".")) {
		return ""
	}
	if tokens[1].TokenType != css.IdentToken {
		return ""
	}
	return twcss.Unescape(string(tokens[1].Data))
}

func sortedKeys(m map[string]struct{}) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
