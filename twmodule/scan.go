package twmodule

import (
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceToken = iota
	lineCommentToken
	blockCommentToken
	singleQuotedToken
	doubleQuotedToken
	templateToken
	identifierToken
	anyToken
)

var whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
var lineCommentMatcher = parsly.NewToken(lineCommentToken, "LineComment", matcher.NewSeqBlock("//", "\n"))
var blockCommentMatcher = parsly.NewToken(blockCommentToken, "BlockComment", matcher.NewSeqBlock("/*", "*/"))
var singleQuotedMatcher = parsly.NewToken(singleQuotedToken, "SingleQuote", matcher.NewBlock('\'', '\'', '\\'))
var doubleQuotedMatcher = parsly.NewToken(doubleQuotedToken, "DoubleQuote", matcher.NewBlock('"', '"', '\\'))
var templateMatcher = parsly.NewToken(templateToken, "Template", &quotedMatch{quote: '`', escape: '\\'})
var identifierMatcher = parsly.NewToken(identifierToken, "Identifier", &identifierMatch{})
var anyMatcher = parsly.NewToken(anyToken, "Any", &anyMatch{})

// quotedMatch matches a literal delimited by quote. matcher.Block treats a
// backtick as an opening nested quote, so template literals need their own.
type quotedMatch struct {
	quote  byte
	escape byte
}

func (q *quotedMatch) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	if cursor.Pos >= cursor.InputSize || input[cursor.Pos] != q.quote {
		return 0
	}
	for i := cursor.Pos + 1; i < cursor.InputSize; i++ {
		switch input[i] {
		case q.escape:
			i++
		case q.quote:
			return i + 1 - cursor.Pos
		}
	}
	return 0
}

type anyMatch struct{}

func (a *anyMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos < cursor.InputSize {
		return 1
	}
	return 0
}

type identifierMatch struct{}

func (i *identifierMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize || !isIdentifierStart(cursor.Input[cursor.Pos]) {
		return 0
	}
	pos := cursor.Pos + 1
	for pos < cursor.InputSize && isIdentifierPart(cursor.Input[pos]) {
		pos++
	}
	return pos - cursor.Pos
}

func isIdentifierStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b == '$'
}

func isIdentifierPart(b byte) bool {
	return isIdentifierStart(b) || (b >= '0' && b <= '9')
}

// specifier is a module reference found in source. Offset and End delimit
// the string literal, quotes included.
type specifier struct {
	Value  string
	Offset int
	End    int
}

type scanState int

const (
	stateNone   scanState = iota
	stateImport           // just after "import"
	stateClause           // inside import/export bindings, waiting for "from"
	stateFrom             // just after "from"
	stateCall             // after "require", waiting for "("
	stateArg              // inside require( or import(
)

// scanImports finds the specifiers of static imports, re-exports, require
// calls and literal dynamic imports.
func scanImports(src string) []specifier {
	var ret []specifier
	cursor := parsly.NewCursor("", []byte(src), 0)
	state := stateNone
	prev := ""
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAfterOptional(whitespaceMatcher, lineCommentMatcher, blockCommentMatcher,
			singleQuotedMatcher, doubleQuotedMatcher, templateMatcher, identifierMatcher, anyMatcher)
		switch matched.Code {
		case parsly.EOF, parsly.Invalid:
			return ret
		case lineCommentToken, blockCommentToken:
			continue
		case identifierToken:
			word := matched.Text(cursor)
			switch {
			case prev == ".":
				if state != stateClause {
					state = stateNone
				}
			case word == "import":
				state = stateImport
			case word == "export":
				state = stateClause
			case word == "require":
				state = stateCall
			case word == "from" && state == stateClause:
				state = stateFrom
			case state == stateImport:
				state = stateClause
			case state == stateCall || state == stateFrom || state == stateArg:
				state = stateNone
			}
			prev = word
		case singleQuotedToken, doubleQuotedToken, templateToken:
			text := matched.Text(cursor)
			switch state {
			case stateImport, stateFrom, stateArg:
				if v, ok := unquote(text); ok {
					ret = append(ret, specifier{Value: v, Offset: matched.Offset, End: matched.Offset + len(text)})
				}
				state = stateNone
			case stateCall:
				state = stateNone
			}
			prev = text
		case anyToken:
			text := matched.Text(cursor)
			switch text {
			case "(":
				if state == stateCall || state == stateImport {
					state = stateArg
				} else if state != stateClause {
					state = stateNone
				}
			case "{", "}", "*", ",":
				if state == stateImport {
					state = stateClause
				} else if state != stateClause {
					state = stateNone
				}
			case ";":
				state = stateNone
			default:
				if state != stateClause {
					state = stateNone
				}
			}
			prev = text
		}
	}
	return ret
}

func unquote(lit string) (string, bool) {
	if len(lit) < 2 {
		return "", false
	}
	body := lit[1 : len(lit)-1]
	if lit[0] == '`' && strings.Contains(body, "${") {
		return "", false
	}
	if !strings.Contains(body, "\\") {
		return body, true
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String(), true
}
