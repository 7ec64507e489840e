package twpurge

import (
	"bufio"
	"bytes"
	"io"
)

// Tokenizer returns the next token from a content source.
type Tokenizer interface {
	NextToken() ([]byte, error) // returns a token or error (not both), io.EOF indicates end of stream
}

func isbr(c byte) bool {
	switch c {
	// NOTE: ASCII is enough, no class candidate contains multi byte breaks.
	case '<', '>', '"', '\'', '`', '{', '}', ',', ';',
		'\t', '\n', '\v', '\f', '\r', ' ':
		return true
	}
	return false
}

// maxToken bounds a single token, minified bundles have very long runs
// without breaks.
const maxToken = 1 << 20

// NewDefaultTokenizer returns a Tokenizer splitting r on markup, quote and
// space breaks. Breaks inside square brackets do not split, so arbitrary
// values such as grid-cols-[1fr,_2fr] or content-['a_b'] stay whole.
func NewDefaultTokenizer(r io.Reader) *DefaultTokenizer {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxToken)
	s.Split(func(data []byte, atEOF bool) (advance int, token []byte, err error) {

		// consume any break text
		for len(data) > 0 {
			if !isbr(data[0]) {
				break
			}
			data = data[1:]
			advance++
		}

		// now read through any non-break text, tracking brackets
		depth := 0
		var i int
		for i = 0; i < len(data); i++ {
			switch c := data[i]; {
			case c == '[':
				depth++
				continue
			case c == ']' && depth > 0:
				depth--
				continue
			case c == '\n' || c == '<':
				// an unbalanced bracket never runs past a line or tag
				depth = 0
			case depth > 0:
				continue
			}
			if isbr(data[i]) {
				if i > 0 {
					token = data[:i]
				}
				advance += i
				return
			}
		}

		// read until the end of the buffer, still in non-break text
		if atEOF {
			if i > 0 {
				token = data[:i]
			}
			advance += i
			return
		}

		// not end of stream, ask for more (advance may have been incremented above)
		return advance, nil, nil
	})
	return &DefaultTokenizer{
		s: s,
	}
}

// DefaultTokenizer implements Tokenizer with a sensible default tokenization.
type DefaultTokenizer struct {
	s *bufio.Scanner
}

// NextToken implements Tokenizer. Tokens are trimmed of the punctuation
// that surrounds class names in markup and code: class=, :class, (x), x.
func (t *DefaultTokenizer) NextToken() ([]byte, error) {
	for t.s.Scan() {
		b := trimToken(t.s.Bytes())
		if len(b) == 0 {
			continue
		}
		return b, nil
	}
	if err := t.s.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func trimToken(b []byte) []byte {
	b = bytes.TrimLeft(b, `/\:=(.$#`)
	for len(b) > 0 {
		c := b[len(b)-1]
		if c == ')' && bytes.IndexByte(b, '(') >= 0 {
			break
		}
		if bytes.IndexByte([]byte(`/\:=().?`), c) < 0 {
			break
		}
		b = b[:len(b)-1]
	}
	return b
}
