// Package twoptimize finishes compiled CSS for the browsers it targets:
// malformed input is dropped and reported as warnings, nesting is
// flattened, vendor prefixed declarations are added where the targets need
// them, and the result is optionally minified.
package twoptimize

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"github.com/gotailwindcss/windpress/twcss"
)

// Targets are the minimum major browser versions output must work in.
type Targets struct {
	Safari  int
	Chrome  int
	Firefox int
}

// DefaultTargets are the browsers Tailwind 4 supports.
var DefaultTargets = Targets{Safari: 15, Chrome: 111, Firefox: 128}

// Warning is a recoverable problem of the input. The construct it is about
// is left out of the output.
type Warning struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%d:%d: %s", w.Line, w.Column, w.Message)
}

// Result is the optimized stylesheet. CSS is the readable form, Code the
// bytes to serve: minified when asked for, else the same as CSS.
type Result struct {
	Code     []byte
	CSS      string
	Warnings []Warning
}

type options struct {
	targets Targets
	logger  *slog.Logger
}

// Option configures Optimize.
type Option func(*options)

// WithTargets overrides DefaultTargets.
func WithTargets(t Targets) Option { return func(o *options) { o.targets = t } }

// WithLogger sets the logger warnings are reported to at debug level.
func WithLogger(lg *slog.Logger) Option { return func(o *options) { o.logger = lg } }

// Optimize processes css. Syntax problems never fail it, they come back as
// warnings; an error means the minifier failed.
func Optimize(src string, minified bool, opts ...Option) (*Result, error) {
	o := options{targets: DefaultTargets, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	nodes, errs := twcss.ParseRecover(src, "")
	res := &Result{}
	for _, e := range errs {
		res.Warnings = append(res.Warnings, Warning{Line: e.Line, Column: e.Column, Message: e.Msg})
		o.logger.Debug("css warning", "line", e.Line, "column", e.Column, "message", e.Msg)
	}
	nodes = twcss.Flatten(nodes)
	nodes = addPrefixes(nodes, o.targets)
	res.CSS = twcss.Print(nodes)
	if !minified {
		res.Code = []byte(res.CSS)
		return res, nil
	}

	code, err := Minify(res.CSS)
	if err != nil {
		return nil, err
	}
	res.Code = code
	return res, nil
}

// Build returns the readable and the minified stylesheet, sharing the
// warnings.
func Build(src string, opts ...Option) (normal, minified *Result, err error) {
	normal, err = Optimize(src, false, opts...)
	if err != nil {
		return nil, nil, err
	}
	code, err := Minify(normal.CSS)
	if err != nil {
		return nil, nil, err
	}
	minified = &Result{Code: code, CSS: normal.CSS, Warnings: normal.Warnings}
	return normal, minified, nil
}

// Minify minifies css, keeping a leading license comment.
func Minify(src string) ([]byte, error) {
	license, rest := splitLicense(src)
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	var buf bytes.Buffer
	if license != "" {
		buf.WriteString(license)
		buf.WriteByte('\n')
	}
	if err := m.Minify("text/css", &buf, strings.NewReader(rest)); err != nil {
		return nil, fmt.Errorf("minify: %w", err)
	}
	return buf.Bytes(), nil
}

func splitLicense(s string) (string, string) {
	t := strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(t, "/*!") {
		return "", s
	}
	end := strings.Index(t, "*/")
	if end < 0 {
		return "", s
	}
	return t[:end+2], t[end+2:]
}
