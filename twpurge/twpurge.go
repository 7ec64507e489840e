// Package twpurge finds Tailwind class candidates in raw content: markup,
// scripts, templates, anything that holds class names as text. It does not
// parse the content, it tokenizes it and keeps what looks like a class.
package twpurge

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/gotailwindcss/windpress/twvfs"
)

// FindCandidates returns every token of text shaped like a class candidate,
// in order of appearance and with repeats.
func FindCandidates(text string) []string {
	var ret []string
	tz := NewDefaultTokenizer(strings.NewReader(text))
	for {
		tok, err := tz.NextToken()
		if err != nil {
			break
		}
		ret = appendCandidates(ret, string(tok))
	}
	return ret
}

// appendCandidates appends tok when it is a candidate. Tokens glued by
// markup the tokenizer keeps, such as class="a" inside a JS string or
// x-bind:class="{'a': b}", are tried again after the last '='.
func appendCandidates(dst []string, tok string) []string {
	if IsCandidate(tok) {
		return append(dst, tok)
	}
	if i := strings.LastIndexByte(tok, '='); i >= 0 && strings.IndexByte(tok[:i], '[') < 0 {
		if rest := string(trimToken([]byte(tok[i+1:]))); IsCandidate(rest) {
			return append(dst, rest)
		}
	}
	return dst
}

// IsCandidate reports whether s has the shape [variant:]*[!]base[/modifier][!].
// The base starts with a letter, '-', '@' or '[' and brackets balance.
func IsCandidate(s string) bool {
	if s == "" || len(s) > 256 {
		return false
	}
	segs := splitVariants(s)
	if segs == nil {
		return false
	}
	for _, v := range segs[:len(segs)-1] {
		if v == "" || !validChars(v) {
			return false
		}
	}
	base := segs[len(segs)-1]
	base = strings.TrimPrefix(base, "!")
	base = strings.TrimSuffix(base, "!")
	if base == "" || strings.HasSuffix(base, "-") || strings.HasSuffix(base, "/") {
		return false
	}
	c := base[0]
	if c == '-' && len(base) > 1 {
		c = base[1]
	}
	if !(c >= 'a' && c <= 'z' || c == '@' || c == '[') {
		return false
	}
	if !validChars(base) {
		return false
	}
	if c == '[' {
		// arbitrary property, [mask-type:luminance]
		return strings.HasSuffix(strings.SplitN(base, "/", 2)[0], "]") && strings.Contains(base, ":")
	}
	return true
}

// splitVariants splits on ':' outside brackets and parentheses. nil means
// the brackets do not balance.
func splitVariants(s string) []string {
	var segs []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth < 0 {
				return nil
			}
		case ':':
			if depth == 0 {
				segs = append(segs, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil
	}
	return append(segs, s[start:])
}

// validChars checks the characters outside brackets.
func validChars(s string) bool {
	depth := 0
	letter := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case depth > 0:
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			letter = true
		case c >= '0' && c <= '9', c == '-', c == '_', c == '.', c == '/', c == '%', c == '!', c == '@', c == '*', c == '&', c == '#':
		default:
			return false
		}
		if depth > 0 && (c == '[' || c == '(') {
			letter = true
		}
	}
	return letter
}

// DefaultExtensions are the file extensions a Scanner reads unless
// configured otherwise.
var DefaultExtensions = []string{
	".html", ".htm", ".php", ".twig", ".vue", ".vugu", ".jsx", ".tsx", ".js", ".ts",
	".mjs", ".svelte", ".astro", ".templ", ".md", ".mdx", ".erb", ".blade.php",
}

// MatchDefault reports whether fn ends in one of DefaultExtensions.
func MatchDefault(fn string) bool {
	fn = strings.ToLower(fn)
	for _, ext := range DefaultExtensions {
		if strings.HasSuffix(fn, ext) {
			return true
		}
	}
	return false
}

// Scanner accumulates the distinct candidates of the content it is fed.
// It is safe for concurrent use.
type Scanner struct {
	patterns []string
	match    func(fn string) bool
	ignore   *ignore.GitIgnore
	logger   *slog.Logger

	mu    sync.Mutex
	found map[string]struct{}
	files int
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithPatterns sets the doublestar globs of the files to read, relative to
// the scanned root. Default "**/*".
func WithPatterns(patterns ...string) ScannerOption {
	return func(s *Scanner) { s.patterns = patterns }
}

// WithExtensions limits scanned files to the given extensions.
func WithExtensions(exts ...string) ScannerOption {
	return func(s *Scanner) {
		s.match = func(fn string) bool {
			fn = strings.ToLower(fn)
			for _, ext := range exts {
				if strings.HasSuffix(fn, strings.ToLower(ext)) {
					return true
				}
			}
			return false
		}
	}
}

// WithMatch sets the file name filter, MatchDefault by default.
func WithMatch(match func(fn string) bool) ScannerOption {
	return func(s *Scanner) { s.match = match }
}

// WithIgnore adds gitignore lines excluding files from the scan, on top of
// the .gitignore found at the scanned root.
func WithIgnore(lines ...string) ScannerOption {
	return func(s *Scanner) { s.ignore = ignore.CompileIgnoreLines(lines...) }
}

// WithScannerLogger sets the logger.
func WithScannerLogger(lg *slog.Logger) ScannerOption {
	return func(s *Scanner) { s.logger = lg }
}

// NewScanner returns an empty Scanner.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		patterns: []string{"**/*"},
		match:    MatchDefault,
		logger:   slog.Default(),
		found:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseReader adds the candidates of r.
func (s *Scanner) ParseReader(r io.Reader) error {
	var found []string
	tz := NewDefaultTokenizer(r)
	for {
		tok, err := tz.NextToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		found = appendCandidates(found, string(tok))
	}
	s.Add(found...)
	return nil
}

// Add adds candidates found elsewhere.
func (s *Scanner) Add(candidates ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range candidates {
		s.found[c] = struct{}{}
	}
}

// ScanFS reads the files of fsys matching the patterns and extensions that
// are not ignored. A .gitignore at the root of fsys is honored.
func (s *Scanner) ScanFS(fsys fs.FS) error {
	ignores := []*ignore.GitIgnore{s.ignore}
	if b, err := fs.ReadFile(fsys, ".gitignore"); err == nil {
		ignores = append(ignores, ignore.CompileIgnoreLines(strings.Split(string(b), "\n")...))
	}
	return s.scanFS(fsys, ignores...)
}

func (s *Scanner) scanFS(fsys fs.FS, ignores ...*ignore.GitIgnore) error {
	seen := make(map[string]bool)
	for _, pattern := range s.patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
		for _, fn := range matches {
			if seen[fn] || !s.wants(fn, ignores) {
				continue
			}
			seen[fn] = true
			if err := s.scanFile(fsys, fn); err != nil {
				return err
			}
		}
	}
	s.logger.Debug("scanned content", "files", len(seen), "candidates", s.Len())
	return nil
}

func (s *Scanner) wants(fn string, ignores []*ignore.GitIgnore) bool {
	if !s.match(fn) {
		return false
	}
	for _, gi := range ignores {
		if gi != nil && gi.MatchesPath(fn) {
			return false
		}
	}
	return true
}

func (s *Scanner) scanFile(fsys fs.FS, fn string) error {
	f, err := fsys.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := s.ParseReader(f); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	s.mu.Lock()
	s.files++
	s.mu.Unlock()
	return nil
}

// ScanDir is ScanFS over a directory of the local file system.
func (s *Scanner) ScanDir(dir string) error {
	return s.ScanFS(os.DirFS(dir))
}

// ScanVolume reads the volume files matching the patterns and extensions.
// Stylesheets and configuration are content too when their extension is
// selected, as with any other file.
func (s *Scanner) ScanVolume(vol *twvfs.Volume) error {
	files := vol.Map()
	ignores := []*ignore.GitIgnore{s.ignore}
	if gi, ok := files["/.gitignore"]; ok {
		ignores = append(ignores, ignore.CompileIgnoreLines(strings.Split(gi, "\n")...))
	}
	for _, p := range vol.Paths() {
		rel := strings.TrimPrefix(path.Clean(p), "/")
		if !s.matchPattern(rel) || !s.wants(rel, ignores) {
			continue
		}
		if err := s.ParseReader(strings.NewReader(files[p])); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		s.mu.Lock()
		s.files++
		s.mu.Unlock()
	}
	return nil
}

func (s *Scanner) matchPattern(rel string) bool {
	for _, pattern := range s.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Has reports whether c was found.
func (s *Scanner) Has(c string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.found[c]
	return ok
}

// Len returns the number of distinct candidates found.
func (s *Scanner) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.found)
}

// Files returns the number of files read.
func (s *Scanner) Files() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files
}

// Candidates returns the distinct candidates found, sorted.
func (s *Scanner) Candidates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]string, 0, len(s.found))
	for c := range s.found {
		ret = append(ret, c)
	}
	sort.Strings(ret)
	return ret
}

// Reset forgets everything found.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.found = make(map[string]struct{})
	s.files = 0
}
