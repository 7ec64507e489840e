// Package twfetch retrieves remote sources (stylesheets, config modules,
// plugins) that are not present in the virtual file set.
package twfetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/viant/afs"
)

// DefaultRegistry is the package CDN used for bare package specifiers.
const DefaultRegistry = "https://cdn.jsdelivr.net/npm/"

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 30 * time.Second

// Fetcher returns the text behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, URL string) (string, error)
}

// FetchError is returned when a remote source cannot be retrieved.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// Service fetches through an afs storage service, so any scheme afs knows
// (http, https, file, mem) works.
type Service struct {
	fs      afs.Service
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithStorage replaces the afs service.
func WithStorage(fs afs.Service) Option { return func(s *Service) { s.fs = fs } }

// New returns a Service.
func New(opts ...Option) *Service {
	s := &Service{fs: afs.New(), timeout: DefaultTimeout, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Fetch downloads URL.
func (s *Service) Fetch(ctx context.Context, URL string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		s.logger.Warn("fetch failed", "url", URL, "error", err)
		return "", &FetchError{URL: URL, Err: err}
	}
	s.logger.Debug("fetched", "url", URL, "bytes", len(data), "took", time.Since(start))
	return string(data), nil
}

// Static serves fixed contents keyed by URL, e.g. a pre-seeded offline cache.
type Static map[string]string

// Fetch implements Fetcher.
func (m Static) Fetch(_ context.Context, URL string) (string, error) {
	if s, ok := m[URL]; ok {
		return s, nil
	}
	return "", &FetchError{URL: URL, Err: fmt.Errorf("not found")}
}

// IsRemote reports whether p is an absolute http(s) URL.
func IsRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// ResolveURL resolves ref against the remote base URL.
func ResolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// Dir returns the URL with its last path segment removed, ending in "/".
func Dir(URL string) string {
	u, err := url.Parse(URL)
	if err != nil {
		return URL
	}
	u.RawQuery = ""
	u.Fragment = ""
	if i := strings.LastIndexByte(u.Path, '/'); i >= 0 {
		u.Path = u.Path[:i+1]
	}
	return u.String()
}
