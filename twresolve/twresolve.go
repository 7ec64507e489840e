// Package twresolve locates stylesheets referenced by @import: in the
// virtual file set first, then in the embedded distribution, then on the
// package registry, caching whatever it had to download back into the
// volume.
package twresolve

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/gotailwindcss/windpress/twembed"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twvfs"
)

// StylesheetNotFoundError is returned when a stylesheet is neither in the
// volume nor retrievable remotely.
type StylesheetNotFoundError struct {
	ID   string
	Base string
	Err  error
}

func (e *StylesheetNotFoundError) Error() string {
	msg := fmt.Sprintf("stylesheet %q not found", e.ID)
	if e.Base != "" {
		msg += " (from " + e.Base + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StylesheetNotFoundError) Unwrap() error { return e.Err }

// Stylesheet is a resolved stylesheet. Base is the directory (or URL
// directory) relative references inside it resolve against.
type Stylesheet struct {
	Path    string
	Base    string
	Content string
}

// Resolver resolves and loads stylesheets.
type Resolver struct {
	fetcher  twfetch.Fetcher
	registry string
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFetcher sets the remote fetcher.
func WithFetcher(f twfetch.Fetcher) Option { return func(r *Resolver) { r.fetcher = f } }

// WithRegistry sets the package registry base URL, it should end in "/".
func WithRegistry(u string) Option { return func(r *Resolver) { r.registry = u } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(r *Resolver) { r.logger = l } }

// New returns a Resolver. Without WithFetcher it downloads through
// twfetch.New().
func New(opts ...Option) *Resolver {
	r := &Resolver{registry: twfetch.DefaultRegistry, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	if r.fetcher == nil {
		r.fetcher = twfetch.New(twfetch.WithLogger(r.logger))
	}
	return r
}

// LoadStylesheet resolves id relative to base and returns its content.
func (r *Resolver) LoadStylesheet(ctx context.Context, id, base string, vol *twvfs.Volume) (*Stylesheet, error) {
	if twfetch.IsRemote(id) {
		return r.fetchRemote(ctx, id, id, base)
	}
	if twfetch.IsRemote(base) && isRelative(id) {
		u, err := twfetch.ResolveURL(base, id)
		if err != nil {
			return nil, &StylesheetNotFoundError{ID: id, Base: base, Err: err}
		}
		return r.fetchRemote(ctx, u, id, base)
	}

	var resolved string
	switch {
	case strings.HasPrefix(id, "/"):
		resolved = path.Clean(id)
	case isRelative(id):
		if base == "" {
			base = "/"
		}
		resolved = path.Join(base, id)
	default:
		resolved = path.Join("/node_modules", id)
	}

	if p, content, ok := lookup(vol, resolved); ok {
		return &Stylesheet{Path: p, Base: path.Dir(p), Content: content}, nil
	}
	if pkg := strings.TrimPrefix(resolved, "/node_modules/"); pkg != resolved {
		if p, content, ok := twembed.Stylesheet(pkg); ok {
			return &Stylesheet{Path: p, Base: path.Dir(p), Content: content}, nil
		}
	}

	u := r.registry + strings.TrimPrefix(strings.TrimPrefix(resolved, "/node_modules/"), "/")
	content, err := r.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, &StylesheetNotFoundError{ID: id, Base: base, Err: err}
	}
	content = RewriteRemoteRefs(content, u)
	if vol != nil {
		vol.Set(resolved, content)
	}
	r.logger.Debug("stylesheet cached from registry", "id", id, "url", u, "path", resolved)
	return &Stylesheet{Path: resolved, Base: path.Dir(resolved), Content: content}, nil
}

func (r *Resolver) fetchRemote(ctx context.Context, u, id, base string) (*Stylesheet, error) {
	content, err := r.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, &StylesheetNotFoundError{ID: id, Base: base, Err: err}
	}
	return &Stylesheet{Path: u, Base: twfetch.Dir(u), Content: RewriteRemoteRefs(content, u)}, nil
}

func lookup(vol *twvfs.Volume, resolved string) (string, string, bool) {
	if vol == nil {
		return "", "", false
	}
	for _, p := range []string{resolved, resolved + ".css", path.Join(resolved, "index.css")} {
		if c, ok := vol.Get(p); ok {
			return p, c, true
		}
	}
	return "", "", false
}

func isRelative(id string) bool {
	return strings.HasPrefix(id, "./") || strings.HasPrefix(id, "../") || id == "." || id == ".."
}

var remoteRefRe = regexp.MustCompile(`@(config|plugin)\s+(["'])([^"']+)["']`)

// RewriteRemoteRefs turns relative @config and @plugin paths inside a
// stylesheet fetched from URL into absolute URLs, so they keep pointing at
// the registry once the stylesheet is inlined elsewhere.
func RewriteRemoteRefs(content, URL string) string {
	return remoteRefRe.ReplaceAllStringFunc(content, func(m string) string {
		sub := remoteRefRe.FindStringSubmatch(m)
		if !isRelative(sub[3]) {
			return m
		}
		u, err := twfetch.ResolveURL(URL, sub[3])
		if err != nil {
			return m
		}
		return "@" + sub[1] + " " + sub[2] + u + sub[2]
	})
}
