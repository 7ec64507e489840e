// Package twcache builds the committed stylesheet of a site: it pages
// through content providers, extracts candidates and compiles them once,
// so visitors get a cached file instead of an in-page compile.
package twcache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twoptimize"
	"github.com/gotailwindcss/windpress/twpurge"
	"github.com/gotailwindcss/windpress/twvfs"
)

// Kind is how much of the content is rescanned.
type Kind string

const (
	KindFull        Kind = "full"
	KindIncremental Kind = "incremental"
)

// BuildCacheOptions describe a cache build request.
type BuildCacheOptions struct {
	Kind        Kind         `json:"kind"`
	Incremental *Incremental `json:"incremental,omitempty"`
}

// Incremental lists the providers to rescan.
type Incremental struct {
	Providers []string `json:"providers"`
}

// Validate checks the kind and that incremental builds name providers.
func (o BuildCacheOptions) Validate() error {
	switch o.Kind {
	case KindFull:
		return nil
	case KindIncremental:
		if o.Incremental == nil || len(o.Incremental.Providers) == 0 {
			return fmt.Errorf("incremental cache build without providers")
		}
		return nil
	}
	return fmt.Errorf("unknown cache build kind %q", o.Kind)
}

// Message returns the bus message requesting the build.
func (o BuildCacheOptions) Message(source string) (twbus.Message, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return twbus.Message{}, err
	}
	return twbus.Message{Channel: twbus.Channel, Source: source, Task: twbus.TaskCacheGenerate, Data: data}, nil
}

// ParseOptions reads the options of a cache.generate message. A message
// without data is a full build.
func ParseOptions(m twbus.Message) (BuildCacheOptions, error) {
	o := BuildCacheOptions{Kind: KindFull}
	if len(m.Data) > 0 {
		if err := json.Unmarshal(m.Data, &o); err != nil {
			return o, fmt.Errorf("cache options: %w", err)
		}
	}
	return o, o.Validate()
}

// Batch is the next page number of a provider, or none when the provider
// is exhausted. It reads JSON numbers, numeric strings, false and null.
type Batch struct {
	N     int
	Valid bool
}

// NextBatch returns a batch pointing at page n.
func NextBatch(n int) Batch { return Batch{N: n, Valid: true} }

func (b Batch) MarshalJSON() ([]byte, error) {
	if !b.Valid {
		return []byte("false"), nil
	}
	return []byte(strconv.Itoa(b.N)), nil
}

func (b *Batch) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	switch s {
	case "false", "null", `""`:
		*b = Batch{}
		return nil
	}
	if uq, err := strconv.Unquote(s); err == nil {
		s = uq
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("next_batch %s: %w", data, err)
	}
	*b = NextBatch(n)
	return nil
}

// Metadata is the paging part of a Page.
type Metadata struct {
	NextBatch Batch `json:"next_batch"`
}

// Page is one batch of provider content.
type Page struct {
	Contents []windpress.ContentRecord `json:"contents"`
	Metadata Metadata                  `json:"metadata"`
}

// Provider yields site content page by page. Scan is first called with
// batch 1, then with each page's next batch until there is none.
type Provider interface {
	ID() string
	Scan(ctx context.Context, batch int) (*Page, error)
}

// Result describes a finished build.
type Result struct {
	Kind       Kind          `json:"kind"`
	Providers  []string      `json:"providers"`
	Pages      int           `json:"pages"`
	Candidates int           `json:"candidates"`
	Bytes      int           `json:"bytes"`
	URL        string        `json:"url,omitempty"`
	Took       time.Duration `json:"took"`
	CSS        string        `json:"-"`
}

// Builder runs cache builds. Candidates are remembered per provider so an
// incremental build only rescans the providers it names. It is safe for
// concurrent use; builds run one at a time.
type Builder struct {
	engine     windpress.Engine
	providers  []Provider
	entrypoint string
	outputURL  string
	maxPages   int
	minify     bool
	fs         afs.Service
	logger     *slog.Logger

	mu    sync.Mutex
	known map[string]map[string]struct{}
}

// Option configures a Builder.
type Option func(*Builder)

// WithProviders registers content providers.
func WithProviders(p ...Provider) Option {
	return func(b *Builder) { b.providers = append(b.providers, p...) }
}

// WithEntrypoint sets the stylesheet compiled, windpress.DefaultEntrypoint
// by default.
func WithEntrypoint(p string) Option { return func(b *Builder) { b.entrypoint = p } }

// WithOutput sets the storage URL the stylesheet is uploaded to. Without
// it builds only return the CSS.
func WithOutput(u string) Option { return func(b *Builder) { b.outputURL = u } }

// WithMaxPages bounds the pages read from one provider, default 1000.
func WithMaxPages(n int) Option { return func(b *Builder) { b.maxPages = n } }

// WithMinify minifies the output, on by default.
func WithMinify(on bool) Option { return func(b *Builder) { b.minify = on } }

// WithStorage replaces the afs service used for uploads.
func WithStorage(fs afs.Service) Option { return func(b *Builder) { b.fs = fs } }

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option { return func(b *Builder) { b.logger = lg } }

// NewBuilder returns a Builder compiling with e.
func NewBuilder(e windpress.Engine, opts ...Option) *Builder {
	b := &Builder{
		engine:     e,
		entrypoint: windpress.DefaultEntrypoint,
		maxPages:   1000,
		minify:     true,
		logger:     slog.Default(),
		known:      map[string]map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.fs == nil {
		b.fs = afs.New()
	}
	return b
}

// Build scans the providers opts selects and compiles every candidate
// known so far against vol.
func (b *Builder) Build(ctx context.Context, vol *twvfs.Volume, opts BuildCacheOptions) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	selected, err := b.selectProviders(opts)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if opts.Kind == KindFull {
		b.known = map[string]map[string]struct{}{}
	}

	res := &Result{Kind: opts.Kind}
	for _, p := range selected {
		set, pages, err := b.scan(ctx, p)
		if err != nil {
			return nil, err
		}
		b.known[p.ID()] = set
		res.Providers = append(res.Providers, p.ID())
		res.Pages += pages
	}

	all := map[string]struct{}{}
	for _, set := range b.known {
		for c := range set {
			all[c] = struct{}{}
		}
	}
	candidates := make([]string, 0, len(all))
	for c := range all {
		candidates = append(candidates, c)
	}
	sort.Strings(candidates)
	res.Candidates = len(candidates)

	css, err := b.engine.Compile(ctx, &windpress.Request{
		Candidates: candidates,
		Entrypoint: b.entrypoint,
		Volume:     vol,
	})
	if err != nil {
		return nil, err
	}
	out, err := twoptimize.Optimize(css, b.minify, twoptimize.WithLogger(b.logger))
	if err != nil {
		return nil, err
	}
	for _, w := range out.Warnings {
		b.logger.Warn("cache stylesheet warning", "warning", w.String())
	}
	res.CSS = string(out.Code)
	res.Bytes = len(out.Code)

	if b.outputURL != "" {
		if err := b.fs.Upload(ctx, b.outputURL, file.DefaultFileOsMode, bytes.NewReader(out.Code)); err != nil {
			return nil, fmt.Errorf("[twcache/%s]: %w", b.outputURL, err)
		}
		res.URL = b.outputURL
	}
	res.Took = time.Since(start)
	b.logger.Info("cache built", "kind", res.Kind, "providers", res.Providers, "pages", res.Pages,
		"candidates", res.Candidates, "bytes", res.Bytes, "took", res.Took)
	return res, nil
}

func (b *Builder) selectProviders(opts BuildCacheOptions) ([]Provider, error) {
	if opts.Kind == KindFull {
		return b.providers, nil
	}
	byID := make(map[string]Provider, len(b.providers))
	for _, p := range b.providers {
		byID[p.ID()] = p
	}
	var ret []Provider
	for _, id := range opts.Incremental.Providers {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown cache provider %q", id)
		}
		ret = append(ret, p)
	}
	return ret, nil
}

func (b *Builder) scan(ctx context.Context, p Provider) (map[string]struct{}, int, error) {
	set := map[string]struct{}{}
	batch, pages := 1, 0
	for pages < b.maxPages {
		if err := ctx.Err(); err != nil {
			return nil, pages, err
		}
		page, err := p.Scan(ctx, batch)
		if err != nil {
			return nil, pages, fmt.Errorf("[twcache/%s] batch %d: %w", p.ID(), batch, err)
		}
		pages++
		for _, rec := range page.Contents {
			for _, c := range twpurge.FindCandidates(rec.Content) {
				set[c] = struct{}{}
			}
		}
		next := page.Metadata.NextBatch
		if !next.Valid || next.N <= batch {
			return set, pages, nil
		}
		batch = next.N
	}
	b.logger.Warn("cache provider page limit reached", "provider", p.ID(), "pages", pages)
	return set, pages, nil
}

// Listen runs a build for every cache.generate message until ctx ends or
// the bus closes. vol returns the project to build against.
func (b *Builder) Listen(ctx context.Context, bus *twbus.Bus, vol func() *twvfs.Volume) error {
	msgs, cancel := bus.Subscribe(8)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			if m.Task != twbus.TaskCacheGenerate {
				continue
			}
			opts, err := ParseOptions(m)
			if err != nil {
				b.logger.Warn("cache request ignored", "source", m.Source, "err", err)
				continue
			}
			if _, err := b.Build(ctx, vol(), opts); err != nil {
				b.logger.Error("cache build failed", "source", m.Source, "kind", opts.Kind, "err", err)
			}
		}
	}
}
