// Package twv3 is the Tailwind 3.x engine: a JavaScript configuration
// module drives the theme, plugins and content, and the stylesheet holds
// @tailwind and @layer directives.
package twv3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
	"github.com/gotailwindcss/windpress/twembed"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twmodule"
	"github.com/gotailwindcss/windpress/twplugin"
	"github.com/gotailwindcss/windpress/twpurge"
	"github.com/gotailwindcss/windpress/twresolve"
	"github.com/gotailwindcss/windpress/twvfs"
)

// Engine compiles Tailwind 3.x stylesheets. It is safe for concurrent use.
type Engine struct {
	importer  legacyImporter
	loader    *twmodule.Loader
	logger    *slog.Logger
	dist      windpress.Dist
	colors    string
	preflight []*twcss.Node
	defaults  []*twcss.Node
	cache     *windpress.Cache[*state]
}

type options struct {
	fetcher   twfetch.Fetcher
	registry  string
	logger    *slog.Logger
	cacheSize int
}

// Option configures an Engine.
type Option func(*options)

// WithFetcher sets where remote stylesheets and modules come from.
func WithFetcher(f twfetch.Fetcher) Option { return func(o *options) { o.fetcher = f } }

// WithRegistry sets the package registry bare imports fall back to.
func WithRegistry(u string) Option { return func(o *options) { o.registry = u } }

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option { return func(o *options) { o.logger = lg } }

// WithCacheSize sets how many design systems are kept, default 8.
func WithCacheSize(n int) Option { return func(o *options) { o.cacheSize = n } }

// New returns a 3.x engine.
func New(opts ...Option) *Engine {
	o := options{registry: twfetch.DefaultRegistry, logger: slog.Default(), cacheSize: 8}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fetcher == nil {
		o.fetcher = twfetch.New(twfetch.WithLogger(o.logger))
	}
	dist := twembed.New(3)
	builtins := twplugin.Builtins(DefaultTheme())
	lopts := []twmodule.Option{
		twmodule.WithFetcher(o.fetcher),
		twmodule.WithRegistry(o.registry),
		twmodule.WithLogger(o.logger),
	}
	for name, src := range builtins {
		lopts = append(lopts, twmodule.WithBuiltin(name, src))
	}
	preflight, defaults := splitBase(mustParse(dist, "base"))
	return &Engine{
		importer: legacyImporter{twresolve.New(
			twresolve.WithFetcher(o.fetcher), twresolve.WithRegistry(o.registry), twresolve.WithLogger(o.logger))},
		loader:    twmodule.New(lopts...),
		logger:    o.logger,
		dist:      dist,
		colors:    builtins[twplugin.ColorsModule],
		preflight: preflight,
		defaults:  defaults,
		cache:     windpress.NewCache[*state](o.cacheSize),
	}
}

func mustParse(dist windpress.Dist, name string) []*twcss.Node {
	src, err := windpress.ReadDist(dist, name)
	if err != nil {
		panic(err)
	}
	nodes, err := twcss.Parse(src, "/node_modules/tailwindcss/"+name+".css")
	if err != nil {
		panic(fmt.Errorf("embedded %s.css: %w", name, err))
	}
	return nodes
}

// splitBase separates the custom property defaults rule, emitted even
// without preflight, from the rest of the base styles.
func splitBase(nodes []*twcss.Node) (preflight, defaults []*twcss.Node) {
	for _, n := range nodes {
		if n.Kind == twcss.Rule && strings.Contains(n.Selector, "::backdrop") && strings.HasPrefix(firstProperty(n), "--tw-") {
			defaults = append(defaults, n)
			continue
		}
		preflight = append(preflight, n)
	}
	return preflight, defaults
}

func firstProperty(n *twcss.Node) string {
	if d := n.Decls(); len(d) > 0 {
		return d[0].Property
	}
	return ""
}

// DefaultTheme returns the default 3.x theme.
func DefaultTheme() *twdesign.Theme {
	t := twdesign.NewTheme()
	for _, n := range mustParse(twembed.New(3), "theme") {
		if n.IsAt("theme") {
			t.AddRule(n)
		}
	}
	return t
}

// Version implements windpress.Engine.
func (e *Engine) Version() windpress.Version { return windpress.V3 }

// DesignSystem implements windpress.Engine. The configuration is the one
// the stylesheet names with @config, else /tailwind.config.js when the
// volume has it, else the default one.
func (e *Engine) DesignSystem(ctx context.Context, entrypoint string, vol *twvfs.Volume) (*twdesign.DesignSystem, error) {
	if entrypoint == "" {
		entrypoint = windpress.DefaultEntrypoint
	}
	st, err := e.load(ctx, entrypoint, "", vol)
	if err != nil {
		return nil, &windpress.CompileError{Entrypoint: entrypoint, Err: err}
	}
	return st.ds, nil
}

// Compile implements windpress.Engine. Candidates come from the request,
// from the content records and from the content and safelist of the
// configuration.
func (e *Engine) Compile(ctx context.Context, req *windpress.Request) (string, error) {
	entry := req.EntrypointOrDefault()
	st, err := e.load(ctx, entry, req.Config, req.Volume)
	if err != nil {
		return "", &windpress.CompileError{Entrypoint: entry, Err: err}
	}

	out := st.ds.Generate(st.candidates(req))
	nodes := twcss.Replace(twcss.CloneAll(st.nodes), func(n *twcss.Node) ([]*twcss.Node, bool) {
		if !n.IsAt("tailwind") || n.Block {
			return nil, false
		}
		switch strings.TrimSpace(n.Params) {
		case "base":
			var base []*twcss.Node
			if st.preflight {
				base = append(base, twcss.CloneAll(e.preflight)...)
			}
			base = append(base, twcss.CloneAll(e.defaults)...)
			base = append(base, st.ds.Base()...)
			return append(base, twcss.CloneAll(st.base)...), true
		case "components":
			return twcss.CloneAll(out.Components), true
		case "utilities":
			return twcss.CloneAll(out.Utilities), true
		}
		// variants and screens are placed with their utilities
		return nil, true
	})

	var buf bytes.Buffer
	conv := windpress.New(&buf, st.ds)
	conv.SetBanner(e.dist.Version())
	conv.SetFinalizer(st.finalize)
	conv.AddNodes(nodes...)
	if err := conv.Run(); err != nil {
		return "", &windpress.CompileError{Entrypoint: entry, Err: err}
	}
	e.logger.Debug("compiled", "entrypoint", entry, "candidates", len(req.Candidates),
		"content", len(req.Content), "matched", len(out.Matched))
	return buf.String(), nil
}

// state is what an entry point and configuration over a volume compile to
// before any candidate is seen.
type state struct {
	ds        *twdesign.DesignSystem
	nodes     []*twcss.Node
	base      []*twcss.Node
	preflight bool
	// content holds the candidates of the configured content, safelist
	// included.
	content []string
	blocked map[string]bool
}

func (st *state) candidates(req *windpress.Request) []string {
	var all []string
	add := func(list []string) {
		for _, c := range list {
			if !st.blocked[c] {
				all = append(all, c)
			}
		}
	}
	add(req.Candidates)
	for _, rec := range req.Content {
		add(twpurge.FindCandidates(rec.Content))
	}
	add(st.content)
	return all
}

func (e *Engine) load(ctx context.Context, entry, config string, vol *twvfs.Volume) (*state, error) {
	if vol == nil {
		vol = twvfs.NewVolume(nil)
	}
	key := windpress.CacheKey(vol, entry, config)
	if st, ok := e.cache.Get(key); ok {
		return st, nil
	}

	nodes, _, err := windpress.Bundle(ctx, e.importer, entry, "/", vol)
	if err != nil {
		return nil, err
	}
	l := &layers{}
	nodes = l.collect(nodes)

	cfg, err := e.loadConfig(ctx, config, l.config, vol)
	if err != nil {
		return nil, err
	}
	theme := DefaultTheme()
	if err := cfg.ApplyTheme(theme, e.colors); err != nil {
		return nil, fmt.Errorf("config theme: %w", err)
	}
	ds := twdesign.New(theme, cfg.Options(e.logger))
	if err := cfg.Install(ctx, ds, e.logger); err != nil {
		return nil, err
	}
	for _, lr := range l.rules {
		ds.AddClassRule(lr.layer, lr.rule)
	}

	st := &state{
		ds:        ds,
		nodes:     nodes,
		base:      l.base,
		preflight: cfg.Preflight,
		blocked:   map[string]bool{},
	}
	for _, b := range cfg.Blocklist {
		st.blocked[b] = true
	}
	st.content, err = e.scanContent(cfg, vol)
	if err != nil {
		return nil, err
	}

	e.cache.Put(key, st)
	e.logger.Debug("design system loaded", "entrypoint", entry, "config", config,
		"plugins", len(cfg.Plugins), "layer_rules", len(l.rules), "content", len(st.content))
	return st, nil
}

// loadConfig picks the configuration: the request's, then the @config of
// the stylesheet, then the default path. A config named explicitly must
// exist.
func (e *Engine) loadConfig(ctx context.Context, config string, at *twcss.Node, vol *twvfs.Volume) (*twplugin.Loaded, error) {
	base := "/"
	switch {
	case config != "":
	case at != nil:
		config = strings.Trim(strings.TrimSpace(at.Params), `"'`)
		base = baseOf(at.Source)
	case vol.Has(windpress.DefaultConfig):
		config = windpress.DefaultConfig
	default:
		return twplugin.DefaultConfig(), nil
	}
	cfg, err := twplugin.LoadConfig(ctx, e.loader, config, base, vol)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", config, err)
	}
	return cfg, nil
}

// scanContent finds the candidates of the raw content records and of the
// volume files the content globs select, then adds the safelist.
func (e *Engine) scanContent(cfg *twplugin.Loaded, vol *twvfs.Volume) ([]string, error) {
	var ret []string
	for _, raw := range cfg.Content {
		ret = append(ret, twpurge.FindCandidates(raw)...)
	}
	if len(cfg.Files) > 0 {
		patterns := make([]string, len(cfg.Files))
		for i, f := range cfg.Files {
			patterns[i] = strings.TrimPrefix(strings.TrimPrefix(f, "./"), "/")
		}
		s := twpurge.NewScanner(
			twpurge.WithPatterns(patterns...),
			twpurge.WithMatch(func(string) bool { return true }),
			twpurge.WithScannerLogger(e.logger),
		)
		if err := s.ScanVolume(vol); err != nil {
			return nil, err
		}
		ret = append(ret, s.Candidates()...)
	}
	safelist := append([]string(nil), cfg.Safelist...)
	sort.Strings(safelist)
	return append(ret, safelist...), nil
}

// finalize adds the keyframes the output animates with.
func (st *state) finalize(nodes []*twcss.Node) []*twcss.Node {
	u := st.ds.Usage(nodes)
	return append(nodes, u.Keyframes...)
}

// legacyImporter maps the 3.x package stylesheets to their directives:
// @import "tailwindcss/base" is @tailwind base.
type legacyImporter struct {
	*twresolve.Resolver
}

func (li legacyImporter) LoadStylesheet(ctx context.Context, id, base string, vol *twvfs.Volume) (*twresolve.Stylesheet, error) {
	switch strings.TrimSuffix(id, ".css") {
	case "tailwindcss/base", "tailwindcss/components", "tailwindcss/utilities", "tailwindcss/variants", "tailwindcss/screens":
		name := path.Base(strings.TrimSuffix(id, ".css"))
		return &twresolve.Stylesheet{
			Path:    "/node_modules/" + id,
			Base:    "/node_modules/tailwindcss",
			Content: "@tailwind " + name + ";\n",
		}, nil
	case "tailwindcss":
		return &twresolve.Stylesheet{
			Path:    "/node_modules/tailwindcss/tailwind.css",
			Base:    "/node_modules/tailwindcss",
			Content: "@tailwind base;\n@tailwind components;\n@tailwind utilities;\n",
		}, nil
	}
	return li.Resolver.LoadStylesheet(ctx, id, base, vol)
}

// baseOf returns the directory references in file resolve against.
func baseOf(file string) string {
	if twfetch.IsRemote(file) {
		return twfetch.Dir(file)
	}
	if file == "" {
		return "/"
	}
	return path.Dir(file)
}
