// Package twv4 is the Tailwind 4.x engine: configuration lives in the
// stylesheet itself (@theme, @utility, @custom-variant, @plugin, @config,
// @source) next to the tailwindcss imports.
package twv4

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
	"github.com/gotailwindcss/windpress/twembed"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twmodule"
	"github.com/gotailwindcss/windpress/twplugin"
	"github.com/gotailwindcss/windpress/twresolve"
	"github.com/gotailwindcss/windpress/twvfs"
)

// Engine compiles Tailwind 4.x stylesheets. It is safe for concurrent use.
type Engine struct {
	resolver *twresolve.Resolver
	loader   *twmodule.Loader
	logger   *slog.Logger
	dist     windpress.Dist
	colors   string
	cache    *windpress.Cache[*state]
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

// New returns a 4.x engine.
func New(opts ...Option) *Engine {
	o := options{registry: twfetch.DefaultRegistry, logger: slog.Default(), cacheSize: 8}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fetcher == nil {
		o.fetcher = twfetch.New(twfetch.WithLogger(o.logger))
	}
	dist := twembed.New(4)
	builtins := twplugin.Builtins(DefaultTheme())
	lopts := []twmodule.Option{
		twmodule.WithFetcher(o.fetcher),
		twmodule.WithRegistry(o.registry),
		twmodule.WithLogger(o.logger),
	}
	for name, src := range builtins {
		lopts = append(lopts, twmodule.WithBuiltin(name, src))
	}
	return &Engine{
		resolver: twresolve.New(twresolve.WithFetcher(o.fetcher), twresolve.WithRegistry(o.registry), twresolve.WithLogger(o.logger)),
		loader:   twmodule.New(lopts...),
		logger:   o.logger,
		dist:     dist,
		colors:   builtins[twplugin.ColorsModule],
		cache:    windpress.NewCache[*state](o.cacheSize),
	}
}

// DefaultTheme returns the theme of the embedded tailwindcss/theme.css.
func DefaultTheme() *twdesign.Theme {
	src, err := twembed.New(4).ReadDist("theme")
	if err != nil {
		panic(err)
	}
	nodes, err := twcss.Parse(src, "/node_modules/tailwindcss/theme.css")
	if err != nil {
		panic(fmt.Errorf("embedded theme.css: %w", err))
	}
	t := twdesign.NewTheme()
	for _, n := range nodes {
		if n.IsAt("theme") {
			t.AddRule(n)
		}
	}
	return t
}

// Version implements windpress.Engine.
func (e *Engine) Version() windpress.Version { return windpress.V4 }

// DesignSystem implements windpress.Engine.
func (e *Engine) DesignSystem(ctx context.Context, entrypoint string, vol *twvfs.Volume) (*twdesign.DesignSystem, error) {
	if entrypoint == "" {
		entrypoint = windpress.DefaultEntrypoint
	}
	st, err := e.load(ctx, entrypoint, vol)
	if err != nil {
		return nil, &windpress.CompileError{Entrypoint: entrypoint, Err: err}
	}
	return st.ds, nil
}

// Compile implements windpress.Engine.
func (e *Engine) Compile(ctx context.Context, req *windpress.Request) (string, error) {
	entry := req.EntrypointOrDefault()
	st, err := e.load(ctx, entry, req.Volume)
	if err != nil {
		return "", &windpress.CompileError{Entrypoint: entry, Err: err}
	}

	out := st.ds.Generate(st.candidates(req.Candidates))
	generated := append(out.Components, out.Utilities...)
	nodes := twcss.Replace(twcss.CloneAll(st.nodes), func(n *twcss.Node) ([]*twcss.Node, bool) {
		if isMarker(n, "utilities") {
			return twcss.CloneAll(generated), true
		}
		return nil, false
	})

	var buf bytes.Buffer
	conv := windpress.New(&buf, st.ds)
	conv.SetBanner(e.dist.Version())
	conv.SetFinalizer(st.finalize)
	conv.AddNodes(nodes...)
	if err := conv.Run(); err != nil {
		return "", &windpress.CompileError{Entrypoint: entry, Err: err}
	}
	e.logger.Debug("compiled", "entrypoint", entry, "candidates", len(req.Candidates), "matched", len(out.Matched))
	return buf.String(), nil
}

// state is what an entry point over a volume compiles to before any
// candidate is seen.
type state struct {
	ds      *twdesign.DesignSystem
	nodes   []*twcss.Node
	sources []string
	blocked map[string]bool
}

func (st *state) candidates(req []string) []string {
	all := make([]string, 0, len(req)+len(st.sources))
	for _, list := range [][]string{req, st.sources} {
		for _, c := range list {
			if !st.blocked[c] {
				all = append(all, c)
			}
		}
	}
	return all
}

func (e *Engine) load(ctx context.Context, entry string, vol *twvfs.Volume) (*state, error) {
	if vol == nil {
		vol = twvfs.NewVolume(nil)
	}
	key := windpress.CacheKey(vol, entry)
	if st, ok := e.cache.Get(key); ok {
		return st, nil
	}

	nodes, imports, err := windpress.Bundle(ctx, e.resolver, entry, "/", vol)
	if err != nil {
		return nil, err
	}
	c := &collector{blocked: map[string]bool{}}
	nodes = c.collect(nodes)

	theme := twdesign.NewTheme()
	for _, n := range c.themes {
		theme.AddRule(n)
	}

	var configs []*twplugin.Loaded
	for _, n := range c.configs {
		cfg, err := twplugin.LoadConfig(ctx, e.loader, unquote(n.Params), baseOf(n.Source), vol)
		if err != nil {
			return nil, fmt.Errorf("%s: @config: %w", n.Source, err)
		}
		if err := cfg.ApplyTheme(theme, e.colors); err != nil {
			return nil, fmt.Errorf("%s: @config: %w", n.Source, err)
		}
		configs = append(configs, cfg)
	}
	var plugins []*twplugin.Module
	for _, n := range c.plugins {
		m, err := twplugin.LoadPlugin(ctx, e.loader, unquote(n.Params), baseOf(n.Source), vol, n.Nodes)
		if err != nil {
			return nil, fmt.Errorf("%s: @plugin: %w", n.Source, err)
		}
		if err := m.ApplyTheme(theme, e.colors); err != nil {
			return nil, fmt.Errorf("%s: @plugin: %w", n.Source, err)
		}
		plugins = append(plugins, m)
	}

	opts := twdesign.Options{Prefix: imports.Prefix, Important: imports.Important, Logger: e.logger}
	for _, cfg := range configs {
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		opts.Important = opts.Important || cfg.Important
		if cfg.ImportantSelector != "" {
			opts.ImportantSelector = cfg.ImportantSelector
		}
	}
	ds := twdesign.New(theme, opts)

	st := &state{ds: ds, nodes: nodes, sources: c.sources, blocked: c.blocked}
	for _, cfg := range configs {
		if err := cfg.Install(ctx, ds, e.logger); err != nil {
			return nil, err
		}
		st.sources = append(st.sources, cfg.Safelist...)
		for _, b := range cfg.Blocklist {
			st.blocked[b] = true
		}
	}
	for _, m := range plugins {
		if err := m.Install(ctx, ds, e.logger); err != nil {
			return nil, err
		}
	}
	for _, n := range c.variants {
		if err := ds.AddCustomVariant(n); err != nil {
			return nil, fmt.Errorf("%s: %w", n.Source, err)
		}
	}
	for _, n := range c.utilities {
		if err := ds.AddCSSUtility(n); err != nil {
			return nil, fmt.Errorf("%s: %w", n.Source, err)
		}
	}

	e.cache.Put(key, st)
	e.logger.Debug("design system loaded", "entrypoint", entry,
		"theme", theme.Len(), "plugins", len(plugins), "configs", len(configs), "utilities", len(c.utilities))
	return st, nil
}

// finalize emits the theme variables, keyframes and registered properties
// the expanded stylesheet uses.
func (st *state) finalize(nodes []*twcss.Node) []*twcss.Node {
	u := st.ds.Usage(nodes)
	var decls []*twcss.Node
	for _, key := range u.Variables {
		v, _ := st.ds.Theme.Get(key)
		decls = append(decls, twcss.NewDecl(escapeKey(key), v))
	}
	placed := false
	nodes = twcss.Replace(nodes, func(n *twcss.Node) ([]*twcss.Node, bool) {
		if !isMarker(n, "theme") {
			return nil, false
		}
		if placed || len(decls) == 0 {
			return nil, true
		}
		placed = true
		return []*twcss.Node{twcss.NewRule(":root, :host", decls...)}, true
	})
	if !placed && len(decls) > 0 {
		nodes = append([]*twcss.Node{twcss.NewRule(":root, :host", decls...)}, nodes...)
	}
	nodes = append(nodes, u.Keyframes...)
	if len(u.Properties) > 0 {
		nodes = append([]*twcss.Node{twcss.NewStatement("layer", "properties")}, nodes...)
		nodes = append(nodes, propertyFallback(u.Properties))
		for _, p := range u.Properties {
			nodes = append(nodes, p.Rule())
		}
	}
	return nodes
}

// browsers without @property support get the initial values from a layer
const propertySupports = "((-webkit-hyphens: none) and (not (margin-trim: inline))) or ((-moz-orient: inline) and (not (color: rgb(from red r g b))))"

func propertyFallback(props []twdesign.Property) *twcss.Node {
	rule := twcss.NewRule("*, ::before, ::after, ::backdrop")
	for _, p := range props {
		v := p.Initial
		if v == "" {
			v = "initial"
		}
		rule.Nodes = append(rule.Nodes, twcss.NewDecl(p.Name, v))
	}
	return twcss.NewAtRule("layer", "properties", twcss.NewAtRule("supports", propertySupports, rule))
}

// escapeKey escapes the characters theme keys may hold that are not valid
// in a custom property name: --spacing-1.5 is written --spacing-1\.5.
func escapeKey(key string) string {
	if !strings.ContainsAny(key, "./") {
		return key
	}
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		if key[i] == '.' || key[i] == '/' {
			b.WriteByte('\\')
		}
		b.WriteByte(key[i])
	}
	return b.String()
}

func isMarker(n *twcss.Node, what string) bool {
	if !n.IsAt("tailwind") || n.Block {
		return false
	}
	name, _, _ := strings.Cut(strings.TrimSpace(n.Params), " ")
	return name == what
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
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
