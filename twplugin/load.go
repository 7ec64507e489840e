package twplugin

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
	"github.com/gotailwindcss/windpress/twmodule"
	"github.com/gotailwindcss/windpress/twvfs"
)

// Loaded is a configuration module evaluated with its plugins resolved.
type Loaded struct {
	*Config
	Plugins []*Plugin
}

// LoadConfig evaluates the config module p and reads it.
func LoadConfig(ctx context.Context, l *twmodule.Loader, p, base string, vol *twvfs.Volume) (*Loaded, error) {
	m, err := l.LoadModule(ctx, p, base, vol)
	if err != nil {
		return nil, err
	}
	cfg, err := ReadConfig(m.Runtime, m.Default)
	if err != nil {
		return nil, &twmodule.EvalError{Path: m.Path, Err: err}
	}
	return FromConfig(cfg)
}

// DefaultConfig is the configuration used when a project has none.
func DefaultConfig() *Loaded {
	rt := goja.New()
	cfg, err := ReadConfig(rt, rt.NewObject())
	if err != nil {
		panic(err)
	}
	return &Loaded{Config: cfg}
}

// FromConfig resolves the plugins of cfg.
func FromConfig(cfg *Config) (*Loaded, error) {
	plugins, err := cfg.ResolvePlugins(cfg.Runtime)
	if err != nil {
		return nil, err
	}
	return &Loaded{Config: cfg, Plugins: plugins}, nil
}

// ApplyTheme applies the plugin themes then the config's own theme to t.
// colors is the source of the colors builtin, see Builtins.
func (c *Loaded) ApplyTheme(t *twdesign.Theme, colors string) error {
	rt := c.Runtime
	palette, err := EvalBuiltin(rt, colors)
	if err != nil {
		return err
	}
	themes := append(PluginThemes(rt, c.Plugins), c.Themes...)
	return ApplyTheme(rt, t, themes, palette)
}

// Install registers the dark mode strategy and runs the plugins against ds.
func (c *Loaded) Install(ctx context.Context, ds *twdesign.DesignSystem, lg *slog.Logger) error {
	if err := c.RegisterDarkMode(ds); err != nil {
		return err
	}
	h := NewHost(c.Runtime, ds, WithLogger(lg), WithConfig(c.Object), WithCorePlugins(c.CorePlugins))
	for _, p := range c.Plugins {
		if err := h.Apply(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Module is a plugin loaded on its own, as @plugin does.
type Module struct {
	*Plugin
	Runtime *goja.Runtime
}

// LoadPlugin evaluates the plugin module p. Declarations of the options
// block, as in @plugin "x" { size: 2; }, are passed to options functions.
func LoadPlugin(ctx context.Context, l *twmodule.Loader, p, base string, vol *twvfs.Volume, options []*twcss.Node) (*Module, error) {
	m, err := l.LoadModule(ctx, p, base, vol)
	if err != nil {
		return nil, err
	}
	rt := m.Runtime
	var opts goja.Value
	if len(options) > 0 {
		obj := rt.NewObject()
		for _, d := range options {
			if d.Kind == twcss.Decl {
				obj.Set(d.Property, optionValue(rt, d.Value))
			}
		}
		opts = obj
	}
	plugin, err := Resolve(rt, p, m.Default, opts)
	if err != nil {
		return nil, err
	}
	return &Module{Plugin: plugin, Runtime: rt}, nil
}

// ApplyTheme applies the theme the plugin ships in its config.
func (m *Module) ApplyTheme(t *twdesign.Theme, colors string) error {
	themes := PluginThemes(m.Runtime, []*Plugin{m.Plugin})
	if len(themes) == 0 {
		return nil
	}
	palette, err := EvalBuiltin(m.Runtime, colors)
	if err != nil {
		return err
	}
	return ApplyTheme(m.Runtime, t, themes, palette)
}

// Install runs the plugin against ds.
func (m *Module) Install(ctx context.Context, ds *twdesign.DesignSystem, lg *slog.Logger) error {
	return NewHost(m.Runtime, ds, WithLogger(lg)).Apply(ctx, m.Plugin)
}

// optionValue converts a CSS option value: numbers, booleans, null,
// quoted strings and comma separated lists.
func optionValue(rt *goja.Runtime, v string) goja.Value {
	if parts := twcss.SplitList(v); len(parts) > 1 {
		items := make([]interface{}, len(parts))
		for i, p := range parts {
			items[i] = optionValue(rt, p)
		}
		return rt.NewArray(items...)
	}
	v = strings.TrimSpace(v)
	switch v {
	case "true":
		return rt.ToValue(true)
	case "false":
		return rt.ToValue(false)
	case "null":
		return goja.Null()
	case "undefined":
		return goja.Undefined()
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return rt.ToValue(f)
	}
	return rt.ToValue(strings.Trim(v, `"'`))
}
