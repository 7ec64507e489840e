// Package twplugin runs Tailwind plugins and 3.x configuration objects,
// evaluated by twmodule, against a design system. Callbacks a plugin
// registers (matchUtilities, matchVariant) run later during generation, so
// every call into the plugin's runtime goes through its Host lock.
package twplugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
)

// PluginError is returned when a plugin has an unexpected shape or throws.
type PluginError struct {
	Name string
	Err  error
}

func (e *PluginError) Error() string { return fmt.Sprintf("plugin %s: %v", e.Name, e.Err) }

func (e *PluginError) Unwrap() error { return e.Err }

// Plugin is a plugin in its normalized form. Handler is nil for plugins
// that only contribute configuration.
type Plugin struct {
	Name    string
	Handler goja.Callable
	Config  goja.Value
}

// Resolve normalizes what a plugin module exports: a bare handler
// function, a {handler, config} object from plugin(), or an options
// function from plugin.withOptions, which is called with options
// (undefined when nil).
func Resolve(rt *goja.Runtime, name string, v, options goja.Value) (*Plugin, error) {
	obj, ok := v.(*goja.Object)
	if !ok || isNullish(v) {
		return nil, &PluginError{Name: name, Err: errors.New("export is not a function or object")}
	}
	if flag := obj.Get("__isOptionsFunction"); flag != nil && flag.ToBoolean() {
		fn, _ := goja.AssertFunction(obj)
		if options == nil {
			options = goja.Undefined()
		}
		res, err := fn(goja.Undefined(), options)
		if err != nil {
			return nil, &PluginError{Name: name, Err: err}
		}
		return Resolve(rt, name, res, nil)
	}
	if fn, ok := goja.AssertFunction(obj); ok {
		return &Plugin{Name: name, Handler: fn, Config: goja.Undefined()}, nil
	}
	p := &Plugin{Name: name, Config: obj.Get("config")}
	if h := obj.Get("handler"); !isNullish(h) {
		fn, ok := goja.AssertFunction(h)
		if !ok {
			return nil, &PluginError{Name: name, Err: errors.New("handler is not a function")}
		}
		p.Handler = fn
	}
	if p.Handler == nil && isNullish(p.Config) {
		return nil, &PluginError{Name: name, Err: errors.New("neither handler nor config")}
	}
	return p, nil
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger plugin problems are reported to.
func WithLogger(lg *slog.Logger) Option { return func(h *Host) { h.logger = lg } }

// WithConfig sets the object config() reads from.
func WithConfig(cfg goja.Value) Option { return func(h *Host) { h.config = cfg } }

// WithCorePlugins sets the core plugins reported as disabled.
func WithCorePlugins(disabled map[string]bool) Option {
	return func(h *Host) { h.disabled = disabled }
}

// Host binds a runtime to the design system its plugins register into.
type Host struct {
	rt       *goja.Runtime
	ds       *twdesign.DesignSystem
	logger   *slog.Logger
	config   goja.Value
	disabled map[string]bool

	mu sync.Mutex
}

// NewHost returns a Host for plugins living in rt.
func NewHost(rt *goja.Runtime, ds *twdesign.DesignSystem, opts ...Option) *Host {
	h := &Host{rt: rt, ds: ds, logger: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	if h.config == nil {
		h.config = rt.NewObject()
	}
	return h
}

// Runtime returns the runtime the host calls into.
func (h *Host) Runtime() *goja.Runtime { return h.rt }

// Apply runs the plugin handler with the plugin API.
func (h *Host) Apply(ctx context.Context, p *Plugin) error {
	if p.Handler == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { h.rt.Interrupt(ctx.Err()) })
	defer func() {
		if !stop() {
			h.rt.ClearInterrupt()
		}
	}()
	if _, err := p.Handler(goja.Undefined(), h.api()); err != nil {
		return &PluginError{Name: p.Name, Err: err}
	}
	h.logger.Debug("plugin applied", "plugin", p.Name)
	return nil
}

func (h *Host) typeError(format string, args ...interface{}) {
	panic(h.rt.NewTypeError(fmt.Sprintf(format, args...)))
}

func (h *Host) api() *goja.Object {
	api := h.rt.NewObject()
	set := func(name string, fn func(goja.FunctionCall) goja.Value) {
		_ = api.Set(name, fn)
	}
	set("addBase", func(call goja.FunctionCall) goja.Value {
		h.ds.AddBase(ToNodes(h.rt, call.Argument(0))...)
		return goja.Undefined()
	})
	set("addUtilities", h.addRules(twdesign.LayerUtilities))
	set("addComponents", h.addRules(twdesign.LayerComponents))
	set("matchUtilities", h.matchUtilities(twdesign.LayerUtilities))
	set("matchComponents", h.matchUtilities(twdesign.LayerComponents))
	set("addVariant", h.addVariant)
	set("matchVariant", h.matchVariant)
	set("theme", func(call goja.FunctionCall) goja.Value {
		return ThemeValue(h.rt, h.ds.Theme, call.Argument(0).String(), call.Argument(1))
	})
	set("config", func(call goja.FunctionCall) goja.Value {
		if isNullish(call.Argument(0)) {
			return h.config
		}
		return configPath(h.rt, h.config, call.Argument(0).String(), call.Argument(1))
	})
	set("e", func(call goja.FunctionCall) goja.Value {
		return h.rt.ToValue(twcss.EscapeClass(call.Argument(0).String()))
	})
	set("prefix", func(call goja.FunctionCall) goja.Value {
		return h.rt.ToValue(h.prefixSelector(call.Argument(0).String()))
	})
	set("corePlugins", func(call goja.FunctionCall) goja.Value {
		return h.rt.ToValue(!h.disabled[call.Argument(0).String()])
	})
	return api
}

func (h *Host) addRules(layer twdesign.Layer) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		for _, n := range ToNodes(h.rt, call.Argument(0)) {
			h.addRule(layer, n)
		}
		return goja.Undefined()
	}
}

func (h *Host) addRule(layer twdesign.Layer, n *twcss.Node) {
	switch n.Kind {
	case twcss.Rule:
		if len(twcss.SelectorClasses(n.Selector)) == 0 {
			h.ds.AddBase(n)
			return
		}
		h.ds.AddClassRule(layer, n)
	case twcss.AtRule:
		if len(n.Decls()) > 0 || n.Name == "keyframes" || n.Name == "font-face" || n.Name == "property" {
			h.ds.AddBase(n)
			return
		}
		for _, r := range hoist(n) {
			h.addRule(layer, r)
		}
	}
}

// hoist turns @media (x) { .a { ... } } into .a { @media (x) { ... } } so
// the rule can be registered under its class.
func hoist(at *twcss.Node) []*twcss.Node {
	var ret []*twcss.Node
	for _, c := range at.Nodes {
		var inner []*twcss.Node
		switch c.Kind {
		case twcss.Rule:
			inner = []*twcss.Node{c}
		case twcss.AtRule:
			inner = hoist(c)
		}
		for _, r := range inner {
			ret = append(ret, twcss.NewRule(r.Selector, twcss.NewAtRule(at.Name, at.Params, r.Nodes...)))
		}
	}
	return ret
}

func (h *Host) matchUtilities(layer twdesign.Layer) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		utilities, ok := call.Argument(0).(*goja.Object)
		if !ok {
			h.typeError("matchUtilities expects an object of functions")
		}
		opts := h.matchOptions(call.Argument(1))
		opts.Layer = layer
		for _, root := range utilities.Keys() {
			fn, ok := goja.AssertFunction(utilities.Get(root))
			if !ok {
				h.typeError("matchUtilities: %s is not a function", root)
			}
			root := root
			h.ds.MatchUtility(root, opts, func(value, modifier string) []*twcss.Node {
				h.mu.Lock()
				defer h.mu.Unlock()
				res, err := fn(goja.Undefined(), h.rt.ToValue(value), h.modifierArg(modifier))
				if err != nil {
					h.logger.Warn("plugin utility failed", "utility", root, "value", value, "err", err)
					return nil
				}
				return ToNodes(h.rt, res)
			})
		}
		return goja.Undefined()
	}
}

func (h *Host) matchOptions(v goja.Value) twdesign.MatchOptions {
	var opts twdesign.MatchOptions
	obj, ok := v.(*goja.Object)
	if !ok || isNullish(v) {
		return opts
	}
	opts.Values = Entries(h.rt, obj.Get("values"))
	if t := obj.Get("type"); !isNullish(t) {
		if arr, ok := t.(*goja.Object); ok && arr.ClassName() == "Array" {
			for _, item := range arrayItems(h.rt, arr) {
				opts.Types = append(opts.Types, item.String())
			}
		} else {
			opts.Types = []string{t.String()}
		}
	}
	if n := obj.Get("supportsNegativeValues"); n != nil {
		opts.Negative = n.ToBoolean()
	}
	if m := obj.Get("modifiers"); !isNullish(m) {
		if m.String() == "any" {
			opts.AnyModifier = true
		} else {
			opts.Modifiers = Entries(h.rt, m)
		}
	}
	return opts
}

func (h *Host) modifierArg(modifier string) goja.Value {
	arg := h.rt.NewObject()
	if modifier == "" {
		_ = arg.Set("modifier", goja.Null())
	} else {
		_ = arg.Set("modifier", modifier)
	}
	return arg
}

func (h *Host) addVariant(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	defs := h.variantDefs(call.Argument(1), name)
	if len(defs) == 0 {
		h.logger.Warn("plugin variant has no definition", "variant", name)
		return goja.Undefined()
	}
	h.ds.AddStaticVariant(name, defs...)
	return goja.Undefined()
}

// variantDefs reads a variant definition: a string, an array of strings,
// or a function returning either.
func (h *Host) variantDefs(v goja.Value, name string) []string {
	if fn, ok := goja.AssertFunction(v); ok {
		arg := h.rt.NewObject()
		_ = arg.Set("separator", h.ds.Options().Separator)
		_ = arg.Set("container", goja.Undefined())
		res, err := fn(goja.Undefined(), arg)
		if err != nil {
			panic(err)
		}
		return h.variantDefs(res, name)
	}
	if isNullish(v) {
		return nil
	}
	var raw []string
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() == "Array" {
		for _, item := range arrayItems(h.rt, obj) {
			raw = append(raw, item.String())
		}
	} else {
		raw = []string{v.String()}
	}
	var ret []string
	for _, r := range raw {
		ret = append(ret, splitVariantDef(r)...)
	}
	return ret
}

// splitVariantDef unnests "@media print { &:hover }" into its levels.
func splitVariantDef(def string) []string {
	def = strings.TrimSpace(def)
	i := strings.IndexByte(def, '{')
	j := strings.LastIndexByte(def, '}')
	if i < 0 || j < i {
		return []string{def}
	}
	outer := strings.TrimSpace(def[:i])
	inner := strings.TrimSpace(def[i+1 : j])
	if inner == "" || inner == "&" || inner == "@slot" || inner == "@slot;" {
		return []string{outer}
	}
	return append([]string{outer}, splitVariantDef(inner)...)
}

func (h *Host) matchVariant(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		h.typeError("matchVariant: %s needs a function", name)
	}
	var values []twdesign.KeyValue
	if obj, ok := call.Argument(2).(*goja.Object); ok {
		values = Entries(h.rt, obj.Get("values"))
	}
	h.ds.MatchVariant(name, values, func(value, modifier string) []string {
		h.mu.Lock()
		defer h.mu.Unlock()
		res, err := fn(goja.Undefined(), h.rt.ToValue(value), h.modifierArg(modifier))
		if err != nil {
			h.logger.Warn("plugin variant failed", "variant", name, "value", value, "err", err)
			return nil
		}
		var defs []string
		func() {
			defer func() {
				if r := recover(); r != nil {
					defs = nil
				}
			}()
			defs = h.variantDefs(res, name)
		}()
		return defs
	})
	return goja.Undefined()
}

func (h *Host) prefixSelector(sel string) string {
	opts := h.ds.Options()
	if opts.Prefix == "" || opts.PrefixStyle != twdesign.PrefixDash {
		return sel
	}
	var b strings.Builder
	for i := 0; i < len(sel); i++ {
		b.WriteByte(sel[i])
		if sel[i] == '\\' && i+1 < len(sel) {
			i++
			b.WriteByte(sel[i])
			continue
		}
		if sel[i] == '.' && i+1 < len(sel) && !isDigitByte(sel[i+1]) {
			b.WriteString(opts.Prefix)
		}
	}
	return b.String()
}

func isDigitByte(c byte) bool { return c >= '0' && c <= '9' }

// ThemeValue answers theme(path, default) for JS: a string for a single
// token, an object of name/value pairs for a section, def otherwise.
func ThemeValue(rt *goja.Runtime, t *twdesign.Theme, p string, def goja.Value) goja.Value {
	entries := t.Entries(p)
	section := false
	for _, kv := range entries {
		if kv.Key != "DEFAULT" {
			section = true
			break
		}
	}
	if !section {
		if key, ok := t.PathKey(p); ok {
			v, _ := t.Get(key)
			return rt.ToValue(v)
		}
		if def == nil || isNullish(def) {
			return goja.Undefined()
		}
		return def
	}
	obj := rt.NewObject()
	for _, kv := range entries {
		_ = obj.Set(kv.Key, kv.Value)
	}
	return obj
}

// configPath walks a dotted path through a JS object.
func configPath(rt *goja.Runtime, root goja.Value, p string, def goja.Value) goja.Value {
	cur := root
	for _, seg := range strings.Split(p, ".") {
		obj, ok := cur.(*goja.Object)
		if !ok || isNullish(cur) {
			cur = nil
			break
		}
		cur = obj.Get(seg)
	}
	if isNullish(cur) {
		if def == nil {
			return goja.Undefined()
		}
		return def
	}
	return cur
}
