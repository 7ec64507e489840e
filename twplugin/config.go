package twplugin

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
)

// Config is a 3.x configuration object read into Go values. Themes and
// Plugins hold the contributions of presets first, then the config itself.
type Config struct {
	Object  *goja.Object
	Runtime *goja.Runtime

	Themes            []*goja.Object
	Prefix            string
	Important         bool
	ImportantSelector string
	Separator         string
	// DarkMode is the strategy followed by its argument, e.g. ["media"],
	// ["class", ".dark"] or ["variant", "&:is(.dark *)"].
	DarkMode    []string
	Safelist    []string
	Blocklist   []string
	Preflight   bool
	Content     []string
	Files       []string
	Plugins     []goja.Value
	CorePlugins map[string]bool
}

// ReadConfig reads a configuration object, merging its presets.
func ReadConfig(rt *goja.Runtime, v goja.Value) (*Config, error) {
	obj, ok := v.(*goja.Object)
	if !ok || isNullish(v) {
		return nil, errors.New("config is not an object")
	}
	cfg := &Config{Object: obj, Runtime: rt, Separator: ":", DarkMode: []string{"media"}, Preflight: true, CorePlugins: map[string]bool{}}
	if err := cfg.read(rt, obj, 0); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) read(rt *goja.Runtime, obj *goja.Object, depth int) error {
	if depth > 16 {
		return errors.New("config presets nest too deep")
	}
	if presets := obj.Get("presets"); isObject(presets) {
		for _, p := range arrayItems(rt, presets.ToObject(rt)) {
			pobj, ok := p.(*goja.Object)
			if !ok || isNullish(p) {
				continue
			}
			if err := cfg.read(rt, pobj, depth+1); err != nil {
				return err
			}
		}
	}
	if t := obj.Get("theme"); isObject(t) {
		cfg.Themes = append(cfg.Themes, t.ToObject(rt))
	}
	if p := obj.Get("prefix"); !isNullish(p) {
		cfg.Prefix = p.String()
	}
	if s := obj.Get("separator"); !isNullish(s) {
		cfg.Separator = s.String()
	}
	if imp := obj.Get("important"); !isNullish(imp) {
		if s, ok := imp.Export().(string); ok {
			cfg.Important, cfg.ImportantSelector = false, s
		} else {
			cfg.Important, cfg.ImportantSelector = imp.ToBoolean(), ""
		}
	}
	if dm := obj.Get("darkMode"); !isNullish(dm) {
		cfg.DarkMode = stringList(rt, dm)
	}
	if sl := obj.Get("safelist"); isObject(sl) {
		for _, item := range arrayItems(rt, sl.ToObject(rt)) {
			// {pattern: /.../} entries need the full class list; only
			// literal class names are honored.
			if s, ok := item.Export().(string); ok {
				cfg.Safelist = append(cfg.Safelist, s)
			}
		}
	}
	if bl := obj.Get("blocklist"); isObject(bl) {
		cfg.Blocklist = append(cfg.Blocklist, stringList(rt, bl)...)
	}
	if content := obj.Get("content"); !isNullish(content) {
		cfg.readContent(rt, content)
	}
	if cp := obj.Get("corePlugins"); isObject(cp) {
		cpo := cp.ToObject(rt)
		if cpo.ClassName() == "Array" {
			// an allow list: only the listed plugins stay enabled
			cfg.CorePlugins["preflight"] = true
			for _, name := range stringList(rt, cp) {
				if name == "preflight" {
					delete(cfg.CorePlugins, "preflight")
				}
			}
		} else {
			for _, k := range cpo.Keys() {
				if !cpo.Get(k).ToBoolean() {
					cfg.CorePlugins[k] = true
				}
			}
		}
		cfg.Preflight = !cfg.CorePlugins["preflight"]
	}
	if plugins := obj.Get("plugins"); isObject(plugins) {
		cfg.Plugins = append(cfg.Plugins, arrayItems(rt, plugins.ToObject(rt))...)
	}
	return nil
}

// readContent accepts content: [...] and content: {files: [...]} with
// globs and {raw: "..."} records.
func (cfg *Config) readContent(rt *goja.Runtime, v goja.Value) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return
	}
	if obj.ClassName() != "Array" {
		if files := obj.Get("files"); !isNullish(files) {
			cfg.readContent(rt, files)
		}
		return
	}
	for _, item := range arrayItems(rt, obj) {
		switch x := item.Export().(type) {
		case string:
			cfg.Files = append(cfg.Files, x)
		case map[string]interface{}:
			if raw, ok := x["raw"].(string); ok {
				cfg.Content = append(cfg.Content, raw)
			}
		}
	}
}

func stringList(rt *goja.Runtime, v goja.Value) []string {
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() == "Array" {
		var ret []string
		for _, item := range arrayItems(rt, obj) {
			ret = append(ret, item.String())
		}
		return ret
	}
	return []string{v.String()}
}

// Options returns the design system options the config asks for.
func (cfg *Config) Options(lg *slog.Logger) twdesign.Options {
	return twdesign.Options{
		Legacy:            true,
		Prefix:            cfg.Prefix,
		PrefixStyle:       twdesign.PrefixDash,
		Separator:         cfg.Separator,
		Important:         cfg.Important,
		ImportantSelector: cfg.ImportantSelector,
		Logger:            lg,
	}
}

// sharedSections write into a namespace another section owns, so setting
// them never clears it.
var sharedSections = map[string]bool{
	"accentColor":     true,
	"backgroundColor": true,
	"borderColor":     true,
	"textColor":       true,
	"padding":         true,
	"margin":          true,
	"maxWidth":        true,
	"inset":           true,
}

// ApplyTheme applies theme objects to t: sections set directly replace the
// default ones, then every extend block adds to them. Section functions are
// called with a theme() resolver over t and the color palette.
func ApplyTheme(rt *goja.Runtime, t *twdesign.Theme, themes []*goja.Object, colors goja.Value) error {
	helper := themeHelper(rt, t, colors)
	var extends []*goja.Object
	for _, th := range themes {
		if err := applySections(rt, t, th, helper, true); err != nil {
			return err
		}
		if ext := th.Get("extend"); isObject(ext) {
			extends = append(extends, ext.ToObject(rt))
		}
	}
	for _, ext := range extends {
		if err := applySections(rt, t, ext, helper, false); err != nil {
			return err
		}
	}
	return nil
}

func applySections(rt *goja.Runtime, t *twdesign.Theme, obj *goja.Object, helper *goja.Object, replace bool) error {
	// static values first so section functions see them
	for pass := 0; pass < 2; pass++ {
		for _, section := range obj.Keys() {
			if section == "extend" {
				continue
			}
			val := obj.Get(section)
			fn, isFn := goja.AssertFunction(val)
			if isFn != (pass == 1) {
				continue
			}
			if isFn {
				res, err := fn(goja.Undefined(), helper, helper)
				if err != nil {
					return fmt.Errorf("theme.%s: %w", section, err)
				}
				val = res
			}
			applySection(rt, t, section, val, replace)
		}
	}
	return nil
}

func applySection(rt *goja.Runtime, t *twdesign.Theme, section string, val goja.Value, replace bool) {
	if !isObject(val) {
		return
	}
	obj := val.ToObject(rt)
	if section == "keyframes" {
		for _, name := range obj.Keys() {
			frames := ToNodes(rt, obj.Get(name))
			t.AddKeyframes(twcss.NewAtRule("keyframes", name, frames...))
		}
		return
	}
	ns, ok := twdesign.ConfigNamespace(section)
	if !ok {
		ns = "--" + kebab(section)
	}
	switch {
	case !replace || sharedSections[section]:
	case ns == "--animate":
		// clearing the namespace would drop keyframes too
		for _, name := range t.Namespace(ns) {
			key := ns + "-" + name
			if name == "DEFAULT" {
				key = ns
			}
			t.Add(key, "initial", 0)
		}
	default:
		t.Add(ns+"-*", "initial", 0)
	}
	switch section {
	case "fontSize":
		applyFontSize(rt, t, ns, obj)
		return
	case "screens":
		for _, name := range obj.Keys() {
			if v, ok := screenMin(rt, obj.Get(name)); ok {
				t.Add(ns+"-"+name, v, 0)
			}
		}
		return
	}
	for _, kv := range Entries(rt, obj) {
		key := ns
		if kv.Key != "DEFAULT" {
			key = ns + "-" + kv.Key
		}
		t.Add(key, kv.Value, 0)
	}
}

// applyFontSize handles "1rem", ["1rem", "1.5rem"] and
// ["1rem", {lineHeight, letterSpacing, fontWeight}].
func applyFontSize(rt *goja.Runtime, t *twdesign.Theme, ns string, obj *goja.Object) {
	for _, name := range obj.Keys() {
		key := ns + "-" + name
		if name == "DEFAULT" {
			key = ns
		}
		v := obj.Get(name)
		arr, ok := v.(*goja.Object)
		if !ok || arr.ClassName() != "Array" {
			if !isNullish(v) {
				t.Add(key, v.String(), 0)
			}
			continue
		}
		items := arrayItems(rt, arr)
		if len(items) == 0 {
			continue
		}
		t.Add(key, items[0].String(), 0)
		if len(items) < 2 {
			continue
		}
		if !isObject(items[1]) {
			t.Add(key+"--line-height", items[1].String(), 0)
			continue
		}
		opts := items[1].ToObject(rt)
		for _, sub := range []struct{ js, css string }{
			{"lineHeight", "--line-height"},
			{"letterSpacing", "--letter-spacing"},
			{"fontWeight", "--font-weight"},
		} {
			if sv := opts.Get(sub.js); !isNullish(sv) {
				t.Add(key+sub.css, sv.String(), 0)
			}
		}
	}
}

// screenMin reads "640px" or {min: "640px"}. max and raw screens have no
// min-width form and are skipped.
func screenMin(rt *goja.Runtime, v goja.Value) (string, bool) {
	if isNullish(v) {
		return "", false
	}
	if !isObject(v) {
		return v.String(), true
	}
	if min := v.ToObject(rt).Get("min"); !isNullish(min) {
		return min.String(), true
	}
	return "", false
}

// themeHelper is the first argument of section functions. It is callable
// as theme(path, default) and also carries theme, colors and breakpoints,
// so both (theme) => and ({ theme, colors }) => forms work.
func themeHelper(rt *goja.Runtime, t *twdesign.Theme, colors goja.Value) *goja.Object {
	fn := rt.ToValue(func(call goja.FunctionCall) goja.Value {
		return ThemeValue(rt, t, call.Argument(0).String(), call.Argument(1))
	}).ToObject(rt)
	_ = fn.Set("theme", fn)
	if colors == nil {
		colors = goja.Undefined()
	}
	_ = fn.Set("colors", colors)
	_ = fn.Set("breakpoints", func(call goja.FunctionCall) goja.Value {
		out := rt.NewObject()
		for _, kv := range Entries(rt, call.Argument(0)) {
			_ = out.Set("screen-"+kv.Key, kv.Value)
		}
		return out
	})
	return fn
}

// ResolvePlugins normalizes the configured plugins, presets' first.
func (cfg *Config) ResolvePlugins(rt *goja.Runtime) ([]*Plugin, error) {
	ret := make([]*Plugin, 0, len(cfg.Plugins))
	for i, v := range cfg.Plugins {
		p, err := Resolve(rt, fmt.Sprintf("plugins[%d]", i), v, nil)
		if err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ret, nil
}

// PluginThemes returns the theme objects plugins ship in their config,
// to be applied before the user's own theme.
func PluginThemes(rt *goja.Runtime, plugins []*Plugin) []*goja.Object {
	var ret []*goja.Object
	for _, p := range plugins {
		if !isObject(p.Config) {
			continue
		}
		if th := p.Config.ToObject(rt).Get("theme"); isObject(th) {
			ret = append(ret, th.ToObject(rt))
		}
	}
	return ret
}

// RegisterDarkMode replaces the dark variant according to the darkMode
// strategy. The media strategy is the built-in one.
func (cfg *Config) RegisterDarkMode(ds *twdesign.DesignSystem) error {
	if len(cfg.DarkMode) == 0 {
		return nil
	}
	arg := func(def string) string {
		if len(cfg.DarkMode) > 1 {
			return cfg.DarkMode[1]
		}
		return def
	}
	switch cfg.DarkMode[0] {
	case "media":
	case "class":
		ds.AddStaticVariant("dark", ":is("+arg(".dark")+" &)")
	case "selector":
		sel := arg(".dark")
		ds.AddStaticVariant("dark", "&:where("+sel+", "+sel+" *)")
	case "variant":
		if len(cfg.DarkMode) < 2 {
			return errors.New("darkMode variant strategy needs a selector")
		}
		ds.AddStaticVariant("dark", cfg.DarkMode[1:]...)
	default:
		return fmt.Errorf("unknown darkMode strategy %q", cfg.DarkMode[0])
	}
	return nil
}
