// Package twmodule loads JavaScript config and plugin modules out of the
// virtual file set. A module and everything it imports is inlined into one
// self-contained program and evaluated in a fresh interpreter, so loads
// never share global state.
package twmodule

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"

	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twvfs"
)

// ModuleNotFoundError is returned when a module or one of its imports
// cannot be resolved. Chain lists the importing modules, outermost first,
// ending with the path that failed.
type ModuleNotFoundError struct {
	Path  string
	Chain []string
	Err   error
}

func (e *ModuleNotFoundError) Error() string {
	msg := fmt.Sprintf("module %q not found", e.Path)
	if len(e.Chain) > 1 {
		msg += " (import chain: " + strings.Join(e.Chain, " -> ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModuleNotFoundError) Unwrap() error { return e.Err }

// EvalError is returned when a module fails to transform or evaluate.
type EvalError struct {
	Path string
	Err  error
}

func (e *EvalError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *EvalError) Unwrap() error { return e.Err }

// Module is an evaluated module. Exports is module.exports, Default is the
// ES default export when there is one and Exports otherwise. Runtime is the
// interpreter the module lives in, needed to call exported functions.
type Module struct {
	Path    string
	Base    string
	Exports goja.Value
	Default goja.Value
	Runtime *goja.Runtime
}

// Loader resolves, bundles and evaluates modules.
type Loader struct {
	fetcher  twfetch.Fetcher
	registry string
	builtins map[string]string
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher sets the fetcher used for remote modules.
func WithFetcher(f twfetch.Fetcher) Option { return func(l *Loader) { l.fetcher = f } }

// WithRegistry sets the registry bare specifiers are fetched from.
func WithRegistry(u string) Option { return func(l *Loader) { l.registry = u } }

// WithBuiltin registers a host provided module, source is CommonJS or ESM.
func WithBuiltin(name, source string) Option {
	return func(l *Loader) { l.builtins[name] = source }
}

// WithLogger sets the logger, console.* output from modules goes there.
func WithLogger(lg *slog.Logger) Option { return func(l *Loader) { l.logger = lg } }

// New returns a Loader with the "tailwindcss/plugin" builtin registered.
func New(opts ...Option) *Loader {
	l := &Loader{
		registry: twfetch.DefaultRegistry,
		builtins: map[string]string{"tailwindcss/plugin": pluginSource},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	if l.fetcher == nil {
		l.fetcher = twfetch.New(twfetch.WithLogger(l.logger))
	}
	return l
}

// extensions tried, in order, when a path does not exist as given
var extensions = []string{".js", ".mjs", ".cjs", ".ts", ".json", "/index.js"}

// LoadModule resolves p against base, inlines its import graph and
// evaluates it. Remote (http/https) modules never touch vol.
func (l *Loader) LoadModule(ctx context.Context, p, base string, vol *twvfs.Volume) (*Module, error) {
	id, src, err := l.resolve(ctx, p, base, vol)
	if err != nil {
		return nil, &ModuleNotFoundError{Path: p, Chain: []string{p}, Err: err}
	}
	b := &bundle{sources: map[string]string{}}
	if err := l.collect(ctx, id, src, nil, b, vol); err != nil {
		return nil, err
	}
	program, err := b.program(id)
	if err != nil {
		return nil, &EvalError{Path: id, Err: err}
	}

	rt := goja.New()
	l.installConsole(rt, id)
	stop := context.AfterFunc(ctx, func() { rt.Interrupt(ctx.Err()) })
	defer stop()

	exports, err := rt.RunString(program)
	if err != nil {
		return nil, &EvalError{Path: id, Err: err}
	}
	m := &Module{Path: id, Base: dir(id), Exports: exports, Default: exports, Runtime: rt}
	if obj, ok := exports.(*goja.Object); ok {
		if esm := obj.Get("__esModule"); esm != nil && esm.ToBoolean() {
			if d := obj.Get("default"); d != nil && !goja.IsUndefined(d) {
				m.Default = d
			}
		}
	}
	l.logger.Debug("module loaded", "path", id, "modules", len(b.order))
	return m, nil
}

func dir(id string) string {
	if twfetch.IsRemote(id) {
		return twfetch.Dir(id)
	}
	return path.Dir(id)
}

func isRelative(s string) bool {
	return strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") || s == "." || s == ".."
}

// resolve returns the canonical id of a specifier and its source.
func (l *Loader) resolve(ctx context.Context, spec, base string, vol *twvfs.Volume) (string, string, error) {
	if src, ok := l.builtins[spec]; ok {
		return spec, src, nil
	}
	if twfetch.IsRemote(spec) {
		src, err := l.fetcher.Fetch(ctx, spec)
		return spec, src, err
	}
	if twfetch.IsRemote(base) && (isRelative(spec) || strings.HasPrefix(spec, "/")) {
		u, err := twfetch.ResolveURL(base, spec)
		if err != nil {
			return "", "", err
		}
		src, err := l.fetcher.Fetch(ctx, u)
		return u, src, err
	}

	var resolved string
	switch {
	case strings.HasPrefix(spec, "/"):
		resolved = path.Clean(spec)
	case isRelative(spec):
		if base == "" {
			base = "/"
		}
		resolved = path.Join(base, spec)
	default:
		resolved = path.Join("/node_modules", spec)
	}
	if vol != nil {
		if src, ok := vol.Get(resolved); ok {
			return resolved, src, nil
		}
		for _, ext := range extensions {
			if src, ok := vol.Get(resolved + ext); ok {
				return resolved + ext, src, nil
			}
		}
	}
	if !isRelative(spec) && !strings.HasPrefix(spec, "/") {
		u := l.registry + spec
		src, err := l.fetcher.Fetch(ctx, u)
		return u, src, err
	}
	return "", "", fmt.Errorf("no such file in volume")
}

type bundle struct {
	order   []string
	sources map[string]string
}

// collect transforms id and, recursively, everything it imports into the
// bundle. Import specifiers are rewritten to canonical ids.
func (l *Loader) collect(ctx context.Context, id, src string, chain []string, b *bundle, vol *twvfs.Volume) error {
	if _, ok := b.sources[id]; ok {
		return nil
	}
	b.sources[id] = ""
	chain = append(chain[:len(chain):len(chain)], id)

	specs := scanImports(src)
	rewritten := src
	for i := len(specs) - 1; i >= 0; i-- {
		s := specs[i]
		target, targetSrc, err := l.resolve(ctx, s.Value, dir(id), vol)
		if err != nil {
			return &ModuleNotFoundError{Path: s.Value, Chain: append(chain[:len(chain):len(chain)], s.Value), Err: err}
		}
		if err := l.collect(ctx, target, targetSrc, chain, b, vol); err != nil {
			return err
		}
		lit, _ := json.Marshal(target)
		rewritten = rewritten[:s.Offset] + string(lit) + rewritten[s.End:]
	}

	code, err := transform(id, rewritten)
	if err != nil {
		return err
	}
	b.sources[id] = code
	b.order = append(b.order, id)
	return nil
}

func transform(id, src string) (string, error) {
	loader := api.LoaderJS
	switch path.Ext(strings.SplitN(id, "?", 2)[0]) {
	case ".ts", ".mts", ".cts":
		loader = api.LoaderTS
	case ".json":
		loader = api.LoaderJSON
	}
	result := api.Transform(src, api.TransformOptions{
		Loader:     loader,
		Format:     api.FormatCommonJS,
		Target:     api.ES2015,
		Sourcefile: id,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			if m.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			} else {
				msgs = append(msgs, m.Text)
			}
		}
		return "", &EvalError{Path: id, Err: fmt.Errorf("%s", strings.Join(msgs, "; "))}
	}
	return string(result.Code), nil
}

const requireShim = `
  var __cache = {};
  function __require(id) {
    if (Object.prototype.hasOwnProperty.call(__cache, id)) return __cache[id].exports;
    var def = __defs[id];
    if (!def) throw new Error("Cannot find module '" + id + "'");
    var module = { exports: {} };
    __cache[id] = module;
    def.call(module.exports, module, module.exports, __require);
    return module.exports;
  }
`

// program synthesizes the single script that defines every collected
// module and returns the entry's exports.
func (b *bundle) program(entry string) (string, error) {
	ids := append([]string(nil), b.order...)
	sort.Strings(ids)
	var sb strings.Builder
	sb.WriteString("(function () {\n  var __defs = {};\n")
	for _, id := range ids {
		key, err := json.Marshal(id)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "  __defs[%s] = function (module, exports, require) {\n%s\n  };\n", key, b.sources[id])
	}
	sb.WriteString(requireShim)
	key, _ := json.Marshal(entry)
	fmt.Fprintf(&sb, "  return __require(%s);\n})()", key)
	return sb.String(), nil
}

func (l *Loader) installConsole(rt *goja.Runtime, id string) {
	console := rt.NewObject()
	logf := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			l.logger.Log(context.Background(), level, strings.Join(parts, " "), "module", id)
			return goja.Undefined()
		}
	}
	_ = console.Set("log", logf(slog.LevelInfo))
	_ = console.Set("info", logf(slog.LevelInfo))
	_ = console.Set("debug", logf(slog.LevelDebug))
	_ = console.Set("warn", logf(slog.LevelWarn))
	_ = console.Set("error", logf(slog.LevelError))
	_ = rt.Set("console", console)
}

// pluginSource backs require("tailwindcss/plugin").
const pluginSource = `
function createPlugin(handler, config) {
  return { handler: handler, config: config };
}
createPlugin.withOptions = function (pluginFunction, configFunction) {
  configFunction = configFunction || function () { return {}; };
  function optionsFunction(options) {
    return { __options: options, handler: pluginFunction(options), config: configFunction(options) };
  }
  optionsFunction.__isOptionsFunction = true;
  optionsFunction.__pluginFunction = pluginFunction;
  optionsFunction.__configFunction = configFunction;
  return optionsFunction;
};
module.exports = createPlugin;
`
