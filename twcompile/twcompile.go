// Package twcompile selects the engine for a Tailwind version tag and runs
// compilations through the optimizer.
package twcompile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twoptimize"
	"github.com/gotailwindcss/windpress/twv3"
	"github.com/gotailwindcss/windpress/twv4"
)

type options struct {
	fetcher   twfetch.Fetcher
	registry  string
	logger    *slog.Logger
	cacheSize int
}

// Option configures the engine New returns.
type Option func(*options)

// WithFetcher sets where remote stylesheets and modules come from.
func WithFetcher(f twfetch.Fetcher) Option { return func(o *options) { o.fetcher = f } }

// WithRegistry sets the package registry bare imports fall back to.
func WithRegistry(u string) Option { return func(o *options) { o.registry = u } }

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option { return func(o *options) { o.logger = lg } }

// WithCacheSize sets how many design systems the engine keeps.
func WithCacheSize(n int) Option { return func(o *options) { o.cacheSize = n } }

// New returns the engine for version v.
func New(v windpress.Version, opts ...Option) (windpress.Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	switch v {
	case windpress.V3:
		var eo []twv3.Option
		if o.fetcher != nil {
			eo = append(eo, twv3.WithFetcher(o.fetcher))
		}
		if o.registry != "" {
			eo = append(eo, twv3.WithRegistry(o.registry))
		}
		if o.logger != nil {
			eo = append(eo, twv3.WithLogger(o.logger))
		}
		if o.cacheSize > 0 {
			eo = append(eo, twv3.WithCacheSize(o.cacheSize))
		}
		return twv3.New(eo...), nil
	case windpress.V4:
		var eo []twv4.Option
		if o.fetcher != nil {
			eo = append(eo, twv4.WithFetcher(o.fetcher))
		}
		if o.registry != "" {
			eo = append(eo, twv4.WithRegistry(o.registry))
		}
		if o.logger != nil {
			eo = append(eo, twv4.WithLogger(o.logger))
		}
		if o.cacheSize > 0 {
			eo = append(eo, twv4.WithCacheSize(o.cacheSize))
		}
		return twv4.New(eo...), nil
	}
	return nil, fmt.Errorf("unsupported tailwind version %q", string(v))
}

// MustNew is New that panics on an unknown version.
func MustNew(v windpress.Version, opts ...Option) windpress.Engine {
	e, err := New(v, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Build compiles req with e and optimizes the result.
func Build(ctx context.Context, e windpress.Engine, req *windpress.Request, minify bool, opts ...twoptimize.Option) (*twoptimize.Result, error) {
	out, err := e.Compile(ctx, req)
	if err != nil {
		return nil, err
	}
	return twoptimize.Optimize(out, minify, opts...)
}
