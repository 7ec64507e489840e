package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twcache"
	"github.com/gotailwindcss/windpress/twconfig"
	"github.com/gotailwindcss/windpress/twfetch"
)

func newCacheBuilder(cfg *twconfig.Config, e windpress.Engine) (*twcache.Builder, error) {
	fetcher := twfetch.New(twfetch.WithTimeout(cfg.Fetch.Timeout), twfetch.WithLogger(slog.Default()))
	var providers []twcache.Provider
	for _, p := range cfg.Cache.Providers {
		switch {
		case p.URL != "":
			providers = append(providers, &twcache.RemoteProvider{Name: p.Name, URL: p.URL, Fetcher: fetcher})
		case p.Dir != "":
			if _, err := os.Stat(p.Dir); err != nil {
				return nil, fmt.Errorf("cache provider %s: %w", p.Name, err)
			}
			providers = append(providers, &twcache.FileProvider{
				Name:     p.Name,
				FS:       os.DirFS(p.Dir),
				Patterns: p.Patterns,
				PageSize: cfg.Cache.PageSize,
			})
		}
	}
	return twcache.NewBuilder(e,
		twcache.WithProviders(providers...),
		twcache.WithEntrypoint(cfg.Entrypoint),
		twcache.WithOutput(cfg.Cache.Output),
		twcache.WithMinify(cfg.Build.Minify),
		twcache.WithLogger(slog.Default()),
	), nil
}

func runCache(ctx context.Context, cfg *twconfig.Config) error {
	if len(cfg.Cache.Providers) == 0 {
		return fmt.Errorf("no cache providers configured")
	}
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}
	vol, err := loadProject(cfg)
	if err != nil {
		return err
	}
	b, err := newCacheBuilder(cfg, e)
	if err != nil {
		return err
	}
	opts := twcache.BuildCacheOptions{Kind: twcache.Kind(*cacheKind)}
	if opts.Kind == twcache.KindIncremental {
		opts.Incremental = &twcache.Incremental{Providers: *cacheProviders}
	}
	res, err := b.Build(ctx, vol, opts)
	if err != nil {
		return err
	}
	if res.URL == "" {
		if err := writeOutput("-", []byte(res.CSS)); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "%s %s %s\n", styleOK.Render("cache built"), res.URL,
		styleHint.Render(fmt.Sprintf("(%s, %d providers, %d pages, %d candidates, %s)",
			res.Kind, len(res.Providers), res.Pages, res.Candidates, formatSize(res.Bytes))))
	return nil
}
