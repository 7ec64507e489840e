package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/viant/gmetric"

	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twconfig"
	"github.com/gotailwindcss/windpress/twhandler"
	"github.com/gotailwindcss/windpress/twintellisense"
	"github.com/gotailwindcss/windpress/twpurge"
	"github.com/gotailwindcss/windpress/twvfs"
	"github.com/gotailwindcss/windpress/twwatch"
)

// liveProject is the watched project and the candidates its files use.
type liveProject struct {
	dir     string
	scanner *twpurge.Scanner

	mu         sync.RWMutex
	vol        *twvfs.Volume
	candidates []string
}

func (p *liveProject) Volume() *twvfs.Volume {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vol
}

func (p *liveProject) Candidates() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.candidates
}

func (p *liveProject) update(vol *twvfs.Volume) {
	p.scanner.Reset()
	if err := p.scanner.ScanDir(p.dir); err != nil {
		slog.Warn("candidate scan failed", "dir", p.dir, "err", err)
	}
	list := p.scanner.Candidates()
	p.mu.Lock()
	p.vol, p.candidates = vol, list
	p.mu.Unlock()
}

func runServe(ctx context.Context, cfg *twconfig.Config) error {
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}
	bus := twbus.New(twbus.WithLogger(slog.Default()))
	defer bus.Close()

	proj := &liveProject{dir: cfg.Project, scanner: newScanner(*buildExt)}
	w, err := twwatch.New(cfg.Project,
		twwatch.WithDelay(cfg.Watch.Delay),
		twwatch.WithBus(bus),
		twwatch.WithHandler(proj.update),
		twwatch.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}
	proj.update(w.Volume())

	session := twintellisense.NewSession(e,
		twintellisense.WithEntrypoint(cfg.Entrypoint),
		twintellisense.WithLogger(slog.Default()))
	if _, err := session.Reload(ctx, proj.Volume()); err != nil {
		slog.Warn("intellisense not loaded", "err", err)
	}

	h := twhandler.New(e, proj,
		twhandler.WithBus(bus, cfg.Serve.Origins...),
		twhandler.WithMetrics(gmetric.New()),
		twhandler.WithSession(session),
		twhandler.WithConfigPath(cfg.Config),
		twhandler.WithMinify(cfg.Build.Minify),
		twhandler.WithSearch(cfg.Intellisense.Threshold, cfg.Intellisense.Limit),
		twhandler.WithLogger(slog.Default()),
	)
	if cfg.Serve.MaxAge > 0 {
		h.SetMaxAge(cfg.Serve.MaxAge)
	}

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error(name+" stopped", "err", err)
			}
		}()
	}
	background("watcher", w.Run)
	background("intellisense", func(ctx context.Context) error { return session.Listen(ctx, bus) })
	if len(cfg.Cache.Providers) > 0 {
		b, err := newCacheBuilder(cfg, e)
		if err != nil {
			return err
		}
		background("cache builder", func(ctx context.Context) error { return b.Listen(ctx, bus, proj.Volume) })
	}

	srv := &http.Server{Addr: cfg.Serve.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			slog.Error("HTTP server shutdown", "err", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "%s %s %s\n", styleHeader.Render("serving"), cfg.Project,
		styleHint.Render("on "+cfg.Serve.Addr))
	err = srv.ListenAndServe()
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

var _ twhandler.Project = (*liveProject)(nil)
