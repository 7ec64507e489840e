package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twcompile"
	"github.com/gotailwindcss/windpress/twconfig"
	"github.com/gotailwindcss/windpress/twembed"
	"github.com/gotailwindcss/windpress/twoptimize"
	"github.com/gotailwindcss/windpress/twpurge"
	"github.com/gotailwindcss/windpress/twvfs"
	"github.com/gotailwindcss/windpress/twwatch"
)

func splitExt(s string) []string {
	parts := strings.Split(s, ",")
	ret := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ret = append(ret, "."+strings.TrimPrefix(p, "."))
		}
	}
	return ret
}

// compileProject compiles vol with the candidates found by scanning dir.
func compileProject(ctx context.Context, cfg *twconfig.Config, e windpress.Engine, vol *twvfs.Volume, scanner *twpurge.Scanner, dir string, extra []string) (*twoptimize.Result, int, error) {
	scanner.Reset()
	if dir != "" {
		slog.Debug("performing candidate scan", "dir", dir)
		if err := scanner.ScanDir(dir); err != nil {
			return nil, 0, err
		}
	}
	scanner.Add(extra...)
	candidates := scanner.Candidates()
	res, err := twcompile.Build(ctx, e, &windpress.Request{
		Candidates: candidates,
		Entrypoint: cfg.Entrypoint,
		Config:     cfg.Config,
		Volume:     vol,
	}, cfg.Build.Minify, twoptimize.WithLogger(slog.Default()))
	return res, len(candidates), err
}

func writeOutput(path string, b []byte) error {
	var w io.Writer
	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err := w.Write(b)
	return err
}

func runBuild(ctx context.Context, cfg *twconfig.Config) error {
	start := time.Now()
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}
	vol, err := loadProject(cfg)
	if err != nil {
		return err
	}
	dir := *buildScan
	if dir == "" {
		dir = cfg.Project
	}
	res, n, err := compileProject(ctx, cfg, e, vol, newScanner(*buildExt), dir, *buildCandidates)
	if err != nil {
		return err
	}
	if err := writeOutput(cfg.Build.Output, res.Code); err != nil {
		return err
	}
	printWarnings(res.Warnings)
	printSummary(cfg.Build.Output, n, len(res.Code), time.Since(start))
	return nil
}

func runWatch(ctx context.Context, cfg *twconfig.Config) error {
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}
	scanner := newScanner(*buildExt)
	rebuild := func(vol *twvfs.Volume) {
		start := time.Now()
		res, n, err := compileProject(ctx, cfg, e, vol, scanner, cfg.Project, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, styleError.Render("build failed:"), err)
			return
		}
		if err := writeOutput(cfg.Build.Output, res.Code); err != nil {
			fmt.Fprintln(os.Stderr, styleError.Render("write failed:"), err)
			return
		}
		printWarnings(res.Warnings)
		printSummary(cfg.Build.Output, n, len(res.Code), time.Since(start))
	}

	w, err := twwatch.New(cfg.Project,
		twwatch.WithDelay(cfg.Watch.Delay),
		twwatch.WithHandler(rebuild),
		twwatch.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}
	rebuild(w.Volume())
	fmt.Fprintln(os.Stderr, styleHint.Render("watching "+cfg.Project))
	return w.Run(ctx)
}

func runVersion(cfg *twconfig.Config) {
	major := 4
	if cfg.EngineVersion() == windpress.V3 {
		major = 3
	}
	fmt.Printf("windpress %s\n", version)
	fmt.Printf("tailwindcss %s\n", twembed.New(major).Version())
}
