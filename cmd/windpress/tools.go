package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gotailwindcss/windpress/twconfig"
	"github.com/gotailwindcss/windpress/twfiles"
	"github.com/gotailwindcss/windpress/twintellisense"
	"github.com/gotailwindcss/windpress/twvfs"
)

func runVFSEncode(cfg *twconfig.Config) error {
	vol, err := loadProject(cfg)
	if err != nil {
		return err
	}
	s, err := vol.Encode()
	if err != nil {
		return err
	}
	fmt.Println(s)
	return nil
}

func runVFSDecode(ctx context.Context) error {
	var r io.Reader = os.Stdin
	if *vfsDecodeIn != "-" {
		f, err := os.Open(*vfsDecodeIn)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	vol, err := twvfs.DecodeVolume(string(b))
	if err != nil {
		return err
	}
	if *vfsDecodeOut != "" {
		return twfiles.Save(ctx, vol, *vfsDecodeOut, twfiles.WithLogger(slog.Default()))
	}
	for _, p := range vol.Paths() {
		content, _ := vol.Get(p)
		fmt.Printf("%s %s\n", p, styleHint.Render(formatSize(len(content))))
	}
	return nil
}

// newSession loads the project into an intellisense session.
func newSession(ctx context.Context, cfg *twconfig.Config) (*twintellisense.Session, error) {
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	vol, err := loadProject(cfg)
	if err != nil {
		return nil, err
	}
	s := twintellisense.NewSession(e,
		twintellisense.WithEntrypoint(cfg.Entrypoint),
		twintellisense.WithLogger(slog.Default()))
	if _, err := s.Reload(ctx, vol); err != nil {
		return nil, err
	}
	return s, nil
}

func runComplete(ctx context.Context, cfg *twconfig.Config) error {
	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	opts := []twintellisense.SearchOption{twintellisense.WithThreshold(cfg.Intellisense.Threshold)}
	if cfg.Intellisense.Limit > 0 {
		opts = append(opts, twintellisense.WithLimit(cfg.Intellisense.Limit))
	}
	res, err := s.Search(*completeQuery, opts...)
	if err != nil {
		return err
	}
	for _, sg := range res {
		if sg.Color == nil {
			fmt.Println(sg.Value)
			continue
		}
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(*sg.Color)).Render("■")
		fmt.Printf("%s %s %s\n", sg.Value, swatch, styleHint.Render(*sg.Color))
	}
	return nil
}

func runSort(ctx context.Context, cfg *twconfig.Config) error {
	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	var classes []string
	for _, arg := range *sortClasses {
		classes = append(classes, strings.Fields(arg)...)
	}
	sorted, err := s.Sort(classes)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(sorted, " "))
	return nil
}

func runHover(ctx context.Context, cfg *twconfig.Config) error {
	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	css, err := s.CSS(*hoverCandidates)
	if err != nil {
		return err
	}
	for i, c := range *hoverCandidates {
		if css[i] == "" {
			fmt.Fprintln(os.Stderr, styleWarn.Render(c+": not a utility"))
			continue
		}
		fmt.Println(css[i])
	}
	return nil
}

func runVariables(ctx context.Context, cfg *twconfig.Config) error {
	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	vars, err := s.Variables()
	if err != nil {
		return err
	}
	for _, v := range vars {
		fmt.Printf("%s %s\n", styleHeader.Render(v.Key), v.Value)
	}
	return nil
}
