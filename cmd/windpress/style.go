package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gotailwindcss/windpress/twoptimize"
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	styleError  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	styleWarn   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	styleOK     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	styleHint   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// printSummary reports a finished build on stderr, keeping stdout for the
// stylesheet.
func printSummary(output string, candidates, size int, took time.Duration) {
	if output == "" || output == "-" {
		output = "stdout"
	}
	fmt.Fprintf(os.Stderr, "%s %s %s\n",
		styleOK.Render("built"),
		output,
		styleHint.Render(fmt.Sprintf("(%d candidates, %s, %s)", candidates, formatSize(size), took.Round(time.Millisecond))))
}

func printWarnings(ws []twoptimize.Warning) {
	if len(ws) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, styleWarn.Render(fmt.Sprintf("%d warnings", len(ws))))
	for _, w := range ws {
		fmt.Fprintln(os.Stderr, "  "+w.String())
	}
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
