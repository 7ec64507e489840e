// Package windpress turns Tailwind class candidates plus a stylesheet entry
// point held in a virtual file set into final CSS. Two engines, one per
// Tailwind major version, implement Engine; this package holds their shared
// contract and the Converter that expands @apply, @variant and the theme
// functions and writes the result.
package windpress

import (
	"context"
	"fmt"
	"strings"

	"github.com/gotailwindcss/windpress/twdesign"
	"github.com/gotailwindcss/windpress/twvfs"
)

// Version selects an engine. It is always given explicitly, never sniffed
// from the stylesheet.
type Version string

const (
	V3 Version = "3"
	V4 Version = "4"
)

// ParseVersion accepts "3", "v3", "4", "v4" and full versions such as
// "4.1.11".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	major, _, _ := strings.Cut(s, ".")
	switch major {
	case "3":
		return V3, nil
	case "4":
		return V4, nil
	}
	return "", fmt.Errorf("unsupported tailwind version %q", s)
}

// Default volume paths.
const (
	DefaultEntrypoint = "/main.css"
	DefaultConfig     = "/tailwind.config.js"
)

// ContentRecord is a sample of markup scanned for candidates by the 3.x
// engine, e.g. a rendered post body.
type ContentRecord struct {
	Content   string `json:"content"`
	Extension string `json:"extension,omitempty"`
}

// Request is a compilation request.
type Request struct {
	Candidates []string
	// Entrypoint is the stylesheet path in Volume, DefaultEntrypoint when
	// empty.
	Entrypoint string
	// Config is the 3.x config module path. When empty DefaultConfig is
	// used if present, otherwise the default configuration.
	Config  string
	Content []ContentRecord
	Volume  *twvfs.Volume
}

// EntrypointOrDefault returns the entry point to compile.
func (r *Request) EntrypointOrDefault() string {
	if r.Entrypoint == "" {
		return DefaultEntrypoint
	}
	return r.Entrypoint
}

// Engine compiles requests for one Tailwind major version.
type Engine interface {
	Version() Version
	// Compile returns the CSS for req, prefixed with the version banner.
	// Identical requests give identical output.
	Compile(ctx context.Context, req *Request) (string, error)
	// DesignSystem returns the design system an entry point describes. It
	// is shared and must be treated as read-only.
	DesignSystem(ctx context.Context, entrypoint string, volume *twvfs.Volume) (*twdesign.DesignSystem, error)
}

// CompileError wraps whatever made a compilation fail: an unresolvable
// entry point, config or module, or an unknown @apply class.
type CompileError struct {
	Entrypoint string
	Err        error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Entrypoint, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Banner returns the license comment output starts with.
func Banner(version string) string {
	return "/*! tailwindcss v" + version + " | MIT License | https://tailwindcss.com */"
}
