// Package twembed carries the Tailwind distribution stylesheets (theme,
// preflight, entry points) embedded in the binary, so builds never need the
// network for the core package.
package twembed

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

//go:embed dist
var distFS embed.FS

// Versions reported in output banners.
const (
	V3Version = "3.4.17"
	V4Version = "4.1.11"
)

// New returns a Dist for a Tailwind major version, 3 or 4.
func New(major int) Dist {
	if major != 3 && major != 4 {
		panic(fmt.Errorf("twembed.New(%d): unsupported major version", major))
	}
	return Dist{major: major}
}

// Dist implements windpress.Dist over the embedded files.
type Dist struct {
	major int
}

// Version returns the full Tailwind version this Dist stands for.
func (d Dist) Version() string {
	if d.major == 3 {
		return V3Version
	}
	return V4Version
}

// OpenDist returns the named section. Names are file stems with or without
// ".css": v4 has "index", "theme", "preflight" and "utilities"; v3 has
// "base" and "theme".
func (d Dist) OpenDist(name string) (io.ReadCloser, error) {
	f, err := distFS.Open(d.path(name))
	if err != nil {
		return nil, fmt.Errorf("twembed unknown name %q: %w", name, err)
	}
	return f, nil
}

// ReadDist returns the named section as a string.
func (d Dist) ReadDist(name string) (string, error) {
	b, err := fs.ReadFile(distFS, d.path(name))
	if err != nil {
		return "", fmt.Errorf("twembed unknown name %q: %w", name, err)
	}
	return string(b), nil
}

func (d Dist) path(name string) string {
	name = strings.TrimSuffix(strings.TrimPrefix(name, "./"), ".css")
	return fmt.Sprintf("dist/v%d/%s.css", d.major, name)
}

// Stylesheet maps a bare "tailwindcss" package specifier to the embedded
// v4 file. The returned path is the volume path the content should be
// treated as living at.
func Stylesheet(id string) (path string, content string, ok bool) {
	var name string
	switch id {
	case "tailwindcss", "tailwindcss/index", "tailwindcss/index.css":
		name = "index"
	case "tailwindcss/theme", "tailwindcss/theme.css":
		name = "theme"
	case "tailwindcss/preflight", "tailwindcss/preflight.css":
		name = "preflight"
	case "tailwindcss/utilities", "tailwindcss/utilities.css":
		name = "utilities"
	default:
		return "", "", false
	}
	s, err := New(4).ReadDist(name)
	if err != nil {
		return "", "", false
	}
	return "/node_modules/tailwindcss/" + name + ".css", s, true
}
