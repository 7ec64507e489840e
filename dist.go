package windpress

import (
	"fmt"
	"io"
)

// Dist is where tailwind CSS data can be read.
type Dist interface {
	// OpenDist should return a new ReadCloser for the specific tailwind
	// section name. Version 4 has "index", "theme", "preflight" and
	// "utilities", version 3 has "base" and "theme". The caller is
	// responsible for ensuring Close() is called on the response if the
	// error is nil.
	OpenDist(name string) (io.ReadCloser, error)
	// Version is the full tailwind version the sections come from, as
	// printed in the banner.
	Version() string
}

// ReadDist reads a whole section.
func ReadDist(d Dist, name string) (string, error) {
	rc, err := d.OpenDist(name)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("[tailwind-dist/%s]: %w", name, err)
	}
	return string(b), nil
}
