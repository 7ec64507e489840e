package twcache

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twfetch"
)

// FileProvider pages through the files of fsys matching Patterns, e.g.
// theme templates.
type FileProvider struct {
	Name     string
	FS       fs.FS
	Patterns []string
	// PageSize is the number of files per batch, 50 when zero.
	PageSize int

	files []string
}

// ID implements Provider.
func (p *FileProvider) ID() string { return p.Name }

// Scan implements Provider. The file list is taken on batch 1.
func (p *FileProvider) Scan(_ context.Context, batch int) (*Page, error) {
	if batch == 1 || p.files == nil {
		seen := map[string]bool{}
		p.files = p.files[:0]
		for _, pat := range p.Patterns {
			matches, err := doublestar.Glob(p.FS, pat, doublestar.WithFilesOnly())
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				if !seen[m] {
					seen[m] = true
					p.files = append(p.files, m)
				}
			}
		}
		sort.Strings(p.files)
	}
	size := p.PageSize
	if size <= 0 {
		size = 50
	}
	from := (batch - 1) * size
	page := &Page{}
	for i := from; i < from+size && i < len(p.files); i++ {
		b, err := fs.ReadFile(p.FS, p.files[i])
		if err != nil {
			return nil, err
		}
		page.Contents = append(page.Contents, windpress.ContentRecord{Content: string(b), Extension: path.Ext(p.files[i])})
	}
	if from+size < len(p.files) {
		page.Metadata.NextBatch = NextBatch(batch + 1)
	}
	return page, nil
}

// RemoteProvider reads pages from an endpoint answering
// {contents, metadata: {next_batch}} for URL?batch=N.
type RemoteProvider struct {
	Name    string
	URL     string
	Fetcher twfetch.Fetcher
}

// ID implements Provider.
func (p *RemoteProvider) ID() string { return p.Name }

// Scan implements Provider.
func (p *RemoteProvider) Scan(ctx context.Context, batch int) (*Page, error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("batch", strconv.Itoa(batch))
	u.RawQuery = q.Encode()

	body, err := p.Fetcher.Fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}
	var page Page
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		return nil, fmt.Errorf("provider page %s: %w", u, err)
	}
	return &page, nil
}
