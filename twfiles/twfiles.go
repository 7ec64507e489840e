// Package twfiles loads a project into a volume and writes one back.
// Loaders are provided for storage URLs (any scheme afs knows), for io/fs
// file systems and for net/http.FileSystem.
package twfiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/gotailwindcss/windpress/twvfs"
)

// DefaultPatterns select the files a project volume is made of: stylesheets,
// config and plugin modules.
var DefaultPatterns = []string{"**/*.css", "**/*.{js,mjs,cjs,ts}", "**/*.json"}

// DefaultMaxSize skips files larger than 1MiB.
const DefaultMaxSize = 1 << 20

type options struct {
	patterns []string
	ignore   []string
	maxSize  int64
	logger   *slog.Logger
	fs       afs.Service
}

// Option configures loading.
type Option func(*options)

// WithPatterns replaces DefaultPatterns. Patterns are doublestar globs
// relative to the project root.
func WithPatterns(p ...string) Option { return func(o *options) { o.patterns = p } }

// WithIgnore adds gitignore lines. A .gitignore at the root is always
// honored, as are node_modules and .git.
func WithIgnore(lines ...string) Option {
	return func(o *options) { o.ignore = append(o.ignore, lines...) }
}

// WithMaxSize sets the largest file loaded, in bytes.
func WithMaxSize(n int64) Option { return func(o *options) { o.maxSize = n } }

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option { return func(o *options) { o.logger = lg } }

// WithStorage replaces the afs service used by Load and Save.
func WithStorage(fs afs.Service) Option { return func(o *options) { o.fs = fs } }

func newOptions(opts []Option) options {
	o := options{patterns: DefaultPatterns, maxSize: DefaultMaxSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fs == nil {
		o.fs = afs.New()
	}
	return o
}

// filter decides which relative paths are part of the project.
type filter struct {
	patterns []string
	ignore   *ignore.GitIgnore
}

func (o options) filter(gitignore string) *filter {
	lines := append([]string{"node_modules/", ".git/"}, o.ignore...)
	if gitignore != "" {
		lines = append(lines, strings.Split(gitignore, "\n")...)
	}
	return &filter{patterns: o.patterns, ignore: ignore.CompileIgnoreLines(lines...)}
}

func (f *filter) wants(rel string) bool {
	rel = strings.TrimPrefix(rel, "/")
	if f.ignore.MatchesPath(rel) {
		return false
	}
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// LoadDir reads the project in the OS directory dir.
func LoadDir(dir string, opts ...Option) (*twvfs.Volume, error) {
	return LoadFS(os.DirFS(dir), opts...)
}

// LoadFS reads the project at the root of fsys.
func LoadFS(fsys fs.FS, opts ...Option) (*twvfs.Volume, error) {
	o := newOptions(opts)
	gi, _ := fs.ReadFile(fsys, ".gitignore")
	flt := o.filter(string(gi))

	vol := twvfs.NewVolume(nil)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && flt.ignore.MatchesPath(p+"/") {
				return fs.SkipDir
			}
			return nil
		}
		if !flt.wants(p) {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Size() > o.maxSize {
			o.logger.Warn("project file too large, skipped", "path", p, "size", info.Size())
			return nil
		}
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("[twfiles/%s]: %w", p, err)
		}
		vol.Set("/"+p, string(b))
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.logger.Debug("project loaded", "files", vol.Len())
	return vol, nil
}

// Load reads the project under a storage URL, e.g. file:///srv/site or
// mem://localhost/site.
func Load(ctx context.Context, baseURL string, opts ...Option) (*twvfs.Volume, error) {
	o := newOptions(opts)
	objects, err := o.fs.List(ctx, baseURL, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("[twfiles/%s]: %w", baseURL, err)
	}
	root := strings.TrimSuffix(url.Path(baseURL), "/")

	var gitignore string
	if data, err := o.fs.DownloadWithURL(ctx, url.Join(baseURL, ".gitignore")); err == nil {
		gitignore = string(data)
	}
	flt := o.filter(gitignore)

	vol := twvfs.NewVolume(nil)
	for _, obj := range objects {
		if obj.IsDir() {
			continue
		}
		rel := strings.TrimPrefix(url.Path(obj.URL()), root)
		if rel == "" || !flt.wants(rel) {
			continue
		}
		if obj.Size() > o.maxSize {
			o.logger.Warn("project file too large, skipped", "url", obj.URL(), "size", obj.Size())
			continue
		}
		data, err := o.fs.Download(ctx, obj)
		if err != nil {
			return nil, fmt.Errorf("[twfiles/%s]: %w", obj.URL(), err)
		}
		vol.Set(path.Clean("/"+rel), string(data))
	}
	o.logger.Debug("project loaded", "url", baseURL, "files", vol.Len())
	return vol, nil
}

// Save writes every file of vol under a storage URL.
func Save(ctx context.Context, vol *twvfs.Volume, baseURL string, opts ...Option) error {
	o := newOptions(opts)
	for _, p := range vol.Paths() {
		content, _ := vol.Get(p)
		u := url.Join(baseURL, strings.TrimPrefix(p, "/"))
		if err := o.fs.Upload(ctx, u, file.DefaultFileOsMode, strings.NewReader(content)); err != nil {
			return fmt.Errorf("[twfiles/%s]: %w", u, err)
		}
	}
	return nil
}

// NewHTTP returns a loader reading from the underlying net/http.FileSystem.
func NewHTTP(fs http.FileSystem) *HTTPFiles {
	return &HTTPFiles{FileSystem: fs}
}

// HTTPFiles loads volume files from a net/http.FileSystem. The file behind
// a volume path is the path itself unless NameMapFunc says otherwise.
type HTTPFiles struct {
	http.FileSystem                          // underlying http FileSystem
	NameMapFunc     func(name string) string // volume path to file name
}

// Load reads the given volume paths. Missing files are skipped.
func (hf *HTTPFiles) Load(paths ...string) (*twvfs.Volume, error) {
	vol := twvfs.NewVolume(nil)
	for _, p := range paths {
		name := p
		if hf.NameMapFunc != nil {
			name = hf.NameMapFunc(p)
		}
		f, err := hf.FileSystem.Open(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("[twfiles/%s]: %w", p, err)
		}
		var b bytes.Buffer
		_, err = io.Copy(&b, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("[twfiles/%s]: %w", p, err)
		}
		vol.Set(path.Clean("/"+strings.TrimPrefix(p, "/")), b.String())
	}
	return vol, nil
}
