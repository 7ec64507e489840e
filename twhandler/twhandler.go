// Package twhandler serves a windpress project over HTTP: compiled
// stylesheets, a compile endpoint, intellisense queries, the message bus
// and metrics.
package twhandler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash"
	"github.com/go-chi/chi/v5"
	"github.com/viant/gmetric"
	"github.com/viant/gmetric/provider"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twintellisense"
	"github.com/gotailwindcss/windpress/twoptimize"
	"github.com/gotailwindcss/windpress/twvfs"
)

// MetricsURI is where the metrics routes are mounted.
const MetricsURI = "/metrics"

// Event is a counted operation outcome.
type Event string

const (
	Success Event = "Success"
	Error   Event = "Error"
)

// Project supplies what the handler compiles: the current volume and the
// candidates the site uses.
type Project interface {
	Volume() *twvfs.Volume
	Candidates() []string
}

// StaticProject is a fixed volume and candidate list.
type StaticProject struct {
	Vol  *twvfs.Volume
	List []string
}

func (p StaticProject) Volume() *twvfs.Volume { return p.Vol }
func (p StaticProject) Candidates() []string  { return p.List }

// Option configures a Handler.
type Option func(*Handler)

// WithBus mounts the websocket bus at /bus. Origins are the patterns
// cross-origin clients must match.
func WithBus(b *twbus.Bus, origins ...string) Option {
	return func(h *Handler) { h.bus, h.origins = b, origins }
}

// WithMetrics records operation counters in svc, served under MetricsURI.
func WithMetrics(svc *gmetric.Service) Option { return func(h *Handler) { h.metrics = svc } }

// WithSession answers intellisense queries from s instead of a private
// session.
func WithSession(s *twintellisense.Session) Option { return func(h *Handler) { h.session = s } }

// WithConfigPath sets the Tailwind 3 config module served stylesheets are
// compiled with.
func WithConfigPath(p string) Option { return func(h *Handler) { h.config = p } }

// WithMinify minifies served stylesheets.
func WithMinify(on bool) Option { return func(h *Handler) { h.minify = on } }

// WithSearch sets the fuzzy threshold and result limit of class search.
func WithSearch(threshold float64, limit int) Option {
	return func(h *Handler) { h.threshold, h.limit = threshold, limit }
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option { return func(h *Handler) { h.logger = lg } }

// New returns a Handler compiling p with e. The internal cache is enabled
// on the Handler returned.
func New(e windpress.Engine, p Project, opts ...Option) *Handler {
	h := &Handler{
		engine:     e,
		project:    p,
		cache:      make(map[string]cacheValue),
		headerFunc: defaultHeaderFunc,
		threshold:  twintellisense.DefaultThreshold,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.session == nil {
		h.session = twintellisense.NewSession(e, twintellisense.WithLogger(h.logger))
	}
	if h.metrics != nil {
		h.compileCounter = h.counter("compile", "stylesheet compilation")
		h.queryCounter = h.counter("intellisense", "intellisense query")
	}
	h.router = h.routes()
	return h
}

func defaultHeaderFunc(w http.ResponseWriter, r *http.Request) {
	cc := w.Header().Get("Cache-Control")
	if cc == "" {
		// Force browser to check each time, but 304 still works.
		w.Header().Set("Cache-Control", "no-cache")
	}
}

// Handler serves a project over HTTP.
type Handler struct {
	engine          windpress.Engine
	project         Project
	session         *twintellisense.Session
	bus             *twbus.Bus
	origins         []string
	metrics         *gmetric.Service
	compileCounter  *gmetric.Operation
	queryCounter    *gmetric.Operation
	config          string
	minify          bool
	threshold       float64
	limit           int
	logger          *slog.Logger
	notFound        http.Handler
	writeCloserFunc func(w http.ResponseWriter, r *http.Request) io.WriteCloser
	headerFunc      func(w http.ResponseWriter, r *http.Request)
	router          chi.Router

	rwmu  sync.RWMutex
	cache map[string]cacheValue
}

// SetMaxAge calls SetHeaderFunc with a function that sets the Cache-Control header (if not already set)
// with a corresponding maximum timeout specified in seconds.  If cache-breaking
// URLs are in use, this is a good option to set in production.
func (h *Handler) SetMaxAge(n int) {
	h.SetHeaderFunc(func(w http.ResponseWriter, r *http.Request) {
		cc := w.Header().Get("Cache-Control")
		if cc == "" {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", n))
		}
	})
}

// SetHeaderFunc assigns a function that gets called immediately before a stylesheet is served.
// By default, the Cache-Control header will be set to "no-cache" if it was not set earlier.
func (h *Handler) SetHeaderFunc(f func(w http.ResponseWriter, r *http.Request)) {
	h.headerFunc = f
}

// SetNotFoundHandler assigns the handler that gets called when a stylesheet is not found.
func (h *Handler) SetNotFoundHandler(nfh http.Handler) {
	h.notFound = nfh
}

// SetCache with false will disable the cache.
func (h *Handler) SetCache(enabled bool) {
	h.rwmu.Lock()
	defer h.rwmu.Unlock()
	if enabled {
		h.cache = make(map[string]cacheValue)
	} else {
		h.cache = nil
	}
}

// SetWriteCloserFunc wraps stylesheet responses, e.g. in a compressor.
func (h *Handler) SetWriteCloserFunc(f func(w http.ResponseWriter, r *http.Request) io.WriteCloser) {
	h.writeCloserFunc = f
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/css/*", h.serveCSS)
	r.Post("/compile", h.handleCompile)
	r.Route("/intellisense", func(r chi.Router) {
		r.Get("/classes", h.handleClasses)
		r.Post("/sort", h.handleSort)
		r.Post("/css", h.handleCandidateCSS)
		r.Get("/variables", h.handleVariables)
	})
	if h.bus != nil {
		r.Handle("/bus", h.bus.Handler(h.origins...))
	}
	if h.metrics != nil {
		r.Handle(MetricsURI+"*", gmetric.NewHandler(MetricsURI, h.metrics))
	}
	return r
}

func (h *Handler) counter(name, title string) *gmetric.Operation {
	if c := h.metrics.LookupOperation(name); c != nil {
		return c
	}
	return h.metrics.MultiOperationCounter("windpress", name, title, time.Millisecond, time.Minute, 2, provider.NewBasic())
}

// track begins counting an operation; the returned func ends it.
func track(c *gmetric.Operation) func(err error) {
	if c == nil {
		return func(error) {}
	}
	onDone := c.Begin(time.Now())
	return func(err error) {
		if err != nil {
			c.IncrementValue(Error)
		} else {
			c.IncrementValue(Success)
		}
		onDone(time.Now())
	}
}

// serveCSS compiles the entry point named by the path against the project
// candidates.
func (h *Handler) serveCSS(w http.ResponseWriter, r *http.Request) {
	entry := path.Clean("/" + chi.URLParam(r, "*"))
	if path.Ext(entry) != ".css" {
		h.serveNotFound(w, r)
		return
	}
	vol := h.project.Volume()
	if vol == nil || !vol.Has(entry) {
		h.serveNotFound(w, r)
		return
	}
	candidates := h.project.Candidates()
	key := windpress.CacheKey(vol, append([]string{entry, strconv.FormatBool(h.minify)}, candidates...)...)

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if h.headerFunc != nil {
		h.headerFunc(w, r)
	}

	h.rwmu.RLock()
	cv, ok := h.cache[entry]
	h.rwmu.RUnlock()
	if !ok || cv.key != key {
		var err error
		cv, err = h.process(r, entry, vol, candidates)
		if err != nil {
			h.compileFailed(w, entry, err)
			return
		}
		cv.key = key
		h.rwmu.Lock()
		if h.cache != nil {
			h.cache[entry] = cv
		}
		h.rwmu.Unlock()
	}

	w.Header().Set("ETag", fmt.Sprintf(`"%x"`, cv.hash))
	wc := h.makeW(w, r)
	defer wc.Close()
	// ServeContent answers If-None-Match with a 304.
	http.ServeContent(&wwrap{Writer: wc, ResponseWriter: w}, r, entry, time.Time{}, strings.NewReader(cv.content))
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	if h.notFound != nil {
		h.notFound.ServeHTTP(w, r)
		return
	}
	http.Error(w, fmt.Sprintf("%s not found", r.URL.Path), http.StatusNotFound)
}

func (h *Handler) process(r *http.Request, entry string, vol *twvfs.Volume, candidates []string) (cv cacheValue, reterr error) {
	done := track(h.compileCounter)
	defer func() { done(reterr) }()

	css, err := h.engine.Compile(r.Context(), &windpress.Request{
		Candidates: candidates,
		Entrypoint: entry,
		Config:     h.config,
		Volume:     vol,
	})
	if err != nil {
		return cv, err
	}
	out, err := twoptimize.Optimize(css, h.minify, twoptimize.WithLogger(h.logger))
	if err != nil {
		return cv, err
	}
	d := xxhash.New()
	d.Write(out.Code)
	return cacheValue{content: string(out.Code), hash: d.Sum64()}, nil
}

func (h *Handler) compileFailed(w http.ResponseWriter, entry string, err error) {
	h.logger.Error("compile failed", "entrypoint", entry, "err", err)
	code := http.StatusInternalServerError
	var ce *windpress.CompileError
	if errors.As(err, &ce) {
		code = http.StatusUnprocessableEntity
	}
	http.Error(w, fmt.Sprintf("processing failed on %s: %v", entry, err), code)
}

func (h *Handler) makeW(w http.ResponseWriter, r *http.Request) io.WriteCloser {
	var wc io.WriteCloser
	if h.writeCloserFunc != nil {
		wc = h.writeCloserFunc(w, r)
	} else {
		wc = &nopWriteCloser{Writer: w}
	}
	return wc
}

type nopWriteCloser struct {
	io.Writer
}

func (n *nopWriteCloser) Close() error {
	return nil
}

type cacheValue struct {
	key     uint64 // volume, entry point and candidates
	content string // output
	hash    uint64 // for e-tag
}

// wwrap wraps a ResponseWriter allowing us to override where the Write calls go
type wwrap struct {
	io.Writer
	http.ResponseWriter
}

func (w *wwrap) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}
