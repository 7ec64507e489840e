package twobserver

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twvfs"
)

// Target is the bus name observers answer to.
const Target = "observer"

// State is where the observer loop is.
type State int

const (
	Idle State = iota
	Scanning
	Compiling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Compiling:
		return "compiling"
	}
	return "unknown"
}

// Stats counts the work the observer did.
type Stats struct {
	Scans    int `json:"scans"`
	Skipped  int `json:"skipped"`
	Compiles int `json:"compiles"`
	Failures int `json:"failures"`
	Writes   int `json:"writes"`
}

// Observer recompiles the stylesheet of a document when the set of classes
// its elements use changes. Failed compilations leave the previous
// stylesheet in place.
type Observer struct {
	doc        *Document
	engine     windpress.Engine
	style      *StyleContainer
	bus        *twbus.Bus
	entrypoint string
	styleID    string
	logger     *slog.Logger
	sink       func(error)

	mu     sync.Mutex
	volume *twvfs.Volume
	last   map[string]struct{}
	state  State
	stats  Stats
}

// Option configures an Observer.
type Option func(*Observer)

// WithEntrypoint sets the stylesheet compiled, windpress.DefaultEntrypoint
// by default.
func WithEntrypoint(path string) Option { return func(o *Observer) { o.entrypoint = path } }

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option { return func(o *Observer) { o.logger = lg } }

// WithErrorSink sets a function receiving compilation failures.
func WithErrorSink(fn func(error)) Option { return func(o *Observer) { o.sink = fn } }

// WithBus makes the observer follow vfs.updated messages on b.
func WithBus(b *twbus.Bus) Option { return func(o *Observer) { o.bus = b } }

// WithStyleID sets the id of the style element, DefaultStyleID by default.
func WithStyleID(id string) Option { return func(o *Observer) { o.styleID = id } }

// New returns an observer compiling doc's classes against vol with e.
func New(doc *Document, e windpress.Engine, vol *twvfs.Volume, opts ...Option) *Observer {
	o := &Observer{
		doc:        doc,
		engine:     e,
		volume:     vol,
		entrypoint: windpress.DefaultEntrypoint,
		styleID:    DefaultStyleID,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.style = NewStyleContainer(doc, o.styleID)
	return o
}

// Style returns the container the stylesheet is written to.
func (o *Observer) Style() *StyleContainer { return o.style }

// State returns the current loop state.
func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Stats returns the work counters.
func (o *Observer) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

func (o *Observer) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run compiles the document once, then on every relevant change, until ctx
// ends. Changes are handled in order, one cycle at a time.
func (o *Observer) Run(ctx context.Context) error {
	var msgs <-chan twbus.Message
	if o.bus != nil {
		ch, cancel := o.bus.Subscribe(16)
		defer cancel()
		msgs = ch
	}

	o.doc.Drain()
	o.cycle(ctx, true)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.doc.Changed():
			recs := o.doc.Drain()
			for _, r := range recs {
				if relevant(r) {
					o.cycle(ctx, false)
					break
				}
			}
		case m, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			if m.Task != twbus.TaskVFSUpdated || !m.For(Target) {
				continue
			}
			vol, err := m.Volume()
			if err != nil {
				o.fail("decode volume", err)
				continue
			}
			o.mu.Lock()
			o.volume = vol
			o.mu.Unlock()
			o.cycle(ctx, true)
		}
	}
}

// cycle scans the classes and compiles when they differ from the last
// compiled set, or always when force is set.
func (o *Observer) cycle(ctx context.Context, force bool) {
	defer o.setState(Idle)

	o.setState(Scanning)
	classes := o.doc.Classes()
	o.mu.Lock()
	o.stats.Scans++
	same := o.last != nil && sameSet(o.last, classes)
	vol := o.volume
	if same && !force {
		o.stats.Skipped++
		o.mu.Unlock()
		return
	}
	o.stats.Compiles++
	o.mu.Unlock()

	o.setState(Compiling)
	candidates := make([]string, 0, len(classes))
	for c := range classes {
		candidates = append(candidates, c)
	}
	sort.Strings(candidates)
	css, err := o.engine.Compile(ctx, &windpress.Request{
		Candidates: candidates,
		Entrypoint: o.entrypoint,
		Volume:     vol,
	})
	if err != nil {
		o.fail("compile", err)
		return
	}
	if err := o.style.Set(css); err != nil {
		o.fail("write stylesheet", err)
		return
	}

	o.mu.Lock()
	o.last = classes
	o.stats.Writes++
	o.mu.Unlock()
	o.logger.Debug("stylesheet updated", "classes", len(classes), "bytes", len(css))
}

func (o *Observer) fail(what string, err error) {
	o.mu.Lock()
	o.stats.Failures++
	o.mu.Unlock()
	o.logger.Error("observer "+what+" failed, keeping previous stylesheet", "err", err)
	if o.sink != nil {
		o.sink(err)
	}
}

// sameSet compares by size, then membership.
func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
