package twintellisense

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twdesign"
	"github.com/gotailwindcss/windpress/twvfs"
)

// Target is the bus name sessions answer to.
const Target = "intellisense"

// ErrNotLoaded is returned by session queries before the first Reload.
var ErrNotLoaded = errors.New("intellisense: no design system loaded")

// Session holds the design system of one project and the queries derived
// from it. It is safe for concurrent use. Class lists and entities are
// computed once per design system until Invalidate.
type Session struct {
	engine     windpress.Engine
	entrypoint string
	logger     *slog.Logger

	reloadMu sync.Mutex // serializes Reload
	mu       sync.Mutex
	volume   *twvfs.Volume
	hash     uint64
	ds       *twdesign.DesignSystem
	classes  []twdesign.ClassItem
	entities map[string][]twdesign.ClassEntity
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithEntrypoint sets the stylesheet the design system is read from,
// windpress.DefaultEntrypoint by default.
func WithEntrypoint(path string) SessionOption { return func(s *Session) { s.entrypoint = path } }

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) SessionOption { return func(s *Session) { s.logger = lg } }

// NewSession returns a session loading design systems with e. It holds
// nothing until Reload.
func NewSession(e windpress.Engine, opts ...SessionOption) *Session {
	s := &Session{engine: e, entrypoint: windpress.DefaultEntrypoint, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload loads the design system of vol. A volume with the hash of the
// loaded one is a no-op and reports false. On error the previous design
// system stays.
func (s *Session) Reload(ctx context.Context, vol *twvfs.Volume) (bool, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	h := vol.Hash()
	s.mu.Lock()
	same := s.ds != nil && s.hash == h
	s.mu.Unlock()
	if same {
		return false, nil
	}

	ds, err := s.engine.DesignSystem(ctx, s.entrypoint, vol)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume, s.hash, s.ds = vol, h, ds
	s.resetLocked()
	s.logger.Debug("intellisense design system loaded", "entrypoint", s.entrypoint, "version", s.engine.Version())
	return true, nil
}

// Invalidate drops the memoized class list and entities, and makes the
// next Reload load even an unchanged volume.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hash = 0
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.classes = nil
	s.entities = make(map[string][]twdesign.ClassEntity)
}

// DesignSystem returns the loaded design system, nil before the first
// Reload.
func (s *Session) DesignSystem() *twdesign.DesignSystem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds
}

// Volume returns the loaded volume.
func (s *Session) Volume() *twvfs.Volume {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// ClassList returns the memoized class list.
func (s *Session) ClassList() []twdesign.ClassItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil
	}
	if s.classes == nil {
		s.classes = s.ds.ClassList()
	}
	return s.classes
}

// Entities returns the memoized rules of candidate.
func (s *Session) Entities(candidate string) []twdesign.ClassEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil
	}
	if e, ok := s.entities[candidate]; ok {
		return e
	}
	e := s.ds.Entities(candidate)
	s.entities[candidate] = e
	return e
}

// ResolveVars substitutes theme variables in v.
func (s *Session) ResolveVars(v string) string {
	ds := s.DesignSystem()
	if ds == nil {
		return v
	}
	return ds.ResolveVars(v)
}

// Search is SearchClassList over the session.
func (s *Session) Search(q string, opts ...SearchOption) ([]Suggestion, error) {
	if s.DesignSystem() == nil {
		return nil, ErrNotLoaded
	}
	return SearchClassList(s, q, opts...), nil
}

// Sort is SortClasses with the loaded design system.
func (s *Session) Sort(classes []string) ([]string, error) {
	ds := s.DesignSystem()
	if ds == nil {
		return nil, ErrNotLoaded
	}
	return SortClasses(ds, classes), nil
}

// CSS is CandidatesToCSS with the loaded design system.
func (s *Session) CSS(candidates []string) ([]string, error) {
	ds := s.DesignSystem()
	if ds == nil {
		return nil, ErrNotLoaded
	}
	return CandidatesToCSS(ds, candidates), nil
}

// Variables is GetVariableList with the loaded design system.
func (s *Session) Variables() ([]twdesign.Variable, error) {
	ds := s.DesignSystem()
	if ds == nil {
		return nil, ErrNotLoaded
	}
	return GetVariableList(ds), nil
}

// Listen keeps the session current from bus messages until ctx ends or the
// bus closes: vfs.updated loads the carried volume, content.saved drops
// the caches and reloads the current volume.
func (s *Session) Listen(ctx context.Context, bus *twbus.Bus) error {
	msgs, cancel := bus.Subscribe(16)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			if !m.For(Target) {
				continue
			}
			s.handle(ctx, m)
		}
	}
}

func (s *Session) handle(ctx context.Context, m twbus.Message) {
	var vol *twvfs.Volume
	switch m.Task {
	case twbus.TaskVFSUpdated:
		v, err := m.Volume()
		if err != nil {
			s.logger.Warn("intellisense ignored malformed volume", "source", m.Source, "err", err)
			return
		}
		vol = v
	case twbus.TaskContentSaved:
		s.Invalidate()
		vol = s.Volume()
		if vol == nil {
			return
		}
	default:
		return
	}
	if _, err := s.Reload(ctx, vol); err != nil {
		s.logger.Error("intellisense reload failed", "task", m.Task, "source", m.Source, "err", err)
	}
}
