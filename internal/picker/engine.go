// Package picker implements interactive pickers on top of a host.Host.
//
// A picker stacks up to three surfaces (title, input, list), sizes them with
// the layout package, and resolves to one selection delivered through a
// Handler. Two variants exist: a read-only list and an editable
// list-plus-input. Keys bound on the host translate into Event values and
// every transition runs through Session.Dispatch.
package picker

import (
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/runger/nvpick/internal/host"
	"github.com/runger/nvpick/internal/layout"
	"github.com/runger/nvpick/internal/surface"
)

// Errors returned by Open. Other host failures are absorbed.
var (
	ErrAllocationFailed = surface.ErrAllocationFailed
	ErrInvalidLayout    = layout.ErrInvalidLayout
)

// fallbackScreen is used when the host cannot report its size.
var fallbackScreen = layout.Size{Width: 80, Height: 24}

// Spec describes a picker to open.
type Spec struct {
	Title   string
	Items   []string // display order
	Layout  layout.Config
	Variant Variant
}

// Engine opens picker sessions on a host. It holds no per-session state
// beyond a count of open sessions.
type Engine struct {
	host   host.Host
	logger *slog.Logger
	keys   Keymap
	active atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithKeymap replaces the default key bindings.
func WithKeymap(k Keymap) Option {
	return func(e *Engine) { e.keys = k }
}

// NewEngine returns an engine that opens pickers on h.
func NewEngine(h host.Host, opts ...Option) *Engine {
	e := &Engine{
		host:   h,
		logger: slog.New(slog.DiscardHandler),
		keys:   DefaultKeymap(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}


// Active returns the number of sessions that have not closed yet.
func (e *Engine) Active() int { return int(e.active.Load()) }

// Open opens a picker described by spec.
func (e *Engine) Open(spec Spec, handler Handler) (*Session, error) {
	if spec.Variant == Editable {
		return e.openEditable(spec, handler)
	}
	return e.openReadOnly(spec, handler)
}

// OpenReadOnly opens a single-list picker. Commit delivers the line under
// the cursor.
func (e *Engine) OpenReadOnly(items []string, cfg layout.Config, handler Handler) (*Session, error) {
	return e.openReadOnly(Spec{Items: items, Layout: cfg, Variant: ReadOnly}, handler)
}

// OpenEditable opens a title/input/list picker. Commit delivers the input
// text and appends it to the backing list when new.
func (e *Engine) OpenEditable(title string, items []string, cfg layout.Config, handler Handler) (*Session, error) {
	return e.openEditable(Spec{Title: title, Items: items, Layout: cfg, Variant: Editable}, handler)
}

func (e *Engine) openReadOnly(spec Spec, handler Handler) (*Session, error) {
	if err := layout.Validate(spec.Layout); err != nil {
		return nil, err
	}

	ext := layout.Measure(spec.Title, spec.Items)
	geom, err := layout.Compute(spec.Layout, e.screen(), &ext)
	if err != nil {
		return nil, err
	}
	geom.Title = spec.Title

	s := e.newSession(ReadOnly, spec.Items, handler)

	list, err := surface.Create(e.host, surface.RoleList, spec.Items, false, s.logger)
	if err != nil {
		return nil, err
	}
	if err := list.Render(geom, true); err != nil {
		list.Destroy()
		return nil, err
	}
	s.list = list

	list.Decorate(true, 0)
	list.SetCursor(s.cursor)
	s.bind(list, e.keys.readOnly(), host.ModeNormal)

	e.activate(s)
	return s, nil
}

func (e *Engine) openEditable(spec Spec, handler Handler) (*Session, error) {
	if err := layout.Validate(spec.Layout); err != nil {
		return nil, err
	}

	stack, err := layout.ComputeStack(spec.Layout, e.screen(), spec.Title, spec.Items)
	if err != nil {
		return nil, err
	}

	s := e.newSession(Editable, spec.Items, handler)

	var created []*surface.Surface
	rollback := func() {
		for _, sf := range created {
			sf.Destroy()
		}
	}

	parts := []struct {
		role     surface.Role
		lines    []string
		editable bool
		geom     layout.Geometry
		dst      **surface.Surface
	}{
		{surface.RoleTitle, []string{spec.Title}, false, stack.Title, &s.title},
		{surface.RoleInput, nil, true, stack.Input, &s.input},
		{surface.RoleList, spec.Items, false, stack.List, &s.list},
	}
	for _, p := range parts {
		sf, err := surface.Create(e.host, p.role, p.lines, p.editable, s.logger)
		if err != nil {
			rollback()
			return nil, err
		}
		created = append(created, sf)
		if err := sf.Render(p.geom, false); err != nil {
			rollback()
			return nil, err
		}
		*p.dst = sf
	}

	s.title.Decorate(false, layout.Padding)
	s.input.Decorate(false, layout.Padding)
	s.list.Decorate(true, layout.Padding)
	s.list.SetCursor(s.cursor)

	s.bind(s.input, e.keys, host.ModeInsert, host.ModeNormal)
	s.bindText(s.input)

	// Focus the input last so it ends up on top with the cursor.
	if err := s.input.Render(stack.Input, true); err != nil {
		rollback()
		return nil, err
	}
	if err := e.host.SetInsertMode(true); err != nil {
		s.logger.Debug("host call failed", "op", "startinsert", "error", err)
	}

	e.activate(s)
	return s, nil
}

func (e *Engine) newSession(v Variant, items []string, handler Handler) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		variant: v,
		engine:  e,
		logger:  e.logger.With("session", id),
		items:   slices.Clone(items),
		cursor:  1,
		state:   StateOpening,
		handler: handler,
	}
}

// activate marks s active. Overlapping sessions are allowed but logged:
// nothing stops two pickers from drawing over each other.
func (e *Engine) activate(s *Session) {
	s.state = StateActive
	n := e.active.Add(1)
	s.logger.Debug("picker opened", "variant", s.variant.String(), "items", len(s.items))
	if n > 1 {
		s.logger.Warn("picker opened while another is active", "active", n)
	}
}

func (e *Engine) release(s *Session) {
	if s.state == StateOpening {
		return
	}
	e.active.Add(-1)
}

func (e *Engine) screen() layout.Size {
	size, err := e.host.ScreenSize()
	if err != nil || size.Width <= 0 || size.Height <= 0 {
		e.logger.Debug("screen size unavailable, using fallback", "error", err)
		return fallbackScreen
	}
	return size
}
