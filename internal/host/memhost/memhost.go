// Package memhost is an in-memory picker host. It keeps buffers, window
// geometry, cursors and key bindings in maps and lets callers press keys
// and type text, so pickers can be driven without a terminal.
package memhost

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/runger/nvpick/internal/host"
	"github.com/runger/nvpick/internal/layout"
)

var (
	errUnknownSurface = errors.New("unknown surface")
	errNotModifiable  = errors.New("buffer is not modifiable")
	errInjected       = errors.New("injected failure")
)

// Highlight records a span colored through host.Highlighter.
type Highlight struct {
	Row      int
	StartCol int
	EndCol   int
	Group    string
}

// Snapshot is a copy of one surface's state.
type Snapshot struct {
	Handle     host.Handle
	Editable   bool
	Modifiable bool
	Lines      []string
	Geometry   layout.Geometry
	Placed     bool
	Cursor     int
	CursorLine bool
	Padding    int
	Highlights []Highlight
	Keys       []string // "mode:key", sorted
}

type bindingKey struct {
	mode host.Mode
	key  string
}

type surface struct {
	editable   bool
	modifiable bool
	lines      []string
	geom       layout.Geometry
	placed     bool
	cursor     int
	cursorLine bool
	padding    int
	highlights []Highlight
	bindings   map[bindingKey]func()
	text       func(host.TextEdit)
}

// Host is an in-memory host.Host. The zero value is not usable; call New.
type Host struct {
	mu       sync.Mutex
	screen   layout.Size
	next     host.Handle
	surfaces map[host.Handle]*surface
	order    []host.Handle // creation order, used for drawing
	focus    host.Handle
	insert   bool

	creates      int
	failCreateAt int
	places       int
	failPlaceAt  int
	failCursor   bool
	failScreen   bool
}

var (
	_ host.Host          = (*Host)(nil)
	_ host.TextInput     = (*Host)(nil)
	_ host.Highlighter   = (*Host)(nil)
	_ host.WindowOptions = (*Host)(nil)
)

// New returns a host with the given screen size.
func New(width, height int) *Host {
	return &Host{
		screen:   layout.Size{Width: width, Height: height},
		next:     1,
		surfaces: make(map[host.Handle]*surface),
		focus:    host.InvalidHandle,
	}
}

// Resize changes the reported screen size.
func (m *Host) Resize(width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screen = layout.Size{Width: width, Height: height}
}

// FailCreateAt makes the n-th CreateSurface call (1-based) fail. Zero
// disables the failure.
func (m *Host) FailCreateAt(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates = 0
	m.failCreateAt = n
}

// FailPlaceAt makes the n-th PlaceWindow call (1-based) fail.
func (m *Host) FailPlaceAt(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places = 0
	m.failPlaceAt = n
}

// FailCursor makes Cursor and SetCursor fail.
func (m *Host) FailCursor(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCursor = fail
}

// FailScreen makes ScreenSize fail.
func (m *Host) FailScreen(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failScreen = fail
}

func (m *Host) ScreenSize() (layout.Size, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failScreen {
		return layout.Size{}, fmt.Errorf("screen size: %w", errInjected)
	}
	return m.screen, nil
}

func (m *Host) CreateSurface(editable bool) (host.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++
	if m.failCreateAt > 0 && m.creates == m.failCreateAt {
		return host.InvalidHandle, fmt.Errorf("create surface: %w", errInjected)
	}

	h := m.next
	m.next++
	m.surfaces[h] = &surface{
		editable:   editable,
		modifiable: true,
		lines:      []string{""},
		cursor:     1,
		bindings:   make(map[bindingKey]func()),
	}
	m.order = append(m.order, h)
	return h, nil
}

func (m *Host) SetLines(h host.Handle, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[h]
	if !ok {
		return errUnknownSurface
	}
	if !s.modifiable {
		return errNotModifiable
	}
	s.lines = normalizeLines(lines)
	if s.cursor > len(s.lines) {
		s.cursor = len(s.lines)
	}
	return nil
}

func (m *Host) Lines(h host.Handle) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[h]
	if !ok {
		return nil, errUnknownSurface
	}
	return slices.Clone(s.lines), nil
}

func (m *Host) SetModifiable(h host.Handle, modifiable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[h]
	if !ok {
		return errUnknownSurface
	}
	s.modifiable = modifiable
	return nil
}

func (m *Host) PlaceWindow(h host.Handle, geom layout.Geometry, focus bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.places++
	if m.failPlaceAt > 0 && m.places == m.failPlaceAt {
		return fmt.Errorf("place window: %w", errInjected)
	}

	s, ok := m.surfaces[h]
	if !ok {
		return errUnknownSurface
	}
	s.geom = geom
	s.placed = true
	if focus {
		m.focus = h
	}
	return nil
}

func (m *Host) Cursor(h host.Handle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCursor {
		return 0, fmt.Errorf("cursor: %w", errInjected)
	}
	s, ok := m.surfaces[h]
	if !ok {
		return 0, errUnknownSurface
	}
	return s.cursor, nil
}

func (m *Host) SetCursor(h host.Handle, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCursor {
		return fmt.Errorf("set cursor: %w", errInjected)
	}
	s, ok := m.surfaces[h]
	if !ok {
		return errUnknownSurface
	}
	if row < 1 || row > len(s.lines) {
		return fmt.Errorf("cursor row %d outside buffer of %d lines", row, len(s.lines))
	}
	s.cursor = row
	return nil
}

func (m *Host) SetInsertMode(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert = on
	return nil
}

func (m *Host) Close(h host.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.surfaces[h]; !ok {
		return nil
	}
	delete(m.surfaces, h)
	m.order = slices.DeleteFunc(m.order, func(o host.Handle) bool { return o == h })
	if m.focus == h {
		m.focus = host.InvalidHandle
	}
	return nil
}

func (m *Host) BindKey(h host.Handle, mode host.Mode, key string, fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[h]
	if !ok {
		return errUnknownSurface
	}
	s.bindings[bindingKey{mode: mode, key: host.NormalizeKey(key)}] = fn
	return nil
}

// BindText implements host.TextInput.
func (m *Host) BindText(h host.Handle, fn func(host.TextEdit)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[h]
	if !ok {
		return errUnknownSurface
	}
	s.text = fn
	return nil
}

// Highlight implements host.Highlighter.
func (m *Host) Highlight(h host.Handle, row, startCol, endCol int, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[h]
	if !ok {
		return errUnknownSurface
	}
	s.highlights = append(s.highlights, Highlight{Row: row, StartCol: startCol, EndCol: endCol, Group: group})
	return nil
}

// SetCursorLine implements host.WindowOptions.
func (m *Host) SetCursorLine(h host.Handle, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[h]
	if !ok {
		return errUnknownSurface
	}
	s.cursorLine = on
	return nil
}

// SetLeftPadding implements host.WindowOptions.
func (m *Host) SetLeftPadding(h host.Handle, cols int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[h]
	if !ok {
		return errUnknownSurface
	}
	s.padding = cols
	return nil
}

// Press delivers key to the focused surface in the current mode. It reports
// whether a binding handled the key.
func (m *Host) Press(key string) bool {
	m.mu.Lock()
	mode := host.ModeNormal
	if m.insert {
		mode = host.ModeInsert
	}
	var fn func()
	if s, ok := m.surfaces[m.focus]; ok {
		fn = s.bindings[bindingKey{mode: mode, key: host.NormalizeKey(key)}]
	}
	m.mu.Unlock()

	// Bindings call back into the host, so run them unlocked.
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Type delivers typed text to the focused surface. A text binding receives
// it when present; otherwise an editable buffer in insert mode is edited in
// place, the way an editor would. Reports whether the text was consumed.
func (m *Host) Type(text string) bool {
	return m.edit(host.TextEdit{Text: text})
}

// Backspace deletes one character before the end of the focused line.
func (m *Host) Backspace() bool {
	return m.edit(host.TextEdit{Backspace: true})
}

func (m *Host) edit(e host.TextEdit) bool {
	m.mu.Lock()
	s, ok := m.surfaces[m.focus]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if fn := s.text; fn != nil {
		m.mu.Unlock()
		fn(e)
		return true
	}
	defer m.mu.Unlock()
	if !s.editable || !s.modifiable || !m.insert {
		return false
	}
	line := s.lines[s.cursor-1]
	s.lines[s.cursor-1] = e.Apply(line)
	return true
}

// Focused returns the surface that has input focus.
func (m *Host) Focused() host.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focus
}

// InsertMode reports whether the host is in text-entry mode.
func (m *Host) InsertMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert
}

// Open returns the live surfaces in creation order.
func (m *Host) Open() []host.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}

// Snapshot copies the state of surface h.
func (m *Host) Snapshot(h host.Handle) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[h]
	if !ok {
		return Snapshot{}, false
	}
	keys := make([]string, 0, len(s.bindings))
	for k := range s.bindings {
		keys = append(keys, string(k.mode)+":"+k.key)
	}
	slices.Sort(keys)
	return Snapshot{
		Handle:     h,
		Editable:   s.editable,
		Modifiable: s.modifiable,
		Lines:      slices.Clone(s.lines),
		Geometry:   s.geom,
		Placed:     s.placed,
		Cursor:     s.cursor,
		CursorLine: s.cursorLine,
		Padding:    s.padding,
		Highlights: slices.Clone(s.highlights),
		Keys:       keys,
	}, true
}

// normalizeLines mirrors editor buffers, which always hold at least one line.
func normalizeLines(lines []string) []string {
	if len(lines) == 0 {
		return []string{""}
	}
	return slices.Clone(lines)
}
