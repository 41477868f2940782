// Package teahost runs pickers in a terminal with Bubble Tea.
//
// Surfaces live in a memhost.Host, which the picker engine drives as its
// host. The Model in this package feeds terminal key presses into that
// host and paints its placed surfaces as floating boxes. The program quits
// once every surface has been closed.
package teahost

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/nvpick/internal/host"
	"github.com/runger/nvpick/internal/host/memhost"
)

// Model is the Bubble Tea model for a picker terminal session.
// It must be exported so that internal/cmd can run it.
type Model struct {
	host        *memhost.Host
	keys        keyMap
	styles      Styles
	onInterrupt func()

	width  int // Terminal width
	height int // Terminal height

	interrupted bool
}

// Option configures a Model.
type Option func(*Model)

// WithStyles replaces the default palette.
func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// WithInterrupt sets what ctrl+c does. The default closes every surface
// without notifying the pickers that own them.
func WithInterrupt(fn func()) Option {
	return func(m *Model) { m.onInterrupt = fn }
}

// New returns a model that draws and drives h.
func New(h *memhost.Host, opts ...Option) Model {
	m := Model{
		host:   h,
		keys:   defaultKeyMap(),
		styles: DefaultStyles(),
	}
	if size, err := h.ScreenSize(); err == nil {
		m.width, m.height = size.Width, size.Height
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Interrupted reports whether the user aborted with ctrl+c.
func (m Model) Interrupted() bool {
	return m.interrupted
}

// Done reports whether every surface has been closed.
func (m Model) Done() bool {
	return len(m.host.Open()) == 0
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.Done() {
		return tea.Quit
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.host.Resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		m = m.handleKey(msg)
	}

	if m.Done() {
		return m, tea.Quit
	}
	return m, nil
}

// handleKey gives the focused surface's bindings the first chance at a
// key, then treats it as text entry.
func (m Model) handleKey(msg tea.KeyMsg) Model {
	if key.Matches(msg, m.keys.Interrupt) {
		m.interrupted = true
		if m.onInterrupt != nil {
			m.onInterrupt()
		}
		for _, h := range m.host.Open() {
			_ = m.host.Close(h)
		}
		return m
	}

	if vk := vimKey(msg); vk != "" && m.host.Press(vk) {
		return m
	}

	switch {
	case key.Matches(msg, m.keys.Backspace):
		m.host.Backspace()
	case msg.Type == tea.KeyRunes, msg.Type == tea.KeySpace:
		m.host.Type(string(msg.Runes))
	}
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 || m.Done() {
		return ""
	}

	c := newCanvas(m.width, m.height)
	focused := m.host.Focused()
	insert := m.host.InsertMode()

	var top host.Handle = host.InvalidHandle
	for _, h := range m.host.Open() {
		if h == focused {
			// Drawn last so it sits above its neighbours.
			top = h
			continue
		}
		if snap, ok := m.host.Snapshot(h); ok && snap.Placed {
			c.drawSurface(snap, false)
		}
	}
	if snap, ok := m.host.Snapshot(top); ok && snap.Placed {
		c.drawSurface(snap, insert && snap.Editable)
	}

	return c.render(m.styles)
}
