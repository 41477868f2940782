package picker

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/runger/nvpick/internal/host"
	"github.com/runger/nvpick/internal/surface"
)

// ErrSessionClosed is returned by Dispatch once a session has closed.
var ErrSessionClosed = errors.New("picker session closed")

// errNotActive is returned for events that arrive while a session is
// committing or cancelling.
var errNotActive = errors.New("picker session not active")

// Session is one open picker. It owns its surfaces until it reaches
// StateClosed. Sessions are driven by a single host dispatch goroutine and
// are not safe for concurrent use.
type Session struct {
	id      string
	variant Variant
	engine  *Engine
	logger  *slog.Logger

	title *surface.Surface
	input *surface.Surface
	list  *surface.Surface

	items   []string
	cursor  int // 1-based row in the list
	state   State
	handler Handler
}

// ID returns the session identifier used in logs and results.
func (s *Session) ID() string { return s.id }

// Variant returns the picker flavor.
func (s *Session) Variant() Variant { return s.variant }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Cursor returns the 1-based list row the session considers current.
func (s *Session) Cursor() int { return s.cursor }

// Items returns a copy of the backing list.
func (s *Session) Items() []string { return slices.Clone(s.items) }

// Handles returns the host handles of the session's surfaces.
func (s *Session) Handles() Handles {
	return Handles{
		Title: handleOf(s.title),
		Input: handleOf(s.input),
		List:  handleOf(s.list),
	}
}

// HighlightTitle colors a span of the title line. Columns are 0-based byte
// offsets, end exclusive.
func (s *Session) HighlightTitle(startCol, endCol int, group string) {
	if s.title == nil || s.state != StateActive {
		return
	}
	s.title.Highlight(0, startCol, endCol, group)
}

// Dispatch applies one event. Events after the session closed return
// ErrSessionClosed and change nothing.
func (s *Session) Dispatch(ev Event) error {
	switch s.state {
	case StateActive:
	case StateClosed:
		return ErrSessionClosed
	default:
		return fmt.Errorf("%w: %s", errNotActive, s.state)
	}

	switch ev.Kind {
	case EventDown:
		s.moveDown()
	case EventUp:
		s.moveUp()
	case EventCommit:
		s.commit()
	case EventCancel:
		s.cancel()
	case EventInsert, EventBackspace:
		s.edit(ev)
	default:
		return fmt.Errorf("unknown event %s", ev.Kind)
	}
	return nil
}

// lineCount is the number of list rows; an empty list still has one.
func (s *Session) lineCount() int {
	return max(1, len(s.items))
}

// syncCursor adopts the host's cursor row when it can be read, so motions
// made natively by the host are respected.
func (s *Session) syncCursor() {
	if row, ok := s.list.Cursor(); ok {
		s.cursor = min(max(row, 1), s.lineCount())
	}
}

func (s *Session) itemAt(row int) string {
	if row < 1 || row > len(s.items) {
		return ""
	}
	return s.items[row-1]
}

// moveDown advances the cursor one row. At the last row it does nothing.
func (s *Session) moveDown() {
	s.syncCursor()
	if s.cursor >= s.lineCount() {
		return
	}
	s.cursor++
	s.follow()
}

// moveUp moves the cursor back one row. At the first row it does nothing.
// Like moveDown, it copies the row it moves to into the input.
func (s *Session) moveUp() {
	s.syncCursor()
	if s.cursor <= 1 {
		return
	}
	s.cursor--
	s.follow()
}

// follow copies the current item into the input and moves the list cursor.
func (s *Session) follow() {
	if s.input != nil {
		s.input.SetContent([]string{s.itemAt(s.cursor)})
	}
	s.list.SetCursor(s.cursor)
}

func (s *Session) edit(ev Event) {
	if s.input == nil {
		return
	}
	line := firstLine(s.input.Lines())
	te := host.TextEdit{Text: ev.Text, Backspace: ev.Kind == EventBackspace}
	s.input.SetContent([]string{te.Apply(line)})
}

func (s *Session) commit() {
	s.state = StateCommitting

	var text string
	switch s.variant {
	case Editable:
		text = firstLine(s.input.Lines())
		if text != "" && !slices.Contains(s.items, text) {
			s.items = append(s.items, text)
		}
		s.items = slices.DeleteFunc(s.items, func(item string) bool { return item == "" })
	default:
		s.syncCursor()
		line, ok := s.list.Line(s.cursor)
		if !ok {
			line = s.itemAt(s.cursor)
		}
		text = line
	}

	s.teardown()

	handler := s.handler
	s.handler = nil
	s.logger.Debug("picker committed", "session", s.id, "text", text)
	if handler != nil {
		handler(Result{SessionID: s.id, Text: text, Items: slices.Clone(s.items)})
	}
	s.state = StateClosed
}

func (s *Session) cancel() {
	s.state = StateCancelling
	s.teardown()
	s.handler = nil
	s.logger.Debug("picker cancelled", "session", s.id)
	s.state = StateClosed
}

// teardown leaves insert mode and destroys every surface. Surface bindings
// go with them, so no further keys reach this session.
func (s *Session) teardown() {
	if s.variant == Editable {
		if err := s.engine.host.SetInsertMode(false); err != nil {
			s.logger.Debug("host call failed", "op", "stopinsert", "error", err)
		}
	}
	for _, sf := range []*surface.Surface{s.title, s.input, s.list} {
		if sf != nil {
			sf.Destroy()
		}
	}
	s.engine.release(s)
}

// bind wires the keymap onto sf for the given modes, plus text entry when
// the host forwards it.
func (s *Session) bind(sf *surface.Surface, km Keymap, modes ...host.Mode) {
	for _, mode := range modes {
		for _, b := range km.bindings() {
			kind := b.kind
			sf.Bind(mode, b.key, func() { s.dispatchKey(Event{Kind: kind}) })
		}
	}
}

func (s *Session) bindText(sf *surface.Surface) {
	sf.BindText(func(te host.TextEdit) {
		if te.Backspace {
			s.dispatchKey(Event{Kind: EventBackspace})
			return
		}
		s.dispatchKey(Event{Kind: EventInsert, Text: te.Text})
	})
}

func (s *Session) dispatchKey(ev Event) {
	if err := s.Dispatch(ev); err != nil {
		s.logger.Debug("event dropped", "session", s.id, "event", ev.Kind.String(), "error", err)
	}
}

func handleOf(sf *surface.Surface) host.Handle {
	if sf == nil || sf.Destroyed() {
		return host.InvalidHandle
	}
	return sf.Handle()
}

func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
