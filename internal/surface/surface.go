// Package surface pairs a host buffer with the window that shows it.
//
// A Surface is owned by exactly one picker session. Apart from creation and
// placement, every host call made through a Surface is best-effort: failures
// are logged at debug level and otherwise ignored so the UI stays responsive.
package surface

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/runger/nvpick/internal/host"
	"github.com/runger/nvpick/internal/layout"
)

// ErrAllocationFailed is returned when the host cannot create a buffer or
// show its window.
var ErrAllocationFailed = errors.New("surface allocation failed")

// Role is the part a surface plays in a picker.
type Role int

const (
	RoleTitle Role = iota
	RoleInput
	RoleList
)

func (r Role) String() string {
	switch r {
	case RoleTitle:
		return "title"
	case RoleInput:
		return "input"
	case RoleList:
		return "list"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Surface is one rectangular on-screen region backed by a line buffer.
type Surface struct {
	host      host.Host
	handle    host.Handle
	role      Role
	editable  bool
	geom      layout.Geometry
	logger    *slog.Logger
	destroyed bool
}

// Create allocates a surface and fills it with lines. Surfaces that are not
// editable are left read-only once populated.
func Create(h host.Host, role Role, lines []string, editable bool, logger *slog.Logger) (*Surface, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	handle, err := h.CreateSurface(editable)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAllocationFailed, role, err)
	}

	s := &Surface{
		host:     h,
		handle:   handle,
		role:     role,
		editable: editable,
		logger:   logger,
	}
	s.SetContent(lines)
	return s, nil
}

// Handle returns the host handle of the surface.
func (s *Surface) Handle() host.Handle { return s.handle }

// Role returns the surface role.
func (s *Surface) Role() Role { return s.role }

// Geometry returns the last placement passed to Render.
func (s *Surface) Geometry() layout.Geometry { return s.geom }

// Destroyed reports whether Destroy has run.
func (s *Surface) Destroyed() bool { return s.destroyed }

// SetContent replaces all lines. Read-only surfaces are made writable for
// the duration of the write.
func (s *Surface) SetContent(lines []string) {
	if s.destroyed {
		return
	}
	if !s.editable {
		s.absorb("set modifiable", s.host.SetModifiable(s.handle, true))
		defer func() {
			s.absorb("set modifiable", s.host.SetModifiable(s.handle, false))
		}()
	}
	s.absorb("set lines", s.host.SetLines(s.handle, lines))
}

// Lines returns the current content, or nil if it cannot be read.
func (s *Surface) Lines() []string {
	if s.destroyed {
		return nil
	}
	lines, err := s.host.Lines(s.handle)
	if err != nil {
		s.absorb("get lines", err)
		return nil
	}
	return lines
}

// Line returns the 1-based row of the content.
func (s *Surface) Line(row int) (string, bool) {
	lines := s.Lines()
	if row < 1 || row > len(lines) {
		return "", false
	}
	return lines[row-1], true
}

// LineCount returns the number of content lines, at least 1 for a live
// surface whose content can be read.
func (s *Surface) LineCount() int {
	return len(s.Lines())
}

// Render places the surface's window.
func (s *Surface) Render(geom layout.Geometry, focus bool) error {
	if s.destroyed {
		return fmt.Errorf("%w: %s: surface destroyed", ErrAllocationFailed, s.role)
	}
	if err := s.host.PlaceWindow(s.handle, geom, focus); err != nil {
		return fmt.Errorf("%w: %s window: %v", ErrAllocationFailed, s.role, err)
	}
	s.geom = geom
	return nil
}

// Cursor returns the 1-based cursor row reported by the host.
func (s *Surface) Cursor() (int, bool) {
	if s.destroyed {
		return 0, false
	}
	row, err := s.host.Cursor(s.handle)
	if err != nil {
		s.absorb("get cursor", err)
		return 0, false
	}
	return row, true
}

// SetCursor moves the cursor to the 1-based row.
func (s *Surface) SetCursor(row int) {
	if s.destroyed {
		return
	}
	s.absorb("set cursor", s.host.SetCursor(s.handle, row))
}

// Bind attaches fn to key in mode.
func (s *Surface) Bind(mode host.Mode, key string, fn func()) {
	if s.destroyed {
		return
	}
	s.absorb("bind "+key, s.host.BindKey(s.handle, mode, key, fn))
}

// BindText forwards typed text to fn when the host supports it. It reports
// whether the binding was made.
func (s *Surface) BindText(fn func(host.TextEdit)) bool {
	ti, ok := s.host.(host.TextInput)
	if !ok || s.destroyed {
		return false
	}
	if err := ti.BindText(s.handle, fn); err != nil {
		s.absorb("bind text", err)
		return false
	}
	return true
}

// Highlight colors a span of a 0-based row when the host supports it.
func (s *Surface) Highlight(row, startCol, endCol int, group string) {
	hl, ok := s.host.(host.Highlighter)
	if !ok || s.destroyed {
		return
	}
	s.absorb("highlight", hl.Highlight(s.handle, row, startCol, endCol, group))
}

// Decorate applies the cosmetic window options when the host supports them.
func (s *Surface) Decorate(cursorLine bool, leftPadding int) {
	wo, ok := s.host.(host.WindowOptions)
	if !ok || s.destroyed {
		return
	}
	if cursorLine {
		s.absorb("cursorline", wo.SetCursorLine(s.handle, true))
	}
	if leftPadding > 0 {
		s.absorb("padding", wo.SetLeftPadding(s.handle, leftPadding))
	}
}

// Destroy closes the window and releases the buffer and its bindings.
// Calling it again is a no-op.
func (s *Surface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.absorb("close", s.host.Close(s.handle))
}

func (s *Surface) absorb(op string, err error) {
	if err == nil {
		return
	}
	s.logger.Debug("host call failed",
		"op", op,
		"surface", s.role.String(),
		"handle", int(s.handle),
		"error", fmt.Errorf("%w: %v", host.ErrHostCall, err),
	)
}
