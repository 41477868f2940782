// Package host defines the capabilities a picker needs from the program
// that owns the screen: screen metrics, line buffers shown in windows, and
// key bindings attached to those buffers.
//
// Implementations live in subpackages: memhost (in-memory, for tests and as
// a buffer store), teahost (Bubble Tea terminal UI), and nvimhost (Neovim
// over msgpack-RPC).
package host

import (
	"errors"

	"github.com/runger/nvpick/internal/layout"
)

// ErrHostCall marks a failed non-critical host call. Pickers absorb it.
var ErrHostCall = errors.New("host call failed")

// Handle identifies one surface (buffer plus window) inside a host.
type Handle int

// InvalidHandle is never returned by a successful CreateSurface.
const InvalidHandle Handle = -1

// Mode selects which editing mode a key binding applies to.
type Mode string

const (
	ModeNormal Mode = "n"
	ModeInsert Mode = "i"
)

// Host is the surface API a picker consumes.
//
// All calls happen on the host's dispatch goroutine; implementations do not
// need to be safe for concurrent use by pickers, only against their own
// rendering.
type Host interface {
	// ScreenSize reports the screen size in character cells.
	ScreenSize() (layout.Size, error)

	// CreateSurface allocates an empty buffer. editable buffers accept
	// text entry from the user.
	CreateSurface(editable bool) (Handle, error)

	SetLines(h Handle, lines []string) error
	Lines(h Handle) ([]string, error)

	// SetModifiable toggles whether the buffer may be written.
	SetModifiable(h Handle, modifiable bool) error

	// PlaceWindow shows the surface at geom. focus moves input focus to it.
	PlaceWindow(h Handle, geom layout.Geometry, focus bool) error

	// Cursor returns the 1-based cursor row of the surface's window.
	Cursor(h Handle) (int, error)
	SetCursor(h Handle, row int) error

	// SetInsertMode enters or leaves the host's text-entry mode.
	SetInsertMode(on bool) error

	// Close destroys the window, its buffer, and every binding on it.
	// Closing an unknown or already closed handle is a no-op.
	Close(h Handle) error

	// BindKey attaches fn to key (Vim key notation, e.g. "<C-j>") on the
	// surface's buffer in mode.
	BindKey(h Handle, mode Mode, key string, fn func()) error
}

// TextEdit is a text-entry keystroke for hosts without a native insert mode.
type TextEdit struct {
	Text      string // runes typed; empty when Backspace is set
	Backspace bool
}

// TextInput is implemented by hosts that forward typed text to the picker
// instead of editing buffers themselves.
type TextInput interface {
	BindText(h Handle, fn func(TextEdit)) error
}

// Highlighter is implemented by hosts that can color a span of a line.
// Columns are 0-based byte offsets, end exclusive.
type Highlighter interface {
	Highlight(h Handle, row, startCol, endCol int, group string) error
}

// WindowOptions is implemented by hosts that support the cosmetic window
// options pickers set: a highlighted cursor line and left padding.
type WindowOptions interface {
	SetCursorLine(h Handle, on bool) error
	SetLeftPadding(h Handle, cols int) error
}

// Apply returns line after the edit: text appended, or the last rune
// removed for a backspace.
func (e TextEdit) Apply(line string) string {
	if e.Backspace {
		r := []rune(line)
		if len(r) == 0 {
			return line
		}
		return string(r[:len(r)-1])
	}
	return line + e.Text
}
