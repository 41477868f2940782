package layout

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Edge indexes into Border.Edges, in the order Neovim expects for a
// floating window border array.
const (
	EdgeTopLeft = iota
	EdgeTop
	EdgeTopRight
	EdgeRight
	EdgeBottomRight
	EdgeBottom
	EdgeBottomLeft
	EdgeLeft
)

// Border describes the glyph drawn on each edge of a surface.
// An empty glyph means that edge is not drawn.
type Border struct {
	Edges [8]string
}

var (
	// BorderNone draws nothing around a surface.
	BorderNone = Border{}

	// BorderRounded is the default picker border.
	BorderRounded = Border{Edges: [8]string{"╭", "─", "╮", "│", "╯", "─", "╰", "│"}}

	// BorderSingle uses square corners.
	BorderSingle = Border{Edges: [8]string{"┌", "─", "┐", "│", "┘", "─", "└", "│"}}

	// BorderDouble uses double lines.
	BorderDouble = Border{Edges: [8]string{"╔", "═", "╗", "║", "╝", "═", "╚", "║"}}
)

// CustomBorder builds a border from per-edge glyphs.
func CustomBorder(edges [8]string) Border {
	return Border{Edges: edges}
}

// ParseBorderChars builds a custom border from eight glyphs in Edge order.
// An empty glyph leaves that edge out; others must be one cell wide.
func ParseBorderChars(chars []string) (Border, error) {
	if len(chars) != len(Border{}.Edges) {
		return BorderNone, fmt.Errorf("border needs 8 glyphs, got %d", len(chars))
	}
	var edges [8]string
	for i, c := range chars {
		if w := runewidth.StringWidth(c); w > 1 || (c != "" && w == 0) {
			return BorderNone, fmt.Errorf("border glyph %d (%q) must be one cell wide", i+1, c)
		}
		edges[i] = c
	}
	return CustomBorder(edges), nil
}

// ParseBorder resolves a border style name.
func ParseBorder(name string) (Border, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return BorderNone, nil
	case "rounded":
		return BorderRounded, nil
	case "single":
		return BorderSingle, nil
	case "double":
		return BorderDouble, nil
	default:
		return BorderNone, fmt.Errorf("unknown border style %q", name)
	}
}

// Name returns the style name for the predefined borders, or "custom".
func (b Border) Name() string {
	switch b {
	case BorderNone:
		return "none"
	case BorderRounded:
		return "rounded"
	case BorderSingle:
		return "single"
	case BorderDouble:
		return "double"
	default:
		return "custom"
	}
}

// IsNone reports whether no edge is drawn at all.
func (b Border) IsNone() bool {
	return b == BorderNone
}

// HasTop reports whether a top edge row is drawn.
func (b Border) HasTop() bool { return b.Edges[EdgeTop] != "" }

// HasBottom reports whether a bottom edge row is drawn.
func (b Border) HasBottom() bool { return b.Edges[EdgeBottom] != "" }

// HasLeft reports whether a left edge column is drawn.
func (b Border) HasLeft() bool { return b.Edges[EdgeLeft] != "" }

// HasRight reports whether a right edge column is drawn.
func (b Border) HasRight() bool { return b.Edges[EdgeRight] != "" }

// Rows returns the number of horizontal border lines the surface draws.
func (b Border) Rows() int {
	return boolInt(b.HasTop()) + boolInt(b.HasBottom())
}

// Cols returns the number of vertical border columns the surface draws.
func (b Border) Cols() int {
	return boolInt(b.HasLeft()) + boolInt(b.HasRight())
}

// Title returns the edges for the top surface of a three-surface stack:
// the outer top edge plus both sides, left open at the bottom.
func (b Border) Title() Border {
	if b.IsNone() {
		return BorderNone
	}
	e := b.Edges
	return Border{Edges: [8]string{
		e[EdgeTopLeft], e[EdgeTop], e[EdgeTopRight], e[EdgeRight],
		"", "", "", e[EdgeLeft],
	}}
}

// Input returns the edges for the middle surface of a stack. Its top and
// bottom edges act as separators, so the corners continue the side lines.
func (b Border) Input() Border {
	if b.IsNone() {
		return BorderNone
	}
	e := b.Edges
	return Border{Edges: [8]string{
		e[EdgeLeft], e[EdgeTop], e[EdgeRight], e[EdgeRight],
		e[EdgeRight], e[EdgeBottom], e[EdgeLeft], e[EdgeLeft],
	}}
}

// List returns the edges for the bottom surface of a stack.
func (b Border) List() Border {
	if b.IsNone() {
		return BorderNone
	}
	e := b.Edges
	return Border{Edges: [8]string{
		"", "", "", e[EdgeRight],
		e[EdgeBottomRight], e[EdgeBottom], e[EdgeBottomLeft], e[EdgeLeft],
	}}
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
