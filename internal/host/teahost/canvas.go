package teahost

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/runger/nvpick/internal/host/memhost"
	"github.com/runger/nvpick/internal/layout"
)

// Styles controls how surfaces are drawn.
type Styles struct {
	Text       lipgloss.Style
	Border     lipgloss.Style
	Title      lipgloss.Style
	CursorLine lipgloss.Style
	Cursor     lipgloss.Style

	// Groups styles highlight spans by group name, e.g. "Question".
	Groups map[string]lipgloss.Style
}

// DefaultStyles returns the stock palette.
func DefaultStyles() Styles {
	return Styles{
		Text:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Border:     lipgloss.NewStyle().Foreground(lipgloss.Color("62")),
		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		CursorLine: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("238")),
		Cursor:     lipgloss.NewStyle().Reverse(true),
		Groups: map[string]lipgloss.Style{
			"Question": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			"Comment":  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
			"Error":    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}
}

// PlainStyles returns a palette without colors for monochrome terminals.
// The cursor line is drawn in reverse video so it stays visible.
func PlainStyles() Styles {
	return Styles{
		Text:       lipgloss.NewStyle(),
		Border:     lipgloss.NewStyle(),
		Title:      lipgloss.NewStyle().Bold(true),
		CursorLine: lipgloss.NewStyle().Reverse(true),
		Cursor:     lipgloss.NewStyle().Underline(true),
		Groups: map[string]lipgloss.Style{
			"Question": lipgloss.NewStyle().Bold(true),
		},
	}
}

// Style keys stored per cell. Highlight groups use "hl:" + group.
const (
	keyText       = "text"
	keyBorder     = "border"
	keyTitle      = "title"
	keyCursorLine = "cursorline"
	keyCursor     = "cursor"
)

func (s Styles) lookup(k string) lipgloss.Style {
	switch k {
	case keyBorder:
		return s.Border
	case keyTitle:
		return s.Title
	case keyCursorLine:
		return s.CursorLine
	case keyCursor:
		return s.Cursor
	}
	if g, ok := strings.CutPrefix(k, "hl:"); ok {
		if st, ok := s.Groups[g]; ok {
			return st
		}
	}
	return s.Text
}

// cell is one screen column. Wide runes occupy a cell plus an empty
// continuation cell.
type cell struct {
	text  string
	style string
	cont  bool
}

// canvas is a fixed-size grid that surfaces are painted onto, later ones
// on top of earlier ones.
type canvas struct {
	w, h  int
	cells [][]cell
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([][]cell, h)}
	for r := range c.cells {
		row := make([]cell, w)
		for i := range row {
			row[i] = cell{text: " ", style: keyText}
		}
		c.cells[r] = row
	}
	return c
}

// put writes s starting at (row, col) and returns the column after it.
// Anything outside the grid is clipped.
func (c *canvas) put(row, col int, s, style string) int {
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		c.set(row, col, cell{text: string(r), style: style})
		if rw == 2 {
			c.set(row, col+1, cell{style: style, cont: true})
		}
		col += rw
	}
	return col
}

func (c *canvas) set(row, col int, v cell) {
	if row < 0 || row >= c.h || col < 0 || col >= c.w {
		return
	}
	c.cells[row][col] = v
}

// fill paints n copies of glyph from (row, col).
func (c *canvas) fill(row, col, n int, glyph, style string) {
	for i := 0; i < n; i++ {
		c.put(row, col+i, glyph, style)
	}
}

// restyle changes the style of n cells from (row, col).
func (c *canvas) restyle(row, col, n int, style string) {
	if row < 0 || row >= c.h {
		return
	}
	for i := max(col, 0); i < col+n && i < c.w; i++ {
		c.cells[row][i].style = style
	}
}

// render turns the grid into styled text, one style run at a time.
func (c *canvas) render(st Styles) string {
	var b strings.Builder
	var run strings.Builder
	for r, row := range c.cells {
		if r > 0 {
			b.WriteByte('\n')
		}
		cur := ""
		flush := func() {
			if run.Len() > 0 {
				b.WriteString(st.lookup(cur).Render(run.String()))
				run.Reset()
			}
		}
		for _, cl := range row {
			if cl.cont {
				continue
			}
			if cl.style != cur {
				flush()
				cur = cl.style
			}
			run.WriteString(cl.text)
		}
		flush()
	}
	return b.String()
}

// drawSurface paints one surface: border, title, visible lines, cursor
// line and highlight spans. showCursor draws a text cursor at the end of
// the cursor row, used for a focused input in insert mode.
func (c *canvas) drawSurface(snap memhost.Snapshot, showCursor bool) {
	g := snap.Geometry
	b := g.Border
	e := b.Edges
	outerW := g.OuterWidth()
	top, left := g.Row, g.Col
	contentRow, contentCol := g.ContentRow(), g.ContentCol()
	right := contentCol + g.Width

	if b.HasTop() {
		c.put(top, left, e[layout.EdgeTopLeft], keyBorder)
		c.fill(top, contentCol, g.Width, e[layout.EdgeTop], keyBorder)
		if b.HasRight() {
			c.put(top, right, e[layout.EdgeTopRight], keyBorder)
		}
		if g.Title != "" && g.Width > 2 {
			c.put(top, contentCol+1, middleTruncate(" "+cleanLine(g.Title)+" ", g.Width-2), keyTitle)
		}
	}
	if b.HasBottom() {
		bottom := contentRow + g.Height
		c.put(bottom, left, e[layout.EdgeBottomLeft], keyBorder)
		c.fill(bottom, contentCol, g.Width, e[layout.EdgeBottom], keyBorder)
		if b.HasRight() {
			c.put(bottom, right, e[layout.EdgeBottomRight], keyBorder)
		}
	}

	// Scroll so the cursor row stays visible.
	offset := max(0, snap.Cursor-g.Height)
	textWidth := g.Width - snap.Padding
	for i := 0; i < g.Height; i++ {
		row := contentRow + i
		if b.HasLeft() {
			c.put(row, left, e[layout.EdgeLeft], keyBorder)
		}
		if b.HasRight() {
			c.put(row, left+outerW-1, e[layout.EdgeRight], keyBorder)
		}

		c.fill(row, contentCol, g.Width, " ", keyText)
		idx := offset + i
		if idx >= len(snap.Lines) {
			continue
		}
		line := cleanLine(snap.Lines[idx])
		lineStyle := keyText
		if snap.CursorLine && idx+1 == snap.Cursor {
			lineStyle = keyCursorLine
			c.restyle(row, contentCol, g.Width, keyCursorLine)
		}

		start := contentCol + snap.Padding
		shown := middleTruncate(line, textWidth)
		end := c.put(row, start, shown, lineStyle)

		for _, hl := range snap.Highlights {
			if hl.Row != idx || shown != line {
				continue
			}
			from := start + runewidth.StringWidth(line[:clampByte(line, hl.StartCol)])
			to := start + runewidth.StringWidth(line[:clampByte(line, hl.EndCol)])
			c.restyle(row, from, to-from, "hl:"+hl.Group)
		}

		if showCursor && idx+1 == snap.Cursor && end < right {
			c.restyle(row, end, 1, keyCursor)
		}
	}
	if showCursor && len(snap.Lines) == 0 {
		c.restyle(contentRow, contentCol+snap.Padding, 1, keyCursor)
	}
}

func clampByte(s string, i int) int {
	return min(max(i, 0), len(s))
}
