// Package layout computes sizes and positions for picker surfaces.
//
// All functions are pure: they take the screen size and the content to
// display and return geometry in character cells. Rows and columns are
// 0-based and refer to the outer top-left corner of a surface, border
// included, the way floating windows are positioned in Neovim.
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/mattn/go-runewidth"
)

// Padding is the number of cells auto width adds on each side of the
// widest line.
const Padding = 2

// DefaultRatio is used for a dimension that has neither a ratio nor
// auto-fit.
const DefaultRatio = 0.5

// ErrInvalidLayout is returned when a ratio lies outside (0,1].
var ErrInvalidLayout = errors.New("invalid layout")

// Size is a screen or content size in cells.
type Size struct {
	Width  int
	Height int
}

// Config controls how a picker is sized.
type Config struct {
	Border Border

	// WidthRatio and HeightRatio are fractions of the screen in (0,1].
	// Zero means unset.
	WidthRatio  float64
	HeightRatio float64

	// AutoWidth and AutoHeight only apply when the matching ratio is unset.
	AutoWidth  bool
	AutoHeight bool
}

// Geometry is the placement of one surface.
type Geometry struct {
	Row    int
	Col    int
	Width  int // content width, border excluded
	Height int // content height, border excluded
	Border Border
	Title  string // optional, drawn in the top edge when there is one
}

// OuterWidth returns the width including vertical border columns.
func (g Geometry) OuterWidth() int { return g.Width + g.Border.Cols() }

// OuterHeight returns the height including horizontal border lines.
func (g Geometry) OuterHeight() int { return g.Height + g.Border.Rows() }

// ContentRow returns the screen row of the first content line.
func (g Geometry) ContentRow() int { return g.Row + boolInt(g.Border.HasTop()) }

// ContentCol returns the screen column of the first content cell.
func (g Geometry) ContentCol() int { return g.Col + boolInt(g.Border.HasLeft()) }

// Extent summarizes the content a surface must fit.
type Extent struct {
	MaxLineWidth int
	LineCount    int
}

// Measure returns the extent of items, counting title toward the width only.
func Measure(title string, items []string) Extent {
	ext := Extent{MaxLineWidth: runewidth.StringWidth(title), LineCount: len(items)}
	for _, item := range items {
		if w := runewidth.StringWidth(item); w > ext.MaxLineWidth {
			ext.MaxLineWidth = w
		}
	}
	return ext
}

// Stack is the placement of the Title, Input, and List surfaces of an
// editable picker.
type Stack struct {
	Title Geometry
	Input Geometry
	List  Geometry
}

// Validate checks the ratios of cfg.
func Validate(cfg Config) error {
	if err := validateRatio("width_ratio", cfg.WidthRatio); err != nil {
		return err
	}
	return validateRatio("height_ratio", cfg.HeightRatio)
}

func validateRatio(name string, r float64) error {
	if r == 0 {
		return nil
	}
	if math.IsNaN(r) || r < 0 || r > 1 {
		return fmt.Errorf("%w: %s must be in (0,1] (got %v)", ErrInvalidLayout, name, r)
	}
	return nil
}

// Compute places a single surface. When extent is nil auto-fit is skipped.
func Compute(cfg Config, screen Size, extent *Extent) (Geometry, error) {
	if err := Validate(cfg); err != nil {
		return Geometry{}, err
	}

	width := fromRatio(screen.Width, cfg.WidthRatio)
	height := fromRatio(screen.Height, cfg.HeightRatio)

	if extent != nil {
		if cfg.AutoWidth && cfg.WidthRatio == 0 && extent.MaxLineWidth > 0 {
			width = extent.MaxLineWidth + 2*Padding
		}
		if cfg.AutoHeight && cfg.HeightRatio == 0 {
			height = max(1, extent.LineCount)
		}
	}

	effWidth := width + cfg.Border.Cols()
	effHeight := height + cfg.Border.Rows()

	return Geometry{
		Row:    center(screen.Height, effHeight),
		Col:    center(screen.Width, effWidth),
		Width:  width,
		Height: height,
		Border: cfg.Border,
	}, nil
}

// ComputeStack places the three surfaces of an editable picker: Title
// (height 1) directly above Input (height 1) directly above List (one row
// per item, at least 1).
func ComputeStack(cfg Config, screen Size, title string, items []string) (Stack, error) {
	if err := Validate(cfg); err != nil {
		return Stack{}, err
	}

	width := fromRatio(screen.Width, cfg.WidthRatio)
	height := fromRatio(screen.Height, cfg.HeightRatio)

	if cfg.AutoWidth && cfg.WidthRatio == 0 {
		if ext := Measure(title, items); ext.MaxLineWidth > 0 {
			width = ext.MaxLineWidth + 2*Padding
		}
	}
	if cfg.AutoHeight && cfg.HeightRatio == 0 {
		height = len(items) + 2 // title line + input line
	}

	titleBorder := cfg.Border.Title()
	inputBorder := cfg.Border.Input()
	listBorder := cfg.Border.List()

	effWidth := width + cfg.Border.Cols()
	effHeight := height + titleBorder.Rows() + inputBorder.Rows() + listBorder.Rows()

	row := center(screen.Height, effHeight)
	col := center(screen.Width, effWidth)

	var s Stack
	s.Title = Geometry{Row: row, Col: col, Width: width, Height: 1, Border: titleBorder}

	row += s.Title.Height + titleBorder.Rows()
	s.Input = Geometry{Row: row, Col: col, Width: width, Height: 1, Border: inputBorder}

	row += s.Input.Height + inputBorder.Rows()
	listHeight := max(1, len(items))
	if room := screen.Height - row - listBorder.Rows(); room < listHeight {
		listHeight = max(1, room)
	}
	s.List = Geometry{Row: row, Col: col, Width: width, Height: listHeight, Border: listBorder}

	return s, nil
}

// fromRatio applies ratio (or DefaultRatio when unset) to n, rounding
// down. A product below one cell still yields 1: every surface keeps at
// least one addressable row and column.
func fromRatio(n int, ratio float64) int {
	if ratio == 0 {
		ratio = DefaultRatio
	}
	return max(1, int(math.Floor(float64(n)*ratio)))
}

// center returns the offset that centers size within total, clamped at 0.
func center(total, size int) int {
	off := int(math.Floor(float64(total-size) / 2))
	return max(0, off)
}
