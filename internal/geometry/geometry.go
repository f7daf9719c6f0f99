package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidGeometry is returned when a geometry cannot be paginated against.
var ErrInvalidGeometry = errors.New("invalid page geometry")

// WhiteSpace is a CSS white-space mode. The mode used for measurement must be
// the mode the final page is rendered with.
type WhiteSpace string

const (
	WhiteSpaceNormal      WhiteSpace = "normal"
	WhiteSpaceNoWrap      WhiteSpace = "nowrap"
	WhiteSpacePre         WhiteSpace = "pre"
	WhiteSpacePreWrap     WhiteSpace = "pre-wrap"
	WhiteSpacePreLine     WhiteSpace = "pre-line"
	WhiteSpaceBreakSpaces WhiteSpace = "break-spaces"
)

// ParseWhiteSpace parses a CSS white-space keyword.
func ParseWhiteSpace(s string) (WhiteSpace, error) {
	ws := WhiteSpace(strings.ToLower(strings.TrimSpace(s)))
	if !ws.Valid() {
		return "", fmt.Errorf("%w: unknown white-space mode %q", ErrInvalidGeometry, s)
	}
	return ws, nil
}

// Valid reports whether ws is a known mode.
func (ws WhiteSpace) Valid() bool {
	switch ws {
	case WhiteSpaceNormal, WhiteSpaceNoWrap, WhiteSpacePre, WhiteSpacePreWrap,
		WhiteSpacePreLine, WhiteSpaceBreakSpaces:
		return true
	}
	return false
}

// CollapsesSpaces reports whether runs of spaces and tabs collapse to one space.
func (ws WhiteSpace) CollapsesSpaces() bool {
	return ws == WhiteSpaceNormal || ws == WhiteSpaceNoWrap || ws == WhiteSpacePreLine
}

// PreservesNewlines reports whether segment breaks force a line break.
func (ws WhiteSpace) PreservesNewlines() bool {
	return ws == WhiteSpacePre || ws == WhiteSpacePreWrap || ws == WhiteSpacePreLine ||
		ws == WhiteSpaceBreakSpaces
}

// Wraps reports whether lines wrap at the content width.
func (ws WhiteSpace) Wraps() bool {
	return ws != WhiteSpaceNoWrap && ws != WhiteSpacePre
}

// Insets are per-side paddings in pixels.
type Insets struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Uniform returns insets with the same value on every side.
func Uniform(v float64) Insets {
	return Insets{Top: v, Right: v, Bottom: v, Left: v}
}

// Font describes the base font the page is rendered with.
type Font struct {
	Family string
	// Size in CSS pixels
	Size float64
	// LineHeight is a unitless multiplier of Size
	LineHeight float64
}

// Geometry is the pixel geometry a document is paginated against.
type Geometry struct {
	PageWidth  float64
	PageHeight float64
	Padding    Insets
	WhiteSpace WhiteSpace
	TabSize    int
	Font       Font
}

// Default returns an A4 portrait geometry with no padding.
func Default() Geometry {
	w, h := sizeTable[SizeA4].pixels()
	return Geometry{
		PageWidth:  w,
		PageHeight: h,
		WhiteSpace: WhiteSpaceNormal,
		TabSize:    8,
		Font:       DefaultFont(),
	}
}

// DefaultFont matches the body font of the server-side document stylesheet.
func DefaultFont() Font {
	return Font{Family: "Times New Roman", Size: 16, LineHeight: 1.5}
}

// ContentWidth is the width available to content after horizontal padding.
func (g Geometry) ContentWidth() float64 {
	return g.PageWidth - g.Padding.Left - g.Padding.Right
}

// ContentHeight is the packing budget of one page.
func (g Geometry) ContentHeight() float64 {
	return g.PageHeight - g.Padding.Top - g.Padding.Bottom
}

// Validate rejects geometries that cannot be paginated.
func (g Geometry) Validate() error {
	switch {
	case !positive(g.PageWidth):
		return fmt.Errorf("%w: page width must be positive, got %v", ErrInvalidGeometry, g.PageWidth)
	case !positive(g.PageHeight):
		return fmt.Errorf("%w: page height must be positive, got %v", ErrInvalidGeometry, g.PageHeight)
	case g.Padding.Top < 0 || g.Padding.Right < 0 || g.Padding.Bottom < 0 || g.Padding.Left < 0:
		return fmt.Errorf("%w: padding must not be negative", ErrInvalidGeometry)
	case !positive(g.ContentWidth()):
		return fmt.Errorf("%w: padding leaves no content width (%v)", ErrInvalidGeometry, g.ContentWidth())
	case !positive(g.ContentHeight()) || g.ContentHeight() < 1:
		return fmt.Errorf("%w: padding leaves less than one pixel of content height (%v)", ErrInvalidGeometry, g.ContentHeight())
	case !g.WhiteSpace.Valid():
		return fmt.Errorf("%w: unknown white-space mode %q", ErrInvalidGeometry, g.WhiteSpace)
	case g.TabSize <= 0:
		return fmt.Errorf("%w: tab size must be positive, got %d", ErrInvalidGeometry, g.TabSize)
	case !positive(g.Font.Size):
		return fmt.Errorf("%w: font size must be positive, got %v", ErrInvalidGeometry, g.Font.Size)
	case !positive(g.Font.LineHeight):
		return fmt.Errorf("%w: line height must be positive, got %v", ErrInvalidGeometry, g.Font.LineHeight)
	}
	return nil
}

// Key identifies the geometry for re-pagination decisions. Two geometries with
// equal keys produce identical measurements.
func (g Geometry) Key() string {
	return fmt.Sprintf("%g|%g|%g,%g,%g,%g|%s|%d|%s|%g|%g",
		g.PageWidth, g.PageHeight,
		g.Padding.Top, g.Padding.Right, g.Padding.Bottom, g.Padding.Left,
		g.WhiteSpace, g.TabSize, g.Font.Family, g.Font.Size, g.Font.LineHeight)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
