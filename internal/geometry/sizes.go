package geometry

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// PixelsPerInch is the CSS reference pixel density shared with the PDF generator.
const PixelsPerInch = 96.0

// MillimetersPerInch converts physical page units.
const MillimetersPerInch = 25.4

// PageSize names a paper size understood by both the preview and the PDF generator.
type PageSize string

const (
	SizeA3     PageSize = "A3"
	SizeA4     PageSize = "A4"
	SizeLetter PageSize = "Letter"
	SizeLegal  PageSize = "Legal"
	SizeFolio  PageSize = "Folio"
)

// Orientation of the page.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

type paper struct {
	widthMM  float64
	heightMM float64
}

func (p paper) pixels() (float64, float64) {
	return MMToPixels(p.widthMM), MMToPixels(p.heightMM)
}

// Portrait dimensions in millimetres.
var sizeTable = map[PageSize]paper{
	SizeA3:     {297, 420},
	SizeA4:     {210, 297},
	SizeLetter: {215.9, 279.4},
	SizeLegal:  {215.9, 355.6},
	SizeFolio:  {215.9, 330.2},
}

// MMToPixels converts millimetres to whole CSS pixels.
func MMToPixels(mm float64) float64 {
	return math.Round(mm / MillimetersPerInch * PixelsPerInch)
}

// ParsePageSize resolves a case-insensitive size name.
func ParsePageSize(name string) (PageSize, error) {
	for size := range sizeTable {
		if strings.EqualFold(string(size), strings.TrimSpace(name)) {
			return size, nil
		}
	}
	return "", fmt.Errorf("%w: unknown page size %q", ErrInvalidGeometry, name)
}

// ParseOrientation resolves an orientation keyword; empty means portrait.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(strings.ToLower(strings.TrimSpace(s))) {
	case Portrait, "":
		return Portrait, nil
	case Landscape:
		return Landscape, nil
	}
	return "", fmt.Errorf("%w: unknown orientation %q", ErrInvalidGeometry, s)
}

// Margins in millimetres, as the PDF generator takes them.
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// PageOptions mirrors the PDF generator's page options.
type PageOptions struct {
	Size        PageSize
	Orientation Orientation
	Margins     Margins
	Font        Font
	WhiteSpace  WhiteSpace
	TabSize     int
}

// Resolve converts PDF page options into a pixel geometry using the fixed
// lookup table.
func (o PageOptions) Resolve() (Geometry, error) {
	p, ok := sizeTable[o.Size]
	if !ok {
		return Geometry{}, fmt.Errorf("%w: unknown page size %q", ErrInvalidGeometry, o.Size)
	}
	w, h := p.pixels()
	switch o.Orientation {
	case Landscape:
		w, h = h, w
	case Portrait, "":
	default:
		return Geometry{}, fmt.Errorf("%w: unknown orientation %q", ErrInvalidGeometry, o.Orientation)
	}

	g := Geometry{
		PageWidth:  w,
		PageHeight: h,
		Padding: Insets{
			Top:    MMToPixels(o.Margins.Top),
			Right:  MMToPixels(o.Margins.Right),
			Bottom: MMToPixels(o.Margins.Bottom),
			Left:   MMToPixels(o.Margins.Left),
		},
		WhiteSpace: o.WhiteSpace,
		TabSize:    o.TabSize,
		Font:       o.Font,
	}
	if g.WhiteSpace == "" {
		g.WhiteSpace = WhiteSpaceNormal
	}
	if g.TabSize == 0 {
		g.TabSize = 8
	}
	if g.Font == (Font{}) {
		g.Font = DefaultFont()
	}
	return g, g.Validate()
}

// SizeEntry is one row of the lookup table in pixels.
type SizeEntry struct {
	Name   PageSize
	Width  float64
	Height float64
}

// Sizes returns the portrait lookup table sorted by name.
func Sizes() []SizeEntry {
	out := make([]SizeEntry, 0, len(sizeTable))
	for name, p := range sizeTable {
		w, h := p.pixels()
		out = append(out, SizeEntry{Name: name, Width: w, Height: h})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
