package text

import (
	"fmt"
	"strings"
	"sync"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Font is a resolved core font at a pixel size.
type Font struct {
	// Family is one of the PDF core families: Helvetica, Times or Courier
	Family string
	Bold   bool
	Italic bool
	// Size in CSS pixels
	Size float64
}

// Style returns the fpdf style string for the font.
func (f Font) Style() string {
	s := ""
	if f.Bold {
		s += "B"
	}
	if f.Italic {
		s += "I"
	}
	return s
}

// ResolveFamily maps a CSS font-family list onto a core font family. The
// first family that maps wins; unknown lists fall back to Times, the
// browser default serif.
func ResolveFamily(cssFamily string) string {
	for _, name := range strings.Split(cssFamily, ",") {
		name = strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(name), `'"`)))
		switch name {
		case "arial", "helvetica", "sans-serif", "verdana", "tahoma", "calibri",
			"segoe ui", "roboto", "open sans", "liberation sans", "system-ui":
			return "Helvetica"
		case "times", "times new roman", "serif", "georgia", "cambria",
			"garamond", "liberation serif", "book antiqua":
			return "Times"
		case "courier", "courier new", "monospace", "consolas", "menlo",
			"liberation mono", "lucida console":
			return "Courier"
		}
	}
	return "Times"
}

// IsBoldWeight reports whether a CSS font-weight renders with the bold face.
func IsBoldWeight(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	}
	return false
}

// Metrics measures strings with the core font metrics of fpdf, the same
// metrics the PDF generator lays text out with. A Metrics value is safe for
// concurrent use; each instance owns its own fpdf document.
type Metrics struct {
	mu  sync.Mutex
	pdf *fpdf.Fpdf
}

// NewMetrics creates a measurement context. With "pt" as the unit a font
// size given in pixels yields widths in pixels.
func NewMetrics() (*Metrics, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Times", "", 16)
	if pdf.Err() {
		return nil, fmt.Errorf("init font metrics: %w", pdf.Error())
	}
	return &Metrics{pdf: pdf}, nil
}

// Width returns the advance width of s in pixels. East Asian wide runes take
// one em; runes outside Windows-1252 are measured as '?'.
func (m *Metrics) Width(s string, f Font) float64 {
	if s == "" || f.Size <= 0 {
		return 0
	}
	s = norm.NFC.String(s)

	var (
		encoded []byte
		wide    int
	)
	for _, r := range s {
		if IsWide(r) {
			wide++
			continue
		}
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		encoded = append(encoded, b)
	}

	w := float64(wide) * f.Size
	if len(encoded) == 0 {
		return w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont(f.Family, f.Style(), f.Size)
	if m.pdf.Err() {
		// unknown family: fall back instead of poisoning the document
		m.pdf.ClearError()
		m.pdf.SetFont("Times", f.Style(), f.Size)
	}
	return w + m.pdf.GetStringWidth(string(encoded))
}

// IsWide reports whether r occupies a full em, as CJK ideographs and
// full-width forms do.
func IsWide(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	}
	return false
}
