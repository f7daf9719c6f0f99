package style

import (
	"strconv"
	"strings"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/parser/html"
)

const (
	// DefaultFontSize is the browser default for the root element
	DefaultFontSize = 16.0
	// NormalLineHeight approximates line-height: normal for the core fonts
	NormalLineHeight = 1.2
)

// Value returns the trimmed value of a property or "".
func (cs ComputedStyle) Value(name string) string {
	if cs == nil {
		return ""
	}
	return strings.TrimSpace(cs[name].Value)
}

// FontSize returns the resolved font size in pixels.
func (cs ComputedStyle) FontSize() float64 {
	v := cs.Value("font-size")
	if v == "" {
		return DefaultFontSize
	}
	if size := parseLength(v, DefaultFontSize, DefaultFontSize, DefaultFontSize); size > 0 {
		return size
	}
	return DefaultFontSize
}

// LineHeight returns the used line height in pixels.
func (cs ComputedStyle) LineHeight() float64 {
	size := cs.FontSize()
	v := cs.Value("line-height")
	if v == "" || strings.EqualFold(v, "normal") {
		return size * NormalLineHeight
	}
	if n, ok := parseNumber(v); ok {
		return n * size
	}
	if lh := parseLength(v, size, size, 0); lh > 0 {
		return lh
	}
	return size * NormalLineHeight
}

// Length resolves a length property against percentBase (usually the width
// of the containing block). Missing or unparsable values yield def.
func (cs ComputedStyle) Length(name string, percentBase, def float64) float64 {
	return parseLength(cs.Value(name), percentBase, cs.FontSize(), def)
}

// Has reports whether a property carries a definite length rather than auto.
func (cs ComputedStyle) Has(name string) bool {
	v := strings.ToLower(cs.Value(name))
	return v != "" && v != "auto" && v != "none"
}

// Display returns the display value for an element, falling back to the
// tag's default.
func (cs ComputedStyle) Display(tag string) string {
	if v := strings.ToLower(cs.Value("display")); v != "" {
		return v
	}
	return DefaultDisplay(tag)
}

// DefaultDisplay is the user agent display value of a tag.
func DefaultDisplay(tag string) string {
	switch tag {
	case "head", "script", "style", "template", "title", "meta", "link", "noscript", "base":
		return "none"
	case "li":
		return "list-item"
	case "table":
		return "table"
	case "tr":
		return "table-row"
	case "td", "th":
		return "table-cell"
	case "thead", "tbody", "tfoot":
		return "table-row-group"
	case "caption":
		return "table-caption"
	case "col":
		return "table-column"
	case "colgroup":
		return "table-column-group"
	}
	if html.IsBlockTag(tag) {
		return "block"
	}
	return "inline"
}

// WhiteSpace returns the element's white-space mode.
func (cs ComputedStyle) WhiteSpace() geometry.WhiteSpace {
	if ws, err := geometry.ParseWhiteSpace(cs.Value("white-space")); err == nil {
		return ws
	}
	return geometry.WhiteSpaceNormal
}

// TabSize returns tab-size in space widths.
func (cs ComputedStyle) TabSize() int {
	v := cs.Value("tab-size")
	if v == "" {
		v = cs.Value("-moz-tab-size")
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return 8
}

// Border returns the used width of one border side ("top", "right",
// "bottom" or "left"). A side without a visible style has no width.
func (cs ComputedStyle) Border(side string) float64 {
	st := strings.ToLower(cs.Value("border-" + side + "-style"))
	if st == "" || st == "none" || st == "hidden" {
		return 0
	}
	v := strings.ToLower(cs.Value("border-" + side + "-width"))
	switch v {
	case "thin":
		return 1
	case "", "medium":
		return 3
	case "thick":
		return 5
	}
	return parseLength(v, 0, cs.FontSize(), 0)
}

// parseLength parses a CSS length value
func parseLength(value string, containerSize, fontSize, defaultValue float64) float64 {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "auto" || value == "none" {
		return defaultValue
	}

	units := []struct {
		suffix string
		scale  float64
	}{
		{"px", 1},
		{"rem", DefaultFontSize},
		{"em", fontSize},
		{"ex", fontSize / 2},
		{"ch", fontSize / 2},
		{"pt", geometry.PixelsPerInch / 72},
		{"pc", geometry.PixelsPerInch / 6},
		{"in", geometry.PixelsPerInch},
		{"cm", geometry.PixelsPerInch / 2.54},
		{"mm", geometry.PixelsPerInch / geometry.MillimetersPerInch},
	}

	if strings.HasSuffix(value, "%") {
		percentage, err := strconv.ParseFloat(value[:len(value)-1], 64)
		if err != nil {
			return defaultValue
		}
		return containerSize * percentage / 100
	}

	for _, u := range units {
		if strings.HasSuffix(value, u.suffix) {
			n, err := strconv.ParseFloat(value[:len(value)-len(u.suffix)], 64)
			if err != nil {
				return defaultValue
			}
			return n * u.scale
		}
	}

	pixels, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return pixels
}

// ParseLength resolves a standalone length such as an attribute value.
func ParseLength(value string, containerSize, fontSize, def float64) float64 {
	return parseLength(value, containerSize, fontSize, def)
}

var fontSizeKeywords = map[string]float64{
	"xx-small":  9,
	"x-small":   10,
	"small":     13,
	"medium":    16,
	"large":     18,
	"x-large":   24,
	"xx-large":  32,
	"xxx-large": 48,
}

// resolveFontSize resolves a font-size value against the parent's size.
func resolveFontSize(value string, parentSize float64) float64 {
	v := strings.ToLower(strings.TrimSpace(value))
	if px, ok := fontSizeKeywords[v]; ok {
		return px
	}
	switch v {
	case "smaller":
		return parentSize / 1.2
	case "larger":
		return parentSize * 1.2
	}
	if size := parseLength(v, parentSize, parentSize, 0); size > 0 {
		return size
	}
	return parentSize
}

func parseNumber(v string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return n, err == nil
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// attrLength converts an HTML dimension attribute to a CSS length.
func attrLength(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "%") {
		return v
	}
	if n, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64); err == nil {
		return formatPx(n)
	}
	return ""
}
