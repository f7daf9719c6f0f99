package layout

import (
	"math"
	"strings"

	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/style"
)

// Edges holds the four sides of a margin, border or padding.
type Edges struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Horizontal is the sum of the left and right sides.
func (e Edges) Horizontal() float64 { return e.Left + e.Right }

// Vertical is the sum of the top and bottom sides.
func (e Edges) Vertical() float64 { return e.Top + e.Bottom }

// Box is a laid out block-level box. Only the vertical extent is tracked.
type Box interface {
	GetNode() *html.Node
	// GetHeight is the border-box height
	GetHeight() float64
	GetMarginTop() margin
	GetMarginBottom() margin
	// CollapsesThrough reports an empty box whose top and bottom margins join
	CollapsesThrough() bool
}

// margin is a set of adjoining vertical margins. Positive and negative
// margins collapse separately and the result is their sum.
type margin struct {
	pos float64
	neg float64
}

func marginOf(v float64) margin {
	var m margin
	m.add(v)
	return m
}

func (m *margin) add(v float64) {
	if v > m.pos {
		m.pos = v
	}
	if v < m.neg {
		m.neg = v
	}
}

func (m *margin) join(o margin) {
	m.add(o.pos)
	m.add(o.neg)
}

func (m margin) value() float64 { return m.pos + m.neg }

// boxModel resolves margin, border and padding for an element. Percentages
// resolve against the width of the containing block, vertical ones included.
func boxModel(st style.ComputedStyle, containerWidth float64) (m, b, p Edges) {
	length := func(name string) float64 {
		return st.Length(name, containerWidth, 0)
	}
	m = Edges{length("margin-top"), length("margin-right"), length("margin-bottom"), length("margin-left")}
	b = Edges{st.Border("top"), st.Border("right"), st.Border("bottom"), st.Border("left")}
	p = Edges{
		math.Max(0, length("padding-top")), math.Max(0, length("padding-right")),
		math.Max(0, length("padding-bottom")), math.Max(0, length("padding-left")),
	}
	return m, b, p
}

// establishesContext reports whether an element starts a new block
// formatting context, which stops margins collapsing with its children.
func establishesContext(st style.ComputedStyle, display string) bool {
	switch display {
	case "flow-root", "inline-block", "table-cell", "table-caption", "table", "inline-table", "flex", "inline-flex", "grid", "inline-grid":
		return true
	}
	switch strings.ToLower(st.Value("overflow")) {
	case "hidden", "auto", "scroll", "clip":
		return true
	}
	return false
}

// outOfFlow reports elements that take no space in the normal flow.
func outOfFlow(st style.ComputedStyle) bool {
	switch strings.ToLower(st.Value("position")) {
	case "absolute", "fixed":
		return true
	}
	return false
}

func isBorderBox(st style.ComputedStyle) bool {
	return strings.EqualFold(st.Value("box-sizing"), "border-box")
}
