package preview

import (
	"fmt"
	"strconv"
	"strings"
)

// Horizontal places the page number along the page edge.
type Horizontal string

const (
	AlignStart  Horizontal = "start"
	AlignCenter Horizontal = "center"
	AlignEnd    Horizontal = "end"
)

// Vertical chooses the page edge that carries the number.
type Vertical string

const (
	AlignTop    Vertical = "top"
	AlignBottom Vertical = "bottom"
)

// DefaultFormat renders the bare page number.
const DefaultFormat = "{page}"

// Numbering configures the page number indicator. It only affects rendering.
type Numbering struct {
	Enabled    bool
	Horizontal Horizontal
	Vertical   Vertical
	// Format substitutes {page} (1-based) and {total}
	Format string
}

// DefaultNumbering is centered at the bottom and disabled.
func DefaultNumbering() Numbering {
	return Numbering{Horizontal: AlignCenter, Vertical: AlignBottom, Format: DefaultFormat}
}

// Validate rejects unknown alignments.
func (n Numbering) Validate() error {
	switch n.Horizontal {
	case AlignStart, AlignCenter, AlignEnd, "":
	default:
		return fmt.Errorf("unknown horizontal alignment %q", n.Horizontal)
	}
	switch n.Vertical {
	case AlignTop, AlignBottom, "":
	default:
		return fmt.Errorf("unknown vertical alignment %q", n.Vertical)
	}
	return nil
}

// Visible reports whether numbers are drawn for a document of total pages.
// A single page is never numbered.
func (n Numbering) Visible(total int) bool {
	return n.Enabled && total > 1
}

// Label formats the indicator for the 0-based page index.
func (n Numbering) Label(index, total int) string {
	format := n.Format
	if format == "" {
		format = DefaultFormat
	}
	return strings.NewReplacer(
		"{page}", strconv.Itoa(index+1),
		"{total}", strconv.Itoa(total),
	).Replace(format)
}

func (n Numbering) textAlign() string {
	switch n.Horizontal {
	case AlignStart:
		return "left"
	case AlignEnd:
		return "right"
	}
	return "center"
}

func (n Numbering) edge() Vertical {
	if n.Vertical == AlignTop {
		return AlignTop
	}
	return AlignBottom
}
