package pagination

import (
	"strings"

	"github.com/gompdf/pagedpreview/internal/parser/html"
)

// DefaultTolerance keeps the overflow test strict: no page of several blocks
// ends taller than the budget.
const DefaultTolerance = 0

// Page is one page of a paginated document.
type Page struct {
	// Index is 0-based and assigned in emission order
	Index  int
	Blocks []*html.Block
	// Heights holds the measured height of each block
	Heights []int
	// AccumulatedHeight is the sum of Heights
	AccumulatedHeight int
	// Oversized is set when a single block exceeds the page budget
	Oversized bool
	// Fallback is set for the single page of a document without blocks,
	// which renders Raw as is
	Fallback bool
	Raw      string
}

// Markup concatenates the markup of the page's blocks.
func (p Page) Markup() string {
	if p.Fallback {
		return p.Raw
	}
	var b strings.Builder
	for _, blk := range p.Blocks {
		b.WriteString(blk.Markup)
	}
	return b.String()
}

// Pack assigns blocks to pages greedily in document order. A page is closed
// when the next block would push it past budget+tolerance; a block taller
// than the budget lands on a page of its own. heights must be parallel to
// blocks.
func Pack(blocks []*html.Block, heights []int, budget, tolerance int) []Page {
	var (
		pages   []Page
		current Page
	)
	closePage := func() {
		current.Index = len(pages)
		current.Oversized = len(current.Blocks) == 1 && current.AccumulatedHeight > budget
		pages = append(pages, current)
		current = Page{}
	}

	for i, blk := range blocks {
		h := heights[i]
		if len(current.Blocks) > 0 && current.AccumulatedHeight+h > budget+tolerance {
			closePage()
		}
		current.Blocks = append(current.Blocks, blk)
		current.Heights = append(current.Heights, h)
		current.AccumulatedHeight += h
	}
	if len(current.Blocks) > 0 {
		closePage()
	}
	return pages
}

// FallbackPage is the single page a document without blocks renders as.
func FallbackPage(raw string) Page {
	return Page{Index: 0, Fallback: true, Raw: raw}
}

// Boundaries returns the block indices of each page, the comparable shape
// of a pagination result.
func Boundaries(pages []Page) [][]int {
	out := make([][]int, len(pages))
	for i, p := range pages {
		idx := make([]int, len(p.Blocks))
		for j, b := range p.Blocks {
			idx[j] = b.Index
		}
		out[i] = idx
	}
	return out
}
