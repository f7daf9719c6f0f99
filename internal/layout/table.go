package layout

import (
	"math"
	"strconv"
	"strings"

	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/style"
	xhtml "golang.org/x/net/html"
)

type tableCell struct {
	node    *html.Node
	st      style.ComputedStyle
	row     int
	col     int
	colspan int
	rowspan int
}

type tableRow struct {
	node *html.Node
	st   style.ComputedStyle
}

type captionBox struct {
	node *html.Node
	st   style.ComputedStyle
}

// tableGrid is a table resolved into rows and cells, with every cell placed
// on the column grid after colspan and rowspan.
type tableGrid struct {
	st       style.ComputedStyle
	captions []captionBox
	rows     []tableRow
	cells    []*tableCell
	ncols    int
	collapse bool
	hgap     float64
	vgap     float64
}

// buildTable collects captions, rows in header, body and footer order, and
// cells. Stray non-row content of a table is ignored.
func (e *Engine) buildTable(n *html.Node, st style.ComputedStyle) *tableGrid {
	g := &tableGrid{st: st, collapse: strings.EqualFold(st.Value("border-collapse"), "collapse")}
	if !g.collapse {
		g.hgap, g.vgap = borderSpacing(st)
	}

	var head, body, foot []tableRow
	rowsOf := func(group *html.Node, gst style.ComputedStyle) []tableRow {
		var rows []tableRow
		for c := group.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xhtml.ElementNode {
				continue
			}
			cst := e.styles.Compute(c, gst)
			if cst.Display(c.Tag()) == "table-row" {
				rows = append(rows, tableRow{node: c, st: cst})
			}
		}
		return rows
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xhtml.ElementNode {
			continue
		}
		cst := e.styles.Compute(c, st)
		switch cst.Display(c.Tag()) {
		case "table-caption":
			g.captions = append(g.captions, captionBox{node: c, st: cst})
		case "table-header-group":
			head = append(head, rowsOf(c, cst)...)
		case "table-footer-group":
			foot = append(foot, rowsOf(c, cst)...)
		case "table-row-group":
			body = append(body, rowsOf(c, cst)...)
		case "table-row":
			body = append(body, tableRow{node: c, st: cst})
		}
	}
	g.rows = append(append(head, body...), foot...)

	occupied := make(map[[2]int]bool)
	for r, row := range g.rows {
		col := 0
		for c := row.node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xhtml.ElementNode {
				continue
			}
			cst := e.styles.Compute(c, row.st)
			if cst.Display(c.Tag()) == "none" {
				continue
			}
			for occupied[[2]int{r, col}] {
				col++
			}
			colspan := spanAttr(c, "colspan", 1000)
			rowspan := spanAttr(c, "rowspan", 65534)
			if rowspan == 0 || r+rowspan > len(g.rows) {
				rowspan = len(g.rows) - r
			}
			if colspan == 0 {
				colspan = 1
			}
			for dr := 0; dr < rowspan; dr++ {
				for dc := 0; dc < colspan; dc++ {
					occupied[[2]int{r + dr, col + dc}] = true
				}
			}
			g.cells = append(g.cells, &tableCell{node: c, st: cst, row: r, col: col, colspan: colspan, rowspan: rowspan})
			col += colspan
			g.ncols = max(g.ncols, col)
		}
	}
	return g
}

// spanAttr parses colspan or rowspan. Missing or invalid values are 1;
// rowspan="0" is returned as 0 and spans the remaining rows.
func spanAttr(n *html.Node, name string, limit int) int {
	v, ok := n.Attribute(name)
	if !ok {
		return 1
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || i < 0 {
		return 1
	}
	return min(i, limit)
}

// borderSpacing returns the horizontal and vertical cell spacing.
func borderSpacing(st style.ComputedStyle) (float64, float64) {
	parts := strings.Fields(st.Value("border-spacing"))
	if len(parts) == 0 {
		return 0, 0
	}
	h := math.Max(0, style.ParseLength(parts[0], 0, st.FontSize(), 0))
	v := h
	if len(parts) > 1 {
		v = math.Max(0, style.ParseLength(parts[1], 0, st.FontSize(), 0))
	}
	return h, v
}

// cellFrame returns the border and padding of a cell. In the collapsing
// border model a cell owns half of each shared border and tables have no
// padding.
func cellFrame(g *tableGrid, st style.ComputedStyle, base float64) (Edges, Edges) {
	_, b, p := boxModel(st, base)
	if g.collapse {
		b = Edges{b.Top / 2, b.Right / 2, b.Bottom / 2, b.Left / 2}
	}
	return b, p
}

// columnIntrinsics returns the min- and max-content widths of every column
// and the percentage each column asks for, if any. Single-column cells are
// applied first; spanning cells then widen the columns they cover evenly.
func (e *Engine) columnIntrinsics(g *tableGrid) (mins, maxs, pcts []float64) {
	mins = make([]float64, g.ncols)
	maxs = make([]float64, g.ncols)
	pcts = make([]float64, g.ncols)

	contribution := func(c *tableCell) (float64, float64) {
		b, p := cellFrame(g, c.st, 0)
		frame := b.Horizontal() + p.Horizontal()
		mn := e.contentIntrinsic(c.node, c.st, minContent, 0) + frame
		mx := e.contentIntrinsic(c.node, c.st, maxContent, 0) + frame
		if w := c.st.Value("width"); c.st.Has("width") && !strings.HasSuffix(w, "%") {
			fixed := c.st.Length("width", 0, 0)
			if !isBorderBox(c.st) {
				fixed += frame
			}
			mn = math.Max(mn, fixed)
			mx = math.Max(mn, fixed)
		}
		return mn, math.Max(mn, mx)
	}

	var spanning []*tableCell
	for _, c := range g.cells {
		if c.colspan > 1 {
			spanning = append(spanning, c)
			continue
		}
		mn, mx := contribution(c)
		mins[c.col] = math.Max(mins[c.col], mn)
		maxs[c.col] = math.Max(maxs[c.col], mx)
		if w := c.st.Value("width"); strings.HasSuffix(w, "%") {
			if pct, err := strconv.ParseFloat(strings.TrimSuffix(w, "%"), 64); err == nil && pct > 0 {
				pcts[c.col] = math.Max(pcts[c.col], pct)
			}
		}
	}
	for _, c := range spanning {
		mn, mx := contribution(c)
		end := min(c.col+c.colspan, g.ncols)
		gaps := g.hgap * float64(end-c.col-1)
		var haveMin, haveMax float64
		for i := c.col; i < end; i++ {
			haveMin += mins[i]
			haveMax += maxs[i]
		}
		if extra := mn - gaps - haveMin; extra > 0 {
			for i := c.col; i < end; i++ {
				mins[i] += extra / float64(end-c.col)
			}
		}
		if extra := mx - gaps - haveMax; extra > 0 {
			for i := c.col; i < end; i++ {
				maxs[i] += extra / float64(end-c.col)
			}
		}
	}
	for i := range maxs {
		maxs[i] = math.Max(maxs[i], mins[i])
	}
	return mins, maxs, pcts
}

// distributeColumns picks column widths for the space available to the
// columns. Without a declared table width the table shrinks to its
// max-content width; with one, extra space is shared out in proportion to
// the max-content widths.
func distributeColumns(mins, maxs, pcts []float64, target float64, fill bool) []float64 {
	n := len(mins)
	widths := make([]float64, n)
	mins = append([]float64(nil), mins...)
	maxs = append([]float64(nil), maxs...)
	for i, pct := range pcts {
		if pct > 0 && !math.IsInf(target, 0) {
			w := math.Max(mins[i], target*pct/100)
			mins[i], maxs[i] = w, w
		}
	}

	var sumMin, sumMax float64
	for i := range mins {
		sumMin += mins[i]
		sumMax += maxs[i]
	}
	switch {
	case target <= sumMin:
		copy(widths, mins)
	case target <= sumMax:
		f := (target - sumMin) / (sumMax - sumMin)
		for i := range widths {
			widths[i] = mins[i] + (maxs[i]-mins[i])*f
		}
	case fill && n > 0:
		extra := target - sumMax
		for i := range widths {
			share := 1 / float64(n)
			if sumMax > 0 {
				share = maxs[i] / sumMax
			}
			widths[i] = maxs[i] + extra*share
		}
	default:
		copy(widths, maxs)
	}
	return widths
}

// tableIntrinsic returns the border-box min- and max-content widths of a table.
func (e *Engine) tableIntrinsic(n *html.Node, st style.ComputedStyle) (float64, float64) {
	g := e.buildTable(n, st)
	b, p := tableFrame(g, st, 0)
	mins, maxs, _ := e.columnIntrinsics(g)
	frame := b.Horizontal() + p.Horizontal() + g.hgap*float64(g.ncols+1)
	if g.ncols == 0 {
		frame = b.Horizontal() + p.Horizontal()
	}
	var mn, mx float64
	for i := range mins {
		mn += mins[i]
		mx += maxs[i]
	}
	mn, mx = mn+frame, mx+frame
	if w := st.Value("width"); st.Has("width") && !strings.HasSuffix(w, "%") {
		fixed := st.Length("width", 0, 0)
		mn = math.Max(mn, fixed)
		mx = mn
	}
	return mn, math.Max(mn, mx)
}

func tableFrame(g *tableGrid, st style.ComputedStyle, base float64) (Edges, Edges) {
	_, b, p := boxModel(st, base)
	if g.collapse {
		return Edges{b.Top / 2, b.Right / 2, b.Bottom / 2, b.Left / 2}, Edges{}
	}
	return b, p
}

// layoutTable lays out a table with the automatic table layout algorithm.
// The width attribute or property of a table includes its border and
// padding. Row heights are the tallest cell of each row; cells spanning rows
// stretch the last row they cover.
func (e *Engine) layoutTable(n *html.Node, st style.ComputedStyle, avail float64) *BlockBox {
	m, _, _ := boxModel(st, avail)
	g := e.buildTable(n, st)
	b, p := tableFrame(g, st, avail)
	box := &BlockBox{Node: n, Style: st, Margin: m, Border: b, Padding: p}

	gaps := 0.0
	if g.ncols > 0 {
		gaps = g.hgap * float64(g.ncols+1)
	}
	frame := b.Horizontal() + p.Horizontal()

	target := avail - m.Horizontal() - frame - gaps
	fill := false
	if st.Has("width") {
		target = st.Length("width", avail, 0) - frame - gaps
		fill = true
	}
	mins, maxs, pcts := e.columnIntrinsics(g)
	widths := distributeColumns(mins, maxs, pcts, target, fill)

	box.Width = gaps
	for _, w := range widths {
		box.Width += w
	}

	rowH := make([]float64, len(g.rows))
	for i, row := range g.rows {
		if h := definiteHeight(row.st, "height"); h > 0 {
			rowH[i] = h
		}
	}
	var spanning []*tableCell
	heights := make(map[*tableCell]float64, len(g.cells))
	for _, c := range g.cells {
		w := g.hgap * float64(c.colspan-1)
		for i := c.col; i < min(c.col+c.colspan, len(widths)); i++ {
			w += widths[i]
		}
		heights[c] = e.cellHeight(g, c, w, box.Width)
		if c.rowspan > 1 {
			spanning = append(spanning, c)
			continue
		}
		rowH[c.row] = math.Max(rowH[c.row], heights[c])
	}
	for _, c := range spanning {
		last := c.row + c.rowspan - 1
		covered := g.vgap * float64(c.rowspan-1)
		for r := c.row; r <= last; r++ {
			covered += rowH[r]
		}
		if extra := heights[c] - covered; extra > 0 {
			rowH[last] += extra
		}
	}

	content := 0.0
	if len(g.rows) > 0 {
		content = g.vgap * float64(len(g.rows)+1)
	}
	for _, h := range rowH {
		content += h
	}
	if h := definiteHeight(st, "height"); h >= 0 {
		content = math.Max(content, h-b.Vertical()-p.Vertical())
	}
	box.Height = content + b.Vertical() + p.Vertical()

	outer := box.Width + frame
	for _, c := range g.captions {
		cb := e.layoutBlockLevel(c.node, c.st, "table-caption", outer)
		box.Height += cb.OuterHeight()
	}

	box.top = marginOf(m.Top)
	box.bottom = marginOf(m.Bottom)
	return box
}

// cellHeight lays out a cell's content at the given border-box width.
func (e *Engine) cellHeight(g *tableGrid, c *tableCell, width, tableWidth float64) float64 {
	b, p := cellFrame(g, c.st, tableWidth)
	inner := math.Max(0, width-b.Horizontal()-p.Horizontal())

	var children []*html.Node
	for ch := c.node.FirstChild; ch != nil; ch = ch.NextSibling {
		children = append(children, ch)
	}
	flow := e.layoutFlow(children, c.st, inner, flowOptions{indent: c.st.Length("text-indent", inner, 0)})
	h := math.Max(flow.height, resolveHeight(c.st, flow.height, b, p))
	return h + b.Vertical() + p.Vertical()
}
