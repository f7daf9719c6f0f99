package layout

import (
	"math"
	"strings"

	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/style"
	"github.com/gompdf/pagedpreview/internal/text"
)

// BlockBox represents a block-level box in the layout
type BlockBox struct {
	Node  *html.Node
	Style style.ComputedStyle
	// Width is the content width
	Width float64
	// Height is the border-box height
	Height  float64
	Margin  Edges
	Border  Edges
	Padding Edges

	top     margin
	bottom  margin
	through bool
}

// GetNode returns the HTML node associated with this box
func (b *BlockBox) GetNode() *html.Node { return b.Node }

// GetHeight returns the border-box height
func (b *BlockBox) GetHeight() float64 { return b.Height }

// GetMarginTop returns the top margin collapsed with any adjoining child margins
func (b *BlockBox) GetMarginTop() margin { return b.top }

// GetMarginBottom returns the bottom margin collapsed with any adjoining child margins
func (b *BlockBox) GetMarginBottom() margin { return b.bottom }

// CollapsesThrough reports whether the box is empty and its margins join
func (b *BlockBox) CollapsesThrough() bool { return b.through }

// OuterHeight is the height of the box with its margins, as measured inside
// a container that does not collapse with it.
func (b *BlockBox) OuterHeight() float64 {
	if b.through {
		m := b.top
		m.join(b.bottom)
		return math.Max(0, m.value())
	}
	return math.Max(0, b.top.value()+b.Height+b.bottom.value())
}

// flowOptions control how a block container's content edges interact with
// the margins of its children.
type flowOptions struct {
	collapseTop    bool
	collapseBottom bool
	// indent is the first line indent
	indent float64
	// prefix is inline content placed before the children, such as a marker
	prefix []text.Item
	// strut forces at least one line even without content
	strut bool
}

type flowResult struct {
	height float64
	top    margin
	bottom margin
	empty  bool
}

// piece is one entry of a block container's flow: a run of lines or a box.
type piece struct {
	box    Box
	height float64
}

// layoutFlow lays out nodes as the children of a block container with the
// given style and content width, collapsing the margins of adjoining boxes.
func (e *Engine) layoutFlow(nodes []*html.Node, st style.ComputedStyle, width float64, opts flowOptions) flowResult {
	var pieces []piece
	fb := &flowBuilder{e: e, width: width, base: width}
	fb.onRun = func(items []text.Item) {
		indent := 0.0
		if len(pieces) == 0 {
			indent = opts.indent
		}
		lines := e.shaper.Lines(items, lineBlock(st, width, indent))
		if len(lines) == 0 {
			return
		}
		h := 0.0
		for _, l := range lines {
			h += l.Height
		}
		pieces = append(pieces, piece{height: h})
	}
	fb.onBlock = func(n *html.Node, cst style.ComputedStyle, display string) {
		pieces = append(pieces, piece{box: e.layoutBlockLevel(n, cst, display, width)})
	}

	fb.items = append(fb.items, opts.prefix...)
	for _, n := range nodes {
		fb.addNode(n, st)
	}
	fb.flush()

	if opts.strut && len(pieces) == 0 {
		pieces = append(pieces, piece{height: st.LineHeight()})
	}

	var (
		res     flowResult
		y       float64
		pending margin
		first   = true
	)
	place := func(h float64) {
		if first && opts.collapseTop {
			res.top.join(pending)
		} else {
			y += pending.value()
		}
		first = false
		pending = margin{}
		y += h
	}
	for _, pc := range pieces {
		if pc.box == nil {
			place(pc.height)
			continue
		}
		pending.join(pc.box.GetMarginTop())
		if pc.box.CollapsesThrough() {
			pending.join(pc.box.GetMarginBottom())
			continue
		}
		place(pc.box.GetHeight())
		pending = pc.box.GetMarginBottom()
	}

	switch {
	case first && opts.collapseTop:
		res.top.join(pending)
	case opts.collapseBottom:
		res.bottom.join(pending)
	default:
		y += pending.value()
	}
	res.empty = first
	res.height = math.Max(0, y)
	return res
}

// layoutBlockLevel lays out a block-level element in a container of the given
// content width.
func (e *Engine) layoutBlockLevel(n *html.Node, st style.ComputedStyle, display string, avail float64) *BlockBox {
	switch {
	case display == "table":
		return e.layoutTable(n, st, avail)
	case n.Tag() == "img":
		return e.layoutBlockImage(n, st, avail)
	}

	m, b, p := boxModel(st, avail)
	box := &BlockBox{Node: n, Style: st, Margin: m, Border: b, Padding: p}
	box.Width = contentWidth(st, avail, m, b, p)

	bfc := establishesContext(st, display)
	fixedHeight := definiteHeight(st, "height") >= 0
	opts := flowOptions{
		collapseTop:    !bfc && b.Top == 0 && p.Top == 0,
		collapseBottom: !bfc && b.Bottom == 0 && p.Bottom == 0 && !fixedHeight,
		indent:         st.Length("text-indent", box.Width, 0),
	}
	if display == "list-item" {
		e.applyMarker(n, st, &opts)
	}

	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	flow := e.layoutFlow(children, st, box.Width, opts)

	contentH := resolveHeight(st, flow.height, b, p)
	box.Height = contentH + b.Vertical() + p.Vertical()

	box.top = marginOf(m.Top)
	if opts.collapseTop {
		box.top.join(flow.top)
	}
	box.bottom = marginOf(m.Bottom)
	if opts.collapseBottom {
		box.bottom.join(flow.bottom)
	}
	box.through = flow.empty && opts.collapseTop && opts.collapseBottom && box.Height == 0
	return box
}

// contentWidth resolves the content width of a block in a container of
// width avail.
func contentWidth(st style.ComputedStyle, avail float64, m, b, p Edges) float64 {
	extra := b.Horizontal() + p.Horizontal()
	resolve := func(name string, def float64) float64 {
		v := st.Length(name, avail, def)
		if isBorderBox(st) {
			v -= extra
		}
		return v
	}

	w := avail - m.Horizontal() - extra
	if st.Has("width") {
		w = resolve("width", w+extra)
	}
	if st.Has("max-width") {
		w = math.Min(w, resolve("max-width", math.Inf(1)))
	}
	if st.Has("min-width") {
		w = math.Max(w, resolve("min-width", 0))
	}
	return math.Max(0, w)
}

// definiteHeight returns a non-percentage length or -1. Percentages of an
// auto-height container behave as auto.
func definiteHeight(st style.ComputedStyle, name string) float64 {
	if !st.Has(name) || strings.HasSuffix(st.Value(name), "%") {
		return -1
	}
	v := st.Length(name, 0, -1)
	if v < 0 {
		return -1
	}
	return v
}

// resolveHeight applies height, min-height and max-height to an auto content
// height.
func resolveHeight(st style.ComputedStyle, auto float64, b, p Edges) float64 {
	toContent := func(v float64) float64 {
		if isBorderBox(st) {
			v -= b.Vertical() + p.Vertical()
		}
		return math.Max(0, v)
	}
	h := auto
	if v := definiteHeight(st, "height"); v >= 0 {
		h = toContent(v)
	}
	if v := definiteHeight(st, "max-height"); v >= 0 {
		h = math.Min(h, toContent(v))
	}
	if v := definiteHeight(st, "min-height"); v >= 0 {
		h = math.Max(h, toContent(v))
	}
	return h
}
