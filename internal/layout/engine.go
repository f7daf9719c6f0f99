package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/style"
	"github.com/gompdf/pagedpreview/internal/text"
	xhtml "golang.org/x/net/html"
)

// Engine lays out top-level blocks inside a page content box and reports
// their heights. It implements the CSS block and inline formatting model
// closely enough to predict browser heights for rich text: margin collapsing,
// the white-space modes, lists, tables and images.
type Engine struct {
	styles *style.StyleEngine
	shaper *text.TextShaper
	images ImageProber

	// root is the style of the content box
	root  style.ComputedStyle
	width float64
}

// NewEngine creates a layout engine for a content box of the given width.
// styles must address the content box as body; see style.NewPageStyleEngine.
// images may be nil, in which case images without a declared size fall back
// to their alt text.
func NewEngine(styles *style.StyleEngine, shaper *text.TextShaper, images ImageProber, width float64) *Engine {
	body := &html.Node{Type: xhtml.ElementNode, Data: "body"}
	return &Engine{
		styles: styles,
		shaper: shaper,
		images: images,
		root:   styles.Compute(body, nil),
		width:  width,
	}
}

// Width returns the content width blocks are laid out in.
func (e *Engine) Width() float64 { return e.width }

// MeasureBlock returns the outer height of a block laid out as the only child
// of a flow-root content box: its margins are included and never collapse
// with anything outside the block.
func (e *Engine) MeasureBlock(b *html.Block) (float64, error) {
	if b == nil {
		return 0, fmt.Errorf("%w: nil block", ErrMeasurement)
	}
	flow := e.layoutFlow(b.Nodes, e.root, e.width, flowOptions{})
	h := flow.height
	if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
		return 0, fmt.Errorf("%w: block %d <%s> has height %v", ErrMeasurement, b.Index, b.Tag, h)
	}
	return h, nil
}

// LayoutBlock lays out a single element as a block in a container of the
// given width.
func (e *Engine) LayoutBlock(n *html.Node, width float64) *BlockBox {
	st := e.styles.Compute(n, e.root)
	display := st.Display(n.Tag())
	if !isBlockLevel(display) {
		display = "block"
	}
	return e.layoutBlockLevel(n, st, display, width)
}

type sizing int

const (
	minContent sizing = iota
	maxContent
)

// intrinsicWidth returns the min- or max-content border-box width of a
// block-level element.
func (e *Engine) intrinsicWidth(n *html.Node, st style.ComputedStyle, display string, mode sizing) float64 {
	if display == "table" || display == "inline-table" {
		mn, mx := e.tableIntrinsic(n, st)
		if mode == minContent {
			return mn
		}
		return mx
	}

	_, b, p := boxModel(st, 0)
	frame := b.Horizontal() + p.Horizontal()

	if n.Tag() == "img" {
		w, _, ok := e.imageSize(n, st, 0)
		if !ok {
			return frame
		}
		return w + frame
	}
	if w := st.Value("width"); st.Has("width") && !strings.HasSuffix(w, "%") {
		fixed := st.Length("width", 0, 0)
		if isBorderBox(st) {
			return fixed
		}
		return fixed + frame
	}
	return e.contentIntrinsic(n, st, mode, 0) + frame
}

// contentIntrinsic returns the min- or max-content width of an element's
// children. Percentages resolve against base.
func (e *Engine) contentIntrinsic(n *html.Node, st style.ComputedStyle, mode sizing, base float64) float64 {
	avail := 0.0
	if mode == maxContent {
		avail = math.Inf(1)
	}

	widest := 0.0
	fb := &flowBuilder{e: e, width: avail, base: base}
	first := true
	fb.onRun = func(items []text.Item) {
		indent := 0.0
		if first {
			indent = st.Length("text-indent", base, 0)
		}
		first = false
		blk := lineBlock(st, avail, indent)
		var w float64
		if mode == minContent {
			w = e.shaper.MinContentWidth(items, blk)
		} else {
			w = e.shaper.MaxContentWidth(items, blk)
		}
		widest = math.Max(widest, w)
	}
	fb.onBlock = func(cn *html.Node, cst style.ComputedStyle, display string) {
		first = false
		m, _, _ := boxModel(cst, base)
		w := e.intrinsicWidth(cn, cst, display, mode) + math.Max(0, m.Horizontal())
		widest = math.Max(widest, w)
	}

	if st.Display(n.Tag()) == "list-item" {
		var opts flowOptions
		e.applyMarker(n, st, &opts)
		fb.items = append(fb.items, opts.prefix...)
	}
	fb.addChildren(n, st)
	fb.flush()
	return widest
}

// atomicInline lays out an inline-block or inline-table and returns the width
// and height of its margin box. Without a declared width the box shrinks to
// fit its content.
func (e *Engine) atomicInline(n *html.Node, st style.ComputedStyle, display string, avail, base float64) (float64, float64) {
	m, _, _ := boxModel(st, base)

	var box *BlockBox
	switch {
	case display == "inline-table":
		box = e.layoutTable(n, st, math.Min(avail, e.width))
	case st.Has("width"):
		box = e.layoutBlockLevel(n, st, display, base)
	default:
		fit := avail - m.Horizontal()
		mn := e.intrinsicWidth(n, st, display, minContent)
		mx := e.intrinsicWidth(n, st, display, maxContent)
		bw := math.Min(math.Max(mn, fit), mx)
		box = e.layoutBlockLevel(n, st, display, bw+m.Horizontal())
	}

	w := box.Width + box.Border.Horizontal() + box.Padding.Horizontal() + m.Horizontal()
	h := box.Height + m.Vertical()
	return math.Max(0, w), math.Max(0, h)
}
