package layout

import (
	"math"
	"strings"

	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/style"
	"github.com/gompdf/pagedpreview/internal/text"
)

// imageSize resolves the content size of an <img> laid out in a container of
// width avail. CSS sizes win over the width and height attributes; a missing
// dimension follows the natural aspect ratio. ok is false when neither the
// markup nor the resource gives a size.
func (e *Engine) imageSize(n *html.Node, st style.ComputedStyle, avail float64) (w, h float64, ok bool) {
	w, h = -1, -1
	if st.Has("width") {
		w = st.Length("width", avail, -1)
	} else if v, found := n.Attribute("width"); found {
		w = style.ParseLength(v, avail, st.FontSize(), -1)
	}
	if v := definiteHeight(st, "height"); v >= 0 {
		h = v
	} else if v, found := n.Attribute("height"); found && !strings.HasSuffix(strings.TrimSpace(v), "%") {
		h = style.ParseLength(v, 0, st.FontSize(), -1)
	}

	var natW, natH float64
	if w < 0 || h < 0 {
		src, _ := n.Attribute("src")
		if e.images != nil && strings.TrimSpace(src) != "" {
			if size, err := e.images.ImageSize(strings.TrimSpace(src)); err == nil && size.Width > 0 && size.Height > 0 {
				natW, natH = size.Width, size.Height
			}
		}
	}

	switch {
	case w >= 0 && h >= 0:
	case natW == 0:
		return 0, 0, false
	case w >= 0:
		h = w * natH / natW
	case h >= 0:
		w = h * natW / natH
	default:
		w, h = natW, natH
	}

	// max and min constraints keep the aspect ratio
	if st.Has("max-width") {
		if mx := st.Length("max-width", avail, math.Inf(1)); w > mx && w > 0 {
			h *= mx / w
			w = mx
		}
	}
	if mx := definiteHeight(st, "max-height"); mx >= 0 && h > mx && h > 0 {
		w *= mx / h
		h = mx
	}
	if st.Has("min-width") {
		w = math.Max(w, st.Length("min-width", avail, 0))
	}
	if mn := definiteHeight(st, "min-height"); mn >= 0 {
		h = math.Max(h, mn)
	}
	return w, h, true
}

// imageItems returns the inline content for an <img>: an atomic box sized by
// its margin box, or the alt text when the image has no size.
func (e *Engine) imageItems(n *html.Node, st style.ComputedStyle, avail float64) []text.Item {
	w, h, ok := e.imageSize(n, st, avail)
	if !ok {
		if alt, _ := n.Attribute("alt"); strings.TrimSpace(alt) != "" {
			return []text.Item{textItem(alt, st)}
		}
		return nil
	}
	m, b, p := boxModel(st, avail)
	return []text.Item{{
		Kind:       text.ItemBox,
		Width:      w + m.Horizontal() + b.Horizontal() + p.Horizontal(),
		Height:     h + m.Vertical() + b.Vertical() + p.Vertical(),
		WhiteSpace: st.WhiteSpace(),
	}}
}

// layoutBlockImage lays out an image with a block-level display.
func (e *Engine) layoutBlockImage(n *html.Node, st style.ComputedStyle, avail float64) *BlockBox {
	m, b, p := boxModel(st, avail)
	box := &BlockBox{Node: n, Style: st, Margin: m, Border: b, Padding: p}
	w, h, ok := e.imageSize(n, st, avail-m.Horizontal()-b.Horizontal()-p.Horizontal())
	if !ok {
		// the alt text is shown in a line of its own
		if alt, _ := n.Attribute("alt"); strings.TrimSpace(alt) != "" {
			h = e.shaper.Height([]text.Item{textItem(alt, st)}, lineBlock(st, avail, 0))
		}
	}
	box.Width = w
	box.Height = h + b.Vertical() + p.Vertical()
	box.top = marginOf(m.Top)
	box.bottom = marginOf(m.Bottom)
	return box
}
