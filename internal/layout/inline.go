package layout

import (
	"strings"
	"unicode"

	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/style"
	"github.com/gompdf/pagedpreview/internal/text"
	xhtml "golang.org/x/net/html"
)

// flowBuilder walks the children of a block container and splits them into
// runs of inline content and block-level boxes, in document order. Inline
// elements that contain blocks are split around them.
type flowBuilder struct {
	e *Engine
	// width is the content width the children are laid out in
	width float64
	// base resolves percentages; it differs from width only while sizing
	// content intrinsically
	base  float64
	items []text.Item

	onRun   func(items []text.Item)
	onBlock func(n *html.Node, st style.ComputedStyle, display string)
}

func (fb *flowBuilder) flush() {
	if len(fb.items) > 0 {
		fb.onRun(fb.items)
		fb.items = nil
	}
}

func (fb *flowBuilder) addChildren(n *html.Node, st style.ComputedStyle) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		fb.addNode(c, st)
	}
}

func (fb *flowBuilder) addNode(n *html.Node, parent style.ComputedStyle) {
	switch n.Type {
	case xhtml.TextNode:
		fb.items = append(fb.items, textItem(n.Data, parent))
	case xhtml.ElementNode:
		st := fb.e.styles.Compute(n, parent)
		display := st.Display(n.Tag())
		if display == "none" || outOfFlow(st) {
			return
		}
		if isBlockLevel(display) {
			fb.flush()
			fb.onBlock(n, st, display)
			return
		}
		fb.addInline(n, st, display)
	}
}

func (fb *flowBuilder) addInline(n *html.Node, st style.ComputedStyle, display string) {
	switch tag := n.Tag(); {
	case tag == "br":
		fb.items = append(fb.items, text.Item{Kind: text.ItemBreak})
	case tag == "img":
		fb.items = append(fb.items, fb.e.imageItems(n, st, fb.base)...)
	case display == "inline-block" || display == "inline-table" || display == "inline-flex" || display == "inline-grid":
		w, h := fb.e.atomicInline(n, st, display, fb.width, fb.base)
		fb.items = append(fb.items, text.Item{Kind: text.ItemBox, Width: w, Height: h, WhiteSpace: st.WhiteSpace()})
	default:
		m, b, p := boxModel(st, fb.base)
		if start := m.Left + b.Left + p.Left; start != 0 {
			fb.items = append(fb.items, text.Item{Kind: text.ItemGlue, Width: start})
		}
		fb.addChildren(n, st)
		if end := m.Right + b.Right + p.Right; end != 0 {
			fb.items = append(fb.items, text.Item{Kind: text.ItemGlue, Width: end})
		}
	}
}

func isBlockLevel(display string) bool {
	switch display {
	case "block", "list-item", "table", "flow-root", "flex", "grid",
		"table-row-group", "table-header-group", "table-footer-group",
		"table-row", "table-cell", "table-caption":
		return true
	}
	return false
}

func textItem(s string, st style.ComputedStyle) text.Item {
	return text.Item{
		Kind:       text.ItemText,
		Text:       transform(s, st.Value("text-transform")),
		Font:       fontOf(st),
		LineHeight: st.LineHeight(),
		WhiteSpace: st.WhiteSpace(),
		TabSize:    st.TabSize(),
	}
}

// fontOf maps a computed style onto a core font.
func fontOf(st style.ComputedStyle) text.Font {
	fs := strings.ToLower(st.Value("font-style"))
	return text.Font{
		Family: text.ResolveFamily(st.Value("font-family")),
		Bold:   text.IsBoldWeight(st.Value("font-weight")),
		Italic: fs == "italic" || fs == "oblique",
		Size:   st.FontSize(),
	}
}

func transform(s, mode string) string {
	switch strings.ToLower(mode) {
	case "uppercase":
		return strings.ToUpper(s)
	case "lowercase":
		return strings.ToLower(s)
	case "capitalize":
		prev := ' '
		return strings.Map(func(r rune) rune {
			out := r
			if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) && prev != '\'' {
				out = unicode.ToTitle(r)
			}
			prev = r
			return out
		}, s)
	}
	return s
}

// lineBlock describes the container a run of lines is laid out in.
func lineBlock(st style.ComputedStyle, width, indent float64) text.Block {
	return text.Block{Width: width, FontSize: st.FontSize(), LineHeight: st.LineHeight(), Indent: indent}
}
