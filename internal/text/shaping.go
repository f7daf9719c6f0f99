package text

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/gompdf/pagedpreview/internal/geometry"
)

// ItemKind classifies a piece of inline content.
type ItemKind int

const (
	// ItemText is a run of text sharing one font
	ItemText ItemKind = iota
	// ItemBox is an atomic inline such as an image
	ItemBox
	// ItemBreak is a forced line break
	ItemBreak
	// ItemGlue is horizontal space without a break opportunity, such as the
	// padding of an inline element
	ItemGlue
)

// Item is one piece of inline content in document order.
type Item struct {
	Kind       ItemKind
	Text       string
	Font       Font
	LineHeight float64
	WhiteSpace geometry.WhiteSpace
	TabSize    int
	// Width and Height size boxes and glue
	Width  float64
	Height float64
}

// Block carries the properties of the containing block that apply to every
// line: the available width, the strut font and the first line indent.
type Block struct {
	Width      float64
	FontSize   float64
	LineHeight float64
	Indent     float64
}

// Line is one laid out line box.
type Line struct {
	Width  float64
	Height float64
	// Forced is set when the line was ended by a preserved newline or <br>
	Forced bool
}

// TextShaper breaks inline content into lines following the CSS white-space
// rules: collapsing, preserved newlines, tab stops and soft wrapping.
type TextShaper struct {
	metrics *Metrics
}

// NewTextShaper creates a new text shaper
func NewTextShaper(m *Metrics) *TextShaper {
	return &TextShaper{metrics: m}
}

type segKind int

const (
	segWord segKind = iota
	segSpace
	segTab
	segBreak
	segBox
	segGlue
)

type segment struct {
	kind   segKind
	width  float64
	asc    float64
	desc   float64
	wraps  bool
	tab    float64 // tab stop interval
	hangs  bool    // collapsible space, removed at line edges
	before bool    // break opportunity before the segment
	after  bool    // break opportunity after the segment
}

// Lines lays items out into line boxes.
func (s *TextShaper) Lines(items []Item, b Block) []Line {
	segs := s.segment(items)
	strutAsc, strutDesc := metricsFor(b.FontSize, b.LineHeight)

	var (
		lines      []Line
		width      = b.Indent
		pending    float64
		asc, desc  = strutAsc, strutDesc
		hasContent bool
	)
	finish := func(forced bool) {
		lines = append(lines, Line{Width: width, Height: asc + desc, Forced: forced})
		width, pending = 0, 0
		asc, desc = strutAsc, strutDesc
		hasContent = false
	}
	grow := func(sg segment) {
		asc = math.Max(asc, sg.asc)
		desc = math.Max(desc, sg.desc)
	}

	for i := 0; i < len(segs); i++ {
		sg := segs[i]
		switch sg.kind {
		case segBreak:
			finish(true)
		case segSpace:
			if sg.hangs {
				if hasContent {
					pending += sg.width
				}
				continue
			}
			// preserved spaces are content and hang at a soft wrap
			pending += sg.width
			hasContent = true
			grow(sg)
		case segTab:
			if sg.tab <= 0 {
				continue
			}
			x := width + pending
			stop := (math.Floor(x/sg.tab) + 1) * sg.tab
			pending += stop - x
			hasContent = true
			grow(sg)
		default:
			// gather the glued unit starting at i
			j := i
			unit := 0.0
			uasc, udesc := 0.0, 0.0
			wraps, seen := false, false
			for ; j < len(segs); j++ {
				cur := segs[j]
				if cur.kind != segWord && cur.kind != segBox && cur.kind != segGlue {
					break
				}
				if j > i && (cur.before || segs[j-1].after) {
					break
				}
				if cur.kind != segGlue && !seen {
					wraps, seen = cur.wraps, true
				}
				unit += cur.width
				uasc = math.Max(uasc, cur.asc)
				udesc = math.Max(udesc, cur.desc)
			}
			if hasContent && wraps && width+pending+unit > b.Width+epsilon {
				finish(false)
			}
			width += pending + unit
			pending = 0
			asc = math.Max(asc, uasc)
			desc = math.Max(desc, udesc)
			hasContent = true
			i = j - 1
		}
	}
	if hasContent {
		finish(false)
	}
	return lines
}

// epsilon absorbs float noise when a run exactly fills the line.
const epsilon = 1e-6

// Height returns the total height of the laid out lines.
func (s *TextShaper) Height(items []Item, b Block) float64 {
	h := 0.0
	for _, l := range s.Lines(items, b) {
		h += l.Height
	}
	return h
}

// MaxContentWidth is the width of the widest line when only forced breaks
// end lines.
func (s *TextShaper) MaxContentWidth(items []Item, b Block) float64 {
	b.Width = math.Inf(1)
	return widest(s.Lines(items, b))
}

// MinContentWidth is the width of the widest unbreakable unit.
func (s *TextShaper) MinContentWidth(items []Item, b Block) float64 {
	b.Width = 0
	return widest(s.Lines(items, b))
}

func widest(lines []Line) float64 {
	w := 0.0
	for _, l := range lines {
		w = math.Max(w, l.Width)
	}
	return w
}

// metricsFor splits a line height into ascent and descent around the
// baseline using the half-leading model with a 0.8/0.2 em font box.
func metricsFor(size, lineHeight float64) (float64, float64) {
	if size <= 0 {
		return 0, 0
	}
	half := (lineHeight - size) / 2
	return 0.8*size + half, 0.2*size + half
}

// segment converts items into measured segments, applying white-space
// processing. Collapsible spaces collapse across item boundaries.
func (s *TextShaper) segment(items []Item) []segment {
	var (
		segs      []segment
		collapsed = true // at line start, a collapsible space is dropped
	)
	for _, it := range items {
		switch it.Kind {
		case ItemBreak:
			segs = append(segs, segment{kind: segBreak})
			collapsed = true
		case ItemBox:
			segs = append(segs, segment{
				kind: segBox, width: it.Width, asc: it.Height,
				wraps: it.WhiteSpace.Wraps(), before: true, after: true,
			})
			collapsed = false
		case ItemGlue:
			segs = append(segs, segment{kind: segGlue, width: it.Width})
		case ItemText:
			segs, collapsed = s.segmentText(segs, it, collapsed)
		}
	}
	return segs
}

func (s *TextShaper) segmentText(segs []segment, it Item, collapsed bool) ([]segment, bool) {
	ws := it.WhiteSpace
	if ws == "" {
		ws = geometry.WhiteSpaceNormal
	}
	asc, desc := metricsFor(it.Font.Size, it.LineHeight)
	spaceW := s.metrics.Width(" ", it.Font)
	tabSize := it.TabSize
	if tabSize <= 0 {
		tabSize = 8
	}
	wraps := ws.Wraps()

	text := strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", " ").Replace(it.Text)
	if ws.CollapsesSpaces() {
		text = strings.ReplaceAll(text, "\t", " ")
	}
	if !ws.PreservesNewlines() {
		text = strings.ReplaceAll(text, "\n", " ")
	} else if ws == geometry.WhiteSpacePreLine {
		text = trimAroundNewlines(text)
	}

	var word strings.Builder
	flush := func(after bool) {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		segs = append(segs, segment{
			kind: segWord, width: s.metrics.Width(w, it.Font),
			asc: asc, desc: desc, wraps: wraps, after: after,
		})
		word.Reset()
	}

	for i, r := range text {
		switch r {
		case '\n':
			flush(false)
			segs = append(segs, segment{kind: segBreak})
			collapsed = true
		case ' ':
			flush(false)
			if ws.CollapsesSpaces() {
				if collapsed {
					continue
				}
				segs = append(segs, segment{kind: segSpace, width: spaceW, hangs: true})
				collapsed = true
				continue
			}
			segs = append(segs, segment{kind: segSpace, width: spaceW, asc: asc, desc: desc})
		case '\t':
			flush(false)
			segs = append(segs, segment{kind: segTab, tab: float64(tabSize) * spaceW, asc: asc, desc: desc})
		default:
			collapsed = false
			if wraps && IsWide(r) {
				flush(true)
				segs = append(segs, segment{
					kind: segWord, width: s.metrics.Width(string(r), it.Font),
					asc: asc, desc: desc, wraps: true, before: true, after: true,
				})
				continue
			}
			word.WriteRune(r)
			// allow a break after a hyphen inside a word
			if wraps && r == '-' && word.Len() > 1 {
				if next, _ := utf8.DecodeRuneInString(text[i+1:]); next != utf8.RuneError && next != ' ' && next != '-' {
					flush(true)
				}
			}
		}
	}
	flush(false)
	return segs, collapsed
}

// trimAroundNewlines removes the spaces and tabs that pre-line collapses
// away next to a segment break.
func trimAroundNewlines(s string) string {
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		if i > 0 {
			p = strings.TrimLeft(p, " \t")
		}
		if i < len(parts)-1 {
			p = strings.TrimRight(p, " \t")
		}
		parts[i] = p
	}
	return strings.Join(parts, "\n")
}
