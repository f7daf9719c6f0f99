package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedpreview/internal/geometry"
)

// Courier advances every cp1252 glyph by 600/1000 em, which keeps the
// expected widths in these tests exact: 6px per character at 10px.
var courier10 = Font{Family: "Courier", Size: 10}

func newShaper(t *testing.T) *TextShaper {
	t.Helper()
	m, err := NewMetrics()
	require.NoError(t, err)
	return NewTextShaper(m)
}

func textItem(s string, ws geometry.WhiteSpace) Item {
	return Item{Kind: ItemText, Text: s, Font: courier10, LineHeight: 15, WhiteSpace: ws, TabSize: 4}
}

func block(width float64) Block {
	return Block{Width: width, FontSize: 10, LineHeight: 15}
}

func widths(lines []Line) []float64 {
	out := make([]float64, len(lines))
	for i, l := range lines {
		out[i] = l.Width
	}
	return out
}

func TestMetricsWidth(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	assert.InDelta(t, 18.0, m.Width("abc", courier10), 1e-9)
	assert.InDelta(t, 20.0, m.Width("日本", courier10), 1e-9, "wide runes are one em")
	assert.InDelta(t, 6.0, m.Width("é", courier10), 1e-9)
	assert.InDelta(t, 6.0, m.Width("e\u0301", courier10), 1e-9, "NFC composes the accent")
	assert.InDelta(t, 6.0, m.Width("Ω", courier10), 1e-9, "unencodable runes measure as ?")
	assert.Zero(t, m.Width("", courier10))

	bold := Font{Family: "Helvetica", Bold: true, Size: 10}
	regular := Font{Family: "Helvetica", Size: 10}
	assert.Greater(t, m.Width("Hello", bold), m.Width("Hello", regular))

	unknown := Font{Family: "Nope", Size: 10}
	assert.Positive(t, m.Width("x", unknown))
}

func TestResolveFamily(t *testing.T) {
	tests := map[string]string{
		"Arial, sans-serif":    "Helvetica",
		`"Times New Roman"`:    "Times",
		"'Courier New', mono":  "Courier",
		"Fancy, monospace":     "Courier",
		"UnknownFace":          "Times",
		"  Georgia , serif   ": "Times",
	}
	for in, want := range tests {
		assert.Equal(t, want, ResolveFamily(in), in)
	}
	assert.Equal(t, "BI", Font{Bold: true, Italic: true}.Style())
	assert.True(t, IsBoldWeight("700"))
	assert.False(t, IsBoldWeight("normal"))
}

func TestLinesWrapNormal(t *testing.T) {
	s := newShaper(t)
	items := []Item{textItem("aaa bbb ccc", geometry.WhiteSpaceNormal)}

	lines := s.Lines(items, block(70))
	assert.Equal(t, []float64{66}, widths(lines))

	lines = s.Lines(items, block(60))
	assert.Equal(t, []float64{42, 18}, widths(lines))
	for _, l := range lines {
		assert.Equal(t, 15.0, l.Height)
		assert.False(t, l.Forced)
	}
}

func TestLinesCollapseSpaces(t *testing.T) {
	s := newShaper(t)
	lines := s.Lines([]Item{textItem("  aaa  \n  bbb  ", geometry.WhiteSpaceNormal)}, block(500))
	assert.Equal(t, []float64{42}, widths(lines))

	// collapsing continues across items
	lines = s.Lines([]Item{
		textItem("aaa ", geometry.WhiteSpaceNormal),
		textItem(" bbb", geometry.WhiteSpaceNormal),
	}, block(500))
	assert.Equal(t, []float64{42}, widths(lines))

	assert.Empty(t, s.Lines([]Item{textItem(" \n\t ", geometry.WhiteSpaceNormal)}, block(500)))
	assert.Empty(t, s.Lines(nil, block(500)))
}

func TestLinesPreserveNewlines(t *testing.T) {
	s := newShaper(t)

	lines := s.Lines([]Item{textItem("aaa bbb\nccc", geometry.WhiteSpacePre)}, block(10))
	require.Len(t, lines, 2)
	assert.Equal(t, 42.0, lines[0].Width, "pre never wraps")
	assert.True(t, lines[0].Forced)

	assert.Len(t, s.Lines([]Item{textItem("aaa\n", geometry.WhiteSpacePre)}, block(100)), 1,
		"a trailing newline opens no line")
	assert.Len(t, s.Lines([]Item{textItem("\n\n", geometry.WhiteSpacePre)}, block(100)), 2)

	lines = s.Lines([]Item{textItem("aaa   bbb  \n   ccc", geometry.WhiteSpacePreLine)}, block(500))
	assert.Equal(t, []float64{42, 18}, widths(lines))

	lines = s.Lines([]Item{textItem("aaa bbb ccc", geometry.WhiteSpaceNoWrap)}, block(10))
	assert.Equal(t, []float64{66}, widths(lines))
}

func TestLinesPreWrapHangsSpaces(t *testing.T) {
	s := newShaper(t)
	lines := s.Lines([]Item{textItem("aaa   bbb", geometry.WhiteSpacePreWrap)}, block(40))
	assert.Equal(t, []float64{18, 18}, widths(lines))

	lines = s.Lines([]Item{textItem("a  b", geometry.WhiteSpacePreWrap)}, block(500))
	assert.Equal(t, []float64{24}, widths(lines), "preserved spaces keep their width")
}

func TestLinesTabStops(t *testing.T) {
	s := newShaper(t)
	// tab size 4 at 6px per space puts stops every 24px
	lines := s.Lines([]Item{textItem("a\tb", geometry.WhiteSpacePre)}, block(500))
	assert.Equal(t, []float64{30}, widths(lines))

	lines = s.Lines([]Item{textItem("abcd\tb", geometry.WhiteSpacePre)}, block(500))
	assert.Equal(t, []float64{54}, widths(lines))

	lines = s.Lines([]Item{textItem("a\tb", geometry.WhiteSpaceNormal)}, block(500))
	assert.Equal(t, []float64{18}, widths(lines), "tabs collapse to a space")
}

func TestLinesForcedBreaks(t *testing.T) {
	s := newShaper(t)
	br := Item{Kind: ItemBreak}

	lines := s.Lines([]Item{textItem("a", geometry.WhiteSpaceNormal), br, textItem(" b", geometry.WhiteSpaceNormal)}, block(500))
	assert.Equal(t, []float64{6, 6}, widths(lines))

	assert.Len(t, s.Lines([]Item{textItem("a", geometry.WhiteSpaceNormal), br}, block(500)), 1)

	lines = s.Lines([]Item{br}, block(500))
	require.Len(t, lines, 1)
	assert.Equal(t, 15.0, lines[0].Height, "an empty line still has the strut")
}

func TestLinesBoxesAndMixedFonts(t *testing.T) {
	s := newShaper(t)

	img := Item{Kind: ItemBox, Width: 50, Height: 100, WhiteSpace: geometry.WhiteSpaceNormal}
	lines := s.Lines([]Item{img}, block(500))
	require.Len(t, lines, 1)
	assert.InDelta(t, 104.5, lines[0].Height, 1e-9, "box on the baseline plus strut descent")

	lines = s.Lines([]Item{textItem("aaaa", geometry.WhiteSpaceNormal), img}, block(60))
	assert.Len(t, lines, 2, "boxes offer break opportunities")

	big := Item{Kind: ItemText, Text: "B", Font: Font{Family: "Courier", Size: 20}, LineHeight: 30, WhiteSpace: geometry.WhiteSpaceNormal}
	lines = s.Lines([]Item{textItem("a ", geometry.WhiteSpaceNormal), big}, block(500))
	require.Len(t, lines, 1)
	assert.InDelta(t, 30.0, lines[0].Height, 1e-9)

	glue := Item{Kind: ItemGlue, Width: 5}
	lines = s.Lines([]Item{textItem("aa", geometry.WhiteSpaceNormal), glue, textItem("b", geometry.WhiteSpaceNormal)}, block(500))
	assert.Equal(t, []float64{23}, widths(lines))
}

func TestLinesBreakOpportunities(t *testing.T) {
	s := newShaper(t)

	lines := s.Lines([]Item{textItem("well-known", geometry.WhiteSpaceNormal)}, block(40))
	assert.Equal(t, []float64{30, 30}, widths(lines))

	lines = s.Lines([]Item{textItem("日本語", geometry.WhiteSpaceNormal)}, block(25))
	assert.Equal(t, []float64{20, 10}, widths(lines))

	// words glued across items do not break
	lines = s.Lines([]Item{textItem("aaa", geometry.WhiteSpaceNormal), textItem("bbb", geometry.WhiteSpaceNormal)}, block(20))
	assert.Equal(t, []float64{36}, widths(lines))
}

func TestContentWidths(t *testing.T) {
	s := newShaper(t)
	items := []Item{textItem("aaa bbbbb", geometry.WhiteSpaceNormal)}
	assert.Equal(t, 30.0, s.MinContentWidth(items, block(0)))
	assert.Equal(t, 54.0, s.MaxContentWidth(items, block(0)))
}

func TestHeightAndIndent(t *testing.T) {
	s := newShaper(t)
	items := []Item{textItem("aaa bbb", geometry.WhiteSpaceNormal)}
	assert.Equal(t, 15.0, s.Height(items, block(42)))

	b := block(42)
	b.Indent = 10
	assert.Equal(t, 30.0, s.Height(items, b), "the indent pushes the second word down")
}
