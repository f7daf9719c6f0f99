package layout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/res"
)

// Courier 10px on a 1.5 line height gives 6px per character and 15px lines;
// a 120px content box holds 20 characters.
func testGeometry() geometry.Geometry {
	return geometry.Geometry{
		PageWidth:  120,
		PageHeight: 1000,
		WhiteSpace: geometry.WhiteSpaceNormal,
		TabSize:    8,
		Font:       geometry.Font{Family: "Courier", Size: 10, LineHeight: 1.5},
	}
}

type fakeImages map[string]res.Size

func (f fakeImages) ImageSize(src string) (res.Size, error) {
	if s, ok := f[src]; ok {
		return s, nil
	}
	return res.Size{}, errors.New("not found")
}

func measureAll(t *testing.T, g geometry.Geometry, markup string, author ...string) []int {
	t.Helper()
	doc, err := html.NewParser().ParseString(markup)
	require.NoError(t, err)

	s, err := NewMetricsSurface(fakeImages{"logo.png": {Width: 40, Height: 20}})
	require.NoError(t, err)
	pass, err := s.Begin(context.Background(), g, append(doc.Styles, author...))
	require.NoError(t, err)
	defer pass.Close()

	var out []int
	for _, b := range doc.Blocks {
		h, err := pass.Measure(context.Background(), b)
		require.NoError(t, err)
		out = append(out, h)
	}
	return out
}

func measureOne(t *testing.T, markup string, author ...string) int {
	t.Helper()
	hs := measureAll(t, testGeometry(), markup, author...)
	require.Len(t, hs, 1, markup)
	return hs[0]
}

func TestMeasureBlocks(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   int
	}{
		{"paragraph with margins", `<p>hello</p>`, 35},
		{"wrapped paragraph", `<p>aaaa bbbb cccc dddd eeee</p>`, 50},
		{"heading", `<h1>Title</h1>`, 57},
		{"preformatted lines", "<pre>aaa\nbbb\nccc</pre>", 65},
		{"line break", `<p>a<br>b</p>`, 50},
		{"anonymous inline content", `Hello <b>world</b>`, 15},
		{"hidden", `<p style="display:none">x</p>`, 0},
		{"horizontal rule", `<hr>`, 12},
		{"fixed height", `<div style="height: 50px"></div>`, 50},
		{"border-box height", `<div style="height: 50px; padding: 5px; box-sizing: border-box"></div>`, 50},
		{"inline block", `<div><span style="display:inline-block; padding: 5px">ab</span></div>`, 30},
		{"inline padding is glue", `<div><span style="padding: 0 30px">aaaa</span> bbbbbbbbbb</div>`, 30},
		{"text indent", `<div style="text-indent: 10px">aaaaaaaaaaaaaaaaa bb</div>`, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, measureOne(t, tt.markup))
		})
	}
}

func TestMarginCollapsing(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   int
	}{
		{"siblings and parent", `<div><p>a</p><p>b</p></div>`, 60},
		{"padding separates parent", `<div style="padding: 5px"><p>a</p></div>`, 45},
		{"border separates parent", `<div style="border: 1px solid"><p>a</p></div>`, 37},
		{"empty block collapses through", `<div><p></p></div>`, 10},
		{"negative margin", `<div style="margin-top: -5px"><p>a</p></div>`, 30},
		{"flow root keeps child margins", `<div style="overflow: hidden"><p>a</p></div>`, 35},
		{"larger margin wins", `<div><p style="margin-bottom: 20px">a</p><p>b</p></div>`, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, measureOne(t, tt.markup))
		})
	}
}

func TestLists(t *testing.T) {
	assert.Equal(t, 50, measureOne(t, `<ul><li>a</li><li>b</li></ul>`))
	// 80px wide after the list indent: 13 characters per line
	assert.Equal(t, 50, measureOne(t, `<ol><li>aaaaaaaaaa aaaaaaaaaa</li></ol>`))
	assert.Equal(t, 35, measureOne(t, `<ul><li></li></ul>`), "an empty item keeps its marker line")
	assert.Equal(t, 10, measureOne(t, `<ul style="list-style: none"><li></li></ul>`),
		"without a marker the empty list collapses to its margin")
	assert.Equal(t, 50, measureOne(t, `<ul style="list-style-position: inside; padding: 0"><li>aaaaaaaaaaaaaaaaaaa</li></ul>`),
		"inside markers take inline space")
	assert.Equal(t, 50, measureOne(t, `<ul><li>a<ul><li>b</li></ul></li></ul>`), "nested lists have no margins")
}

func TestTables(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   int
	}{
		{"default spacing and padding", `<table><tr><td>a</td></tr></table>`, 21},
		{"attributes", `<table cellspacing="0" cellpadding="0"><tr><td>a</td><td>b</td></tr><tr><td>c</td></tr></table>`, 30},
		{"row span stretches last row", `<table cellspacing="0" cellpadding="0"><tr><td rowspan="2">a<br>b<br>c</td><td>x</td></tr><tr><td>y</td></tr></table>`, 45},
		{"caption", `<table cellspacing="0" cellpadding="0"><caption>c</caption><tr><td>a</td></tr></table>`, 30},
		{"columns share the width", `<table cellspacing="0" cellpadding="0"><tr><td>aaaa aaaa aaaa</td><td>bbbb bbbb bbbb</td></tr></table>`, 30},
		{"collapsed borders", `<table style="border-collapse: collapse" border="1" cellpadding="0"><tr><td>a</td></tr><tr><td>b</td></tr></table>`, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, measureOne(t, tt.markup))
		})
	}
}

func TestImages(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   int
	}{
		{"declared size", `<p><img src="x.png" width="50" height="100"></p>`, 125},
		{"natural size", `<img src="logo.png">`, 25},
		{"width keeps ratio", `<img src="logo.png" width="80">`, 45},
		{"max width clamps", `<img src="logo.png" width="240" style="max-width: 100%">`, 65},
		{"alt text without size", `<img src="missing.png" alt="logo">`, 15},
		{"nothing to show", `<div><img src="missing.png"></div>`, 0},
		{"block image", `<img src="logo.png" style="display: block">`, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, measureOne(t, tt.markup))
		})
	}
}

func TestWhiteSpaceFollowsGeometry(t *testing.T) {
	g := testGeometry()
	markup := `<div>aaaa bbbb cccc dddd eeee ffff</div>`
	assert.Equal(t, []int{30}, measureAll(t, g, markup))

	g.WhiteSpace = geometry.WhiteSpaceNoWrap
	assert.Equal(t, []int{15}, measureAll(t, g, markup))

	g.WhiteSpace = geometry.WhiteSpacePreWrap
	assert.Equal(t, []int{30}, measureAll(t, g, "<div>a\nb</div>"))
}

func TestNarrowerWidthIsNeverShorter(t *testing.T) {
	markup := `<p>The quick brown fox jumps over the lazy dog again and again</p><table><tr><td>one two</td><td>three four five</td></tr></table>`
	wide := testGeometry()
	narrow := testGeometry()
	narrow.PageWidth = 80

	w := measureAll(t, wide, markup)
	n := measureAll(t, narrow, markup)
	require.Len(t, n, len(w))
	for i := range w {
		assert.GreaterOrEqual(t, n[i], w[i])
	}
}

func TestAuthorStyles(t *testing.T) {
	assert.Equal(t, 15, measureOne(t, `<p>a</p>`, "p { margin: 0 }"))
	hs := measureAll(t, testGeometry(), `<style>p { margin: 0 }</style><p>a</p>`)
	require.NotEmpty(t, hs)
	assert.Equal(t, 15, hs[len(hs)-1], "document styles apply")
}

func TestDistributeColumns(t *testing.T) {
	mins := []float64{10, 20}
	maxs := []float64{50, 100}
	none := []float64{0, 0}

	assert.Equal(t, []float64{50, 100}, distributeColumns(mins, maxs, none, 300, false))
	assert.Equal(t, []float64{30, 60}, distributeColumns(mins, maxs, none, 90, false))
	assert.Equal(t, []float64{10, 20}, distributeColumns(mins, maxs, none, 20, false))
	assert.Equal(t, []float64{100, 200}, distributeColumns(mins, maxs, none, 300, true))
	assert.Equal(t, []float64{150, 100}, distributeColumns(mins, maxs, []float64{50, 0}, 300, false))
}

func TestMarkers(t *testing.T) {
	assert.Equal(t, "3. ", markerText("decimal", 3))
	assert.Equal(t, "ab. ", markerText("lower-alpha", 28))
	assert.Equal(t, "XIV. ", markerText("upper-roman", 14))
	assert.Equal(t, "• ", markerText("disc", 1))
}
