package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGeometryIsValid(t *testing.T) {
	g := Default()
	require.NoError(t, g.Validate())
	assert.Equal(t, 794.0, g.PageWidth)
	assert.Equal(t, 1123.0, g.PageHeight)
	assert.Equal(t, g.PageWidth, g.ContentWidth())
	assert.Equal(t, g.PageHeight, g.ContentHeight())
}

func TestValidateRejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Geometry)
	}{
		{"zero height", func(g *Geometry) { g.PageHeight = 0 }},
		{"negative height", func(g *Geometry) { g.PageHeight = -10 }},
		{"zero width", func(g *Geometry) { g.PageWidth = 0 }},
		{"negative width", func(g *Geometry) { g.PageWidth = -1 }},
		{"padding eats width", func(g *Geometry) { g.Padding.Left = g.PageWidth / 2; g.Padding.Right = g.PageWidth / 2 }},
		{"padding eats height", func(g *Geometry) { g.Padding.Top = g.PageHeight }},
		{"sub-pixel content height", func(g *Geometry) { g.Padding.Top = g.PageHeight - 0.5 }},
		{"negative padding", func(g *Geometry) { g.Padding.Left = -4 }},
		{"unknown white-space", func(g *Geometry) { g.WhiteSpace = "pre-ish" }},
		{"zero tab size", func(g *Geometry) { g.TabSize = 0 }},
		{"zero font size", func(g *Geometry) { g.Font.Size = 0 }},
		{"zero line height", func(g *Geometry) { g.Font.LineHeight = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Default()
			tt.mutate(&g)
			err := g.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestWhiteSpaceModes(t *testing.T) {
	tests := []struct {
		mode     WhiteSpace
		collapse bool
		newlines bool
		wraps    bool
	}{
		{WhiteSpaceNormal, true, false, true},
		{WhiteSpaceNoWrap, true, false, false},
		{WhiteSpacePre, false, true, false},
		{WhiteSpacePreWrap, false, true, true},
		{WhiteSpacePreLine, true, true, true},
		{WhiteSpaceBreakSpaces, false, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.collapse, tt.mode.CollapsesSpaces())
			assert.Equal(t, tt.newlines, tt.mode.PreservesNewlines())
			assert.Equal(t, tt.wraps, tt.mode.Wraps())
		})
	}

	ws, err := ParseWhiteSpace(" Pre-Wrap ")
	require.NoError(t, err)
	assert.Equal(t, WhiteSpacePreWrap, ws)

	_, err = ParseWhiteSpace("wrap")
	assert.Error(t, err)
}

func TestKeyTracksEveryField(t *testing.T) {
	base := Default()
	mutations := []func(*Geometry){
		func(g *Geometry) { g.PageWidth-- },
		func(g *Geometry) { g.PageHeight-- },
		func(g *Geometry) { g.Padding.Left++ },
		func(g *Geometry) { g.Padding.Bottom++ },
		func(g *Geometry) { g.WhiteSpace = WhiteSpacePre },
		func(g *Geometry) { g.TabSize = 4 },
		func(g *Geometry) { g.Font.Family = "Courier" },
		func(g *Geometry) { g.Font.Size = 12 },
		func(g *Geometry) { g.Font.LineHeight = 1.2 },
	}
	for i, m := range mutations {
		g := base
		m(&g)
		assert.NotEqual(t, base.Key(), g.Key(), "mutation %d", i)
	}
	assert.Equal(t, base.Key(), Default().Key())
}

func TestResolvePageOptions(t *testing.T) {
	tests := []struct {
		name   string
		opts   PageOptions
		width  float64
		height float64
	}{
		{"A4 portrait", PageOptions{Size: SizeA4}, 794, 1123},
		{"A4 landscape", PageOptions{Size: SizeA4, Orientation: Landscape}, 1123, 794},
		{"A3", PageOptions{Size: SizeA3}, 1123, 1587},
		{"Letter", PageOptions{Size: SizeLetter}, 816, 1056},
		{"Legal", PageOptions{Size: SizeLegal}, 816, 1344},
		{"Folio", PageOptions{Size: SizeFolio}, 816, 1248},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.opts.Resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.width, g.PageWidth)
			assert.Equal(t, tt.height, g.PageHeight)
			assert.Equal(t, WhiteSpaceNormal, g.WhiteSpace)
			assert.Equal(t, 8, g.TabSize)
			assert.Equal(t, DefaultFont(), g.Font)
		})
	}
}

func TestResolveMargins(t *testing.T) {
	g, err := PageOptions{
		Size:    SizeLetter,
		Margins: Margins{Top: 25.4, Right: 12.7, Bottom: 25.4, Left: 12.7},
	}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, Insets{Top: 96, Right: 48, Bottom: 96, Left: 48}, g.Padding)
	assert.Equal(t, 720.0, g.ContentWidth())
	assert.Equal(t, 864.0, g.ContentHeight())
}

func TestResolveRejectsUnknownInputs(t *testing.T) {
	_, err := PageOptions{Size: "B5"}.Resolve()
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = PageOptions{Size: SizeA4, Orientation: "diagonal"}.Resolve()
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = PageOptions{Size: SizeA4, Margins: Margins{Left: 110, Right: 110}}.Resolve()
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestParseHelpers(t *testing.T) {
	size, err := ParsePageSize("letter")
	require.NoError(t, err)
	assert.Equal(t, SizeLetter, size)

	o, err := ParseOrientation("")
	require.NoError(t, err)
	assert.Equal(t, Portrait, o)

	o, err = ParseOrientation("LANDSCAPE")
	require.NoError(t, err)
	assert.Equal(t, Landscape, o)

	sizes := Sizes()
	require.Len(t, sizes, 5)
	assert.Equal(t, SizeA3, sizes[0].Name)
}
