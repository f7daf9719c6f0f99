package style

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/parser/css"
)

// ContentClass is the class of the element that holds a page's nodes, both
// in rendered pages and on the browser measurement surface.
const ContentClass = "pp-page-content"

// userAgentCSS are the defaults every page is rendered with. They are emitted
// with the page so browser defaults cannot drift from what was measured.
const userAgentCSS = `
h1 { font-size: 2em; margin: 0.67em 0; font-weight: bold; }
h2 { font-size: 1.5em; margin: 0.83em 0; font-weight: bold; }
h3 { font-size: 1.17em; margin: 1em 0; font-weight: bold; }
h4 { margin: 1.33em 0; font-weight: bold; }
h5 { font-size: 0.83em; margin: 1.67em 0; font-weight: bold; }
h6 { font-size: 0.67em; margin: 2.33em 0; font-weight: bold; }
p { margin: 1em 0; }
blockquote, figure { margin: 1em 40px; }
ul, ol { margin: 1em 0; padding-left: 40px; }
ul { list-style-type: disc; }
ol { list-style-type: decimal; }
ul ul, ul ol, ol ul, ol ol { margin-top: 0; margin-bottom: 0; }
dl { margin: 1em 0; }
dd { margin-left: 40px; }
hr { margin: 0.5em 0; border-width: 1px; border-style: inset; }
pre { white-space: pre; margin: 1em 0; }
pre, code, kbd, samp, tt { font-family: "Courier New", Courier, monospace; }
a { color: #0000EE; text-decoration: underline; }
b, strong, th { font-weight: bold; }
i, em, cite, var, dfn, address { font-style: italic; }
small, sub, sup { font-size: 0.83em; }
big { font-size: 1.17em; }
center { text-align: center; }
img { border-style: none; }
`

// browserDefaultCSS mirrors the browser's own defaults for properties that
// presentational attributes such as cellpadding override. They are not
// emitted with pages, where the browser supplies them at user agent level.
const browserDefaultCSS = `
table { border-collapse: separate; border-spacing: 2px; }
th, td { padding: 1px; }
th { text-align: center; }
`

// UserAgentStylesheet parses the built-in defaults.
func UserAgentStylesheet() *css.Stylesheet {
	stylesheet, _ := css.NewParser().ParseString(browserDefaultCSS + userAgentCSS)
	return stylesheet
}

func pageDefaults() *css.Stylesheet {
	stylesheet, _ := css.NewParser().ParseString(userAgentCSS)
	return stylesheet
}

func browserDefaults() *css.Stylesheet {
	stylesheet, _ := css.NewParser().ParseString(browserDefaultCSS)
	return stylesheet
}

// RootDeclarations are the font and white-space declarations of the content
// box for a geometry.
func RootDeclarations(g geometry.Geometry) []*css.Declaration {
	tab := strconv.Itoa(g.TabSize)
	return []*css.Declaration{
		{Property: "font-family", Value: quoteFamily(g.Font.Family)},
		{Property: "font-size", Value: formatPx(g.Font.Size)},
		{Property: "line-height", Value: strconv.FormatFloat(g.Font.LineHeight, 'f', -1, 64)},
		{Property: "white-space", Value: string(g.WhiteSpace)},
		{Property: "tab-size", Value: tab},
		{Property: "-moz-tab-size", Value: tab},
		{Property: "overflow-wrap", Value: "normal"},
		{Property: "word-break", Value: "normal"},
		{Property: "display", Value: "flow-root"},
	}
}

// PageStylesheet assembles the single stylesheet used to measure and to
// render pages of the given geometry: the content box rule, the user agent
// defaults and then the author styles in order. Selectors address the
// content box as body; Scope the result for use inside a larger document.
func PageStylesheet(g geometry.Geometry, author []string) (*css.Stylesheet, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	sheet := &css.Stylesheet{}
	sheet.Rules = append(sheet.Rules, &css.Rule{
		Selectors:    []string{"body"},
		Declarations: RootDeclarations(g),
	})
	sheet.Rules = append(sheet.Rules, pageDefaults().Rules...)

	parser := css.NewParser()
	for i, text := range author {
		authorSheet, err := parser.ParseString(text)
		if err != nil {
			return nil, fmt.Errorf("author stylesheet %d: %w", i, err)
		}
		sheet.Rules = append(sheet.Rules, authorSheet.Rules...)
	}
	return sheet, nil
}

// ScopedPageCSS returns the page stylesheet scoped to ContentClass as text.
func ScopedPageCSS(g geometry.Geometry, author []string) (string, error) {
	sheet, err := PageStylesheet(g, author)
	if err != nil {
		return "", err
	}
	return sheet.Scope("." + ContentClass).String(), nil
}

// NewPageStyleEngine returns a style engine loaded with the page stylesheet
// scoped to body, which stands in for the page content box when a parsed
// document is laid out directly. Only the browser defaults stay at user agent
// level; the page defaults are part of the sheet, which keeps the cascade
// order identical to the rendered page.
func NewPageStyleEngine(g geometry.Geometry, author []string) (*StyleEngine, error) {
	sheet, err := PageStylesheet(g, author)
	if err != nil {
		return nil, err
	}
	e := &StyleEngine{userAgentStyles: browserDefaults().Scope("body")}
	e.AddStylesheet(sheet.Scope("body"))
	return e, nil
}

func quoteFamily(family string) string {
	family = strings.TrimSpace(family)
	if family == "" {
		return "serif"
	}
	if strings.ContainsAny(family, ",\"'") {
		return family
	}
	if strings.Contains(family, " ") {
		return `"` + family + `"`
	}
	return family
}
