package preview

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/pagination"
	"github.com/gompdf/pagedpreview/internal/style"
)

// Class names of the emitted page frames.
const (
	PagesClass  = "pp-pages"
	PageClass   = "pp-page"
	NumberClass = "pp-page-number"
)

// Renderer renders paginated pages as fixed-size page frames. It emits the
// same scoped stylesheet the pages were measured with and never measures
// anything itself.
type Renderer struct {
	geometry geometry.Geometry
	pageCSS  string
}

// NewRenderer creates a renderer for a geometry and the author stylesheets
// used during measurement.
func NewRenderer(g geometry.Geometry, author []string) (*Renderer, error) {
	pageCSS, err := style.ScopedPageCSS(g, author)
	if err != nil {
		return nil, err
	}
	return &Renderer{geometry: g, pageCSS: pageCSS}, nil
}

// Geometry returns the geometry pages are framed with.
func (r *Renderer) Geometry() geometry.Geometry {
	return r.geometry
}

// Stylesheet returns the frame rules followed by the page stylesheet.
func (r *Renderer) Stylesheet() string {
	return r.frameCSS() + r.pageCSS
}

func (r *Renderer) frameCSS() string {
	g := r.geometry
	return fmt.Sprintf(`.%[1]s { display: flex; flex-direction: column; align-items: center; gap: 24px; }
.%[2]s { position: relative; box-sizing: border-box; width: %[3]s; min-height: %[4]s; padding: %[5]s %[6]s %[7]s %[8]s; background: #fff; box-shadow: 0 1px 4px rgba(0, 0, 0, 0.25); }
.%[9]s { position: absolute; left: %[8]s; right: %[6]s; font-size: 12px; line-height: 1; color: #555; }
`,
		PagesClass, PageClass,
		px(g.PageWidth), px(g.PageHeight),
		px(g.Padding.Top), px(g.Padding.Right), px(g.Padding.Bottom), px(g.Padding.Left),
		NumberClass)
}

// Pages renders the page frames with the stylesheet emitted once before them.
func (r *Renderer) Pages(pages []pagination.Page, numbering Numbering) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pw := &pageWriter{w: w}
		pw.printf("<style>\n%s</style>\n", r.Stylesheet())
		pw.printf(`<div class="%s" data-pages="%d">`+"\n", PagesClass, len(pages))
		for _, p := range pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.page(pw, p, len(pages), numbering)
		}
		pw.printf("</div>\n")
		return pw.err
	})
}

func (r *Renderer) page(pw *pageWriter, p pagination.Page, total int, numbering Numbering) {
	pw.printf(`<div class="%s" data-page="%d">`, PageClass, p.Index+1)
	pw.printf(`<div class="%s">`, style.ContentClass)
	pw.printf("%s", p.Markup())
	pw.printf("</div>")
	if numbering.Visible(total) {
		pw.printf(`<div class="%s" style="%s">%s</div>`,
			NumberClass, r.numberPosition(numbering), templ.EscapeString(numbering.Label(p.Index, total)))
	}
	pw.printf("</div>\n")
}

// numberPosition centres the number in the top or bottom inset.
func (r *Renderer) numberPosition(n Numbering) string {
	inset, shift := r.geometry.Padding.Bottom, "50%"
	edge := "bottom"
	if n.edge() == AlignTop {
		inset, shift, edge = r.geometry.Padding.Top, "-50%", "top"
	}
	return fmt.Sprintf("%s: %s; transform: translateY(%s); text-align: %s;", edge, px(inset/2), shift, n.textAlign())
}

// Document renders a standalone HTML document around the pages.
func (r *Renderer) Document(title string, pages []pagination.Page, numbering Numbering) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pw := &pageWriter{w: w}
		pw.printf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n", templ.EscapeString(title))
		pw.printf("<style>\nbody { margin: 0; padding: 24px 0; background: #e5e7eb; }\n</style>\n</head>\n<body>\n")
		if pw.err != nil {
			return pw.err
		}
		if err := r.Pages(pages, numbering).Render(ctx, w); err != nil {
			return err
		}
		pw.printf("</body>\n</html>\n")
		return pw.err
	})
}

type pageWriter struct {
	w   io.Writer
	err error
}

func (pw *pageWriter) printf(format string, args ...any) {
	if pw.err != nil {
		return
	}
	_, pw.err = fmt.Fprintf(pw.w, format, args...)
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
