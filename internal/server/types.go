package server

import (
	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/render/preview"
	"github.com/gompdf/pagedpreview/pkg/api"
)

// PaginateRequest is the body of /api/paginate and /api/preview. Page
// options are applied over the server defaults; an explicit geometry wins
// over both.
type PaginateRequest struct {
	HTML      string            `json:"html"`
	Page      *PageRequest      `json:"page,omitempty"`
	Geometry  *GeometryRequest  `json:"geometry,omitempty"`
	Numbering *NumberingRequest `json:"numbering,omitempty"`
	// Document wraps the preview in a standalone HTML document
	Document bool   `json:"document,omitempty"`
	Title    string `json:"title,omitempty"`
}

// PageRequest names page options like the PDF generator takes them.
type PageRequest struct {
	Size        string            `json:"size,omitempty"`
	Orientation string            `json:"orientation,omitempty"`
	Margins     *geometry.Margins `json:"margins,omitempty"`
	FontFamily  string            `json:"font_family,omitempty"`
	FontSize    float64           `json:"font_size,omitempty"`
	LineHeight  float64           `json:"line_height,omitempty"`
	WhiteSpace  string            `json:"white_space,omitempty"`
	TabSize     int               `json:"tab_size,omitempty"`
}

// GeometryRequest is an explicit pixel geometry.
type GeometryRequest struct {
	PageWidth  float64         `json:"page_width"`
	PageHeight float64         `json:"page_height"`
	Padding    geometry.Insets `json:"padding"`
	WhiteSpace string          `json:"white_space"`
	TabSize    int             `json:"tab_size"`
	FontFamily string          `json:"font_family"`
	FontSize   float64         `json:"font_size"`
	LineHeight float64         `json:"line_height"`
}

// NumberingRequest overrides the page number decoration.
type NumberingRequest struct {
	Enabled    bool   `json:"enabled"`
	Horizontal string `json:"horizontal,omitempty"`
	Vertical   string `json:"vertical,omitempty"`
	Format     string `json:"format,omitempty"`
}

func (r *PaginateRequest) geometry(defaults api.Options) (geometry.Geometry, error) {
	if g := r.Geometry; g != nil {
		out := geometry.Geometry{
			PageWidth:  g.PageWidth,
			PageHeight: g.PageHeight,
			Padding:    g.Padding,
			WhiteSpace: geometry.WhiteSpace(g.WhiteSpace),
			TabSize:    g.TabSize,
			Font:       geometry.Font{Family: g.FontFamily, Size: g.FontSize, LineHeight: g.LineHeight},
		}
		if out.WhiteSpace == "" {
			out.WhiteSpace = geometry.WhiteSpaceNormal
		}
		if out.TabSize == 0 {
			out.TabSize = 8
		}
		if out.Font == (geometry.Font{}) {
			out.Font = geometry.DefaultFont()
		}
		return out, out.Validate()
	}

	o := defaults
	if p := r.Page; p != nil {
		o.Geometry = nil
		if p.Size != "" {
			size, err := geometry.ParsePageSize(p.Size)
			if err != nil {
				return geometry.Geometry{}, err
			}
			o.PageSize = size
		}
		if p.Orientation != "" {
			orientation, err := geometry.ParseOrientation(p.Orientation)
			if err != nil {
				return geometry.Geometry{}, err
			}
			o.Orientation = orientation
		}
		if p.Margins != nil {
			o.Margins = *p.Margins
		}
		if p.FontFamily != "" {
			o.Font.Family = p.FontFamily
		}
		if p.FontSize != 0 {
			o.Font.Size = p.FontSize
		}
		if p.LineHeight != 0 {
			o.Font.LineHeight = p.LineHeight
		}
		if p.WhiteSpace != "" {
			ws, err := geometry.ParseWhiteSpace(p.WhiteSpace)
			if err != nil {
				return geometry.Geometry{}, err
			}
			o.WhiteSpace = ws
		}
		if p.TabSize != 0 {
			o.TabSize = p.TabSize
		}
	}
	return o.ResolveGeometry()
}

func (r *PaginateRequest) numbering(defaults preview.Numbering) (preview.Numbering, error) {
	if r.Numbering == nil {
		return defaults, nil
	}
	n := preview.Numbering{
		Enabled:    r.Numbering.Enabled,
		Horizontal: preview.Horizontal(r.Numbering.Horizontal),
		Vertical:   preview.Vertical(r.Numbering.Vertical),
		Format:     r.Numbering.Format,
	}
	return n, n.Validate()
}

// SizeResponse is one row of the page size table in pixels.
type SizeResponse struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PaginateResponse reports page boundaries without markup.
type PaginateResponse struct {
	ID        string            `json:"id"`
	Backend   string            `json:"backend"`
	Geometry  GeometryResponse  `json:"geometry"`
	PageCount int               `json:"page_count"`
	Pages     []api.PageSummary `json:"pages"`
	ElapsedMS float64           `json:"elapsed_ms"`
}

// GeometryResponse echoes the geometry a document was paginated against.
type GeometryResponse struct {
	PageWidth     float64         `json:"page_width"`
	PageHeight    float64         `json:"page_height"`
	Padding       geometry.Insets `json:"padding"`
	ContentWidth  float64         `json:"content_width"`
	ContentHeight float64         `json:"content_height"`
	WhiteSpace    string          `json:"white_space"`
	TabSize       int             `json:"tab_size"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newPaginateResponse(r *api.Result) PaginateResponse {
	g := r.Geometry
	return PaginateResponse{
		ID:      r.ID,
		Backend: r.Backend,
		Geometry: GeometryResponse{
			PageWidth:     g.PageWidth,
			PageHeight:    g.PageHeight,
			Padding:       g.Padding,
			ContentWidth:  g.ContentWidth(),
			ContentHeight: g.ContentHeight(),
			WhiteSpace:    string(g.WhiteSpace),
			TabSize:       g.TabSize,
		},
		PageCount: len(r.Pages),
		Pages:     r.Summary(),
		ElapsedMS: float64(r.Elapsed.Microseconds()) / 1000,
	}
}
