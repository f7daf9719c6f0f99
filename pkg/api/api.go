package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/gompdf/pagedpreview/internal/layout"
	"github.com/gompdf/pagedpreview/internal/pagination"
	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/render/preview"
	"github.com/gompdf/pagedpreview/internal/res"
)

// ErrUnknownBackend is returned for a backend name that is not supported.
var ErrUnknownBackend = errors.New("unknown measurement backend")

// Result is the outcome of one pagination pass.
type Result struct {
	ID       string
	Pages    []Page
	Geometry Geometry
	Backend  string
	// Stylesheets are the author styles the pages were measured with
	Stylesheets []string
	Elapsed     time.Duration
}

// Boundaries returns the block indices on each page.
func (r *Result) Boundaries() [][]int {
	return pagination.Boundaries(r.Pages)
}

// PageSummary describes one page without its markup.
type PageSummary struct {
	Index     int      `json:"index"`
	Blocks    []int    `json:"blocks"`
	Tags      []string `json:"tags"`
	Heights   []int    `json:"heights"`
	Height    int      `json:"height"`
	Oversized bool     `json:"oversized,omitempty"`
	Fallback  bool     `json:"fallback,omitempty"`
}

// Summary describes every page.
func (r *Result) Summary() []PageSummary {
	out := make([]PageSummary, len(r.Pages))
	for i, p := range r.Pages {
		s := PageSummary{
			Index:     p.Index,
			Blocks:    make([]int, len(p.Blocks)),
			Tags:      make([]string, len(p.Blocks)),
			Heights:   append([]int{}, p.Heights...),
			Height:    p.AccumulatedHeight,
			Oversized: p.Oversized,
			Fallback:  p.Fallback,
		}
		for j, b := range p.Blocks {
			s.Blocks[j] = b.Index
			s.Tags[j] = b.Tag
		}
		out[i] = s
	}
	return out
}

// Paginator splits HTML into pages. Passes on one Paginator run one at a
// time; use separate Paginators to paginate in parallel.
type Paginator struct {
	options Options
	loader  *res.Loader
	images  *imageSource
	surface layout.Surface
	engine  *pagination.Engine
	policy  *bluemonday.Policy

	// pass serializes passes so each sees its own image base
	pass chan struct{}
}

// New creates a paginator with default options modified by opts.
func New(opts ...Option) (*Paginator, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return NewWithOptions(options)
}

// NewWithOptions creates a paginator with the specified options
func NewWithOptions(options Options) (*Paginator, error) {
	images := &imageSource{}
	var surface layout.Surface
	switch options.Backend {
	case BackendMetrics, "":
		s, err := layout.NewMetricsSurface(images)
		if err != nil {
			return nil, fmt.Errorf("create metrics surface: %w", err)
		}
		surface = s
	case BackendBrowser:
		s := layout.NewBrowserSurface(options.ChromePath)
		s.AllowRemote(options.RemoteResources)
		surface = s
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, options.Backend)
	}
	return newPaginator(options, surface, images)
}

func newPaginator(options Options, surface layout.Surface, images *imageSource) (*Paginator, error) {
	if err := options.Numbering.Validate(); err != nil {
		return nil, err
	}
	p := &Paginator{
		options: options,
		images:  images,
		surface: surface,
		engine:  pagination.NewEngine(surface),
		pass:    make(chan struct{}, 1),
	}
	p.loader = p.newLoader(options.BaseURL)
	images.use(p.loader)

	p.engine.SetOptions(pagination.Options{
		Tolerance:   options.Tolerance,
		Stylesheets: options.Stylesheets,
		Debug:       options.Debug,
		Logger:      options.Logger,
	})
	if options.Sanitize {
		p.policy = bluemonday.UGCPolicy()
	}
	return p, nil
}

func (p *Paginator) newLoader(base string) *res.Loader {
	l := res.NewLoader(base)
	l.AllowRemote(p.options.RemoteResources)
	for _, path := range p.options.ResourcePaths {
		l.AddSearchPath(path)
	}
	return l
}

// Options returns the paginator's options.
func (p *Paginator) Options() Options {
	return p.options
}

// Geometry resolves the configured page geometry.
func (p *Paginator) Geometry() (Geometry, error) {
	return p.options.ResolveGeometry()
}

// Backend returns the name of the measurement surface.
func (p *Paginator) Backend() string {
	return p.surface.Name()
}

// Paginate splits content with the configured geometry.
func (p *Paginator) Paginate(ctx context.Context, content string) (*Result, error) {
	g, err := p.Geometry()
	if err != nil {
		return nil, err
	}
	return p.PaginateWithGeometry(ctx, content, g)
}

// PaginateWithGeometry splits content for an explicit geometry.
func (p *Paginator) PaginateWithGeometry(ctx context.Context, content string, g Geometry) (*Result, error) {
	return p.paginate(ctx, content, g, p.loader)
}

// PaginateFile paginates an HTML file. Relative image and stylesheet
// references resolve against the file's directory.
func (p *Paginator) PaginateFile(ctx context.Context, path string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML file: %w", err)
	}
	g, err := p.Geometry()
	if err != nil {
		return nil, err
	}
	return p.paginate(ctx, string(content), g, p.newLoader(path))
}

// PaginateURL fetches and paginates an HTML page.
func (p *Paginator) PaginateURL(ctx context.Context, url string) (*Result, error) {
	g, err := p.Geometry()
	if err != nil {
		return nil, err
	}
	loader := p.newLoader(url)
	resource, err := loader.LoadHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to load HTML from URL: %w", err)
	}
	return p.paginate(ctx, resource.GetString(), g, loader)
}

func (p *Paginator) paginate(ctx context.Context, content string, g Geometry, loader *res.Loader) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if p.policy != nil {
		content = p.policy.Sanitize(content)
	}
	doc, err := html.NewParser().ParseString(content)
	if err != nil {
		// unparseable input renders as one unsplit page
		p.options.Logger.Warn().Err(err).Msg("failed to parse HTML, using fallback page")
		doc = &html.Document{Raw: content}
	}
	if len(doc.StyleLinks) > 0 {
		doc.Styles = append(p.linkedStyles(ctx, loader, doc.StyleLinks), doc.Styles...)
	}

	select {
	case p.pass <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.pass }()
	p.images.use(loader)
	defer p.images.use(p.loader)

	start := time.Now()
	pages, err := p.engine.Paginate(ctx, doc, g)
	if err != nil {
		return nil, err
	}
	return &Result{
		ID:          uuid.NewString(),
		Pages:       pages,
		Geometry:    g,
		Backend:     p.surface.Name(),
		Stylesheets: append(append([]string(nil), doc.Styles...), p.options.Stylesheets...),
		Elapsed:     time.Since(start),
	}, nil
}

// linkedStyles loads linked stylesheets through the pass's loader. A sheet
// that cannot be loaded is skipped, as a browser would.
func (p *Paginator) linkedStyles(ctx context.Context, loader *res.Loader, hrefs []string) []string {
	var out []string
	for _, href := range hrefs {
		r, err := loader.LoadCSS(ctx, href)
		if err != nil {
			p.options.Logger.Warn().Err(err).Str("href", href).Msg("failed to load stylesheet")
			continue
		}
		out = append(out, r.GetString())
	}
	return out
}

// Renderer returns the page renderer for a result.
func (p *Paginator) Renderer(r *Result) (*preview.Renderer, error) {
	return preview.NewRenderer(r.Geometry, r.Stylesheets)
}

// Render writes the page frames of a result using the configured numbering.
func (p *Paginator) Render(ctx context.Context, w io.Writer, r *Result) error {
	return p.RenderWithNumbering(ctx, w, r, p.options.Numbering)
}

// RenderWithNumbering writes the page frames of a result.
func (p *Paginator) RenderWithNumbering(ctx context.Context, w io.Writer, r *Result, n Numbering) error {
	renderer, err := p.Renderer(r)
	if err != nil {
		return err
	}
	return renderer.Pages(r.Pages, n).Render(ctx, w)
}

// RenderDocument writes a standalone preview document.
func (p *Paginator) RenderDocument(ctx context.Context, w io.Writer, r *Result, title string) error {
	renderer, err := p.Renderer(r)
	if err != nil {
		return err
	}
	return renderer.Document(title, r.Pages, p.options.Numbering).Render(ctx, w)
}

// RenderString renders the page frames of a result to a string.
func (p *Paginator) RenderString(ctx context.Context, r *Result) (string, error) {
	var buf bytes.Buffer
	if err := p.Render(ctx, &buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Close releases the measurement surface.
func (p *Paginator) Close() error {
	if c, ok := p.surface.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// imageSource sizes images through the loader of the running pass.
type imageSource struct {
	mu     sync.RWMutex
	loader *res.Loader
}

func (s *imageSource) use(l *res.Loader) {
	s.mu.Lock()
	s.loader = l
	s.mu.Unlock()
}

func (s *imageSource) ImageSize(src string) (res.Size, error) {
	s.mu.RLock()
	l := s.loader
	s.mu.RUnlock()
	if l == nil {
		return res.Size{}, res.ErrNotFound
	}
	return l.ImageSize(src)
}
