package api

import (
	"github.com/rs/zerolog"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/pagination"
	"github.com/gompdf/pagedpreview/internal/render/preview"
)

// Re-exported types that make up the public surface.
type (
	Geometry    = geometry.Geometry
	Insets      = geometry.Insets
	Font        = geometry.Font
	WhiteSpace  = geometry.WhiteSpace
	PageSize    = geometry.PageSize
	Orientation = geometry.Orientation
	Margins     = geometry.Margins
	Page        = pagination.Page
	Numbering   = preview.Numbering
)

// Backend selects the measurement surface.
type Backend string

const (
	// BackendMetrics lays blocks out with core font metrics, without a browser
	BackendMetrics Backend = "metrics"
	// BackendBrowser measures in headless Chrome
	BackendBrowser Backend = "browser"
)

const (
	SizeA3     = geometry.SizeA3
	SizeA4     = geometry.SizeA4
	SizeLetter = geometry.SizeLetter
	SizeLegal  = geometry.SizeLegal
	SizeFolio  = geometry.SizeFolio

	Portrait  = geometry.Portrait
	Landscape = geometry.Landscape

	WhiteSpaceNormal      = geometry.WhiteSpaceNormal
	WhiteSpaceNoWrap      = geometry.WhiteSpaceNoWrap
	WhiteSpacePre         = geometry.WhiteSpacePre
	WhiteSpacePreWrap     = geometry.WhiteSpacePreWrap
	WhiteSpacePreLine     = geometry.WhiteSpacePreLine
	WhiteSpaceBreakSpaces = geometry.WhiteSpaceBreakSpaces

	AlignStart  = preview.AlignStart
	AlignCenter = preview.AlignCenter
	AlignEnd    = preview.AlignEnd
	AlignTop    = preview.AlignTop
	AlignBottom = preview.AlignBottom
)

// Options represents configuration options for the paginator
type Options struct {
	// Page options, resolved through the lookup table shared with the PDF
	// generator
	PageSize    PageSize
	Orientation Orientation
	// Margins in millimetres
	Margins    Margins
	Font       Font
	WhiteSpace WhiteSpace
	TabSize    int

	// Geometry, when set, replaces the page options with explicit pixels
	Geometry *Geometry

	Numbering Numbering

	Backend    Backend
	ChromePath string

	// Stylesheets are applied after the document's own <style> blocks
	Stylesheets []string
	// Tolerance in pixels added to the page budget in the overflow test
	Tolerance int
	// Sanitize runs the input through the UGC sanitizer policy first
	Sanitize bool

	Logger zerolog.Logger
	Debug  bool

	// Resource paths searched for images that do not resolve. Local files
	// are only read below these paths and the base directory.
	ResourcePaths []string
	BaseURL       string

	// RemoteResources allows fetching images and stylesheets from any
	// HTTP(S) origin. Without it only the origin of a remote base is used.
	RemoteResources bool
}

// Option is a function that modifies Options
type Option func(*Options)

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		PageSize:    SizeA4,
		Orientation: Portrait,
		Font:        geometry.DefaultFont(),
		WhiteSpace:  WhiteSpaceNormal,
		TabSize:     8,
		Numbering:   preview.DefaultNumbering(),
		Backend:     BackendMetrics,
		Tolerance:   pagination.DefaultTolerance,
		Logger:      zerolog.Nop(),
	}
}

// PageOptions returns the page part of the options.
func (o Options) PageOptions() geometry.PageOptions {
	return geometry.PageOptions{
		Size:        o.PageSize,
		Orientation: o.Orientation,
		Margins:     o.Margins,
		Font:        o.Font,
		WhiteSpace:  o.WhiteSpace,
		TabSize:     o.TabSize,
	}
}

// ResolveGeometry returns the pixel geometry the options describe.
func (o Options) ResolveGeometry() (Geometry, error) {
	if o.Geometry != nil {
		g := *o.Geometry
		return g, g.Validate()
	}
	return o.PageOptions().Resolve()
}

// WithPageSize sets the named page size
func WithPageSize(size PageSize) Option {
	return func(o *Options) {
		o.PageSize = size
	}
}

// WithOrientation sets the page orientation
func WithOrientation(orientation Orientation) Option {
	return func(o *Options) {
		o.Orientation = orientation
	}
}

// WithMargins sets the page margins in millimetres
func WithMargins(top, right, bottom, left float64) Option {
	return func(o *Options) {
		o.Margins = Margins{Top: top, Right: right, Bottom: bottom, Left: left}
	}
}

// WithFont sets the base font. lineHeight is a multiplier of size.
func WithFont(family string, size, lineHeight float64) Option {
	return func(o *Options) {
		o.Font = Font{Family: family, Size: size, LineHeight: lineHeight}
	}
}

// WithWhiteSpace sets the white-space mode pages are measured and rendered with
func WithWhiteSpace(ws WhiteSpace) Option {
	return func(o *Options) {
		o.WhiteSpace = ws
	}
}

// WithTabSize sets the tab width in spaces
func WithTabSize(n int) Option {
	return func(o *Options) {
		o.TabSize = n
	}
}

// WithGeometry sets an explicit pixel geometry
func WithGeometry(g Geometry) Option {
	return func(o *Options) {
		o.Geometry = &g
	}
}

// WithNumbering sets the page number decoration
func WithNumbering(n Numbering) Option {
	return func(o *Options) {
		o.Numbering = n
	}
}

// WithBackend selects the measurement backend
func WithBackend(b Backend) Option {
	return func(o *Options) {
		o.Backend = b
	}
}

// WithChromePath sets the browser executable for BackendBrowser
func WithChromePath(path string) Option {
	return func(o *Options) {
		o.ChromePath = path
	}
}

// WithStylesheet appends an author stylesheet
func WithStylesheet(css string) Option {
	return func(o *Options) {
		o.Stylesheets = append(o.Stylesheets, css)
	}
}

// WithTolerance sets the overflow tolerance in pixels
func WithTolerance(px int) Option {
	return func(o *Options) {
		o.Tolerance = px
	}
}

// WithSanitize enables input sanitizing
func WithSanitize(sanitize bool) Option {
	return func(o *Options) {
		o.Sanitize = sanitize
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithDebug sets the debug mode
func WithDebug(debug bool) Option {
	return func(o *Options) {
		o.Debug = debug
	}
}

// WithResourcePath adds a path to search for resources
func WithResourcePath(path string) Option {
	return func(o *Options) {
		o.ResourcePaths = append(o.ResourcePaths, path)
	}
}

// WithBaseURL sets the base relative image references resolve against
func WithBaseURL(base string) Option {
	return func(o *Options) {
		o.BaseURL = base
	}
}

// WithRemoteResources allows or refuses fetching resources from other origins
func WithRemoteResources(allow bool) Option {
	return func(o *Options) {
		o.RemoteResources = allow
	}
}
