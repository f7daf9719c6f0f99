package pagedpreview

import (
	"github.com/gompdf/pagedpreview/pkg/api"
)

type Paginator = api.Paginator
type Session = api.Session
type Result = api.Result
type Options = api.Options
type Option = api.Option
type Geometry = api.Geometry
type Numbering = api.Numbering
type Page = api.Page

func New(opts ...Option) (*Paginator, error)             { return api.New(opts...) }
func NewWithOptions(options Options) (*Paginator, error) { return api.NewWithOptions(options) }
func DefaultOptions() Options                            { return api.DefaultOptions() }

var (
	WithPageSize        = api.WithPageSize
	WithOrientation     = api.WithOrientation
	WithMargins         = api.WithMargins
	WithFont            = api.WithFont
	WithWhiteSpace      = api.WithWhiteSpace
	WithTabSize         = api.WithTabSize
	WithGeometry        = api.WithGeometry
	WithNumbering       = api.WithNumbering
	WithBackend         = api.WithBackend
	WithChromePath      = api.WithChromePath
	WithStylesheet      = api.WithStylesheet
	WithTolerance       = api.WithTolerance
	WithSanitize        = api.WithSanitize
	WithLogger          = api.WithLogger
	WithDebug           = api.WithDebug
	WithResourcePath    = api.WithResourcePath
	WithBaseURL         = api.WithBaseURL
	WithRemoteResources = api.WithRemoteResources
	ErrSuperseded       = api.ErrSuperseded
	ErrUnknownBackend   = api.ErrUnknownBackend
)

const (
	SizeA3     = api.SizeA3
	SizeA4     = api.SizeA4
	SizeLetter = api.SizeLetter
	SizeLegal  = api.SizeLegal
	SizeFolio  = api.SizeFolio

	Portrait  = api.Portrait
	Landscape = api.Landscape

	BackendMetrics = api.BackendMetrics
	BackendBrowser = api.BackendBrowser

	AlignStart  = api.AlignStart
	AlignCenter = api.AlignCenter
	AlignEnd    = api.AlignEnd
	AlignTop    = api.AlignTop
	AlignBottom = api.AlignBottom
)
