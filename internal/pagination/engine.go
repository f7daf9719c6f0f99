package pagination

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/layout"
	"github.com/gompdf/pagedpreview/internal/metrics"
	"github.com/gompdf/pagedpreview/internal/parser/html"
)

// Options represents options for the pagination engine
type Options struct {
	// Tolerance is added to the page budget in the overflow test
	Tolerance int
	// Stylesheets are applied after the document's own styles
	Stylesheets []string
	// Debug logs one event per measured block
	Debug  bool
	Logger zerolog.Logger
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		Tolerance: DefaultTolerance,
		Logger:    zerolog.Nop(),
	}
}

// Engine runs the pagination pipeline: measure every block on a surface,
// then pack the heights into pages.
type Engine struct {
	surface layout.Surface
	options Options
}

// NewEngine creates a new pagination engine
func NewEngine(surface layout.Surface) *Engine {
	return &Engine{surface: surface, options: DefaultOptions()}
}

// SetOptions sets the options for the pagination engine
func (e *Engine) SetOptions(options Options) {
	if options.Tolerance < 0 {
		options.Tolerance = 0
	}
	e.options = options
}

// Surface returns the measurement surface.
func (e *Engine) Surface() layout.Surface {
	return e.surface
}

// Paginate splits doc into pages for g. The geometry is validated before
// anything is measured. A document without blocks yields the fallback page.
// When ctx is cancelled mid-pass the pass stops and ctx's error is returned;
// no partial result is produced.
func (e *Engine) Paginate(ctx context.Context, doc *html.Document, g geometry.Geometry) (pages []Page, err error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("nil document")
	}

	backend := e.surface.Name()
	log := e.options.Logger.With().Str("backend", backend).Logger()
	start := time.Now()
	defer func() {
		metrics.PassDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
		metrics.Passes.WithLabelValues(backend, outcome(pages, err)).Inc()
		if err == nil {
			metrics.PageCount.Observe(float64(len(pages)))
		}
	}()

	if doc.Empty() {
		log.Debug().Int("raw_bytes", len(doc.Raw)).Msg("no content blocks, using fallback page")
		return []Page{FallbackPage(doc.Raw)}, nil
	}

	heights, err := e.measure(ctx, doc, g, log)
	if err != nil {
		return nil, err
	}

	budget := int(math.Floor(g.ContentHeight()))
	pages = Pack(doc.Blocks, heights, budget, e.options.Tolerance)
	if e.options.Debug {
		for _, p := range pages {
			log.Debug().
				Int("page", p.Index).
				Int("blocks", len(p.Blocks)).
				Int("height", p.AccumulatedHeight).
				Bool("oversized", p.Oversized).
				Msg("page packed")
		}
	}
	log.Debug().
		Int("blocks", len(doc.Blocks)).
		Int("pages", len(pages)).
		Dur("elapsed", time.Since(start)).
		Msg("pagination finished")
	return pages, nil
}

func (e *Engine) measure(ctx context.Context, doc *html.Document, g geometry.Geometry, log zerolog.Logger) ([]int, error) {
	author := append(append([]string(nil), doc.Styles...), e.options.Stylesheets...)
	pass, err := e.surface.Begin(ctx, g, author)
	if err != nil {
		return nil, fmt.Errorf("begin measurement pass: %w", err)
	}
	defer pass.Close()

	measured := metrics.MeasuredBlocks.WithLabelValues(e.surface.Name())
	heights := make([]int, len(doc.Blocks))
	for i, blk := range doc.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := pass.Measure(ctx, blk)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("measure block %d <%s>: %w", i, tagName(blk), err)
		}
		if h < 0 {
			return nil, fmt.Errorf("measure block %d <%s>: %w: negative height %d", i, tagName(blk), layout.ErrMeasurement, h)
		}
		heights[i] = h
		measured.Inc()
		if e.options.Debug {
			log.Debug().Int("block", i).Str("tag", tagName(blk)).Int("height", h).Msg("block measured")
		}
	}
	return heights, nil
}

func tagName(b *html.Block) string {
	if b.Anonymous || b.Tag == "" {
		return "anonymous"
	}
	return b.Tag
}

func outcome(pages []Page, err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeSuperseded
	case err != nil:
		return metrics.OutcomeError
	case len(pages) == 1 && pages[0].Fallback:
		return metrics.OutcomeFallback
	}
	return metrics.OutcomeOK
}
