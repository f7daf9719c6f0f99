package layout

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/style"
	"github.com/gompdf/pagedpreview/internal/text"
)

// MetricsSurface measures blocks without a browser, by laying them out with
// the core font metrics of the PDF generator. It is the default surface.
type MetricsSurface struct {
	lock    lock
	metrics *text.Metrics
	images  ImageProber
}

// NewMetricsSurface creates a metrics surface. images sizes <img> elements
// that declare no dimensions and may be nil.
func NewMetricsSurface(images ImageProber) (*MetricsSurface, error) {
	m, err := text.NewMetrics()
	if err != nil {
		return nil, err
	}
	return &MetricsSurface{lock: newLock(), metrics: m, images: images}, nil
}

// Name returns the surface name.
func (s *MetricsSurface) Name() string { return "metrics" }

// Begin starts a pass. It waits for any open pass on the same surface.
func (s *MetricsSurface) Begin(ctx context.Context, g geometry.Geometry, author []string) (Pass, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	styles, err := style.NewPageStyleEngine(g, author)
	if err != nil {
		return nil, err
	}
	if err := s.lock.acquire(ctx); err != nil {
		return nil, err
	}
	engine := NewEngine(styles, text.NewTextShaper(s.metrics), s.images, g.ContentWidth())
	return &metricsPass{surface: s, engine: engine}, nil
}

type metricsPass struct {
	surface *MetricsSurface
	engine  *Engine

	closed atomic.Bool
}

func (p *metricsPass) Measure(ctx context.Context, b *html.Block) (int, error) {
	if p.closed.Load() {
		return 0, ErrPassClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h, err := p.engine.MeasureBlock(b)
	if err != nil {
		return 0, err
	}
	return ceilPixels(h), nil
}

func (p *metricsPass) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.surface.lock.release()
	}
	return nil
}

// ceilPixels rounds a layout height up to whole pixels. Values within float
// noise of an integer are not bumped to the next pixel.
func ceilPixels(h float64) int {
	return int(math.Ceil(h - 1e-6))
}

var _ Surface = (*MetricsSurface)(nil)
