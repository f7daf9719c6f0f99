package layout

import (
	"context"
	"errors"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/res"
)

var (
	// ErrMeasurement is returned when a block cannot be measured.
	ErrMeasurement = errors.New("measurement failed")
	// ErrSurfaceDetached is returned when the browser container is gone.
	ErrSurfaceDetached = errors.New("measurement container detached")
	// ErrPassClosed is returned by Measure after Close.
	ErrPassClosed = errors.New("measurement pass closed")
)

// Surface measures the rendered height of top-level blocks at a fixed
// content width. A surface serves one pass at a time; Begin blocks while
// another pass is open on the same instance.
type Surface interface {
	// Begin starts a pass for a geometry. author holds the document's own
	// stylesheets and is applied after the built-in defaults.
	Begin(ctx context.Context, g geometry.Geometry, author []string) (Pass, error)
	Name() string
}

// Pass measures blocks for one pagination run.
type Pass interface {
	// Measure returns the block's outer height in whole pixels, margins
	// included, rounded up.
	Measure(ctx context.Context, b *html.Block) (int, error)
	Close() error
}

// ImageProber reports the natural size of an image source.
type ImageProber interface {
	ImageSize(src string) (res.Size, error)
}

// lock is a mutex that can be acquired under a context.
type lock chan struct{}

func newLock() lock { return make(lock, 1) }

func (l lock) acquire(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l lock) release() { <-l }
