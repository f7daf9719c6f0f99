package res

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/srwiley/oksvg"
)

// ErrNoIntrinsicSize is returned for images that carry no usable dimensions.
var ErrNoIntrinsicSize = errors.New("image has no intrinsic size")

// Size is the natural size of an image in CSS pixels.
type Size struct {
	Width  float64
	Height float64
}

// ImageSize returns the natural size of an image resource. Raster formats are
// sized from their headers without decoding pixels; SVG uses its viewBox.
func ImageSize(r *Resource) (Size, error) {
	if isSVG(r) {
		icon, err := oksvg.ReadIconStream(bytes.NewReader(r.Data), oksvg.IgnoreErrorMode)
		if err != nil {
			return Size{}, fmt.Errorf("read svg %s: %w", r.URL, err)
		}
		if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
			return Size{}, fmt.Errorf("%s: %w", r.URL, ErrNoIntrinsicSize)
		}
		return Size{Width: icon.ViewBox.W, Height: icon.ViewBox.H}, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(r.Data))
	if err != nil {
		return Size{}, fmt.Errorf("decode image header %s: %w", r.URL, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Size{}, fmt.Errorf("%s: %w", r.URL, ErrNoIntrinsicSize)
	}
	return Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}

// ImageSize loads src and returns its natural size. Sizes are cached with
// the resource.
func (l *Loader) ImageSize(src string) (Size, error) {
	l.cacheLock.RLock()
	if s, ok := l.sizes[src]; ok {
		l.cacheLock.RUnlock()
		return s, nil
	}
	l.cacheLock.RUnlock()

	r, err := l.LoadImage(src)
	if err != nil {
		return Size{}, err
	}
	s, err := ImageSize(r)
	if err != nil {
		return Size{}, err
	}

	l.cacheLock.Lock()
	l.sizes[src] = s
	l.cacheLock.Unlock()
	return s, nil
}

func isSVG(r *Resource) bool {
	if strings.Contains(r.MimeType, "svg") || strings.HasSuffix(strings.ToLower(r.URL), ".svg") {
		return true
	}
	head := r.Data
	if len(head) > 256 {
		head = head[:256]
	}
	return bytes.Contains(head, []byte("<svg"))
}
