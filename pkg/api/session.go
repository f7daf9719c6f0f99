package api

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/gompdf/pagedpreview/internal/metrics"
)

var (
	// ErrSuperseded is returned by an Update that a newer Update replaced.
	// Its result is discarded.
	ErrSuperseded = errors.New("pagination superseded by a newer update")
	// ErrNoResult is returned by Render before any Update completed.
	ErrNoResult = errors.New("no pagination result yet")
)

// Session keeps the latest pagination of an edited document. Updates with an
// unchanged (html, geometry) pair are answered from cache; a newer Update
// cancels an in-flight one (last write wins). Numbering is a rendering
// concern and never triggers measurement.
type Session struct {
	p *Paginator

	mu        sync.Mutex
	seq       uint64
	cancel    context.CancelFunc
	last      *Result
	lastKey   string
	numbering Numbering
}

// NewSession creates a session using the paginator's numbering.
func (p *Paginator) NewSession() *Session {
	return &Session{p: p, numbering: p.options.Numbering}
}

func sessionKey(content string, g Geometry) string {
	return g.Key() + "\x00" + content
}

// Update paginates content for g unless the same pair was paginated last.
func (s *Session) Update(ctx context.Context, content string, g Geometry) (*Result, error) {
	key := sessionKey(content, g)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.last != nil && s.lastKey == key {
		last := s.last
		s.mu.Unlock()
		metrics.CacheHits.Inc()
		return last, nil
	}
	passCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	result, err := s.p.PaginateWithGeometry(passCtx, content, g)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()
	if seq != s.seq {
		return nil, ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		return nil, err
	}
	s.last, s.lastKey = result, key
	return result, nil
}

// Result returns the latest completed result, or nil.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// SetNumbering changes the page number decoration of later renders.
func (s *Session) SetNumbering(n Numbering) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.numbering = n
	s.mu.Unlock()
	return nil
}

// Numbering returns the current page number decoration.
func (s *Session) Numbering() Numbering {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numbering
}

// Render writes the latest completed result.
func (s *Session) Render(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	last, n := s.last, s.numbering
	s.mu.Unlock()
	if last == nil {
		return ErrNoResult
	}
	return s.p.RenderWithNumbering(ctx, w, last, n)
}
