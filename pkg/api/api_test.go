package api

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/layout"
	"github.com/gompdf/pagedpreview/internal/parser/html"
)

// countingSurface measures a block as its data-h attribute and counts calls.
// Blocks marked data-block wait until the pass is cancelled.
type countingSurface struct {
	mu       sync.Mutex
	measured int
	blocking chan struct{} // closed when a blocking block is reached
	once     sync.Once
}

func newCountingSurface() *countingSurface {
	return &countingSurface{blocking: make(chan struct{})}
}

func (s *countingSurface) Name() string { return "counting" }

func (s *countingSurface) Begin(ctx context.Context, _ geometry.Geometry, _ []string) (layout.Pass, error) {
	return &countingPass{s: s}, nil
}

func (s *countingSurface) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.measured
}

type countingPass struct{ s *countingSurface }

func (p *countingPass) Measure(ctx context.Context, b *html.Block) (int, error) {
	p.s.mu.Lock()
	p.s.measured++
	p.s.mu.Unlock()

	if _, ok := b.Nodes[0].Attribute("data-block"); ok {
		p.s.once.Do(func() { close(p.s.blocking) })
		<-ctx.Done()
		return 0, ctx.Err()
	}
	v, _ := b.Nodes[0].Attribute("data-h")
	h, _ := strconv.Atoi(v)
	return h, nil
}

func (p *countingPass) Close() error { return nil }

func testGeometry() Geometry {
	return Geometry{
		PageWidth:  120,
		PageHeight: 1000,
		WhiteSpace: WhiteSpaceNormal,
		TabSize:    8,
		Font:       Font{Family: "Courier", Size: 10, LineHeight: 1.5},
	}
}

func newTestPaginator(t *testing.T, s layout.Surface, opts ...Option) *Paginator {
	t.Helper()
	options := DefaultOptions()
	g := testGeometry()
	options.Geometry = &g
	for _, opt := range opts {
		opt(&options)
	}
	p, err := newPaginator(options, s, &imageSource{})
	require.NoError(t, err)
	return p
}

func TestPaginateScenarios(t *testing.T) {
	p := newTestPaginator(t, newCountingSurface(), WithTolerance(0))
	ctx := context.Background()

	r, err := p.Paginate(ctx, `<p data-h="400">a</p><p data-h="400">b</p><p data-h="400">c</p>`)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {2}}, r.Boundaries())
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "counting", r.Backend)

	r, err = p.Paginate(ctx, `<table data-h="1500"><tr><td>x</td></tr></table>`)
	require.NoError(t, err)
	require.Len(t, r.Pages, 1)
	assert.Equal(t, 1500, r.Pages[0].AccumulatedHeight)
	summary := r.Summary()
	assert.True(t, summary[0].Oversized)
	assert.Equal(t, []string{"table"}, summary[0].Tags)

	r, err = p.Paginate(ctx, "")
	require.NoError(t, err)
	require.Len(t, r.Pages, 1, "empty input still yields one page")
	assert.True(t, r.Pages[0].Fallback)
}

func TestPaginateRejectsBadGeometry(t *testing.T) {
	s := newCountingSurface()
	p := newTestPaginator(t, s)
	g := testGeometry()
	g.PageHeight = -1
	_, err := p.PaginateWithGeometry(context.Background(), `<p data-h="1">x</p>`, g)
	assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
	assert.Zero(t, s.count())

	bad, err := New(WithPageSize("B5"))
	require.NoError(t, err, "page options are resolved per pass")
	_, err = bad.Paginate(context.Background(), "<p>x</p>")
	assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(WithBackend("gpu"))
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = New(WithNumbering(Numbering{Horizontal: "middle"}))
	assert.Error(t, err)
}

func TestSessionCachesUnchangedInput(t *testing.T) {
	s := newCountingSurface()
	p := newTestPaginator(t, s)
	sess := p.NewSession()
	ctx := context.Background()
	content := `<p data-h="10">a</p><p data-h="20">b</p>`

	first, err := sess.Update(ctx, content, testGeometry())
	require.NoError(t, err)
	assert.Equal(t, 2, s.count())

	again, err := sess.Update(ctx, content, testGeometry())
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 2, s.count(), "a cache hit does not re-measure")

	g := testGeometry()
	g.WhiteSpace = WhiteSpacePre
	_, err = sess.Update(ctx, content, g)
	require.NoError(t, err)
	assert.Equal(t, 4, s.count(), "a geometry change re-measures")

	_, err = sess.Update(ctx, content+`<p data-h="1">c</p>`, g)
	require.NoError(t, err)
	assert.Equal(t, 7, s.count(), "a content change re-measures")
}

func TestSessionNumberingDoesNotRemeasure(t *testing.T) {
	s := newCountingSurface()
	p := newTestPaginator(t, s)
	sess := p.NewSession()
	ctx := context.Background()

	var buf bytes.Buffer
	assert.ErrorIs(t, sess.Render(ctx, &buf), ErrNoResult)

	_, err := sess.Update(ctx, `<p data-h="600">a</p><p data-h="600">b</p>`, testGeometry())
	require.NoError(t, err)
	measured := s.count()

	require.NoError(t, sess.Render(ctx, &buf))
	assert.NotContains(t, buf.String(), `class="pp-page-number"`)

	require.NoError(t, sess.SetNumbering(Numbering{Enabled: true, Horizontal: AlignEnd, Vertical: AlignBottom, Format: "{page}/{total}"}))
	buf.Reset()
	require.NoError(t, sess.Render(ctx, &buf))
	assert.Contains(t, buf.String(), ">2/2</div>")
	assert.Equal(t, measured, s.count())

	assert.Error(t, sess.SetNumbering(Numbering{Vertical: "middle"}))
	assert.Equal(t, AlignEnd, sess.Numbering().Horizontal)
}

func TestSessionLastWriteWins(t *testing.T) {
	s := newCountingSurface()
	p := newTestPaginator(t, s)
	sess := p.NewSession()
	ctx := context.Background()

	stale := make(chan error, 1)
	go func() {
		_, err := sess.Update(ctx, `<p data-h="10">a</p><div data-block="">slow</div><p data-h="10">c</p>`, testGeometry())
		stale <- err
	}()
	<-s.blocking

	fresh, err := sess.Update(ctx, `<h1 data-h="30">new</h1>`, testGeometry())
	require.NoError(t, err)
	assert.ErrorIs(t, <-stale, ErrSuperseded)

	assert.Same(t, fresh, sess.Result(), "the superseded pass never replaces the newer result")
	assert.Equal(t, [][]int{{0}}, fresh.Boundaries())
}

func TestPaginateResolvesImagesAgainstFile(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "seal.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 30, 20))))
	require.NoError(t, f.Close())

	docPath := filepath.Join(dir, "deed.html")
	require.NoError(t, os.WriteFile(docPath, []byte(`<img src="seal.png">`), 0o644))

	p, err := New(WithGeometry(testGeometry()))
	require.NoError(t, err)
	defer p.Close()

	r, err := p.PaginateFile(context.Background(), docPath)
	require.NoError(t, err)
	require.Len(t, r.Pages, 1)
	assert.Equal(t, 25, r.Pages[0].AccumulatedHeight, "natural image height on the baseline plus the strut descent")

	r, err = p.Paginate(context.Background(), `<img src="seal.png">`)
	require.NoError(t, err)
	assert.Zero(t, r.Pages[0].AccumulatedHeight, "without a base the image cannot be found")

	_, err = p.PaginateFile(context.Background(), filepath.Join(dir, "missing.html"))
	assert.Error(t, err)
}

func TestPaginateFollowsStylesheetLinks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "theme.css"), []byte("p { margin: 0 }"), 0o644))
	docPath := filepath.Join(dir, "deed.html")
	doc := `<link rel="stylesheet" href="theme.css"><link rel="stylesheet" href="missing.css"><p>aaaa</p>`
	require.NoError(t, os.WriteFile(docPath, []byte(doc), 0o644))

	p, err := New(WithGeometry(testGeometry()))
	require.NoError(t, err)
	defer p.Close()

	r, err := p.PaginateFile(context.Background(), docPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"p { margin: 0 }"}, r.Stylesheets, "a missing sheet is skipped")
	assert.Equal(t, 15, r.Pages[0].AccumulatedHeight)

	r, err = p.Paginate(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, r.Stylesheets)
	assert.Equal(t, 35, r.Pages[0].AccumulatedHeight, "default paragraph margins apply")
}

func TestPaginateRemoteImagesNeedOptIn(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, image.NewRGBA(image.Rect(0, 0, 30, 20)))
	}))
	defer srv.Close()
	markup := `<img src="` + srv.URL + `/seal.png">`

	p, err := New(WithGeometry(testGeometry()))
	require.NoError(t, err)
	defer p.Close()
	r, err := p.Paginate(context.Background(), markup)
	require.NoError(t, err)
	assert.Zero(t, r.Pages[0].AccumulatedHeight)
	assert.Zero(t, hits.Load())

	p, err = New(WithGeometry(testGeometry()), WithRemoteResources(true))
	require.NoError(t, err)
	defer p.Close()
	r, err = p.Paginate(context.Background(), markup)
	require.NoError(t, err)
	assert.Equal(t, 25, r.Pages[0].AccumulatedHeight)
	assert.Equal(t, int32(1), hits.Load())
}

func TestPaginateWithMetricsBackend(t *testing.T) {
	g := testGeometry()
	g.PageHeight = 100
	p, err := New(WithGeometry(g), WithStylesheet("p { margin: 0 }"))
	require.NoError(t, err)
	assert.Equal(t, "metrics", p.Backend())

	// each paragraph wraps to two 15px lines at 20 characters per line
	para := "<p>" + strings.TrimSpace(strings.Repeat("aaaa ", 6)) + "</p>"
	r, err := p.Paginate(context.Background(), strings.Repeat(para, 5))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4}}, r.Boundaries())
	assert.Equal(t, []string{"p { margin: 0 }"}, r.Stylesheets)

	out, err := p.RenderString(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, `class="pp-page"`))
	assert.Contains(t, out, ".pp-page-content p { margin: 0; }")
}

func TestSanitize(t *testing.T) {
	p, err := New(WithGeometry(testGeometry()), WithSanitize(true))
	require.NoError(t, err)
	r, err := p.Paginate(context.Background(), `<p onclick="steal()">a</p><script>alert(1)</script><p>b</p>`)
	require.NoError(t, err)

	var markup strings.Builder
	for _, pg := range r.Pages {
		markup.WriteString(pg.Markup())
	}
	assert.NotContains(t, markup.String(), "onclick")
	assert.NotContains(t, markup.String(), "alert")
	assert.Contains(t, markup.String(), "<p>a</p>")
}

func TestRenderDocument(t *testing.T) {
	p := newTestPaginator(t, newCountingSurface(), WithNumbering(Numbering{Enabled: true, Format: "{page}"}))
	r, err := p.Paginate(context.Background(), `<p data-h="900">a</p><p data-h="900">b</p>`)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.RenderDocument(context.Background(), &buf, r, "Deed"))
	assert.Contains(t, buf.String(), "<title>Deed</title>")
	assert.Contains(t, buf.String(), `data-page="2"`)
	assert.Contains(t, buf.String(), ">2</div>")
}

func TestOptionsResolveGeometry(t *testing.T) {
	o := DefaultOptions()
	WithPageSize(SizeLetter)(&o)
	WithOrientation(Landscape)(&o)
	WithMargins(25.4, 25.4, 25.4, 25.4)(&o)
	g, err := o.ResolveGeometry()
	require.NoError(t, err)
	assert.Equal(t, 1056.0, g.PageWidth)
	assert.Equal(t, 816.0, g.PageHeight)
	assert.Equal(t, 96.0, g.Padding.Left)
	assert.Equal(t, 864.0, g.ContentWidth())
}
