package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/parser/html"
	"github.com/gompdf/pagedpreview/internal/style"
)

// containerID is the id of the hidden element blocks are measured in.
const containerID = "pp-measure"

// imageWait bounds how long a measurement waits for images to load.
const imageWait = 2 * time.Second

// BrowserSurface measures blocks with a real layout engine in headless
// Chrome. The browser starts on the first pass and is shared by later passes;
// each pass gets its own tab holding one hidden container that is refilled
// for every block. Tabs never load file URLs, and load HTTP(S) only when
// remote resources are allowed.
type BrowserSurface struct {
	lock     lock
	execPath string
	remote   bool

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewBrowserSurface creates a browser surface. An empty execPath uses
// CHROME_PATH or else the Chrome found on the system.
func NewBrowserSurface(execPath string) *BrowserSurface {
	if execPath == "" {
		execPath = os.Getenv("CHROME_PATH")
	}
	return &BrowserSurface{lock: newLock(), execPath: execPath}
}

// Name returns the surface name.
func (s *BrowserSurface) Name() string { return "browser" }

// AllowRemote lets measurement tabs load HTTP(S) resources.
func (s *BrowserSurface) AllowRemote(allow bool) {
	s.remote = allow
}

// blockedURLs are the URL patterns a measurement tab refuses to load.
func blockedURLs(remote bool) []string {
	if remote {
		return []string{"file://*"}
	}
	return []string{"file://*", "http://*", "https://*"}
}

func (s *BrowserSurface) start() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx != nil {
		return s.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if s.execPath != "" {
		opts = append(opts, chromedp.ExecPath(s.execPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	// the first Run launches the browser
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	s.allocCancel, s.browserCtx, s.browserCancel = allocCancel, browserCtx, browserCancel
	return browserCtx, nil
}

// Begin opens a tab with the page stylesheet for g and an empty container
// as wide as the content box.
func (s *BrowserSurface) Begin(ctx context.Context, g geometry.Geometry, author []string) (Pass, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	pageCSS, err := style.ScopedPageCSS(g, author)
	if err != nil {
		return nil, err
	}
	if err := s.lock.acquire(ctx); err != nil {
		return nil, err
	}
	browserCtx, err := s.start()
	if err != nil {
		s.lock.release()
		return nil, err
	}

	tab, cancel := chromedp.NewContext(browserCtx)
	doc := measurementDocument(pageCSS, g.ContentWidth())
	err = run(ctx, tab,
		network.Enable(),
		network.SetBlockedURLs(blockedURLs(s.remote)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, doc).Do(ctx)
		}),
	)
	if err != nil {
		cancel()
		s.lock.release()
		return nil, fmt.Errorf("%w: prepare measurement page: %v", ErrMeasurement, err)
	}
	return &browserPass{surface: s, tab: tab, cancel: cancel}, nil
}

// Close shuts the browser down. Open passes fail afterwards.
func (s *BrowserSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCancel != nil {
		s.browserCancel()
		s.allocCancel()
		s.browserCtx, s.browserCancel, s.allocCancel = nil, nil, nil
	}
	return nil
}

type browserPass struct {
	surface *BrowserSurface
	tab     context.Context
	cancel  context.CancelFunc

	closed atomic.Bool
}

func (p *browserPass) Measure(ctx context.Context, b *html.Block) (int, error) {
	if p.closed.Load() {
		return 0, ErrPassClosed
	}
	if b == nil {
		return 0, fmt.Errorf("%w: nil block", ErrMeasurement)
	}
	markup, err := json.Marshal(b.Markup)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMeasurement, err)
	}

	var h float64
	err = run(ctx, p.tab, chromedp.Evaluate(fmt.Sprintf(measureScript, containerID, markup, imageWait.Milliseconds()), &h,
		func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
			return ep.WithAwaitPromise(true)
		}))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: block %d: %v", ErrMeasurement, b.Index, err)
	}
	if h < 0 {
		return 0, fmt.Errorf("%w: block %d", ErrSurfaceDetached, b.Index)
	}
	return ceilPixels(h), nil
}

func (p *browserPass) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.cancel()
		p.surface.lock.release()
	}
	return nil
}

// run executes actions in tab and aborts them when ctx is cancelled. The
// tab itself stays open.
func run(ctx context.Context, tab context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func measurementDocument(pageCSS string, width float64) string {
	return `<!DOCTYPE html><html><head><meta charset="utf-8"><style>` + pageCSS + `</style>` +
		`<style>#` + containerID + ` { position: absolute; left: -100000px; top: 0; visibility: hidden; width: ` +
		strconv.FormatFloat(width, 'f', -1, 64) + `px; }</style></head>` +
		`<body><div id="` + containerID + `" class="` + style.ContentClass + `"></div></body></html>`
}

// measureScript fills the container with one block, waits for its images
// and resolves to the container height, or -1 when the container is gone.
const measureScript = `(async function(id, markup, wait) {
	const c = document.getElementById(id);
	if (!c || !c.isConnected) return -1;
	c.innerHTML = markup;
	const pending = Array.from(c.querySelectorAll("img")).filter(img => !img.complete);
	if (pending.length > 0) {
		await Promise.race([
			Promise.all(pending.map(img => new Promise(done => { img.onload = done; img.onerror = done; }))),
			new Promise(done => setTimeout(done, wait)),
		]);
	}
	const h = c.getBoundingClientRect().height;
	c.innerHTML = "";
	return h;
})(%q, %s, %d)`

var _ Surface = (*BrowserSurface)(nil)
