package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedpreview/internal/layout"
	"github.com/gompdf/pagedpreview/pkg/api"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	p, err := api.New(api.WithNumbering(api.Numbering{Enabled: true, Format: "{page}"}))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return New(p, Config{BodyLimit: "1M", PassTimeout: 5 * time.Second}, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// two 15px Courier lines per paragraph on a 120px wide, 100px tall page
const courierGeometry = `"geometry": {"page_width": 120, "page_height": 100, "font_family": "Courier", "font_size": 10, "line_height": 1.5}`

func paragraphs(n int) string {
	return strings.Repeat(`<p style=\"margin:0\">aaaa aaaa aaaa aaaa aaaa aaaa</p>`, n)
}

func TestHealthAndSizes(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend":"metrics"`)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36, "request ids are uuids")

	rec = do(t, s, http.MethodGet, "/api/sizes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sizes []SizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sizes))
	assert.Contains(t, sizes, SizeResponse{Name: "A4", Width: 794, Height: 1123})
	assert.Len(t, sizes, 5)
}

func TestPaginateEndpoint(t *testing.T) {
	s := newTestServer(t)
	body := fmt.Sprintf(`{"html": "%s", %s}`, paragraphs(5), courierGeometry)

	rec := do(t, s, http.MethodPost, "/api/paginate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PaginateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.PageCount)
	assert.Equal(t, []int{0, 1, 2}, resp.Pages[0].Blocks)
	assert.Equal(t, []int{30, 30, 30}, resp.Pages[0].Heights)
	assert.Equal(t, 90, resp.Pages[0].Height)
	assert.Equal(t, 120.0, resp.Geometry.ContentWidth)
	assert.NotEmpty(t, resp.ID)
}

func TestPaginateEndpointPageOptions(t *testing.T) {
	s := newTestServer(t)
	body := `{"html": "<p>x</p>", "page": {"size": "letter", "orientation": "landscape", "margins": {"Top": 25.4, "Right": 0, "Bottom": 25.4, "Left": 0}}}`

	rec := do(t, s, http.MethodPost, "/api/paginate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp PaginateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1056.0, resp.Geometry.PageWidth)
	assert.Equal(t, 624.0, resp.Geometry.ContentHeight)
}

func TestPaginateEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/paginate", `{"html": "<p>x</p>", "geometry": {"page_width": 0, "page_height": 100}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid page geometry")

	rec = do(t, s, http.MethodPost, "/api/paginate", `{"html": "<p>x</p>", "page": {"size": "B7"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/paginate", `{"html": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/preview", `{"html": "<p>x</p>", "numbering": {"enabled": true, "vertical": "middle"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeasurementFailureIsServerError(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/paginate", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	s.handleError(fmt.Errorf("measure block 3 <table>: %w", layout.ErrMeasurement), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "measurement failed")
}

func TestPreviewEndpoint(t *testing.T) {
	s := newTestServer(t)
	body := fmt.Sprintf(`{"html": "%s", %s}`, paragraphs(5), courierGeometry)

	rec := do(t, s, http.MethodPost, "/api/preview", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, echo.MIMETextHTMLCharsetUTF8, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "2", rec.Header().Get("X-Page-Count"))
	out := rec.Body.String()
	assert.Equal(t, 2, strings.Count(out, `class="pp-page"`))
	assert.Equal(t, 2, strings.Count(out, `class="pp-page-number"`))

	body = fmt.Sprintf(`{"html": "<p>one</p>", %s, "document": true, "title": "Deed"}`, courierGeometry)
	rec = do(t, s, http.MethodPost, "/api/preview", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>"))
	assert.NotContains(t, rec.Body.String(), `class="pp-page-number"`, "a single page is not numbered")
}

func TestPreviewRefusesLocalFilesAndOtherHosts(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "secret.css")
	require.NoError(t, os.WriteFile(secret, []byte(".vault { content: \"hunter2\" }"), 0o644))

	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	markup := fmt.Sprintf(`<link rel=stylesheet href="%s"><link rel=stylesheet href="file://%s">`+
		`<p>x<img src="%s/internal"></p>`, secret, secret, upstream.URL)
	body, err := json.Marshal(map[string]any{"html": markup})
	require.NoError(t, err)

	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/preview", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Zero(t, hits.Load(), "no request reaches the other host")

	rec = do(t, s, http.MethodPost, "/api/paginate", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, hits.Load())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/paginate", fmt.Sprintf(`{"html": "<p>x</p>", %s}`, courierGeometry))

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pagedpreview_passes_total")
	assert.Contains(t, rec.Body.String(), "pagedpreview_requests_total")
}
