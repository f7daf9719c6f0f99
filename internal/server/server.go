// Package server exposes pagination over HTTP for preview front ends.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/internal/layout"
	"github.com/gompdf/pagedpreview/internal/metrics"
	"github.com/gompdf/pagedpreview/pkg/api"
)

// Config holds HTTP settings
type Config struct {
	BodyLimit    string
	PassTimeout  time.Duration
	AllowOrigins []string
}

// Server serves pagination requests with one shared paginator.
type Server struct {
	echo      *echo.Echo
	paginator *api.Paginator
	config    Config
	log       zerolog.Logger
}

// New creates the server and registers its routes.
func New(p *api.Paginator, cfg Config, log zerolog.Logger) *Server {
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = 30 * time.Second
	}
	s := &Server{echo: echo.New(), paginator: p, config: cfg, log: log}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := s.log.Info()
			if v.Error != nil {
				event = s.log.Warn().Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			metrics.RequestCount.WithLabelValues(v.Method, c.Path(), strconv.Itoa(v.Status)).Inc()
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	if len(cfg.AllowOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: cfg.AllowOrigins}))
	}
	if cfg.BodyLimit != "" {
		e.Use(echomiddleware.BodyLimit(cfg.BodyLimit))
	}

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/api/sizes", s.sizes)
	e.POST("/api/paginate", s.paginate)
	e.POST("/api/preview", s.preview)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Str("backend", s.paginator.Backend()).Msg("preview service listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "backend": s.paginator.Backend()})
}

func (s *Server) sizes(c echo.Context) error {
	out := make([]SizeResponse, 0)
	for _, e := range geometry.Sizes() {
		out = append(out, SizeResponse{Name: string(e.Name), Width: e.Width, Height: e.Height})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) run(c echo.Context) (*PaginateRequest, *api.Result, error) {
	var req PaginateRequest
	if err := c.Bind(&req); err != nil {
		return nil, nil, err
	}
	g, err := req.geometry(s.paginator.Options())
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.config.PassTimeout)
	defer cancel()
	result, err := s.paginator.PaginateWithGeometry(ctx, req.HTML, g)
	if err != nil {
		return nil, nil, err
	}
	return &req, result, nil
}

func (s *Server) paginate(c echo.Context) error {
	_, result, err := s.run(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPaginateResponse(result))
}

func (s *Server) preview(c echo.Context) error {
	req, result, err := s.run(c)
	if err != nil {
		return err
	}
	n, err := req.numbering(s.paginator.Options().Numbering)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	renderer, err := s.paginator.Renderer(result)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().Header().Set("X-Page-Count", strconv.Itoa(len(result.Pages)))
	c.Response().WriteHeader(http.StatusOK)
	if req.Document {
		return renderer.Document(req.Title, result.Pages, n).Render(c.Request().Context(), c.Response().Writer)
	}
	return renderer.Pages(result.Pages, n).Render(c.Request().Context(), c.Response().Writer)
}

// handleError maps pagination errors onto status codes.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "pagination failed"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	case errors.Is(err, geometry.ErrInvalidGeometry):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, "pagination timed out"
	case errors.Is(err, layout.ErrMeasurement), errors.Is(err, layout.ErrSurfaceDetached):
		message = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorResponse{Error: message})
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to write error response")
	}
}
