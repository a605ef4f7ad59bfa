package ui

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"killay/app"
	"killay/internal/metrics"
	"killay/ui/middleware"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Options configures the HTTP surface
type Options struct {
	Addr          string
	MaxUploadSize int64
	MetricsPath   string
}

// Server serves the bulk action endpoints
type Server struct {
	router    *gin.Engine
	imports   *app.ImportService
	metrics   *metrics.Recorder
	templates *template.Template
	opts      Options
	logger    *logrus.Entry
}

// NewServer creates a web server; recorder may be nil to disable /metrics
func NewServer(imports *app.ImportService, recorder *metrics.Recorder, opts Options, logger *logrus.Entry) (*Server, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		imports:   imports,
		metrics:   recorder,
		templates: tmpl,
		opts:      opts,
		logger:    logger.WithField("component", "http"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil && s.opts.MetricsPath != "" {
		s.router.GET(s.opts.MetricsPath, gin.WrapH(s.metrics.Handler()))
	}

	bulk := s.router.Group("/bulk-actions")
	bulk.GET("", s.handleListActions)
	bulk.GET("/:action/columns", s.handleColumns)
	bulk.GET("/:action/guide", s.handleGuide)
	bulk.GET("/:action/template", s.handleTemplate)
	limit := middleware.LimitBody(s.opts.MaxUploadSize)
	bulk.POST("/:action/validate", limit, s.handleValidate)
	bulk.POST("/:action", limit, s.handleImport)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.opts.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
