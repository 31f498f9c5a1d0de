// Package httpserver exposes the compiled index document, the
// fallback page, and a handful of operational endpoints over HTTP.
// Grounded on the teacher's interfaces/http.Server: a gin.Engine with
// Recovery and a structured logging middleware, built once in
// NewServer and started/stopped by the caller.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spaguard/spaguard/internal/diagnostics"
	"github.com/spaguard/spaguard/internal/eventbus"
	"github.com/spaguard/spaguard/internal/fallback"
	"github.com/spaguard/spaguard/internal/htmlcache"
	"github.com/spaguard/spaguard/internal/listeners"
	"github.com/spaguard/spaguard/internal/orchestrator"
	apperrors "github.com/spaguard/spaguard/pkg/errors"
)

// Config controls the HTTP listener.
type Config struct {
	Host string
	Port int
}

// Server serves the cached index document and spaguard's operational
// endpoints.
type Server struct {
	cfg       Config
	logger    *zap.Logger
	engine    *gin.Engine
	http      *http.Server
	orch      *orchestrator.Orchestrator
	fallback  *fallback.Renderer
	listeners *listeners.Listeners
	metrics   *metrics
	startedAt time.Time

	cacheMu sync.RWMutex
	cache   *htmlcache.Cache

	ready atomic.Bool
}

// NewServer builds a Server. cache may be nil initially — SetCache
// installs it once a build completes (or replaces it after a
// re-deploy).
func NewServer(cfg Config, logger *zap.Logger, orch *orchestrator.Orchestrator, fb *fallback.Renderer, ls *listeners.Listeners, bus *eventbus.Bus) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), loggingMiddleware(logger))

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		engine:    engine,
		orch:      orch,
		fallback:  fb,
		listeners: ls,
		metrics:   newMetrics(bus),
		startedAt: time.Now(),
	}
	s.setupRoutes()
	return s
}

// SetCache atomically installs cache as the one served by GET /.
func (s *Server) SetCache(cache *htmlcache.Cache) {
	s.cacheMu.Lock()
	s.cache = cache
	s.cacheMu.Unlock()
	s.ready.Store(true)
}

func (s *Server) currentCache() *htmlcache.Cache {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/metrics", s.handleMetrics)
	s.engine.GET("/debug/retry-state", s.handleDebugRetryState)
	s.engine.POST("/report-error", s.handleReportError)
}

func (s *Server) handleIndex(c *gin.Context) {
	if s.orch.Snapshot().Phase == orchestrator.PhaseFallback {
		body, err := s.fallback.RenderForLanguage(c.GetHeader("Accept-Language"))
		if err != nil {
			diagnostics.Report("httpserver", err)
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
		return
	}

	cache := s.currentCache()
	if cache == nil {
		err := apperrors.NewCacheMissError("index document cache has not been built yet")
		diagnostics.Report("httpserver", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	resp := cache.Get(htmlcache.Request{
		AcceptEncoding: c.GetHeader("Accept-Encoding"),
		AcceptLanguage: c.GetHeader("Accept-Language"),
		IfNoneMatch:    c.GetHeader("If-None-Match"),
	})
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	if resp.Status == http.StatusNotModified {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(resp.Status, "text/html; charset=utf-8", resp.Body)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.String(http.StatusOK, s.metrics.render())
}

func (s *Server) handleDebugRetryState(c *gin.Context) {
	snap := s.orch.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"phase":           snap.Phase,
		"attempt":         snap.Attempt,
		"retryId":         snap.RetryID,
		"lastSource":      snap.LastSource,
		"lastTriggerTime": snap.LastTriggerTime,
		"fallbackEngaged": s.fallback.Engaged(),
	})
}

type reportErrorBody struct {
	Message string `json:"message"`
	Source  string `json:"source"`
}

func (s *Server) handleReportError(c *gin.Context) {
	var body reportErrorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.Source == "" {
		body.Source = "report-error-endpoint"
	}
	s.listeners.ReportError(body.Message, body.Source)
	c.Status(http.StatusAccepted)
}

// Start runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
