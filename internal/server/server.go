package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/atikulmunna/vislog/internal/aggregator"
	"github.com/atikulmunna/vislog/internal/hub"
	"github.com/atikulmunna/vislog/internal/importer"
	"github.com/atikulmunna/vislog/internal/store"
)

// Server holds the Gin engine and dependencies for the dashboard API.
type Server struct {
	engine     *gin.Engine
	store      *store.Store
	importer   *importer.Importer
	hub        *hub.Hub
	aggregator *aggregator.Aggregator
	log        *zap.Logger
	port       int
	origins    []string
}

// Options carries the server's dependencies.
type Options struct {
	Store       *store.Store
	Importer    *importer.Importer
	Hub         *hub.Hub
	Aggregator  *aggregator.Aggregator
	Logger      *zap.Logger
	Port        int
	CORSOrigins []string
}

// New creates the dashboard API server.
func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		engine:     engine,
		store:      opts.Store,
		importer:   opts.Importer,
		hub:        opts.Hub,
		aggregator: opts.Aggregator,
		log:        log,
		port:       opts.Port,
		origins:    opts.CORSOrigins,
	}
	engine.Use(s.requestLogger())

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"entries":        len(s.store.Snapshot().Logs),
			"dropped_events": s.hub.Dropped(),
		})
	})

	api := s.engine.Group("/api")
	api.GET("/logs", s.handleListLogs)
	api.POST("/logs/import", s.handleImport)
	api.GET("/logs/export", s.handleExport)
	api.PUT("/logs", s.handleUpdateLog)
	api.DELETE("/logs", s.handleDeleteLogs)
	api.POST("/filters", s.handleFilter)
	api.DELETE("/filters", s.handleResetFilters)
	api.DELETE("/database", s.handleClearDatabase)
	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.aggregator.Snapshot())
	})

	s.engine.GET("/ws", s.handleWebSocket)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// Handler returns the engine wrapped with CORS for the browser dashboard.
func (s *Server) Handler() http.Handler {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	}).Handler(s.engine)
}

// Start runs the server until the context is cancelled, then shuts it down.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard API listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
