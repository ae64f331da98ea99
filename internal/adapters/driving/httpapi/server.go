// Package httpapi serves the retrieval core over HTTP with gin: a public
// search endpoint and a secret-guarded admin group for ingestion.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/logger"
)

// defaultMaxUpload caps multipart upload bodies.
const defaultMaxUpload = 32 << 20

// Ports aggregates the driving ports the HTTP server exposes.
type Ports struct {
	Search driving.SearchService
	Ingest driving.IngestService
	Sync   driving.SyncOrchestrator
	Corpus driving.CorpusService

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Search == nil:
		return errors.New("httpapi: search service is required")
	case p.Ingest == nil:
		return errors.New("httpapi: ingest service is required")
	case p.Sync == nil:
		return errors.New("httpapi: sync orchestrator is required")
	case p.Corpus == nil:
		return errors.New("httpapi: corpus service is required")
	}
	return nil
}

// Config configures the HTTP server.
type Config struct {
	Addr        string
	AdminSecret string
	CORSOrigins []string

	// MaxUploadBytes caps upload bodies. Zero uses 32 MiB.
	MaxUploadBytes int64
}

// Server is the HTTP API server.
type Server struct {
	ports  *Ports
	cfg    Config
	engine *gin.Engine
}

// NewServer builds the router.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.AdminSecret == "" {
		logger.Warn("No admin secret configured: admin endpoints will reject every request")
	}

	s := &Server{ports: ports, cfg: cfg}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(corsMiddleware(s.cfg.CORSOrigins))

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		api.POST("/search", s.search)
		api.POST("/context", s.formatContext)
	}

	admin := api.Group("/admin")
	admin.Use(requireAdmin(s.cfg.AdminSecret))
	{
		admin.POST("/upload", s.upload)
		admin.POST("/text", s.ingestText)
		admin.POST("/sync", s.runSync)
		admin.GET("/sync/status", s.syncStatus)
		admin.GET("/sync/history", s.syncHistory)
		admin.GET("/stats", s.stats)
		admin.GET("/files", s.listFiles)
		admin.DELETE("/files/*name", s.deleteFile)
		admin.POST("/reset", s.reset)
	}

	if s.ports.MCP != nil {
		r.Any("/mcp", gin.WrapH(s.ports.MCP))
	}
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
