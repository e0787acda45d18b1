// Package server provides the HTTP API for Kabati.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mavazi/kabati/internal/config"
	"github.com/mavazi/kabati/internal/ingest"
	"github.com/mavazi/kabati/internal/keyword"
	"github.com/mavazi/kabati/internal/search"
	"github.com/mavazi/kabati/internal/storage"
)

// Server is the HTTP server for the Kabati API.
type Server struct {
	searcher *search.Service
	ingestor *ingest.Ingestor
	storage  storage.Storage
	metadata keyword.MetadataIndex
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	searcher *search.Service,
	ingestor *ingest.Ingestor,
	store storage.Storage,
	metadata keyword.MetadataIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		searcher: searcher,
		ingestor: ingestor,
		storage:  store,
		metadata: metadata,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/wardrobe/visual-search", s.handleVisualSearch)
	r.Post("/api/v1/wardrobe/items", s.handleUploadItem)
	r.Get("/api/v1/wardrobe/items", s.handleListItems)
	r.Get("/api/v1/wardrobe/items/{id}", s.handleGetItem)
	r.Delete("/api/v1/wardrobe/items/{id}", s.handleDeleteItem)
	r.Post("/api/v1/wardrobe/items/{id}/worn", s.handleMarkWorn)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
