package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/framecut/framecut-agent/internal/catalog"
	"github.com/framecut/framecut-agent/internal/crop"
	"github.com/framecut/framecut-agent/internal/imaging"
	"github.com/framecut/framecut-agent/internal/preview"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port          int
	AssetService  catalog.AssetService
	PreviewServer preview.PreviewService
	Repository    catalog.Repository
	Runner        *catalog.Runner
	Controller    *crop.Controller
	// ExportDir is the default base directory for export runs when a
	// request does not name one.
	ExportDir string
	// PreferredSize is the target output resolution for exports.
	PreferredSize imaging.Size
	Logger        *slog.Logger
	StartTime     time.Time
	DeviceID      string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler: router,
			// WriteTimeout stays zero: export streams are open-ended.
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
