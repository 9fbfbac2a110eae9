// Package mcp exposes candidate search to chat assistants over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/intent"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

const (
	ServerName  = "candidate-scout"
	StreamPath  = "/mcp/stream"
	HealthPath  = "/healthz"
	DefaultHost = "127.0.0.1"
	DefaultPort = "8085"
)

type Config struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Searcher runs an aggregation. *sourcing.Aggregator satisfies it.
type Searcher interface {
	Aggregate(ctx context.Context, req sourcing.SearchRequest) (sourcing.AggregatedResult, error)
}

// History describes earlier searches similar to the given keywords. *state.Store satisfies it.
type History interface {
	Hints(keywords string, limit int) []string
}

type Deps struct {
	Searcher Searcher
	Parser   intent.Parser
	History  History
	Version  string
}

// Server wraps an MCP server with an HTTP listener.
type Server struct {
	logger *zap.Logger
	mcp    *sdkmcp.Server
	srv    *http.Server

	started atomic.Bool
}

func NewServer(logger *zap.Logger, cfg Config, deps Deps) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if deps.Parser == nil {
		deps.Parser = intent.Heuristic{}
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	mcpServer := sdkmcp.NewServer(&sdkmcp.Implementation{Name: ServerName, Version: deps.Version}, nil)
	registerTools(mcpServer, deps, logger)

	handler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return mcpServer
	}, nil)

	mux := http.NewServeMux()
	mux.Handle(StreamPath, handler)
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		logger: logger,
		mcp:    mcpServer,
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Addr() string { return s.srv.Addr }

// Run blocks until the listener stops. A second call is a no-op.
func (s *Server) Run() error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	s.logger.Info("mcp server listening", zap.String("addr", s.srv.Addr), zap.String("path", StreamPath))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("mcp server shutdown requested")
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("mcp server shutdown with error", zap.Error(err))
		return err
	}
	s.logger.Info("mcp server shutdown complete")
	return nil
}
