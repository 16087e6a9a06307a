// Package server exposes one board session over HTTP: health probes, the REST
// API, and the MCP endpoint share a single mux.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/kanboard/internal/adapters/server/common"
	"github.com/hylla/kanboard/internal/adapters/server/httpapi"
	"github.com/hylla/kanboard/internal/adapters/server/mcpapi"
	"github.com/hylla/kanboard/internal/app"
)

const (
	defaultBindAddress     = "127.0.0.1:8080"
	defaultAPIEndpoint     = "/api/v1"
	defaultMCPEndpoint     = "/mcp"
	defaultServerName      = "kanboard"
	defaultShutdownTimeout = 5 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
}

// Dependencies carries the board session and an optional logger.
type Dependencies struct {
	Board  common.BoardService
	Logger app.Logger
}

// readiness is the /readyz payload.
type readiness struct {
	Status  string `json:"status"`
	Columns int    `json:"columns"`
	Cards   int    `json:"cards"`
	Error   string `json:"error,omitempty"`
}

// NewHandler mounts /healthz, /readyz, the REST API and MCP for one board.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Board == nil {
		return nil, Config{}, errors.New("board dependency is required")
	}

	mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    cfg.ServerName,
		ServerVersion: cfg.ServerVersion,
		EndpointPath:  cfg.MCPEndpoint,
	}, deps.Board)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	api := http.StripPrefix(cfg.APIEndpoint, httpapi.NewHandler(deps.Board))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", readyHandler(deps.Board, deps.Logger))
	mux.Handle(cfg.MCPEndpoint, mcpHandler)
	mux.Handle(cfg.APIEndpoint, api)
	mux.Handle(cfg.APIEndpoint+"/", api)
	return mux, cfg, nil
}

// readyHandler reports ready once the board session answers a read, along with
// its current column and card counts.
func readyHandler(board common.BoardService, logger app.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := board.Board(r.Context())
		if err != nil {
			if logger != nil {
				logger.Warn("readiness check failed", "err", err)
			}
			writeStatus(w, http.StatusServiceUnavailable, readiness{Status: "unavailable", Error: err.Error()})
			return
		}
		writeStatus(w, http.StatusOK, readiness{Status: "ready", Columns: len(snap.Columns), Cards: len(snap.Cards)})
	}
}

func writeStatus(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// Run serves the board until ctx ends, then drains in-flight requests.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, cfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	srv := &http.Server{
		Addr:              cfg.HTTPBind,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	logInfo(deps.Logger, "serving board", "addr", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
	}
	logInfo(deps.Logger, "shutting down board server", "addr", cfg.HTTPBind)
	return drain(srv, serveErr)
}

// drain shuts srv down within defaultShutdownTimeout and waits for its serve loop.
func drain(srv *http.Server, serveErr <-chan error) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(ctx)
	err := <-serveErr
	if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		return fmt.Errorf("shutdown server: %w", shutdownErr)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve after shutdown: %w", err)
	}
	return nil
}

func logInfo(logger app.Logger, msg string, keyvals ...any) {
	if logger != nil {
		logger.Info(msg, keyvals...)
	}
}

// normalizeConfig fills defaults and rejects an API endpoint that collides with MCP.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = orDefault(cfg.HTTPBind, defaultBindAddress)
	cfg.APIEndpoint = normalizeEndpoint(cfg.APIEndpoint, defaultAPIEndpoint)
	cfg.MCPEndpoint = normalizeEndpoint(cfg.MCPEndpoint, defaultMCPEndpoint)
	if cfg.APIEndpoint == cfg.MCPEndpoint {
		return Config{}, fmt.Errorf("api and mcp endpoints must differ, both are %q", cfg.APIEndpoint)
	}
	cfg.ServerName = orDefault(cfg.ServerName, defaultServerName)
	cfg.ServerVersion = orDefault(cfg.ServerVersion, "dev")
	return cfg, nil
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}

// normalizeEndpoint returns path as "/a/b" with no trailing slash; blank or
// root paths fall back.
func normalizeEndpoint(path, fallback string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return fallback
	}
	return "/" + path
}
