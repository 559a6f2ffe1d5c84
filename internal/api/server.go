package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ethforwarder/internal/storage"
)

// Server represents the ledger HTTP API server
// Provides the deployment record endpoints plus health checks and metrics
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	repository storage.Repository
	port       int
}

// NewServer creates a new API server instance
// The repository is made available to all handlers for record access
func NewServer(port int, repository storage.Repository) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:        mux,
		repository: repository,
		port:       port,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Deployment endpoints
	s.mux.HandleFunc("/api/deployments", s.handleDeployments)
	s.mux.HandleFunc("/api/deployments/", s.handleDeploymentRoutes)
}

// handleDeployments routes the collection endpoints (without trailing slash)
func (s *Server) handleDeployments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListDeployments(w, r)
	case http.MethodPost:
		s.handleCreateDeployment(w, r)
	default:
		s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	}
}

// handleDeploymentRoutes routes record sub-endpoints (with trailing slash)
func (s *Server) handleDeploymentRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/deployments/")
	parts := strings.Split(path, "/")

	// PATCH /api/deployments/{id}/recipient
	if len(parts) == 2 && parts[1] == "recipient" {
		if r.Method != http.MethodPatch {
			s.sendError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
			return
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			s.sendError(w, http.StatusBadRequest, "Invalid deployment id", "")
			return
		}
		s.handleUpdateRecipient(w, r, id)
		return
	}

	s.sendError(w, http.StatusNotFound, "Endpoint not found", "")
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("Ledger API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/api/deployments"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Ledger API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Ledger API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
