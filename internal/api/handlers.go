package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ethforwarder/internal/models"
	"ethforwarder/internal/storage"
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "Forwarder Deployment Ledger",
		"version":     "1.0.0",
		"description": "Off-chain ledger of deployed ETH forwarder contracts",
		"endpoints": map[string]string{
			"GET /":                                  "This page - Service information",
			"GET /health":                            "Health check endpoint",
			"GET /metrics":                           "Prometheus metrics for monitoring",
			"GET /api/deployments":                   "List all deployment records",
			"POST /api/deployments":                  "Record a confirmed deployment",
			"PATCH /api/deployments/{id}/recipient":  "Update the stored recipient of a record",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repository.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		s.sendError(w, http.StatusServiceUnavailable, "Store unhealthy", "")
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "forwarder-ledger",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleListDeployments lists all deployment records in insertion order
// GET /api/deployments
func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deployments, err := s.repository.ListDeployments(ctx)
	if err != nil {
		slog.Error("Failed to list deployments", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	if deployments == nil {
		deployments = []models.Deployment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deployments)
}

// handleCreateDeployment records a confirmed deployment
// POST /api/deployments
func (s *Server) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in models.InsertDeployment
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := in.Validate(); err != nil {
		s.sendValidationError(w, err)
		return
	}
	in.ContractAddress = models.ChecksumAddress(in.ContractAddress)
	in.RecipientAddress = models.ChecksumAddress(in.RecipientAddress)
	in.DeployerAddress = models.ChecksumAddress(in.DeployerAddress)

	created, err := s.repository.CreateDeployment(ctx, in)
	if errors.Is(err, storage.ErrDuplicateContract) {
		s.sendError(w, http.StatusBadRequest, "Contract address already recorded", "contractAddress")
		return
	}
	if err != nil {
		slog.Error("Failed to create deployment", "contract", in.ContractAddress, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	slog.Info("Deployment recorded",
		"id", created.ID,
		"contract", created.ContractAddress,
		"network", created.Network,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// handleUpdateRecipient updates the stored recipient of a record
// PATCH /api/deployments/{id}/recipient
func (s *Server) handleUpdateRecipient(w http.ResponseWriter, r *http.Request, id int) {
	ctx := r.Context()

	var in models.UpdateRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := models.ValidateAddress("recipientAddress", in.RecipientAddress); err != nil {
		s.sendValidationError(w, err)
		return
	}

	updated, err := s.repository.UpdateDeploymentRecipient(ctx, id, models.ChecksumAddress(in.RecipientAddress))
	if errors.Is(err, storage.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, "Deployment not found", "")
		return
	}
	if err != nil {
		slog.Error("Failed to update recipient", "id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	slog.Info("Recipient updated", "id", updated.ID, "recipient", updated.RecipientAddress)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// sendError sends a JSON error response in the ledger wire shape
func (s *Server) sendError(w http.ResponseWriter, code int, message, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.APIError{
		Message: message,
		Field:   field,
	})
}

// sendValidationError maps a validation failure to a 400 with its field tag
func (s *Server) sendValidationError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		s.sendError(w, http.StatusBadRequest, vErr.Message, vErr.Field)
		return
	}
	s.sendError(w, http.StatusBadRequest, err.Error(), "")
}
