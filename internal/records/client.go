// Package records is the client side of the off-chain deployment ledger. It
// speaks the ledger HTTP API and knows nothing about chain state.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ethforwarder/internal/metrics"
	"ethforwarder/internal/models"
)

// ErrNotFound indicates the referenced deployment record does not exist.
var ErrNotFound = errors.New("deployment not found")

// StoreError is a ledger read/write failure unrelated to chain state.
type StoreError struct {
	Op     string
	Status int
	Err    error
}

func (e *StoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("store %s failed with status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Client talks to the deployment ledger API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a ledger client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// List returns all deployment records in insertion order.
func (c *Client) List(ctx context.Context) ([]models.Deployment, error) {
	timer := time.Now()
	defer func() { metrics.StoreRequestDuration.WithLabelValues("list").Observe(time.Since(timer).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/deployments", nil)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StoreError{Op: "list", Status: resp.StatusCode, Err: decodeAPIError(resp)}
	}

	var deployments []models.Deployment
	if err := json.NewDecoder(resp.Body).Decode(&deployments); err != nil {
		return nil, &StoreError{Op: "list", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return deployments, nil
}

// Create persists a new deployment record. The store assigns id and
// createdAt. Malformed addresses are rejected locally before any request.
func (c *Client) Create(ctx context.Context, in models.InsertDeployment) (*models.Deployment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	timer := time.Now()
	defer func() { metrics.StoreRequestDuration.WithLabelValues("create").Observe(time.Since(timer).Seconds()) }()

	body, err := json.Marshal(in)
	if err != nil {
		return nil, &StoreError{Op: "create", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/deployments", bytes.NewReader(body))
	if err != nil {
		return nil, &StoreError{Op: "create", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &StoreError{Op: "create", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusBadRequest:
		return nil, validationError(resp)
	default:
		return nil, &StoreError{Op: "create", Status: resp.StatusCode, Err: decodeAPIError(resp)}
	}

	var created models.Deployment
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &StoreError{Op: "create", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	metrics.DeploymentsPersisted.Inc()
	return &created, nil
}

// UpdateRecipient changes the stored recipient of record id. Returns
// ErrNotFound when no such record exists.
func (c *Client) UpdateRecipient(ctx context.Context, id int, recipientAddress string) (*models.Deployment, error) {
	if err := models.ValidateAddress("recipientAddress", recipientAddress); err != nil {
		return nil, err
	}

	timer := time.Now()
	defer func() {
		metrics.StoreRequestDuration.WithLabelValues("update_recipient").Observe(time.Since(timer).Seconds())
	}()

	body, err := json.Marshal(models.UpdateRecipientRequest{RecipientAddress: recipientAddress})
	if err != nil {
		return nil, &StoreError{Op: "update_recipient", Err: err}
	}
	url := fmt.Sprintf("%s/api/deployments/%d/recipient", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return nil, &StoreError{Op: "update_recipient", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &StoreError{Op: "update_recipient", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return nil, validationError(resp)
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &StoreError{Op: "update_recipient", Status: resp.StatusCode, Err: decodeAPIError(resp)}
	}

	var updated models.Deployment
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, &StoreError{Op: "update_recipient", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	metrics.RecipientChangesPersisted.Inc()
	return &updated, nil
}

// decodeAPIError extracts the ledger's error message from a non-2xx response.
func decodeAPIError(resp *http.Response) error {
	var apiErr models.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
		return fmt.Errorf("ledger returned %d", resp.StatusCode)
	}
	return errors.New(apiErr.Message)
}

// validationError maps a 400 response to a field-tagged validation error.
func validationError(resp *http.Response) error {
	var apiErr models.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		return &models.ValidationError{Message: fmt.Sprintf("ledger rejected request with status %d", resp.StatusCode)}
	}
	return &models.ValidationError{Field: apiErr.Field, Message: apiErr.Message}
}
