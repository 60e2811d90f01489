package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPDocStore implements DocStore against the API server's batch
// endpoints. The server forwards write groups to the real document
// store, preserving the group's atomicity.
type HTTPDocStore struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPDocStore creates a DocStore client for the API server.
func NewHTTPDocStore(baseURL string, timeout time.Duration) *HTTPDocStore {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPDocStore{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Commit implements DocStore. Oversized groups are rejected locally.
func (s *HTTPDocStore) Commit(ctx context.Context, ops []WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > MaxBatchOps {
		return ErrBatchTooLarge
	}
	payload, err := json.Marshal(struct {
		Ops []WriteOp `json:"ops"`
	}{Ops: ops})
	if err != nil {
		return fmt.Errorf("failed to marshal write group: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/store/batch", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("batch commit failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("batch commit returned %s", resp.Status)
	}
	var envelope struct {
		Success bool   `json:"success"`
		Detail  string `json:"detail,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode batch response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("batch commit rejected: %s", envelope.Detail)
	}
	return nil
}

// List implements DocStore.
func (s *HTTPDocStore) List(ctx context.Context, ownerID, collection string) ([]Document, error) {
	u := fmt.Sprintf("%s/api/store/%s?owner=%s",
		s.baseURL, url.PathEscape(collection), url.QueryEscape(ownerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s failed: %w", collection, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("list %s returned %s", collection, resp.Status)
	}
	var envelope struct {
		Success   bool       `json:"success"`
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return envelope.Documents, nil
}

// HTTPProber reports connectivity by probing the API server's health
// endpoint with a short timeout.
type HTTPProber struct {
	healthURL  string
	httpClient *http.Client
}

// NewHTTPProber creates a prober against baseURL's health endpoint.
func NewHTTPProber(baseURL string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProber{
		healthURL:  baseURL + "/health",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Online implements Prober.
func (p *HTTPProber) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
