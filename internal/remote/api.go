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

// Product is the result of a barcode lookup. Found=false still carries
// the barcode so callers can record unknown codes. Source tags which
// backing store answered: "server", "openfoodfacts", or "not_found".
type Product struct {
	Barcode    string          `json:"barcode"`
	Name       string          `json:"product_name,omitempty"`
	Brands     string          `json:"brands,omitempty"`
	Categories string          `json:"categories,omitempty"`
	ImageURL   string          `json:"image_url,omitempty"`
	Nutrition  json.RawMessage `json:"nutrition_data,omitempty"`
	Found      bool            `json:"found"`
	Source     string          `json:"source"`
}

// Contribution is a user-submitted product for an unknown barcode.
type Contribution struct {
	Barcode  string `json:"barcode"`
	Name     string `json:"product_name"`
	Brand    string `json:"brands,omitempty"`
	Category string `json:"categories,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	OwnerID  string `json:"contributed_by,omitempty"`
}

// APIClient talks to the remote API server, with the public Open Food
// Facts dataset as a read-only fallback for lookups when the primary
// server is unreachable.
type APIClient struct {
	baseURL     string
	fallbackURL string
	httpClient  *http.Client
}

// NewAPIClient creates a client for the API server at baseURL.
// fallbackURL points at an Open Food Facts compatible v2 API; empty
// disables the fallback.
func NewAPIClient(baseURL, fallbackURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &APIClient{
		baseURL:     baseURL,
		fallbackURL: fallbackURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// apiResponse is the envelope every server endpoint returns.
type apiResponse struct {
	Success bool            `json:"success"`
	Status  string          `json:"status,omitempty"`
	Source  string          `json:"source,omitempty"`
	Product *Product        `json:"product,omitempty"`
	Detail  string          `json:"detail,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Lookup resolves a barcode to product identity. The primary server is
// tried first; on transport failure the public fallback answers. A
// clean not-found is returned as Found=false, not as an error.
func (c *APIClient) Lookup(ctx context.Context, barcode string) (*Product, error) {
	product, err := c.lookupServer(ctx, barcode)
	if err == nil {
		return product, nil
	}
	if c.fallbackURL == "" {
		return nil, err
	}
	product, ferr := c.lookupFallback(ctx, barcode)
	if ferr != nil {
		return nil, fmt.Errorf("lookup failed on server (%v) and fallback: %w", err, ferr)
	}
	return product, nil
}

func (c *APIClient) lookupServer(ctx context.Context, barcode string) (*Product, error) {
	var resp apiResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/barcode/"+url.PathEscape(barcode), &resp); err != nil {
		return nil, err
	}
	if resp.Product != nil {
		if resp.Product.Source == "" {
			resp.Product.Source = "server"
		}
		return resp.Product, nil
	}
	return &Product{Barcode: barcode, Found: false, Source: "not_found"}, nil
}

// offProduct mirrors the subset of the Open Food Facts v2 payload we use.
type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string          `json:"product_name"`
		Brands      string          `json:"brands"`
		Categories  string          `json:"categories"`
		ImageURL    string          `json:"image_url"`
		Nutriments  json.RawMessage `json:"nutriments"`
	} `json:"product"`
}

func (c *APIClient) lookupFallback(ctx context.Context, barcode string) (*Product, error) {
	var off offResponse
	if err := c.getJSON(ctx, c.fallbackURL+"/product/"+url.PathEscape(barcode)+".json", &off); err != nil {
		return nil, err
	}
	if off.Status != 1 {
		return &Product{Barcode: barcode, Found: false, Source: "not_found"}, nil
	}
	return &Product{
		Barcode:    barcode,
		Name:       off.Product.ProductName,
		Brands:     off.Product.Brands,
		Categories: off.Product.Categories,
		ImageURL:   off.Product.ImageURL,
		Nutrition:  off.Product.Nutriments,
		Found:      true,
		Source:     "openfoodfacts",
	}, nil
}

// Contribute submits a user-provided product to the server.
func (c *APIClient) Contribute(ctx context.Context, contrib Contribution) error {
	var resp apiResponse
	if err := c.postJSON(ctx, c.baseURL+"/api/barcode/contribute", contrib, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("contribution rejected: %s", resp.Detail)
	}
	return nil
}

func (c *APIClient) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "pantry/1.0")
	return c.do(req, out)
}

func (c *APIClient) postJSON(ctx context.Context, rawURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pantry/1.0")
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request to %s returned %s", req.URL.Host, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
