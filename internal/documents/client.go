// Package documents resolves document_id references from evidence into
// source metadata: display name and named hyperlinks (download,
// streaming, image variants).
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arc/internal/retriever"
)

// ErrBaseURLRequired indicates a client constructed without a backend URL.
var ErrBaseURLRequired = errors.New("documents base url is required")

const tenantHeader = "tenant"

// SourceMetadata describes one retrievable document.
type SourceMetadata struct {
	ID    string                    `json:"id"`
	Name  string                    `json:"name"`
	Links map[string]retriever.Link `json:"links"`
}

// Client talks to the document source-metadata API.
type Client struct {
	baseURL    string
	tenant     string
	httpClient *http.Client
}

// Config configures the client.
type Config struct {
	BaseURL    string
	Tenant     string
	HTTPClient *http.Client
}

// New constructs a client with sane defaults.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		tenant:     strings.TrimSpace(cfg.Tenant),
		httpClient: httpClient,
	}
}

// Resolve fetches source metadata for one document id.
func (c *Client) Resolve(ctx context.Context, documentID string) (SourceMetadata, error) {
	if c == nil || c.baseURL == "" {
		return SourceMetadata{}, ErrBaseURLRequired
	}
	id := strings.TrimSpace(documentID)
	if id == "" {
		return SourceMetadata{}, errors.New("document id is required")
	}

	endpoint := c.baseURL + "/api/documents/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return SourceMetadata{}, fmt.Errorf("build document request: %w", err)
	}
	if c.tenant != "" {
		req.Header.Set(tenantHeader, c.tenant)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SourceMetadata{}, fmt.Errorf("resolve document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return SourceMetadata{}, fmt.Errorf("document %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return SourceMetadata{}, fmt.Errorf("documents endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var metadata SourceMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return SourceMetadata{}, fmt.Errorf("decode document metadata: %w", err)
	}
	return metadata, nil
}
