// Package conversations is the client for the conversation-persistence
// collaborator. The host creates a conversation before starting a
// retrieval run; all requests are tenant-scoped via the tenant header.
package conversations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrBaseURLRequired indicates a client constructed without a backend URL.
	ErrBaseURLRequired = errors.New("conversations base url is required")
	// ErrTenantRequired indicates a missing tenant slug.
	ErrTenantRequired = errors.New("tenant is required")
)

const tenantHeader = "tenant"

// Conversation is one persisted conversation.
type Conversation struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Client talks to the conversation-persistence API.
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

// Create persists a new conversation and returns it.
func (c *Client) Create(ctx context.Context, title string) (Conversation, error) {
	if c == nil || c.baseURL == "" {
		return Conversation{}, ErrBaseURLRequired
	}
	if c.tenant == "" {
		return Conversation{}, ErrTenantRequired
	}

	body, err := json.Marshal(map[string]string{"title": strings.TrimSpace(title)})
	if err != nil {
		return Conversation{}, fmt.Errorf("marshal conversation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/conversations", bytes.NewReader(body))
	if err != nil {
		return Conversation{}, fmt.Errorf("build conversation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tenantHeader, c.tenant)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Conversation{}, fmt.Errorf("conversations endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var conversation Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conversation); err != nil {
		return Conversation{}, fmt.Errorf("decode conversation: %w", err)
	}
	if conversation.ID == "" {
		return Conversation{}, errors.New("conversation response is missing an id")
	}
	return conversation, nil
}
