// Package backup is the transport to the spreadsheet-style backup endpoint.
//
// The endpoint speaks a tiny protocol:
//
//	POST <endpoint>               {"action":"push","data":[links],"categories":[categories]}
//	                              -> body "Success" on success
//	GET  <endpoint>?action=pull   -> {"data":[links],"categories":[categories]}
//
// The client is stateless. Failures are logged and folded into the result:
// Push reports false and Pull reports nil. There is no retry.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/devhub-tools/devhub/internal/types"
)

// SuccessBody is the exact response body the endpoint returns for a push it
// accepted.
const SuccessBody = "Success"

// ActionPush and ActionPull are the protocol actions.
const (
	ActionPush = "push"
	ActionPull = "pull"
)

// PushRequest is the body of a push.
type PushRequest struct {
	Action     string           `json:"action"`
	Data       []types.LinkItem `json:"data"`
	Categories []types.Category `json:"categories"`
}

// Data is a pulled backup.
type Data struct {
	Links      []types.LinkItem `json:"data"`
	Categories []types.Category `json:"categories"`
}

// Config holds client settings.
type Config struct {
	// Timeout bounds one request (default: 30s)
	Timeout time.Duration

	// Logger for transport failures (default: stderr logger with [backup] prefix)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Logger:  log.New(os.Stderr, "[backup] ", log.LstdFlags),
	}
}

// Client pushes to and pulls from a backup endpoint.
type Client struct {
	client *http.Client
	logger *log.Logger
}

// New creates a client with default configuration.
func New() *Client {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a client with the given configuration.
func NewWithConfig(cfg *Config) *Client {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger,
	}
}

// Push sends the full link and category sets to endpoint. It returns true
// only when the endpoint answered 2xx with the body "Success".
func (c *Client) Push(ctx context.Context, endpoint string, links []types.LinkItem, categories []types.Category) bool {
	if endpoint == "" {
		return false
	}
	if err := c.push(ctx, endpoint, links, categories); err != nil {
		c.logger.Printf("Cloud Sync Error: %v", err)
		return false
	}
	return true
}

func (c *Client) push(ctx context.Context, endpoint string, links []types.LinkItem, categories []types.Category) error {
	if links == nil {
		links = []types.LinkItem{}
	}
	if categories == nil {
		categories = []types.Category{}
	}

	payload, err := json.Marshal(PushRequest{Action: ActionPush, Data: links, Categories: categories})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	// The script endpoint only accepts simple requests.
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read push response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push rejected: %s", resp.Status)
	}
	if string(body) != SuccessBody {
		return fmt.Errorf("push rejected: %q", truncate(string(body), 200))
	}
	return nil
}

// Pull fetches the backup from endpoint. It returns nil on any failure.
// Fields missing from the response come back as empty slices.
func (c *Client) Pull(ctx context.Context, endpoint string) *Data {
	if endpoint == "" {
		return nil
	}
	data, err := c.pull(ctx, endpoint)
	if err != nil {
		c.logger.Printf("Cloud Fetch Error: %v", err)
		return nil
	}
	return data
}

func (c *Client) pull(ctx context.Context, endpoint string) (*Data, error) {
	pullURL, err := PullURL(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("pull rejected: %s", resp.Status)
	}

	dec := json.NewDecoder(resp.Body)
	var data *Data
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode pull response: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("pull response is not an object")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("pull response has trailing data")
	}
	if data.Links == nil {
		data.Links = []types.LinkItem{}
	}
	if data.Categories == nil {
		data.Categories = []types.Category{}
	}
	return data, nil
}

// PullURL adds action=pull to the endpoint's query, keeping any existing
// parameters.
func PullURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set("action", ActionPull)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
