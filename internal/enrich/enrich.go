// Package enrich suggests link metadata (a short description and a category)
// using Anthropic's Messages API.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/devhub-tools/devhub/internal/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

// Models lists the models devhub has been checked against.
var Models = []string{
	"claude-sonnet-4-5-20250929",
	"claude-haiku-4-5-20251001",
	"claude-opus-4-5-20251101",
}

// KnownModel reports whether model is listed in Models.
func KnownModel(model string) bool {
	return slices.Contains(Models, model)
}

// ErrNoAPIKey is returned when enrichment is requested without an API key.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// Suggestion is the enrichment result for one link.
type Suggestion struct {
	Description string `json:"description"`
	CategoryID  string `json:"categoryId"`
}

// Fallback is the suggestion used when the model reply cannot be parsed.
func Fallback(name string) Suggestion {
	return Suggestion{
		Description: fmt.Sprintf("Quick link to %s", name),
		CategoryID:  types.AllCategoryID,
	}
}

// Config holds enricher settings.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint (tests, proxies)
	BaseURL string

	// Timeout bounds one request (default: 30s)
	Timeout time.Duration

	Logger *log.Logger
}

// Client calls the Messages API.
type Client struct {
	client anthropic.Client
	model  string
	logger *log.Logger
}

// New creates a client. It returns ErrNoAPIKey when cfg has no API key.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[enrich] ", log.LstdFlags)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		logger: cfg.Logger,
	}, nil
}

// Model returns the configured model id.
func (c *Client) Model() string { return c.model }

// Enhance asks the model for a description and category for the link.
// The category is chosen from categories; the caller still validates it.
// A reply that is not the expected JSON yields Fallback(name).
func (c *Client) Enhance(ctx context.Context, name, url string, categories []types.Category) (Suggestion, error) {
	text, err := c.complete(ctx, buildPrompt(name, url, categories), 256)
	if err != nil {
		return Suggestion{}, fmt.Errorf("enhance %q: %w", name, err)
	}

	s, ok := parseSuggestion(text)
	if !ok {
		c.logger.Printf("Unparseable enrichment reply for %q, using fallback", name)
		return Fallback(name), nil
	}
	return s, nil
}

// ConnectionResult reports the outcome of TestConnection.
type ConnectionResult struct {
	Success bool
	Latency time.Duration
	Message string
}

// TestConnection sends a minimal request and reports whether it succeeded.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	start := time.Now()
	if _, err := c.complete(ctx, "Test", 10); err != nil {
		return ConnectionResult{Message: errorMessage(err)}
	}
	return ConnectionResult{
		Success: true,
		Latency: time.Since(start),
		Message: fmt.Sprintf("Connected with %s", c.model),
	}
}

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func buildPrompt(name, url string, categories []types.Category) string {
	ids := make([]string, 0, len(categories))
	for _, cat := range categories {
		if cat.ID != types.AllCategoryID {
			ids = append(ids, cat.ID)
		}
	}
	if len(ids) == 0 {
		for _, cat := range types.DefaultCategories()[1:] {
			ids = append(ids, cat.ID)
		}
	}

	return fmt.Sprintf(`Based on the app name %q and the URL %q, provide a concise one-sentence description (max 100 chars) and categorize it into one of these: %s, or general.

Reply with only a JSON object of the form {"description": "...", "categoryId": "..."}.`,
		name, url, strings.Join(ids, ", "))
}

// parseSuggestion extracts the JSON object from a model reply. Replies
// wrapped in prose or code fences are accepted.
func parseSuggestion(text string) (Suggestion, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Suggestion{}, false
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &s); err != nil {
		return Suggestion{}, false
	}
	if s.Description == "" && s.CategoryID == "" {
		return Suggestion{}, false
	}
	return s, true
}

func errorMessage(err error) string {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("status=%d: %s", apiErr.StatusCode, strings.TrimSpace(apiErr.Error()))
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Connection failed"
}
