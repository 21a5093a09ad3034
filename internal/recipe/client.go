package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeGenerator = (*Client)(nil)

// textFields are the response fields that may carry the generated text, in
// lookup order.
var textFields = []string{"output", "result", "text"}

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// request is the body sent to the endpoint.
type request struct {
	Input string `json:"input"`
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithToken sends "Authorization: Bearer <token>" with every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHTTPTimeout sets the HTTP client timeout. Zero means no timeout beyond
// the network stack's own.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// Client posts prompts to the recipe generation endpoint. It makes exactly
// one attempt per call.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	log      *logger.Logger
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{},
		log:      log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate builds the prompt for ingredients and requests a recipe.
func (c *Client) Generate(ctx context.Context, ingredients []domain.Ingredient) (string, error) {
	if len(ingredients) == 0 {
		return "", fmt.Errorf("recipe: %w", domain.ErrNoIngredients)
	}
	return c.Request(ctx, BuildPrompt(ingredients))
}

// Request posts {"input": prompt} and returns the generated text.
//
// Network failures wrap ErrEndpointUnreachable, non-2xx statuses return an
// *EndpointStatusError, and a body without a usable text field wraps
// ErrMalformedResponse.
func (c *Client) Request(ctx context.Context, prompt string) (string, error) {
	jsonData, err := json.Marshal(request{Input: prompt})
	if err != nil {
		return "", fmt.Errorf("recipe: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("recipe: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Debug("recipe: POST %s (%d bytes)", c.endpoint, len(jsonData))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("recipe: %w: %w", domain.ErrEndpointUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("recipe: read response: %w: %w", domain.ErrEndpointUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("recipe: %w", &domain.EndpointStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(bytes.TrimSpace(body)), maxErrorBody),
		})
	}

	raw, err := extractText(body)
	if err != nil {
		c.log.Warn("recipe: unusable response: %s", truncate(string(body), 120))
		return "", fmt.Errorf("recipe: %w: %v", domain.ErrMalformedResponse, err)
	}

	text := DecodeText(raw)
	c.log.Debug("recipe: reply (%d chars): %s", len(text), truncate(text, 120))
	return text, nil
}

// extractText returns the first non-empty string among textFields. A body
// that is itself a JSON string is accepted as the text.
func extractText(body []byte) (string, error) {
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		if s == "" {
			return "", errors.New("empty text")
		}
		return s, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	for _, name := range textFields {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, &s); err != nil || s == "" {
			continue
		}
		return s, nil
	}
	return "", fmt.Errorf("no text field (want one of %v)", textFields)
}

// DecodeText undoes one extra level of JSON string encoding, turning
// "\"Tarta\\nIngredientes\"" into a multi-line string. Text that is not a
// JSON string literal is returned unchanged.
func DecodeText(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return raw
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
