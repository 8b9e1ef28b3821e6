package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.x.ai/v1"
	DefaultModel   = "grok-3-latest"

	SearchOn   = "on"
	SearchAuto = "auto"

	maxResponseBytes = 8 << 20
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: status %d", e.StatusCode)
}

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	BaseURL    string
	Model      string
	SearchMode string
	Timeout    time.Duration // 0 disables the client-side timeout
	HTTPClient *http.Client
}

// Client calls the xAI chat completions API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	searchMode string
	httpClient *http.Client
}

func NewClient(apiKey string, opts Options) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      opts.Model,
		searchMode: opts.SearchMode,
		httpClient: opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.searchMode == "" {
		c.searchMode = SearchOn
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return c
}

// Model returns the model identifier sent with each request.
func (c *Client) Model() string { return c.model }

// ValidSearchMode reports whether mode is accepted by the search_parameters
// field.
func ValidSearchMode(mode string) bool {
	return mode == SearchOn || mode == SearchAuto
}

// Complete sends prompt as a single user message and returns the first
// completion.
func (c *Client) Complete(ctx context.Context, prompt string) (*Completion, error) {
	reqBody := chatRequest{
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		SearchParameters: searchParameters{Mode: c.searchMode},
		Model:            c.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return parseResponse(respBody)
}

// parseResponse reads choices[0].message.content. Any other valid JSON,
// whatever its shape, falls back to the compacted payload.
func parseResponse(body []byte) (*Completion, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if text := firstContent(payload); text != "" {
		return &Completion{Text: text, Raw: body}, nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return nil, fmt.Errorf("compact response: %w", err)
	}
	return &Completion{Text: compact.String(), Raw: body, Fallback: true}, nil
}

func firstContent(payload any) string {
	obj, _ := payload.(map[string]any)
	choices, _ := obj["choices"].([]any)
	if len(choices) == 0 {
		return ""
	}
	choice, _ := choices[0].(map[string]any)
	msg, _ := choice["message"].(map[string]any)
	text, _ := msg["content"].(string)
	return text
}
