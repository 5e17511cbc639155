// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the client for the upstream OpenAI-compatible
// completion service.
//
// The gateway is deliberately a single-shot passthrough: one request per
// call, no retries, no backoff, upstream status codes surfaced to the
// caller. The planner treats the assistant as best-effort.
package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the upstream API.
const (
	// DefaultBaseURL is the base URL for the completion API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the completion model requested by the planner.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// CompletionMaxTokens caps the assistant's reply length.
	CompletionMaxTokens = 1000

	// CompletionTemperature is the fixed sampling temperature.
	CompletionTemperature = 0.7

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// SystemPrompt is the persona instruction sent with every completion.
const SystemPrompt = "You are a friendly growth coach inside a weekly quest planner. " +
	"Give short, practical self-improvement advice. When you suggest concrete " +
	"daily actions, format them as a bulleted list so they can be turned into " +
	"quests. Answer in the user's language."

// FallbackResponse is returned when the upstream reports success but
// carries no usable content.
const FallbackResponse = "Sorry, I could not come up with a response. Please try again."

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client with connection pooling for all upstream requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates no API key is available.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrKeyRejected indicates the upstream rejected the API key (401).
	ErrKeyRejected = errors.New("API key rejected")

	// ErrEmptyMessage indicates a completion was requested with no input.
	ErrEmptyMessage = errors.New("message must not be empty")
)

// APIError represents a non-success response from the upstream API.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error (HTTP %d)", e.Status)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions endpoint.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse represents a response from the chat completions endpoint.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an OpenAI-compatible completion API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

// NewClient creates a client with the given API key. An empty key is
// allowed; Complete and ValidateKey will fail with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithModel sets the completion model.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// IsConfigured returns true if the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key for
// logging. The key itself is never logged.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete sends one user message with the coach persona and returns the
// assistant's reply. An upstream success with no content yields
// FallbackResponse rather than an error.
func (c *Client) Complete(ctx context.Context, message string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	reqBody := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: message},
		},
		Temperature: CompletionTemperature,
		MaxTokens:   CompletionMaxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return "", err
	}

	log.Printf("LLM_RESPONSE | status=%d latency=%dms key=%s",
		resp.StatusCode, time.Since(start).Milliseconds(), c.KeyFingerprint())

	if resp.StatusCode != http.StatusOK {
		return "", c.handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	content := chatResp.GetContent()
	if strings.TrimSpace(content) == "" {
		return FallbackResponse, nil
	}
	return content, nil
}

// =============================================================================
// KEY VALIDATION
// =============================================================================

// ValidateKey checks the API key against the upstream models endpoint.
// Returns nil for a usable key, ErrKeyRejected for 401, and an APIError
// carrying the upstream status for anything else.
func (c *Client) ValidateKey(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrKeyRejected
	default:
		return c.handleErrorResponse(resp.StatusCode, body)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// setHeaders sets the required headers for upstream requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "questrun/0.1.0")
}

// readResponse reads the response body with a size limit.
//
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to Go errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	if statusCode == http.StatusUnauthorized {
		return ErrKeyRejected
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &APIError{Status: statusCode, Message: apiErr.Error.Message}
	}
	return &APIError{Status: statusCode, Message: strings.TrimSpace(string(body))}
}
