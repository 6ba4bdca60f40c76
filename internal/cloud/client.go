// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the chat completion endpoint.
	DefaultBaseURL = "https://api.deepseek.com/chat/completions"

	// DefaultModel is the completion model.
	DefaultModel = "deepseek-chat"

	// DefaultTemperature is tuned high for creative quest narration.
	DefaultTemperature = 1.3
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoAPIKey indicates no credential is configured. Surfaced to the user;
// there is nothing to retry.
var ErrNoAPIKey = errors.New("no API key configured - run `dojoquest config key <key>` first")

// ErrInvalidAPIKey indicates the API rejected the credential (HTTP 401).
var ErrInvalidAPIKey = errors.New("API key rejected - check your configured key")

// StatusError reports an unexpected non-success status from the API, with
// the raw diagnostic body.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.Status, e.Body)
}

// TransportError wraps a failure to reach the API host at all, with
// remediation guidance. When the companion page is opened straight from a
// file:// URL the browser blocks cross-origin requests, which presents the
// same way as a dead network, so the guidance covers both.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "cannot reach the completion API.\n" +
		"Possible fixes:\n" +
		"  1. Check your network connection.\n" +
		"  2. If you opened the client page directly from disk, the browser may be\n" +
		"     blocking the request (CORS). Serve it over http://localhost instead."
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// TYPES
// =============================================================================

// ChatMessage is one entry in the conversation sent to the API.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the wire body for a streaming completion.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
}

// KeyFunc supplies the bearer credential at request time, so a key saved
// mid-session takes effect without rebuilding the client.
type KeyFunc func() string

// =============================================================================
// CLIENT
// =============================================================================

// Client streams chat completions. Safe for concurrent use; a new stream
// supersedes (cancels) any stream already in flight.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	apiKey      KeyFunc
	httpClient  *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the completion endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a streaming client. key supplies the credential on
// each request.
func NewClient(key KeyFunc, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		apiKey:      key,
		// No overall timeout: the response body is an unbounded stream.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Abort cancels any in-flight stream. Cancellation is silent: the aborted
// stream's onComplete and onError are not invoked.
func (c *Client) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// begin cancels any prior stream and registers a fresh cancellable context.
func (c *Client) begin() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	return ctx
}

// finish clears the cancel handle if it still belongs to this stream.
func (c *Client) finish(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil && ctx.Err() == nil {
		c.cancel()
		c.cancel = nil
	}
}

// StreamChat opens a streaming completion and delivers content deltas to
// onChunk in frame order. Exactly one of onComplete or onError fires when
// the exchange ends, unless the stream was superseded or aborted, in which
// case neither fires.
//
// The call blocks until the stream ends; run it on its own goroutine when
// the caller needs to stay responsive.
func (c *Client) StreamChat(messages []ChatMessage, onChunk func(string), onComplete func(), onError func(error)) {
	key := c.apiKey()
	if key == "" {
		onError(ErrNoAPIKey)
		return
	}

	ctx := c.begin()
	defer c.finish(ctx)

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      true,
		Temperature: c.temperature,
	})
	if err != nil {
		onError(fmt.Errorf("failed to marshal request: %w", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		onError(fmt.Errorf("failed to create request: %w", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return // superseded or aborted: silent
		}
		onError(&TransportError{Err: err})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized {
			onError(ErrInvalidAPIKey)
			return
		}
		onError(&StatusError{Status: resp.StatusCode, Body: string(diag)})
		return
	}

	if err := processStream(ctx, resp.Body, onChunk); err != nil {
		if ctx.Err() != nil {
			return // cancelled mid-stream: silent
		}
		onError(fmt.Errorf("stream read failed: %w", err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	onComplete()
}

// StreamChatAccumulate streams and returns the concatenated content, for
// callers that want progress callbacks but a single final string. A
// superseded stream returns whatever content arrived with a nil error.
func (c *Client) StreamChatAccumulate(messages []ChatMessage, onChunk func(string)) (string, error) {
	var full bytes.Buffer
	var streamErr error

	c.StreamChat(messages,
		func(delta string) {
			full.WriteString(delta)
			if onChunk != nil {
				onChunk(delta)
			}
		},
		func() {},
		func(err error) { streamErr = err })

	return full.String(), streamErr
}
