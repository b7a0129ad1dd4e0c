// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/solvault/internal/provider"
)

// Configuration constants for the cloud API.
const (
	// DefaultBaseURL is the base URL used when options omit one.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// requestsPerSecond paces outgoing calls to stay under provider rate
	// limits. Burst absorbs short command sequences without queueing.
	requestsPerSecond = 5
	requestBurst      = 10
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// SECURITY: TLS 1.2+ required.
	sharedHTTPClient = &http.Client{
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

	// sharedStreamingClient carries no timeout; streaming calls are bounded
	// only by the caller's context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// wireMessage is one message in the chat/completions request body. Content is
// either a plain string or, for multipart messages, an array of content parts.
type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multipart content array.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// apiError is the error envelope returned on non-2xx responses.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client implements provider.Client against an OpenAI-compatible API.
//
// The Client is thread-safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client

	// limiter paces all outgoing calls across goroutines.
	limiter *rate.Limiter
}

// NewClient creates a new cloud client.
func NewClient() *Client {
	return &Client{
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

// baseURL resolves the endpoint for a call.
func baseURL(opts provider.Options) string {
	if opts.BaseURL != "" {
		return strings.TrimSuffix(opts.BaseURL, "/")
	}
	return DefaultBaseURL
}

// toWire converts messages to the chat/completions wire format. Plain text
// messages serialize as strings; multipart messages become content-part
// arrays with images embedded as data URLs.
func toWire(messages []provider.Message) []wireMessage {
	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		if !m.Content.IsMultipart() {
			wire = append(wire, wireMessage{Role: m.Role, Content: m.Content.Text})
			continue
		}

		parts := make([]contentPart, 0, len(m.Content.Parts))
		for _, p := range m.Content.Parts {
			switch p.Kind {
			case provider.PartText:
				parts = append(parts, contentPart{Type: "text", Text: p.Text})
			case provider.PartImage:
				parts = append(parts, contentPart{
					Type:     "image_url",
					ImageURL: &imageURL{URL: fmt.Sprintf("data:%s;base64,%s", p.MIME, p.Data)},
				})
			}
		}
		wire = append(wire, wireMessage{Role: m.Role, Content: parts})
	}
	return wire
}

// newRequest builds an authenticated request. Fails fast with NotConfigured
// when the API key is missing so no network traffic or quota is spent.
func (c *Client) newRequest(ctx context.Context, method, url string, body []byte, opts provider.Options) (*http.Request, error) {
	if opts.APIKey == "" {
		return nil, &provider.Error{Kind: provider.ErrKindNotConfigured, Message: "cloud API key not configured"}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &provider.Error{Kind: provider.ErrKindUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+opts.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete sends a non-streaming chat request and returns the response text.
func (c *Client) Complete(ctx context.Context, messages []provider.Message, opts provider.Options) (string, error) {
	reqBody := chatRequest{
		Model:       opts.Model,
		Messages:    toWire(messages),
		Temperature: opts.Temperature,
		Stream:      false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &provider.Error{Kind: provider.ErrKindInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, baseURL(opts)+"/chat/completions", body, opts)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &provider.Error{Kind: provider.ErrKindUnreachable, Message: "cloud API is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", badStatusError(resp)
	}

	var result chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(&result); err != nil {
		return "", &provider.Error{Kind: provider.ErrKindInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if len(result.Choices) == 0 {
		return "", &provider.Error{Kind: provider.ErrKindInvalidResponse, Message: "response contained no choices"}
	}

	return result.Choices[0].Message.Content, nil
}

// =============================================================================
// LIVENESS
// =============================================================================

// CheckLiveness verifies the API is reachable with the configured credential
// and returns an identity string with the available model count.
func (c *Client) CheckLiveness(ctx context.Context, opts provider.Options) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, baseURL(opts)+"/models", nil, opts)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &provider.Error{Kind: provider.ErrKindUnreachable, Message: "cloud API is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", badStatusError(resp)
	}

	var result modelsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(&result); err != nil {
		return "", &provider.Error{Kind: provider.ErrKindInvalidResponse, Message: "failed to decode models response", Cause: err}
	}

	return fmt.Sprintf("cloud (%d models)", len(result.Data)), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// badStatusError folds the decoded error body into a BadStatus error.
func badStatusError(resp *http.Response) *provider.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	msg := strings.TrimSpace(string(body))
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}

	return &provider.Error{
		Kind:    provider.ErrKindBadStatus,
		Status:  resp.StatusCode,
		Message: msg,
	}
}
