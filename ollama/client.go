package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/driplabs/drip"
	"github.com/rs/zerolog"
)

// Interface compliance check.
var _ drip.Provider = (*Client)(nil)

// Client implements [drip.Provider] for the Ollama chat API.
type Client struct {
	baseURL    string
	apiKey     string
	keepAlive  string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the server address. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sets a bearer token for remote servers behind a proxy.
// Local servers need none.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithKeepAlive controls how long the server keeps the model loaded
// after the request ("5m", "-1" for indefinite). Empty uses the server
// default.
func WithKeepAlive(d string) Option {
	return func(c *Client) { c.keepAlive = d }
}

// WithLogger sets the logger for stream decoding diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates an Ollama [Client] talking to DefaultBaseURL unless
// overridden.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming chat request and returns a [drip.Decoder]
// over the NDJSON response body. Request-level failures (connection
// refused, non-2xx status) are returned synchronously.
func (c *Client) Stream(ctx context.Context, req drip.Request) (drip.Decoder, error) {
	body, err := json.Marshal(c.chatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	resp, err := c.post(ctx, "/api/chat", body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, httpError(resp)
	}
	return newDecoder(resp.Body, c.log), nil
}

// chatRequest maps the provider-agnostic request onto the wire format.
func (c *Client) chatRequest(req drip.Request) ChatRequest {
	msgs := make([]ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, ChatMessage{
			Role:     string(m.Role),
			Content:  m.Content,
			Thinking: m.Thinking,
		})
	}

	cr := ChatRequest{
		Model:     req.Model,
		Messages:  msgs,
		Stream:    true,
		KeepAlive: c.keepAlive,
	}
	if req.Think {
		think := true
		cr.Think = &think
	}
	if req.MaxTokens > 0 || req.Temperature != nil {
		cr.Options = &ChatOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		}
	}
	return cr
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return resp, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// httpError turns a non-2xx response into an error, mapping 404 onto
// drip.ErrModelNotFound so callers can give a useful hint.
func httpError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := string(bytes.TrimSpace(body))
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("ollama: %w: %s", drip.ErrModelNotFound, msg)
	}
	return fmt.Errorf("ollama: unexpected status %s: %s", resp.Status, msg)
}
