package proxy

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

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultReferer = "http://localhost:5173"
	defaultTimeout = 60 * time.Second
)

// Options configures a Client. Values are copied at construction and never
// change afterwards.
type Options struct {
	APIKey  string
	BaseURL string
	Referer string
	Title   string

	// HTTPClient is used for all requests. It must not set a Timeout, which
	// would cut off long-running streams; Complete bounds its own wait.
	HTTPClient *http.Client
}

// Client communicates with the OpenRouter chat completion API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	referer    string
	title      string
}

// NewClient creates an OpenRouter client from opts, filling in defaults for
// empty fields.
func NewClient(opts Options) *Client {
	c := &Client{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		referer:    opts.Referer,
		title:      opts.Title,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.referer == "" {
		c.referer = DefaultReferer
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	return NewClient(Options{APIKey: apiKey, BaseURL: baseURL})
}

// WithTitle returns a copy of c that identifies itself upstream with the
// given X-Title.
func (c *Client) WithTitle(title string) *Client {
	cp := *c
	cp.title = title
	return &cp
}

// Title reports the X-Title header value sent by c.
func (c *Client) Title() string {
	return c.title
}

// Stream is the raw upstream response of a streaming request. The caller
// must close Body.
type Stream struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Stream sends req with streaming enabled and returns the open response.
// No timeout is applied: the stream lives until the upstream finishes or
// ctx is cancelled. Non-2xx responses are returned as *StatusError.
func (c *Client) Stream(ctx context.Context, req ChatRequest) (*Stream, error) {
	req.Stream = true

	resp, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Stream{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// Complete sends a non-streaming request and returns the first choice. When
// ctx carries no deadline a default one is applied.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (Completion, error) {
	req.Stream = false

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	resp, err := c.post(ctx, req)
	if err != nil {
		return Completion{}, err
	}
	defer resp.Body.Close()

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Completion{}, fmt.Errorf("decoding completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return Completion{}, errors.New("completion has no choices")
	}

	return Completion{
		ID:           out.ID,
		Model:        out.Model,
		Content:      out.Choices[0].Message.Content,
		FinishReason: out.Choices[0].FinishReason,
	}, nil
}

// post issues the chat completion request. On a 2xx status the response is
// returned open; otherwise the body is drained into a *StatusError.
func (c *Client) post(ctx context.Context, req ChatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.referer)
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}
}
