package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Options configures a Client.
type Options struct {
	// Client is the underlying HTTP client; http.DefaultClient when nil.
	// Authentication is expected to live in its Transport.
	Client *http.Client
	// ProxyPrefix, when set, is prepended to every request URL. The proxy
	// is expected to forward to the true URL embedded in the suffix.
	ProxyPrefix string
	// DefaultHeaders are merged under per-request headers.
	DefaultHeaders map[string]string
	Logger         *slog.Logger
}

// Client executes WebDAV requests. It owns URL prefixing, header merging
// and redirect control; it knows nothing about XML.
type Client struct {
	hc             *http.Client
	proxyPrefix    string
	defaultHeaders map[string]string
	logger         *slog.Logger
}

// RequestOptions describes one request.
type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	// NoRedirect disables redirect following for this request only.
	NoRedirect bool
}

// Result is the uniform response envelope: status, headers and the fully
// read body.
type Result struct {
	URL        string
	Status     int
	StatusText string
	OK         bool
	Header     http.Header
	Body       []byte
}

// New creates a Client.
func New(opts Options) *Client {
	hc := opts.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		hc:             hc,
		proxyPrefix:    opts.ProxyPrefix,
		defaultHeaders: opts.DefaultHeaders,
		logger:         logger,
	}
}

// mergeHeaders layers defaults under caller headers. An empty value drops
// the header, so callers can clear a default.
func (c *Client) mergeHeaders(headers map[string]string) map[string]string {
	merged := map[string]string{
		"Content-Type": "text/xml;charset=UTF-8",
	}
	for k, v := range c.defaultHeaders {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}
	for k, v := range merged {
		if v == "" {
			delete(merged, k)
		}
	}
	return merged
}

// Do executes the request and reads the body to completion. Non-2xx
// statuses are not errors; only transport failures are.
func (c *Client) Do(ctx context.Context, opts RequestOptions) (*Result, error) {
	requestURL := c.proxyPrefix + opts.URL

	c.logger.Debug("starting request",
		"method", opts.Method,
		"url", requestURL,
		"body_length", len(opts.Body))

	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", opts.Method, err)
	}
	for k, v := range c.mergeHeaders(opts.Headers) {
		req.Header.Set(k, v)
	}

	hc := c.hc
	if opts.NoRedirect {
		clone := *c.hc
		clone.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		hc = &clone
	}

	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", opts.Method, "url", requestURL, "error", err)
		return nil, fmt.Errorf("%s %s failed: %w", opts.Method, opts.URL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response body: %w", opts.Method, err)
	}

	c.logger.Debug("received response",
		"status", resp.Status,
		"body_length", len(respBody))

	return &Result{
		URL:        opts.URL,
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 400,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
