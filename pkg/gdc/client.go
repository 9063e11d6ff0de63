package gdc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// RequestIDHeader carries the client generated id of every request.
const RequestIDHeader = "X-GDC-REQUEST"

// Client is a connection to the platform API shared by all services.
//
// A Client is safe to share between services. Configuration is read-only
// after New returns.
type Client struct {
	config     *Config
	httpClient *http.Client
	endpoint   *url.URL
	auth       authenticator
	metrics    *metrics
	logger     hclog.Logger
}

// Response is a fully read HTTP response.
type Response struct {
	// URI is the absolute URI the request was sent to.
	URI        string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	RequestID  string
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body from %s", r.URI)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", r.URI, err)
	}
	return nil
}

// Location returns the Location header, if any.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// New creates a new platform client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	endpoint, err := url.Parse(strings.TrimSuffix(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	c := &Client{
		config:     cfg,
		httpClient: cfg.NewHTTPClient(),
		endpoint:   endpoint,
		metrics:    m,
		logger:     cfg.Logger.Named("gdc"),
	}

	if cfg.APIToken != "" {
		c.auth = newBearerAuth(cfg.APIToken)
	} else {
		c.auth = newSessionAuth(c, cfg.Login, cfg.Password)
	}

	c.logger.Debug("client initialized",
		"endpoint", endpoint.String(),
		"auth", c.auth.name(),
		"poll_interval", cfg.PollInterval,
	)

	return c, nil
}

// Logger returns the client logger. Services derive named loggers from it.
func (c *Client) Logger() hclog.Logger {
	return c.logger
}

// PollInterval returns the fixed delay between two polls.
func (c *Client) PollInterval() time.Duration {
	return c.config.PollInterval
}

// Endpoint returns the API base URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// ResolveURI turns a platform-relative URI ("/gdc/...") into an absolute URL.
// Absolute URLs are returned unchanged.
func (c *Client) ResolveURI(uri string) (string, error) {
	ref, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid uri %q: %w", uri, err)
	}
	if ref.IsAbs() {
		return uri, nil
	}
	return c.endpoint.ResolveReference(ref).String(), nil
}

// Do sends a request and reads the whole response. Only transport failures
// are returned as errors; callers inspect the status.
//
// A body of type io.Reader is streamed as is, any other non-nil body is sent
// as JSON.
func (c *Client) Do(ctx context.Context, method, uri string, body any) (*Response, error) {
	resp, err := c.send(ctx, method, uri, body, nil, true)
	if err != nil {
		return nil, err
	}

	// An expired temporary token is renewed once.
	if resp.StatusCode == http.StatusUnauthorized && c.auth.renewable() && replayable(body) {
		c.logger.Debug("token rejected, renewing", "uri", uri)
		c.auth.reset()
		return c.send(ctx, method, uri, body, nil, true)
	}

	return resp, nil
}

// Execute sends a request, requires a 2xx status, and decodes a non-empty
// body into out when out is not nil.
func (c *Client) Execute(ctx context.Context, method, uri string, in, out any) (*Response, error) {
	resp, err := c.Do(ctx, method, uri, in)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return resp, newResponseError(method, uri, resp)
	}
	if out != nil && len(resp.Body) > 0 {
		if err := resp.Decode(out); err != nil {
			return resp, &Error{Method: method, URI: uri, StatusCode: resp.StatusCode, RequestID: resp.RequestID, Err: err}
		}
	}
	return resp, nil
}

// GetJSON fetches uri and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, uri string, out any) error {
	_, err := c.Execute(ctx, http.MethodGet, uri, nil, out)
	return err
}

// PostJSON posts in as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, uri string, in, out any) (*Response, error) {
	return c.Execute(ctx, http.MethodPost, uri, in, out)
}

// PutJSON puts in as JSON and decodes the response into out.
func (c *Client) PutJSON(ctx context.Context, uri string, in, out any) (*Response, error) {
	return c.Execute(ctx, http.MethodPut, uri, in, out)
}

// Delete deletes the resource at uri.
func (c *Client) Delete(ctx context.Context, uri string) (*Response, error) {
	return c.Execute(ctx, http.MethodDelete, uri, nil, nil)
}

// Upload stores the content of r at uri of the user staging area (WebDAV PUT).
func (c *Client) Upload(ctx context.Context, uri string, r io.Reader) error {
	_, err := c.Execute(ctx, http.MethodPut, uri, r, nil)
	return err
}

// Download streams the body of uri into w.
func (c *Client) Download(ctx context.Context, uri string, w io.Writer) (int64, error) {
	resp, err := c.Execute(ctx, http.MethodGet, uri, nil, nil)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(resp.Body)
	return int64(n), err
}

func (c *Client) send(
	ctx context.Context,
	method, uri string,
	body any,
	header http.Header,
	authorize bool,
) (*Response, error) {
	target, err := c.ResolveURI(uri)
	if err != nil {
		return nil, &Error{Method: method, URI: uri, Err: err}
	}

	bodyReader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, &Error{Method: method, URI: uri, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, &Error{Method: method, URI: uri, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if authorize {
		if err := c.auth.authorize(req); err != nil {
			return nil, &Error{Method: method, URI: uri, RequestID: requestID, Err: fmt.Errorf("authentication failed: %w", err)}
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(method, 0, time.Since(start))
		c.logger.Debug("request failed", "method", method, "uri", uri, "request_id", requestID, "error", err)
		return nil, &Error{Method: method, URI: uri, RequestID: requestID, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{
			Method:     method,
			URI:        uri,
			StatusCode: httpResp.StatusCode,
			RequestID:  requestID,
			Err:        fmt.Errorf("failed to read response: %w", err),
		}
	}

	duration := time.Since(start)
	c.metrics.observe(method, httpResp.StatusCode, duration)
	c.logger.Debug("request",
		"method", method,
		"uri", uri,
		"status", httpResp.StatusCode,
		"request_id", requestID,
		"duration", duration,
	)

	return &Response{
		URI:        target,
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       respBody,
		RequestID:  requestID,
	}, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return b, "application/octet-stream", nil
	case []byte:
		return bytes.NewReader(b), "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// replayable reports whether body can be sent a second time.
func replayable(body any) bool {
	_, isReader := body.(io.Reader)
	return !isReader
}
