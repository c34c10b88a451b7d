// Package apiclient is the HTTP adapter for the request-analytics backend.
// Every call goes under the versioned prefix, carries the bearer token when
// one is known, and decodes the {message, data} envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"reqdesk/internal/logging"
)

// DefaultPrefix is the versioned path every endpoint lives under.
const DefaultPrefix = "/api/v1"

// DefaultMaxResponseBytes bounds a response body. Lists carry base64 files,
// so the cap sits well above the upload limit.
const DefaultMaxResponseBytes int64 = 64 << 20

// TokenSource supplies the bearer token at request time.
type TokenSource interface {
	Token() string
}

// Config holds client configuration.
type Config struct {
	BaseURL    string
	Prefix     string
	Token      string
	Tokens     TokenSource
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client

	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64
}

// Client issues authenticated JSON requests against the backend.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	tokens     TokenSource
	maxBody    int64

	mu    sync.RWMutex
	token string
}

// Envelope is the response body shape shared by every endpoint.
type Envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// HasData reports whether the envelope carried a non-null payload.
func (e *Envelope) HasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBytes
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/") + "/" + strings.Trim(prefix, "/"),
		maxBody:    maxBody,
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		tokens:     cfg.Tokens,
		token:      cfg.Token,
	}, nil
}

// SetToken replaces the static token used when the TokenSource has none.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the token the next request will carry.
func (c *Client) Token() string {
	if c.tokens != nil {
		if t := c.tokens.Token(); t != "" {
			return t
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL returns the prefixed root all paths are joined to.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET and decodes data into out (if non-nil).
func (c *Client) Get(ctx context.Context, path string, out any) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) (*Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do performs one request. Failures are always *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (*Envelope, error) {
	log := logging.Get(logging.CategoryAPI)
	timer := logging.StartTimer(logging.CategoryAPI, method+" "+path)
	defer timer.Stop()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, Invalid(fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	reqURL := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, Invalid(fmt.Errorf("build request: %w", err))
	}
	c.setHeaders(req, body != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("%s %s failed: %v", method, path, err)
		return nil, &Error{Kind: KindTransport, Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Message: transportMessage(err), Err: fmt.Errorf("read response: %w", err)}
	}
	if int64(len(raw)) > c.maxBody {
		log.Warn("%s %s: response exceeds %d bytes", method, path, c.maxBody)
		return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode, Message: fmt.Sprintf("response exceeds %d bytes", c.maxBody)}
	}
	log.Debug("%s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(raw))

	if resp.StatusCode >= 400 {
		return nil, serverError(resp.StatusCode, raw)
	}

	env := &Envelope{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, env); err != nil {
			return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
		}
	}
	if out != nil && env.HasData() {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, &Error{Kind: KindDecode, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return env, nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// serverError extracts "message" (or "error") from a failed response body.
func serverError(status int, body []byte) *Error {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	apiErr := &Error{Kind: KindServer, StatusCode: status}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			apiErr.Message = errResp.Message
		} else {
			apiErr.Message = errResp.Error
		}
	}
	return apiErr
}

func transportMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	default:
		return err.Error()
	}
}
