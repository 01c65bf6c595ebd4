package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/filmjoin/observe"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// Config configures a Client. It is passed explicitly; there is no global state.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`

	// HTTPClient overrides the transport. Its Timeout is left untouched.
	HTTPClient *http.Client `yaml:"-"`
}

// Client fetches collections from the remote API.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: cancellation aborts the in-flight request.
//   - Errors: every failure is a *NetworkError; partial data is never returned.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	mw        *observe.Middleware
}

// Option configures a Client.
type Option func(*Client)

// WithMiddleware instruments every fetch with mw.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) {
		if mw != nil {
			c.mw = mw
		}
	}
}

// New creates a Client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		http:      hc,
		mw:        observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch issues one GET for r and decodes the collection.
func (c *Client) Fetch(ctx context.Context, r Resource) (Collection, error) {
	var out Collection
	op := observe.Op{Component: "upstream", Name: "fetch", Resource: r.String()}
	err := c.mw.Run(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = c.fetch(ctx, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, r Resource) (Collection, error) {
	fail := func(status int, sentinel error, cause error) *NetworkError {
		err := sentinel
		if cause != nil {
			err = fmt.Errorf("%w: %w", sentinel, cause)
		}
		return &NetworkError{Resource: r, StatusCode: status, Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+r.Path())
	if err != nil {
		return nil, fail(0, ErrRequest, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(0, ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fail(resp.StatusCode, ErrStatus, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fail(resp.StatusCode, ErrRequest, err)
	}

	var coll Collection
	if err := json.Unmarshal(body, &coll); err != nil {
		return nil, fail(resp.StatusCode, ErrMalformedBody, err)
	}
	if coll == nil {
		// A JSON null body is not an array.
		return nil, fail(resp.StatusCode, ErrMalformedBody, fmt.Errorf("expected array, got null"))
	}
	for i, rec := range coll {
		if rec.ID == "" {
			return nil, fail(resp.StatusCode, ErrMalformedBody, fmt.Errorf("record %d has no id", i))
		}
	}
	return coll, nil
}

// Ping checks that the base URL answers. Any response below 500 counts as up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}
