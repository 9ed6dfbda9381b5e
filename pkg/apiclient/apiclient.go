// Package apiclient is the HTTP transport for the downstream business APIs
// (directory, calendar, location). Each API gets its own Client built from a
// prefixed Config.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrUnavailable = errors.New("downstream api unavailable")
)

type Config struct {
	URL        string        `split_words:"true" required:"true"`
	Token      string        `split_words:"true"`
	Timeout    time.Duration `split_words:"true" default:"10s"`
	RetryCount int           `split_words:"true" default:"2"`
}

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream http status=%d body=%s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests {
		return ErrUnavailable
	}
	return nil
}

type Client struct {
	baseURL string
	token   string
	http    *resty.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("api url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(max(cfg.RetryCount, 0)).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError || r.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		http:    rc,
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// GetJSON issues GET path?query and decodes the body into out. Only reads go
// through here; the business APIs are never mutated by this service.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrUnavailable, path, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: GET %s", ErrNotFound, path)
	case code < http.StatusOK || code >= http.StatusMultipleChoices:
		return &StatusError{StatusCode: code, Body: truncate(resp.String(), 512)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
