// Package line talks to the chat platform's Messaging API: downloading message
// content and sending reply messages.
package line

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

const (
	DefaultAPIBaseURL     = "https://api.line.me"
	DefaultDataAPIBaseURL = "https://api-data.line.me"
	DefaultMaxMediaSize   = 20 << 20

	errorBodyLimit = 4096
)

// Client is a focused Messaging API client. It is safe for concurrent use.
type Client struct {
	accessToken    string
	apiBaseURL     string
	dataAPIBaseURL string
	maxMediaSize   int64
	httpClient     *http.Client
}

type Option func(*Client)

func WithAPIBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.apiBaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithDataAPIBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.dataAPIBaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxMediaSize caps the number of content bytes read per message.
func WithMaxMediaSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxMediaSize = n
		}
	}
}

// NewClient creates a client authenticated with a channel access token.
func NewClient(accessToken string, opts ...Option) (*Client, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, errors.New("line: channel access token must not be empty")
	}
	c := &Client{
		accessToken:    accessToken,
		apiBaseURL:     DefaultAPIBaseURL,
		dataAPIBaseURL: DefaultDataAPIBaseURL,
		maxMediaSize:   DefaultMaxMediaSize,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiBaseURL == "" {
		c.apiBaseURL = DefaultAPIBaseURL
	}
	if c.dataAPIBaseURL == "" {
		c.dataAPIBaseURL = DefaultDataAPIBaseURL
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
}

// upstreamError drains a bounded prefix of a non-2xx body into a StageError.
func upstreamError(stage domain.Stage, res *http.Response) error {
	buf, _ := io.ReadAll(io.LimitReader(res.Body, errorBodyLimit))
	return domain.NewUpstreamError(stage, res.StatusCode, strings.TrimSpace(string(buf)))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
