// Package httpclient provides the shared tuned HTTP client used for all
// upstream calls: catalog lookups, player.js fetches, and media streaming.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/tonicoded/ytvideoshorts/internal/logger"
)

const (
	defaultRetries = 3

	userAgentValue = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 3 * time.Second
)

// defaultTransport is a tuned HTTP transport reused across clients.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 30 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	ReadBufferSize:        16 * 1024,
	WriteBufferSize:       16 * 1024,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Config holds optional client parameters. Zero values use defaults. A zero
// Timeout means no overall deadline; media transfers run for as long as the
// stream does, with only the response-header wait bounded by the transport.
type Config struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
}

// Client wraps http.Client with retry for transient upstream failures and a
// desktop-like default User-Agent.
type Client struct {
	HTTPClient *http.Client
	Retries    int
	UserAgent  string

	log *logger.ComponentLogger
}

// New creates a new Client with a tuned Transport and default retries.
func New() *Client {
	return NewWith(Config{})
}

// NewWith creates a new client with provided config. Zero values use defaults.
func NewWith(cfg Config) *Client {
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = userAgentValue
	}
	return &Client{
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: defaultTransport.Clone(),
		},
		Retries:   retries,
		UserAgent: ua,
		log:       logger.WithComponent(logger.ComponentHTTP),
	}
}

// Get performs a GET request, retrying network failures and HTTP 5xx with
// exponential backoff. Non-5xx responses are returned to the caller as-is;
// status checking is the caller's responsibility.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	attempts := c.Retries
	if attempts < 1 {
		attempts = 1
	}
	return retry.DoWithData(
		func() (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", c.UserAgent)
			for k, vs := range header {
				for _, v := range vs {
					req.Header.Set(k, v)
				}
			}
			resp, err := c.HTTPClient.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= http.StatusInternalServerError {
				_ = resp.Body.Close()
				return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
			}
			return resp, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.OnRetry(func(attempt uint, err error) {
			c.log.Debug("retrying request", map[string]any{
				"attempt": attempt + 1,
				"url":     url,
				"error":   err.Error(),
			})
		}),
		retry.Delay(initialBackoff),
		retry.MaxDelay(maxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}
