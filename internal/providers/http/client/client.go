package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
)

// Options configures a Client
type Options struct {
	UserAgent string

	// Timeout bounds the whole request including the body; zero means none.
	Timeout time.Duration

	// HeaderTimeout bounds the wait for response headers; zero means none.
	HeaderTimeout time.Duration

	// RetryCount is the number of resty retries for idempotent calls.
	RetryCount int

	// RequestsPerSecond limits outgoing requests; zero or less means unlimited.
	RequestsPerSecond float64

	// FollowRedirects lets the transport follow redirects. When false, 3xx
	// responses are returned to the caller unchanged.
	FollowRedirects bool

	// DisableCompression keeps Content-Length meaningful for byte counting.
	DisableCompression bool

	Logger *logging.Logger
}

// Client wraps resty with rate limiting and a pooled transport
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Mu      sync.RWMutex
}

// New creates an HTTP client
func New(opts Options) *Client {
	// Pooled transport with dial and TLS timeouts
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	transport := retryClient.HTTPClient.Transport
	if t, ok := transport.(*http.Transport); ok {
		t.ResponseHeaderTimeout = opts.HeaderTimeout
		t.DisableCompression = opts.DisableCompression
	}

	restyClient := resty.New()
	restyClient.
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)

	if opts.UserAgent != "" {
		restyClient.SetHeader("User-Agent", opts.UserAgent)
	}
	if !opts.FollowRedirects {
		restyClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	}
	if opts.Logger != nil {
		restyClient.SetLogger(opts.Logger.Sugar())
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		Resty:   restyClient,
		Limiter: limiter,
	}
}

// SetHeader adds a default header
func (c *Client) SetHeader(key, value string) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetHeader(key, value)
}

// SetBearerAuth configures bearer token authentication
func (c *Client) SetBearerAuth(token string) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetAuthToken(token)
}

// Request creates a new request after waiting on the rate limiter
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.Resty.R().SetContext(ctx), nil
}
