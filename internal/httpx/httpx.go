package httpx

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is a small wrapper around http.Client with sane transport defaults,
// default headers, and an optional rate limiter gating every request. Each
// source gets its own Client so its limiter matches the provider's policy.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
	Limiter   *rate.Limiter
}

func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}
	return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "symbolsearch/1.0"}
}

// WithLimiter caps the request rate, returning the client for chaining.
// requestsPerSec <= 0 removes the limiter.
func (c *Client) WithLimiter(requestsPerSec float64, burst int) *Client {
	if requestsPerSec <= 0 {
		c.Limiter = nil
		return c
	}
	if burst <= 0 {
		burst = 1
	}
	c.Limiter = rate.NewLimiter(rate.Limit(requestsPerSec), burst)
	return c
}

// Std adapts the client to the classic Do(*http.Request) shape. The request's
// own context gates the limiter wait.
type Std struct {
	C *Client
}

func (s Std) Do(req *http.Request) (*http.Response, error) {
	return s.C.Do(req.Context(), req)
}

// Do waits on the limiter, fills in default headers, and performs the request.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.HTTP.Do(req.WithContext(ctx))
}
