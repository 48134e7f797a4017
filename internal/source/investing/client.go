package investing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://api.investing.com"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=investing_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// InvestingAPIClient is a client for the investing search and history API.
type InvestingAPIClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// InvestingAPIClientOption is a configuration option for the client.
type InvestingAPIClientOption func(*InvestingAPIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) InvestingAPIClientOption {
	return func(c *InvestingAPIClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) InvestingAPIClientOption {
	return func(c *InvestingAPIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) InvestingAPIClientOption {
	return func(c *InvestingAPIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewInvestingAPIClient creates a new client.
func NewInvestingAPIClient(options ...InvestingAPIClientOption) (*InvestingAPIClient, error) {
	var c = &InvestingAPIClient{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	for _, option := range options {
		option(c)
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	return c, nil
}

// getJSON performs a GET against path with query and decodes the body into out.
func (c *InvestingAPIClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited")
	case http.StatusForbidden:
		return fmt.Errorf("unauthorized")
	default:
		return fmt.Errorf("GET %s -> unexpected status code: %d", path, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
