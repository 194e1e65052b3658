package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"stockreport/internal/httpx"
	"stockreport/internal/provider"
)

const baseURL = "https://www.alphavantage.co/query"

// maxBody caps how much of a response is read; the compact daily series is
// well under this.
const maxBody = 8 << 20

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient is a client for the Alpha Vantage query API.
type APIClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// APIClientOption is a configuration option for the Alpha Vantage API client.
type APIClientOption func(*APIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) APIClientOption {
	return func(c *APIClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) APIClientOption {
	return func(c *APIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) APIClientOption {
	return func(c *APIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewAPIClient creates a new Alpha Vantage API client. The key travels in the
// apikey query parameter; an empty key leaves it out.
func NewAPIClient(key string, options ...APIClientOption) (*APIClient, error) {
	var client = &APIClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	if key != "" {
		client.query.Set("apikey", key)
	}
	for _, option := range options {
		option(client)
	}
	if client.httpClient == nil {
		return nil, fmt.Errorf("alphavantage: nil http client")
	}
	return client, nil
}

// HasKey reports whether an API key was configured.
func (c *APIClient) HasKey() bool { return c.query.Get("apikey") != "" }

// get performs a query and decodes the body into out. Throttling notes and
// error messages that Alpha Vantage returns with a 200 status are turned into
// errors here so callers never mistake them for data.
func (c *APIClient) get(ctx context.Context, params url.Values, out any) error {
	query := maps.Clone(c.query)
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", httpx.StripQuery(err))
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("alphavantage: %w", provider.ErrRateLimited)
	case res.StatusCode < 200 || res.StatusCode >= 300:
		return fmt.Errorf("alphavantage: %w: %d", provider.ErrUnexpectedStatus, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("alphavantage: %w", provider.ErrEmptyResponse)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(envelope) == 0 {
		return fmt.Errorf("alphavantage: %w", provider.ErrEmptyResponse)
	}
	for _, marker := range []string{"Note", "Information"} {
		if msg, ok := envelope[marker]; ok {
			return fmt.Errorf("alphavantage: %w: %s", provider.ErrRateLimited, message(msg))
		}
	}
	if msg, ok := envelope["Error Message"]; ok {
		return fmt.Errorf("alphavantage: %w: %s", provider.ErrEmptyResponse, message(msg))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func message(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return s
}
