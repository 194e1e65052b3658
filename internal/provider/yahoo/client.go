package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"stockreport/internal/httpx"
	"stockreport/internal/provider"
)

const baseURL = "https://query2.finance.yahoo.com"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient is a client for the Yahoo Finance quoteSummary and chart APIs.
type APIClient struct {
	baseURL    string
	httpClient HTTPClient
	header     http.Header
	query      url.Values
}

// APIClientOption is a configuration option for the Yahoo API client.
type APIClientOption func(*APIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) APIClientOption {
	return func(c *APIClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
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

// NewAPIClient creates a new Yahoo API client. Gateways that front the
// public endpoints take the key as the apikey query parameter.
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
		return nil, fmt.Errorf("yahoo: nil http client")
	}
	return client, nil
}

// HasKey reports whether an API key was configured.
func (c *APIClient) HasKey() bool { return c.query.Get("apikey") != "" }

func (c *APIClient) get(ctx context.Context, path string, params url.Values, out any) error {
	query := maps.Clone(c.query)
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", httpx.StripQuery(err))
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusTooManyRequests:
		return fmt.Errorf("yahoo: %w", provider.ErrRateLimited)

	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("yahoo: unauthorized: %w: %d", provider.ErrUnexpectedStatus, res.StatusCode)

	default:
		return fmt.Errorf("yahoo: %w: %d", provider.ErrUnexpectedStatus, res.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(res.Body, 8<<20))
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return fmt.Errorf("yahoo: %w", provider.ErrEmptyResponse)
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiError is the error object both endpoints embed next to their result.
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) err(endpoint string) error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("yahoo: %s: %w: %s: %s", endpoint, provider.ErrEmptyResponse, e.Code, e.Description)
}

// Value is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper. Missing
// values come back as {} or null.
type Value struct {
	Raw json.RawMessage `json:"raw"`
	Fmt string          `json:"fmt"`
}

// Decimal returns the raw number, or nil when it is absent or non-numeric.
func (v *Value) Decimal() *decimal.Decimal {
	if v == nil || len(v.Raw) == 0 {
		return nil
	}
	s := string(v.Raw)
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(v.Raw, &unquoted); err != nil {
			return nil
		}
		s = unquoted
	}
	return provider.ParseNumber(s)
}

// Int returns the raw number truncated to an integer.
func (v *Value) Int() *int64 {
	d := v.Decimal()
	if d == nil {
		return nil
	}
	n := d.IntPart()
	return &n
}
