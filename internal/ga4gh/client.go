package ga4gh

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the BRCA Exchange GA4GH endpoint.
const DefaultBaseURL = "https://brcaexchange.org/backend/data/ga4gh/v0.6.0a7/"

// DefaultPageSize is the number of variants requested per page.
const DefaultPageSize = 100

// Client issues GA4GH search requests over HTTP.
type Client struct {
	baseURL    string
	pageSize   int
	insecure   bool
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithPageSize sets the page size sent with each search request.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithInsecureSkipVerify disables TLS certificate verification for this
// client's transport only.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Client) { c.insecure = skip }
}

// NewClient creates a client for the GA4GH API rooted at baseURL.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: DefaultPageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.insecure {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		hc := *c.httpClient
		hc.Transport = transport
		c.httpClient = &hc
	}

	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SearchVariantsRequest selects variants overlapping [Start, End) on a reference.
type SearchVariantsRequest struct {
	VariantSetID  string `json:"variantSetId"`
	ReferenceName string `json:"referenceName"`
	Start         int64  `json:"start"`
	End           int64  `json:"end"`
	PageSize      int    `json:"pageSize,omitempty"`
	PageToken     string `json:"pageToken,omitempty"`
}

type searchVariantsResponse struct {
	Variants      []*Variant `json:"variants"`
	NextPageToken string     `json:"nextPageToken"`
}

// ErrNullVariant is returned when a search page contains a null variant.
var ErrNullVariant = errors.New("null variant in search response")

// HTTPError is returned when the backend answers with a non-200 status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GA4GH API error %d: %s", e.StatusCode, e.Body)
}

// SearchVariants starts a variant search. The first page is fetched eagerly so
// request errors surface here; later pages are fetched as the iterator advances.
func (c *Client) SearchVariants(ctx context.Context, req SearchVariantsRequest) (VariantReader, error) {
	if req.PageSize == 0 {
		req.PageSize = c.pageSize
	}

	it := &VariantIterator{ctx: ctx, client: c, req: req}
	if err := it.fetch(); err != nil {
		return nil, err
	}
	return it, nil
}

func (c *Client) searchPage(ctx context.Context, req SearchVariantsRequest) (*searchVariantsResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	url := c.baseURL + "/variants/search"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("searching variants",
		zap.String("url", url),
		zap.String("reference_name", req.ReferenceName),
		zap.Int64("start", req.Start),
		zap.Int64("end", req.End),
		zap.String("page_token", req.PageToken))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("GA4GH API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var page searchVariantsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	// A nil entry would read as end of results in VariantIterator.Next.
	for i, v := range page.Variants {
		if v == nil {
			return nil, fmt.Errorf("%w: entry %d", ErrNullVariant, i)
		}
	}
	return &page, nil
}
