// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/roi-brief/internal/httputil"
	"github.com/pdiddy/roi-brief/internal/logging"
	"github.com/pdiddy/roi-brief/pkg/types"
)

const (
	DefaultBaseURL   = "https://data.sec.gov"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second, the EDGAR fair-access cap

	// DefaultUserAgent is used when none is configured. EDGAR asks callers
	// to identify themselves, so deployments should override it.
	DefaultUserAgent = "roi-brief/1.0 (ops@example.com)"
)

// maxDocumentBytes bounds a single registry document. Company facts for
// large filers run to tens of megabytes.
const maxDocumentBytes = 256 << 20

// Client talks to the EDGAR JSON API.
type Client struct {
	baseURL     string
	userAgent   string
	maxAttempts int
	httpClient  *http.Client
	limiter     *rate.Limiter
	log         zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit sets the request rate shared by every caller of the client.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMaxAttempts bounds attempts per document, including the first.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates an EDGAR client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		userAgent:   DefaultUserAgent,
		maxAttempts: httputil.DefaultMaxAttempts,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:         logging.Silent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError reports a non-success HTTP status from the registry.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Submissions returns the raw submissions document for a normalized CIK.
func (c *Client) Submissions(ctx context.Context, cik string) ([]byte, error) {
	return c.get(ctx, "/submissions/CIK"+cik+".json")
}

// CompanyFacts returns the raw XBRL company-facts document for a
// normalized CIK.
func (c *Client) CompanyFacts(ctx context.Context, cik string) ([]byte, error) {
	return c.get(ctx, "/api/xbrl/companyfacts/CIK"+cik+".json")
}

// get waits on the shared limiter, issues the request with retry, and
// returns the body of a 200 response. Other statuses yield *StatusError.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Wait fails early when the next token falls after the deadline.
		if _, ok := ctx.Deadline(); ok {
			return nil, fmt.Errorf("%w: rate limiter: %w", types.ErrTimeout, err)
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("url", url).Msg("registry request")

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxAttempts, c.log)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}
