// Package phonelookup provides a client for the external phone-intelligence
// API used to validate discovered numbers. Calls are rate limited client
// side; provider-side throttling surfaces as resilience.RateLimitError so
// callers can apply their own backoff.
package phonelookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/skiptrace-cli/internal/resilience"
)

const defaultBaseURL = "https://api.numintel.com/v1"

// Client validates phone numbers against the lookup provider.
type Client interface {
	Lookup(ctx context.Context, number string) (*Result, error)
}

// Result holds the provider's data for one number.
type Result struct {
	CallerName     string `json:"caller_name"`
	CallerType     string `json:"caller_type"`
	Carrier        string `json:"carrier"`
	CountryCode    string `json:"country_code"`
	NationalFormat string `json:"national_format"`
	Portable       bool   `json:"portable"`
	PortedFrom     string `json:"ported_from,omitempty"`
	RecordType     string `json:"record_type"`
}

// lookupResponse is the provider's wire envelope.
type lookupResponse struct {
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Data    *Result `json:"data,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithRateLimit sets the client-side requests-per-second cap.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a phone-lookup API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(1, 1), // provider allows ~1 req/s sustained
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, number string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "phonelookup: rate limiter wait")
	}

	u := fmt.Sprintf("%s/lookup?number=%s", c.baseURL, url.QueryEscape(number))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "phonelookup: create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "phonelookup: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "phonelookup: read response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resilience.NewRateLimitError(
			eris.Errorf("phonelookup: rate limited: %s", string(respBody)), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("phonelookup: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope lookupResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, eris.Wrap(err, "phonelookup: unmarshal response")
	}

	if !envelope.Success {
		// Throttling is reported inside a 200 envelope by this provider.
		if strings.Contains(strings.ToLower(envelope.Error), "rate limit") {
			return nil, resilience.NewRateLimitError(
				eris.Errorf("phonelookup: %s", envelope.Error), resp.StatusCode)
		}
		return nil, eris.Errorf("phonelookup: lookup failed: %s", envelope.Error)
	}
	if envelope.Data == nil {
		return nil, eris.New("phonelookup: success response missing data")
	}

	return envelope.Data, nil
}
