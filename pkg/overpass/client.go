package overpass

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
)

// Client fetches raw nodes from the Overpass API.
type Client interface {
	// FetchNodes runs one bounded-area query for the given tag predicate
	// and returns the raw element list unfiltered. It never retries.
	FetchNodes(ctx context.Context, predicate string, bbox BBox) ([]Node, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the Overpass interpreter endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout (also sent to the interpreter as
// its server-side timeout).
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// WithUserAgent sets the identifying User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithRateLimit caps the outbound request rate in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates an Overpass client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:   "https://overpass-api.de/api/interpreter",
		timeout:   60 * time.Second,
		userAgent: "initiative-cli/1.0",
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// BuildQuery renders the Overpass QL for a tag predicate inside a bounding
// box. Overpass expects the bbox as (south,west,north,east).
func BuildQuery(predicate string, bbox BBox, timeout time.Duration) string {
	secs := int(timeout.Seconds())
	if secs <= 0 {
		secs = 60
	}
	return fmt.Sprintf("[out:json][timeout:%d];node%s(%v,%v,%v,%v);out body;",
		secs, predicate, bbox.South, bbox.West, bbox.North, bbox.East)
}

// overpassResponse mirrors the interpreter's JSON envelope.
type overpassResponse struct {
	Elements []struct {
		ID   int64             `json:"id"`
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// FetchNodes implements Client.
func (c *client) FetchNodes(ctx context.Context, predicate string, bbox BBox) ([]Node, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limiter wait")
	}

	query := BuildQuery(predicate, bbox, c.timeout)
	form := url.Values{"data": {query}}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, eris.Wrap(ErrSourceTimeout, err.Error())
		}
		return nil, eris.Wrap(ErrSourceUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Wrapf(ErrSourceUnavailable, "status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(ErrSourceUnavailable, err.Error())
	}

	var parsed overpassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "overpass: decode response")
	}

	nodes := make([]Node, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		nodes = append(nodes, Node{ID: el.ID, Lat: el.Lat, Lon: el.Lon, Tags: el.Tags})
	}
	return nodes, nil
}
