// Package fdc is a typed client for the USDA FoodData Central API.
//
// It exposes the paginated food catalog as a lazy sequence and single
// foods as the Detail union. The client performs exactly one round trip
// per call and never retries; retry policy belongs to the caller.
package fdc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fdcsync/internal/logging"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public FoodData Central endpoint.
	DefaultBaseURL = "https://api.nal.usda.gov/fdc/"
	// DefaultPageSize is the page size used when walking foods/list.
	DefaultPageSize = 200

	endpointFoodsList = "v1/foods/list"
	maxErrorBody      = 4 << 10
)

// Client talks to the FoodData Central REST API.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logging.Logger
	pageSize   int
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse base url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.baseURL = u
		return nil
	}
}

// WithAPIKey sets the api_key query credential.
func WithAPIKey(key string) Option {
	return func(c *Client) error {
		c.apiKey = key
		return nil
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithRateLimit throttles outbound requests to limit per second with the
// given burst. A zero limit disables throttling.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) error {
		if limit <= 0 {
			c.limiter = nil
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(limit, burst)
		return nil
	}
}

// WithLimiter shares an existing limiter, so several clients built for the
// same key draw from one budget.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) error {
		c.limiter = l
		return nil
	}
}

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) error {
		c.logger = l.With("module", "fdc_client")
		return nil
	}
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return fmt.Errorf("page size must be positive, got %d", n)
		}
		c.pageSize = n
		return nil
	}
}

// NewClient builds a Client with defaults overridden by opts.
func NewClient(opts ...Option) (*Client, error) {
	base, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNopLogger(),
		pageSize:   DefaultPageSize,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// get performs one GET against endpoint and returns the raw JSON body.
func (c *Client) get(ctx context.Context, endpoint, label string, params url.Values) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if params == nil {
		params = url.Values{}
	}
	c.logger.Debug(ctx, "api request", "endpoint", endpoint, "params", params.Encode())
	params.Set("api_key", c.apiKey)

	u := c.baseURL.ResolveReference(&url.URL{Path: endpoint})
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	apiRequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		apiRequestsTotal.WithLabelValues(label, "error").Inc()
		c.logger.Error(ctx, "api request failed", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("fdc %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	apiRequestsTotal.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error(ctx, "api http error", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: string(bytes.TrimSpace(b))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fdc %s: read body: %w", endpoint, err)
	}
	c.logger.Debug(ctx, "api request succeeded", "endpoint", endpoint, "bytes", len(body))
	return body, nil
}

// ListFoodPage fetches one page of abridged foods. Page numbers start at
// 1. A nil dataType lists every data type.
func (c *Client) ListFoodPage(ctx context.Context, dataType *DataType, page int) ([]AbridgedFood, error) {
	params := url.Values{}
	if dataType != nil {
		params.Set("dataType", dataType.String())
	}
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("pageNumber", strconv.Itoa(page))

	c.logger.Info(ctx, "fetching food list page", "page", page, "data_type", dataTypeLabel(dataType))
	raw, err := c.get(ctx, endpointFoodsList, "foods_list", params)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		if isFalsy(trimmed) {
			c.logger.Debug(ctx, "no food items on page", "page", page)
			return nil, nil
		}
		c.logger.Error(ctx, "food list is not a list", "page", page, "kind", jsonKind(trimmed))
		return nil, fmt.Errorf("%w: expected list, got %s", ErrUnexpectedShape, jsonKind(trimmed))
	}

	var foods []AbridgedFood
	if err := json.Unmarshal(trimmed, &foods); err != nil {
		return nil, fmt.Errorf("decode food list page %d: %w", page, err)
	}
	for i := range foods {
		if foods[i].FdcID == 0 {
			return nil, fmt.Errorf("%w: page %d item %d has no fdcId", ErrInvalidRecord, page, i)
		}
	}
	c.logger.Info(ctx, "retrieved food list page", "page", page, "count", len(foods))
	return foods, nil
}

// ListFoods walks foods/list from page 1 until the first empty page and
// yields each food as it is consumed. Pages are fetched lazily: breaking
// out of the range loop stops the walk. The first error is yielded once
// and ends the sequence. Every call starts a fresh walk.
func (c *Client) ListFoods(ctx context.Context, dataType *DataType) iter.Seq2[AbridgedFood, error] {
	return func(yield func(AbridgedFood, error) bool) {
		for page := 1; ; page++ {
			foods, err := c.ListFoodPage(ctx, dataType, page)
			if err != nil {
				yield(AbridgedFood{}, err)
				return
			}
			if len(foods) == 0 {
				return
			}
			for _, f := range foods {
				if !yield(f, nil) {
					return
				}
			}
		}
	}
}

// GetFood fetches a single food by FDC ID and parses it into its variant.
func (c *Client) GetFood(ctx context.Context, fdcID int64) (Detail, error) {
	c.logger.Info(ctx, "fetching food detail", "fdc_id", fdcID)
	raw, err := c.get(ctx, "v1/food/"+strconv.FormatInt(fdcID, 10), "food", nil)
	if err != nil {
		return nil, err
	}
	d, err := ParseDetail(raw)
	if err != nil {
		c.logger.Error(ctx, "food detail rejected", "fdc_id", fdcID, "error", err)
		return nil, err
	}
	return d, nil
}

func dataTypeLabel(dt *DataType) string {
	if dt == nil {
		return "all"
	}
	return dt.String()
}
