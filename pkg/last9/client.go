// Package last9 is a thin client for the Last9 read APIs. It currently covers
// the log query endpoint, which pages through results with offset/limit until
// a short page signals the end.
package last9

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	pkgerrors "github.com/last9/otelkit/pkg/errors"
)

const (
	defaultPageLimit     = 10000
	defaultQueryWindow   = 15 * time.Minute
	defaultPhysicalIndex = "Default"
)

// Client talks to the Last9 query API using Basic auth.
type Client struct {
	baseURL   string
	authToken string
	http      *retryablehttp.Client
	logger    *zap.Logger
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithRetryMax(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

func NewClient(baseURL, authToken string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("last9: base URL is required")
	}
	if authToken == "" {
		return nil, fmt.Errorf("last9: auth token is required")
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.RetryWaitMin = 500 * time.Millisecond
	httpClient.RetryWaitMax = 5 * time.Second
	httpClient.Logger = nil

	c := &Client{
		baseURL:   baseURL,
		authToken: authToken,
		http:      httpClient,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// QueryParams selects the log stream and time range.
type QueryParams struct {
	// Query is a LogQL-style selector, e.g. {service=~"example.*"}.
	Query string
	// Start and End are nanosecond epochs. A zero range defaults to the
	// last 15 minutes.
	Start int64
	End   int64
	// PhysicalIndex defaults to "Default".
	PhysicalIndex string
	// Limit per page; defaults to 10000.
	Limit int
}

// LogRecord is one stream entry from the query response.
type LogRecord struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

type queryResponse struct {
	Data struct {
		Result []LogRecord `json:"result"`
	} `json:"data"`
}

// QueryLogs fetches every page for the given params.
func (c *Client) QueryLogs(ctx context.Context, params QueryParams) ([]LogRecord, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("last9: query is required")
	}
	if params.Limit <= 0 {
		params.Limit = defaultPageLimit
	}
	if params.PhysicalIndex == "" {
		params.PhysicalIndex = defaultPhysicalIndex
	}
	if params.End == 0 {
		params.End = time.Now().UnixNano()
	}
	if params.Start == 0 {
		params.Start = params.End - defaultQueryWindow.Nanoseconds()
	}

	var all []LogRecord
	offset := 0

	for {
		page, err := c.fetchPage(ctx, params, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		c.logger.Debug("Fetched log page",
			zap.Int("batch", offset/params.Limit+1),
			zap.Int("records", len(page)),
			zap.Int("total", len(all)),
		)

		// a short or empty page is the last one
		if len(page) < params.Limit {
			break
		}
		offset += params.Limit
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, params QueryParams, offset int) ([]LogRecord, error) {
	u := fmt.Sprintf("%s?query=%s&start=%d&end=%d&offset=%d&limit=%d&index=physical_index:%s",
		c.baseURL,
		url.QueryEscape(params.Query),
		params.Start,
		params.End,
		offset,
		params.Limit,
		url.QueryEscape(params.PhysicalIndex),
	)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("last9: build request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("last9: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("last9: status %d: %w", resp.StatusCode, pkgerrors.QueryAPIUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("last9: status %d (%s): %w", resp.StatusCode, string(body), pkgerrors.QueryAPIRequestFailed)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("last9: decode response: %w", err)
	}

	return decoded.Data.Result, nil
}
