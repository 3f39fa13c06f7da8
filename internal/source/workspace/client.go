package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Config holds workspace API client configuration.
type Config struct {
	BaseURL        string
	Token          string
	PageSize       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client talks to the external content workspace API. The pipeline treats
// the workspace as an opaque upstream returning typed pages and blocks.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	pageSize       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		pageSize:       pageSize,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.Named("workspace"),
	}
}

type queryRequest struct {
	Filter      *statusFilter `json:"filter,omitempty"`
	Sorts       []querySort   `json:"sorts,omitempty"`
	PageSize    int           `json:"page_size,omitempty"`
	StartCursor string        `json:"start_cursor,omitempty"`
}

type statusFilter struct {
	Property string       `json:"property"`
	Select   selectEquals `json:"select"`
}

type selectEquals struct {
	Equals string `json:"equals"`
}

type querySort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type queryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type childrenResponse struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// QueryPublished lists every page in the data source whose Status is
// Published, sorted by publish date descending, following cursor pagination
// until the source is exhausted.
func (c *Client) QueryPublished(ctx context.Context, dataSourceID string) ([]Page, error) {
	var (
		pages  []Page
		cursor string
	)
	for {
		reqBody := queryRequest{
			Filter: &statusFilter{
				Property: "Status",
				Select:   selectEquals{Equals: "Published"},
			},
			Sorts: []querySort{
				{Property: "Date", Direction: "descending"},
			},
			PageSize:    c.pageSize,
			StartCursor: cursor,
		}

		var resp queryResponse
		endpoint := fmt.Sprintf("%s/databases/%s/query", c.baseURL, dataSourceID)
		if err := c.doJSON(ctx, http.MethodPost, endpoint, reqBody, &resp); err != nil {
			return nil, fmt.Errorf("query data source %s: %w", dataSourceID, err)
		}

		pages = append(pages, resp.Results...)
		c.logger.Debug("fetched page batch",
			zap.String("data_source", dataSourceID),
			zap.Int("batch", len(resp.Results)),
			zap.Int("total", len(pages)),
		)

		if !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

// BlockChildren retrieves the direct children of a block (a page id works as
// the root), following cursor pagination.
func (c *Client) BlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	var (
		blocks []Block
		cursor string
	)
	for {
		endpoint := fmt.Sprintf("%s/blocks/%s/children?page_size=%d", c.baseURL, blockID, c.pageSize)
		if cursor != "" {
			endpoint += "&start_cursor=" + url.QueryEscape(cursor)
		}

		var resp childrenResponse
		if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, fmt.Errorf("block children %s: %w", blockID, err)
		}

		blocks = append(blocks, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return blocks, nil
		}
		cursor = resp.NextCursor
	}
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var retryable bool
		retryable, err = c.doOnce(ctx, method, endpoint, body, out)
		if err == nil {
			return nil
		}
		if !retryable || attempt == c.maxAttempts {
			break
		}

		backoff := c.backoff(attempt)
		c.logger.Warn("request failed, retrying",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, body, out interface{}) (retryable bool, err error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Auth and client errors will not heal on retry.
		return resp.StatusCode >= 500, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if c.maxBackoff > 0 && backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}
