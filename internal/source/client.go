package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tinytelemetry/dealboard/internal/model"
)

const defaultRequestTimeout = 15 * time.Second

// ClientConfig holds connection settings for the dashboard backend.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client implements Source over the backend REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a REST client. BaseURL is required.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("source: base url is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("source: parse base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Slideshow(ctx context.Context, id string) (*model.Slideshow, error) {
	var dto slideshowDTO
	if err := c.get(ctx, "/api/slideshows/"+url.PathEscape(id), &dto); err != nil {
		return nil, err
	}
	if dto.ID == "" {
		dto.ID = id
	}
	return dto.toModel(), nil
}

func (c *Client) LeaderboardStats(ctx context.Context, leaderboardID string) (*model.LeaderboardStats, error) {
	var dto statsDTO
	if err := c.get(ctx, "/api/leaderboards/"+url.PathEscape(leaderboardID)+"/stats", &dto); err != nil {
		return nil, err
	}
	if dto.Leaderboard.ID == "" {
		dto.Leaderboard.ID = leaderboardID
	}
	return dto.toModel(), nil
}

func (c *Client) TrendHistory(ctx context.Context, leaderboardID string) (*model.TrendHistory, error) {
	var dto trendDTO
	if err := c.get(ctx, "/api/leaderboards/"+url.PathEscape(leaderboardID)+"/history", &dto); err != nil {
		return nil, err
	}
	if dto.LeaderboardID == "" {
		dto.LeaderboardID = leaderboardID
	}
	return dto.toModel(), nil
}

func (c *Client) Quotes(ctx context.Context) ([]model.Quote, error) {
	var dto []quoteDTO
	if err := c.get(ctx, "/api/quotes", &dto); err != nil {
		return nil, err
	}
	return quotesToModel(dto), nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("source: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("source: decode %s: %w", path, err)
	}
	return nil
}
