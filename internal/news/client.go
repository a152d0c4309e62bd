package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eventarb/internal/ratelimit"
)

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("news API error (%d): %s", e.Status, e.Body)
}

// SearchParams maps onto the /everything endpoint.
type SearchParams struct {
	Query    string
	Language string
	SortBy   string
	PageSize int
	From     time.Time
}

// Source is the upstream news API.
type Source interface {
	TopHeadlines(ctx context.Context) ([]RawArticle, error)
	Everything(ctx context.Context, p SearchParams) ([]RawArticle, error)
}

// Client talks to a NewsAPI-compatible service.
type Client struct {
	host       string
	apiKey     string
	country    string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host, apiKey, country string) *Client {
	if host == "" {
		host = "https://newsapi.org/v2"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if country == "" {
		country = "us"
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		country:    country,
		httpClient: httpClient,
	}
}

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type apiResponse struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Articles []apiArticle `json:"articles"`
}

func (c *Client) TopHeadlines(ctx context.Context) ([]RawArticle, error) {
	q := url.Values{}
	q.Set("country", c.country)
	q.Set("pageSize", "100")
	return c.get(ctx, "/top-headlines", q)
}

func (c *Client) Everything(ctx context.Context, p SearchParams) ([]RawArticle, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	q := url.Values{}
	q.Set("q", p.Query)
	if p.Language != "" {
		q.Set("language", p.Language)
	}
	if p.SortBy != "" {
		q.Set("sortBy", p.SortBy)
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if !p.From.IsZero() {
		q.Set("from", p.From.UTC().Format("2006-01-02"))
	}
	return c.get(ctx, "/everything", q)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]RawArticle, error) {
	fullURL := c.host + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ratelimit.ErrUpstreamRateLimited, &APIError{Status: resp.StatusCode, Body: string(body)})
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	if strings.EqualFold(out.Status, "error") {
		if strings.EqualFold(out.Code, "rateLimited") {
			return nil, fmt.Errorf("%w: %s", ratelimit.ErrUpstreamRateLimited, out.Message)
		}
		return nil, &APIError{Status: resp.StatusCode, Body: out.Code + ": " + out.Message}
	}
	items := make([]RawArticle, 0, len(out.Articles))
	for _, a := range out.Articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || title == "[Removed]" {
			continue
		}
		publishedAt, _ := time.Parse(time.RFC3339, strings.TrimSpace(a.PublishedAt))
		items = append(items, RawArticle{
			Title:       title,
			Description: strings.TrimSpace(a.Description),
			URL:         strings.TrimSpace(a.URL),
			Source:      strings.TrimSpace(a.Source.Name),
			PublishedAt: publishedAt.UTC(),
		})
	}
	return items, nil
}
