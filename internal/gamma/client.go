package gamma

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

	"github.com/shopspring/decimal"
)

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gamma API error (%d): %s", e.Status, e.Body)
}

// Market is the point-in-time view of one binary market. It is never cached.
type Market struct {
	ID       string
	Question string
	YesPrice decimal.Decimal
	NoPrice  decimal.Decimal
	Volume   float64
	EndDate  time.Time
}

// MarketLister is what the matcher needs from the market-data service.
type MarketLister interface {
	ActiveMarkets(ctx context.Context, limit int) ([]Market, error)
}

type Client struct {
	host       string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://gamma-api.polymarket.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{host: strings.TrimRight(host, "/"), httpClient: httpClient}
}

// ActiveMarkets lists open markets ordered by volume, highest first.
func (c *Client) ActiveMarkets(ctx context.Context, limit int) ([]Market, error) {
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{}
	query.Set("active", "true")
	query.Set("closed", "false")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("order", "volumeNum")
	query.Set("ascending", "false")
	body, err := c.doRequest(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	return parseMarkets(body)
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

type rawMarket struct {
	ID            json.RawMessage `json:"id"`
	ConditionID   string          `json:"conditionId"`
	Question      string          `json:"question"`
	Outcomes      json.RawMessage `json:"outcomes"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
	VolumeNum     float64         `json:"volumeNum"`
	EndDate       string          `json:"endDate"`
}

func parseMarkets(body []byte) ([]Market, error) {
	var raws []rawMarket
	if err := json.Unmarshal(body, &raws); err != nil {
		var wrapped struct {
			Data []rawMarket `json:"data"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode markets: %w", err)
		}
		raws = wrapped.Data
	}
	out := make([]Market, 0, len(raws))
	for _, r := range raws {
		id := strings.TrimSpace(r.ConditionID)
		if id == "" {
			id = strings.Trim(string(r.ID), `" `)
		}
		if id == "" || strings.TrimSpace(r.Question) == "" {
			continue
		}
		yes, no := ParseOutcomePrices(r.OutcomePrices)
		if outcomes := decodeStringList(r.Outcomes); len(outcomes) == 2 &&
			strings.EqualFold(outcomes[0], "no") && strings.EqualFold(outcomes[1], "yes") {
			yes, no = no, yes
		}
		end, _ := time.Parse(time.RFC3339, strings.TrimSpace(r.EndDate))
		out = append(out, Market{
			ID:       id,
			Question: strings.TrimSpace(r.Question),
			YesPrice: yes,
			NoPrice:  no,
			Volume:   r.VolumeNum,
			EndDate:  end,
		})
	}
	return out, nil
}

// FallbackPrice is used for both sides when outcomePrices is missing or malformed.
var FallbackPrice = decimal.RequireFromString("0.5")

// ParseOutcomePrices accepts either a JSON string holding an array or the array
// itself, with string or numeric elements.
func ParseOutcomePrices(raw json.RawMessage) (yes, no decimal.Decimal) {
	list := decodeStringList(raw)
	if len(list) < 2 {
		return FallbackPrice, FallbackPrice
	}
	y, err1 := decimal.NewFromString(list[0])
	n, err2 := decimal.NewFromString(list[1])
	if err1 != nil || err2 != nil || y.IsNegative() || n.IsNegative() {
		return FallbackPrice, FallbackPrice
	}
	return y, n
}

func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		raw = json.RawMessage(inner)
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, strings.TrimSpace(v))
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			return nil
		}
	}
	return out
}
