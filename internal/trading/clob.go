package trading

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"eventarb/internal/config"
	"eventarb/internal/position"
)

// CLOBAuth carries the REST credentials. With SignRequests set every request
// gets X-Timestamp and an HMAC-SHA256 X-Signature over
// "ts\nMETHOD\npath\nbody".
type CLOBAuth struct {
	APIKey       string
	APISecret    string
	Passphrase   string
	Address      string
	SignRequests bool
}

type CLOBPaths struct {
	Order     string
	Balance   string
	Deposit   string
	Positions string
}

// CLOBTrader places orders through an order-book REST gateway.
type CLOBTrader struct {
	host       string
	httpClient *http.Client
	auth       CLOBAuth
	paths      CLOBPaths
	now        func() time.Time
}

func NewCLOBTrader(httpClient *http.Client, host string, auth CLOBAuth, paths CLOBPaths) *CLOBTrader {
	if host == "" {
		host = "https://clob.polymarket.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	paths.Order = normalizePath(paths.Order, "/orders")
	paths.Balance = normalizePath(paths.Balance, "/balance")
	paths.Deposit = normalizePath(paths.Deposit, "/deposit")
	paths.Positions = normalizePath(paths.Positions, "/positions")
	return &CLOBTrader{
		host:       strings.TrimRight(host, "/"),
		httpClient: httpClient,
		auth:       auth,
		paths:      paths,
		now:        time.Now,
	}
}

func NewCLOBTraderFromConfig(c config.ClobRESTConfig) *CLOBTrader {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewCLOBTrader(&http.Client{Timeout: timeout}, c.BaseURL, CLOBAuth{
		APIKey:       c.APIKey,
		APISecret:    c.APISecret,
		Passphrase:   c.Passphrase,
		Address:      c.Address,
		SignRequests: c.SignRequests,
	}, CLOBPaths{
		Order:     c.OrderPath,
		Balance:   c.BalancePath,
		Deposit:   c.DepositPath,
		Positions: c.PositionsPath,
	})
}

type placeOrderRequest struct {
	MarketID      string `json:"market_id"`
	Outcome       string `json:"outcome"`
	Side          string `json:"side"`
	OrderType     string `json:"order_type"`
	Price         string `json:"price"`
	SizeUSD       string `json:"size_usd"`
	ClientOrderID string `json:"client_order_id"`
}

func (c *CLOBTrader) CheckBalance(ctx context.Context, amount decimal.Decimal) (Balance, error) {
	body, err := c.doJSON(ctx, http.MethodGet, c.paths.Balance, nil)
	if err != nil {
		return Balance{}, err
	}
	root, err := decodeEnvelope(body)
	if err != nil {
		return Balance{}, err
	}
	avail := firstDecimal(root, "available", "balance", "usdc")
	return Balance{Available: avail, Sufficient: avail.GreaterThanOrEqual(amount)}, nil
}

func (c *CLOBTrader) ExecuteTrade(ctx context.Context, d Decision) (TradeResult, error) {
	req := placeOrderRequest{
		MarketID:      d.MarketID,
		Outcome:       string(d.Outcome),
		Side:          "BUY",
		OrderType:     "FOK",
		Price:         d.Price.String(),
		SizeUSD:       d.Size.String(),
		ClientOrderID: uuid.NewString(),
	}
	body, err := c.doJSON(ctx, http.MethodPost, c.paths.Order, req)
	if err != nil {
		return TradeResult{}, err
	}
	root, err := decodeEnvelope(body)
	if err != nil {
		return TradeResult{}, err
	}
	if order, ok := root["order"].(map[string]any); ok {
		root = order
	}
	res := TradeResult{
		OrderID:    firstString(root, "order_id", "id", "orderID"),
		Status:     strings.ToLower(firstString(root, "status", "state")),
		FilledSize: firstDecimal(root, "filled_usd", "filled", "size_matched"),
		AvgPrice:   firstDecimal(root, "avg_price", "average_price", "price"),
	}
	if failure := firstString(root, "failure_reason", "error", "errorMsg"); failure != "" && res.OrderID == "" {
		return TradeResult{}, fmt.Errorf("order rejected: %s", failure)
	}
	if res.OrderID == "" {
		return TradeResult{}, fmt.Errorf("order id missing in response")
	}
	return res, nil
}

func (c *CLOBTrader) HandleDeposit(ctx context.Context, amount decimal.Decimal) error {
	_, err := c.doJSON(ctx, http.MethodPost, c.paths.Deposit, map[string]string{"amount": amount.String()})
	return err
}

func (c *CLOBTrader) OpenPositions(ctx context.Context) ([]position.Position, error) {
	body, err := c.doJSON(ctx, http.MethodGet, c.paths.Positions, nil)
	if err != nil {
		return nil, err
	}
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		root, err2 := decodeEnvelope(body)
		if err2 != nil {
			return nil, err
		}
		raw, _ := json.Marshal(root["positions"])
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode positions: %w", err)
		}
	}
	out := make([]position.Position, 0, len(items))
	for _, it := range items {
		id := firstString(it, "market_id", "conditionId", "market")
		if id == "" {
			continue
		}
		size := firstDecimal(it, "size", "shares")
		if !size.IsPositive() {
			continue
		}
		var opened time.Time
		if s := firstString(it, "opened_at", "created_at"); s != "" {
			opened, _ = time.Parse(time.RFC3339, s)
		}
		out = append(out, position.Position{
			MarketID: id,
			Outcome:  strings.ToUpper(firstString(it, "outcome", "side")),
			Size:     size,
			AvgPrice: firstDecimal(it, "avg_price", "avgPrice", "price"),
			OpenedAt: opened,
		})
	}
	return out, nil
}

func (c *CLOBTrader) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	bodyRaw := []byte{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		bodyRaw = raw
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if v := strings.TrimSpace(c.auth.APIKey); v != "" {
		req.Header.Set("X-API-Key", v)
	}
	if v := strings.TrimSpace(c.auth.Passphrase); v != "" {
		req.Header.Set("X-Passphrase", v)
	}
	if v := strings.TrimSpace(c.auth.Address); v != "" {
		req.Header.Set("X-Address", v)
	}
	if c.auth.SignRequests && strings.TrimSpace(c.auth.APISecret) != "" {
		ts := strconv.FormatInt(c.now().UTC().Unix(), 10)
		req.Header.Set("X-Timestamp", ts)
		req.Header.Set("X-Signature", Sign(c.auth.APISecret, ts, method, path, bodyRaw))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func Sign(secret, ts, method, path string, body []byte) string {
	payload := ts + "\n" + strings.ToUpper(strings.TrimSpace(method)) + "\n" + path + "\n" + string(body)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func normalizePath(path, fallback string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = fallback
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// decodeEnvelope accepts {...} or {data:{...}}.
func decodeEnvelope(raw []byte) (map[string]any, error) {
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	if data, ok := root["data"].(map[string]any); ok {
		root = data
	}
	return root, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprintf("%v", v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstDecimal(m map[string]any, keys ...string) decimal.Decimal {
	for _, k := range keys {
		s := firstString(m, k)
		if s == "" {
			continue
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.Zero
}
