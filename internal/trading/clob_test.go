package trading

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"eventarb/internal/pipeline"
)

func TestCLOBTrader_ExecuteTradeSigned(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get("X-API-Key") != "key" {
			t.Fatalf("missing api key")
		}
		if r.Header.Get("X-Timestamp") != "1700000000" {
			t.Fatalf("timestamp=%s", r.Header.Get("X-Timestamp"))
		}
		if want := Sign("secret", "1700000000", "POST", "/orders", body); r.Header.Get("X-Signature") != want {
			t.Fatalf("signature mismatch")
		}
		var req placeOrderRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.MarketID != "0xfed" || req.Outcome != "YES" || req.Price != "0.72" || req.SizeUSD != "10" || req.ClientOrderID == "" {
			t.Fatalf("req=%+v", req)
		}
		_, _ = w.Write([]byte(`{"data":{"order_id":"abc","status":"FILLED","filled_usd":"10","avg_price":0.72}}`))
	}))
	defer srv.Close()

	tr := NewCLOBTrader(srv.Client(), srv.URL, CLOBAuth{APIKey: "key", APISecret: "secret", SignRequests: true}, CLOBPaths{})
	tr.now = func() time.Time { return fixed }
	res, err := tr.ExecuteTrade(context.Background(), Decision{
		MarketID: "0xfed", Outcome: pipeline.OutcomeYes, ShouldTrade: true, Size: d("10"), Price: d("0.72"),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.OrderID != "abc" || res.Status != "filled" || !res.AvgPrice.Equal(d("0.72")) || !res.FilledSize.Equal(d("10")) {
		t.Fatalf("res=%+v", res)
	}
}

func TestCLOBTrader_InsufficientBalanceClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"not enough balance / allowance"}`))
	}))
	defer srv.Close()

	tr := NewCLOBTrader(srv.Client(), srv.URL, CLOBAuth{}, CLOBPaths{})
	_, err := tr.ExecuteTrade(context.Background(), tradable())
	if ClassifyError(err) != KindInsufficientBalance {
		t.Fatalf("err=%v kind=%s", err, ClassifyError(err))
	}
}

func TestCLOBTrader_BalanceDepositPositions(t *testing.T) {
	var deposited string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/balance":
			_, _ = w.Write([]byte(`{"available":"42.5"}`))
		case "/deposit":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			deposited = body["amount"]
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/positions":
			_, _ = w.Write([]byte(`[{"market_id":"a","outcome":"yes","size":"13.9","avg_price":"0.72"},{"market_id":"b","size":"0"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tr := NewCLOBTrader(srv.Client(), srv.URL, CLOBAuth{}, CLOBPaths{})
	ctx := context.Background()
	bal, err := tr.CheckBalance(ctx, d("50"))
	if err != nil || !bal.Available.Equal(d("42.5")) || bal.Sufficient {
		t.Fatalf("bal=%+v err=%v", bal, err)
	}
	if err := tr.HandleDeposit(ctx, decimal.NewFromInt(10)); err != nil || deposited != "10" {
		t.Fatalf("deposit=%q err=%v", deposited, err)
	}
	positions, err := tr.OpenPositions(ctx)
	if err != nil || len(positions) != 1 || positions[0].MarketID != "a" || positions[0].Outcome != "YES" {
		t.Fatalf("positions=%+v err=%v", positions, err)
	}
}
