package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventarb/internal/ratelimit"
)

func TestClient_TopHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/top-headlines" {
			t.Fatalf("path=%s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "k" {
			t.Fatalf("missing api key header")
		}
		if r.URL.Query().Get("country") != "us" || r.URL.Query().Get("pageSize") != "100" {
			t.Fatalf("query=%s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"Wire"},"title":"Fed cuts rates","description":"d","url":"u","publishedAt":"2026-03-10T09:00:00Z"},
			{"source":{"name":"Wire"},"title":"[Removed]"},
			{"source":{"name":"Wire"},"title":"  "}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "k", "")
	items, err := c.TopHeadlines(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len=%d want=1", len(items))
	}
	if items[0].Source != "Wire" || !items[0].PublishedAt.Equal(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("item=%+v", items[0])
	}
}

func TestClient_EverythingParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/everything" || q.Get("q") != "fed" || q.Get("sortBy") != "publishedAt" ||
			q.Get("language") != "en" || q.Get("from") != "2026-03-07" || q.Get("pageSize") != "20" {
			t.Fatalf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"status":"ok","articles":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "k", "us")
	_, err := c.Everything(context.Background(), SearchParams{
		Query:    "fed",
		Language: "en",
		SortBy:   "publishedAt",
		PageSize: 20,
		From:     time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := c.Everything(context.Background(), SearchParams{}); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestClient_RateLimitedIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "k", "us")
	_, err := c.TopHeadlines(context.Background())
	if !errors.Is(err, ratelimit.ErrUpstreamRateLimited) {
		t.Fatalf("err=%v want ErrUpstreamRateLimited", err)
	}
}

func TestClient_ServerErrorIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "k", "us")
	_, err := c.TopHeadlines(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("err=%v want APIError 500", err)
	}
}
