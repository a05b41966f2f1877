package freight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetQuote_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/freight/01310-100" {
			t.Fatalf("path = %s, want /api/freight/01310-100", r.URL.Path)
		}
		if got := r.URL.Query().Get("items"); got != "2" {
			t.Fatalf("items = %s, want 2", got)
		}

		resp := Quote{
			CEP:          "01310-100",
			Price:        45.9,
			DeliveryDays: 7,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.GetQuote(ctx, "01310-100", 2)
	if err != nil {
		t.Fatalf("GetQuote error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", code, http.StatusOK)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
	if res == nil || res.CEP != "01310-100" || res.Price != 45.9 || res.DeliveryDays != 7 {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestGetQuote_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.GetQuote(ctx, "01310-100", 1)
	if err != nil {
		t.Fatalf("GetQuote error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil quote for 429, got %+v", res)
	}
	if code != http.StatusTooManyRequests {
		t.Fatalf("status code = %d, want %d", code, http.StatusTooManyRequests)
	}
	if retry < 5*time.Second {
		t.Fatalf("retryAfter = %v, want at least 5s", retry)
	}
}

func TestGetQuote_NoCoverage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, code, retry, err := client.GetQuote(ctx, "99999-999", 1)
	if err != nil {
		t.Fatalf("GetQuote error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil quote for 204, got %+v", res)
	}
	if code != http.StatusNoContent {
		t.Fatalf("status code = %d, want %d", code, http.StatusNoContent)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
}

func TestGetQuote_NotConfigured(t *testing.T) {
	client := &Client{}

	if _, _, _, err := client.GetQuote(context.Background(), "01310-100", 1); err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
