package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/web3-frozen/portfolio-exporter/internal/exporter"
	"github.com/web3-frozen/portfolio-exporter/internal/fetch"
)

func TestCoinGeckoCollect(t *testing.T) {
	var pagesSeen atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesSeen.Add(1)
		q := r.URL.Query()
		if q.Get("vs_currency") != "usd" || q.Get("per_page") != "250" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		if q.Get("page") != "1" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{
			"id": "bitcoin",
			"symbol": "btc",
			"name": "Bitcoin",
			"current_price": 97000.5,
			"market_cap": 1900000000000,
			"market_cap_rank": 1,
			"total_volume": 30000000000,
			"high_24h": 98000,
			"low_24h": 96000,
			"price_change_24h": -500,
			"price_change_percentage_24h": -0.51,
			"market_cap_change_24h": -10000000000,
			"market_cap_change_percentage_24h": -0.52,
			"circulating_supply": 19800000,
			"total_supply": 21000000,
			"max_supply": 21000000,
			"ath": 108000,
			"ath_change_percentage": -10.2,
			"atl": 67.81,
			"atl_change_percentage": 142900.1
		}]`))
	}))
	defer srv.Close()

	c := NewCoinGecko(fetch.New(), srv.URL)
	body, err := c.Collect(context.Background(), exporter.Request{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if got := pagesSeen.Load(); got != 3 {
		t.Errorf("pages fetched = %d, want 3", got)
	}
	// 4 allow-listed keys + 13 renamed keys, one coin.
	if got := strings.Count(body, "\n") + 1; got != 17 {
		t.Fatalf("line count = %d, want 17:\n%s", got, body)
	}
	labels := `{id="bitcoin",name="Bitcoin",symbol="btc"}`
	for _, want := range []string{
		"coingecko_price_usd" + labels + " 97000.5",
		"coingecko_market_cap_rank" + labels + " 1",
		"coingecko_price_change_24h_percent" + labels + " -0.51",
		"coingecko_high_24h_usd" + labels + " 98000",
		"coingecko_ath_usd" + labels + " 108000",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing line %q in:\n%s", want, body)
		}
	}
}

func TestCoinGeckoNullSupply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") != "1" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{
			"id": "ethereum", "symbol": "eth", "name": "Ethereum",
			"current_price": 3500, "market_cap_rank": 2,
			"circulating_supply": 120000000,
			"total_supply": null, "max_supply": null
		}]`))
	}))
	defer srv.Close()

	c := NewCoinGecko(fetch.New(), srv.URL)
	body, err := c.Collect(context.Background(), exporter.Request{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if strings.Contains(body, "total_supply") || strings.Contains(body, "max_supply") {
		t.Errorf("null supply fields emitted:\n%s", body)
	}
	if !strings.Contains(body, "coingecko_circulating_supply") {
		t.Errorf("circulating supply missing:\n%s", body)
	}
}

func TestCoinGeckoPageFailureFailsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewCoinGecko(fetch.New(), srv.URL)
	_, err := c.Collect(context.Background(), exporter.Request{})

	var uerr *fetch.UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want *fetch.UpstreamError", err)
	}
}
