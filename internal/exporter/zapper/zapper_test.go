package zapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/web3-frozen/portfolio-exporter/internal/exporter"
	"github.com/web3-frozen/portfolio-exporter/internal/fetch"
	"github.com/web3-frozen/portfolio-exporter/internal/jobs"
	"github.com/web3-frozen/portfolio-exporter/internal/render"
)

const testAddress = "0x5853ed4f26a3fcea565b3fbc698bb19cdf6deb85"

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(fetch.New(), srv.URL, "test-key")
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestBalancesCollect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/apps/balances/supported", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want test-key", got)
		}
		writeJSON(w, `[
			{"network":"ethereum","apps":[{"appId":"uniswap-v2"},{"appId":"aave"}]},
			{"network":"polygon","apps":[{"appId":"quickswap"}]}
		]`)
	})
	mux.HandleFunc("/apps/uniswap-v2/balances", func(w http.ResponseWriter, r *http.Request) {
		// Same asset address twice under different categories: only the
		// first occurrence may survive.
		writeJSON(w, fmt.Sprintf(`{"balances":{%q:{"products":[
			{"label":"Pools","assets":[
				{"type":"pool","address":"0xpool1","symbol":"UNI-V2","balance":2,"balanceUSD":50},
				{"type":"staked","address":"0xpool1","symbol":"UNI-V2","balance":2,"balanceUSD":50}
			]}
		]}}}`, testAddress))
	})
	mux.HandleFunc("/apps/aave/balances", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/apps/quickswap/balances", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, fmt.Sprintf(`{"balances":{%q:{"products":[
			{"label":"Pools","assets":[
				{"type":"pool","address":"0xpool2","symbol":"","displayProps":{"label":"QS LP"},"balance":1,"balanceUSD":10}
			]}
		]}}}`, testAddress))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	z := NewBalances(newTestClient(srv), slog.Default())
	body, err := z.Collect(context.Background(), exporter.Request{Address: testAddress})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	lines := strings.Split(body, "\n")
	// uniswap-v2 contributes 2 lines (one deduplicated asset, two keys),
	// aave is contained as zero lines, quickswap contributes 2.
	if len(lines) != 4 {
		t.Fatalf("len(lines) = %d, want 4:\n%s", len(lines), body)
	}
	if got := strings.Count(body, `assetAddress="0xpool1"`); got != 2 {
		t.Errorf("0xpool1 line count = %d, want 2 (dedup by address)", got)
	}
	if strings.Contains(body, "aave") {
		t.Errorf("failed sub-source leaked lines:\n%s", body)
	}
	// Fan-out order follows discovery order, not completion order.
	if !strings.Contains(lines[0], `appId="uniswap-v2"`) {
		t.Errorf("first line = %q, want uniswap-v2 first", lines[0])
	}
	if !strings.Contains(lines[3], `appId="quickswap"`) {
		t.Errorf("last line = %q, want quickswap last", lines[3])
	}
	// Empty symbol fell back to the display label.
	if !strings.Contains(body, `assetName="QS LP"`) {
		t.Errorf("display-label fallback missing:\n%s", body)
	}
}

func TestBalancesCollectDiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	z := NewBalances(newTestClient(srv), slog.Default())
	_, err := z.Collect(context.Background(), exporter.Request{Address: testAddress})

	var uerr *fetch.UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want *fetch.UpstreamError", err)
	}
}

func TestBalancesCollectRequiresAddress(t *testing.T) {
	z := NewBalances(NewClient(fetch.New(), DefaultBaseURL, ""), slog.Default())
	_, err := z.Collect(context.Background(), exporter.Request{})

	var verr exporter.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestRefreshCollect(t *testing.T) {
	var tokensPolls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/balances/tokens", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, `{"jobId":"tokens-1"}`)
			return
		}
		writeJSON(w, fmt.Sprintf(`{%q:[
			{"network":"ethereum","token":{"address":"0xweth","symbol":"WETH","price":3500,"balance":1.5,"balanceUSD":5250}}
		]}`, testAddress))
	})
	mux.HandleFunc("/balances/apps", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, `{"jobId":"apps-1"}`)
			return
		}
		writeJSON(w, `[
			{"appId":"yearn","network":"ethereum","products":[
				{"label":"Vaults","assets":[
					{"type":"vault","address":"0xvault","symbol":"yvWETH","balance":1,"balanceUSD":3500}
				]}
			]}
		]`)
	})
	mux.HandleFunc("/balances/job-status", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("jobId")
		// tokens job needs a second poll; apps job completes immediately
		if id == "tokens-1" && tokensPolls.Add(1) < 2 {
			writeJSON(w, fmt.Sprintf(`{"jobId":%q,"status":"active"}`, id))
			return
		}
		writeJSON(w, fmt.Sprintf(`{"jobId":%q,"status":"completed"}`, id))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	z := NewRefresh(newTestClient(srv), slog.Default())
	z.waiter.Interval = time.Millisecond

	body, err := z.Collect(context.Background(), exporter.Request{Address: testAddress})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	lines := strings.Split(body, "\n")
	if len(lines) != 5 {
		t.Fatalf("len(lines) = %d, want 5 (3 token + 2 app):\n%s", len(lines), body)
	}
	// Tokens render before apps regardless of fetch completion order.
	if !strings.Contains(lines[0], `tokenName="WETH"`) {
		t.Errorf("first line = %q, want token line", lines[0])
	}
	if !strings.Contains(lines[4], `appId="yearn"`) {
		t.Errorf("last line = %q, want app line", lines[4])
	}
	if !strings.Contains(body, `network="ethereum"`) {
		t.Errorf("network annotation missing:\n%s", body)
	}
}

func TestRefreshCollectJobTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/balances/tokens", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"jobId":"tokens-1"}`)
	})
	mux.HandleFunc("/balances/apps", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"jobId":"apps-1"}`)
	})
	mux.HandleFunc("/balances/job-status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"jobId":"x","status":"active"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	z := NewRefresh(newTestClient(srv), slog.Default())
	z.waiter.Interval = time.Millisecond
	z.waiter.MaxAttempts = 3

	_, err := z.Collect(context.Background(), exporter.Request{Address: testAddress})

	var terr *jobs.TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *jobs.TimeoutError", err)
	}
	if terr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", terr.Attempts)
	}
}

func TestDedupeByAddress(t *testing.T) {
	in := []render.Record{
		{"address": "a"}, {"address": "b"}, {"address": "a"},
		{"address": "c"}, {"address": "b"},
	}
	out := dedupeByAddress(in)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	wantOrder := []string{"a", "b", "c"}
	for i, rec := range out {
		if rec["address"] != wantOrder[i] {
			t.Errorf("out[%d] = %v, want %s", i, rec["address"], wantOrder[i])
		}
	}
}
