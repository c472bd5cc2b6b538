package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/web3-frozen/portfolio-exporter/internal/exporter"
	"github.com/web3-frozen/portfolio-exporter/internal/fetch"
	"github.com/web3-frozen/portfolio-exporter/internal/render"
)

const (
	CoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

	coinGeckoPages   = 3
	coinGeckoPerPage = 250 // current max accepted by coingecko
)

// CoinGecko exports market metrics for the top coins. It needs no account
// address; the address parameter is ignored.
type CoinGecko struct {
	http    *fetch.Client
	baseURL string
}

func NewCoinGecko(httpc *fetch.Client, baseURL string) *CoinGecko {
	return &CoinGecko{http: httpc, baseURL: baseURL}
}

func (c *CoinGecko) Name() string { return "coingecko" }

// marketRow is one coin from /coins/markets. Optional fields are pointers
// so JSON nulls stay distinguishable from zeros.
type marketRow struct {
	ID                    string   `json:"id"`
	Symbol                string   `json:"symbol"`
	Name                  string   `json:"name"`
	CurrentPrice          *float64 `json:"current_price"`
	MarketCap             *float64 `json:"market_cap"`
	MarketCapRank         *float64 `json:"market_cap_rank"`
	TotalVolume           *float64 `json:"total_volume"`
	High24h               *float64 `json:"high_24h"`
	Low24h                *float64 `json:"low_24h"`
	PriceChange24h        *float64 `json:"price_change_24h"`
	PriceChangePct24h     *float64 `json:"price_change_percentage_24h"`
	MarketCapChange24h    *float64 `json:"market_cap_change_24h"`
	MarketCapChangePct24h *float64 `json:"market_cap_change_percentage_24h"`
	CirculatingSupply     *float64 `json:"circulating_supply"`
	TotalSupply           *float64 `json:"total_supply"`
	MaxSupply             *float64 `json:"max_supply"`
	ATH                   *float64 `json:"ath"`
	ATHChangePct          *float64 `json:"ath_change_percentage"`
	ATL                   *float64 `json:"atl"`
	ATLChangePct          *float64 `json:"atl_change_percentage"`
}

func (c *CoinGecko) fetchPage(ctx context.Context, page int) ([]marketRow, error) {
	query := url.Values{
		"vs_currency":             {"usd"},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(coinGeckoPerPage)},
		"page":                    {strconv.Itoa(page)},
		"price_change_percentage": {"1h,24h,7d,14d,30d,200d,1y"},
	}
	var rows []marketRow
	if err := c.http.GetJSON(ctx, c.baseURL+"/coins/markets", query, &rows); err != nil {
		return nil, fmt.Errorf("markets page %d: %w", page, err)
	}
	return rows, nil
}

func (c *CoinGecko) Collect(ctx context.Context, _ exporter.Request) (string, error) {
	pages := make([][]marketRow, coinGeckoPages)
	g, gctx := errgroup.WithContext(ctx)
	for i := range pages {
		g.Go(func() error {
			rows, err := c.fetchPage(gctx, i+1)
			if err != nil {
				return err
			}
			pages[i] = rows
			return nil
		})
	}
	// Pages are one logical listing: losing any of them would silently
	// drop a market-cap band, so all three must succeed.
	if err := g.Wait(); err != nil {
		return "", err
	}

	var recs []render.Record
	for _, rows := range pages {
		for _, row := range rows {
			recs = append(recs, render.Record{
				"id":     row.ID,
				"name":   row.Name,
				"symbol": row.Symbol,

				"market_cap_rank":    row.MarketCapRank,
				"circulating_supply": row.CirculatingSupply,
				"total_supply":       row.TotalSupply,
				"max_supply":         row.MaxSupply,

				"current_price":                    row.CurrentPrice,
				"market_cap":                       row.MarketCap,
				"total_volume":                     row.TotalVolume,
				"high_24h":                         row.High24h,
				"low_24h":                          row.Low24h,
				"price_change_24h":                 row.PriceChange24h,
				"price_change_percentage_24h":      row.PriceChangePct24h,
				"market_cap_change_24h":            row.MarketCapChange24h,
				"market_cap_change_percentage_24h": row.MarketCapChangePct24h,
				"ath":                              row.ATH,
				"ath_change_percentage":            row.ATHChangePct,
				"atl":                              row.ATL,
				"atl_change_percentage":            row.ATLChangePct,
			})
		}
	}

	lines := render.Records(recs, render.Spec{
		Namespace: "coingecko",
		Keys: []string{
			"market_cap_rank", "circulating_supply", "total_supply", "max_supply",
		},
		KeyMappings: map[string]string{
			"current_price":                    "price_usd",
			"market_cap":                       "market_cap_usd",
			"total_volume":                     "total_volume_usd",
			"high_24h":                         "high_24h_usd",
			"low_24h":                          "low_24h_usd",
			"price_change_24h":                 "price_change_24h_usd",
			"price_change_percentage_24h":      "price_change_24h_percent",
			"market_cap_change_24h":            "market_cap_change_24h_usd",
			"market_cap_change_percentage_24h": "market_cap_change_24h_percent",
			"ath":                              "ath_usd",
			"ath_change_percentage":            "ath_change_percent",
			"atl":                              "atl_usd",
			"atl_change_percentage":            "atl_change_percent",
		},
		LabelKeys: []string{"id", "name", "symbol"},
	})
	return strings.Join(lines, "\n"), nil
}
