// Package sources holds the per-service adapters. Each one fetches or
// scrapes a single upstream, reduces the payload to flat records, and
// renders them; everything shared lives in render, fetch, scrape and
// numeric.
package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/web3-frozen/portfolio-exporter/internal/exporter"
	"github.com/web3-frozen/portfolio-exporter/internal/fetch"
	"github.com/web3-frozen/portfolio-exporter/internal/render"
)

const (
	ApyVisionBaseURL       = "https://api.apy.vision/portfolio/1/core"
	LiquidityVisionBaseURL = "https://api.liquidity.vision/portfolio"
)

// Portfolio serves the apy.vision portfolio API and its liquidity.vision
// predecessor. The two expose the same summary fields and the same
// per-pool shape under a different array key, so one adapter covers both
// and a constructor selects the variant.
type Portfolio struct {
	name      string
	baseURL   string
	poolsPath string
	http      *fetch.Client
}

func NewApyVision(httpc *fetch.Client, baseURL string) *Portfolio {
	return &Portfolio{name: "apyvision", baseURL: baseURL, poolsPath: "userPools", http: httpc}
}

func NewLiquidityVision(httpc *fetch.Client, baseURL string) *Portfolio {
	return &Portfolio{name: "liquidityvision", baseURL: baseURL, poolsPath: "pairInfos", http: httpc}
}

func (p *Portfolio) Name() string { return p.name }

func (p *Portfolio) Collect(ctx context.Context, req exporter.Request) (string, error) {
	if req.Address == "" {
		return "", exporter.ErrAddressRequired
	}

	u := p.baseURL + "/" + req.Address
	body, err := p.http.GetBytes(ctx, u, nil)
	if err != nil {
		return "", fmt.Errorf("fetch portfolio: %w", err)
	}
	root := gjson.ParseBytes(body)

	// Nullable upstream fields come through gjson as nil values, so the
	// renderer drops them instead of emitting zeros.
	summary := render.Record{
		"totalValueUsd": root.Get("totalValueUsd").Value(),
		"totalFeeUsd":   root.Get("totalFeeUsd").Value(),
		"netGainUsd":    root.Get("netGainUsd").Value(),
		"netGainPct":    root.Get("netGainPct").Value(),
	}
	summaryLines := render.Metrics(summary, render.Spec{
		Namespace: p.name,
		Keys:      []string{"totalValueUsd", "totalFeeUsd", "netGainUsd", "netGainPct"},
		Labels:    map[string]string{"address": req.Address},
	})

	var pools []render.Record
	root.Get(p.poolsPath).ForEach(func(_, pool gjson.Result) bool {
		pools = append(pools, render.Record{
			"poolProviderName":       pool.Get("poolProviderName").String(),
			"name":                   pool.Get("name").String(),
			"address":                pool.Get("address").String(),
			"totalValueUsd":          pool.Get("totalValueUsd").Value(),
			"initialCapitalValueUsd": pool.Get("initialCapitalValueUsd").Value(),
			"totalFeeUsd":            pool.Get("totalFeeUsd").Value(),
			"netGainUsd":             pool.Get("netGainUsd").Value(),
			"netGainPct":             pool.Get("netGainPct").Value(),
		})
		return true
	})
	poolLines := render.Records(pools, render.Spec{
		Namespace: p.name,
		Keys: []string{
			"totalValueUsd", "initialCapitalValueUsd", "totalFeeUsd",
			"netGainUsd", "netGainPct",
		},
		Labels: map[string]string{"address": req.Address},
		LabelMappings: map[string]string{
			"poolProviderName": "poolProvider",
			"name":             "poolName",
			"address":          "poolAddress",
		},
	})

	return strings.Join(append(summaryLines, poolLines...), "\n"), nil
}
