package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/web3-frozen/portfolio-exporter/internal/exporter"
	"github.com/web3-frozen/portfolio-exporter/internal/numeric"
	"github.com/web3-frozen/portfolio-exporter/internal/render"
	"github.com/web3-frozen/portfolio-exporter/internal/scrape"
)

const PoolsVisionBaseURL = "https://pools.vision"

// First table on the page is protocol-wide Balancer stats, second is the
// user's pools. Both are extracted in one browser session.
const poolsVisionExtractJS = `(() => {
	const tables = document.querySelectorAll("table");
	const cellText = (table, label, i) => {
		const nodes = table.querySelectorAll("[data-label='" + label + "']");
		return nodes[i] ? nodes[i].innerText.trim() : "";
	};

	const summaryTable = tables[0];
	const summary = {
		balPriceUsd: cellText(summaryTable, "BAL Price", 0),
		volume24hUsd: cellText(summaryTable, "24h Volume", 0),
		fees24hUsd: cellText(summaryTable, "24h Fees Earned", 0),
		totalLiquidityUsd: cellText(summaryTable, "Total Liquidity", 0),
		totalLiquidityAdjustedUsd: cellText(summaryTable, "Total Adj. Liquidity", 0),
		totalLiquidityAdjustedWithStakingUsd: cellText(summaryTable, "Adj. Liquidity w/Staking", 0),
		balMultiplier: cellText(summaryTable, "BAL Multiplier", 0),
	};

	const poolsTable = tables[1];
	const addressNodes = poolsTable.querySelectorAll("[data-label='Pool Address'] > a");
	const assetNodes = poolsTable.querySelectorAll("[data-label='Assets']");
	const pools = [];
	for (let i = 0; i < addressNodes.length; i++) {
		const href = addressNodes[i].getAttribute("href") || "";
		// Total Liquidity cells hold raw and adjusted values on two lines.
		const liquidity = cellText(poolsTable, "Total Liquidity", i).split("\n");
		pools.push({
			id: href.split("/").pop() || "",
			name: [...assetNodes[i].querySelectorAll("span")]
				.map((el) => el.innerText.trim())
				.join(" / "),
			swapFeePercent: cellText(poolsTable, "Swap Fee", i),
			totalLiquidityUsd: liquidity[0] || "",
			totalLiquidityAdjustedUsd: liquidity[1] || "",
			volume24hUsd: cellText(poolsTable, "24h Volume", i),
			fees24hUsd: cellText(poolsTable, "24h Fees", i),
			annualBal: cellText(poolsTable, "Annual BAL", i),
			totalApy: cellText(poolsTable, "APY", i),
			userPoolPercent: cellText(poolsTable, "User %", i),
			poolProviderCount: cellText(poolsTable, "# of LP\\'s", i),
		});
	}
	return { summary: summary, pools: pools };
})()`

type poolsVisionPage struct {
	Summary map[string]string   `json:"summary"`
	Pools   []map[string]string `json:"pools"`
}

var poolsVisionNumericCols = []string{
	"swapFeePercent", "totalLiquidityUsd", "totalLiquidityAdjustedUsd",
	"volume24hUsd", "fees24hUsd", "annualBal", "totalApy",
	"userPoolPercent", "poolProviderCount",
}

// PoolsVision scrapes the pools.vision Balancer dashboard for an address.
type PoolsVision struct {
	browser *scrape.Browser
	baseURL string
}

func NewPoolsVision(browser *scrape.Browser, baseURL string) *PoolsVision {
	return &PoolsVision{browser: browser, baseURL: baseURL}
}

func (p *PoolsVision) Name() string { return "poolsvision" }

func (p *PoolsVision) Collect(ctx context.Context, req exporter.Request) (string, error) {
	if req.Address == "" {
		return "", exporter.ErrAddressRequired
	}

	u := p.baseURL + "/user/" + req.Address
	var page poolsVisionPage
	ready := scrape.Ready{Selector: "tbody > tr > td > a"}
	if err := p.browser.Extract(ctx, u, ready, poolsVisionExtractJS, &page); err != nil {
		return "", fmt.Errorf("scrape pools: %w", err)
	}

	summaryLines := render.Metrics(summaryRecord(page.Summary), render.Spec{
		Namespace: "poolsvision",
		Keys: []string{
			"balPriceUsd", "volume24hUsd", "fees24hUsd", "totalLiquidityUsd",
			"totalLiquidityAdjustedUsd", "totalLiquidityAdjustedWithStakingUsd",
			"balMultiplier",
		},
	})
	poolLines := render.Records(poolRecords(page.Pools), render.Spec{
		Namespace: "poolsvision",
		Keys:      poolsVisionNumericCols,
		Labels:    map[string]string{"address": req.Address},
		LabelMappings: map[string]string{
			"id":   "poolAddress",
			"name": "poolName",
		},
	})

	return strings.Join(append(summaryLines, poolLines...), "\n"), nil
}

func summaryRecord(raw map[string]string) render.Record {
	rec := make(render.Record, len(raw))
	for key, value := range raw {
		rec[key] = numeric.Canonicalize(value)
	}
	return rec
}

// poolRecords canonicalizes the numeric columns and carries the identity
// columns through untouched.
func poolRecords(rows []map[string]string) []render.Record {
	isNumeric := make(map[string]bool, len(poolsVisionNumericCols))
	for _, col := range poolsVisionNumericCols {
		isNumeric[col] = true
	}

	recs := make([]render.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(render.Record, len(row))
		for key, value := range row {
			if isNumeric[key] {
				rec[key] = numeric.Canonicalize(value)
			} else {
				rec[key] = value
			}
		}
		recs = append(recs, rec)
	}
	return recs
}
