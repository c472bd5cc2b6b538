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

const FeesWtfBaseURL = "https://fees.wtf"

// The total shows a thinking-face placeholder until the page has finished
// computing, so readiness is "the cell holds a real value".
const feesWtfReadyExpr = `(() => {
	const el = document.getElementById("gasFeeTotal");
	return !!el && el.innerText.trim() !== "" && el.innerText.trim() !== "🤔";
})()`

const feesWtfExtractJS = `(() => {
	const text = (sel) => {
		const el = document.querySelector(sel);
		return el ? el.innerText.trim() : "";
	};
	return {
		totalGasFeeEth: text("#gasFeeTotal"),
		totalGasFeeUsd: text("#ethusd"),
		totalGasUsed: text("#gasUsedTotal"),
		txCount: text("#nOut"),
		txAverageGasPriceGwei: text("#gasPricePerTx"),
		failedTxCount: text("#nOutFail"),
		totalFailedGasFeeEth: text("#gasFeeTotalFail"),
	};
})()`

var feesWtfKeys = []string{
	"totalGasFeeEth",
	"totalGasFeeUsd",
	"totalGasUsed",
	"txCount",
	"txAverageGasPriceGwei",
	"failedTxCount",
	"totalFailedGasFeeEth",
}

// FeesWtf scrapes lifetime gas spend for an address from fees.wtf, which
// has no API.
type FeesWtf struct {
	browser *scrape.Browser
	baseURL string
}

func NewFeesWtf(browser *scrape.Browser, baseURL string) *FeesWtf {
	return &FeesWtf{browser: browser, baseURL: baseURL}
}

func (f *FeesWtf) Name() string { return "feeswtf" }

func (f *FeesWtf) Collect(ctx context.Context, req exporter.Request) (string, error) {
	if req.Address == "" {
		return "", exporter.ErrAddressRequired
	}

	u := f.baseURL + "/?address=" + req.Address
	var raw map[string]string
	err := f.browser.Extract(ctx, u, scrape.Ready{Expression: feesWtfReadyExpr}, feesWtfExtractJS, &raw)
	if err != nil {
		return "", fmt.Errorf("scrape fees: %w", err)
	}

	lines := render.Metrics(gasRecord(raw), render.Spec{
		Namespace: "feeswtf",
		Keys:      feesWtfKeys,
		Labels:    map[string]string{"address": req.Address},
	})
	return strings.Join(lines, "\n"), nil
}

// gasRecord canonicalizes the scraped cells with the magnitude-suffix
// variant: the gas-used total renders values like "1.2 million" once an
// address is busy enough.
func gasRecord(raw map[string]string) render.Record {
	rec := make(render.Record, len(raw))
	for key, value := range raw {
		rec[key] = numeric.CanonicalizeSuffix(value)
	}
	return rec
}
