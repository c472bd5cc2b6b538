package zapper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/web3-frozen/portfolio-exporter/internal/exporter"
	"github.com/web3-frozen/portfolio-exporter/internal/metrics"
	"github.com/web3-frozen/portfolio-exporter/internal/render"
)

const namespace = "zapper"

// concurrent sub-source fetches per aggregation
const fanOutLimit = 8

// Balances is the discover-then-fan-out aggregator: discovery tells us
// which (network, app) pairs hold balances for the address, each pair is
// fetched concurrently, and the rendered lines are concatenated in
// discovery order.
type Balances struct {
	client *Client
	logger *slog.Logger
}

func NewBalances(client *Client, logger *slog.Logger) *Balances {
	return &Balances{client: client, logger: logger}
}

func (z *Balances) Name() string { return "zapper" }

// Collect aggregates all discovered sub-sources for the address. A failed
// sub-source fetch is contained: its lines are omitted and the rest of the
// snapshot still ships. Only a discovery failure aborts the request.
func (z *Balances) Collect(ctx context.Context, req exporter.Request) (string, error) {
	if req.Address == "" {
		return "", exporter.ErrAddressRequired
	}

	networks, err := z.client.SupportedBalances(ctx, req.Address)
	if err != nil {
		return "", fmt.Errorf("discover supported balances: %w", err)
	}

	type task struct {
		network string
		appID   string
	}
	var tasks []task
	for _, n := range networks {
		for _, app := range n.Apps {
			tasks = append(tasks, task{network: n.Network, appID: app.AppID})
		}
	}

	// Results keep submission slots so concatenation follows discovery
	// order, not completion order.
	parts := make([]string, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, tk := range tasks {
		g.Go(func() error {
			recs, err := z.client.AppBalances(gctx, tk.appID, req.Address, tk.network)
			if err != nil {
				z.logger.Warn("sub-source fetch failed",
					"network", tk.network, "app", tk.appID, "error", err)
				metrics.SubSourceFailures.WithLabelValues(z.Name()).Inc()
				return nil
			}

			spec := render.Spec{
				Namespace: namespace,
				Keys:      []string{"balance", "balanceUSD"},
				Labels: map[string]string{
					"network": tk.network,
					"appId":   tk.appID,
					"address": req.Address,
				},
				LabelMappings: map[string]string{
					"address": "assetAddress",
					"label":   "assetName",
					"type":    "assetType",
				},
			}
			parts[i] = strings.Join(render.Records(dedupeByAddress(recs), spec), "\n")
			return nil
		})
	}
	// Sub-source errors are contained above, so Wait only orders the
	// writes into parts.
	_ = g.Wait()

	return joinNonEmpty(parts), nil
}

// dedupeByAddress drops assets whose address already appeared, first
// occurrence wins. The API sometimes returns the same holding tagged under
// multiple categories.
func dedupeByAddress(recs []render.Record) []render.Record {
	seen := make(map[string]bool, len(recs))
	out := recs[:0:0]
	for _, rec := range recs {
		addr, _ := rec["address"].(string)
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, rec)
	}
	return out
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
