package zapper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/web3-frozen/portfolio-exporter/internal/exporter"
	"github.com/web3-frozen/portfolio-exporter/internal/jobs"
	"github.com/web3-frozen/portfolio-exporter/internal/render"
)

// Refresh is the submit-job-then-poll aggregator: Zapper computes token
// and app balances asynchronously, so we submit both jobs, wait for both
// to complete, then fetch and render the two result sets. Token and app
// balances are each essential, so either job timing out fails the request.
type Refresh struct {
	client *Client
	waiter *jobs.Waiter
	logger *slog.Logger
}

func NewRefresh(client *Client, logger *slog.Logger) *Refresh {
	return &Refresh{
		client: client,
		waiter: jobs.NewWaiter(client.JobStatus),
		logger: logger,
	}
}

func (z *Refresh) Name() string { return "zapper/refresh" }

func (z *Refresh) Collect(ctx context.Context, req exporter.Request) (string, error) {
	if req.Address == "" {
		return "", exporter.ErrAddressRequired
	}

	var tokensJob, appsJob string
	submit, sctx := errgroup.WithContext(ctx)
	submit.Go(func() error {
		var err error
		tokensJob, err = z.client.SubmitTokensJob(sctx, req.Address)
		return err
	})
	submit.Go(func() error {
		var err error
		appsJob, err = z.client.SubmitAppsJob(sctx, req.Address)
		return err
	})
	if err := submit.Wait(); err != nil {
		return "", fmt.Errorf("submit balance jobs: %w", err)
	}

	z.logger.Info("awaiting balance jobs",
		"tokens_job", tokensJob, "apps_job", appsJob, "address", req.Address)

	await, actx := errgroup.WithContext(ctx)
	await.Go(func() error { return z.waiter.Await(actx, tokensJob) })
	await.Go(func() error { return z.waiter.Await(actx, appsJob) })
	if err := await.Wait(); err != nil {
		return "", err
	}

	var tokenRecs, appRecs []render.Record
	fetchAll, fctx := errgroup.WithContext(ctx)
	fetchAll.Go(func() error {
		var err error
		tokenRecs, err = z.client.Tokens(fctx, req.Address)
		return err
	})
	fetchAll.Go(func() error {
		var err error
		appRecs, err = z.client.Apps(fctx, req.Address)
		return err
	})
	if err := fetchAll.Wait(); err != nil {
		return "", fmt.Errorf("fetch balances: %w", err)
	}

	tokenLines := render.Records(tokenRecs, render.Spec{
		Namespace: namespace,
		Keys:      []string{"balance", "balanceUSD", "price"},
		Labels:    map[string]string{"address": req.Address},
		LabelKeys: []string{"network"},
		LabelMappings: map[string]string{
			"address": "tokenAddress",
			"symbol":  "tokenName",
		},
	})
	appLines := render.Records(appRecs, render.Spec{
		Namespace: namespace,
		Keys:      []string{"balance", "balanceUSD"},
		Labels:    map[string]string{"address": req.Address},
		LabelKeys: []string{"network", "appId"},
		LabelMappings: map[string]string{
			"address": "assetAddress",
			"label":   "assetName",
			"type":    "assetType",
		},
	})

	return strings.Join(append(tokenLines, appLines...), "\n"), nil
}
