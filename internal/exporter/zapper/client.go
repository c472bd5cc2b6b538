// Package zapper aggregates multi-protocol balances from the Zapper API.
package zapper

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/web3-frozen/portfolio-exporter/internal/fetch"
	"github.com/web3-frozen/portfolio-exporter/internal/jobs"
	"github.com/web3-frozen/portfolio-exporter/internal/render"
)

const DefaultBaseURL = "https://api.zapper.fi/v2"

// Network is one entry of the capability discovery response: the apps that
// hold balances for an address on one network.
type Network struct {
	Network string `json:"network"`
	Apps    []App  `json:"apps"`
}

type App struct {
	AppID string `json:"appId"`
}

// Client calls the Zapper v2 API. The balance payloads are keyed by wallet
// address and vary per app, so responses are walked with gjson and reduced
// to flat records right here; nothing dynamic leaves this package.
type Client struct {
	http    *fetch.Client
	baseURL string
	apiKey  string
}

func NewClient(httpc *fetch.Client, baseURL, apiKey string) *Client {
	return &Client{http: httpc, baseURL: baseURL, apiKey: apiKey}
}

func (c *Client) query(address string) url.Values {
	return url.Values{
		"api_key":     {c.apiKey},
		"addresses[]": {address},
	}
}

// SupportedBalances is the discovery call: which apps apply to an address,
// per network.
func (c *Client) SupportedBalances(ctx context.Context, address string) ([]Network, error) {
	var out []Network
	u := c.baseURL + "/apps/balances/supported"
	if err := c.http.GetJSON(ctx, u, c.query(address), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppBalances fetches one app's balances for an address on a network and
// flattens the nested product/asset structure into records.
func (c *Client) AppBalances(ctx context.Context, appID, address, network string) ([]render.Record, error) {
	query := c.query(address)
	if network != "" {
		query.Set("network", network)
	}
	u := c.baseURL + "/apps/" + appID + "/balances"
	body, err := c.http.GetBytes(ctx, u, query)
	if err != nil {
		return nil, err
	}

	var recs []render.Record
	products := gjson.GetBytes(body, "balances."+address+".products")
	products.ForEach(func(_, product gjson.Result) bool {
		product.Get("assets").ForEach(func(_, asset gjson.Result) bool {
			recs = append(recs, assetRecord(asset))
			return true
		})
		return true
	})
	return recs, nil
}

// assetRecord reduces one asset to the flat fields the renderer consumes.
// The display label falls back to displayProps when the symbol is empty,
// mirroring what the Zapper UI shows.
func assetRecord(asset gjson.Result) render.Record {
	label := asset.Get("symbol").String()
	if label == "" {
		label = asset.Get("displayProps.label").String()
	}
	return render.Record{
		"address":    asset.Get("address").String(),
		"type":       asset.Get("type").String(),
		"label":      label,
		"balance":    asset.Get("balance").Value(),
		"balanceUSD": asset.Get("balanceUSD").Value(),
	}
}

type jobResponse struct {
	JobID string `json:"jobId"`
}

// SubmitTokensJob asks Zapper to recompute simple token balances for an
// address and returns the job id to poll.
func (c *Client) SubmitTokensJob(ctx context.Context, address string) (string, error) {
	var out jobResponse
	u := c.baseURL + "/balances/tokens"
	if err := c.http.PostJSON(ctx, u, c.query(address), &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

// SubmitAppsJob asks Zapper to recompute composed app positions for an
// address and returns the job id to poll.
func (c *Client) SubmitAppsJob(ctx context.Context, address string) (string, error) {
	var out jobResponse
	u := c.baseURL + "/balances/apps"
	if err := c.http.PostJSON(ctx, u, c.query(address), &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

type jobStatusResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// JobStatus reports the state of a submitted job. Satisfies jobs.StatusFunc.
func (c *Client) JobStatus(ctx context.Context, jobID string) (jobs.Status, error) {
	var out jobStatusResponse
	u := c.baseURL + "/balances/job-status"
	query := url.Values{"api_key": {c.apiKey}, "jobId": {jobID}}
	if err := c.http.GetJSON(ctx, u, query, &out); err != nil {
		return "", fmt.Errorf("job status: %w", err)
	}
	return jobs.Status(out.Status), nil
}

// Tokens fetches the computed token balances for an address. The response
// is keyed by wallet address; each entry carries its network and a token
// object with the balance fields.
func (c *Client) Tokens(ctx context.Context, address string) ([]render.Record, error) {
	u := c.baseURL + "/balances/tokens"
	body, err := c.http.GetBytes(ctx, u, c.query(address))
	if err != nil {
		return nil, err
	}

	var recs []render.Record
	gjson.GetBytes(body, address).ForEach(func(_, entry gjson.Result) bool {
		token := entry.Get("token")
		recs = append(recs, render.Record{
			"address":    token.Get("address").String(),
			"symbol":     token.Get("symbol").String(),
			"network":    entry.Get("network").String(),
			"price":      token.Get("price").Value(),
			"balance":    token.Get("balance").Value(),
			"balanceUSD": token.Get("balanceUSD").Value(),
		})
		return true
	})
	return recs, nil
}

// Apps fetches the computed app positions for an address and flattens each
// app's product/asset tree into records annotated with app id and network.
func (c *Client) Apps(ctx context.Context, address string) ([]render.Record, error) {
	u := c.baseURL + "/balances/apps"
	body, err := c.http.GetBytes(ctx, u, c.query(address))
	if err != nil {
		return nil, err
	}

	var recs []render.Record
	gjson.ParseBytes(body).ForEach(func(_, app gjson.Result) bool {
		appID := app.Get("appId").String()
		network := app.Get("network").String()
		app.Get("products").ForEach(func(_, product gjson.Result) bool {
			product.Get("assets").ForEach(func(_, asset gjson.Result) bool {
				rec := assetRecord(asset)
				rec["appId"] = appID
				rec["network"] = network
				recs = append(recs, rec)
				return true
			})
			return true
		})
		return true
	})
	return recs, nil
}
