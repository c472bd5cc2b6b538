// Package scrape extracts flat records from pages that have no API.
//
// A Browser run is one throwaway headless Chrome session: navigate, wait
// for the page's readiness condition, evaluate an extraction script, and
// unmarshal its JSON result. Nothing is shared between runs.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// Ready is the condition a page must satisfy before extraction runs.
// Exactly one field is set: a CSS selector that must become visible, or a
// JS expression polled until it returns truthy.
type Ready struct {
	Selector   string
	Expression string
}

const defaultPageTimeout = 60 * time.Second

// Browser launches headless Chrome sessions for extraction runs.
type Browser struct {
	logger  *slog.Logger
	timeout time.Duration
}

func NewBrowser(logger *slog.Logger) *Browser {
	return &Browser{logger: logger, timeout: defaultPageTimeout}
}

// Extract navigates to url, waits for ready, evaluates extractJS and
// unmarshals its JSON result into out. The extraction script runs in page
// context and must return a JSON-serializable value.
func (b *Browser) Extract(ctx context.Context, url string, ready Ready, extractJS string, out any) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-crash-reporter", true),
		chromedp.Flag("crash-dumps-dir", "/tmp"),
		chromedp.UserDataDir("/tmp/chromedp-profile"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	b.logger.Info("opening page", "url", url)

	actions := []chromedp.Action{chromedp.Navigate(url)}
	switch {
	case ready.Selector != "":
		actions = append(actions, chromedp.WaitVisible(ready.Selector, chromedp.ByQuery))
	case ready.Expression != "":
		actions = append(actions, chromedp.Poll(ready.Expression, nil))
	}
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return fmt.Errorf("page not ready %s: %w", url, err)
	}

	b.logger.Info("page ready, extracting", "url", url)

	if err := chromedp.Run(browserCtx, chromedp.Evaluate(extractJS, out)); err != nil {
		return fmt.Errorf("extract %s: %w", url, err)
	}
	return nil
}
