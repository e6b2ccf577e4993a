package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"FeedScraper/internal/ports"
)

// settleDelay approximates the network-quiet wait the sites need before
// their article markup is fully present.
const settleDelay = 800 * time.Millisecond

// NavigationError reports a page that failed to load within its bounds.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ChromeBrowser opens one isolated headless-Chrome context per page, renders
// it, and hands back a snapshot session. The Chrome process is released when
// the session closes.
type ChromeBrowser struct {
	execPath string
	logger   *slog.Logger
}

var _ ports.Browser = (*ChromeBrowser)(nil)

// NewChromeBrowser wires an optional chrome binary path (empty uses the
// chromedp default lookup).
func NewChromeBrowser(execPath string, logger *slog.Logger) *ChromeBrowser {
	return &ChromeBrowser{execPath: execPath, logger: logger}
}

// Open navigates to url in a fresh browser context and snapshots the DOM.
func (b *ChromeBrowser) Open(ctx context.Context, url string, opts ports.PageOptions) (ports.Page, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if b.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	release := func() {
		cancelBrowser()
		cancelAlloc()
	}

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
	)
	if err != nil {
		release()
		return nil, &NavigationError{URL: url, Err: err}
	}

	if opts.ConsentSelector != "" {
		b.dismissConsent(browserCtx, url, opts.ConsentSelector)
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		release()
		return nil, &NavigationError{URL: url, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		release()
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	return NewSession(doc, release), nil
}

// dismissConsent clicks the consent wall when present. Best effort only: a
// missing wall or a failed click never fails the open.
func (b *ChromeBrowser) dismissConsent(ctx context.Context, url, selector string) {
	var nodes []*cdp.Node
	err := chromedp.Run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)))
	if err != nil || len(nodes) == 0 {
		return
	}

	err = chromedp.Run(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
	)
	if err != nil && b.logger != nil {
		b.logger.Debug("consent click failed", "url", url, "error", err)
	}
}
