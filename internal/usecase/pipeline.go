package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"FeedScraper/internal/domain"
	"FeedScraper/internal/ports"
	"FeedScraper/internal/scraper"
)

// PipelineDeps wires all driven adapters into the crawl pipeline.
type PipelineDeps struct {
	Browser       ports.Browser
	Feeds         *FeedService
	Logs          ports.FeedLogSink
	Notifier      ports.Notifier
	Strategies     []scraper.SiteStrategy
	UserAgent      string
	DetailTimeout  time.Duration
	ListingTimeout time.Duration
	Logger         *slog.Logger
}

// Pipeline executes one crawl-extract-ingest run across all configured sites.
// Sites run sequentially, and within a site one page session is open at a
// time: the bound keeps rendering memory flat and stays polite to the target
// sites.
type Pipeline struct {
	browser        ports.Browser
	feeds          *FeedService
	logs           ports.FeedLogSink
	notifier       ports.Notifier
	strategies     []scraper.SiteStrategy
	userAgent      string
	detailTimeout  time.Duration
	listingTimeout time.Duration
	logger         *slog.Logger
}

// SiteResult aggregates per-article outcomes for one site.
type SiteResult struct {
	Site         string
	Discovered   int
	Ingested     int
	Duplicates   int
	Failed       int
	DiscoveryErr error
}

// RunSummary reports one full run across all sites.
type RunSummary struct {
	StartedAt time.Time
	Sites     []SiteResult
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	detailTimeout := deps.DetailTimeout
	if detailTimeout <= 0 {
		detailTimeout = 20 * time.Second
	}
	listingTimeout := deps.ListingTimeout
	if listingTimeout <= 0 {
		listingTimeout = 60 * time.Second
	}
	return &Pipeline{
		browser:        deps.Browser,
		feeds:          deps.Feeds,
		logs:           deps.Logs,
		notifier:       deps.Notifier,
		strategies:     deps.Strategies,
		userAgent:      deps.UserAgent,
		detailTimeout:  detailTimeout,
		listingTimeout: listingTimeout,
		logger:         deps.Logger,
	}
}

// Run executes every site's crawl sequence. A failing site never blocks the
// next one, and the summary is always complete.
func (p *Pipeline) Run(ctx context.Context, trigger time.Time) RunSummary {
	summary := RunSummary{StartedAt: trigger}

	for _, strategy := range p.strategies {
		result := p.runSite(ctx, strategy)
		summary.Sites = append(summary.Sites, result)
		p.info("site run finished",
			"site", result.Site,
			"discovered", result.Discovered,
			"ingested", result.Ingested,
			"duplicates", result.Duplicates,
			"failed", result.Failed,
		)
	}

	p.notify(ctx, summary)
	return summary
}

// runSite discovers candidate links and processes each one independently. A
// discovery failure aborts this site for the current trigger only.
func (p *Pipeline) runSite(ctx context.Context, strategy scraper.SiteStrategy) SiteResult {
	result := SiteResult{Site: strategy.Name}

	links, err := p.discover(ctx, strategy)
	if err != nil {
		result.DiscoveryErr = err
		p.record(ctx, fmt.Sprintf("discovery failed for site %s", strategy.Name), strategy.ListingURL, err)
		return result
	}

	result.Discovered = len(links)
	for _, link := range links {
		switch p.processArticle(ctx, strategy, link) {
		case outcomeIngested:
			result.Ingested++
		case outcomeDuplicate:
			result.Duplicates++
		case outcomeFailed:
			result.Failed++
		}
	}

	return result
}

// discover opens the listing page under its own navigation ceiling and closes
// the session before any detail page opens. A hung listing site times out and
// surfaces as that site's discovery failure.
func (p *Pipeline) discover(ctx context.Context, strategy scraper.SiteStrategy) ([]domain.CandidateLink, error) {
	page, err := p.browser.Open(ctx, strategy.ListingURL, ports.PageOptions{
		UserAgent:       p.userAgent,
		Timeout:         p.listingTimeout,
		ConsentSelector: strategy.ConsentSelector,
	})
	if err != nil {
		return nil, err
	}
	defer page.Close()

	return scraper.Discover(page, strategy)
}

type outcome int

const (
	outcomeIngested outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// processArticle opens the detail page, extracts its fields, and ingests the
// record. Every failure stays inside this one article: it is logged and the
// caller moves on to the next link. The session is released on every path.
func (p *Pipeline) processArticle(ctx context.Context, strategy scraper.SiteStrategy, link domain.CandidateLink) outcome {
	page, err := p.browser.Open(ctx, link.URL, ports.PageOptions{
		UserAgent: p.userAgent,
		Timeout:   p.detailTimeout,
	})
	if err != nil {
		p.record(ctx, fmt.Sprintf("error opening article at %s", link.URL), link.URL, err)
		return outcomeFailed
	}
	defer page.Close()

	extracted, err := scraper.Extract(page, link.URL, strategy)
	if err != nil {
		p.record(ctx, fmt.Sprintf("error processing article at %s", link.URL), link.URL, err)
		return outcomeFailed
	}

	draft := domain.FeedDraft{
		Title:    extracted.Title,
		Subtitle: extracted.Subtitle,
		Category: link.Category,
		URL:      link.URL,
		ImageURL: extracted.ImageURL,
		Author:   extracted.Author,
		Origin:   strategy.Origin,
		Content:  extracted.Content,
	}

	feed, err := p.feeds.CreateFromCrawl(ctx, draft, extracted.PublishedAt, extracted.UpdatedAt, strategy.DateLayouts)
	if errors.Is(err, domain.ErrDuplicateURL) {
		// Already logged by the feed service; an expected re-crawl outcome.
		return outcomeDuplicate
	}
	if err != nil {
		return outcomeFailed
	}

	p.info("processed new feed", "origin", strategy.Origin, "url", feed.URL)
	return outcomeIngested
}

// record appends to the failure log. The sink swallows its own failures.
func (p *Pipeline) record(ctx context.Context, message, url string, err error) {
	if p.logger != nil {
		p.logger.Warn(message, "url", url, "error", err)
	}
	if p.logs == nil {
		return
	}
	p.logs.Record(ctx, domain.FeedLogEntry{
		Message:   fmt.Sprintf("%s :: %v", message, err),
		URL:       url,
		Detail:    err.Error(),
		CreatedAt: time.Now(),
	})
}

func (p *Pipeline) notify(ctx context.Context, summary RunSummary) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishSummary(ctx, formatSummary(summary)); err != nil && p.logger != nil {
		p.logger.Warn("run summary notification failed", "error", err)
	}
}

func formatSummary(summary RunSummary) string {
	text := fmt.Sprintf("Crawl run %s\n", summary.StartedAt.Format(time.RFC3339))
	for _, site := range summary.Sites {
		if site.DiscoveryErr != nil {
			text += fmt.Sprintf("- %s: discovery failed: %v\n", site.Site, site.DiscoveryErr)
			continue
		}
		text += fmt.Sprintf("- %s: %d discovered, %d ingested, %d duplicates, %d failed\n",
			site.Site, site.Discovered, site.Ingested, site.Duplicates, site.Failed)
	}
	return text
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
