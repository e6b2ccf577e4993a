package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedScraper/internal/domain"
	"FeedScraper/internal/scraper"
)

func pipelineStrategy(name, listing, host string) scraper.SiteStrategy {
	return scraper.SiteStrategy{
		Name:            name,
		Origin:          domain.OriginCountryPage,
		ListingURL:      listing,
		Host:            host,
		SectionSelector: "section",
		LinkSelector:    "article h2 a",
		Fields: scraper.FieldRules{
			Title:     scraper.Rule{Selector: "h1"},
			Subtitle:  scraper.Rule{Selector: "h2.standfirst"},
			Content:   scraper.Rule{Selector: "div.body p", List: true},
			Published: scraper.Rule{Selector: "time", Attr: "datetime"},
		},
		DateLayouts: []string{time.RFC3339},
	}
}

func listingHTML(host string, n int) string {
	links := ""
	for i := 1; i <= n; i++ {
		links += fmt.Sprintf(`<article><h2><a href="https://%s/news/story-%d.html">Story %d</a></h2></article>`, host, i, i)
	}
	return `<html><body><section>` + links + `</section></body></html>`
}

func articleHTML(title string) string {
	body := `<html><body>`
	if title != "" {
		body += `<h1>` + title + `</h1>`
	}
	body += `<h2 class="standfirst">Standfirst.</h2>` +
		`<time datetime="2026-02-28T18:30:00Z">ayer</time>` +
		`<div class="body"><p>First.</p><p>Second.</p></div>` +
		`</body></html>`
	return body
}

func newTestPipeline(b *fakeBrowser, repo *fakeRepo, sink *fakeSink, strategies ...scraper.SiteStrategy) *Pipeline {
	logger := slog.New(slog.DiscardHandler)
	feeds := NewFeedService(repo, sink, logger)
	return NewPipeline(PipelineDeps{
		Browser:    b,
		Feeds:      feeds,
		Logs:       sink,
		Strategies: strategies,
		Logger:     logger,
	})
}

func TestRunIngestsDiscoveredArticles(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://news.example/portada"] = listingHTML("news.example", 2)
	b.pages["https://news.example/news/story-1.html"] = articleHTML("Story one")
	b.pages["https://news.example/news/story-2.html"] = articleHTML("Story two")

	repo := newFakeRepo()
	p := newTestPipeline(b, repo, &fakeSink{},
		pipelineStrategy("news", "https://news.example/portada", "news.example"))

	summary := p.Run(context.Background(), time.Now())

	require.Len(t, summary.Sites, 1)
	site := summary.Sites[0]
	require.NoError(t, site.DiscoveryErr)
	assert.Equal(t, 2, site.Discovered)
	assert.Equal(t, 2, site.Ingested)
	assert.Equal(t, 2, repo.count())
	assert.Equal(t, 0, b.openSessions(), "every session is released")
	assert.Equal(t, 1, b.peakSessions(), "one session open at a time")
}

func TestRunBoundsEveryNavigation(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://news.example/portada"] = listingHTML("news.example", 1)
	b.pages["https://news.example/news/story-1.html"] = articleHTML("Story one")

	logger := slog.New(slog.DiscardHandler)
	feeds := NewFeedService(newFakeRepo(), &fakeSink{}, logger)
	p := NewPipeline(PipelineDeps{
		Browser:        b,
		Feeds:          feeds,
		Strategies:     []scraper.SiteStrategy{pipelineStrategy("news", "https://news.example/portada", "news.example")},
		DetailTimeout:  20 * time.Second,
		ListingTimeout: 60 * time.Second,
		Logger:         logger,
	})

	p.Run(context.Background(), time.Now())

	calls := b.openCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "https://news.example/portada", calls[0].url)
	assert.Equal(t, 60*time.Second, calls[0].opts.Timeout, "listing navigation is bounded")
	assert.Equal(t, 20*time.Second, calls[1].opts.Timeout, "detail navigation is bounded")

	for _, call := range calls {
		assert.Positive(t, call.opts.Timeout, "no open may run without a ceiling")
	}
}

func TestRunIsolatesArticleFailures(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://news.example/portada"] = listingHTML("news.example", 3)
	b.pages["https://news.example/news/story-1.html"] = articleHTML("Story one")
	b.pages["https://news.example/news/story-2.html"] = articleHTML("") // no headline
	b.pages["https://news.example/news/story-3.html"] = articleHTML("Story three")

	repo := newFakeRepo()
	sink := &fakeSink{}
	p := newTestPipeline(b, repo, sink,
		pipelineStrategy("news", "https://news.example/portada", "news.example"))

	summary := p.Run(context.Background(), time.Now())

	site := summary.Sites[0]
	assert.Equal(t, 3, site.Discovered)
	assert.Equal(t, 2, site.Ingested, "articles after the failing one are still processed")
	assert.Equal(t, 1, site.Failed)
	assert.Equal(t, 2, repo.count())

	entries := sink.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://news.example/news/story-2.html", entries[0].URL)

	assert.Equal(t, 0, b.openSessions(), "sessions are released on failure paths too")
}

func TestRunNavigationFailureIsPerArticle(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://news.example/portada"] = listingHTML("news.example", 2)
	b.pages["https://news.example/news/story-2.html"] = articleHTML("Story two")
	b.failURLs["https://news.example/news/story-1.html"] = fmt.Errorf("net::ERR_TIMED_OUT")

	repo := newFakeRepo()
	sink := &fakeSink{}
	p := newTestPipeline(b, repo, sink,
		pipelineStrategy("news", "https://news.example/portada", "news.example"))

	summary := p.Run(context.Background(), time.Now())

	site := summary.Sites[0]
	assert.Equal(t, 1, site.Failed)
	assert.Equal(t, 1, site.Ingested)
	require.Len(t, sink.all(), 1)
	assert.Contains(t, sink.all()[0].Detail, "ERR_TIMED_OUT")
}

func TestRunDiscoveryFailureAbortsOnlyThatSite(t *testing.T) {
	b := newFakeBrowser()
	b.failURLs["https://down.example/portada"] = fmt.Errorf("connection refused")
	b.pages["https://up.example/portada"] = listingHTML("up.example", 1)
	b.pages["https://up.example/news/story-1.html"] = articleHTML("Still running")

	repo := newFakeRepo()
	sink := &fakeSink{}
	p := newTestPipeline(b, repo, sink,
		pipelineStrategy("down", "https://down.example/portada", "down.example"),
		pipelineStrategy("up", "https://up.example/portada", "up.example"))

	summary := p.Run(context.Background(), time.Now())

	require.Len(t, summary.Sites, 2)
	assert.Error(t, summary.Sites[0].DiscoveryErr)
	assert.Equal(t, 0, summary.Sites[0].Discovered)
	require.NoError(t, summary.Sites[1].DiscoveryErr)
	assert.Equal(t, 1, summary.Sites[1].Ingested, "a failing site never blocks the next one")
	assert.Equal(t, 1, repo.count())
}

func TestRunCountsDuplicatesAsSkips(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://news.example/portada"] = listingHTML("news.example", 1)
	b.pages["https://news.example/news/story-1.html"] = articleHTML("Seen before")

	repo := newFakeRepo()
	sink := &fakeSink{}
	strategy := pipelineStrategy("news", "https://news.example/portada", "news.example")
	p := newTestPipeline(b, repo, sink, strategy)

	first := p.Run(context.Background(), time.Now())
	assert.Equal(t, 1, first.Sites[0].Ingested)

	second := p.Run(context.Background(), time.Now())
	site := second.Sites[0]
	assert.Equal(t, 1, site.Duplicates)
	assert.Equal(t, 0, site.Failed)
	assert.Equal(t, 0, site.Ingested)
	assert.Equal(t, 1, repo.count())

	entries := sink.all()
	require.Len(t, entries, 1, "the duplicate is logged exactly once")
	assert.Equal(t, "Duplicate URL error during feed creation", entries[0].Message)
}

func TestRunPublishesSummary(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://news.example/portada"] = listingHTML("news.example", 1)
	b.pages["https://news.example/news/story-1.html"] = articleHTML("Story one")

	notifier := &fakeNotifier{}
	logger := slog.New(slog.DiscardHandler)
	feeds := NewFeedService(newFakeRepo(), &fakeSink{}, logger)
	p := NewPipeline(PipelineDeps{
		Browser:    b,
		Feeds:      feeds,
		Notifier:   notifier,
		Strategies: []scraper.SiteStrategy{pipelineStrategy("news", "https://news.example/portada", "news.example")},
		Logger:     logger,
	})

	p.Run(context.Background(), time.Now())

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "news: 1 discovered, 1 ingested")
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) PublishSummary(_ context.Context, text string) error {
	n.messages = append(n.messages, text)
	return nil
}
