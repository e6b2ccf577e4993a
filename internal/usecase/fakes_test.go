package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FeedScraper/internal/domain"
	"FeedScraper/internal/infrastructure/browser"
	"FeedScraper/internal/ports"
)

// fakeRepo keeps feeds in memory keyed by URL, mimicking the store's unique
// index on url.
type fakeRepo struct {
	mu       sync.Mutex
	feeds    map[string]domain.Feed
	failWith error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{feeds: map[string]domain.Feed{}}
}

func (r *fakeRepo) CreateFeed(_ context.Context, feed domain.Feed) (domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return domain.Feed{}, r.failWith
	}
	if _, exists := r.feeds[feed.URL]; exists {
		return domain.Feed{}, fmt.Errorf("feed %s: %w", feed.URL, domain.ErrDuplicateURL)
	}
	r.feeds[feed.URL] = feed
	return feed, nil
}

func (r *fakeRepo) GetFeed(_ context.Context, id string) (domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, feed := range r.feeds {
		if feed.ID == id {
			return feed, nil
		}
	}
	return domain.Feed{}, domain.ErrNotFound
}

func (r *fakeRepo) ListFeeds(_ context.Context, _ ports.FeedFilter) ([]domain.Feed, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var feeds []domain.Feed
	for _, feed := range r.feeds {
		feeds = append(feeds, feed)
	}
	return feeds, len(feeds), nil
}

func (r *fakeRepo) UpdateFeed(_ context.Context, id string, patch domain.FeedPatch, updatedAt time.Time) (domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for url, feed := range r.feeds {
		if feed.ID != id {
			continue
		}
		if patch.Title != nil {
			feed.Title = *patch.Title
		}
		if patch.Subtitle != nil {
			feed.Subtitle = *patch.Subtitle
		}
		if patch.Category != nil {
			feed.Category = *patch.Category
		}
		if patch.ImageURL != nil {
			feed.ImageURL = *patch.ImageURL
		}
		if patch.Author != nil {
			feed.Author = *patch.Author
		}
		if patch.Content != nil {
			feed.Content = *patch.Content
		}
		feed.UpdatedAt = &updatedAt
		r.feeds[url] = feed
		return feed, nil
	}
	return domain.Feed{}, domain.ErrNotFound
}

func (r *fakeRepo) DeleteFeed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for url, feed := range r.feeds {
		if feed.ID == id {
			delete(r.feeds, url)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds)
}

// fakeSink collects failure log entries.
type fakeSink struct {
	mu      sync.Mutex
	entries []domain.FeedLogEntry
}

func (s *fakeSink) Record(_ context.Context, entry domain.FeedLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *fakeSink) all() []domain.FeedLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.FeedLogEntry(nil), s.entries...)
}

// fakeBrowser serves static HTML as counted sessions so tests can observe
// that every opened session is released and how each open was bounded.
type fakeBrowser struct {
	pages    map[string]string
	failURLs map[string]error

	mu      sync.Mutex
	open    int
	maxOpen int
	opened  []openCall
}

type openCall struct {
	url  string
	opts ports.PageOptions
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{pages: map[string]string{}, failURLs: map[string]error{}}
}

func (b *fakeBrowser) Open(_ context.Context, url string, opts ports.PageOptions) (ports.Page, error) {
	b.mu.Lock()
	b.opened = append(b.opened, openCall{url: url, opts: opts})
	b.mu.Unlock()

	if err := b.failURLs[url]; err != nil {
		return nil, err
	}
	html, ok := b.pages[url]
	if !ok {
		return nil, &browser.NavigationError{URL: url, Err: fmt.Errorf("no such page")}
	}

	session, err := browser.NewSessionFromHTML(html)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.open++
	if b.open > b.maxOpen {
		b.maxOpen = b.open
	}
	b.mu.Unlock()

	return &countedPage{Session: session, owner: b}, nil
}

func (b *fakeBrowser) openSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *fakeBrowser) peakSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxOpen
}

func (b *fakeBrowser) openCalls() []openCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]openCall(nil), b.opened...)
}

type countedPage struct {
	*browser.Session
	owner  *fakeBrowser
	closed bool
}

func (p *countedPage) Close() error {
	if !p.closed {
		p.closed = true
		p.owner.mu.Lock()
		p.owner.open--
		p.owner.mu.Unlock()
	}
	return p.Session.Close()
}
