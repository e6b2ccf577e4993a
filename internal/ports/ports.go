package ports

import (
	"context"
	"time"

	"FeedScraper/internal/domain"
)

// Anchor is a link found on an open page.
type Anchor struct {
	Text string
	URL  string
}

// Page is an opened, rendered document. All selector lookups are read-only
// against the DOM snapshot taken at open time.
type Page interface {
	// Text returns the trimmed text of the first match, or "" when absent.
	Text(selector string) string
	// ListText concatenates the text of every match, each wrapped in a
	// paragraph tag, skipping empty ones.
	ListText(selector string) string
	// Attr returns the named attribute of the first match.
	Attr(selector, name string) (string, bool)
	// AttrAll returns the named attribute of every match, in document order.
	AttrAll(selector, name string) []string
	// Links returns every anchor matching the selector, in document order.
	Links(selector string) []Anchor
	// Has reports whether at least one node matches.
	Has(selector string) bool
	// Close releases the session and its rendering process. Idempotent.
	Close() error
}

// PageOptions tunes one page open.
type PageOptions struct {
	UserAgent string
	// Timeout bounds navigation; zero means no ceiling.
	Timeout time.Duration
	// ConsentSelector, when set, is clicked after navigation if present.
	// Absence of the consent wall is not an error.
	ConsentSelector string
}

// Browser opens isolated rendering sessions against URLs.
type Browser interface {
	Open(ctx context.Context, url string, opts PageOptions) (Page, error)
}

// FeedRepository persists feeds behind the store's unique-url index.
type FeedRepository interface {
	// CreateFeed saves a new feed and returns domain.ErrDuplicateURL when the
	// url unique index rejects it.
	CreateFeed(ctx context.Context, feed domain.Feed) (domain.Feed, error)
	GetFeed(ctx context.Context, id string) (domain.Feed, error)
	ListFeeds(ctx context.Context, filter FeedFilter) ([]domain.Feed, int, error)
	UpdateFeed(ctx context.Context, id string, patch domain.FeedPatch, updatedAt time.Time) (domain.Feed, error)
	DeleteFeed(ctx context.Context, id string) error
}

// FeedFilter narrows and pages ListFeeds results.
type FeedFilter struct {
	Origin    domain.Origin
	Category  string
	URL       string
	SortField string
	SortAsc   bool
	Limit     int
	Offset    int
}

// FeedLogSink records pipeline failures. Implementations must never let a
// logging failure reach the caller.
type FeedLogSink interface {
	Record(ctx context.Context, entry domain.FeedLogEntry)
}

// Notifier publishes run summaries to an operator channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
