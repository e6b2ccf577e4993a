package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"FeedScraper/internal/domain"
	"FeedScraper/internal/ports"
)

// duplicateURLMessage is the fixed diagnostic recorded when the store rejects
// a feed on its url unique index. Duplicates are an expected outcome of
// re-crawling listing pages, not a bug.
const duplicateURLMessage = "Duplicate URL error during feed creation"

// FeedService owns feed persistence semantics: timestamp stamping per call
// path, duplicate-URL translation, and failure logging.
type FeedService struct {
	repo   ports.FeedRepository
	logs   ports.FeedLogSink
	logger *slog.Logger
	now    func() time.Time
}

// NewFeedService wires the repository and failure log sink.
func NewFeedService(repo ports.FeedRepository, logs ports.FeedLogSink, logger *slog.Logger) *FeedService {
	return &FeedService{
		repo:   repo,
		logs:   logs,
		logger: logger,
		now:    time.Now,
	}
}

// Create ingests a first-party submission. PublishedAt is stamped with the
// current time; the caller supplies every other field.
func (s *FeedService) Create(ctx context.Context, draft domain.FeedDraft) (domain.Feed, error) {
	feed := fromDraft(draft)
	feed.PublishedAt = s.now()
	return s.save(ctx, feed)
}

// CreateFromCrawl ingests a crawl-sourced record. The raw site-native
// published/updated strings are normalized here against the site's date
// layouts; an absent or unparseable published value falls back to the
// ingestion time so partial articles are still kept.
func (s *FeedService) CreateFromCrawl(ctx context.Context, draft domain.FeedDraft, rawPublished, rawUpdated string, layouts []string) (domain.Feed, error) {
	feed := fromDraft(draft)
	feed.PublishedAt = normalizeTime(rawPublished, layouts, s.now())
	feed.UpdatedAt = normalizeOptional(rawUpdated, layouts)
	return s.save(ctx, feed)
}

// Update stamps UpdatedAt and applies only the supplied patch fields. Not
// part of the crawl path, but it shares persistence semantics with it.
func (s *FeedService) Update(ctx context.Context, id string, patch domain.FeedPatch) (domain.Feed, error) {
	return s.repo.UpdateFeed(ctx, id, patch, s.now())
}

// Delete removes a feed by id.
func (s *FeedService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteFeed(ctx, id)
}

// Get returns a feed by id.
func (s *FeedService) Get(ctx context.Context, id string) (domain.Feed, error) {
	return s.repo.GetFeed(ctx, id)
}

// List returns feeds matching the filter plus the total count.
func (s *FeedService) List(ctx context.Context, filter ports.FeedFilter) ([]domain.Feed, int, error) {
	return s.repo.ListFeeds(ctx, filter)
}

func (s *FeedService) save(ctx context.Context, feed domain.Feed) (domain.Feed, error) {
	if !feed.Origin.Valid() {
		return domain.Feed{}, fmt.Errorf("unknown origin %q", feed.Origin)
	}

	created, err := s.repo.CreateFeed(ctx, feed)
	if err == nil {
		return created, nil
	}

	message := err.Error()
	if errors.Is(err, domain.ErrDuplicateURL) {
		message = duplicateURLMessage
	}

	if s.logs != nil {
		s.logs.Record(ctx, domain.FeedLogEntry{
			Message:   message,
			URL:       feed.URL,
			Detail:    err.Error(),
			CreatedAt: s.now(),
		})
	}

	if errors.Is(err, domain.ErrDuplicateURL) {
		if s.logger != nil {
			s.logger.Info("duplicate feed skipped", "url", feed.URL)
		}
		return domain.Feed{}, fmt.Errorf("%s: %w", duplicateURLMessage, domain.ErrDuplicateURL)
	}

	return domain.Feed{}, fmt.Errorf("save feed %s: %w", feed.URL, err)
}

func fromDraft(draft domain.FeedDraft) domain.Feed {
	return domain.Feed{
		ID:       uuid.NewString(),
		Title:    draft.Title,
		Subtitle: draft.Subtitle,
		Category: draft.Category,
		URL:      draft.URL,
		ImageURL: draft.ImageURL,
		Author:   draft.Author,
		Origin:   draft.Origin,
		Content:  draft.Content,
	}
}

// normalizeTime parses a raw site-native timestamp against the layouts,
// falling back to the provided time.
func normalizeTime(raw string, layouts []string, fallback time.Time) time.Time {
	if parsed, ok := parseAny(raw, layouts); ok {
		return parsed
	}
	return fallback
}

// normalizeOptional returns nil when the raw value is absent or no layout
// matches it.
func normalizeOptional(raw string, layouts []string) *time.Time {
	if parsed, ok := parseAny(raw, layouts); ok {
		return &parsed
	}
	return nil
}

func parseAny(raw string, layouts []string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
