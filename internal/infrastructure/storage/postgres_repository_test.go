package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedScraper/internal/domain"
	"FeedScraper/internal/ports"
)

func TestIsUniqueViolation(t *testing.T) {
	duplicate := &pq.Error{Code: "23505", Constraint: "feeds_url_key"}
	assert.True(t, isUniqueViolation(duplicate))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert feed: %w", duplicate)))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
	assert.False(t, isUniqueViolation(nil))
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "published_at DESC", orderClause(ports.FeedFilter{}))
	assert.Equal(t, "published_at ASC", orderClause(ports.FeedFilter{SortAsc: true}))
	assert.Equal(t, "id DESC", orderClause(ports.FeedFilter{SortField: "id"}))
	assert.Equal(t, "id ASC", orderClause(ports.FeedFilter{SortField: "created", SortAsc: true}))
	assert.Equal(t, "published_at DESC", orderClause(ports.FeedFilter{SortField: "something_else"}))
}

type stubScanner struct {
	values []any
	err    error
}

func (s stubScanner) Scan(dest ...any) error {
	if s.err != nil {
		return s.err
	}
	for i, value := range s.values {
		switch d := dest[i].(type) {
		case *string:
			*d = value.(string)
		case *time.Time:
			*d = value.(time.Time)
		case *sql.NullTime:
			*d = value.(sql.NullTime)
		}
	}
	return nil
}

func TestScanFeedNullUpdatedAt(t *testing.T) {
	published := time.Date(2026, 2, 28, 18, 30, 0, 0, time.UTC)
	row := stubScanner{values: []any{
		"id-1", "Title", "Sub", "international", "https://elpais.com/a.html",
		"", "Reporter", "the_country_page", "<p>Body.</p>",
		published, sql.NullTime{},
	}}

	feed, err := scanFeed(row)
	require.NoError(t, err)
	assert.Equal(t, domain.OriginCountryPage, feed.Origin)
	assert.Equal(t, published, feed.PublishedAt)
	assert.Nil(t, feed.UpdatedAt)
}

func TestScanFeedWithUpdatedAt(t *testing.T) {
	published := time.Date(2026, 2, 28, 18, 30, 0, 0, time.UTC)
	updated := time.Date(2026, 3, 1, 1, 15, 0, 0, time.UTC)
	row := stubScanner{values: []any{
		"id-2", "Title", "", "", "https://www.elmundo.es/a.html",
		"", "", "the_word_page", "",
		published, sql.NullTime{Time: updated, Valid: true},
	}}

	feed, err := scanFeed(row)
	require.NoError(t, err)
	require.NotNil(t, feed.UpdatedAt)
	assert.Equal(t, updated, *feed.UpdatedAt)
}

func TestScanFeedPropagatesError(t *testing.T) {
	_, err := scanFeed(stubScanner{err: sql.ErrNoRows})
	require.ErrorIs(t, err, sql.ErrNoRows)
}
