package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"FeedScraper/internal/domain"
	"FeedScraper/internal/ports"
)

// uniqueViolation is the Postgres error code raised by the feeds url index.
const uniqueViolation = "23505"

var feedColumns = []string{
	"id", "title", "subtitle", "category", "url", "url_image",
	"author", "origin", "content", "published_at", "updated_at",
}

// schema creates the two tables this repository owns. The unique index on
// feeds.url is the single enforcement point for the one-feed-per-URL
// invariant, safe under concurrent writers.
const schema = `
CREATE TABLE IF NOT EXISTS feeds (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    subtitle     TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL UNIQUE,
    url_image    TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    origin       TEXT NOT NULL,
    content      TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS feed_logs (
    id         BIGSERIAL PRIMARY KEY,
    message    TEXT NOT NULL,
    url        TEXT NOT NULL DEFAULT '',
    detail     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);`

// PostgresRepository persists feeds and failure logs into Postgres.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.FeedRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the feeds and feed_logs tables when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// CreateFeed inserts a new feed. A unique-index rejection on url maps to
// domain.ErrDuplicateURL; the row is never overwritten.
func (r *PostgresRepository) CreateFeed(ctx context.Context, feed domain.Feed) (domain.Feed, error) {
	query, args, err := r.builder.
		Insert("feeds").
		Columns(feedColumns...).
		Values(
			feed.ID, feed.Title, feed.Subtitle, feed.Category, feed.URL,
			feed.ImageURL, feed.Author, string(feed.Origin), feed.Content,
			feed.PublishedAt, feed.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return domain.Feed{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.Feed{}, fmt.Errorf("feed %s: %w", feed.URL, domain.ErrDuplicateURL)
		}
		return domain.Feed{}, fmt.Errorf("insert feed: %w", err)
	}

	return feed, nil
}

// GetFeed returns a feed by id.
func (r *PostgresRepository) GetFeed(ctx context.Context, id string) (domain.Feed, error) {
	query, args, err := r.builder.
		Select(feedColumns...).
		From("feeds").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Feed{}, fmt.Errorf("build select: %w", err)
	}

	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Feed{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Feed{}, fmt.Errorf("get feed %s: %w", id, err)
	}
	return feed, nil
}

// ListFeeds returns feeds matching the filter and the total match count.
func (r *PostgresRepository) ListFeeds(ctx context.Context, filter ports.FeedFilter) ([]domain.Feed, int, error) {
	conditions := sq.Eq{}
	if filter.Origin != "" {
		conditions["origin"] = string(filter.Origin)
	}
	if filter.Category != "" {
		conditions["category"] = filter.Category
	}
	if filter.URL != "" {
		conditions["url"] = filter.URL
	}

	countQuery, countArgs, err := r.builder.
		Select("COUNT(*)").
		From("feeds").
		Where(conditions).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feeds: %w", err)
	}

	listBuilder := r.builder.
		Select(feedColumns...).
		From("feeds").
		Where(conditions).
		OrderBy(orderClause(filter))
	if filter.Limit > 0 {
		listBuilder = listBuilder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		listBuilder = listBuilder.Offset(uint64(filter.Offset))
	}

	query, args, err := listBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []domain.Feed
	for rows.Next() {
		feed, scanErr := scanFeed(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("scan feed: %w", scanErr)
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration: %w", err)
	}

	return feeds, total, nil
}

// UpdateFeed applies only the supplied patch fields and stamps updated_at.
func (r *PostgresRepository) UpdateFeed(ctx context.Context, id string, patch domain.FeedPatch, updatedAt time.Time) (domain.Feed, error) {
	update := r.builder.
		Update("feeds").
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": id})

	if patch.Title != nil {
		update = update.Set("title", *patch.Title)
	}
	if patch.Subtitle != nil {
		update = update.Set("subtitle", *patch.Subtitle)
	}
	if patch.Category != nil {
		update = update.Set("category", *patch.Category)
	}
	if patch.ImageURL != nil {
		update = update.Set("url_image", *patch.ImageURL)
	}
	if patch.Author != nil {
		update = update.Set("author", *patch.Author)
	}
	if patch.Content != nil {
		update = update.Set("content", *patch.Content)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return domain.Feed{}, fmt.Errorf("build update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("update feed %s: %w", id, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.Feed{}, domain.ErrNotFound
	}

	return r.GetFeed(ctx, id)
}

// DeleteFeed removes a feed by id.
func (r *PostgresRepository) DeleteFeed(ctx context.Context, id string) error {
	query, args, err := r.builder.
		Delete("feeds").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete feed %s: %w", id, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendLog inserts one failure record. Append-only; nothing reads it back.
func (r *PostgresRepository) AppendLog(ctx context.Context, entry domain.FeedLogEntry) error {
	query, args, err := r.builder.
		Insert("feed_logs").
		Columns("message", "url", "detail", "created_at").
		Values(entry.Message, entry.URL, entry.Detail, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build log insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert feed log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (domain.Feed, error) {
	var (
		feed      domain.Feed
		origin    string
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&feed.ID, &feed.Title, &feed.Subtitle, &feed.Category, &feed.URL,
		&feed.ImageURL, &feed.Author, &origin, &feed.Content,
		&feed.PublishedAt, &updatedAt,
	)
	if err != nil {
		return domain.Feed{}, err
	}
	feed.Origin = domain.Origin(origin)
	if updatedAt.Valid {
		feed.UpdatedAt = &updatedAt.Time
	}
	return feed, nil
}

func orderClause(filter ports.FeedFilter) string {
	field := "published_at"
	if filter.SortField == "created" || filter.SortField == "id" {
		field = "id"
	}
	direction := "DESC"
	if filter.SortAsc {
		direction = "ASC"
	}
	return field + " " + direction
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
