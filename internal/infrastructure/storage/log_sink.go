package storage

import (
	"context"
	"log/slog"

	"FeedScraper/internal/domain"
	"FeedScraper/internal/ports"
)

// LogAppender is the slice of the repository the sink needs.
type LogAppender interface {
	AppendLog(ctx context.Context, entry domain.FeedLogEntry) error
}

// FeedLogSink appends failure records fire-and-forget. A failed append must
// never cascade into a pipeline failure, so errors stop here.
type FeedLogSink struct {
	appender LogAppender
	logger   *slog.Logger
}

var _ ports.FeedLogSink = (*FeedLogSink)(nil)

// NewFeedLogSink wires the repository's append path.
func NewFeedLogSink(appender LogAppender, logger *slog.Logger) *FeedLogSink {
	return &FeedLogSink{appender: appender, logger: logger}
}

// Record appends the entry, swallowing any storage error.
func (s *FeedLogSink) Record(ctx context.Context, entry domain.FeedLogEntry) {
	if s.appender == nil {
		return
	}
	if err := s.appender.AppendLog(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warn("feed log append failed", "url", entry.URL, "error", err)
	}
}
