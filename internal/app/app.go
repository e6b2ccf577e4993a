package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"FeedScraper/internal/config"
	"FeedScraper/internal/infrastructure/browser"
	cronscheduler "FeedScraper/internal/infrastructure/scheduler"
	"FeedScraper/internal/infrastructure/storage"
	"FeedScraper/internal/infrastructure/telegram"
	"FeedScraper/internal/logging"
	"FeedScraper/internal/ports"
	"FeedScraper/internal/scraper"
	"FeedScraper/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	repo      *storage.PostgresRepository
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := storage.NewPostgresRepository(db)
	sink := storage.NewFeedLogSink(repo, baseLogger.With("component", "logsink"))
	feeds := usecase.NewFeedService(repo, sink, baseLogger.With("component", "feeds"))

	strategies, err := scraper.StrategiesFromConfig(cfg.Sites)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build site strategies: %w", err)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Browser:        browser.NewChromeBrowser(cfg.Browser.ChromePath, baseLogger.With("component", "browser")),
		Feeds:          feeds,
		Logs:           sink,
		Notifier:       notifier,
		Strategies:     strategies,
		UserAgent:      cfg.Browser.UserAgent,
		DetailTimeout:  cfg.Browser.DetailTimeout(),
		ListingTimeout: cfg.Browser.ListingTimeout(),
		Logger:         baseLogger.With("component", "pipeline"),
	})

	driver := cronscheduler.NewCronScheduler(
		cfg.Scheduler.CronExpression,
		cfg.Scheduler.Location(),
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		repo:      repo,
		scheduler: usecase.NewScheduler(driver, pipeline),
	}, nil
}

// Run starts the scheduler and blocks until the context is cancelled. An
// in-flight crawl run is always drained before the process may exit.
func (a *Application) Run(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := a.repo.EnsureSchema(ctx); err != nil {
		return err
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler running", "cron", a.cfg.Scheduler.CronExpression)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Error("scheduler stop", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("database close", "error", err)
	}
	return nil
}
