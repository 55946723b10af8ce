package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"TruthFilter/internal/api"
	"TruthFilter/internal/asset"
	"TruthFilter/internal/classifier"
	"TruthFilter/internal/config"
	"TruthFilter/internal/domain"
	"TruthFilter/internal/identity"
	"TruthFilter/internal/infrastructure/browser"
	"TruthFilter/internal/infrastructure/lease"
	"TruthFilter/internal/infrastructure/llm"
	"TruthFilter/internal/infrastructure/mirror"
	"TruthFilter/internal/infrastructure/parser"
	"TruthFilter/internal/infrastructure/scheduler"
	"TruthFilter/internal/infrastructure/storage"
	"TruthFilter/internal/infrastructure/telegram"
	"TruthFilter/internal/logging"
	"TruthFilter/internal/ports"
	"TruthFilter/internal/report"
	"TruthFilter/internal/usecase"
)

// Application wires configs to use cases. Expensive adapters (language
// model, browser, lease) are built on first use so maintenance commands run
// without credentials or a browser.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db    *sql.DB
	store *storage.SQLStore

	classifier ports.Classifier
	browser    ports.Browser
	acquirer   *asset.Acquirer
	resolver   *identity.Resolver
	runLease   ports.RunLease
	closers    []func() error
}

// New opens and migrates the result store.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, dialect, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	store := storage.NewSQLStore(db, dialect, baseLogger.With("component", "storage"))
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger, db: db, store: store}
	a.closers = append(a.closers, db.Close)
	return a, nil
}

// Config returns the loaded configuration.
func (a *Application) Config() config.Config { return a.cfg }

// Logger returns the base logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Store exposes the result store for direct record edits.
func (a *Application) Store() *storage.SQLStore { return a.store }

// Close releases every opened resource in reverse order.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) component(name string) *slog.Logger {
	return a.logger.With("component", name)
}

// Classifier builds the language model provider and classification engine.
func (a *Application) Classifier(ctx context.Context) (ports.Classifier, error) {
	if a.classifier != nil {
		return a.classifier, nil
	}
	model, err := llm.New(ctx, a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("language model: %w", err)
	}
	fast, smart := llm.Models(a.cfg.LLM)
	a.classifier = classifier.NewEngine(model, classifier.Models{Fast: fast, Smart: smart}, a.component("classifier"))
	return a.classifier, nil
}

func (a *Application) attachBrowser() ports.Browser {
	if a.browser == nil {
		a.browser = browser.New(a.cfg.Browser.Endpoint, a.component("browser"))
	}
	return a.browser
}

func (a *Application) identityResolver() *identity.Resolver {
	if a.resolver == nil {
		a.resolver = identity.NewResolver(identity.Config{
			ProfileIDLengths: a.cfg.Harvest.ProfileIDLengths,
			HashPrefixRunes:  a.cfg.Harvest.HashPrefixRunes,
		})
	}
	return a.resolver
}

func (a *Application) assetAcquirer() *asset.Acquirer {
	if a.acquirer != nil {
		return a.acquirer
	}
	var assetMirror ports.AssetMirror
	if a.cfg.Mirror.S3.Bucket != "" {
		m, err := mirror.NewS3Mirror(a.cfg.Mirror.S3)
		if err != nil {
			a.logger.Warn("s3 mirror disabled", "error", err)
		} else {
			assetMirror = m
		}
	}
	h := a.cfg.Harvest
	a.acquirer = asset.NewAcquirer(asset.Options{
		Dir:      h.AssetsDir,
		MinBytes: h.MinImageBytes,
		Quality:  h.ScreenshotQuality,
		Settle:   h.ScreenshotSettle,
	}, assetMirror, a.component("asset"))
	return a.acquirer
}

func (a *Application) lease(ctx context.Context) (ports.RunLease, error) {
	if a.runLease != nil {
		return a.runLease, nil
	}
	if a.cfg.Redis.URL == "" {
		a.runLease = lease.NewLocalLease()
		return a.runLease, nil
	}
	l, err := lease.Connect(ctx, a.cfg.Redis.URL, a.cfg.Redis.Key)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, l.Close)
	a.runLease = l
	return l, nil
}

// Pipeline wires harvest, classification, storage and notification.
func (a *Application) Pipeline(ctx context.Context) (*usecase.Pipeline, error) {
	cls, err := a.Classifier(ctx)
	if err != nil {
		return nil, err
	}
	runLease, err := a.lease(ctx)
	if err != nil {
		return nil, err
	}

	registry := parser.BuildRegistry(a.cfg, a.identityResolver(), a.assetAcquirer(), a.component("parser"))
	source := parser.NewStrategySource(registry, a.attachBrowser(), a.cfg, a.component("source"))

	deps := usecase.PipelineDeps{
		Source:     source,
		Store:      a.store,
		Classifier: cls,
		Lease:      runLease,
		Logger:     a.component("pipeline"),
	}
	notifier := telegram.NewNotifier(a.cfg.Notifications.Telegram.BotToken, a.cfg.Notifications.Telegram.ChatID)
	if notifier.Configured() {
		deps.Notifier = notifier
	}

	p := a.cfg.Pipeline
	return usecase.NewPipeline(deps, usecase.PipelineOptions{
		Limit:     p.Limit,
		CronLimit: p.CronLimit,
		PostPause: p.PostPause,
		LeaseTTL:  p.LeaseTTL,
	}), nil
}

// Scheduler drives cron-mode pipeline runs on the configured interval.
func (a *Application) Scheduler(ctx context.Context) (*usecase.Scheduler, error) {
	pipeline, err := a.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	return usecase.NewScheduler(driver, pipeline, a.component("scheduler")), nil
}

func (a *Application) Reprocessor(ctx context.Context) (*usecase.Reprocessor, error) {
	cls, err := a.Classifier(ctx)
	if err != nil {
		return nil, err
	}
	return usecase.NewReprocessor(a.store, cls, a.cfg.Pipeline.PostPause, a.component("reprocess")), nil
}

func (a *Application) Maintenance() *usecase.Maintenance {
	return usecase.NewMaintenance(a.store, a.store, a.cfg.Harvest.AssetsDir, a.component("maintenance"))
}

// Backfiller drives the shared browser tab over X and Weibo detail pages.
func (a *Application) Backfiller() *usecase.Backfiller {
	opts := usecase.BackfillOptions{Settle: a.cfg.Harvest.BackfillPageSettle}
	for _, name := range []domain.Platform{domain.PlatformX, domain.PlatformWeibo} {
		p, ok := a.cfg.Platform(string(name))
		if !ok {
			continue
		}
		opts.Domains = append(opts.Domains, p.Domains...)
		if opts.StartURL == "" {
			opts.StartURL = p.StartURL
		}
	}
	acquirer := a.assetAcquirer().WithQuality(a.cfg.Harvest.BackfillQuality)
	locator := parser.NewDetailLocator(a.cfg.Harvest.BackfillMinWidth)
	return usecase.NewBackfiller(a.attachBrowser(), a.store, a.store, acquirer, locator, opts, a.component("backfill"))
}

func (a *Application) Briefings(ctx context.Context) (*usecase.Briefings, error) {
	cls, err := a.Classifier(ctx)
	if err != nil {
		return nil, err
	}
	return usecase.NewBriefings(a.store, cls, a.component("briefing")), nil
}

func (a *Application) Digest() *report.Digest {
	return report.NewDigest(a.store, a.cfg.Reports.Dir, a.cfg.Reports.Limit)
}

// Router builds the review API.
func (a *Application) Router(ctx context.Context) (http.Handler, error) {
	briefings, err := a.Briefings(ctx)
	if err != nil {
		return nil, err
	}
	return api.NewRouter(api.NewHandler(a.store, briefings, a.component("api"))), nil
}
