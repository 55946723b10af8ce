package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"TruthFilter/internal/asset"
	"TruthFilter/internal/domain"
	"TruthFilter/internal/harvest"
	"TruthFilter/internal/logging"
	"TruthFilter/internal/ports"
)

const backfillScroll = 500

// ImageLocator finds the primary image of a post detail page.
type ImageLocator interface {
	Locate(ctx context.Context, page ports.Page, platform domain.Platform) (asset.Candidate, bool)
}

// BackfillOptions tunes detail page pacing.
type BackfillOptions struct {
	PauseMin time.Duration
	PauseMax time.Duration
	Settle   time.Duration
	// Domains and StartURL pick the tab the backfill drives.
	Domains  []string
	StartURL string
}

// Backfiller fetches images for stored records that were saved without one.
type Backfiller struct {
	browser  ports.Browser
	store    ports.ResultStore
	records  ports.RecordMaintainer
	acquirer *asset.Acquirer
	locator  ImageLocator
	pacer    *harvest.Pacer
	opts     BackfillOptions
	logger   *slog.Logger
}

func NewBackfiller(browser ports.Browser, store ports.ResultStore, records ports.RecordMaintainer, acquirer *asset.Acquirer, locator ImageLocator, opts BackfillOptions, logger *slog.Logger) *Backfiller {
	if opts.PauseMin <= 0 {
		opts.PauseMin = 1500 * time.Millisecond
	}
	if opts.PauseMax < opts.PauseMin {
		opts.PauseMax = 3500 * time.Millisecond
	}
	if opts.Settle <= 0 {
		opts.Settle = time.Second
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Backfiller{
		browser:  browser,
		store:    store,
		records:  records,
		acquirer: acquirer,
		locator:  locator,
		pacer:    harvest.NewPacer(opts.PauseMin, opts.PauseMax),
		opts:     opts,
		logger:   logger,
	}
}

// Candidates lists X and Weibo records that have a URL but no image.
func (b *Backfiller) Candidates(ctx context.Context) ([]domain.Record, error) {
	records, err := b.store.List(ctx, domain.RecordFilter{
		Platforms:    []domain.Platform{domain.PlatformX, domain.PlatformWeibo},
		MissingImage: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := records[:0]
	for _, rec := range records {
		if rec.URL != "" && rec.ImagePath == "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Run visits each candidate's detail page in one shared tab. Per-record
// failures are logged and counted.
func (b *Backfiller) Run(ctx context.Context) (BatchReport, error) {
	records, err := b.Candidates(ctx)
	if err != nil {
		return BatchReport{}, err
	}
	report := BatchReport{Total: len(records)}
	if len(records) == 0 {
		b.logger.Info("no records need images")
		return report, nil
	}

	session, err := b.browser.Attach(ctx)
	if err != nil {
		return report, fmt.Errorf("attach browser: %w", err)
	}
	defer func() {
		if err := session.Detach(); err != nil {
			b.logger.Warn("detach failed", "error", err)
		}
	}()

	page, err := session.AcquireTab(ctx, b.opts.Domains, b.opts.StartURL)
	if err != nil {
		return report, fmt.Errorf("acquire tab: %w", err)
	}

	for i, rec := range records {
		if ctx.Err() != nil {
			break
		}
		b.logger.Info("backfilling", "post_id", rec.PostID, "n", i+1, "of", len(records))
		if b.one(ctx, page, rec) {
			report.Updated++
		} else {
			report.Failed++
		}
	}
	return report, ctx.Err()
}

func (b *Backfiller) one(ctx context.Context, page ports.Page, rec domain.Record) bool {
	if err := page.Navigate(ctx, rec.URL); err != nil {
		b.logger.Warn("navigate failed", "post_id", rec.PostID, "error", err)
		return false
	}
	b.pacer.Pause(ctx)
	if err := page.ScrollBy(ctx, backfillScroll); err != nil {
		b.logger.Debug("scroll failed", "post_id", rec.PostID, "error", err)
	}
	b.pacer.Wait(ctx, b.opts.Settle)

	candidate, ok := b.locator.Locate(ctx, page, rec.Platform())
	if !ok {
		b.logger.Info("no image found", "post_id", rec.PostID)
		return false
	}
	path, ok := b.acquirer.Acquire(ctx, page, candidate, rec.PostID)
	if !ok {
		return false
	}
	if err := b.records.SetImagePath(ctx, rec.PostID, path); err != nil {
		b.logger.Error("save image path failed", "post_id", rec.PostID, "error", err)
		return false
	}
	b.logger.Info("image saved", "post_id", rec.PostID, "path", path)
	return true
}
