package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/identity"
	"TruthFilter/internal/logging"
	"TruthFilter/internal/ports"
)

// FixReport counts URL reconstruction results.
type FixReport struct {
	Fixed   int `json:"fixed"`
	Skipped int `json:"skipped"`
}

// ResetReport counts an image reset.
type ResetReport struct {
	FilesDeleted int `json:"files_deleted"`
	RecordsReset int `json:"records_reset"`
}

// Maintenance bundles the record repair tools.
type Maintenance struct {
	store     ports.ResultStore
	records   ports.RecordMaintainer
	assetsDir string
	logger    *slog.Logger
}

func NewMaintenance(store ports.ResultStore, records ports.RecordMaintainer, assetsDir string, logger *slog.Logger) *Maintenance {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Maintenance{store: store, records: records, assetsDir: assetsDir, logger: logger}
}

// FixURLs rebuilds empty URLs from structural identities. Hash identities
// cannot be resolved and are skipped.
func (m *Maintenance) FixURLs(ctx context.Context) (FixReport, error) {
	records, err := m.store.List(ctx, domain.RecordFilter{MissingURL: true})
	if err != nil {
		return FixReport{}, fmt.Errorf("list records: %w", err)
	}

	var report FixReport
	for _, rec := range records {
		url, ok := identity.ReconstructURL(rec.PostID)
		if !ok {
			report.Skipped++
			continue
		}
		if err := m.records.SetURL(ctx, rec.PostID, url); err != nil {
			return report, fmt.Errorf("set url %s: %w", rec.PostID, err)
		}
		report.Fixed++
	}
	m.logger.Info("urls fixed", "fixed", report.Fixed, "skipped", report.Skipped)
	return report, nil
}

// ResetOverrides clears every manual verdict.
func (m *Maintenance) ResetOverrides(ctx context.Context) (int64, error) {
	n, err := m.records.ClearManualVerdicts(ctx)
	if err != nil {
		return 0, err
	}
	m.logger.Info("manual verdicts cleared", "count", n)
	return n, nil
}

// ResetImages deletes a platform's image files and clears their paths so a
// backfill can fetch them again.
func (m *Maintenance) ResetImages(ctx context.Context, platform domain.Platform) (ResetReport, error) {
	var report ResetReport

	files, err := filepath.Glob(filepath.Join(m.assetsDir, platform.Prefix()+"*"))
	if err != nil {
		return report, fmt.Errorf("glob assets: %w", err)
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			m.logger.Warn("delete asset failed", "path", f, "error", err)
			continue
		}
		report.FilesDeleted++
	}

	records, err := m.store.List(ctx, domain.RecordFilter{Platforms: []domain.Platform{platform}})
	if err != nil {
		return report, fmt.Errorf("list records: %w", err)
	}
	for _, rec := range records {
		if rec.ImagePath == "" {
			continue
		}
		if err := m.records.SetImagePath(ctx, rec.PostID, ""); err != nil {
			return report, fmt.Errorf("reset image %s: %w", rec.PostID, err)
		}
		report.RecordsReset++
	}
	m.logger.Info("images reset", "platform", platform, "files", report.FilesDeleted, "records", report.RecordsReset)
	return report, nil
}
