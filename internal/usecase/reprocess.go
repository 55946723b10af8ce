package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/harvest"
	"TruthFilter/internal/logging"
	"TruthFilter/internal/ports"
)

// ErrorMarkers identify summaries left behind by failed classification calls.
var ErrorMarkers = []string{"Error", "404"}

// BatchReport counts the outcome of a batch tool.
type BatchReport struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Reprocessor re-runs classification over stored records.
type Reprocessor struct {
	store      ports.ResultStore
	classifier ports.Classifier
	pause      time.Duration
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration)
}

func NewReprocessor(store ports.ResultStore, classifier ports.Classifier, pause time.Duration, logger *slog.Logger) *Reprocessor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Reprocessor{store: store, classifier: classifier, pause: pause, logger: logger, sleep: harvest.SleepContext}
}

// One re-analyzes a single record, overwrites its verdict and summary and
// clears the manual verdict.
func (r *Reprocessor) One(ctx context.Context, postID string) (domain.ClassificationResult, error) {
	rec, err := r.store.Get(ctx, postID)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	result := r.classifier.Analyze(ctx, rec.OriginalText, rec.ImagePath).Normalize()
	if err := r.store.UpdateClassification(ctx, postID, result.Verdict, result.Summary, true); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("update %s: %w", postID, err)
	}
	r.logger.Info("record reprocessed", "post_id", postID, "verdict", result.Verdict)
	return result, nil
}

// All re-analyzes every record whose AI verdict is not NOISE. Manual
// verdicts are kept.
func (r *Reprocessor) All(ctx context.Context) (BatchReport, error) {
	records, err := r.store.List(ctx, domain.RecordFilter{ExcludeNoise: true})
	if err != nil {
		return BatchReport{}, fmt.Errorf("list records: %w", err)
	}
	return r.batch(ctx, records, nil), nil
}

// Errors re-analyzes records whose summary carries an error marker and only
// keeps results that no longer do.
func (r *Reprocessor) Errors(ctx context.Context) (BatchReport, error) {
	records, err := r.store.List(ctx, domain.RecordFilter{SummaryMarkers: ErrorMarkers})
	if err != nil {
		return BatchReport{}, fmt.Errorf("list records: %w", err)
	}
	accept := func(res domain.ClassificationResult) bool {
		return !containsAny(res.Summary, ErrorMarkers)
	}
	return r.batch(ctx, records, accept), nil
}

func (r *Reprocessor) batch(ctx context.Context, records []domain.Record, accept func(domain.ClassificationResult) bool) BatchReport {
	report := BatchReport{Total: len(records)}
	for i, rec := range records {
		if ctx.Err() != nil {
			break
		}
		r.logger.Info("reprocessing", "post_id", rec.PostID, "n", i+1, "of", len(records))

		result := r.classifier.Analyze(ctx, rec.OriginalText, rec.ImagePath).Normalize()
		if accept != nil && !accept(result) {
			r.logger.Warn("still failing", "post_id", rec.PostID, "summary", clip(result.Summary, 50))
			report.Failed++
		} else if err := r.store.UpdateClassification(ctx, rec.PostID, result.Verdict, result.Summary, false); err != nil {
			r.logger.Error("update failed", "post_id", rec.PostID, "error", err)
			report.Failed++
		} else {
			report.Updated++
		}

		if i < len(records)-1 {
			r.sleep(ctx, r.pause)
		}
	}
	return report
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
