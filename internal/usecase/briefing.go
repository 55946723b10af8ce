package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/logging"
	"TruthFilter/internal/ports"
)

// NoContextAnswer is the context handed to the model when no record matches.
const NoContextAnswer = "No data found matching current filters."

// BriefingView is the cached state of a briefing for a filter.
type BriefingView struct {
	Key     string `json:"key"`
	Content string `json:"content"`
	Fresh   bool   `json:"fresh"`
	Records int    `json:"records"`
	Hash    string `json:"context_hash"`
}

// Briefings builds and caches narrative reports over filtered records.
type Briefings struct {
	store      ports.ResultStore
	classifier ports.Classifier
	logger     *slog.Logger
}

func NewBriefings(store ports.ResultStore, classifier ports.Classifier, logger *slog.Logger) *Briefings {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Briefings{store: store, classifier: classifier, logger: logger}
}

// View returns the cached briefing and whether it still matches the records
// the filter selects now.
func (b *Briefings) View(ctx context.Context, filter domain.RecordFilter) (BriefingView, error) {
	records, err := b.store.List(ctx, filter)
	if err != nil {
		return BriefingView{}, fmt.Errorf("list records: %w", err)
	}
	view := BriefingView{
		Key:     domain.BriefingKey(filter),
		Records: len(records),
		Hash:    domain.ContextHash(records),
	}
	view.Content, view.Fresh, err = b.store.GetCachedBriefing(ctx, view.Key, view.Hash)
	if err != nil {
		return BriefingView{}, err
	}
	return view, nil
}

// Generate summarizes the filtered records and stores the result.
func (b *Briefings) Generate(ctx context.Context, filter domain.RecordFilter) (BriefingView, error) {
	records, err := b.store.List(ctx, filter)
	if err != nil {
		return BriefingView{}, fmt.Errorf("list records: %w", err)
	}
	view := BriefingView{
		Key:     domain.BriefingKey(filter),
		Records: len(records),
		Hash:    domain.ContextHash(records),
		Fresh:   true,
	}

	items := make([]string, 0, len(records))
	for _, rec := range records {
		items = append(items, briefingLine(rec))
	}
	view.Content = b.classifier.Summarize(ctx, items)

	if err := b.store.SaveBriefing(ctx, view.Key, view.Content, view.Hash); err != nil {
		return BriefingView{}, err
	}
	b.logger.Info("briefing generated", "key", view.Key, "records", view.Records)
	return view, nil
}

// Ask answers a question grounded on the filtered records.
func (b *Briefings) Ask(ctx context.Context, filter domain.RecordFilter, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question is required")
	}
	records, err := b.store.List(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}
	return b.classifier.AnswerQuestion(ctx, askContext(records), question), nil
}

func briefingLine(rec domain.Record) string {
	src := rec.URL
	if src == "" {
		src = "N/A"
	}
	return fmt.Sprintf("[%s] [%s] %s (Src: %s)", rec.EffectiveVerdict(), rec.Platform(), rec.OriginalText, src)
}

func askContext(records []domain.Record) string {
	if len(records) == 0 {
		return NoContextAnswer
	}
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, fmt.Sprintf("ID: %s | Status: %s | Platform: %s | Content: %s",
			rec.PostID, rec.EffectiveVerdict(), rec.Platform(), rec.OriginalText))
	}
	return strings.Join(lines, "\n")
}
