package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/ports"
)

const (
	dateLayout      = "2006-01-02"
	stageOneSummary = "Filtered by Stage 1 (Irrelevant/Spam)"
	searchNote      = "\n\n(Verified via Google Search)"
	emptyBriefing   = "No content to summarize."
)

// Models names the fast (relevance) and smart (audit, reports) models.
type Models struct {
	Fast  string
	Smart string
}

// Engine runs two-stage classification and report synthesis on a language model.
type Engine struct {
	model  ports.LanguageModel
	models Models
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.Classifier = (*Engine)(nil)

// NewEngine wires a language model with model names.
func NewEngine(model ports.LanguageModel, models Models, logger *slog.Logger) *Engine {
	return &Engine{model: model, models: models, logger: logger, now: time.Now}
}

// Analyze classifies a post. It never fails: model errors become MIXED
// results whose summary starts with "Error:".
func (e *Engine) Analyze(ctx context.Context, text, assetPath string) domain.ClassificationResult {
	if assetPath == "" && !e.worthChecking(ctx, text) {
		return domain.ClassificationResult{
			Verdict:    domain.VerdictNoise,
			IsRelevant: false,
			Summary:    stageOneSummary,
		}
	}
	return e.audit(ctx, text, assetPath)
}

func (e *Engine) worthChecking(ctx context.Context, text string) bool {
	gen, err := e.model.GenerateContent(ctx, ports.GenerateRequest{
		Model:  e.models.Fast,
		Prompt: relevancePrompt(text),
	})
	if err != nil {
		e.debug("relevance check failed, keeping post", "error", err)
		return true
	}
	return worthChecking(gen.Text)
}

func (e *Engine) audit(ctx context.Context, text, assetPath string) domain.ClassificationResult {
	image := e.loadImage(assetPath)

	gen, err := e.model.GenerateContent(ctx, ports.GenerateRequest{
		Model:  e.models.Smart,
		Prompt: auditPrompt(e.today(), text, image != nil),
		Image:  image,
		Search: true,
	})
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("deep audit failed", "error", err)
		}
		return domain.ClassificationResult{
			Verdict:    domain.VerdictMixed,
			IsRelevant: true,
			Summary:    fmt.Sprintf("Error: %v", err),
		}
	}

	summary := gen.Text
	if strings.TrimSpace(summary) == "" {
		summary = "No response."
	}
	verdict := ParseVerdict(summary)
	if gen.Grounded {
		summary += searchNote
	}

	return domain.ClassificationResult{
		Verdict:    verdict,
		IsRelevant: true,
		Summary:    summary,
	}
}

func (e *Engine) loadImage(path string) *ports.Image {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		e.debug("image load failed, auditing text only", "path", path, "error", err)
		return nil
	}
	return &ports.Image{Data: data, MIMEType: http.DetectContentType(data)}
}

// Summarize synthesizes tagged items into a briefing.
func (e *Engine) Summarize(ctx context.Context, items []string) string {
	if len(items) == 0 {
		return emptyBriefing
	}
	gen, err := e.model.GenerateContent(ctx, ports.GenerateRequest{
		Model:  e.models.Smart,
		Prompt: briefingPrompt(e.today(), items),
	})
	if err != nil {
		return fmt.Sprintf("Error generating briefing: %v", err)
	}
	return gen.Text
}

// AnswerQuestion answers a free-form question over the given context.
func (e *Engine) AnswerQuestion(ctx context.Context, contextText, question string) string {
	gen, err := e.model.GenerateContent(ctx, ports.GenerateRequest{
		Model:  e.models.Smart,
		Prompt: questionPrompt(e.today(), contextText, question),
	})
	if err != nil {
		return err.Error()
	}
	return gen.Text
}

func (e *Engine) today() string {
	return e.now().Format(dateLayout)
}

func (e *Engine) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
