package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/harvest"
	"TruthFilter/internal/identity"
	"TruthFilter/internal/logging"
	"TruthFilter/internal/ports"
)

const (
	defaultManualLimit = 5
	defaultCronLimit   = 10
	digestSummaryRunes = 280
)

// ErrRunInProgress means another run holds the browser lease.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.PostSource
	Store      ports.ResultStore
	Classifier ports.Classifier
	Notifier   ports.Notifier
	Lease      ports.RunLease
	Logger     *slog.Logger
}

// PipelineOptions bounds a run.
type PipelineOptions struct {
	Limit     int
	CronLimit int
	PostPause time.Duration
	LeaseTTL  time.Duration
}

// RunOptions selects manual or cron mode. Limit 0 uses the mode default.
type RunOptions struct {
	Limit int
	Cron  bool
}

// PlatformReport counts what happened to one platform's batch.
type PlatformReport struct {
	Platform  domain.Platform `json:"platform"`
	Harvested int             `json:"harvested"`
	Skipped   int             `json:"skipped"`
	Inserted  int             `json:"inserted"`
	Insights  int             `json:"insights"`
	Error     string          `json:"error,omitempty"`
}

// Insight is a newly stored relevant, non-noise record.
type Insight struct {
	PostID  string         `json:"post_id"`
	URL     string         `json:"url,omitempty"`
	Verdict domain.Verdict `json:"verdict"`
	Summary string         `json:"summary"`
}

// RunReport summarises one pipeline run.
type RunReport struct {
	RunID      string           `json:"run_id"`
	Cron       bool             `json:"cron"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Platforms  []PlatformReport `json:"platforms"`
	Insights   []Insight        `json:"insights"`
}

// Pipeline implements the harvest, dedupe, classify and persist workflow.
type Pipeline struct {
	source     ports.PostSource
	store      ports.ResultStore
	classifier ports.Classifier
	notifier   ports.Notifier
	lease      ports.RunLease
	opts       PipelineOptions
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration)
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	if opts.Limit <= 0 {
		opts.Limit = defaultManualLimit
	}
	if opts.CronLimit <= 0 {
		opts.CronLimit = defaultCronLimit
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		source:     deps.Source,
		store:      deps.Store,
		classifier: deps.Classifier,
		notifier:   deps.Notifier,
		lease:      deps.Lease,
		opts:       opts,
		logger:     logger,
		sleep:      harvest.SleepContext,
		now:        time.Now,
	}
}

// Run processes every enabled platform sequentially. A failing platform is
// recorded in the report and never aborts the run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString(), Cron: opts.Cron, StartedAt: p.now()}
	if p.source == nil || p.store == nil || p.classifier == nil {
		return report, fmt.Errorf("pipeline is not fully configured")
	}

	if p.lease != nil {
		release, ok, err := p.lease.Acquire(ctx, p.opts.LeaseTTL)
		if err != nil {
			return report, fmt.Errorf("acquire run lease: %w", err)
		}
		if !ok {
			return report, ErrRunInProgress
		}
		defer release()
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = p.opts.Limit
		if opts.Cron {
			limit = p.opts.CronLimit
		}
	}

	log := p.logger.With("run_id", report.RunID)
	mode := "manual"
	if opts.Cron {
		mode = "cron"
	}
	log.Info("pipeline started", "mode", mode, "limit", limit)

	for _, platform := range p.source.Platforms() {
		if ctx.Err() != nil {
			break
		}
		pr, insights := p.processPlatform(ctx, log, platform, limit)
		report.Platforms = append(report.Platforms, pr)
		report.Insights = append(report.Insights, insights...)
	}

	report.FinishedAt = p.now()
	log.Info("pipeline finished", "insights", len(report.Insights), "duration", report.FinishedAt.Sub(report.StartedAt))

	if p.notifier != nil && (len(report.Insights) > 0 || !opts.Cron) {
		if err := p.notifier.PublishDigest(ctx, buildDigestMessage(report)); err != nil {
			log.Warn("publish digest failed", "error", err)
		}
	} else if len(report.Insights) == 0 {
		log.Info("no new insights, silent mode")
	}
	return report, ctx.Err()
}

func (p *Pipeline) processPlatform(ctx context.Context, log *slog.Logger, platform domain.Platform, limit int) (PlatformReport, []Insight) {
	pr := PlatformReport{Platform: platform}
	log = log.With("platform", string(platform))

	posts, err := p.source.Harvest(ctx, platform, limit)
	if err != nil {
		log.Error("harvest failed", "error", err)
		pr.Error = err.Error()
		return pr, nil
	}
	pr.Harvested = len(posts)
	if len(posts) == 0 {
		log.Info("no posts harvested")
		return pr, nil
	}
	log.Info("auditing posts", "count", len(posts))

	var insights []Insight
	for _, post := range posts {
		if ctx.Err() != nil {
			break
		}
		post.ID = identity.EnsurePrefix(platform, post.ID)

		exists, err := p.store.Exists(ctx, post.ID)
		if err != nil {
			log.Warn("exists check failed", "post_id", post.ID, "error", err)
			pr.Skipped++
			continue
		}
		if exists {
			pr.Skipped++
			continue
		}

		log.Debug("analyzing post", "post_id", post.ID, "has_image", post.AssetPath != "")
		result := p.classifier.Analyze(ctx, post.Text, post.AssetPath).Normalize()

		inserted, err := p.store.Insert(ctx, domain.Record{
			PostID:       post.ID,
			OriginalText: post.Text,
			Verdict:      result.Verdict,
			Summary:      result.Summary,
			URL:          post.URL,
			ImagePath:    post.AssetPath,
		})
		switch {
		case err != nil:
			log.Error("store result failed", "post_id", post.ID, "error", err)
		case !inserted:
			pr.Skipped++
		default:
			pr.Inserted++
			if result.Insight() {
				pr.Insights++
				insights = append(insights, Insight{PostID: post.ID, URL: post.URL, Verdict: result.Verdict, Summary: result.Summary})
				log.Info("insight stored", "post_id", post.ID, "verdict", result.Verdict)
			} else {
				log.Info("post dropped", "post_id", post.ID, "verdict", result.Verdict)
			}
		}

		p.sleep(ctx, p.opts.PostPause)
	}
	return pr, insights
}

func buildDigestMessage(report RunReport) string {
	var b strings.Builder
	if len(report.Insights) == 0 {
		fmt.Fprintf(&b, "TruthFilter run %s: no new insights.", shortRunID(report.RunID))
		return b.String()
	}

	fmt.Fprintf(&b, "TruthFilter run %s: %d new insights\n\n", shortRunID(report.RunID), len(report.Insights))
	for _, in := range report.Insights {
		fmt.Fprintf(&b, "[%s] %s\n%s\n", in.Verdict, in.PostID, clip(in.Summary, digestSummaryRunes))
		if in.URL != "" {
			b.WriteString(in.URL)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
