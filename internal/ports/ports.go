package ports

import (
	"context"
	"time"

	"TruthFilter/internal/domain"
)

// Browser attaches to an already running, logged-in browser.
type Browser interface {
	Attach(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is a live connection; Detach must leave the browser running.
type BrowserSession interface {
	AcquireTab(ctx context.Context, domains []string, startURL string) (Page, error)
	Detach() error
}

// Scope is anything elements can be looked up from (a page or an element).
type Scope interface {
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Page is a single browser tab.
type Page interface {
	Scope
	URL(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	// WaitVisible blocks until selector is visible; timeout <= 0 waits until ctx ends.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Evaluate(ctx context.Context, expression string, out any) error
	// Fetch downloads url from inside the page, reusing its cookies.
	Fetch(ctx context.Context, url string) ([]byte, error)
	ScrollBy(ctx context.Context, dy int) error
}

// Element is a DOM node handle inside a Page.
type Element interface {
	Scope
	Attribute(ctx context.Context, name string) (string, bool, error)
	OuterHTML(ctx context.Context) (string, error)
	NaturalWidth(ctx context.Context) (int, error)
	ScrollIntoView(ctx context.Context) error
	// Screenshot captures the element as JPEG at the given quality.
	Screenshot(ctx context.Context, quality int) ([]byte, error)
}

// Image is an inline image handed to a language model.
type Image struct {
	Data     []byte
	MIMEType string
}

// GenerateRequest is a single prompt to a language model.
type GenerateRequest struct {
	Model  string
	Prompt string
	Image  *Image
	Search bool
}

// Generation is a language model answer.
type Generation struct {
	Text     string
	Grounded bool
}

// LanguageModel generates text for prompts, optionally grounded with web search.
type LanguageModel interface {
	GenerateContent(ctx context.Context, req GenerateRequest) (Generation, error)
}

// Classifier turns post content into verdicts and reports.
type Classifier interface {
	Analyze(ctx context.Context, text, assetPath string) domain.ClassificationResult
	Summarize(ctx context.Context, items []string) string
	AnswerQuestion(ctx context.Context, contextText, question string) string
}

// PostSource harvests posts per platform.
type PostSource interface {
	Platforms() []domain.Platform
	Harvest(ctx context.Context, platform domain.Platform, limit int) ([]domain.HarvestedPost, error)
}

// ResultStore persists classified posts and cached briefings.
type ResultStore interface {
	Exists(ctx context.Context, postID string) (bool, error)
	// Insert returns false without error when postID is already stored.
	Insert(ctx context.Context, record domain.Record) (bool, error)
	Get(ctx context.Context, postID string) (domain.Record, error)
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error)
	SetManualVerdict(ctx context.Context, postID string, verdict *domain.Verdict) error
	UpdateClassification(ctx context.Context, postID string, verdict domain.Verdict, summary string, clearManual bool) error
	GetCachedBriefing(ctx context.Context, key, currentHash string) (string, bool, error)
	SaveBriefing(ctx context.Context, key, content, contextHash string) error
}

// RecordMaintainer exposes bulk fixes used by maintenance tools.
type RecordMaintainer interface {
	ClearManualVerdicts(ctx context.Context) (int64, error)
	SetURL(ctx context.Context, postID, url string) error
	SetImagePath(ctx context.Context, postID, path string) error
}

// AssetMirror copies acquired assets to remote storage.
type AssetMirror interface {
	Mirror(ctx context.Context, localPath string) error
}

// RunLease guards against overlapping pipeline runs on the shared browser.
type RunLease interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
