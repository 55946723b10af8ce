// Package report renders stored verdicts into a static HTML digest.
package report

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/ports"
)

const (
	defaultLimit    = 20
	fileTimeLayout  = "20060102_150405"
	titleTimeLayout = "2006-01-02 15:04"
)

//go:embed digest.html.tmpl
var digestTemplateText string

var digestTemplate = template.Must(template.New("digest").Parse(digestTemplateText))

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

type digestPost struct {
	PostID       string
	Verdict      domain.Verdict
	OriginalText string
	Summary      template.HTML
	ProcessedAt  string
	URL          string
}

type digestPage struct {
	Date  string
	Posts []digestPost
}

// Digest writes the most recent non-noise records to a timestamped file.
type Digest struct {
	store ports.ResultStore
	dir   string
	limit int
	now   func() time.Time
}

func NewDigest(store ports.ResultStore, dir string, limit int) *Digest {
	if dir == "" {
		dir = "reports"
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Digest{store: store, dir: dir, limit: limit, now: time.Now}
}

// Generate renders up to limit records (0 uses the configured limit) and
// returns the file path and item count. No file is written when nothing matches.
func (d *Digest) Generate(ctx context.Context, limit int) (string, int, error) {
	if limit <= 0 {
		limit = d.limit
	}
	records, err := d.store.List(ctx, domain.RecordFilter{
		Verdicts: []domain.Verdict{domain.VerdictTrue, domain.VerdictFalse, domain.VerdictMixed},
		Limit:    limit,
	})
	if err != nil {
		return "", 0, fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return "", 0, nil
	}

	now := d.now()
	var buf bytes.Buffer
	if err := Render(&buf, records, now); err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(d.dir, "daily_digest_"+now.Format(fileTimeLayout)+".html")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", 0, fmt.Errorf("write digest: %w", err)
	}
	return path, len(records), nil
}

// Render writes the digest page for records.
func Render(w io.Writer, records []domain.Record, now time.Time) error {
	page := digestPage{Date: now.Format(titleTimeLayout)}
	for _, rec := range records {
		page.Posts = append(page.Posts, digestPost{
			PostID:       rec.PostID,
			Verdict:      rec.EffectiveVerdict(),
			OriginalText: rec.OriginalText,
			Summary:      markdownToHTML(rec.Summary),
			ProcessedAt:  rec.ProcessedAt.Format(titleTimeLayout),
			URL:          rec.URL,
		})
	}
	if err := digestTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	return nil
}

func markdownToHTML(text string) template.HTML {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &out); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(out.String())
}
