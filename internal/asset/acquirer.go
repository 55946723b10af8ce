package asset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"TruthFilter/internal/ports"
)

const (
	defaultMinBytes = 2000
	defaultQuality  = 80
	defaultSettle   = 500 * time.Millisecond
)

// Options configures acquisition.
type Options struct {
	Dir      string
	MinBytes int
	Quality  int
	Settle   time.Duration
}

// Acquirer captures a local image for a post: Plan A downloads the full
// resolution source from inside the page, Plan B screenshots the element.
type Acquirer struct {
	opts   Options
	mirror ports.AssetMirror
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration)
}

// NewAcquirer applies option defaults. mirror may be nil.
func NewAcquirer(opts Options, mirror ports.AssetMirror, logger *slog.Logger) *Acquirer {
	if opts.Dir == "" {
		opts.Dir = filepath.Join("assets", "images")
	}
	if opts.MinBytes <= 0 {
		opts.MinBytes = defaultMinBytes
	}
	if opts.Quality <= 0 {
		opts.Quality = defaultQuality
	}
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}
	return &Acquirer{opts: opts, mirror: mirror, logger: logger, sleep: sleepCtx}
}

// WithQuality returns a copy using a different screenshot quality.
func (a *Acquirer) WithQuality(quality int) *Acquirer {
	cp := *a
	cp.opts.Quality = quality
	return &cp
}

// Acquire stores an image for postID and returns its path. Every failure is
// absorbed: the post is still harvested without an asset.
func (a *Acquirer) Acquire(ctx context.Context, page ports.Page, c Candidate, postID string) (string, bool) {
	if c.URL != "" && page != nil {
		data, err := page.Fetch(ctx, c.URL)
		switch {
		case err != nil:
			a.debug("in-page fetch failed", "post_id", postID, "error", err)
		case len(data) <= a.opts.MinBytes:
			a.debug("in-page fetch too small", "post_id", postID, "bytes", len(data))
		default:
			ext := c.Ext
			if ext == "" {
				ext = "jpg"
			}
			if path, err := a.write(ctx, postID, ext, data); err == nil {
				return path, true
			}
		}
	}

	if c.Element == nil {
		return "", false
	}
	if err := c.Element.ScrollIntoView(ctx); err != nil {
		a.debug("scroll into view failed", "post_id", postID, "error", err)
	}
	a.sleep(ctx, a.opts.Settle)

	data, err := c.Element.Screenshot(ctx, a.opts.Quality)
	if err != nil || len(data) == 0 {
		a.debug("element screenshot failed", "post_id", postID, "error", err)
		return "", false
	}
	path, err := a.write(ctx, postID, "jpg", data)
	if err != nil {
		return "", false
	}
	return path, true
}

func (a *Acquirer) write(ctx context.Context, postID, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(a.opts.Dir, 0o755); err != nil {
		a.debug("create asset dir failed", "error", err)
		return "", fmt.Errorf("create asset dir: %w", err)
	}
	path := filepath.Join(a.opts.Dir, fmt.Sprintf("%s.%s", postID, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.debug("write asset failed", "path", path, "error", err)
		return "", fmt.Errorf("write asset: %w", err)
	}

	if a.mirror != nil {
		if err := a.mirror.Mirror(ctx, path); err != nil && a.logger != nil {
			a.logger.Warn("mirror asset failed", "path", path, "error", err)
		}
	}
	return path, nil
}

func (a *Acquirer) debug(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
