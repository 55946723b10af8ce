package parser

import (
	"context"
	"fmt"
	"log/slog"

	"TruthFilter/internal/asset"
	"TruthFilter/internal/domain"
	"TruthFilter/internal/harvest"
	"TruthFilter/internal/identity"
	"TruthFilter/internal/ports"
)

const (
	weiboPostSelector = "article"
	weiboTextPrefix   = "[Weibo] "
	weiboMaxExpanders = 3
)

// WeiboImageSelectors are tried in order; the first one with matches wins.
var WeiboImageSelectors = []string{".woo-picture-main img", ".pic-box img", "img"}

const expandScript = `(() => {
	let clicked = 0;
	for (const el of document.querySelectorAll('span, a')) {
		if (clicked >= %d) break;
		if ((el.innerText || '').trim() === '展开') {
			try { el.click(); clicked++; } catch (e) {}
		}
	}
	return clicked;
})()`

const hideWebdriverScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined}); true`

// WeiboStrategy harvests a list of Weibo profile timelines.
type WeiboStrategy struct {
	profile  harvest.Profile
	resolver *identity.Resolver
	acquirer *asset.Acquirer
	filter   asset.Filter
	maxText  int
	logger   *slog.Logger
}

var _ harvest.Strategy = (*WeiboStrategy)(nil)

// NewWeiboStrategy wires identity, image filtering and acquisition for Weibo.
func NewWeiboStrategy(profile harvest.Profile, maxText int, filter asset.Filter, resolver *identity.Resolver, acquirer *asset.Acquirer, logger *slog.Logger) *WeiboStrategy {
	profile.Platform = domain.PlatformWeibo
	if profile.Marker == "" {
		profile.Marker = weiboPostSelector
	}
	if profile.PostSelector == "" {
		profile.PostSelector = weiboPostSelector
	}
	return &WeiboStrategy{
		profile:  profile,
		resolver: resolver,
		acquirer: acquirer,
		filter:   filter,
		maxText:  maxText,
		logger:   logger,
	}
}

func (w *WeiboStrategy) Profile() harvest.Profile { return w.profile }

func (w *WeiboStrategy) Prepare(ctx context.Context, page ports.Page) error {
	var ok bool
	return page.Evaluate(ctx, hideWebdriverScript, &ok)
}

// BeforeScrape opens collapsed long posts.
func (w *WeiboStrategy) BeforeScrape(ctx context.Context, page ports.Page) error {
	var clicked int
	if err := page.Evaluate(ctx, fmt.Sprintf(expandScript, weiboMaxExpanders), &clicked); err != nil {
		return err
	}
	if clicked > 0 && w.logger != nil {
		w.logger.Debug("expanded posts", "count", clicked)
	}
	return nil
}

func (w *WeiboStrategy) Extract(ctx context.Context, el ports.Element) (harvest.Extraction, error) {
	outer, err := el.OuterHTML(ctx)
	if err != nil {
		return harvest.Extraction{}, err
	}
	doc, err := parseFragment(outer)
	if err != nil {
		return harvest.Extraction{}, err
	}

	raw := visibleText(doc.Find("body").Children().First())
	res := w.resolver.Resolve(domain.PlatformWeibo, identity.Evidence{
		Links: hrefs(doc.Find("a")),
		Text:  raw,
	})
	return harvest.Extraction{
		ID:   res.ID,
		Text: weiboTextPrefix + truncateRunes(raw, w.maxText),
		URL:  res.URL,
		Body: raw,
	}, nil
}

func (w *WeiboStrategy) AcquireAsset(ctx context.Context, page ports.Page, scope ports.Scope, postID string) string {
	if w.acquirer == nil {
		return ""
	}
	candidate, ok := w.filter.Select(ctx, scope, WeiboImageSelectors, asset.UpgradeWeiboImage)
	if !ok {
		return ""
	}
	path, _ := w.acquirer.Acquire(ctx, page, candidate, postID)
	return path
}
