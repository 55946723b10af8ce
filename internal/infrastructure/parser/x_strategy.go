package parser

import (
	"context"
	"log/slog"

	"TruthFilter/internal/asset"
	"TruthFilter/internal/domain"
	"TruthFilter/internal/harvest"
	"TruthFilter/internal/identity"
	"TruthFilter/internal/ports"
)

const (
	xPostSelector  = `[data-testid="tweet"]`
	xPhotoSelector = `[data-testid="tweetPhoto"] img`
)

// XStrategy harvests the X home timeline.
type XStrategy struct {
	profile  harvest.Profile
	resolver *identity.Resolver
	acquirer *asset.Acquirer
	maxText  int
	logger   *slog.Logger
}

var _ harvest.Strategy = (*XStrategy)(nil)

// NewXStrategy wires identity and asset handling for X posts.
func NewXStrategy(profile harvest.Profile, maxText int, resolver *identity.Resolver, acquirer *asset.Acquirer, logger *slog.Logger) *XStrategy {
	profile.Platform = domain.PlatformX
	if profile.Marker == "" {
		profile.Marker = xPostSelector
	}
	if profile.PostSelector == "" {
		profile.PostSelector = xPostSelector
	}
	return &XStrategy{profile: profile, resolver: resolver, acquirer: acquirer, maxText: maxText, logger: logger}
}

func (x *XStrategy) Profile() harvest.Profile { return x.profile }

// Prepare reloads the timeline to surface fresh posts.
func (x *XStrategy) Prepare(ctx context.Context, page ports.Page) error {
	return page.Reload(ctx)
}

func (x *XStrategy) BeforeScrape(context.Context, ports.Page) error { return nil }

// Extract reads the status link and the flattened post text.
func (x *XStrategy) Extract(ctx context.Context, el ports.Element) (harvest.Extraction, error) {
	outer, err := el.OuterHTML(ctx)
	if err != nil {
		return harvest.Extraction{}, err
	}
	doc, err := parseFragment(outer)
	if err != nil {
		return harvest.Extraction{}, err
	}

	text := visibleText(doc.Find("body").Children().First())
	res := x.resolver.Resolve(domain.PlatformX, identity.Evidence{
		Links: hrefs(doc.Find(`a[href*="/status/"]`)),
		Text:  text,
	})
	return harvest.Extraction{
		ID:   res.ID,
		Text: truncateRunes(text, x.maxText),
		URL:  res.URL,
		Body: text,
	}, nil
}

// AcquireAsset downloads the first photo at original resolution.
func (x *XStrategy) AcquireAsset(ctx context.Context, page ports.Page, scope ports.Scope, postID string) string {
	if x.acquirer == nil {
		return ""
	}
	c, ok := xPhotoCandidate(ctx, scope)
	if !ok {
		return ""
	}
	path, _ := x.acquirer.Acquire(ctx, page, c, postID)
	return path
}

func xPhotoCandidate(ctx context.Context, scope ports.Scope) (asset.Candidate, bool) {
	photos, err := scope.QueryAll(ctx, xPhotoSelector)
	if err != nil || len(photos) == 0 {
		return asset.Candidate{}, false
	}
	src, ok, err := photos[0].Attribute(ctx, "src")
	if err != nil || !ok || src == "" {
		return asset.Candidate{}, false
	}
	url, ext := asset.UpgradeXImage(asset.NormalizeSource(src))
	return asset.Candidate{Element: photos[0], URL: url, Ext: ext}, true
}
