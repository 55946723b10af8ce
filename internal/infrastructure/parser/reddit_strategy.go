package parser

import (
	"context"
	"fmt"
	"strings"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/harvest"
	"TruthFilter/internal/identity"
	"TruthFilter/internal/ports"
)

const (
	redditPostSelector = "shreddit-post"
	redditBaseURL      = "https://www.reddit.com"
)

// RedditStrategy reads the shreddit-post custom elements of the front page.
// Everything needed lives in element attributes, so no HTML parsing is done.
type RedditStrategy struct {
	profile  harvest.Profile
	resolver *identity.Resolver
}

var _ harvest.Strategy = (*RedditStrategy)(nil)

func NewRedditStrategy(profile harvest.Profile, resolver *identity.Resolver) *RedditStrategy {
	profile.Platform = domain.PlatformReddit
	if profile.Marker == "" {
		profile.Marker = redditPostSelector
	}
	if profile.PostSelector == "" {
		profile.PostSelector = redditPostSelector
	}
	return &RedditStrategy{profile: profile, resolver: resolver}
}

func (r *RedditStrategy) Profile() harvest.Profile { return r.profile }

func (r *RedditStrategy) Prepare(ctx context.Context, page ports.Page) error {
	return page.Reload(ctx)
}

func (r *RedditStrategy) BeforeScrape(context.Context, ports.Page) error { return nil }

func (r *RedditStrategy) Extract(ctx context.Context, el ports.Element) (harvest.Extraction, error) {
	promoted, _, err := el.Attribute(ctx, "promoted")
	if err != nil {
		return harvest.Extraction{}, err
	}
	if strings.EqualFold(promoted, "true") {
		return harvest.Extraction{Skip: true}, nil
	}

	id, _, err := el.Attribute(ctx, "id")
	if err != nil {
		return harvest.Extraction{}, err
	}
	title, _, err := el.Attribute(ctx, "post-title")
	if err != nil {
		return harvest.Extraction{}, err
	}
	permalink, _, err := el.Attribute(ctx, "permalink")
	if err != nil {
		return harvest.Extraction{}, err
	}

	title = strings.TrimSpace(title)
	link := redditBaseURL + permalink
	res := r.resolver.Resolve(domain.PlatformReddit, identity.Evidence{Attribute: id, Text: title})
	return harvest.Extraction{
		ID:   res.ID,
		Text: fmt.Sprintf("[Reddit] %s\n(Link: %s)", title, link),
		URL:  link,
		Body: title,
	}, nil
}

// AcquireAsset is a no-op: Reddit posts are classified from their titles.
func (r *RedditStrategy) AcquireAsset(context.Context, ports.Page, ports.Scope, string) string {
	return ""
}
