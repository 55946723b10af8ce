package domain

import (
	"errors"
	"strings"
	"time"
)

// Platform identifies a harvested social platform by its identity prefix.
type Platform string

const (
	PlatformX       Platform = "x"
	PlatformWeibo   Platform = "wb"
	PlatformReddit  Platform = "reddit"
	PlatformUnknown Platform = "unknown"
)

// Platforms lists supported platforms in harvest order.
var Platforms = []Platform{PlatformX, PlatformWeibo, PlatformReddit}

// Prefix returns the identity prefix, e.g. "x_".
func (p Platform) Prefix() string {
	return string(p) + "_"
}

// ParsePlatform accepts the identity prefix or a friendly alias.
func ParsePlatform(value string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "x", "twitter":
		return PlatformX, true
	case "wb", "weibo":
		return PlatformWeibo, true
	case "reddit":
		return PlatformReddit, true
	default:
		return PlatformUnknown, false
	}
}

// PlatformOf derives the platform from a post identity prefix.
func PlatformOf(postID string) Platform {
	for _, p := range Platforms {
		if strings.HasPrefix(postID, p.Prefix()) {
			return p
		}
	}
	return PlatformUnknown
}

// ErrRecordNotFound is returned by stores when a post id is absent.
var ErrRecordNotFound = errors.New("record not found")

// HarvestedPost is a single post extracted from a live page.
type HarvestedPost struct {
	ID        string
	Text      string
	URL       string
	AssetPath string
}

// Record is a classified post as persisted in the result store.
type Record struct {
	PostID        string
	OriginalText  string
	Verdict       Verdict
	ManualVerdict *Verdict
	Summary       string
	ProcessedAt   time.Time
	URL           string
	ImagePath     string
}

// EffectiveVerdict prefers the human override.
func (r Record) EffectiveVerdict() Verdict {
	if r.ManualVerdict != nil && *r.ManualVerdict != "" {
		return *r.ManualVerdict
	}
	return r.Verdict
}

// Platform derives the record platform from its identity.
func (r Record) Platform() Platform {
	return PlatformOf(r.PostID)
}

// RecordFilter narrows record queries. Zero values disable a predicate.
type RecordFilter struct {
	From      time.Time
	To        time.Time
	Platforms []Platform
	Verdicts  []Verdict
	Search    string
	Limit     int

	// Maintenance predicates.
	ExcludeNoise   bool
	SummaryMarkers []string
	MissingURL     bool
	MissingImage   bool
}
