package identity

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"TruthFilter/internal/domain"
)

const (
	defaultHashPrefixRunes = 50
	statusSegment          = "/status/"
	weiboHost              = "weibo.com/"
	minWeiboHrefLen        = 20
	minWeiboSegmentLen     = 5
)

// Evidence is the structural material found inside one post element.
type Evidence struct {
	// Links are raw href values in document order.
	Links []string
	// Attribute is a platform-native id attribute (Reddit).
	Attribute string
	Text      string
}

// Resolution is the outcome of identity resolution.
type Resolution struct {
	ID         string
	URL        string
	Structural bool
}

// Config tunes the resolver.
type Config struct {
	ProfileIDLengths []int
	HashPrefixRunes  int
}

// Resolver assigns stable, platform-prefixed identities to posts.
type Resolver struct {
	profileLengths map[int]bool
	hashPrefix     int
}

// NewResolver builds a resolver; zero config falls back to 10-digit profile ids.
func NewResolver(cfg Config) *Resolver {
	lengths := cfg.ProfileIDLengths
	if len(lengths) == 0 {
		lengths = []int{10}
	}
	r := &Resolver{profileLengths: map[int]bool{}, hashPrefix: cfg.HashPrefixRunes}
	for _, l := range lengths {
		r.profileLengths[l] = true
	}
	if r.hashPrefix <= 0 {
		r.hashPrefix = defaultHashPrefixRunes
	}
	return r
}

// Resolve returns the structural identity when one exists, else a content hash.
func (r *Resolver) Resolve(platform domain.Platform, ev Evidence) Resolution {
	var (
		id, link string
		ok       bool
	)
	switch platform {
	case domain.PlatformX:
		id, link, ok = r.xStatus(ev.Links)
	case domain.PlatformWeibo:
		id, link, ok = r.weiboStatus(ev.Links)
	case domain.PlatformReddit:
		id = strings.TrimSpace(ev.Attribute)
		ok = id != ""
	}

	if ok {
		return Resolution{ID: platform.Prefix() + id, URL: link, Structural: true}
	}
	return Resolution{ID: r.HashID(platform, ev.Text)}
}

// HashID derives a deterministic fallback identity from the text prefix.
func (r *Resolver) HashID(platform domain.Platform, text string) string {
	runes := []rune(text)
	if len(runes) > r.hashPrefix {
		runes = runes[:r.hashPrefix]
	}
	sum := md5.Sum([]byte(string(runes)))
	return platform.Prefix() + "hash_" + hex.EncodeToString(sum[:])
}

// EnsurePrefix adds the platform prefix if an identity lacks it.
func EnsurePrefix(platform domain.Platform, id string) string {
	if strings.HasPrefix(id, platform.Prefix()) {
		return id
	}
	return platform.Prefix() + id
}

// IsHash reports whether id is a content-hash fallback.
func IsHash(id string) bool {
	return strings.Contains(id, "_hash_")
}

func (r *Resolver) xStatus(links []string) (string, string, bool) {
	for _, href := range links {
		idx := strings.Index(href, statusSegment)
		if idx < 0 {
			continue
		}
		candidate := href[idx+len(statusSegment):]
		candidate = cutAny(candidate, "/?")
		if !isDigits(candidate) || r.profileLengths[len(candidate)] {
			continue
		}
		link := href
		if strings.HasPrefix(href, "/") {
			link = "https://x.com" + href
		}
		return candidate, link, true
	}
	return "", "", false
}

func (r *Resolver) weiboStatus(links []string) (string, string, bool) {
	for _, href := range links {
		if !strings.Contains(href, statusSegment) && !strings.Contains(href, weiboHost) {
			continue
		}
		if len(href) <= minWeiboHrefLen {
			continue
		}
		// A trailing slash leaves an empty last segment, which is skipped.
		path := cutAny(href, "?")
		candidate := path[strings.LastIndex(path, "/")+1:]
		if len(candidate) <= minWeiboSegmentLen {
			continue
		}
		if isDigits(candidate) && r.profileLengths[len(candidate)] {
			continue
		}
		return candidate, NormalizeWeiboLink(href), true
	}
	return "", "", false
}

// NormalizeWeiboLink turns protocol-relative and root-relative links absolute.
func NormalizeWeiboLink(href string) string {
	switch {
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return "https://weibo.com" + href
	default:
		return href
	}
}

func cutAny(s, chars string) string {
	if i := strings.IndexAny(s, chars); i >= 0 {
		return s[:i]
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
