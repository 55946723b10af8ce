package asset

import (
	"context"
	"regexp"
	"strings"

	"TruthFilter/internal/ports"
)

var nameParamExpr = regexp.MustCompile(`name=\w+`)

// WeiboUpgradeSegments are CDN size segments replaced with the full-size one.
var WeiboUpgradeSegments = []string{"/mw690/", "/orj360/", "/thumbnail/", "/bmiddle/", "/thumb180/", "/small/", "/dr/"}

// Candidate is an image element chosen for acquisition.
type Candidate struct {
	Element ports.Element
	// URL is the upgraded full-resolution source, empty when only Plan B applies.
	URL string
	Ext string
}

// Filter rejects avatars, icons and other decoration.
type Filter struct {
	Denylist      []string
	RejectFormats []string
	RequireHosts  []string
	MinWidth      int
}

// WeiboFilter returns the default candidate filter for Weibo images.
func WeiboFilter(minWidth int) Filter {
	return Filter{
		Denylist:      []string{"tvax", "tva", "crop", "face", "icon", "avatar", "blank", "us_service", "empty", "skin"},
		RejectFormats: []string{".png", ".svg"},
		RequireHosts:  []string{"sinaimg.cn", "weibocdn"},
		MinWidth:      minWidth,
	}
}

// AllowURL applies denylist, format and host rules.
func (f Filter) AllowURL(src string) bool {
	if src == "" {
		return false
	}
	lower := strings.ToLower(src)
	for _, bad := range f.Denylist {
		if strings.Contains(lower, bad) {
			return false
		}
	}
	path := lower
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range f.RejectFormats {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	if len(f.RequireHosts) == 0 {
		return true
	}
	for _, host := range f.RequireHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// AllowWidth rejects images known to be too small; unknown width passes.
func (f Filter) AllowWidth(width int) bool {
	return !(width > 0 && width < f.MinWidth)
}

// Select walks selectors in order and returns the first acceptable image.
// Selectors are tried one by one; the first selector that yields elements wins.
func (f Filter) Select(ctx context.Context, scope ports.Scope, selectors []string, upgrade func(string) (string, string)) (Candidate, bool) {
	for _, sel := range selectors {
		elements, err := scope.QueryAll(ctx, sel)
		if err != nil || len(elements) == 0 {
			continue
		}
		for _, el := range elements {
			src, ok, err := el.Attribute(ctx, "src")
			if err != nil || !ok {
				continue
			}
			src = NormalizeSource(src)
			if !f.AllowURL(src) {
				continue
			}
			if width, err := el.NaturalWidth(ctx); err == nil && !f.AllowWidth(width) {
				continue
			}
			url, ext := upgrade(src)
			return Candidate{Element: el, URL: url, Ext: ext}, true
		}
		return Candidate{}, false
	}
	return Candidate{}, false
}

// NormalizeSource turns protocol-relative sources into https.
func NormalizeSource(src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

// UpgradeXImage requests the original size from the X media CDN.
func UpgradeXImage(src string) (string, string) {
	ext := "jpg"
	if strings.Contains(src, "format=png") {
		ext = "png"
	}
	if nameParamExpr.MatchString(src) {
		return nameParamExpr.ReplaceAllString(src, "name=orig"), ext
	}
	return src, ext
}

// UpgradeWeiboImage swaps thumbnail size segments for the full-size one.
func UpgradeWeiboImage(src string) (string, string) {
	for _, seg := range WeiboUpgradeSegments {
		src = strings.ReplaceAll(src, seg, "/large/")
	}
	return src, "jpg"
}
