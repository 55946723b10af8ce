package identity

import (
	"strings"

	"TruthFilter/internal/domain"
)

// ReconstructURL rebuilds a canonical post URL from a structural identity.
// Hash identities carry no locator and return false.
func ReconstructURL(postID string) (string, bool) {
	if IsHash(postID) {
		return "", false
	}
	platform := domain.PlatformOf(postID)
	raw := strings.TrimPrefix(postID, platform.Prefix())
	if raw == "" {
		return "", false
	}

	switch platform {
	case domain.PlatformX:
		return "https://x.com/i/status/" + raw, true
	case domain.PlatformWeibo:
		return "https://weibo.com/detail/" + raw, true
	case domain.PlatformReddit:
		short := strings.TrimPrefix(raw, "t3_")
		return "https://redd.it/" + short, true
	default:
		return "", false
	}
}
