package parser

import (
	"context"
	"time"

	"TruthFilter/internal/asset"
	"TruthFilter/internal/domain"
	"TruthFilter/internal/ports"
)

const detailPhotoTimeout = 5 * time.Second

// DetailLocator finds the primary image on a single post page.
type DetailLocator struct {
	weibo     asset.Filter
	weiboSels []string
}

// NewDetailLocator applies minWidth to Weibo detail images.
func NewDetailLocator(minWidth int) *DetailLocator {
	sels := make([]string, 0, len(WeiboImageSelectors))
	for _, s := range WeiboImageSelectors {
		sels = append(sels, "article "+s)
	}
	return &DetailLocator{weibo: asset.WeiboFilter(minWidth), weiboSels: sels}
}

func (l *DetailLocator) Locate(ctx context.Context, page ports.Page, platform domain.Platform) (asset.Candidate, bool) {
	switch platform {
	case domain.PlatformX:
		if err := page.WaitVisible(ctx, xPhotoSelector, detailPhotoTimeout); err != nil {
			return asset.Candidate{}, false
		}
		return xPhotoCandidate(ctx, page)
	case domain.PlatformWeibo:
		return l.weibo.Select(ctx, page, l.weiboSels, asset.UpgradeWeiboImage)
	default:
		return asset.Candidate{}, false
	}
}
