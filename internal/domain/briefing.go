package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

const keyDateLayout = "2006-01-02"

// Briefing is a cached synthesized report keyed by its filter.
type Briefing struct {
	Key         string
	Content     string
	ContextHash string
	CreatedAt   time.Time
}

// BriefingKey derives a deterministic cache key from the filter, independent
// of the order platforms and verdicts were selected in.
func BriefingKey(f RecordFilter) string {
	platforms := make([]string, 0, len(f.Platforms))
	for _, p := range f.Platforms {
		platforms = append(platforms, string(p))
	}
	verdicts := make([]string, 0, len(f.Verdicts))
	for _, v := range f.Verdicts {
		verdicts = append(verdicts, string(v))
	}
	sort.Strings(platforms)
	sort.Strings(verdicts)

	search := "nosearch"
	if f.Search != "" {
		search = shortMD5(f.Search)
	}

	return fmt.Sprintf("report_%s_%s_%s_%s_%s",
		formatKeyDate(f.From),
		formatKeyDate(f.To),
		shortMD5(strings.Join(platforms, "")),
		shortMD5(strings.Join(verdicts, "")),
		search,
	)
}

// ContextHash fingerprints the set of records a briefing was generated from.
func ContextHash(records []Record) string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.PostID)
	}
	sort.Strings(ids)
	sum := md5.Sum([]byte(strings.Join(ids, "")))
	return hex.EncodeToString(sum[:])
}

func shortMD5(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])[:6]
}

func formatKeyDate(t time.Time) string {
	if t.IsZero() {
		return "any"
	}
	return t.Format(keyDateLayout)
}
