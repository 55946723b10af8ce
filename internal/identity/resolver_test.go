package identity

import (
	"strings"
	"testing"

	"TruthFilter/internal/domain"
)

func TestResolveX(t *testing.T) {
	t.Parallel()

	r := NewResolver(Config{})
	tests := []struct {
		name       string
		links      []string
		wantID     string
		wantURL    string
		structural bool
	}{
		{
			name:       "status link",
			links:      []string{"/someone", "/someone/status/1789012345678901234"},
			wantID:     "x_1789012345678901234",
			wantURL:    "https://x.com/someone/status/1789012345678901234",
			structural: true,
		},
		{
			name:       "analytics suffix stripped",
			links:      []string{"/a/status/1789012345678901234/analytics"},
			wantID:     "x_1789012345678901234",
			wantURL:    "https://x.com/a/status/1789012345678901234/analytics",
			structural: true,
		},
		{
			name:       "query stripped",
			links:      []string{"/a/status/123456789012?s=20"},
			wantID:     "x_123456789012",
			wantURL:    "https://x.com/a/status/123456789012?s=20",
			structural: true,
		},
		{
			name:  "non numeric falls back",
			links: []string{"/a/status/abc"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := r.Resolve(domain.PlatformX, Evidence{Links: tt.links, Text: "some post text"})
			if res.Structural != tt.structural {
				t.Fatalf("structural = %v, want %v", res.Structural, tt.structural)
			}
			if !tt.structural {
				if !strings.HasPrefix(res.ID, "x_hash_") {
					t.Fatalf("expected hash id, got %s", res.ID)
				}
				return
			}
			if res.ID != tt.wantID || res.URL != tt.wantURL {
				t.Fatalf("got (%s, %s), want (%s, %s)", res.ID, res.URL, tt.wantID, tt.wantURL)
			}
		})
	}
}

func TestResolveWeiboRejectsProfileIDs(t *testing.T) {
	t.Parallel()

	r := NewResolver(Config{ProfileIDLengths: []int{10}})

	res := r.Resolve(domain.PlatformWeibo, Evidence{
		Links: []string{"https://weibo.com/u/7378302827", "//weibo.com/7378302827/PbXyZ12ab?from=page"},
	})
	if res.ID != "wb_PbXyZ12ab" {
		t.Fatalf("unexpected id %s", res.ID)
	}
	if res.URL != "https://weibo.com/7378302827/PbXyZ12ab?from=page" {
		t.Fatalf("unexpected url %s", res.URL)
	}

	only := r.Resolve(domain.PlatformWeibo, Evidence{
		Links: []string{"https://weibo.com/u/7378302827"},
		Text:  "profile only",
	})
	if only.Structural {
		t.Fatalf("profile link must not become an identity: %s", only.ID)
	}
}

func TestResolveWeiboShortLinksIgnored(t *testing.T) {
	t.Parallel()

	r := NewResolver(Config{})
	res := r.Resolve(domain.PlatformWeibo, Evidence{Links: []string{"/status/abc"}, Text: "txt"})
	if res.Structural {
		t.Fatalf("short href must be ignored, got %s", res.ID)
	}
}

func TestResolveWeiboTrailingSlashSkipped(t *testing.T) {
	t.Parallel()

	r := NewResolver(Config{ProfileIDLengths: []int{10}})

	res := r.Resolve(domain.PlatformWeibo, Evidence{
		Links: []string{"https://weibo.com/7378302827/PbXyZ12ab/"},
		Text:  "trailing slash only",
	})
	if res.Structural {
		t.Fatalf("trailing slash link must not become an identity: %s", res.ID)
	}

	res = r.Resolve(domain.PlatformWeibo, Evidence{
		Links: []string{"https://weibo.com/7378302827/PbXyZ12ab/", "https://weibo.com/7378302827/QcYzA34cd"},
	})
	if res.ID != "wb_QcYzA34cd" {
		t.Fatalf("expected next link to win, got %s", res.ID)
	}
}

func TestResolveReddit(t *testing.T) {
	t.Parallel()

	r := NewResolver(Config{})
	res := r.Resolve(domain.PlatformReddit, Evidence{Attribute: "t3_1abcde"})
	if res.ID != "reddit_t3_1abcde" || !res.Structural {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestHashIDUsesPrefixOnly(t *testing.T) {
	t.Parallel()

	r := NewResolver(Config{HashPrefixRunes: 5})
	a := r.HashID(domain.PlatformWeibo, "hello world")
	b := r.HashID(domain.PlatformWeibo, "hello there")
	c := r.HashID(domain.PlatformWeibo, "howdy")

	if a != b {
		t.Fatalf("same prefix must give same id: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("different prefix must differ")
	}
	if !IsHash(a) {
		t.Fatalf("expected hash marker in %s", a)
	}
	if a != "wb_hash_5d41402abc4b2a76b9719d911017c592" {
		t.Fatalf("expected md5 of the prefix, got %s", a)
	}
}

func TestReconstructURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"x_123456789012":   "https://x.com/i/status/123456789012",
		"wb_PbXyZ12ab":     "https://weibo.com/detail/PbXyZ12ab",
		"reddit_t3_1abcde": "https://redd.it/1abcde",
	}
	for id, want := range tests {
		got, ok := ReconstructURL(id)
		if !ok || got != want {
			t.Fatalf("%s: got (%s, %v), want %s", id, got, ok, want)
		}
	}

	if _, ok := ReconstructURL("wb_hash_deadbeef"); ok {
		t.Fatalf("hash identities have no url")
	}
}

func TestEnsurePrefix(t *testing.T) {
	t.Parallel()

	if got := EnsurePrefix(domain.PlatformReddit, "t3_abc"); got != "reddit_t3_abc" {
		t.Fatalf("unexpected %s", got)
	}
	if got := EnsurePrefix(domain.PlatformX, "x_1"); got != "x_1" {
		t.Fatalf("unexpected %s", got)
	}
}
