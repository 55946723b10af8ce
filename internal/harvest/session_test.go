package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/ports"
	"TruthFilter/internal/ports/portstest"
)

type fakeStrategy struct {
	profile  Profile
	prepared int
	before   int
}

func (f *fakeStrategy) Profile() Profile { return f.profile }

func (f *fakeStrategy) Prepare(context.Context, ports.Page) error {
	f.prepared++
	return nil
}

func (f *fakeStrategy) BeforeScrape(context.Context, ports.Page) error {
	f.before++
	return nil
}

func (f *fakeStrategy) Extract(ctx context.Context, el ports.Element) (Extraction, error) {
	id, _, _ := el.Attribute(ctx, "id")
	if id == "" {
		return Extraction{}, errors.New("no id")
	}
	text, _, _ := el.Attribute(ctx, "text")
	promoted, _, _ := el.Attribute(ctx, "promoted")
	return Extraction{ID: "x_" + id, Text: text, Skip: promoted == "true"}, nil
}

func (f *fakeStrategy) AcquireAsset(ctx context.Context, _ ports.Page, scope ports.Scope, _ string) string {
	el, ok := scope.(ports.Element)
	if !ok {
		return ""
	}
	asset, _, _ := el.Attribute(ctx, "asset")
	return asset
}

func post(id, text string) *portstest.Element {
	return &portstest.Element{Attrs: map[string]string{"id": id, "text": text}}
}

func noSleepPacer() *Pacer {
	p := NewPacer(time.Second, 2*time.Second)
	p.Sleep = func(context.Context, time.Duration) {}
	return p
}

func baseProfile() Profile {
	return Profile{
		Platform:      domain.PlatformX,
		StartURL:      "https://x.com/home",
		Domains:       []string{"x.com"},
		Marker:        "article",
		PostSelector:  "article",
		Readiness:     Readiness{Timeout: 15 * time.Second},
		Rounds:        3,
		ScrollMin:     800,
		ScrollMax:     1500,
		MinTextLength: 21,
	}
}

func TestSessionAttachFailure(t *testing.T) {
	t.Parallel()

	browser := &portstest.Browser{AttachErr: errors.New("connection refused")}
	s := NewSession(browser, &fakeStrategy{profile: baseProfile()}, noSleepPacer(), nil)

	posts, err := s.Run(context.Background(), 5)
	if err == nil || len(posts) != 0 {
		t.Fatalf("expected empty batch with error, got %d posts, err=%v", len(posts), err)
	}
	if s.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", s.State())
	}
}

func TestSessionReadinessTimeoutAborts(t *testing.T) {
	t.Parallel()

	page := &portstest.Page{WaitErr: map[string][]error{"article": {context.DeadlineExceeded}}}
	browser := &portstest.Browser{Page: page}
	s := NewSession(browser, &fakeStrategy{profile: baseProfile()}, noSleepPacer(), nil)

	_, err := s.Run(context.Background(), 5)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if browser.Detached != 1 {
		t.Fatalf("session must detach on failure")
	}
}

func TestSessionRetriesThenWaitsIndefinitely(t *testing.T) {
	t.Parallel()

	profile := baseProfile()
	profile.Readiness = Readiness{Timeout: 8 * time.Second, WaitIndefinitely: true}
	page := &portstest.Page{
		WaitErr:  map[string][]error{"article": {context.DeadlineExceeded}},
		Children: map[string][]*portstest.Element{"article": {post("1", "a long enough post about something real")}},
	}
	s := NewSession(&portstest.Browser{Page: page}, &fakeStrategy{profile: profile}, noSleepPacer(), nil)

	posts, err := s.Run(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if len(page.Waits) != 2 || page.Waits[1] != 0 {
		t.Fatalf("expected bounded then unbounded wait, got %v", page.Waits)
	}
}

func TestSessionScrapeRounds(t *testing.T) {
	t.Parallel()

	long := "this text is clearly longer than twenty characters"
	broken := &portstest.Element{PanicOnGet: true}
	withImage := &portstest.Element{Attrs: map[string]string{"id": "4", "text": "pic", "asset": "assets/images/x_4.jpg"}}
	promoted := &portstest.Element{Attrs: map[string]string{"id": "9", "text": long, "promoted": "true"}}

	page := &portstest.Page{Rounds: map[string][][]*portstest.Element{
		"article": {
			{post("1", long), broken, post("2", "short"), promoted},
			{post("1", long), post("3", long), withImage},
			{post("5", long), post("6", long)},
		},
	}}
	strategy := &fakeStrategy{profile: baseProfile()}
	browser := &portstest.Browser{Page: page}
	s := NewSession(browser, strategy, noSleepPacer(), nil)

	posts, err := s.Run(context.Background(), 4)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"x_1", "x_3", "x_4", "x_5"}
	if len(posts) != len(want) {
		t.Fatalf("got %d posts, want %d: %+v", len(posts), len(want), posts)
	}
	for i, p := range posts {
		if p.ID != want[i] {
			t.Fatalf("post %d = %s, want %s", i, p.ID, want[i])
		}
	}
	if posts[2].AssetPath == "" {
		t.Fatalf("short post with image must be kept with its asset")
	}
	if len(page.Scrolls) != 2 {
		t.Fatalf("expected 2 scrolls between 3 rounds, got %d", len(page.Scrolls))
	}
	for _, dy := range page.Scrolls {
		if dy < 800 || dy > 1500 {
			t.Fatalf("scroll distance %d out of range", dy)
		}
	}
	if strategy.prepared != 1 || browser.Detached != 1 || s.State() != StateDone {
		t.Fatalf("unexpected lifecycle: prepared=%d detached=%d state=%s", strategy.prepared, browser.Detached, s.State())
	}
	if browser.StartURL != "https://x.com/home" {
		t.Fatalf("unexpected start url %s", browser.StartURL)
	}
}

func TestSessionTargetsWithPerTargetLimit(t *testing.T) {
	t.Parallel()

	profile := baseProfile()
	profile.Platform = domain.PlatformWeibo
	profile.Targets = []string{"https://weibo.com/u/1", "https://weibo.com/u/2", "https://weibo.com/u/3"}
	profile.Rounds = 1
	profile.MinTextLength = 10
	profile.TargetTimeout = 8 * time.Second

	long := "weibo post body text"
	page := &portstest.Page{
		Location: "https://weibo.com/u/1",
		WaitErr:  map[string][]error{"article": {nil, context.DeadlineExceeded}},
		Rounds: map[string][][]*portstest.Element{
			"article": {
				{post("a1", long), post("a2", long)},
				{post("c1", long), post("c2", long)},
			},
		},
	}
	strategy := &fakeStrategy{profile: profile}
	s := NewSession(&portstest.Browser{Page: page}, strategy, noSleepPacer(), nil)

	posts, err := s.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "x_a1" || posts[1].ID != "x_c1" {
		t.Fatalf("unexpected posts %+v", posts)
	}
	if len(page.Navigated) != 2 {
		t.Fatalf("expected navigation to the two other targets, got %v", page.Navigated)
	}
	if strategy.before != 2 {
		t.Fatalf("expected expanders on two reachable targets, got %d", strategy.before)
	}
}

func TestPacerBounds(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	p := NewPacer(2*time.Second, 4*time.Second)
	p.Sleep = func(_ context.Context, d time.Duration) { slept = append(slept, d) }
	for i := 0; i < 50; i++ {
		p.Pause(context.Background())
	}
	for _, d := range slept {
		if d < 2*time.Second || d > 4*time.Second {
			t.Fatalf("pause %v out of bounds", d)
		}
	}
	if got := p.Scroll(1000, 1000); got != 1000 {
		t.Fatalf("fixed scroll must be exact, got %d", got)
	}
}
