package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/logging"
	"TruthFilter/internal/ports"
)

// State is a session lifecycle stage.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateTabAcquired
	StateContentReady
	StateScraping
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateTabAcquired:
		return "tab_acquired"
	case StateContentReady:
		return "content_ready"
	case StateScraping:
		return "scraping"
	case StateDone:
		return "done"
	default:
		return "failed"
	}
}

// ErrNotReady means the content marker never became visible.
var ErrNotReady = errors.New("content marker not visible")

// Session drives one platform through connect, tab, readiness and scraping.
// Detaching never closes the user's browser.
type Session struct {
	browser  ports.Browser
	strategy Strategy
	pacer    *Pacer
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// NewSession wires a strategy to a browser.
func NewSession(browser ports.Browser, strategy Strategy, pacer *Pacer, logger *slog.Logger) *Session {
	if pacer == nil {
		pacer = NewPacer(0, 0)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{browser: browser, strategy: strategy, pacer: pacer, logger: logger}
}

// State reports the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.debug("session state", "state", st.String())
}

// Run harvests at most limit posts per target (or in total without targets).
// Session-fatal conditions return an empty batch and an error.
func (s *Session) Run(ctx context.Context, limit int) ([]domain.HarvestedPost, error) {
	profile := s.strategy.Profile()

	s.setState(StateConnecting)
	sess, err := s.browser.Attach(ctx)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("attach browser: %w", err)
	}
	defer func() {
		if err := sess.Detach(); err != nil {
			s.debug("detach failed", "error", err)
		}
	}()

	page, err := sess.AcquireTab(ctx, profile.Domains, profile.StartURL)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("acquire tab: %w", err)
	}
	s.setState(StateTabAcquired)

	if err := s.strategy.Prepare(ctx, page); err != nil {
		s.debug("prepare failed", "error", err)
	}

	if err := s.waitReady(ctx, page, profile); err != nil {
		s.setState(StateFailed)
		return nil, err
	}
	s.setState(StateContentReady)

	targets := profile.Targets
	if len(targets) == 0 {
		targets = []string{""}
	}

	seen := map[string]bool{}
	var posts []domain.HarvestedPost
	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		if target != "" && !s.visit(ctx, page, target, profile) {
			continue
		}
		s.setState(StateScraping)
		batch := s.scrapeTarget(ctx, page, profile, limit, seen)
		posts = append(posts, batch...)
	}

	s.setState(StateDone)
	s.logger.Info("harvest complete", "platform", profile.Platform, "posts", len(posts))
	return posts, nil
}

func (s *Session) waitReady(ctx context.Context, page ports.Page, profile Profile) error {
	r := profile.Readiness
	var err error
	for attempt := 0; attempt <= r.Retries; attempt++ {
		if err = page.WaitVisible(ctx, profile.Marker, r.Timeout); err == nil {
			return nil
		}
		s.logger.Warn("waiting for content", "platform", profile.Platform, "attempt", attempt+1, "error", err)
	}
	if r.WaitIndefinitely && ctx.Err() == nil {
		if err = page.WaitVisible(ctx, profile.Marker, 0); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%s: %w: %v", profile.Platform, ErrNotReady, err)
}

func (s *Session) visit(ctx context.Context, page ports.Page, target string, profile Profile) bool {
	current, err := page.URL(ctx)
	if err == nil && current == target {
		return true
	}
	s.debug("visiting target", "url", target)
	if err := page.Navigate(ctx, target); err != nil {
		s.logger.Warn("navigate failed", "url", target, "error", err)
		return false
	}
	s.pacer.Pause(ctx)
	if err := page.ScrollBy(ctx, s.pacer.Scroll(profile.ScrollMin, profile.ScrollMax)); err != nil {
		s.debug("scroll failed", "error", err)
	}
	if err := page.WaitVisible(ctx, profile.Marker, profile.TargetTimeout); err != nil {
		s.logger.Warn("target has no content, skipping", "url", target, "error", err)
		return false
	}
	return true
}

func (s *Session) scrapeTarget(ctx context.Context, page ports.Page, profile Profile, limit int, seen map[string]bool) []domain.HarvestedPost {
	if err := s.strategy.BeforeScrape(ctx, page); err != nil {
		s.debug("before scrape failed", "error", err)
	}

	rounds := profile.Rounds
	if rounds <= 0 {
		rounds = 1
	}

	var batch []domain.HarvestedPost
	for round := 0; round < rounds && len(batch) < limit; round++ {
		elements, err := page.QueryAll(ctx, profile.PostSelector)
		if err != nil {
			s.debug("query posts failed", "round", round+1, "error", err)
		}
		s.debug("scrape round", "round", round+1, "elements", len(elements))

		for _, el := range elements {
			if len(batch) >= limit || ctx.Err() != nil {
				break
			}
			if post, ok := s.collect(ctx, page, el, profile, seen); ok {
				batch = append(batch, post)
			}
		}

		if len(batch) >= limit || round == rounds-1 {
			break
		}
		if err := page.ScrollBy(ctx, s.pacer.Scroll(profile.ScrollMin, profile.ScrollMax)); err != nil {
			s.debug("scroll failed", "error", err)
		}
		s.pacer.Pause(ctx)
	}
	return batch
}

// collect turns one element into a post. Any failure, including a panic in
// the DOM layer, skips only this element.
func (s *Session) collect(ctx context.Context, page ports.Page, el ports.Element, profile Profile, seen map[string]bool) (post domain.HarvestedPost, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.debug("post extraction panicked", "panic", r)
			post, ok = domain.HarvestedPost{}, false
		}
	}()

	ex, err := s.strategy.Extract(ctx, el)
	if err != nil {
		s.debug("post extraction failed", "error", err)
		return domain.HarvestedPost{}, false
	}
	if ex.Skip || ex.ID == "" || seen[ex.ID] {
		return domain.HarvestedPost{}, false
	}

	assetPath := s.strategy.AcquireAsset(ctx, page, el, ex.ID)

	body := ex.Body
	if body == "" {
		body = ex.Text
	}
	if utf8.RuneCountInString(body) < profile.MinTextLength && assetPath == "" {
		return domain.HarvestedPost{}, false
	}

	seen[ex.ID] = true
	return domain.HarvestedPost{ID: ex.ID, Text: ex.Text, URL: ex.URL, AssetPath: assetPath}, true
}

func (s *Session) debug(msg string, args ...interface{}) {
	s.logger.Debug(msg, args...)
}
