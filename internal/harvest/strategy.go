package harvest

import (
	"context"
	"fmt"
	"time"

	"TruthFilter/internal/domain"
	"TruthFilter/internal/ports"
)

// Readiness describes how long to wait for the content marker.
type Readiness struct {
	Timeout time.Duration
	// Retries repeats the bounded wait before giving up.
	Retries int
	// WaitIndefinitely falls back to an unbounded wait (still bound by ctx).
	WaitIndefinitely bool
}

// Profile is the static, platform specific part of a session.
type Profile struct {
	Platform     domain.Platform
	StartURL     string
	Domains      []string
	Targets      []string
	Marker       string
	PostSelector string
	Readiness    Readiness
	// TargetTimeout bounds the marker wait after navigating to a target.
	TargetTimeout time.Duration
	Rounds        int
	ScrollMin     int
	ScrollMax     int
	MinTextLength int
}

// Extraction is what a strategy reads from one post element.
type Extraction struct {
	ID   string
	Text string
	URL  string
	// Body is the undecorated text used for the minimum content bar.
	Body string
	Skip bool
}

// Strategy implements one platform on top of the shared session lifecycle.
type Strategy interface {
	Profile() Profile
	// Prepare runs once on the acquired tab before readiness is checked.
	Prepare(ctx context.Context, page ports.Page) error
	// BeforeScrape runs on every target before posts are read.
	BeforeScrape(ctx context.Context, page ports.Page) error
	Extract(ctx context.Context, el ports.Element) (Extraction, error)
	// AcquireAsset stores the post image and returns its path, or "".
	AcquireAsset(ctx context.Context, page ports.Page, scope ports.Scope, postID string) string
}

// Registry keeps a mapping from platforms to their strategies.
type Registry struct {
	strategies map[domain.Platform]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[domain.Platform]Strategy{}}
}

// Register adds or replaces a strategy.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[domain.Platform]Strategy{}
	}
	r.strategies[strategy.Profile().Platform] = strategy
}

// Resolve returns a strategy by platform or an error if it is absent.
func (r *Registry) Resolve(platform domain.Platform) (Strategy, error) {
	if strategy, ok := r.strategies[platform]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("strategy %s is not registered", platform)
}
