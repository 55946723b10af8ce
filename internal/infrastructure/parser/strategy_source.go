package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"TruthFilter/internal/config"
	"TruthFilter/internal/domain"
	"TruthFilter/internal/harvest"
	"TruthFilter/internal/ports"
)

// StrategySource implements PostSource via registered platform strategies.
type StrategySource struct {
	registry  *harvest.Registry
	browser   ports.Browser
	platforms []domain.Platform
	pauseMin  time.Duration
	pauseMax  time.Duration
	logger    *slog.Logger
}

var _ ports.PostSource = (*StrategySource)(nil)

// NewStrategySource wires the registry with the enabled config platforms.
func NewStrategySource(reg *harvest.Registry, browser ports.Browser, cfg config.Config, log *slog.Logger) *StrategySource {
	var enabled []domain.Platform
	for _, p := range cfg.Platforms {
		if !p.Enabled {
			continue
		}
		if platform, ok := domain.ParsePlatform(p.Name); ok {
			enabled = append(enabled, platform)
		}
	}
	return &StrategySource{
		registry:  reg,
		browser:   browser,
		platforms: enabled,
		pauseMin:  cfg.Harvest.PauseMin,
		pauseMax:  cfg.Harvest.PauseMax,
		logger:    log,
	}
}

// Platforms returns the enabled platforms in harvest order.
func (s *StrategySource) Platforms() []domain.Platform {
	return s.platforms
}

// Harvest runs one session for platform.
func (s *StrategySource) Harvest(ctx context.Context, platform domain.Platform, limit int) ([]domain.HarvestedPost, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("strategy registry is not configured")
	}
	strategy, err := s.registry.Resolve(platform)
	if err != nil {
		return nil, fmt.Errorf("platform %s: %w", platform, err)
	}

	s.debug("harvest platform", "platform", platform, "limit", limit)
	log := s.logger
	if log != nil {
		log = log.With("platform", string(platform))
	}
	session := harvest.NewSession(s.browser, strategy, harvest.NewPacer(s.pauseMin, s.pauseMax), log)
	posts, err := session.Run(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("harvest %s: %w", platform, err)
	}
	s.debug("platform produced posts", "platform", platform, "count", len(posts))
	return posts, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
