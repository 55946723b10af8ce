package parser

import (
	"log/slog"

	"TruthFilter/internal/asset"
	"TruthFilter/internal/config"
	"TruthFilter/internal/domain"
	"TruthFilter/internal/harvest"
	"TruthFilter/internal/identity"
)

// ProfileFromConfig maps a platform policy onto a session profile.
func ProfileFromConfig(p config.PlatformConfig) harvest.Profile {
	platform, _ := domain.ParsePlatform(p.Name)
	return harvest.Profile{
		Platform: platform,
		StartURL: p.StartURL,
		Domains:  p.Domains,
		Targets:  p.Targets,
		Readiness: harvest.Readiness{
			Timeout:          p.ReadyTimeout,
			Retries:          p.Retries(),
			WaitIndefinitely: p.IndefiniteWait(),
		},
		TargetTimeout: p.TargetTimeout,
		Rounds:        p.Rounds,
		ScrollMin:     p.ScrollMin,
		ScrollMax:     p.ScrollMax,
		MinTextLength: p.MinTextLength,
	}
}

// BuildRegistry registers a strategy for every configured platform.
func BuildRegistry(cfg config.Config, resolver *identity.Resolver, acquirer *asset.Acquirer, log *slog.Logger) *harvest.Registry {
	reg := harvest.NewRegistry()
	for _, p := range cfg.Platforms {
		profile := ProfileFromConfig(p)
		switch profile.Platform {
		case domain.PlatformX:
			reg.Register(NewXStrategy(profile, p.MaxTextLength, resolver, acquirer, log))
		case domain.PlatformWeibo:
			filter := asset.WeiboFilter(cfg.Harvest.ImageMinWidth)
			reg.Register(NewWeiboStrategy(profile, p.MaxTextLength, filter, resolver, acquirer, log))
		case domain.PlatformReddit:
			reg.Register(NewRedditStrategy(profile, resolver))
		default:
			if log != nil {
				log.Warn("unknown platform in config", "name", p.Name)
			}
		}
	}
	return reg
}
