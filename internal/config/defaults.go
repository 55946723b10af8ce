package config

import (
	"path/filepath"
	"time"
)

func mergeConfig(base, override Config) Config {
	base.Database.DSN = pickString(base.Database.DSN, override.Database.DSN)
	base.Database.MaxOpenConns = pickInt(base.Database.MaxOpenConns, override.Database.MaxOpenConns)
	base.Database.MaxIdleConns = pickInt(base.Database.MaxIdleConns, override.Database.MaxIdleConns)
	base.Database.ConnMaxLifetime = pickDuration(base.Database.ConnMaxLifetime, override.Database.ConnMaxLifetime)

	base.Browser.Endpoint = pickString(base.Browser.Endpoint, override.Browser.Endpoint)

	base.LLM.Provider = pickString(base.LLM.Provider, override.LLM.Provider)
	base.LLM.APIKey = pickString(base.LLM.APIKey, override.LLM.APIKey)
	base.LLM.Endpoint = pickString(base.LLM.Endpoint, override.LLM.Endpoint)
	base.LLM.FastModel = pickString(base.LLM.FastModel, override.LLM.FastModel)
	base.LLM.SmartModel = pickString(base.LLM.SmartModel, override.LLM.SmartModel)
	if override.LLM.MaxTokens > 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}
	base.LLM.Timeout = pickDuration(base.LLM.Timeout, override.LLM.Timeout)

	base.Pipeline.Limit = pickInt(base.Pipeline.Limit, override.Pipeline.Limit)
	base.Pipeline.CronLimit = pickInt(base.Pipeline.CronLimit, override.Pipeline.CronLimit)
	base.Pipeline.PostPause = pickDuration(base.Pipeline.PostPause, override.Pipeline.PostPause)
	base.Pipeline.LeaseTTL = pickDuration(base.Pipeline.LeaseTTL, override.Pipeline.LeaseTTL)

	h, o := &base.Harvest, override.Harvest
	h.AssetsDir = pickString(h.AssetsDir, o.AssetsDir)
	h.MinImageBytes = pickInt(h.MinImageBytes, o.MinImageBytes)
	h.ScreenshotQuality = pickInt(h.ScreenshotQuality, o.ScreenshotQuality)
	h.BackfillQuality = pickInt(h.BackfillQuality, o.BackfillQuality)
	h.ImageMinWidth = pickInt(h.ImageMinWidth, o.ImageMinWidth)
	h.BackfillMinWidth = pickInt(h.BackfillMinWidth, o.BackfillMinWidth)
	h.ScreenshotSettle = pickDuration(h.ScreenshotSettle, o.ScreenshotSettle)
	h.PauseMin = pickDuration(h.PauseMin, o.PauseMin)
	h.PauseMax = pickDuration(h.PauseMax, o.PauseMax)
	h.HashPrefixRunes = pickInt(h.HashPrefixRunes, o.HashPrefixRunes)
	h.BackfillPageSettle = pickDuration(h.BackfillPageSettle, o.BackfillPageSettle)
	if len(o.ProfileIDLengths) > 0 {
		h.ProfileIDLengths = o.ProfileIDLengths
	}

	base.Platforms = mergePlatforms(base.Platforms, override.Platforms)

	base.Scheduler.Interval = pickDuration(base.Scheduler.Interval, override.Scheduler.Interval)
	base.Scheduler.Timezone = pickString(base.Scheduler.Timezone, override.Scheduler.Timezone)

	base.Notifications.Telegram.BotToken = pickString(base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	base.Notifications.Telegram.ChatID = pickString(base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)

	base.Redis.URL = pickString(base.Redis.URL, override.Redis.URL)
	base.Redis.Key = pickString(base.Redis.Key, override.Redis.Key)

	if override.Mirror.S3.Bucket != "" {
		base.Mirror.S3 = override.Mirror.S3
	}

	base.API.Addr = pickString(base.API.Addr, override.API.Addr)
	base.Reports.Dir = pickString(base.Reports.Dir, override.Reports.Dir)
	base.Reports.Limit = pickInt(base.Reports.Limit, override.Reports.Limit)
	base.Logging.Level = pickString(base.Logging.Level, override.Logging.Level)
	base.Logging.Format = pickString(base.Logging.Format, override.Logging.Format)

	return base
}

// mergePlatforms overlays file policies onto defaults by name. A platform
// listed in the file takes its enabled flag from the file; readyRetries and
// waitIndefinitely win whenever the file sets them, zero and false included.
func mergePlatforms(base, override []PlatformConfig) []PlatformConfig {
	if len(override) == 0 {
		return base
	}
	merged := make([]PlatformConfig, 0, len(base)+len(override))
	used := map[string]bool{}
	for _, b := range base {
		for _, o := range override {
			if o.Name != b.Name {
				continue
			}
			used[o.Name] = true
			b.Enabled = o.Enabled
			b.StartURL = pickString(b.StartURL, o.StartURL)
			if len(o.Domains) > 0 {
				b.Domains = o.Domains
			}
			if len(o.Targets) > 0 {
				b.Targets = o.Targets
			}
			b.ReadyTimeout = pickDuration(b.ReadyTimeout, o.ReadyTimeout)
			if o.ReadyRetries != nil {
				b.ReadyRetries = o.ReadyRetries
			}
			b.TargetTimeout = pickDuration(b.TargetTimeout, o.TargetTimeout)
			if o.WaitIndefinitely != nil {
				b.WaitIndefinitely = o.WaitIndefinitely
			}
			b.Rounds = pickInt(b.Rounds, o.Rounds)
			b.ScrollMin = pickInt(b.ScrollMin, o.ScrollMin)
			b.ScrollMax = pickInt(b.ScrollMax, o.ScrollMax)
			b.MinTextLength = pickInt(b.MinTextLength, o.MinTextLength)
			b.MaxTextLength = pickInt(b.MaxTextLength, o.MaxTextLength)
		}
		merged = append(merged, b)
	}
	for _, o := range override {
		if !used[o.Name] {
			merged = append(merged, o)
		}
	}
	return merged
}

func pickString(base, override string) string {
	if override != "" {
		return override
	}
	return base
}

func pickInt(base, override int) int {
	if override > 0 {
		return override
	}
	return base
}

func ptr[T any](v T) *T { return &v }

func pickDuration(base, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{DSN: "smtf_memory.db", MaxOpenConns: 4, MaxIdleConns: 2, ConnMaxLifetime: time.Hour},
		Browser:  BrowserConfig{Endpoint: "http://127.0.0.1:9222"},
		LLM: LLMConfig{
			Provider:   "gemini",
			FastModel:  "gemini-3-flash-preview",
			SmartModel: "gemini-3-pro-preview",
			MaxTokens:  4096,
			Timeout:    2 * time.Minute,
		},
		Pipeline: PipelineConfig{Limit: 5, CronLimit: 10, PostPause: time.Second, LeaseTTL: 30 * time.Minute},
		Harvest: HarvestConfig{
			AssetsDir:          filepath.Join("assets", "images"),
			MinImageBytes:      2000,
			ScreenshotQuality:  80,
			BackfillQuality:    85,
			ImageMinWidth:      150,
			BackfillMinWidth:   200,
			ScreenshotSettle:   500 * time.Millisecond,
			PauseMin:           2 * time.Second,
			PauseMax:           4 * time.Second,
			ProfileIDLengths:   []int{10},
			HashPrefixRunes:    50,
			BackfillPageSettle: time.Second,
		},
		Platforms: []PlatformConfig{
			{
				Name:          "x",
				Enabled:       true,
				StartURL:      "https://x.com/home",
				Domains:       []string{"x.com", "twitter.com"},
				ReadyTimeout:  15 * time.Second,
				Rounds:        3,
				ScrollMin:     800,
				ScrollMax:     1500,
				MinTextLength: 21,
				MaxTextLength: 500,
			},
			{
				Name:     "wb",
				Enabled:  true,
				StartURL: "https://weibo.com/u/7378302827",
				Domains:  []string{"weibo.com"},
				Targets: []string{
					"https://weibo.com/u/7378302827",
					"https://weibo.com/u/6607420428",
					"https://weibo.com/u/1989534434",
					"https://weibo.com/u/1642088277",
				},
				ReadyTimeout:  5 * time.Second,
				ReadyRetries:  ptr(1),
				TargetTimeout: 8 * time.Second,
				Rounds:        1,
				ScrollMin:     800,
				ScrollMax:     800,
				MinTextLength: 10,
				MaxTextLength: 600,
			},
			{
				Name:             "reddit",
				Enabled:          true,
				StartURL:         "https://www.reddit.com/",
				Domains:          []string{"reddit.com"},
				ReadyTimeout:     8 * time.Second,
				WaitIndefinitely: ptr(true),
				Rounds:           3,
				ScrollMin:        1000,
				ScrollMax:        1000,
			},
		},
		Scheduler: SchedulerConfig{Interval: 6 * time.Hour, Timezone: defaultTimezone, location: tz},
		Redis:     RedisConfig{Key: "truthfilter:run-lease"},
		API:       APIConfig{Addr: ":8080"},
		Reports:   ReportsConfig{Dir: "reports", Limit: 20},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}
