package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "TRUTHFILTER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	browserEnv        = "BROWSER_ENDPOINT"
	llmProviderEnv    = "LLM_PROVIDER"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmFastModelEnv   = "LLM_FAST_MODEL"
	llmSmartModelEnv  = "LLM_SMART_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	redisURLEnv       = "REDIS_URL"
	s3BucketEnv       = "S3_BUCKET"
	s3AccessKeyEnv    = "S3_ACCESS_KEY_ID"
	s3SecretKeyEnv    = "S3_SECRET_ACCESS_KEY"
	logLevelEnv       = "LOG_LEVEL"
)

var providerKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Browser       BrowserConfig      `yaml:"browser"`
	LLM           LLMConfig          `yaml:"llm"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Harvest       HarvestConfig      `yaml:"harvest"`
	Platforms     []PlatformConfig   `yaml:"platforms"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Redis         RedisConfig        `yaml:"redis"`
	Mirror        MirrorConfig       `yaml:"mirror"`
	API           APIConfig          `yaml:"api"`
	Reports       ReportsConfig      `yaml:"reports"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig selects the result store; a postgres:// DSN switches to Postgres,
// anything else is treated as a SQLite file path.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// BrowserConfig points at the remote debugging endpoint of the user's browser.
type BrowserConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// LLMConfig picks the language model provider.
type LLMConfig struct {
	Provider   string        `yaml:"provider"`
	APIKey     string        `yaml:"apiKey"`
	Endpoint   string        `yaml:"endpoint"`
	FastModel  string        `yaml:"fastModel"`
	SmartModel string        `yaml:"smartModel"`
	MaxTokens  int64         `yaml:"maxTokens"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PipelineConfig bounds a single run.
type PipelineConfig struct {
	Limit     int           `yaml:"limit"`
	CronLimit int           `yaml:"cronLimit"`
	PostPause time.Duration `yaml:"postPause"`
	LeaseTTL  time.Duration `yaml:"leaseTtl"`
}

// HarvestConfig carries tunables shared by every platform session.
type HarvestConfig struct {
	AssetsDir          string        `yaml:"assetsDir"`
	MinImageBytes      int           `yaml:"minImageBytes"`
	ScreenshotQuality  int           `yaml:"screenshotQuality"`
	BackfillQuality    int           `yaml:"backfillQuality"`
	ImageMinWidth      int           `yaml:"imageMinWidth"`
	BackfillMinWidth   int           `yaml:"backfillMinWidth"`
	ScreenshotSettle   time.Duration `yaml:"screenshotSettle"`
	PauseMin           time.Duration `yaml:"pauseMin"`
	PauseMax           time.Duration `yaml:"pauseMax"`
	ProfileIDLengths   []int         `yaml:"profileIdLengths"`
	HashPrefixRunes    int           `yaml:"hashPrefixRunes"`
	BackfillPageSettle time.Duration `yaml:"backfillPageSettle"`
}

// PlatformConfig is the per-platform session policy.
type PlatformConfig struct {
	Name             string        `yaml:"name"`
	Enabled          bool          `yaml:"enabled"`
	StartURL         string        `yaml:"startUrl"`
	Domains          []string      `yaml:"domains"`
	Targets          []string      `yaml:"targets"`
	ReadyTimeout     time.Duration `yaml:"readyTimeout"`
	ReadyRetries     *int          `yaml:"readyRetries"`
	TargetTimeout    time.Duration `yaml:"targetTimeout"`
	WaitIndefinitely *bool         `yaml:"waitIndefinitely"`
	Rounds           int           `yaml:"rounds"`
	ScrollMin        int           `yaml:"scrollMin"`
	ScrollMax        int           `yaml:"scrollMax"`
	MinTextLength    int           `yaml:"minTextLength"`
	MaxTextLength    int           `yaml:"maxTextLength"`
}

// Retries is the number of readiness retries; unset means none.
func (p PlatformConfig) Retries() int {
	if p.ReadyRetries == nil {
		return 0
	}
	return *p.ReadyRetries
}

// IndefiniteWait reports whether readiness falls back to an unbounded wait.
func (p PlatformConfig) IndefiniteWait() bool {
	return p.WaitIndefinitely != nil && *p.WaitIndefinitely
}

// SchedulerConfig defines how often watch mode runs.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// RedisConfig enables the distributed run lease when URL is set.
type RedisConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// MirrorConfig groups optional remote copies of acquired assets.
type MirrorConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config describes an S3 compatible bucket.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	PathStyle       bool   `yaml:"pathStyle"`
}

// APIConfig configures the review HTTP API.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// ReportsConfig configures digest output.
type ReportsConfig struct {
	Dir   string `yaml:"dir"`
	Limit int    `yaml:"limit"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Platform returns the policy for name.
func (c Config) Platform(name string) (PlatformConfig, bool) {
	for _, p := range c.Platforms {
		if p.Name == name {
			return p, true
		}
	}
	return PlatformConfig{}, false
}

// Load reads .env, YAML configuration (if present) and applies environment overrides.
// path wins over the environment variable when non-empty.
func Load(path string) Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(browserEnv); v != "" {
		c.Browser.Endpoint = v
	}
	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	} else if c.LLM.APIKey == "" {
		if env, ok := providerKeyEnv[c.LLM.Provider]; ok {
			c.LLM.APIKey = os.Getenv(env)
		}
	}
	if v := os.Getenv(llmFastModelEnv); v != "" {
		c.LLM.FastModel = v
	}
	if v := os.Getenv(llmSmartModelEnv); v != "" {
		c.LLM.SmartModel = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(redisURLEnv); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv(s3BucketEnv); v != "" {
		c.Mirror.S3.Bucket = v
	}
	if v := os.Getenv(s3AccessKeyEnv); v != "" {
		c.Mirror.S3.AccessKeyID = v
	}
	if v := os.Getenv(s3SecretKeyEnv); v != "" {
		c.Mirror.S3.SecretAccessKey = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}
