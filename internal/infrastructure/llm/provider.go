package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TruthFilter/internal/config"
	"TruthFilter/internal/ports"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// defaultModels are the fast and smart models per provider.
var defaultModels = map[string][2]string{
	ProviderGemini:    {"gemini-3-flash-preview", "gemini-3-pro-preview"},
	ProviderOpenAI:    {"gpt-4o-mini", "gpt-4.1"},
	ProviderAnthropic: {"claude-haiku-4-5", "claude-sonnet-4-5"},
}

// New builds the language model selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (ports.LanguageModel, error) {
	switch normalizeProvider(cfg.Provider) {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.MaxTokens, cfg.Timeout)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.Endpoint, cfg.MaxTokens, cfg.Timeout)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Endpoint, cfg.MaxTokens, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Models returns the fast and smart model names, replacing names that
// belong to another provider family with that provider's defaults.
func Models(cfg config.LLMConfig) (fast, smart string) {
	provider := normalizeProvider(cfg.Provider)
	defaults, ok := defaultModels[provider]
	if !ok {
		return cfg.FastModel, cfg.SmartModel
	}
	fast, smart = cfg.FastModel, cfg.SmartModel
	if fast == "" || !sameFamily(provider, fast) {
		fast = defaults[0]
	}
	if smart == "" || !sameFamily(provider, smart) {
		smart = defaults[1]
	}
	return fast, smart
}

func sameFamily(provider, model string) bool {
	isGemini := strings.HasPrefix(model, "gemini")
	isClaude := strings.HasPrefix(model, "claude")
	switch provider {
	case ProviderGemini:
		return isGemini
	case ProviderAnthropic:
		return isClaude
	default:
		return !isGemini && !isClaude
	}
}

func normalizeProvider(raw string) string {
	p := strings.ToLower(strings.TrimSpace(raw))
	if p == "" {
		return ProviderGemini
	}
	return p
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
