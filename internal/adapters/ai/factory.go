package ai

import (
	"strings"

	"minerva/internal/adapters/config"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// BuildRegistry constructs every provider the configuration enables and
// registers it. An empty configuration yields an empty registry: the engine
// still serves static research, only agentic workflows need a provider.
func BuildRegistry(cfg config.AIConfig, log *logger.Logger) (*ProviderRegistry, error) {
	registry := NewProviderRegistry()

	if cfg.OpenAIKey != "" {
		limiter := NewTokenBucketLimiter(ProviderNameOpenAI, cfg.RateLimitPerMin, 0)
		provider := NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.RequestTimeout, limiter, log)
		if err := registry.Register(provider); err != nil {
			return nil, errors.Wrap(err, "failed to register openai provider")
		}
		log.Infow("AI provider registered", "provider", ProviderNameOpenAI, "model", cfg.OpenAIModel)
	}

	if cfg.OllamaURL != "" {
		provider := NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, cfg.RequestTimeout, log)
		if err := registry.Register(provider); err != nil {
			return nil, errors.Wrap(err, "failed to register ollama provider")
		}
		log.Infow("AI provider registered", "provider", ProviderNameOllama, "model", cfg.OllamaModel)
	}

	if len(registry.List()) == 0 {
		log.Warn("No AI providers configured, set OPENAI_API_KEY or OLLAMA_URL to enable agentic research")
		return registry, nil
	}

	if err := registry.SetDefault(cfg.DefaultProvider); err != nil {
		// Configured default is not among the registered providers, fall
		// back to the first one that is.
		for _, candidate := range AllProviderNames() {
			if err := registry.SetDefault(candidate.String()); err == nil {
				log.Warnw("configured default AI provider unavailable, falling back",
					"configured", cfg.DefaultProvider,
					"fallback", candidate,
				)
				break
			}
		}
	}

	return registry, nil
}

// NormalizeProviderName maps user-facing aliases onto canonical provider names.
func NormalizeProviderName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai", "gpt", "chatgpt":
		return ProviderNameOpenAI.String()
	case "ollama", "local":
		return ProviderNameOllama.String()
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}
