package nlu

import (
	"fmt"
	"os"

	"voicecart/internal/config"
)

// NewClientFromConfig creates a classifier client from user config.
func NewClientFromConfig(cfg *config.UserConfig) (LLMClient, error) {
	provider, apiKey := cfg.GetActiveProvider()
	switch provider {
	case "", "groq", "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("no API key found; configure %s or set GROQ_API_KEY / GEMINI_API_KEY",
				config.DefaultUserConfigPath())
		}
	default:
		return nil, fmt.Errorf("unknown provider: %s (valid: groq, gemini)", provider)
	}

	switch provider {
	case "groq":
		client := NewGroqClient(apiKey)
		if cfg.Model != "" {
			client.SetModel(cfg.Model)
		}
		return client, nil

	case "gemini":
		client, err := NewGeminiClient(apiKey)
		if err != nil {
			return nil, err
		}
		if cfg.Model != "" {
			client.SetModel(cfg.Model)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (valid: groq, gemini)", provider)
	}
}

// NewClientFromEnv creates a classifier client from environment variables
// alone, bypassing the config file. Priority: GROQ_API_KEY > GEMINI_API_KEY.
func NewClientFromEnv() (LLMClient, error) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		return NewGroqClient(key), nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return NewGeminiClient(key)
	}
	return nil, fmt.Errorf("no API key found; set GROQ_API_KEY or GEMINI_API_KEY")
}
