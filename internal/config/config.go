// Package config holds all voicecart configuration from .voicecart/config.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserConfig holds ALL voicecart configuration from .voicecart/config.json.
// This is the single source of truth for configuration.
//
// Supported NLU providers:
//   - groq:   llama-3.1-8b-instant (default), llama-3.3-70b-versatile
//   - gemini: gemini-2.0-flash (default), gemini-2.5-flash
type UserConfig struct {
	// =========================================================================
	// NLU PROVIDER CONFIGURATION
	// =========================================================================

	// Provider selection (groq, gemini)
	Provider string `json:"provider,omitempty"`

	// API keys for each provider
	GroqAPIKey   string `json:"groq_api_key,omitempty"`   // Groq (NLU + Whisper STT)
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Google Gemini (NLU only)

	// Optional model override (see supported models above)
	Model string `json:"model,omitempty"`

	// Whisper model for transcription (default whisper-large-v3)
	TranscriptionModel string `json:"transcription_model,omitempty"`

	// =========================================================================
	// CATALOG & CART
	// =========================================================================

	// CatalogPath points at a products JSON file. Empty means the embedded
	// sample catalog. When set, the file is watched and hot-reloaded.
	CatalogPath string `json:"catalog_path,omitempty"`

	// CartDBPath overrides the cart persistence database location.
	// Empty means <home>/cart.db. "memory" disables persistence.
	CartDBPath string `json:"cart_db_path,omitempty"`

	// =========================================================================
	// UI SETTINGS
	// =========================================================================

	// Theme for the TUI ("light" or "dark")
	Theme string `json:"theme,omitempty"`

	// =========================================================================
	// LOGGING
	// =========================================================================

	Logging *LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig controls the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories,omitempty"`
	Level      string          `json:"level,omitempty"`
}

// DefaultHomePath returns ~/.voicecart, the directory holding config.json,
// the cart database and debug logs.
func DefaultHomePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voicecart"
	}
	return filepath.Join(home, ".voicecart")
}

// DefaultUserConfigPath returns the default path to config.json.
func DefaultUserConfigPath() string {
	return filepath.Join(DefaultHomePath(), "config.json")
}

// LoadUserConfig reads config.json from the given path.
// A missing file is not an error: defaults plus environment variables apply.
func LoadUserConfig(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnvOverrides fills unset fields from the environment.
// Env vars never override an explicit config.json value.
func (c *UserConfig) applyEnvOverrides() {
	if c.GroqAPIKey == "" {
		c.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Provider == "" {
		c.Provider = os.Getenv("VOICECART_PROVIDER")
	}
}

func (c *UserConfig) applyDefaults() {
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = "whisper-large-v3"
	}
	if c.Theme == "" {
		c.Theme = "dark"
	}
}

// GetActiveProvider resolves the provider and its API key.
// Priority: explicit provider setting, then whichever key is present
// (groq before gemini, since groq also serves transcription).
func (c *UserConfig) GetActiveProvider() (string, string) {
	switch c.Provider {
	case "groq":
		return "groq", c.GroqAPIKey
	case "gemini":
		return "gemini", c.GeminiAPIKey
	case "":
		// fall through to key detection
	default:
		// explicit but unrecognized; the client factory reports it
		return c.Provider, ""
	}
	if c.GroqAPIKey != "" {
		return "groq", c.GroqAPIKey
	}
	if c.GeminiAPIKey != "" {
		return "gemini", c.GeminiAPIKey
	}
	return "", ""
}

// CartDatabasePath resolves the cart persistence location relative to home.
func (c *UserConfig) CartDatabasePath(home string) string {
	switch c.CartDBPath {
	case "":
		return filepath.Join(home, "cart.db")
	case "memory":
		return ""
	default:
		return c.CartDBPath
	}
}

// Save writes the config back to disk, creating the directory if needed.
func (c *UserConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
