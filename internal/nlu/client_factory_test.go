package nlu

import (
	"testing"

	"voicecart/internal/config"
)

func TestNewClientFromConfig_Groq(t *testing.T) {
	cfg := &config.UserConfig{Provider: "groq", GroqAPIKey: "key"}
	client, err := NewClientFromConfig(cfg)
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	groq, ok := client.(*GroqClient)
	if !ok {
		t.Fatalf("Expected *GroqClient, got %T", client)
	}
	if groq.GetModel() != "llama-3.1-8b-instant" {
		t.Errorf("Unexpected default model: %s", groq.GetModel())
	}
}

func TestNewClientFromConfig_ModelOverride(t *testing.T) {
	cfg := &config.UserConfig{Provider: "groq", GroqAPIKey: "key", Model: "llama-3.3-70b-versatile"}
	client, err := NewClientFromConfig(cfg)
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	if got := client.(*GroqClient).GetModel(); got != "llama-3.3-70b-versatile" {
		t.Errorf("Model override ignored: %s", got)
	}
}

func TestNewClientFromConfig_NoKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := NewClientFromConfig(&config.UserConfig{}); err == nil {
		t.Fatal("Expected error with no API key configured")
	}
}

func TestNewClientFromConfig_UnknownProvider(t *testing.T) {
	cfg := &config.UserConfig{Provider: "openai", GroqAPIKey: "key"}
	if _, err := NewClientFromConfig(cfg); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestNewClientFromEnv_Priority(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "g")
	t.Setenv("GEMINI_API_KEY", "m")

	client, err := NewClientFromEnv()
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	if _, ok := client.(*GroqClient); !ok {
		t.Errorf("Groq key must win, got %T", client)
	}
}
