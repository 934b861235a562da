// Package transcribe provides the speech-to-text gateway. Audio captured
// by the UI is posted to Groq's Whisper endpoint and comes back as plain
// utterance text for classification.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"voicecart/internal/logging"
)

// ErrTranscriptionService marks failures of the transcription provider
// (transport errors, non-2xx responses, malformed envelopes).
var ErrTranscriptionService = errors.New("transcription service error")

// Transcriber converts captured audio into utterance text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (string, error)
}

// GroqWhisperClient implements Transcriber against Groq's
// OpenAI-compatible audio transcription endpoint.
type GroqWhisperClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// WhisperConfig holds configuration for the Whisper client.
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultWhisperConfig returns sensible defaults.
func DefaultWhisperConfig(apiKey string) WhisperConfig {
	return WhisperConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.groq.com/openai/v1",
		Model:   "whisper-large-v3",
		Timeout: 60 * time.Second,
	}
}

// NewGroqWhisperClient creates a Whisper client with default config.
func NewGroqWhisperClient(apiKey string) *GroqWhisperClient {
	return NewGroqWhisperClientWithConfig(DefaultWhisperConfig(apiKey))
}

// NewGroqWhisperClientWithConfig creates a Whisper client with custom config.
func NewGroqWhisperClientWithConfig(config WhisperConfig) *GroqWhisperClient {
	return &GroqWhisperClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// transcriptionResponse is the provider's success envelope.
type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Transcribe posts the audio blob as a multipart form and returns the
// transcribed text, trimmed. An empty transcription is returned as-is;
// deciding what to do with silence is the caller's business.
func (c *GroqWhisperClient) Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: API key not configured", ErrTranscriptionService)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", ErrTranscriptionService)
	}
	if filename == "" {
		filename = "audio.webm"
	}

	timer := logging.StartTimer(logging.CategorySTT, "Transcribe")
	defer timer.Stop()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio payload: %w", err)
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	logging.STT("Posting %d bytes (%s) for transcription", len(audio), mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrTranscriptionService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrTranscriptionService, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: API request failed with status %d: %s",
			ErrTranscriptionService, resp.StatusCode, string(body))
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: failed to parse response envelope: %v", ErrTranscriptionService, err)
	}
	if tr.Error != nil {
		return "", fmt.Errorf("%w: API error: %s", ErrTranscriptionService, tr.Error.Message)
	}

	text := strings.TrimSpace(tr.Text)
	logging.STT("Transcribed: %q", text)
	return text, nil
}

// SetModel changes the transcription model.
func (c *GroqWhisperClient) SetModel(model string) {
	c.model = model
}
