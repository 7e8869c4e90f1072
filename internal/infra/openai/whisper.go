package openai

import (
	"bytes"
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"askme/internal/domain"
)

const whisperProvider = "whisper"

type WhisperClient struct {
	client   openai.Client
	language string
	model    openai.AudioModel
}

func NewWhisperClient(apiKey, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, "")
}

func NewWhisperClientWithURL(apiKey, language, baseURL string) *WhisperClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &WhisperClient{
		client:   openai.NewClient(opts...),
		language: language,
		model:    openai.AudioModelWhisper1,
	}
}

// Transcribe uploads WAV audio and returns the lower-cased transcript. An
// empty transcript is reported as domain.ErrUnintelligible; every other
// failure is a *domain.ProviderError. Requests are not retried.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "audio.wav", "audio/wav"),
		Model: c.model,
	}
	if c.language != "" {
		params.Language = openai.String(c.language)
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", whisperError(err)
	}

	text := strings.ToLower(strings.TrimSpace(resp.Text))
	if text == "" {
		return "", domain.ErrUnintelligible
	}

	return text, nil
}

func whisperError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &domain.ProviderError{Provider: whisperProvider, StatusCode: apiErr.StatusCode, Message: msg}
	}
	return &domain.ProviderError{Provider: whisperProvider, Message: err.Error()}
}
