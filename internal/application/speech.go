package application

import (
	"context"

	"askme/internal/domain"
)

// SpeechToText transcribes WAV audio. Implementations return
// domain.ErrUnintelligible when the audio could not be mapped to text.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// SpeechSynthesizer turns text into playable audio (MP3).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// NoopSTT is used when no transcription provider is configured.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(_ context.Context, _ []byte) (string, error) {
	return "", &domain.ProviderError{
		Provider: "stt",
		Message:  "speech-to-text not configured: set transcription.api_key to enable voice questions",
	}
}
