package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpeechDetected is returned by capture when the listen ceiling
	// elapses without an utterance.
	ErrNoSpeechDetected = errors.New("no speech detected")

	// ErrUnintelligible is returned by transcription when the service
	// processed the audio but could not map it to text.
	ErrUnintelligible = errors.New("could not understand audio")

	// ErrCaptureDevice is returned when the audio input device cannot be acquired.
	ErrCaptureDevice = errors.New("audio input device unavailable")
)

// ProviderError carries the message an external service returned so it can be
// surfaced verbatim as failure detail.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}
