//go:build !portaudio
// +build !portaudio

package audio

import (
	"fmt"
	"log/slog"
)

// Microphone stub when portaudio is not available
type Microphone struct {
	logger *slog.Logger
}

func NewMicrophone(logger *slog.Logger) *Microphone {
	return &Microphone{logger: logger}
}

func (m *Microphone) Open(_, _ int) (InputStream, error) {
	return nil, fmt.Errorf("microphone not available: rebuild with -tags portaudio")
}
