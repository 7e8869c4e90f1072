//go:build portaudio
// +build portaudio

package audio

import (
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

// Microphone opens the system default input device through PortAudio.
type Microphone struct {
	logger *slog.Logger
}

func NewMicrophone(logger *slog.Logger) *Microphone {
	return &Microphone{logger: logger}
}

func (m *Microphone) Open(sampleRate, frameSize int) (InputStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", sampleRate)
	return &micStream{stream: stream, buf: buf}, nil
}

type micStream struct {
	stream *portaudio.Stream
	buf    []float32
}

func (s *micStream) Read(frame []float32) error {
	if err := s.stream.Read(); err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}
	copy(frame, s.buf)
	return nil
}

func (s *micStream) Close() error {
	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	portaudio.Terminate()

	if stopErr != nil {
		return fmt.Errorf("stopping stream: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing stream: %w", closeErr)
	}
	return nil
}
