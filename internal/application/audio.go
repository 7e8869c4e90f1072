package application

import "context"

// SpeechCapture records one spoken utterance and returns it as WAV audio.
type SpeechCapture interface {
	Capture(ctx context.Context) ([]byte, error)
}

// AudioPlayer plays an audio file and returns once playback has finished.
type AudioPlayer interface {
	PlayAndWait(ctx context.Context, path string) error
}
