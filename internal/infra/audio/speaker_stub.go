//go:build !speaker
// +build !speaker

package audio

import (
	"context"
	"fmt"

	"github.com/faiface/beep"
)

// Speaker stub when built without an audio output backend
type Speaker struct{}

func NewSpeaker() *Speaker {
	return &Speaker{}
}

func (sp *Speaker) PlayAndWait(_ context.Context, _ beep.Streamer, _ beep.Format) error {
	return fmt.Errorf("speaker not available: rebuild with -tags speaker")
}
