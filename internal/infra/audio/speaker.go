//go:build speaker
// +build speaker

package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// BufferDuration is the output latency of the speaker.
const BufferDuration = 100 * time.Millisecond

// Speaker plays through the default output device.
type Speaker struct {
	mu   sync.Mutex
	rate beep.SampleRate
}

func NewSpeaker() *Speaker {
	return &Speaker{}
}

func (sp *Speaker) PlayAndWait(ctx context.Context, s beep.Streamer, format beep.Format) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.rate != format.SampleRate {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(BufferDuration)); err != nil {
			return fmt.Errorf("initializing speaker: %w", err)
		}
		sp.rate = format.SampleRate
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
