package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// Output renders a decoded stream and returns once it has been fully played.
type Output interface {
	PlayAndWait(ctx context.Context, s beep.Streamer, format beep.Format) error
}

// Player decodes an audio file and blocks until the output has drained it.
type Player struct {
	output Output
}

func NewPlayer(output Output) *Player {
	return &Player{output: output}
}

func (p *Player) PlayAndWait(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		streamer, format, err = mp3.Decode(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	defer streamer.Close()

	if err := p.output.PlayAndWait(ctx, streamer, format); err != nil {
		return fmt.Errorf("playing %s: %w", path, err)
	}
	return nil
}

// Discard drains streams without producing sound.
type Discard struct{}

func (Discard) PlayAndWait(ctx context.Context, s beep.Streamer, _ beep.Format) error {
	buf := make([][2]float64, 512)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := s.Stream(buf); !ok {
			break
		}
	}
	return s.Err()
}
