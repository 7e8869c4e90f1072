package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"askme/internal/domain"
)

const (
	SampleRate = 16000
	FrameSize  = 320 // 20ms

	CalibrationWindow = time.Second
	ListenTimeout     = 15 * time.Second
	PauseThreshold    = 800 * time.Millisecond

	// MinSpeechRMS is the lowest energy threshold used after calibration.
	MinSpeechRMS = 0.015
	// AmbientFactor scales the calibrated noise floor into the speech threshold.
	AmbientFactor = 1.5
)

// InputStream delivers fixed-size mono frames of samples in [-1, 1].
type InputStream interface {
	Read(frame []float32) error
	Close() error
}

type InputDevice interface {
	Open(sampleRate, frameSize int) (InputStream, error)
}

// Listener records a single utterance from an input device: it measures the
// ambient noise level, waits for speech, and stops after a trailing pause.
type Listener struct {
	device InputDevice
	logger *slog.Logger
}

func NewListener(device InputDevice, logger *slog.Logger) *Listener {
	return &Listener{device: device, logger: logger}
}

// Capture returns the utterance as a 16-bit mono WAV. It returns
// domain.ErrNoSpeechDetected when nothing louder than the ambient level is
// heard within ListenTimeout, and domain.ErrCaptureDevice when the device
// cannot be opened or read.
func (l *Listener) Capture(ctx context.Context) ([]byte, error) {
	stream, err := l.device.Open(SampleRate, FrameSize)
	if err != nil {
		return nil, fmt.Errorf("%w: opening input: %w", domain.ErrCaptureDevice, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			l.logger.Warn("closing input stream", "error", err)
		}
	}()

	frame := make([]float32, FrameSize)

	threshold, err := l.calibrate(ctx, stream, frame)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("calibrated ambient noise", "threshold", threshold)

	samples, err := l.listen(ctx, stream, frame, threshold)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("utterance recorded", "samples", len(samples), "duration", time.Duration(len(samples))*time.Second/SampleRate)

	return EncodeWAV(samples, SampleRate)
}

func (l *Listener) calibrate(ctx context.Context, stream InputStream, frame []float32) (float64, error) {
	frames := framesIn(CalibrationWindow)

	var sum float64
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := stream.Read(frame); err != nil {
			return 0, fmt.Errorf("%w: reading input: %w", domain.ErrCaptureDevice, err)
		}
		sum += frameRMS(frame)
	}

	return max(MinSpeechRMS, sum/float64(frames)*AmbientFactor), nil
}

func (l *Listener) listen(ctx context.Context, stream InputStream, frame []float32, threshold float64) ([]float32, error) {
	maxFrames := framesIn(ListenTimeout)
	pauseFrames := framesIn(PauseThreshold)

	var (
		out      []float32
		speaking bool
		silent   int
	)

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(frame); err != nil {
			return nil, fmt.Errorf("%w: reading input: %w", domain.ErrCaptureDevice, err)
		}

		loud := frameRMS(frame) > threshold
		if !speaking {
			if !loud {
				continue
			}
			speaking = true
		}

		out = append(out, frame...)

		if loud {
			silent = 0
			continue
		}
		silent++
		if silent >= pauseFrames {
			break
		}
	}

	if !speaking {
		return nil, domain.ErrNoSpeechDetected
	}

	return out, nil
}

func framesIn(d time.Duration) int {
	return int(d * SampleRate / time.Second / FrameSize)
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s / float64(len(f)))
}

// EncodeWAV encodes mono float samples as a 16-bit PCM WAV file.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	tmp, err := os.CreateTemp("", "askme-capture-*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(clamp(float64(s), -1, 1) * math.MaxInt16))
	}

	enc := wav.NewEncoder(tmp, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing wav: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding wav: %w", err)
	}
	out, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("reading wav: %w", err)
	}
	return out, nil
}

// DecodeWAV returns the samples of a WAV file as mono floats at the file's
// own sample rate.
func DecodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding wav: %w", err)
	}
	if pb == nil || pb.Format == nil {
		return nil, 0, fmt.Errorf("empty wav")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	// 8-bit PCM is unsigned and centred on 128.
	var offset float64
	if bitDepth == 8 {
		offset = 128
	}

	channels := max(pb.Format.NumChannels, 1)
	out := make([]float32, len(pb.Data)/channels)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(pb.Data[i*channels+c]) - offset) * scale
		}
		out[i] = float32(clamp(sum/float64(channels), -1, 1))
	}

	return out, pb.Format.SampleRate, nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
