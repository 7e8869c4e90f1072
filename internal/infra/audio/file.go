package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileDevice is an input device fed by WAV files dropped into a directory.
// Each Open consumes the oldest unprocessed file and plays it as if it were
// spoken into a microphone: leading silence long enough for calibration,
// then the file, then silence. With no file waiting the stream is silent.
type FileDevice struct {
	dir string
	mu  sync.Mutex
}

func NewFileDevice(dir string) *FileDevice {
	return &FileDevice{dir: dir}
}

func (f *FileDevice) Open(sampleRate, frameSize int) (InputStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audio dir: %w", err)
	}

	path, err := f.next()
	if err != nil {
		return nil, err
	}

	lead := framesIn(CalibrationWindow) * frameSize
	if path == "" {
		return &sampleStream{lead: lead}, nil
	}

	samples, readErr := readWAVFile(path, sampleRate)

	if err := os.Rename(path, path+".processed"); err != nil {
		return nil, fmt.Errorf("marking %s processed: %w", path, err)
	}
	if readErr != nil {
		return nil, readErr
	}

	return &sampleStream{lead: lead, samples: samples}, nil
}

func (f *FileDevice) next() (string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return "", fmt.Errorf("reading dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", nil
	}

	sort.Strings(names)
	return filepath.Join(f.dir, names[0]), nil
}

func readWAVFile(path string, sampleRate int) ([]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	samples, rate, err := DecodeWAV(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return resample(samples, rate, sampleRate), nil
}

func resample(in []float32, inRate, outRate int) []float32 {
	if inRate == outRate || inRate <= 0 || len(in) == 0 {
		return in
	}
	ratio := float64(outRate) / float64(inRate)
	out := make([]float32, int(math.Ceil(float64(len(in))*ratio)))
	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0+1 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}

// sampleStream yields lead samples of silence, then samples, then silence
// forever.
type sampleStream struct {
	lead    int
	samples []float32
	pos     int
}

func (s *sampleStream) Read(frame []float32) error {
	for i := range frame {
		idx := s.pos - s.lead
		if idx >= 0 && idx < len(s.samples) {
			frame[i] = s.samples[idx]
		} else {
			frame[i] = 0
		}
		s.pos++
	}
	return nil
}

func (s *sampleStream) Close() error {
	return nil
}
