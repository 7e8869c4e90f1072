package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"askme/internal/domain"
)

// File stores the exchange as a YAML document. Writes go to a temp file in
// the same directory and are renamed into place.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Save(_ context.Context, exchange domain.Exchange) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(exchange)
	if err != nil {
		return fmt.Errorf("marshaling exchange: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating exchange dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".exchange-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing exchange: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing exchange file: %w", err)
	}
	return nil
}

func (f *File) Latest(_ context.Context) (domain.Exchange, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Exchange{}, false, nil
	}
	if err != nil {
		return domain.Exchange{}, false, fmt.Errorf("reading exchange file: %w", err)
	}

	var exchange domain.Exchange
	if err := yaml.Unmarshal(data, &exchange); err != nil {
		return domain.Exchange{}, false, fmt.Errorf("parsing exchange file: %w", err)
	}
	return exchange, true, nil
}
