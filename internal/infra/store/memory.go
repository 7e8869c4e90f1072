package store

import (
	"context"
	"sync"

	"askme/internal/domain"
)

// Memory keeps the exchange for the lifetime of the process.
type Memory struct {
	mu       sync.RWMutex
	exchange domain.Exchange
	set      bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(_ context.Context, exchange domain.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchange = exchange
	m.set = true
	return nil
}

func (m *Memory) Latest(_ context.Context) (domain.Exchange, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exchange, m.set, nil
}
