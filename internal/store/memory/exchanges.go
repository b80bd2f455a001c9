package memory

import (
	"fmt"
	"sync"

	"github.com/skillswap/live/internal/domain"
)

// ExchangeStore is a local stand-in for the exchange service. Production
// wires an RPC-backed implementation of core.ExchangeStore instead.
type ExchangeStore struct {
	mu        sync.RWMutex
	exchanges map[domain.ExchangeID]domain.Exchange
}

func NewExchangeStore() *ExchangeStore {
	return &ExchangeStore{exchanges: make(map[domain.ExchangeID]domain.Exchange)}
}

func (s *ExchangeStore) GetByID(id domain.ExchangeID) (domain.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.exchanges[id]
	if !ok {
		return domain.Exchange{}, fmt.Errorf("exchange %s: %w", id, domain.ErrNotFound)
	}
	return ex, nil
}

func (s *ExchangeStore) Put(ex domain.Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges[ex.ID] = ex
}
