package ledger

import (
	"context"
	"sync"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
)

// MemoryLedger keeps exchanges in process memory. Suitable for tests and
// local runs.
type MemoryLedger struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[string][]chat.Exchange
}

// NewMemoryLedger bootstraps an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{byUser: make(map[string][]chat.Exchange)}
}

// Append stores a copy of exchange and assigns its id.
func (m *MemoryLedger) Append(_ context.Context, exchange *chat.Exchange) error {
	if err := validate(exchange); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	exchange.ID = m.nextID
	m.byUser[exchange.User] = append(m.byUser[exchange.User], *exchange)
	return nil
}

// QueryByUser returns the user's exchanges, newest first.
func (m *MemoryLedger) QueryByUser(_ context.Context, user string) ([]chat.Exchange, error) {
	m.mu.RLock()
	stored := m.byUser[user]
	copied := make([]chat.Exchange, len(stored))
	copy(copied, stored)
	m.mu.RUnlock()

	sortNewestFirst(copied)
	return copied, nil
}

// Count returns how many exchanges are stored for user.
func (m *MemoryLedger) Count(_ context.Context, user string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[user]), nil
}

func (m *MemoryLedger) Close() error { return nil }

var _ Ledger = (*MemoryLedger)(nil)
