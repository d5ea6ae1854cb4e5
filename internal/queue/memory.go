package queue

import (
	"context"
	"sync"
)

// Compile-time assertion that MemoryLists implements Lists.
var _ Lists = (*MemoryLists)(nil)

// MemoryLists is an in-memory Lists implementation for tests and local runs.
// It preserves the transport contract: the data/signal pair push is atomic,
// and a blocked BlockPop consumes at most one entry.
type MemoryLists struct {
	mu    sync.Mutex
	lists map[string][][]byte
	wake  map[string]chan struct{}
}

// NewMemoryLists creates an empty MemoryLists.
func NewMemoryLists() *MemoryLists {
	return &MemoryLists{
		lists: make(map[string][][]byte),
		wake:  make(map[string]chan struct{}),
	}
}

// Push implements Lists. Both appends happen under one lock acquisition, so
// no observer can see the data entry without the signal token or vice versa.
func (m *MemoryLists) Push(_ context.Context, dataKey, signalKey string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[dataKey] = append(m.lists[dataKey], payload)
	m.lists[signalKey] = append(m.lists[signalKey], []byte(SignalToken))
	m.broadcastLocked(dataKey)
	m.broadcastLocked(signalKey)
	return nil
}

// Pop implements Lists, removing the oldest entry.
func (m *MemoryLists) Pop(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.lists[key]
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	head := entries[0]
	m.lists[key] = entries[1:]
	return head, nil
}

// BlockPop implements Lists. It waits on a broadcast channel that Push
// closes, re-checking the list each wake-up; the pop itself happens under
// the lock so concurrent waiters each consume a distinct entry.
func (m *MemoryLists) BlockPop(ctx context.Context, key string) error {
	for {
		m.mu.Lock()
		entries := m.lists[key]
		if len(entries) > 0 {
			m.lists[key] = entries[1:]
			m.mu.Unlock()
			return nil
		}
		wake := m.wakeChannelLocked(key)
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

// Len implements Lists.
func (m *MemoryLists) Len(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[key])), nil
}

// broadcastLocked wakes all waiters on the key by closing the current wake
// channel. Callers must hold the lock.
func (m *MemoryLists) broadcastLocked(key string) {
	if ch, ok := m.wake[key]; ok {
		close(ch)
		delete(m.wake, key)
	}
}

// wakeChannelLocked returns the channel the next broadcast on the key will
// close. Callers must hold the lock.
func (m *MemoryLists) wakeChannelLocked(key string) chan struct{} {
	ch, ok := m.wake[key]
	if !ok {
		ch = make(chan struct{})
		m.wake[key] = ch
	}
	return ch
}
