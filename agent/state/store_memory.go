package state

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process. It is used by the CLI and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	key, err := keyFor("", sessionID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	return decodeState(raw)
}

func (m *MemoryStore) Save(ctx context.Context, st *SessionState) error {
	payload, err := encodeState(st)
	if err != nil {
		return err
	}
	key, err := keyFor("", st.SessionID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = payload
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	key, err := keyFor("", sessionID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
