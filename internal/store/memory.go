package store

import (
	"context"
	"sync"
)

// MemoryStore keeps conversations and the session blob in process
// memory. It backs the "memory" storage backend for local runs and
// doubles as the fake in unit tests.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string][]MessageEntry
	blob          []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string][]MessageEntry)}
}

func (s *MemoryStore) Append(ctx context.Context, conversationID string, entry MessageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversationID] = append(s.conversations[conversationID], entry)
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, conversationID string, limit int) ([]MessageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.conversations[conversationID]
	tail := Tail(entries, limit)
	out := make([]MessageEntry, len(tail))
	copy(out, tail)
	return out, nil
}

func (s *MemoryStore) Find(ctx context.Context, conversationID, messageID string) (*MessageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.conversations[conversationID] {
		if e.ID == messageID {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blob) == 0 {
		return nil, ErrNotFound
	}
	out := make([]byte, len(s.blob))
	copy(out, s.blob)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = make([]byte, len(blob))
	copy(s.blob, blob)
	return nil
}
