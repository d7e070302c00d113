package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process KV used by tests and ephemeral runs. Semantics
// match SQLiteKV: ReplaceAll is atomic per bucket, List orders by position.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]map[string]Entry)}
}

func (m *Memory) ReplaceAll(_ context.Context, bucket string, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[string]Entry, len(entries))
	for _, e := range entries {
		next[e.Key] = Entry{Key: e.Key, Value: append([]byte(nil), e.Value...), Position: e.Position}
	}
	m.buckets[bucket] = next
	return nil
}

func (m *Memory) Put(_ context.Context, bucket string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[bucket]
	if !ok {
		b = make(map[string]Entry)
		m.buckets[bucket] = b
	}
	b[entry.Key] = Entry{Key: entry.Key, Value: append([]byte(nil), entry.Value...), Position: entry.Position}
	return nil
}

func (m *Memory) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buckets[bucket]; ok {
		delete(b, key)
	}
	return nil
}

func (m *Memory) List(_ context.Context, bucket string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.buckets[bucket]
	entries := make([]Entry, 0, len(b))
	for _, e := range b {
		entries = append(entries, Entry{Key: e.Key, Value: append([]byte(nil), e.Value...), Position: e.Position})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

var _ KV = (*Memory)(nil)
