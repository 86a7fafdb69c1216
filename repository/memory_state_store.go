package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const memoryShards = 64

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

type memoryShard struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// MemoryStateStore keeps state in process. Keys are spread over independently locked
// shards so unrelated identities do not contend on one mutex.
type MemoryStateStore struct {
	shards [memoryShards]*memoryShard
	now    func() time.Time
}

// NewMemoryStateStore creates an in-process state store. now may be nil.
func NewMemoryStateStore(now func() time.Time) *MemoryStateStore {
	if now == nil {
		now = time.Now
	}
	s := &MemoryStateStore{now: now}
	for i := range s.shards {
		s.shards[i] = &memoryShard{entries: make(map[string]memoryEntry)}
	}
	return s
}

func (s *MemoryStateStore) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%memoryShards]
}

// lookup must be called with the shard lock held.
func (s *MemoryStateStore) lookup(sh *memoryShard, key string) ([]byte, bool) {
	entry, ok := sh.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(sh.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Get returns a copy of the value stored at key.
func (s *MemoryStateStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, ok := s.lookup(sh, key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Update applies fn under the key's shard lock.
func (s *MemoryStateStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, _ := s.lookup(sh, key)
	if current != nil {
		current = append([]byte(nil), current...)
	}

	m, err := fn(current)
	if err != nil || m == nil {
		return err
	}

	if m.Delete {
		delete(sh.entries, key)
		return nil
	}

	entry := memoryEntry{value: append([]byte(nil), m.Value...)}
	if m.TTL > 0 {
		entry.expiresAt = s.now().Add(m.TTL)
	}
	sh.entries[key] = entry
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStateStore) Delete(_ context.Context, key string) error {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.entries, key)
	return nil
}

// Len returns the number of live entries. Used by cleanup logging and tests.
func (s *MemoryStateStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key := range sh.entries {
			if _, ok := s.lookup(sh, key); ok {
				n++
			}
		}
		sh.mu.Unlock()
	}
	return n
}

// Purge drops expired entries and reports how many were removed.
func (s *MemoryStateStore) Purge() int {
	removed := 0
	now := s.now()
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, entry := range sh.entries {
			if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
