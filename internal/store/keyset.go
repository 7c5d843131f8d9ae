// Package store provides bounded key sets backed by a Bloom filter and an LRU cache.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// KeySet is a thread-safe set of string keys with a fixed capacity.
// When full, the least recently added key is evicted.
type KeySet struct {
	keys              map[string]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	mutex             sync.RWMutex
	capacity          int
	falsePositiveRate float64
}

// NewKeySet creates a key set holding at most capacity keys.
func NewKeySet(capacity int, falsePositiveRate float64) *KeySet {
	if capacity <= 0 || capacity > int(^uint(0)>>1) {
		panic("capacity value out of range for uint conversion")
	}
	lruCache, _ := lru.New[string, struct{}](capacity)

	return &KeySet{
		keys:              make(map[string]struct{}),
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		lru:               lruCache,
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
	}
}

// Has reports whether key is in the set.
func (s *KeySet) Has(key string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.hasLocked(key)
}

// HasAny reports whether at least one of keys is in the set.
func (s *KeySet) HasAny(keys ...string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, key := range keys {
		if s.hasLocked(key) {
			return true
		}
	}
	return false
}

func (s *KeySet) hasLocked(key string) bool {
	if !s.bloom.TestString(key) {
		return false
	}
	_, exists := s.keys[key]
	return exists
}

// Add inserts keys, ignoring empty strings and keys already present.
func (s *KeySet) Add(keys ...string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, key := range keys {
		s.addLocked(key)
	}
}

func (s *KeySet) addLocked(key string) {
	if key == "" {
		return
	}
	if _, exists := s.keys[key]; exists {
		return
	}

	s.keys[key] = struct{}{}
	s.bloom.AddString(key)
	s.lru.Add(key, struct{}{})

	if len(s.keys) > s.capacity {
		s.evictOldest()
	}
}

// Load replaces the contents of the set with keys.
func (s *KeySet) Load(keys []string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.clear()
	for _, key := range keys {
		s.addLocked(key)
	}
}

func (s *KeySet) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.keys)
}

func (s *KeySet) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.clear()
}

func (s *KeySet) clear() {
	s.keys = make(map[string]struct{})
	s.bloom = bloom.NewWithEstimates(uint(s.capacity), s.falsePositiveRate)
	s.lru.Purge()
}

func (s *KeySet) evictOldest() {
	oldestKey, _, ok := s.lru.GetOldest()
	if !ok {
		return
	}
	// The Bloom filter keeps the evicted key; the map lookup filters false positives.
	delete(s.keys, oldestKey)
	s.lru.Remove(oldestKey)
}
