package library

import (
	"strings"
	"sync"
)

// normID folds an identifier for lookups. Identifiers match case-insensitively.
func normID(id string) string { return strings.ToUpper(strings.TrimSpace(id)) }

// keyedLocks hands out one RWMutex per record key. Entries are never
// removed; the set is bounded by the number of records ever seen.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.RWMutex)}
}

func (k *keyedLocks) get(key string) *sync.RWMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		k.locks[key] = l
	}
	return l
}

// Lock write-locks key and returns the matching unlock.
func (k *keyedLocks) Lock(key string) func() {
	l := k.get(key)
	l.Lock()
	return l.Unlock
}

// RLock read-locks key and returns the matching unlock.
func (k *keyedLocks) RLock(key string) func() {
	l := k.get(key)
	l.RLock()
	return l.RUnlock
}
