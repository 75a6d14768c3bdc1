package services

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serializes work per key. Sessions and subjects get one lock
// each for as long as anything holds it; entries are dropped at zero refs.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

// TryLock claims the key without blocking. It reports false when anything
// else holds or is queued on the key.
func (k *keyedMutex) TryLock(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{refs: 1}
		k.locks[key] = entry
		entry.mu.Lock()
		return true
	}
	if !entry.mu.TryLock() {
		return false
	}
	entry.refs++
	return true
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if ok {
		entry.refs--
		if entry.refs <= 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		entry.mu.Unlock()
	}
}
