package pkg

import "sync"

// memo is a read-mostly compute-or-fetch cache.
//
// Concurrent readers never block each other. A miss computes the value
// outside of any lock and then stores it, so two callers missing the same key
// may both compute it and both write. The computations stored here are pure,
// which makes the duplicate write idempotent; the map itself is never left in
// a torn state.
type memo[K comparable, V any] struct {
	rw     *sync.RWMutex
	values map[K]V
}

func newMemo[K comparable, V any]() *memo[K, V] {
	return &memo[K, V]{
		rw:     &sync.RWMutex{},
		values: map[K]V{},
	}
}

func (m *memo[K, V]) get(key K) (V, bool) {
	m.rw.RLock()
	defer m.rw.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *memo[K, V]) put(key K, v V) {
	m.rw.Lock()
	defer m.rw.Unlock()
	m.values[key] = v
}

func (m *memo[K, V]) len() int {
	m.rw.RLock()
	defer m.rw.RUnlock()
	return len(m.values)
}

func (m *memo[K, V]) getOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := m.get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	m.put(key, v)
	return v, nil
}
