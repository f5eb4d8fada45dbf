// Package decaymap is an in-memory map whose values expire after a time-to-live.
package decaymap

import (
	"container/heap"
	"sync"
	"time"
)

func Zilch[T any]() T {
	var zero T
	return zero
}

// Impl is a lazy key->value map. It's a wrapper around a map and a mutex. If values exceed their time-to-live, they are pruned at Get time.
type Impl[K comparable, V any] struct {
	data map[K]decayMapEntry[V]
	lock sync.Mutex

	// maxEntries bounds the number of live entries. Zero means unbounded.
	maxEntries int

	// expiries orders the entries of a bounded map by expiry. Entries whose
	// key was deleted or re-set are stale and dropped when they surface.
	expiries expiryHeap[K]
}

type expiryEntry[K comparable] struct {
	key    K
	expiry time.Time
}

type expiryHeap[K comparable] []expiryEntry[K]

func (h expiryHeap[K]) Len() int           { return len(h) }
func (h expiryHeap[K]) Less(i, j int) bool { return h[i].expiry.Before(h[j].expiry) }
func (h expiryHeap[K]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *expiryHeap[K]) Push(x any) {
	*h = append(*h, x.(expiryEntry[K]))
}

func (h *expiryHeap[K]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type decayMapEntry[V any] struct {
	Value  V
	expiry time.Time
}

// New creates a new DecayMap of key type K and value type V.
//
// Key types must be comparable to work with maps.
func New[K comparable, V any]() *Impl[K, V] {
	return &Impl[K, V]{
		data: make(map[K]decayMapEntry[V]),
	}
}

// NewBounded creates a DecayMap that holds at most maxEntries values. When
// full, expired entries are pruned first and then the entry closest to its
// expiry is evicted.
func NewBounded[K comparable, V any](maxEntries int) *Impl[K, V] {
	result := New[K, V]()
	result.maxEntries = maxEntries
	return result
}

// expire forcibly expires a key by setting its time-to-live one second in the past.
func (m *Impl[K, V]) expire(key K) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	val, ok := m.data[key]
	if !ok {
		return false
	}

	val.expiry = time.Now().Add(-1 * time.Second)
	m.data[key] = val
	m.trackLocked(key, val.expiry)
	return true
}

// Delete a value from the DecayMap by key.
//
// If the value does not exist, return false. Return true after
// deletion.
func (m *Impl[K, V]) Delete(key K) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	val, ok := m.data[key]
	if !ok {
		return false
	}

	delete(m.data, key)
	return time.Now().Before(val.expiry)
}

// Get gets a value from the DecayMap by key.
//
// If a value has expired, forcibly delete it if it was not updated.
func (m *Impl[K, V]) Get(key K) (V, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	value, ok := m.data[key]
	if !ok {
		return Zilch[V](), false
	}

	if time.Now().After(value.expiry) {
		delete(m.data, key)
		return Zilch[V](), false
	}

	return value.Value, true
}

// Take gets a value and deletes it in one step. Two concurrent callers
// taking the same key never both observe the value.
func (m *Impl[K, V]) Take(key K) (V, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	value, ok := m.data[key]
	if !ok {
		return Zilch[V](), false
	}

	delete(m.data, key)

	if time.Now().After(value.expiry) {
		return Zilch[V](), false
	}

	return value.Value, true
}

// Set sets a key value pair in the map.
func (m *Impl[K, V]) Set(key K, value V, ttl time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()

	_, exists := m.data[key]
	m.setLocked(key, value, ttl, exists)
}

// SetIfAbsent sets key unless it holds a live value. It reports whether the
// value was set.
func (m *Impl[K, V]) SetIfAbsent(key K, value V, ttl time.Duration) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	existing, exists := m.data[key]
	if exists && time.Now().Before(existing.expiry) {
		return false
	}

	m.setLocked(key, value, ttl, exists)
	return true
}

// setLocked stores a value, making room first when a new key would
// overflow a bounded map. The caller must hold the lock.
func (m *Impl[K, V]) setLocked(key K, value V, ttl time.Duration, exists bool) {
	if !exists && m.maxEntries > 0 && len(m.data) >= m.maxEntries {
		m.evictLocked()
	}

	expiry := time.Now().Add(ttl)
	m.data[key] = decayMapEntry[V]{
		Value:  value,
		expiry: expiry,
	}
	m.trackLocked(key, expiry)
}

// trackLocked records a new expiry for key in a bounded map.
func (m *Impl[K, V]) trackLocked(key K, expiry time.Time) {
	if m.maxEntries <= 0 {
		return
	}

	heap.Push(&m.expiries, expiryEntry[K]{key: key, expiry: expiry})

	if len(m.expiries) > 2*m.maxEntries {
		m.expiries = m.expiries[:0]
		for k, val := range m.data {
			m.expiries = append(m.expiries, expiryEntry[K]{key: k, expiry: val.expiry})
		}
		heap.Init(&m.expiries)
	}
}

// evictLocked makes room for one entry. Expired entries are dropped first;
// if the map is still full, the entry closest to its expiry goes. The caller
// must hold the lock.
func (m *Impl[K, V]) evictLocked() {
	now := time.Now()

	for len(m.expiries) > 0 {
		next := m.expiries[0]

		val, ok := m.data[next.key]
		if !ok || !val.expiry.Equal(next.expiry) {
			heap.Pop(&m.expiries)
			continue
		}

		if len(m.data) < m.maxEntries && !now.After(next.expiry) {
			return
		}

		heap.Pop(&m.expiries)
		delete(m.data, next.key)
	}
}

// Cleanup removes all expired entries from the DecayMap.
func (m *Impl[K, V]) Cleanup() {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := time.Now()
	for key, val := range m.data {
		if now.After(val.expiry) {
			delete(m.data, key)
		}
	}
}

// Len returns the number of entries in the DecayMap, including expired ones
// that have not been cleaned up yet.
func (m *Impl[K, V]) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.data)
}
