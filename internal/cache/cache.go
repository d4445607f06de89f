// Package cache provides named in-process cache regions with per-entry TTL
// and a capacity bound. Every cached value is idempotently recomputable, so
// a get/set race on the same key resolves as last writer wins.
package cache

import (
	"container/list"
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Region is one named cache area with its own TTL and size policy.
// Safe for concurrent use.
type Region struct {
	name  string
	ttl   time.Duration
	cap   int
	total *prometheus.CounterVec // labels: region, result ("hit"/"miss"); may be nil

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
	now     func() time.Time
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewRegion creates a cache region. capacity <= 0 means unbounded.
func NewRegion(name string, ttl time.Duration, capacity int, total *prometheus.CounterVec) *Region {
	return &Region{
		name:    name,
		ttl:     ttl,
		cap:     capacity,
		total:   total,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Get returns the cached value, or absent on miss or TTL expiry.
// A miss is never an error; callers recompute.
func (r *Region) Get(key string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.entries[key]
	if !ok {
		r.inc("miss")
		return nil, false
	}

	e := el.Value.(*entry)
	if r.now().After(e.expiresAt) {
		r.removeLocked(el)
		r.inc("miss")
		return nil, false
	}

	r.lru.MoveToFront(el)
	r.inc("hit")
	return e.value, true
}

// Set stores a value under the region's default TTL.
func (r *Region) Set(key string, value []byte) {
	r.SetWithTTL(key, value, r.ttl)
}

// SetWithTTL stores a value with an explicit TTL, evicting the least
// recently used entry when the region is at capacity.
func (r *Region) SetWithTTL(key string, value []byte, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = r.now().Add(ttl)
		r.lru.MoveToFront(el)
		return
	}

	if r.cap > 0 && r.lru.Len() >= r.cap {
		if back := r.lru.Back(); back != nil {
			r.removeLocked(back)
		}
	}

	el := r.lru.PushFront(&entry{key: key, value: value, expiresAt: r.now().Add(ttl)})
	r.entries[key] = el
}

// Delete removes a key. Deleting an absent key is a no-op.
func (r *Region) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.entries[key]; ok {
		r.removeLocked(el)
	}
}

// GetList returns a cached JSON array value decoded into its elements,
// or absent when the key is missing, expired, or not a JSON array.
func (r *Region) GetList(key string) ([]json.RawMessage, bool) {
	data, ok := r.Get(key)
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

// Len returns the current number of entries, including not-yet-collected expired ones.
func (r *Region) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lru.Len()
}

// Name returns the region name.
func (r *Region) Name() string { return r.name }

func (r *Region) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	r.lru.Remove(el)
	delete(r.entries, e.key)
}

func (r *Region) inc(result string) {
	if r.total != nil {
		r.total.WithLabelValues(r.name, result).Inc()
	}
}
