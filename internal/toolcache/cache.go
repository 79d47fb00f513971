package toolcache

import (
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Stats reports cache activity for one run. Hits, Misses and Invalidations
// only grow; Size follows the number of live entries.
type Stats struct {
	Hits          int `json:"hits"`
	Misses        int `json:"misses"`
	Invalidations int `json:"invalidations"`
	Size          int `json:"size"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	value string
	// basis is the full upstream text value was derived from; equal to
	// value for ordinary entries and the raw diff for delta entries.
	basis string
}

// Cache holds tool outputs for a single agent run. It is never shared
// between runs; the mutex only covers transports that dispatch handlers on
// several goroutines.
type Cache struct {
	flight singleflight.Group

	mu        sync.Mutex
	entries   map[string]entry
	previous  *previousStore
	preserved []string

	hits          int
	misses        int
	invalidations int
}

// Option configures a Cache.
type Option func(*Cache)

// WithPreservedPrefix names a key prefix whose values are copied to the
// previous-value store right before invalidation. The default is "diff:".
func WithPreservedPrefix(prefixes ...string) Option {
	return func(c *Cache) {
		c.preserved = append([]string(nil), prefixes...)
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[string]entry),
		previous:  newPreviousStore(),
		preserved: []string{DiffPrefix},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key, counting a hit or a miss.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}
	c.hits++
	return e.value, true
}

// peek returns the value for key without touching the counters.
func (c *Cache) peek(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.value, ok
}

// Set stores value under key.
func (c *Cache) Set(key, value string) {
	c.setDerived(key, value, value)
}

// setDerived stores value together with the full text it was derived from.
func (c *Cache) setDerived(key, value, basis string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, basis: basis}
}

// Invalidate removes key and reports whether it was present.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.remove(key)
	return true
}

// InvalidateByPrefix removes every key starting with prefix and returns the
// number removed.
func (c *Cache) InvalidateByPrefix(prefix string) int {
	return c.invalidateMatching(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// InvalidateByPrefixAndSuffix removes every key that starts with prefix and
// ends with suffix, e.g. all tree listings of one branch.
func (c *Cache) InvalidateByPrefixAndSuffix(prefix, suffix string) int {
	return c.invalidateMatching(func(key string) bool {
		return len(key) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(key, prefix) &&
			strings.HasSuffix(key, suffix)
	})
}

func (c *Cache) invalidateMatching(match func(string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string
	for key := range c.entries {
		if match(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		c.remove(key)
	}
	return len(keys)
}

// remove deletes key, preserving its value first when its prefix asks for
// it. Callers hold c.mu.
func (c *Cache) remove(key string) {
	// A delta entry preserves the full text it was computed from, not the
	// delta, so the next delta compares against the real upstream state.
	if c.isPreserved(key) {
		c.previous.put(key, c.entries[key].basis)
	}
	delete(c.entries, key)
	c.invalidations++
}

func (c *Cache) isPreserved(key string) bool {
	for _, p := range c.preserved {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Clear drops every entry. Counters and preserved previous values are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Previous returns the value key held when it was last invalidated.
func (c *Cache) Previous(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous.get(key)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Invalidations: c.invalidations,
		Size:          len(c.entries),
	}
}

// LogStats writes the counters in the service's log format.
func (c *Cache) LogStats(runID string) {
	s := c.Stats()
	log.Printf("[ToolCache] Run %s: %d hits, %d misses (%.0f%% hit rate), %d invalidations, %d entries",
		runID, s.Hits, s.Misses, s.HitRate()*100, s.Invalidations, s.Size)
}
