package sqlparse

import (
	"sync"
)

// defaultMaxEntries bounds the cache across unrelated SQL strings. A
// single analysis run rarely sees more distinct statements than this;
// when it does, an arbitrary entry is evicted, which only costs a
// recompute.
const defaultMaxEntries = 4096

// Cache memoizes extractor output per exact SQL string. Analyzers share
// one cache instance for the duration of an analysis run; the same
// statement is asked the same structural questions by several detectors,
// so computing facts once per distinct string pays for itself quickly.
//
// Keys are the raw SQL text with no normalization: two textually
// different but semantically identical statements cache separately, by
// design. Facts are a pure function of the text, so racing a first
// population at worst recomputes the same value.
type Cache struct {
	mu         sync.RWMutex
	extractor  *Extractor
	entries    map[string]*Facts
	maxEntries int
}

// NewCache creates a run-scoped facts cache around the given extractor.
func NewCache(extractor *Extractor) *Cache {
	return &Cache{
		extractor:  extractor,
		entries:    make(map[string]*Facts),
		maxEntries: defaultMaxEntries,
	}
}

// Extractor exposes the wrapped extractor for operations that are not
// plain per-statement facts (alias usage, ON-condition decomposition).
func (c *Cache) Extractor() *Extractor { return c.extractor }

// Facts returns the cached structural view for sql, computing it on the
// first request.
func (c *Cache) Facts(sql string) *Facts {
	c.mu.RLock()
	facts, ok := c.entries[sql]
	c.mu.RUnlock()
	if ok {
		return facts
	}

	facts = c.extractor.Extract(sql)

	c.mu.Lock()
	if existing, ok := c.entries[sql]; ok {
		facts = existing
	} else {
		if len(c.entries) >= c.maxEntries {
			for k := range c.entries {
				delete(c.entries, k)
				break
			}
		}
		c.entries[sql] = facts
	}
	c.mu.Unlock()
	return facts
}

// Len returns the number of cached statements.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
