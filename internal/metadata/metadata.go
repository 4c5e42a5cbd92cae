package metadata

import (
	"strings"
	"sync"
)

// Cardinality is the relationship shape between two tables.
type Cardinality string

const (
	OneToOne   Cardinality = "ONE_TO_ONE"
	OneToMany  Cardinality = "ONE_TO_MANY"
	ManyToOne  Cardinality = "MANY_TO_ONE"
	ManyToMany Cardinality = "MANY_TO_MANY"
)

// IsCollection reports whether the association resolves to a collection
// on the owning side.
func (c Cardinality) IsCollection() bool {
	return c == OneToMany || c == ManyToMany
}

// Association describes one foreign-key relationship as seen from the
// owning table (the table holding the FK columns).
type Association struct {
	Table             string      `json:"table"`
	TargetTable       string      `json:"target_table"`
	Columns           []string    `json:"columns"`
	ReferencedColumns []string    `json:"referenced_columns,omitempty"`
	Nullable          bool        `json:"nullable"`
	Cardinality       Cardinality `json:"cardinality"`
}

// Provider supplies entity/schema metadata to the analyzers. It is
// treated as read-only for the duration of an analysis run.
type Provider interface {
	// AllAssociations returns associations keyed by owning table name.
	AllAssociations() (map[string][]Association, error)
	// IdentifierColumns returns the primary-key column names of a table.
	IdentifierColumns(table string) ([]string, error)
}

// CachedProvider memoizes Provider results for one analysis run. The
// underlying lookups can be information_schema round trips, and every
// join analyzer repeats them per query, so caching here removes almost
// all of the metadata latency from a run.
type CachedProvider struct {
	provider Provider

	mu           sync.Mutex
	associations map[string][]Association
	assocLoaded  bool
	assocErr     error
	identifiers  map[string][]string
}

// NewCached wraps a provider with run-scoped memoization. A nil provider
// yields a cached provider that answers every lookup with no metadata.
func NewCached(provider Provider) *CachedProvider {
	return &CachedProvider{
		provider:    provider,
		identifiers: make(map[string][]string),
	}
}

// AllAssociations returns the memoized association map.
func (c *CachedProvider) AllAssociations() (map[string][]Association, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.assocLoaded {
		c.assocLoaded = true
		if c.provider != nil {
			c.associations, c.assocErr = c.provider.AllAssociations()
		}
	}
	return c.associations, c.assocErr
}

// IdentifierColumns returns the memoized identifier columns for table.
func (c *CachedProvider) IdentifierColumns(table string) ([]string, error) {
	key := strings.ToLower(table)
	c.mu.Lock()
	defer c.mu.Unlock()
	if ids, ok := c.identifiers[key]; ok {
		return ids, nil
	}
	if c.provider == nil {
		c.identifiers[key] = nil
		return nil, nil
	}
	ids, err := c.provider.IdentifierColumns(table)
	if err != nil {
		return nil, err
	}
	c.identifiers[key] = ids
	return ids, nil
}

// AssociationsFor returns the associations owned by table, or nil when
// the table is unknown. A miss is not an error: analyzers skip checks
// that need metadata they do not have.
func (c *CachedProvider) AssociationsFor(table string) []Association {
	all, err := c.AllAssociations()
	if err != nil {
		return nil
	}
	for name, assocs := range all {
		if strings.EqualFold(name, table) {
			return assocs
		}
	}
	return nil
}

// CollectionTargets reports whether any known association targeting the
// given table is a collection (ONE_TO_MANY / MANY_TO_MANY).
func (c *CachedProvider) CollectionTargets(table string) bool {
	all, err := c.AllAssociations()
	if err != nil {
		return false
	}
	for _, assocs := range all {
		for _, a := range assocs {
			if strings.EqualFold(a.TargetTable, table) && a.Cardinality.IsCollection() {
				return true
			}
		}
	}
	return false
}

// HasMetadata reports whether any association metadata is available at
// all.
func (c *CachedProvider) HasMetadata() bool {
	all, err := c.AllAssociations()
	return err == nil && len(all) > 0
}

// StaticProvider is an in-memory Provider, used by tests and by the HTTP
// API where callers post metadata alongside the trace.
type StaticProvider struct {
	Associations map[string][]Association
	Identifiers  map[string][]string
}

func (s *StaticProvider) AllAssociations() (map[string][]Association, error) {
	return s.Associations, nil
}

func (s *StaticProvider) IdentifierColumns(table string) ([]string, error) {
	for name, ids := range s.Identifiers {
		if strings.EqualFold(name, table) {
			return ids, nil
		}
	}
	return nil, nil
}
