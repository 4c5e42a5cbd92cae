package sqlparse

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheReturnsSameFacts(t *testing.T) {
	cache := NewCache(New())

	sql := "SELECT * FROM orders o JOIN customers c ON o.customer_id = c.id"
	first := cache.Facts(sql)
	second := cache.Facts(sql)

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheDistinctQueries(t *testing.T) {
	cache := NewCache(New())

	a := cache.Facts("SELECT * FROM orders")
	b := cache.Facts("SELECT * FROM customers")

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, cache.Len())
}

func TestCacheBounded(t *testing.T) {
	cache := NewCache(New())

	for i := 0; i < defaultMaxEntries+100; i++ {
		cache.Facts(fmt.Sprintf("SELECT * FROM t WHERE id = %d", i))
	}
	assert.LessOrEqual(t, cache.Len(), defaultMaxEntries)
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewCache(New())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				facts := cache.Facts("SELECT * FROM users u JOIN roles r ON u.role_id = r.id")
				assert.Len(t, facts.Joins, 1)
			}
		}()
	}
	wg.Wait()
}
