package engine

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// LoadFunc reads a dataset source into a Table.
type LoadFunc func(ctx context.Context, src string) (*Table, error)

// Cache keeps the first successfully loaded Table for the process lifetime.
// Concurrent callers arriving before the table is warm share a single load;
// failed loads are not cached, so a later call retries the source.
type Cache struct {
	src   string
	load  LoadFunc
	group singleflight.Group
	table atomic.Pointer[Table]
}

func NewCache(src string) *Cache {
	return &Cache{src: src, load: Load}
}

// NewCacheWith uses fn instead of Load.
func NewCacheWith(src string, fn LoadFunc) *Cache {
	return &Cache{src: src, load: fn}
}

// Load returns the cached Table, loading it on first use.
func (c *Cache) Load(ctx context.Context) (*Table, error) {
	if t := c.table.Load(); t != nil {
		return t, nil
	}
	v, err, _ := c.group.Do(c.src, func() (interface{}, error) {
		if t := c.table.Load(); t != nil {
			return t, nil
		}
		t, err := c.load(ctx, c.src)
		if err != nil {
			return nil, err
		}
		c.table.Store(t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// Table returns the cached Table without loading, or nil if cold.
func (c *Cache) Table() *Table {
	return c.table.Load()
}
