package catalog

import (
	"context"
	"sync"

	"github.com/gameshelf/gameshelf/internal/gamesdb"
)

// genreLoader fetches the upstream genre taxonomy.
type genreLoader func(ctx context.Context) (*gamesdb.GenresResponse, error)

// genreCache holds the process-lifetime genre lookup. The taxonomy rarely
// changes, so it is populated lazily on first use and never invalidated
// within a process. Only successful loads are cached; a failed load returns
// empty results and the next call tries again.
type genreCache struct {
	mu     sync.Mutex
	load   genreLoader
	names  map[int]string
	list   []Genre
	loaded bool
}

func newGenreCache(load genreLoader) *genreCache {
	return &genreCache{load: load}
}

// lookup returns the id-to-name map, loading it on first use. Failures
// degrade to an empty map.
func (c *genreCache) lookup(ctx context.Context) map[int]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return map[int]string{}
	}
	return c.names
}

// genres returns the public genre list, loading it on first use. Failures
// degrade to an empty list.
func (c *genreCache) genres(ctx context.Context) []Genre {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return []Genre{}
	}
	return c.list
}

// reset clears the cache. Only used by tests; a process restart is the
// normal invalidation boundary.
func (c *genreCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.names = nil
	c.list = nil
}

func (c *genreCache) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	resp, err := c.load(ctx)
	if err != nil {
		return err
	}

	c.names = genreMapFromResponse(resp)
	c.list = genresFromResponse(resp)
	c.loaded = true
	return nil
}
