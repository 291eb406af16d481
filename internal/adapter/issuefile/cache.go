package issuefile

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a ristretto-backed cache of raw issue file contents keyed by
// issue id. It only short-circuits disk reads; writers always refresh it.
type Cache struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

// NewCache creates a read cache. maxCostBytes is the maximum total size of
// cached file contents in bytes.
func NewCache(maxCostBytes int64, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

func (rc *Cache) get(id string) ([]byte, bool) {
	return rc.c.Get(id)
}

func (rc *Cache) set(id string, data []byte) {
	rc.c.SetWithTTL(id, data, int64(len(data)), rc.ttl)
}

func (rc *Cache) del(id string) {
	rc.c.Del(id)
}

// Close releases the cache's resources.
func (rc *Cache) Close() {
	if rc != nil && rc.c != nil {
		rc.c.Close()
	}
}
