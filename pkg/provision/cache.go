// Package provision fans desired records out to the configured adapters and
// remembers which (adapter, settings, records) combinations it already sent.
package provision

import (
	"fmt"
	"sync"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/mitchellh/hashstructure/v2"
)

// Cache remembers provisioning attempts for the lifetime of the process.
// Entries are never evicted and never persisted.
type Cache struct {
	lock      sync.Mutex
	attempted map[uint64]struct{}
}

func NewCache() *Cache {
	return &Cache{attempted: map[uint64]struct{}{}}
}

type cacheKey struct {
	Adapter  string
	Settings map[string]string
	Records  []model.Record
}

// Key hashes the attempt. Settings are hashed order-independently and records
// are sorted first, so equal inputs always give equal keys.
func Key(adapter string, settings map[string]string, records []model.Record) (uint64, error) {
	sorted := make([]model.Record, len(records))
	copy(sorted, records)
	model.SortRecords(sorted)

	h, err := hashstructure.Hash(cacheKey{
		Adapter:  adapter,
		Settings: settings,
		Records:  sorted,
	}, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("hashing provision key for %s: %w", adapter, err)
	}
	return h, nil
}

// Mark records key as attempted. It returns false if it already was.
func (c *Cache) Mark(key uint64) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, ok := c.attempted[key]; ok {
		return false
	}
	c.attempted[key] = struct{}{}
	return true
}

// Forget drops key so the next attempt goes through.
func (c *Cache) Forget(key uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.attempted, key)
}

func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.attempted)
}
