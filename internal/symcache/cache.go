// Package symcache memoizes resolved symbols for batch consumers. The cache
// is owned by the caller and kept coherent by database change events; the
// symbol package itself never caches.
package symcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"symres/internal/database"
	"symres/internal/symbol"
)

// DefaultSize is the number of entries kept when New is given size <= 0.
const DefaultSize = 4096

// Entry is a snapshot of one symbol's resolved facts.
type Entry struct {
	Address    uint64 `json:"address"`
	RawName    string `json:"raw_name"`
	Name       string `json:"name"`
	IsFunction bool   `json:"is_function"`
	IsImport   bool   `json:"is_import"`
	IsLabel    bool   `json:"is_label"`
	IsReadOnly bool   `json:"is_read_only"`
}

// Source publishes database changes.
type Source interface {
	Subscribe(fn func(database.Event)) (cancel func())
}

type Cache struct {
	loc    *symbol.Locator
	lru    *lru.Cache[uint64, Entry]
	cancel func()
}

// New returns a cache over loc, invalidated by events from src.
func New(loc *symbol.Locator, src Source, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[uint64, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("symbol cache: %w", err)
	}
	c := &Cache{loc: loc, lru: l}
	if src != nil {
		c.cancel = src.Subscribe(c.invalidate)
	}
	return c, nil
}

// Close stops listening for database events.
func (c *Cache) Close() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Resolve returns the cached entry for ea, resolving it on a miss.
func (c *Cache) Resolve(ea uint64) (Entry, bool) {
	if e, ok := c.lru.Get(ea); ok {
		return e, true
	}
	sym, ok := c.loc.Find(ea)
	if !ok {
		return Entry{}, false
	}
	e := Entry{
		Address:    ea,
		RawName:    sym.RawName(),
		Name:       sym.Name(),
		IsFunction: sym.IsFunction(),
		IsImport:   sym.IsImport(),
		IsLabel:    sym.IsLabel(),
		IsReadOnly: sym.IsReadOnly(),
	}
	c.lru.Add(ea, e)
	return e, true
}

// Len is the number of cached entries.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge drops every entry.
func (c *Cache) Purge() { c.lru.Purge() }

func (c *Cache) invalidate(ev database.Event) {
	switch ev.Kind {
	case database.EventRename:
		c.lru.Remove(ev.Address)
	case database.EventFrame:
		// frames do not feed any cached fact
	default:
		// Imports, segments, functions and xrefs can flip facts of any
		// number of addresses.
		c.lru.Purge()
	}
}
