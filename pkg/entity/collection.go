package entity

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
)

// Collection holds every entity of one type that belongs to a book.
type Collection struct {
	typeName string
	items    map[uuid.UUID]Entity
	dirty    bool
}

func newCollection(typeName string) *Collection {
	return &Collection{
		typeName: typeName,
		items:    make(map[uuid.UUID]Entity),
	}
}

// TypeName returns the entity type stored in the collection.
func (c *Collection) TypeName() string {
	return c.typeName
}

// Lookup returns the entity with the given GUID, or nil.
func (c *Collection) Lookup(g uuid.UUID) Entity {
	if g == uuid.Nil {
		return nil
	}
	return c.items[g]
}

// Len returns the number of entities in the collection.
func (c *Collection) Len() int {
	return len(c.items)
}

// IsDirty reports whether any entity in the collection changed since the last save.
func (c *Collection) IsDirty() bool {
	return c.dirty
}

// ForEach calls fn for every entity in GUID order.
// fn may destroy the entity it is given.
func (c *Collection) ForEach(fn func(Entity)) {
	for _, e := range c.Sorted() {
		if c.items[e.Instance().guid] != e {
			continue
		}
		fn(e)
	}
}

// Sorted returns the entities ordered by GUID, giving backends a stable write order.
func (c *Collection) Sorted() []Entity {
	out := make([]Entity, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entity) int {
		ga, gb := a.Instance().guid, b.Instance().guid
		return bytes.Compare(ga[:], gb[:])
	})
	return out
}

func (c *Collection) insert(e Entity) {
	c.items[e.Instance().guid] = e
}

func (c *Collection) remove(e Entity) {
	g := e.Instance().guid
	if c.items[g] == e {
		delete(c.items, g)
	}
}
