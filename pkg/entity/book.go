// Package entity provides the identity, edit-bracketing and event layer that
// every business object is built on, plus the Book that owns them.
package entity

import (
	"reflect"
	"slices"

	"github.com/google/uuid"
)

// Backend receives committed entities when a book is attached to live storage.
type Backend interface {
	Commit(e Entity) error
	Delete(e Entity) error
}

// Book owns one typed collection per entity type, the shared string cache,
// event handlers and per-type extension data.
type Book struct {
	guid          uuid.UUID
	collections   map[string]*Collection
	strings       *StringCache
	backend       Backend
	handlers      []handlerEntry
	nextHandlerID int
	eventSuspend  int
	extensions    map[reflect.Type]any
}

// NewBook creates an empty book with a fresh GUID.
func NewBook() *Book {
	return &Book{
		guid:        NewGUID(),
		collections: make(map[string]*Collection),
		strings:     NewStringCache(),
		extensions:  make(map[reflect.Type]any),
	}
}

// GUID returns the book identifier.
func (b *Book) GUID() uuid.UUID {
	return b.guid
}

// SetGUID replaces the book identifier with a persisted one.
func (b *Book) SetGUID(g uuid.UUID) {
	if g != uuid.Nil {
		b.guid = g
	}
}

// Collection returns the collection for typeName, creating it on first use.
func (b *Book) Collection(typeName string) *Collection {
	c, ok := b.collections[typeName]
	if !ok {
		c = newCollection(typeName)
		b.collections[typeName] = c
	}
	return c
}

// Lookup finds an entity by type and GUID. It returns nil when absent.
func (b *Book) Lookup(typeName string, g uuid.UUID) Entity {
	if b == nil {
		return nil
	}
	c, ok := b.collections[typeName]
	if !ok {
		return nil
	}
	return c.Lookup(g)
}

// TypeNames returns the names of all collections in sorted order.
func (b *Book) TypeNames() []string {
	names := make([]string, 0, len(b.collections))
	for name := range b.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Strings returns the book's string cache.
func (b *Book) Strings() *StringCache {
	return b.strings
}

// SetBackend attaches live storage. Pass nil to detach.
func (b *Book) SetBackend(be Backend) {
	b.backend = be
}

// Backend returns the attached storage, if any.
func (b *Book) Backend() Backend {
	return b.backend
}

// IsDirty reports whether any collection changed since the last save.
func (b *Book) IsDirty() bool {
	for _, c := range b.collections {
		if c.dirty {
			return true
		}
	}
	return false
}

// DirtyEntities returns every entity with unsaved changes.
func (b *Book) DirtyEntities() []Entity {
	var out []Entity
	for _, name := range b.TypeNames() {
		for _, e := range b.collections[name].Sorted() {
			if e.Instance().dirty {
				out = append(out, e)
			}
		}
	}
	return out
}

// MarkSaved clears the dirty state of every entity and collection.
func (b *Book) MarkSaved() {
	for _, c := range b.collections {
		c.dirty = false
		for _, e := range c.items {
			e.Instance().MarkClean()
		}
	}
}

// Extension returns the book's value of type T, creating it with init on first use.
// Domain packages keep per-book registries here, keyed by their own types.
func Extension[T any](b *Book, init func() *T) *T {
	key := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := b.extensions[key]; ok {
		return v.(*T)
	}
	v := init()
	b.extensions[key] = v
	return v
}
