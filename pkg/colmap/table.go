package colmap

import (
	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// Record is an entity with its own edit bracket.
type Record interface {
	entity.Entity
	BeginEdit()
	CommitEdit()
}

// Variant is a group of columns that is only meaningful while Active holds.
// The XML backend nests the group in a sub-node named Name whose fields use Prefix.
type Variant[T any] struct {
	Name   string
	Prefix string
	Active func(T) bool
	Select func(T)
}

// Table is the complete storage description of one entity type.
type Table[T Record] struct {
	// TypeName is the entity type tag of the book collection.
	TypeName string
	// SQLName is the table or bucket name for row storage.
	SQLName string
	// Version is the current SQL schema version.
	Version int

	XMLTag     string
	XMLPrefix  string
	XMLVersion string

	Columns  []Column[T]
	Variants []Variant[T]

	// Links are the XML-only reference handlers written after the columns.
	// SkipLinks, when set, suppresses them for one record.
	Links     []Column[T]
	SkipLinks func(T) bool

	// Parent enables deferred parent resolution for self-referencing tables.
	Parent *ParentLink[T]

	// Adopt returns the record with the given GUID, creating a placeholder
	// carrying that GUID when the book does not hold one yet.
	Adopt func(b *entity.Book, g uuid.UUID) T

	// Scrub repairs structural damage after a bulk load.
	Scrub func(b *entity.Book)
}

// Lookup returns the record with GUID g.
func (t *Table[T]) Lookup(b *entity.Book, g uuid.UUID) (T, bool) {
	e := b.Lookup(t.TypeName, g)
	rec, ok := e.(T)
	return rec, ok
}

// All returns every live record of the table in GUID order.
func (t *Table[T]) All(b *entity.Book) []T {
	var out []T
	for _, e := range b.Collection(t.TypeName).Sorted() {
		if e.Instance().IsDestroying() {
			continue
		}
		if rec, ok := e.(T); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Column finds a column by name.
func (t *Table[T]) Column(name string) (Column[T], bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column[T]{}, false
}

// Key returns the primary key column.
func (t *Table[T]) Key() Column[T] {
	for _, c := range t.Columns {
		if c.Has(PrimaryKey) {
			return c
		}
	}
	return Column[T]{Name: "guid", Kind: KindGUID}
}
