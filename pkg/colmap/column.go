// Package colmap declares how entity fields map onto persisted columns.
// One table per entity type drives the XML, SQL and bolt backends alike;
// accessors go through the entity's public getters and setters only.
package colmap

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Flag is a set of column constraints.
type Flag uint8

const (
	// NotNull columns reject NULL in SQL storage.
	NotNull Flag = 1 << iota
	// PrimaryKey marks the identity column.
	PrimaryKey
	// Structural columns are stored by the row oriented backends but the XML
	// backend writes them through the table's Links instead.
	Structural
	// Discriminant marks the column that selects the active Variant.
	Discriminant
)

// Column maps one entity field onto storage.
// Set may be nil for columns that are only written.
type Column[T any] struct {
	Name    string
	Size    int
	Flags   Flag
	Kind    Kind
	Variant string
	Get     func(T) Value
	Set     func(T, Value)
}

// Has reports whether all bits of f are set.
func (c Column[T]) Has(f Flag) bool {
	return c.Flags&f == f
}

// Nullable reports whether the column accepts NULL.
func (c Column[T]) Nullable() bool {
	return c.Flags&(NotNull|PrimaryKey) == 0
}

// In returns a copy of the column that belongs to the named variant.
func (c Column[T]) In(variant string) Column[T] {
	c.Variant = variant
	return c
}

// XMLName returns the local XML tag for the column.
func (c Column[T]) XMLName() string {
	return strings.ReplaceAll(c.Name, "_", "-")
}

// Fields returns the physical field names the column occupies in row storage.
// Composite kinds spread over several fields.
func (c Column[T]) Fields() []string {
	switch c.Kind {
	case KindOwner:
		return []string{c.Name + "_type", c.Name + "_guid"}
	case KindNumeric:
		return []string{c.Name + "_num", c.Name + "_denom"}
	case KindAddress:
		out := make([]string, len(AddressFields))
		for i, f := range AddressFields {
			out[i] = c.Name + "_" + f
		}
		return out
	}
	return []string{c.Name}
}

// String maps a string field. size limits the stored length, 0 means unbounded.
func String[T any](name string, size int, flags Flag, get func(T) string, set func(T, string)) Column[T] {
	c := Column[T]{Name: name, Size: size, Flags: flags, Kind: KindString,
		Get: func(t T) Value { return Value{Kind: KindString, Str: get(t)} }}
	if set != nil {
		c.Set = func(t T, v Value) { set(t, v.Str) }
	}
	return c
}

// Int maps a 32 bit integer field.
func Int[T any](name string, flags Flag, get func(T) int, set func(T, int)) Column[T] {
	c := Column[T]{Name: name, Flags: flags, Kind: KindInt,
		Get: func(t T) Value { return Value{Kind: KindInt, Int: int64(get(t))} }}
	if set != nil {
		c.Set = func(t T, v Value) { set(t, int(v.Int)) }
	}
	return c
}

// Int64 maps a 64 bit integer field.
func Int64[T any](name string, flags Flag, get func(T) int64, set func(T, int64)) Column[T] {
	c := Column[T]{Name: name, Flags: flags, Kind: KindInt64,
		Get: func(t T) Value { return Value{Kind: KindInt64, Int: get(t)} }}
	if set != nil {
		c.Set = func(t T, v Value) { set(t, v.Int) }
	}
	return c
}

// Bool maps a boolean field.
func Bool[T any](name string, flags Flag, get func(T) bool, set func(T, bool)) Column[T] {
	c := Column[T]{Name: name, Flags: flags, Kind: KindBool,
		Get: func(t T) Value { return Value{Kind: KindBool, Bool: get(t)} }}
	if set != nil {
		c.Set = func(t T, v Value) { set(t, v.Bool) }
	}
	return c
}

// GUID maps an identity or reference field. uuid.Nil is stored as NULL.
func GUID[T any](name string, flags Flag, get func(T) uuid.UUID, set func(T, uuid.UUID)) Column[T] {
	c := Column[T]{Name: name, Flags: flags, Kind: KindGUID,
		Get: func(t T) Value { return Value{Kind: KindGUID, GUID: get(t)} }}
	if set != nil {
		c.Set = func(t T, v Value) { set(t, v.GUID) }
	}
	return c
}

// Numeric maps a decimal field.
func Numeric[T any](name string, flags Flag, get func(T) decimal.Decimal, set func(T, decimal.Decimal)) Column[T] {
	c := Column[T]{Name: name, Flags: flags, Kind: KindNumeric,
		Get: func(t T) Value { return Value{Kind: KindNumeric, Num: get(t)} }}
	if set != nil {
		c.Set = func(t T, v Value) { set(t, v.Num) }
	}
	return c
}

// Owner maps a polymorphic owner reference.
func Owner[T any](name string, flags Flag, get func(T) OwnerRef, set func(T, OwnerRef)) Column[T] {
	c := Column[T]{Name: name, Flags: flags, Kind: KindOwner,
		Get: func(t T) Value { return Value{Kind: KindOwner, Owner: get(t)} }}
	if set != nil {
		c.Set = func(t T, v Value) { set(t, v.Owner) }
	}
	return c
}

// Address maps an address sub-object.
func Address[T any](name string, flags Flag, get func(T) AddressValue, set func(T, AddressValue)) Column[T] {
	c := Column[T]{Name: name, Flags: flags, Kind: KindAddress,
		Get: func(t T) Value { return Value{Kind: KindAddress, Addr: get(t)} }}
	if set != nil {
		c.Set = func(t T, v Value) { set(t, v.Addr) }
	}
	return c
}
