package entity

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SlotKind is the type of value held in a slot.
type SlotKind int

const (
	SlotInt64 SlotKind = iota + 1
	SlotDouble
	SlotNumeric
	SlotString
	SlotGUID
)

var slotKindNames = map[SlotKind]string{
	SlotInt64:   "integer",
	SlotDouble:  "double",
	SlotNumeric: "numeric",
	SlotString:  "string",
	SlotGUID:    "guid",
}

// String returns the name used for the kind in persisted data.
func (k SlotKind) String() string {
	if name, ok := slotKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseSlotKind maps a persisted kind name back to a SlotKind.
func ParseSlotKind(name string) (SlotKind, error) {
	for k, n := range slotKindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown slot type %q", name)
}

// Slot is one typed value in an entity's extension frame.
type Slot struct {
	Kind   SlotKind
	Int    int64
	Double float64
	Num    decimal.Decimal
	Str    string
	GUID   uuid.UUID
}

// Int64Slot wraps an integer.
func Int64Slot(v int64) Slot { return Slot{Kind: SlotInt64, Int: v} }

// StringSlot wraps a string.
func StringSlot(v string) Slot { return Slot{Kind: SlotString, Str: v} }

// NumericSlot wraps a decimal number.
func NumericSlot(v decimal.Decimal) Slot { return Slot{Kind: SlotNumeric, Num: v} }

// GUIDSlot wraps a GUID.
func GUIDSlot(v uuid.UUID) Slot { return Slot{Kind: SlotGUID, GUID: v} }

// DoubleSlot wraps a float.
func DoubleSlot(v float64) Slot { return Slot{Kind: SlotDouble, Double: v} }

// Text renders the slot value for text based backends.
func (s Slot) Text() string {
	switch s.Kind {
	case SlotInt64:
		return strconv.FormatInt(s.Int, 10)
	case SlotDouble:
		return strconv.FormatFloat(s.Double, 'g', -1, 64)
	case SlotNumeric:
		return s.Num.String()
	case SlotString:
		return s.Str
	case SlotGUID:
		return GUIDString(s.GUID)
	}
	return ""
}

// Equal compares kind and value.
func (s Slot) Equal(o Slot) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case SlotInt64:
		return s.Int == o.Int
	case SlotDouble:
		return s.Double == o.Double
	case SlotNumeric:
		return s.Num.Equal(o.Num)
	case SlotString:
		return s.Str == o.Str
	case SlotGUID:
		return s.GUID == o.GUID
	}
	return true
}

// ParseSlot decodes text produced by Slot.Text.
func ParseSlot(kind SlotKind, text string) (Slot, error) {
	switch kind {
	case SlotInt64:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Slot{}, fmt.Errorf("invalid integer slot %q: %w", text, err)
		}
		return Int64Slot(v), nil
	case SlotDouble:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Slot{}, fmt.Errorf("invalid double slot %q: %w", text, err)
		}
		return DoubleSlot(v), nil
	case SlotNumeric:
		v, err := decimal.NewFromString(text)
		if err != nil {
			return Slot{}, fmt.Errorf("invalid numeric slot %q: %w", text, err)
		}
		return NumericSlot(v), nil
	case SlotString:
		return StringSlot(text), nil
	case SlotGUID:
		g, err := ParseGUID(text)
		if err != nil {
			return Slot{}, err
		}
		return GUIDSlot(g), nil
	}
	return Slot{}, fmt.Errorf("unknown slot kind %d", kind)
}

// Frame is the open key/value extension area attached to every entity.
// It holds sparse attributes that have no column of their own.
type Frame struct {
	slots map[string]Slot
}

// Get returns the slot stored under key.
func (f *Frame) Get(key string) (Slot, bool) {
	if f.slots == nil {
		return Slot{}, false
	}
	s, ok := f.slots[key]
	return s, ok
}

// Set stores a slot, replacing any previous value.
func (f *Frame) Set(key string, s Slot) {
	if f.slots == nil {
		f.slots = make(map[string]Slot)
	}
	f.slots[key] = s
}

// Delete removes key. It reports whether anything was removed.
func (f *Frame) Delete(key string) bool {
	if _, ok := f.slots[key]; !ok {
		return false
	}
	delete(f.slots, key)
	return true
}

// Keys returns the slot keys in sorted order.
func (f *Frame) Keys() []string {
	keys := make([]string, 0, len(f.slots))
	for k := range f.slots {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of slots.
func (f *Frame) Len() int {
	return len(f.slots)
}

// Clear removes every slot.
func (f *Frame) Clear() {
	f.slots = nil
}
