package colmap

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindInt64
	KindBool
	KindGUID
	KindNumeric
	KindOwner
	KindAddress
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindInt64:
		return "int64"
	case KindBool:
		return "boolean"
	case KindGUID:
		return "guid"
	case KindNumeric:
		return "numeric"
	case KindOwner:
		return "owner"
	case KindAddress:
		return "address"
	}
	return "unknown"
}

// OwnerRef is the persisted form of a polymorphic owner reference.
// Type is the numeric owner type, TypeName the entity type tag of the payload.
type OwnerRef struct {
	Type     int
	TypeName string
	GUID     uuid.UUID
}

// AddressFields names the parts of an address in persisted order.
var AddressFields = [...]string{"name", "addr1", "addr2", "addr3", "addr4", "phone", "fax", "email"}

// AddressValue holds one string per entry of AddressFields.
type AddressValue [len(AddressFields)]string

// Value carries one column value between an accessor and a backend.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Bool  bool
	GUID  uuid.UUID
	Num   decimal.Decimal
	Owner OwnerRef
	Addr  AddressValue
}

// Text renders a scalar value for text based backends.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt, KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case KindBool:
		if v.Bool {
			return "1"
		}
		return "0"
	case KindGUID:
		return entity.GUIDString(v.GUID)
	case KindNumeric:
		return v.Num.String()
	}
	return ""
}

// ParseText decodes a scalar value written by Text.
func ParseText(kind Kind, s string) (Value, error) {
	v := Value{Kind: kind}
	switch kind {
	case KindString:
		v.Str = s
	case KindInt, KindInt64:
		if s == "" {
			return v, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return v, fmt.Errorf("invalid %s value %q: %w", kind, s, err)
		}
		v.Int = n
	case KindBool:
		switch s {
		case "1", "true", "TRUE", "T", "t":
			v.Bool = true
		case "", "0", "false", "FALSE", "F", "f":
		default:
			return v, fmt.Errorf("invalid boolean value %q", s)
		}
	case KindGUID:
		g, err := entity.ParseGUID(s)
		if err != nil {
			return v, err
		}
		v.GUID = g
	case KindNumeric:
		if s == "" {
			v.Num = decimal.Zero
			return v, nil
		}
		n, err := decimal.NewFromString(s)
		if err != nil {
			return v, fmt.Errorf("invalid numeric value %q: %w", s, err)
		}
		v.Num = n
	default:
		return v, fmt.Errorf("%s is not a scalar kind", kind)
	}
	return v, nil
}

// IsScalar reports whether the kind maps onto a single stored value.
func (k Kind) IsScalar() bool {
	return k != KindOwner && k != KindAddress
}
