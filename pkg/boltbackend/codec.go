package boltbackend

import (
	"fmt"
	"strconv"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// document is the JSON value stored per record, keyed by its GUID.
type document struct {
	Fields map[string]string `json:"fields"`
	Slots  []slotDocument    `json:"slots,omitempty"`
}

type slotDocument struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// putValue spreads v over the column's fields.
func putValue(m map[string]string, fields []string, v colmap.Value) {
	switch v.Kind {
	case colmap.KindOwner:
		if v.Owner.Type != 0 {
			m[fields[0]] = strconv.Itoa(v.Owner.Type)
		}
		if g := entity.GUIDString(v.Owner.GUID); g != "" {
			m[fields[1]] = g
		}
	case colmap.KindAddress:
		for i, s := range v.Addr {
			if s != "" {
				m[fields[i]] = s
			}
		}
	default:
		m[fields[0]] = v.Text()
	}
}

// getValue reads a column value back. ok is false when no field is stored.
func getValue(m map[string]string, kind colmap.Kind, fields []string) (v colmap.Value, ok bool, err error) {
	for _, f := range fields {
		if _, present := m[f]; present {
			ok = true
			break
		}
	}
	if !ok {
		return colmap.Value{Kind: kind}, false, nil
	}

	switch kind {
	case colmap.KindOwner:
		v.Kind = kind
		if s := m[fields[0]]; s != "" {
			if v.Owner.Type, err = strconv.Atoi(s); err != nil {
				return v, true, fmt.Errorf("invalid owner type %q: %w", s, err)
			}
		}
		v.Owner.GUID, err = entity.ParseGUID(m[fields[1]])
		return v, true, err
	case colmap.KindAddress:
		v.Kind = kind
		for i, f := range fields {
			v.Addr[i] = m[f]
		}
		return v, true, nil
	}
	v, err = colmap.ParseText(kind, m[fields[0]])
	return v, true, err
}

func encodeSlots(f *entity.Frame) []slotDocument {
	var out []slotDocument
	for _, key := range f.Keys() {
		s, _ := f.Get(key)
		out = append(out, slotDocument{Key: key, Type: s.Kind.String(), Value: s.Text()})
	}
	return out
}

func decodeSlots(f *entity.Frame, docs []slotDocument) error {
	for _, d := range docs {
		kind, err := entity.ParseSlotKind(d.Type)
		if err != nil {
			return err
		}
		s, err := entity.ParseSlot(kind, d.Value)
		if err != nil {
			return fmt.Errorf("slot %s: %w", d.Key, err)
		}
		f.Set(d.Key, s)
	}
	return nil
}
