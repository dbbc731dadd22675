package xmlbackend

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

const (
	ownerPrefix   = "owner"
	addressPrefix = "addr"
	slotPrefix    = "slot"
	nodeVersion   = "2.0.0"
)

// formatNumeric writes a decimal as an exact num/denom rational.
func formatNumeric(d decimal.Decimal) string {
	exp := d.Exponent()
	num := new(big.Int).Set(d.Coefficient())
	denom := big.NewInt(1)
	if exp >= 0 {
		num.Mul(num, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
	} else {
		denom.Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
	}
	return num.String() + "/" + denom.String()
}

// parseNumeric accepts num/denom rationals and plain decimals.
func parseNumeric(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	numText, denomText, ok := strings.Cut(s, "/")
	if !ok {
		return decimal.NewFromString(s)
	}
	num, err := decimal.NewFromString(numText)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid numerator in %q: %w", s, err)
	}
	denom, err := decimal.NewFromString(denomText)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid denominator in %q: %w", s, err)
	}
	if denom.IsZero() {
		return decimal.Zero, fmt.Errorf("zero denominator in %q", s)
	}
	return num.DivRound(denom, int32(len(denomText))), nil
}

// encodeValue appends el's content for v. It returns false when the value
// is absent and the element should not be written at all.
func encodeValue(el *etree.Element, v colmap.Value) bool {
	switch v.Kind {
	case colmap.KindGUID:
		if v.GUID == uuid.Nil {
			return false
		}
		el.CreateAttr("type", "guid")
		el.SetText(entity.GUIDString(v.GUID))
	case colmap.KindNumeric:
		el.SetText(formatNumeric(v.Num))
	case colmap.KindOwner:
		if v.Owner.TypeName == "" && v.Owner.GUID == uuid.Nil {
			return false
		}
		el.CreateAttr("version", nodeVersion)
		el.CreateElement(ownerPrefix + ":type").SetText(v.Owner.TypeName)
		id := el.CreateElement(ownerPrefix + ":id")
		id.CreateAttr("type", "guid")
		id.SetText(entity.GUIDString(v.Owner.GUID))
	case colmap.KindAddress:
		if v.Addr == (colmap.AddressValue{}) {
			return false
		}
		el.CreateAttr("version", nodeVersion)
		for i, f := range colmap.AddressFields {
			if v.Addr[i] == "" {
				continue
			}
			el.CreateElement(addressPrefix + ":" + f).SetText(v.Addr[i])
		}
	default:
		el.SetText(v.Text())
	}
	return true
}

// decodeValue reads a value of the given kind from el.
func decodeValue(kind colmap.Kind, el *etree.Element) (colmap.Value, error) {
	switch kind {
	case colmap.KindNumeric:
		n, err := parseNumeric(el.Text())
		if err != nil {
			return colmap.Value{}, err
		}
		return colmap.Value{Kind: kind, Num: n}, nil
	case colmap.KindOwner:
		v := colmap.Value{Kind: kind}
		for _, child := range el.ChildElements() {
			switch child.FullTag() {
			case ownerPrefix + ":type":
				v.Owner.TypeName = strings.TrimSpace(child.Text())
			case ownerPrefix + ":id":
				g, err := entity.ParseGUID(strings.TrimSpace(child.Text()))
				if err != nil {
					return v, fmt.Errorf("invalid owner id: %w", err)
				}
				v.Owner.GUID = g
			}
		}
		return v, nil
	case colmap.KindAddress:
		v := colmap.Value{Kind: kind}
		for _, child := range el.ChildElements() {
			for i, f := range colmap.AddressFields {
				if child.FullTag() == addressPrefix+":"+f {
					v.Addr[i] = child.Text()
				}
			}
		}
		return v, nil
	case colmap.KindString:
		return colmap.Value{Kind: kind, Str: el.Text()}, nil
	}
	return colmap.ParseText(kind, strings.TrimSpace(el.Text()))
}

// encodeSlots writes the extension frame, or nothing when it is empty.
func encodeSlots(parent *etree.Element, tag string, f *entity.Frame) {
	if f.Len() == 0 {
		return
	}
	slots := parent.CreateElement(tag)
	for _, key := range f.Keys() {
		s, _ := f.Get(key)
		slot := slots.CreateElement("slot")
		slot.CreateElement(slotPrefix + ":key").SetText(key)
		val := slot.CreateElement(slotPrefix + ":value")
		val.CreateAttr("type", s.Kind.String())
		val.SetText(s.Text())
	}
}

// decodeSlots merges the slots under el into f.
func decodeSlots(el *etree.Element, f *entity.Frame) error {
	for _, slot := range el.SelectElements("slot") {
		keyEl := slot.SelectElement(slotPrefix + ":key")
		valEl := slot.SelectElement(slotPrefix + ":value")
		if keyEl == nil || valEl == nil {
			return fmt.Errorf("slot without key or value")
		}
		kind, err := entity.ParseSlotKind(valEl.SelectAttrValue("type", ""))
		if err != nil {
			return fmt.Errorf("slot %q: %w", keyEl.Text(), err)
		}
		s, err := entity.ParseSlot(kind, valEl.Text())
		if err != nil {
			return fmt.Errorf("slot %q: %w", keyEl.Text(), err)
		}
		f.Set(keyEl.Text(), s)
	}
	return nil
}
