package sqlbackend

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bizbook/pkg/colmap"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// row is one fetched record keyed by field name.
type row map[string]any

var ten = big.NewInt(10)

// numericParts splits a decimal into an exact int64 num/denom pair.
func numericParts(d decimal.Decimal) (int64, int64, error) {
	num := new(big.Int).Set(d.Coefficient())
	denom := big.NewInt(1)
	if exp := d.Exponent(); exp >= 0 {
		num.Mul(num, new(big.Int).Exp(ten, big.NewInt(int64(exp)), nil))
	} else {
		denom.Exp(ten, big.NewInt(int64(-exp)), nil)
	}
	if !num.IsInt64() || !denom.IsInt64() {
		return 0, 0, fmt.Errorf("numeric %s does not fit 64 bit storage", d)
	}
	return num.Int64(), denom.Int64(), nil
}

func numericFromParts(num, denom int64) decimal.Decimal {
	if denom == 0 {
		return decimal.Zero
	}
	d := decimal.NewFromInt(num)
	if denom == 1 {
		return d
	}
	return d.DivRound(decimal.NewFromInt(denom), int32(len(strconv.FormatInt(denom, 10))))
}

// fieldArgs expands a column value into SQL arguments, one per field.
func fieldArgs(v colmap.Value) ([]any, error) {
	switch v.Kind {
	case colmap.KindString:
		return []any{v.Str}, nil
	case colmap.KindInt, colmap.KindInt64:
		return []any{v.Int}, nil
	case colmap.KindBool:
		if v.Bool {
			return []any{int64(1)}, nil
		}
		return []any{int64(0)}, nil
	case colmap.KindGUID:
		return []any{guidArg(v.GUID)}, nil
	case colmap.KindNumeric:
		num, denom, err := numericParts(v.Num)
		if err != nil {
			return nil, err
		}
		return []any{num, denom}, nil
	case colmap.KindOwner:
		if v.Owner.GUID == uuid.Nil && v.Owner.Type == 0 {
			return []any{nil, nil}, nil
		}
		return []any{int64(v.Owner.Type), guidArg(v.Owner.GUID)}, nil
	case colmap.KindAddress:
		out := make([]any, len(v.Addr))
		for i, s := range v.Addr {
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported column kind %s", v.Kind)
}

func guidArg(g uuid.UUID) any {
	if g == uuid.Nil {
		return nil
	}
	return entity.GUIDString(g)
}

// decodeFields reads a column value from r. ok is false when none of the
// column's fields exist in the row.
func decodeFields(kind colmap.Kind, fields []string, r row) (v colmap.Value, ok bool, err error) {
	v.Kind = kind
	vals := make([]any, len(fields))
	for i, f := range fields {
		val, present := r[f]
		ok = ok || present
		vals[i] = val
	}
	if !ok {
		return v, false, nil
	}

	switch kind {
	case colmap.KindString:
		v.Str = asString(vals[0])
	case colmap.KindInt, colmap.KindInt64:
		v.Int, err = asInt64(vals[0])
	case colmap.KindBool:
		var n int64
		n, err = asInt64(vals[0])
		v.Bool = n != 0
	case colmap.KindGUID:
		v.GUID, err = entity.ParseGUID(asString(vals[0]))
	case colmap.KindNumeric:
		var num, denom int64
		if num, err = asInt64(vals[0]); err == nil {
			denom, err = asInt64(vals[1])
		}
		v.Num = numericFromParts(num, denom)
	case colmap.KindOwner:
		var typ int64
		if typ, err = asInt64(vals[0]); err == nil {
			v.Owner.Type = int(typ)
			v.Owner.GUID, err = entity.ParseGUID(asString(vals[1]))
		}
	case colmap.KindAddress:
		for i := range v.Addr {
			v.Addr[i] = asString(vals[i])
		}
	default:
		err = fmt.Errorf("unsupported column kind %s", kind)
	}
	return v, true, err
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

func asInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string, []byte:
		s := asString(x)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q: %w", s, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unexpected %T for integer field", v)
}
