package script

import (
	"fmt"
	"math/big"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ToValue converts decoded data (YAML, JSON, loader results) into a cty value.
// Maps become objects and slices become tuples so heterogeneous data keeps
// its shape. Times are rendered as RFC 3339 strings.
func ToValue(v any) (cty.Value, error) {
	switch vv := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return vv, nil
	case string:
		return cty.StringVal(vv), nil
	case bool:
		return cty.BoolVal(vv), nil
	case int:
		return cty.NumberIntVal(int64(vv)), nil
	case int32:
		return cty.NumberIntVal(int64(vv)), nil
	case int64:
		return cty.NumberIntVal(vv), nil
	case uint:
		return cty.NumberUIntVal(uint64(vv)), nil
	case uint64:
		return cty.NumberUIntVal(vv), nil
	case float32:
		return cty.NumberFloatVal(float64(vv)), nil
	case float64:
		return cty.NumberFloatVal(vv), nil
	case time.Time:
		return cty.StringVal(vv.Format(time.RFC3339)), nil
	case map[string]any:
		if len(vv) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(vv))
		for k, item := range vv {
			cv, err := ToValue(item)
			if err != nil {
				return cty.NilVal, fmt.Errorf("%s: %w", k, err)
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	case map[any]any:
		converted := make(map[string]any, len(vv))
		for k, item := range vv {
			converted[fmt.Sprint(k)] = item
		}
		return ToValue(converted)
	case []any:
		if len(vv) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(vv))
		for i, item := range vv {
			cv, err := ToValue(item)
			if err != nil {
				return cty.NilVal, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = cv
		}
		return cty.TupleVal(elems), nil
	case []string:
		items := make([]any, len(vv))
		for i, s := range vv {
			items[i] = s
		}
		return ToValue(items)
	case []map[string]any:
		items := make([]any, len(vv))
		for i, m := range vv {
			items[i] = m
		}
		return ToValue(items)
	default:
		return cty.NilVal, fmt.Errorf("unsupported value type %T", v)
	}
}

// FromValue converts a known cty value into plain Go data: maps, slices,
// strings, bools, int for integral numbers and float64 otherwise.
func FromValue(v cty.Value) (any, error) {
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	if v.IsNull() {
		return nil, nil
	}
	v, _ = v.UnmarkDeep()
	ty := v.Type()

	switch {
	case ty == cty.String:
		var s string
		if err := gocty.FromCtyValue(v, &s); err != nil {
			return nil, err
		}
		return s, nil
	case ty == cty.Bool:
		var b bool
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return nil, err
		}
		return b, nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsObjectType() || ty.IsMapType():
		fields := v.AsValueMap()
		out := make(map[string]any, len(fields))
		for k, field := range fields {
			nv, err := FromValue(field)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = nv
		}
		return out, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			nv, err := FromValue(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
