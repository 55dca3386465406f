// Package starlark evaluates template expressions with Starlark and converts
// between Starlark values and document values.
package starlark

import (
	"fmt"

	"github.com/leapstack-labs/dashgen/internal/document"
	"go.starlark.net/starlark"
)

// FromDocument converts a document value to a Starlark value.
// Maps become dicts with the same key order; RawExpr becomes a string.
func FromDocument(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil

	case document.RawExpr:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := FromDocument(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case *document.Map:
		dict := starlark.NewDict(val.Len())
		err := val.IterateErr(func(k string, item any) error {
			sv, err := FromDocument(item)
			if err != nil {
				return fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return fmt.Errorf("dict setkey %q: %w", k, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToDocument converts a Starlark value back to a document value.
// Returns: nil, string, int64, float64, bool, []any or *document.Map.
func ToDocument(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			// Fallback for very large integers - convert to string
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *starlark.List:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			dv, err := ToDocument(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			result[i] = dv
		}
		return result, nil

	case starlark.Tuple:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			dv, err := ToDocument(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			result[i] = dv
		}
		return result, nil

	case *starlark.Dict:
		result := document.NewMap()
		for _, item := range val.Items() {
			var key string
			if s, ok := item[0].(starlark.String); ok {
				key = string(s)
			} else {
				key = item[0].String()
			}
			dv, err := ToDocument(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result.Set(key, dv)
		}
		return result, nil

	default:
		// Try to get a string representation
		return val.String(), nil
	}
}

// StringList converts a Go string slice to a Starlark list.
func StringList(items []string) *starlark.List {
	list := make([]starlark.Value, len(items))
	for i, s := range items {
		list[i] = starlark.String(s)
	}
	return starlark.NewList(list)
}
